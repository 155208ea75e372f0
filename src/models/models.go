package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawLine is one line of the input feed together with its 1-based position.
// Produced by the reading collaborator, consumed immediately by the parser.
type RawLine struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// FieldDefect records a field-level coercion failure found during parsing.
// Defects travel with the candidate record; they are never raised as errors.
type FieldDefect struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// Field names used in defects, in wire-format column order.
const (
	FieldTransactionID = "transaction_id"
	FieldDate          = "date"
	FieldProductID     = "product_id"
	FieldProductName   = "product_name"
	FieldQuantity      = "quantity"
	FieldUnitPrice     = "unit_price"
	FieldCustomerID    = "customer_id"
	FieldRegion        = "region"
)

// CandidateRecord is a parsed-but-not-yet-validated transaction. Typed fields
// are only meaningful for columns without a defect. Not mutated after the
// parser returns it.
type CandidateRecord struct {
	Line RawLine `json:"line"`

	TransactionID string          `json:"transaction_id"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	CustomerID    string          `json:"customer_id"`
	Region        string          `json:"region"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Date          time.Time       `json:"date"`

	Defects []FieldDefect `json:"defects,omitempty"`
}

// DefectOn returns the defect recorded for the given field, or nil.
func (c *CandidateRecord) DefectOn(field string) *FieldDefect {
	for i := range c.Defects {
		if c.Defects[i].Field == field {
			return &c.Defects[i]
		}
	}
	return nil
}

// RejectReason identifies the first validation rule a record failed.
type RejectReason string

const (
	RejectMissingTransactionID RejectReason = "MissingTransactionId"
	RejectDuplicateID          RejectReason = "DuplicateId"
	RejectMissingProductID     RejectReason = "MissingProductId"
	RejectInvalidQuantity      RejectReason = "InvalidQuantity"
	RejectInvalidUnitPrice     RejectReason = "InvalidUnitPrice"
	RejectInvalidDate          RejectReason = "InvalidDate"
	RejectFutureDate           RejectReason = "FutureDate"
	RejectMissingRegion        RejectReason = "MissingRegion"
)

// RejectedLine pairs a rejected input line with the reason it was dropped.
// Kept for the run report so bad source rows can be diagnosed.
type RejectedLine struct {
	Line   RawLine      `json:"line"`
	Reason RejectReason `json:"reason"`
}

// ValidationResult is the outcome of validating one candidate record.
// Every non-blank input line yields exactly one of these.
type ValidationResult struct {
	Accepted bool         `json:"accepted"`
	Record   *SaleRecord  `json:"record,omitempty"` // set when Accepted
	Line     RawLine      `json:"line"`
	Reason   RejectReason `json:"reason,omitempty"` // set when rejected
}

// FilterOptions narrows which accepted records reach analytics and enrichment.
// A nil/empty field means no filter on that dimension.
type FilterOptions struct {
	DateFrom  *time.Time       `json:"date_from,omitempty"`
	DateTo    *time.Time       `json:"date_to,omitempty"`
	Region    string           `json:"region,omitempty"`
	MinAmount *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`
}

// Matches reports whether a record passes every configured filter.
// Amount filters apply to the record's line total.
func (f FilterOptions) Matches(r *SaleRecord) bool {
	if f.DateFrom != nil && r.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && r.Date.After(*f.DateTo) {
		return false
	}
	if f.Region != "" && !strings.EqualFold(r.Region, f.Region) {
		return false
	}
	if f.MinAmount != nil && r.LineTotal.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && r.LineTotal.GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}
