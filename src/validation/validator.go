// src/validation/validator.go
package validation

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/salesclaro/src/models"
)

// CurrencyPrecision is the minor-unit precision line totals are rounded to.
const CurrencyPrecision = 2

// Options tunes validation policy knobs that the business rules leave open.
type Options struct {
	// AllowFutureDates disables the future-date rule when true.
	AllowFutureDates bool
}

// Validator applies the business rules to candidate records, in a fixed
// order so that every rejection carries exactly one deterministic reason.
// It owns the run-scoped set of seen transaction ids; build a fresh
// Validator per run. Not safe for concurrent use.
type Validator struct {
	refDate time.Time
	opts    Options
	seenIDs map[string]struct{}
}

func NewValidator(refDate time.Time, opts Options) *Validator {
	return &Validator{
		refDate: refDate,
		opts:    opts,
		seenIDs: make(map[string]struct{}),
	}
}

// Validate partitions one candidate into Accepted or Rejected. Rules run in
// order; the first failure wins. A parser defect on a checked field counts
// as that field's rule failing.
func (v *Validator) Validate(c *models.CandidateRecord) models.ValidationResult {
	reject := func(reason models.RejectReason) models.ValidationResult {
		return models.ValidationResult{Accepted: false, Line: c.Line, Reason: reason}
	}

	// Rule 1: transaction id present and non-empty.
	if c.TransactionID == "" || c.DefectOn(models.FieldTransactionID) != nil {
		return reject(models.RejectMissingTransactionID)
	}

	// Rule 2: transaction id unique within the run. The first occurrence
	// claims the id even if a later rule rejects it.
	if _, dup := v.seenIDs[c.TransactionID]; dup {
		return reject(models.RejectDuplicateID)
	}
	v.seenIDs[c.TransactionID] = struct{}{}

	// Rule 3: product id present and non-empty.
	if c.ProductID == "" || c.DefectOn(models.FieldProductID) != nil {
		return reject(models.RejectMissingProductID)
	}

	// Rule 4: quantity is an integer >= 1.
	if c.DefectOn(models.FieldQuantity) != nil || c.Quantity < 1 {
		return reject(models.RejectInvalidQuantity)
	}

	// Rule 5: unit price is a non-negative decimal.
	if c.DefectOn(models.FieldUnitPrice) != nil || c.UnitPrice.IsNegative() {
		return reject(models.RejectInvalidUnitPrice)
	}

	// Rule 6: date is a valid calendar date, not after the reference date.
	if c.DefectOn(models.FieldDate) != nil || c.Date.IsZero() {
		return reject(models.RejectInvalidDate)
	}
	if !v.opts.AllowFutureDates && c.Date.After(v.refDate) {
		return reject(models.RejectFutureDate)
	}

	// Rule 7: region present and non-empty.
	if c.Region == "" || c.DefectOn(models.FieldRegion) != nil {
		return reject(models.RejectMissingRegion)
	}

	record := &models.SaleRecord{
		TransactionID: c.TransactionID,
		ProductID:     c.ProductID,
		ProductName:   c.ProductName,
		CustomerID:    c.CustomerID,
		Quantity:      c.Quantity,
		UnitPrice:     c.UnitPrice,
		Region:        c.Region,
		Date:          c.Date,
		LineTotal:     LineTotal(c.Quantity, c.UnitPrice),
	}
	return models.ValidationResult{Accepted: true, Record: record, Line: c.Line}
}

// LineTotal computes quantity x unit price rounded half-to-even to the
// currency's minor-unit precision.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).RoundBank(CurrencyPrecision)
}
