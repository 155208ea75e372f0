package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleRecord is a fully validated transaction. Immutable once built; every
// field satisfies the validation rules that produced it. LineTotal is
// quantity x unit price rounded half-to-even to currency precision.
type SaleRecord struct {
	TransactionID string          `json:"transaction_id"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name,omitempty"`
	CustomerID    string          `json:"customer_id,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Region        string          `json:"region"`
	Date          time.Time       `json:"date"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// EnrichmentStatus describes how a record's category lookup ended.
type EnrichmentStatus string

const (
	// StatusEnriched: a category was found and attached.
	StatusEnriched EnrichmentStatus = "Enriched"
	// StatusNotFound: the catalog has no entry for the product id.
	StatusNotFound EnrichmentStatus = "NotFound"
	// StatusLookupFailed: the lookup exhausted its retry budget or the
	// service was unreachable. The record still flows to output.
	StatusLookupFailed EnrichmentStatus = "LookupFailed"
	// StatusSkipped: the lookup was never attempted, e.g. the run was
	// cancelled before the record's product id came up.
	StatusSkipped EnrichmentStatus = "Skipped"
)

// CategoryUnavailable is the category marker written to output artifacts for
// records that could not be enriched.
const CategoryUnavailable = "Unknown"

// EnrichedRecord is a SaleRecord with its category lookup outcome merged on.
// Built by the orchestrator, never mutated afterwards.
type EnrichedRecord struct {
	SaleRecord
	Category string           `json:"category,omitempty"`
	Status   EnrichmentStatus `json:"enrichment_status"`
}

// OutputCategory returns the category for output artifacts, substituting the
// unavailable marker when the record carries none.
func (r EnrichedRecord) OutputCategory() string {
	if r.Status == StatusEnriched && r.Category != "" {
		return r.Category
	}
	return CategoryUnavailable
}
