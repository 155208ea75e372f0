package enrichment

import (
	"context"
	"time"
)

// Status classifies the outcome of one catalog lookup.
type Status string

const (
	StatusFound    Status = "Found"
	StatusNotFound Status = "NotFound"
	StatusFailed   Status = "Failed"
)

// Outcome is the result of a category lookup for one product id.
// Category is set only for StatusFound; Err only for StatusFailed.
type Outcome struct {
	Status   Status
	Category string
	Err      error
}

// RetryConfig is the bounded-retry policy applied to transient lookup
// failures. A logical not-found is terminal and never retried.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// NewRetryConfig returns the default retry policy.
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// Delay returns the backoff before the given retry attempt (1-based).
func (rc RetryConfig) Delay(attempt int) time.Duration {
	delay := rc.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * rc.Multiplier)
		if delay >= rc.MaxDelay {
			return rc.MaxDelay
		}
	}
	if delay > rc.MaxDelay {
		return rc.MaxDelay
	}
	return delay
}

// CatalogClient maps product ids to categories via the external catalog
// service. Implementations memoize Found/NotFound outcomes for the run,
// deduplicate concurrent lookups per product id, and never return an error:
// failures are reported inside the Outcome so the pipeline can continue.
type CatalogClient interface {
	Lookup(ctx context.Context, productID string) Outcome
}
