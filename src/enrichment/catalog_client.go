// src/enrichment/catalog_client.go
package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/username/salesclaro/src/logger"
)

// searchResponse mirrors the catalog's search endpoint payload.
type searchResponse struct {
	Products []struct {
		Category string `json:"category"`
	} `json:"products"`
}

type catalogClientImpl struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
	cache      *cache.Cache
	group      singleflight.Group
	limiter    *rate.Limiter
}

// NewCatalogClient creates a catalog client for the given base URL.
// ratePerSecond throttles outbound calls so bursts of distinct product ids
// do not overwhelm the service.
func NewCatalogClient(baseURL string, timeout time.Duration, retry RetryConfig,
	cacheTTL, cacheCleanup time.Duration, ratePerSecond float64) CatalogClient {
	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &catalogClientImpl{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
		cache:      cache.New(cacheTTL, cacheCleanup),
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// Lookup resolves the category for one product id. Found and NotFound
// outcomes are cached for the run; Failed outcomes are not, so a later call
// for the same id retries the service. Concurrent callers for the same id
// share a single in-flight call.
func (c *catalogClientImpl) Lookup(ctx context.Context, productID string) Outcome {
	if cached, found := c.cache.Get(productID); found {
		return cached.(Outcome)
	}

	v, err, _ := c.group.Do(productID, func() (interface{}, error) {
		// A racing caller may have populated the cache while we waited
		// for the singleflight slot.
		if cached, found := c.cache.Get(productID); found {
			return cached.(Outcome), nil
		}
		outcome := c.lookupWithRetry(ctx, productID)
		if outcome.Status != StatusFailed {
			c.cache.Set(productID, outcome, cache.DefaultExpiration)
		}
		return outcome, nil
	})
	if err != nil {
		return Outcome{Status: StatusFailed, Err: err}
	}
	return v.(Outcome)
}

func (c *catalogClientImpl) lookupWithRetry(ctx context.Context, productID string) Outcome {
	var last Outcome
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return Outcome{Status: StatusFailed, Err: err}
		}

		outcome, retryable := c.fetchCategory(ctx, productID)
		if !retryable {
			return outcome
		}
		last = outcome

		if attempt >= c.retry.MaxAttempts {
			break
		}
		delay := c.retry.Delay(attempt)
		logger.L.Warn("Catalog lookup failed, retrying",
			"productID", productID,
			"attempt", attempt,
			"maxAttempts", c.retry.MaxAttempts,
			"delay", delay,
			"error", last.Err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Outcome{Status: StatusFailed, Err: ctx.Err()}
		}
	}
	logger.L.Error("Catalog lookup exhausted retry budget",
		"productID", productID, "attempts", c.retry.MaxAttempts, "error", last.Err)
	return last
}

// fetchCategory performs one external call and classifies the response.
// The second return value reports whether the failure is transient.
func (c *catalogClientImpl) fetchCategory(ctx context.Context, productID string) (Outcome, bool) {
	lookupURL := fmt.Sprintf("%s/products/search?q=%s", c.baseURL, url.QueryEscape(productID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return Outcome{Status: StatusFailed, Err: err}, false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Outcome{Status: StatusFailed, Err: err}, false
		}
		// Timeouts and transport errors are assumed transient.
		return Outcome{Status: StatusFailed, Err: err}, true
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var payload searchResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return Outcome{Status: StatusFailed, Err: fmt.Errorf("decoding catalog response for %s: %w", productID, err)}, true
		}
		if len(payload.Products) == 0 {
			return Outcome{Status: StatusNotFound}, false
		}
		return Outcome{Status: StatusFound, Category: payload.Products[0].Category}, false
	case resp.StatusCode == http.StatusNotFound:
		return Outcome{Status: StatusNotFound}, false
	case resp.StatusCode >= 500:
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("catalog returned status %d for %s", resp.StatusCode, productID)}, true
	default:
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("catalog returned status %d for %s", resp.StatusCode, productID)}, false
	}
}
