package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/salesclaro/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func fastRetry(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func newTestClient(baseURL string, retry RetryConfig) CatalogClient {
	return NewCatalogClient(baseURL, 2*time.Second, retry, time.Minute, time.Minute, 1000)
}

func categoryPayload(category string) string {
	return fmt.Sprintf(`{"products":[{"category":%q}]}`, category)
}

func TestLookupFound(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/products/search", r.URL.Path)
		assert.Equal(t, "P1", r.URL.Query().Get("q"))
		fmt.Fprint(w, categoryPayload("electronics"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, fastRetry(3))
	outcome := client.Lookup(context.Background(), "P1")

	assert.Equal(t, StatusFound, outcome.Status)
	assert.Equal(t, "electronics", outcome.Category)
	assert.NoError(t, outcome.Err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestLookupCachesFoundOutcome(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, categoryPayload("furniture"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, fastRetry(3))
	first := client.Lookup(context.Background(), "P1")
	second := client.Lookup(context.Background(), "P1")

	assert.Equal(t, StatusFound, first.Status)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, calls.Load(), "second lookup must be served from cache")
}

func TestLookupNotFoundIsTerminalAndCached(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "empty product list",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"products":[]}`)
			},
		},
		{
			name: "http 404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int64
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			}))
			defer server.Close()

			client := newTestClient(server.URL, fastRetry(3))
			first := client.Lookup(context.Background(), "P404")
			second := client.Lookup(context.Background(), "P404")

			assert.Equal(t, StatusNotFound, first.Status)
			assert.Equal(t, StatusNotFound, second.Status)
			assert.EqualValues(t, 1, calls.Load(), "not-found must not be retried or re-fetched")
		})
	}
}

func TestLookupRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, categoryPayload("groceries"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, fastRetry(3))
	outcome := client.Lookup(context.Background(), "P1")

	assert.Equal(t, StatusFound, outcome.Status)
	assert.Equal(t, "groceries", outcome.Category)
	assert.EqualValues(t, 3, calls.Load(), "two timeouts then success within the budget")

	// And the recovered outcome is cached.
	client.Lookup(context.Background(), "P1")
	assert.EqualValues(t, 3, calls.Load())
}

func TestLookupFailedAfterRetryBudget(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL, fastRetry(3))
	outcome := client.Lookup(context.Background(), "P1")

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Error(t, outcome.Err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestLookupDoesNotCacheFailures(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, categoryPayload("toys"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, fastRetry(2))
	first := client.Lookup(context.Background(), "P1")
	require.Equal(t, StatusFailed, first.Status)

	// The failure was transient; a later call for the same id retries
	// instead of replaying a cached failure.
	second := client.Lookup(context.Background(), "P1")
	assert.Equal(t, StatusFound, second.Status)
	assert.Equal(t, "toys", second.Category)
}

func TestLookupNonRetryableClientError(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(server.URL, fastRetry(3))
	outcome := client.Lookup(context.Background(), "P1")

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.EqualValues(t, 1, calls.Load(), "4xx responses are not retried")
}

func TestLookupDeduplicatesConcurrentCallers(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(w, categoryPayload("sports"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, fastRetry(3))

	const workers = 8
	var wg sync.WaitGroup
	outcomes := make([]Outcome, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = client.Lookup(context.Background(), "P1")
		}(i)
	}
	wg.Wait()

	for _, outcome := range outcomes {
		assert.Equal(t, StatusFound, outcome.Status)
		assert.Equal(t, "sports", outcome.Category)
	}
	assert.EqualValues(t, 1, calls.Load(), "concurrent callers must share one in-flight call")
}

func TestLookupCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, categoryPayload("never"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL, fastRetry(3))
	outcome := client.Lookup(ctx, "P1")

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Error(t, outcome.Err)
}

func TestRetryConfigDelay(t *testing.T) {
	rc := RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, 100*time.Millisecond, rc.Delay(1))
	assert.Equal(t, 200*time.Millisecond, rc.Delay(2))
	assert.Equal(t, 400*time.Millisecond, rc.Delay(3))
	assert.Equal(t, 800*time.Millisecond, rc.Delay(4))
	assert.Equal(t, time.Second, rc.Delay(5), "delay is capped at MaxDelay")
	assert.Equal(t, time.Second, rc.Delay(10))
}
