package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/kvcache/internal/circuitbreaker"
	"github.com/vyrodovalexey/kvcache/internal/config"
	"github.com/vyrodovalexey/kvcache/internal/fetchcache"
	"github.com/vyrodovalexey/kvcache/internal/store"
)

// testHTTPConfig returns a config with fast retries and no breaker.
func testHTTPConfig() config.HTTPConfig {
	cfg := config.DefaultConfig().HTTP
	cfg.Timeout = config.Duration(2 * time.Second)
	cfg.Retry = config.RetryConfig{
		MaxRetries:     2,
		InitialBackoff: config.Duration(time.Millisecond),
		MaxBackoff:     config.Duration(5 * time.Millisecond),
	}
	return cfg
}

// statusSequence serves the given statuses in order, then 200 forever.
func statusSequence(t *testing.T, body string, statuses ...int) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(hits.Add(1))
		if n <= len(statuses) {
			w.WriteHeader(statuses[n-1])
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, &hits
}

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.UserAgent() + "|" + r.Header.Get("Accept")))
	}))
	t.Cleanup(srv.Close)

	cfg := testHTTPConfig()
	cfg.UserAgent = "kvcache-test"
	f := NewFetcher(cfg)

	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	ua, accept, ok := strings.Cut(body, "|")
	require.True(t, ok)
	assert.Equal(t, "kvcache-test", ua)
	assert.Contains(t, accept, "text/html")
}

func TestFetcher_DefaultUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.UserAgent()))
	}))
	t.Cleanup(srv.Close)

	body, err := NewFetcher(testHTTPConfig()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, body)
}

func TestFetcher_InvalidURL(t *testing.T) {
	f := NewFetcher(testHTTPConfig())

	for _, raw := range []string{"", "ftp://example.com", "example.com/page", "http://"} {
		t.Run(raw, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), raw)
			assert.ErrorIs(t, err, ErrInvalidURL)
		})
	}
}

func TestFetcher_RetriesTransientStatus(t *testing.T) {
	srv, hits := statusSequence(t, "ok", http.StatusServiceUnavailable, http.StatusBadGateway)

	body, err := NewFetcher(testHTTPConfig()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.Equal(t, int64(3), hits.Load())
}

func TestFetcher_GivesUpAfterMaxRetries(t *testing.T) {
	srv, hits := statusSequence(t, "ok", 500, 500, 500, 500)

	_, err := NewFetcher(testHTTPConfig()).Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode())
	assert.Equal(t, int64(3), hits.Load())
}

func TestFetcher_DoesNotRetryClientErrors(t *testing.T) {
	srv, hits := statusSequence(t, "ok", http.StatusNotFound)

	_, err := NewFetcher(testHTTPConfig()).Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Contains(t, statusErr.Error(), "404 Not Found")
	assert.Equal(t, int64(1), hits.Load())
}

func TestFetcher_CircuitBreakerOpens(t *testing.T) {
	srv, hits := statusSequence(t, "ok", 500, 500, 500, 500, 500, 500)

	cfg := testHTTPConfig()
	cfg.Retry.MaxRetries = 0
	cfg.CircuitBreaker = config.CircuitBreakerConfig{
		Enabled:   true,
		Threshold: 2,
		Timeout:   config.Duration(time.Hour),
	}
	f := NewFetcher(cfg)
	ctx := context.Background()

	for range 2 {
		_, err := f.Fetch(ctx, srv.URL)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, f.breaker.State())

	_, err := f.Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, int64(2), hits.Load(), "open breaker must not reach the server")
}

func TestFetcher_RateLimit(t *testing.T) {
	srv, _ := statusSequence(t, "ok")

	cfg := testHTTPConfig()
	cfg.RateLimit = 20
	f := NewFetcher(cfg)
	ctx := context.Background()

	start := time.Now()
	for range 3 {
		_, err := f.Fetch(ctx, srv.URL)
		require.NoError(t, err)
	}
	// One token up front, then one every 50ms.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestFetcher_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewFetcher(testHTTPConfig()).Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled))
}

func TestFetcher_MaxBodySize(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{name: "below limit", size: 9},
		{name: "at limit", size: 10},
		{name: "over limit", size: 11, wantErr: true},
		{name: "far over limit", size: 4096, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := statusSequence(t, strings.Repeat("x", tt.size))

			cfg := testHTTPConfig()
			cfg.MaxBodySize = 10
			body, err := NewFetcher(cfg).Fetch(context.Background(), srv.URL)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBodyTooLarge)
				assert.Empty(t, body)
				return
			}
			require.NoError(t, err)
			assert.Len(t, body, tt.size)
		})
	}
}

func TestFetcher_OversizedPageIsNotCached(t *testing.T) {
	srv, hits := statusSequence(t, strings.Repeat("x", 4096))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testHTTPConfig()
	cfg.MaxBodySize = 1024
	pages := fetchcache.New(store.NewRedisStoreFromClient(client), NewFetcher(cfg))

	_, err := pages.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, fetchcache.ErrFetch)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	assert.Equal(t, int64(1), hits.Load(), "oversized pages are not retried")
	assert.False(t, mr.Exists(fetchcache.CacheKey(srv.URL)))
	assert.False(t, mr.Exists(fetchcache.CountKey(srv.URL)))
}

func TestFetcher_WithPageCache(t *testing.T) {
	srv, hits := statusSequence(t, "page")

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	pages := fetchcache.New(store.NewRedisStoreFromClient(client), NewFetcher(testHTTPConfig()))
	ctx := context.Background()

	for range 2 {
		body, err := pages.Fetch(ctx, srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "page", body)
	}
	assert.Equal(t, int64(1), hits.Load())

	n, err := pages.AccessCount(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
