// Package web fetches pages over HTTP for the fetch cache.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/kvcache/internal/circuitbreaker"
	"github.com/vyrodovalexey/kvcache/internal/config"
	"github.com/vyrodovalexey/kvcache/internal/observability"
	"github.com/vyrodovalexey/kvcache/internal/retry"
)

const (
	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "kvcache/1.0"

	breakerName = "web.fetch"
	tracerName  = "github.com/vyrodovalexey/kvcache/internal/web"
)

var (
	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("url must start with http:// or https://")

	// ErrBodyTooLarge is returned when a page exceeds the configured maximum
	// body size. Oversized pages are rejected rather than truncated.
	ErrBodyTooLarge = errors.New("response body exceeds maximum size")
)

// StatusError reports a response with a non-success HTTP status.
type StatusError struct {
	URL  string
	Code int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// StatusCode returns the HTTP status of the response.
func (e *StatusError) StatusCode() int {
	return e.Code
}

// Fetcher retrieves page bodies with colly. Each call is rate limited,
// guarded by a circuit breaker and retried on transient failures, in that
// order from the inside out.
type Fetcher struct {
	collector *colly.Collector
	maxBody   int
	retryCfg  *retry.Config
	breaker   *circuitbreaker.Breaker
	limiter   *rate.Limiter
	logger    observability.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFetcher creates a Fetcher from the HTTP configuration.
func NewFetcher(cfg config.HTTPConfig, opts ...Option) *Fetcher {
	f := &Fetcher{
		retryCfg: retry.FromConfig(cfg.Retry),
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = config.DefaultHTTPMaxBodySize
	}

	f.maxBody = maxBody

	// One byte over the limit is read so an oversized page can be told apart
	// from one that is exactly at the limit.
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
		colly.UserAgent(userAgent),
		colly.MaxBodySize(maxBody+1),
	)
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	c.SetRequestTimeout(timeout)
	f.collector = c

	if cfg.CircuitBreaker.Enabled {
		f.breaker = circuitbreaker.New(breakerName,
			cfg.CircuitBreaker.Threshold,
			cfg.CircuitBreaker.Timeout.Duration(),
			circuitbreaker.WithLogger(f.logger))
	}
	if cfg.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return f
}

// Fetch returns the body of rawURL as text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := validateURL(rawURL); err != nil {
		return "", err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "web.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("url.full", rawURL)),
	)
	defer span.End()

	var body string
	err := retry.Do(ctx, f.retryCfg, func(ctx context.Context) error {
		return f.guard(func() error {
			b, err := f.visit(ctx, rawURL)
			if err == nil {
				body = b
			}
			return err
		})
	}, &retry.Options{
		Operation:   breakerName,
		ShouldRetry: retry.ShouldRetryWith(retry.TransientFetchErrors()),
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			f.logger.Warn("retrying fetch",
				observability.String("url", rawURL),
				observability.Int("attempt", attempt),
				observability.Duration("backoff", backoff),
				observability.Error(err))
		},
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return "", err
	}

	span.SetAttributes(attribute.Int("http.response.body.size", len(body)))
	f.logger.Debug("page fetched",
		observability.String("url", rawURL),
		observability.Int("bytes", len(body)))

	return body, nil
}

func (f *Fetcher) guard(fn func() error) error {
	if f.breaker == nil {
		return fn()
	}
	return f.breaker.Execute(fn)
}

// visit performs a single GET on a clone of the base collector so
// concurrent fetches do not share callbacks.
func (f *Fetcher) visit(ctx context.Context, rawURL string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	c := f.collector.Clone()
	c.Context = ctx

	var (
		body   []byte
		status int
	)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	})
	c.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(rawURL); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if status != 0 {
			return "", &StatusError{URL: rawURL, Code: status}
		}
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(body) > f.maxBody {
		return "", fmt.Errorf("GET %s: %w (limit %d bytes)", rawURL, ErrBodyTooLarge, f.maxBody)
	}

	return string(body), nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return nil
}
