package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a single configuration validation failure.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Validate checks the configuration and returns ValidationErrors listing
// every invalid field, or nil.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(path, format string, args ...any) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if c.Redis.URL == "" {
		add("redis.url", "is required")
	} else if u, err := url.Parse(c.Redis.URL); err != nil {
		add("redis.url", "invalid URL: %v", err)
	} else if u.Scheme != "redis" && u.Scheme != "rediss" {
		add("redis.url", "unsupported scheme %q", u.Scheme)
	}
	if c.Redis.PoolSize < 0 {
		add("redis.poolSize", "must not be negative")
	}

	if c.Fetch.TTL.Duration() <= 0 {
		add("fetch.ttl", "must be positive")
	}
	switch c.Fetch.CountMode {
	case "", CountModeFetch, CountModeAccess:
	default:
		add("fetch.countMode", "must be %q or %q, got %q", CountModeFetch, CountModeAccess, c.Fetch.CountMode)
	}

	if c.HTTP.Timeout.Duration() < 0 {
		add("http.timeout", "must not be negative")
	}
	if c.HTTP.RateLimit < 0 {
		add("http.rateLimit", "must not be negative")
	}
	if c.HTTP.Retry.MaxRetries < 0 {
		add("http.retry.maxRetries", "must not be negative")
	}
	if c.HTTP.CircuitBreaker.Enabled && c.HTTP.CircuitBreaker.Threshold <= 0 {
		add("http.circuitBreaker.threshold", "must be positive when enabled")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		add("logging.level", "unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		add("logging.format", "unknown format %q", c.Logging.Format)
	}

	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		add("tracing.samplingRate", "must be between 0 and 1")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
