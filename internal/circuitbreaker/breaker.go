// Package circuitbreaker guards outgoing fetches with a gobreaker circuit
// breaker so a failing upstream is not hammered.
package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/kvcache/internal/observability"
	"github.com/vyrodovalexey/kvcache/internal/retry"
)

// Default breaker settings.
const (
	DefaultThreshold = 5
	DefaultTimeout   = 30 * time.Second
)

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

var cbTracer = otel.Tracer("kvcache/circuitbreaker")

// StateFunc is called after every state change.
type StateFunc func(name string, from, to gobreaker.State)

// Breaker wraps gobreaker.CircuitBreaker.
type Breaker struct {
	cb            *gobreaker.CircuitBreaker
	logger        observability.Logger
	stateCallback StateFunc
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(b *Breaker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithStateCallback sets a callback for state changes.
func WithStateCallback(fn StateFunc) Option {
	return func(b *Breaker) {
		b.stateCallback = fn
	}
}

// New creates a breaker that opens after threshold consecutive failures and
// stays open for timeout before letting a single trial request through.
func New(name string, threshold int, timeout time.Duration, opts ...Option) *Breaker {
	b := &Breaker{
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}

	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	thresholdU32 := safeIntToUint32(threshold)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= thresholdU32
		},
		IsSuccessful:  isSuccessful,
		OnStateChange: b.onStateChange,
	}

	b.cb = gobreaker.NewCircuitBreaker(settings)
	observability.GetMetrics().BreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return b
}

func (b *Breaker) onStateChange(name string, from, to gobreaker.State) {
	b.logger.Info("circuit breaker state change",
		observability.String("name", name),
		observability.String("from", from.String()),
		observability.String("to", to.String()),
	)

	observability.GetMetrics().BreakerState.WithLabelValues(name).Set(float64(to))

	_, span := cbTracer.Start(context.Background(),
		"circuitbreaker.state_change",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.AddEvent("state_change", trace.WithAttributes(
		attribute.String("circuitbreaker.name", name),
		attribute.String("circuitbreaker.from", from.String()),
		attribute.String("circuitbreaker.to", to.String()),
	))
	span.End()

	if b.stateCallback != nil {
		b.stateCallback(name, from, to)
	}
}

// isSuccessful decides which outcomes count against the upstream. The
// caller giving up and client-side HTTP errors are not the upstream's fault.
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	code := retry.StatusCodeOf(err)
	return code != 0 && code < 500 && code != 408 && code != 429
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

// Execute runs fn under breaker protection. A rejected call returns an
// error matching ErrCircuitOpen and fn is not run.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &OpenError{Name: b.cb.Name(), Cause: err}
	}
	return err
}

// State returns the current state of the breaker.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.cb.Name()
}

// OpenError reports a call rejected by an open or half-open breaker.
type OpenError struct {
	Name  string
	Cause error
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return "circuit breaker " + e.Name + ": " + e.Cause.Error()
}

// Unwrap returns the underlying gobreaker error.
func (e *OpenError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrCircuitOpen or another OpenError.
func (e *OpenError) Is(target error) bool {
	if target == ErrCircuitOpen {
		return true
	}
	_, ok := target.(*OpenError)
	return ok
}
