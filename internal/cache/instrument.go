package cache

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/kvcache/internal/observability"
	"github.com/vyrodovalexey/kvcache/internal/store"
)

// Op is an operation that can be wrapped by CountCalls and CallHistory.
type Op[In, Out any] func(ctx context.Context, in In) (Out, error)

// Recorder keeps call counters and call history for named operations in a
// store. The counter lives under the operation name itself and the history
// under InputsKey and OutputsKey.
type Recorder struct {
	kv     store.Store
	logger observability.Logger
}

// NewRecorder creates a Recorder backed by kv.
func NewRecorder(kv store.Store, logger observability.Logger) *Recorder {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Recorder{kv: kv, logger: logger}
}

// InputsKey returns the list key holding input snapshots for op.
func InputsKey(op string) string { return op + ":inputs" }

// OutputsKey returns the list key holding output snapshots for op.
func OutputsKey(op string) string { return op + ":outputs" }

// snapshot renders a call argument or result for the history lists.
func snapshot(v any) string {
	return fmt.Sprint(v)
}

// errorSnapshot is recorded as the output of a call that failed, so the
// input and output lists stay the same length.
func errorSnapshot(err error) string {
	return "error: " + err.Error()
}

// CountCalls returns op wrapped so that every call first increments the
// counter stored under name. The increment happens before op runs and
// regardless of its outcome; if the increment fails op is not called.
func CountCalls[In, Out any](r *Recorder, name string, op Op[In, Out]) Op[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		n, err := r.kv.Incr(ctx, name)
		if err != nil {
			var zero Out
			return zero, fmt.Errorf("count call to %s: %w", name, err)
		}
		observability.GetMetrics().CallsTotal.WithLabelValues(name).Inc()
		r.logger.Debug("call counted",
			observability.String("operation", name),
			observability.Int64("count", n))

		return op(ctx, in)
	}
}

// CallHistory returns op wrapped so that every call appends its input
// snapshot before op runs and its output snapshot after. A failed call
// records "error: <message>" as its output.
func CallHistory[In, Out any](r *Recorder, name string, op Op[In, Out]) Op[In, Out] {
	inputsKey, outputsKey := InputsKey(name), OutputsKey(name)

	return func(ctx context.Context, in In) (Out, error) {
		var zero Out

		if err := r.kv.ListAppend(ctx, inputsKey, snapshot(in)); err != nil {
			return zero, fmt.Errorf("record input of %s: %w", name, err)
		}

		out, opErr := op(ctx, in)

		recorded := snapshot(out)
		if opErr != nil {
			recorded = errorSnapshot(opErr)
		}
		if err := r.appendOutput(ctx, outputsKey, recorded); err != nil {
			if opErr != nil {
				return zero, fmt.Errorf("record output of %s: %w (call failed: %w)", name, err, opErr)
			}
			return zero, fmt.Errorf("record output of %s: %w", name, err)
		}

		return out, opErr
	}
}

// appendOutput appends an output snapshot, trying once more on failure. The
// input is already recorded, so a lost output would pair every later input
// with the wrong result.
func (r *Recorder) appendOutput(ctx context.Context, key, recorded string) error {
	err := r.kv.ListAppend(ctx, key, recorded)
	if err == nil {
		return nil
	}
	r.logger.Warn("output append failed, retrying",
		observability.String("key", key),
		observability.Error(err))
	if retryErr := r.kv.ListAppend(ctx, key, recorded); retryErr != nil {
		r.logger.Error("call history misaligned",
			observability.String("key", key),
			observability.Error(retryErr))
		return retryErr
	}
	return nil
}

// Instrument applies both decorators: CountCalls outermost, then
// CallHistory, so a call increments the counter, appends its input, runs op
// and appends its output, in that order.
func Instrument[In, Out any](r *Recorder, name string, op Op[In, Out]) Op[In, Out] {
	return CountCalls(r, name, CallHistory(r, name, op))
}
