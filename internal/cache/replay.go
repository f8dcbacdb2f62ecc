package cache

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vyrodovalexey/kvcache/internal/observability"
	"github.com/vyrodovalexey/kvcache/internal/value"
)

// Call is one recorded invocation.
type Call struct {
	Input  string
	Output string
}

// Replay is the recorded history of an operation, oldest call first.
type Replay struct {
	Operation string
	Calls     []Call
}

// Count returns the number of recorded calls.
func (r *Replay) Count() int {
	return len(r.Calls)
}

// Lines renders each call as "<op>(<input>) -> <output>".
func (r *Replay) Lines() []string {
	lines := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		lines[i] = fmt.Sprintf("%s(%s) -> %s", r.Operation, c.Input, c.Output)
	}
	return lines
}

// String renders a header line with the call count followed by Lines.
func (r *Replay) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s was called %d times:\n", r.Operation, r.Count())
	for _, line := range r.Lines() {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// WriteTo writes String to w.
func (r *Replay) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, r.String())
	return int64(n), err
}

// Replay reads the full call history of op. It never modifies counters or
// history. An operation that was never called yields an empty Replay.
//
// Inputs are appended before the call runs, so a call still in flight has
// an input without an output; only completed pairs are reported.
func (r *Recorder) Replay(ctx context.Context, op string) (*Replay, error) {
	inputs, err := r.kv.ListRange(ctx, InputsKey(op), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read inputs of %s: %w", op, err)
	}
	outputs, err := r.kv.ListRange(ctx, OutputsKey(op), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read outputs of %s: %w", op, err)
	}

	n := min(len(inputs), len(outputs))
	if len(inputs) != len(outputs) {
		r.logger.Debug("call history has calls in flight",
			observability.String("operation", op),
			observability.Int("inputs", len(inputs)),
			observability.Int("outputs", len(outputs)))
	}

	calls := make([]Call, n)
	for i := range n {
		calls[i] = Call{Input: inputs[i], Output: outputs[i]}
	}

	return &Replay{Operation: op, Calls: calls}, nil
}

// CallCount returns the raw counter for op, or 0 if it was never called.
func (r *Recorder) CallCount(ctx context.Context, op string) (int64, error) {
	raw, found, err := r.kv.Get(ctx, op)
	if err != nil {
		return 0, fmt.Errorf("read call count of %s: %w", op, err)
	}
	if !found {
		return 0, nil
	}
	n, err := value.DecodeInt(raw)
	if err != nil {
		return 0, fmt.Errorf("call count of %s: %w", op, err)
	}
	return n, nil
}

