// Package store provides the key-value store client used by the cache
// facade.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrStoreUnavailable is matched by every error the store returns when the
// backend cannot complete a command.
var ErrStoreUnavailable = errors.New("store unavailable")

// Store is the set of atomic single-key primitives the cache relies on.
//
// Contract:
//   - Get returns (nil, false, nil) when the key does not exist.
//   - Incr on a missing key starts from zero and returns 1.
//   - ListRange follows Redis LRANGE semantics: stop is inclusive and
//     negative indexes count from the end, so (0, -1) is the whole list.
//   - Implementations must be safe for concurrent use.
type Store interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	ListAppend(ctx context.Context, key string, value string) error
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Flush removes every key the store can see. Destructive.
	Flush(ctx context.Context) error
}

// Error describes a failed store command.
type Error struct {
	Command string
	Key     string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("store %s %q: %v", e.Command, e.Key, e.Cause)
	}
	return fmt.Sprintf("store %s: %v", e.Command, e.Cause)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrStoreUnavailable or another *Error.
func (e *Error) Is(target error) bool {
	if target == ErrStoreUnavailable {
		return true
	}
	_, ok := target.(*Error)
	return ok
}
