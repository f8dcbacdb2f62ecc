package fetchcache

import (
	"errors"
	"fmt"
)

// ErrFetch is matched by every FetchError.
var ErrFetch = errors.New("fetch failed")

// FetchError reports that the fetch function failed for a resource. The
// original error stays in the chain.
type FetchError struct {
	ResourceID string
	Cause      error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.ResourceID, e.Cause)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrFetch or another FetchError.
func (e *FetchError) Is(target error) bool {
	if target == ErrFetch {
		return true
	}
	_, ok := target.(*FetchError)
	return ok
}
