// Package retry provides exponential backoff retry functionality for
// outgoing page fetches.
//
// The key-value store is never retried; only fetch functions are wrapped.
//
// # Usage
//
//	cfg := retry.FromConfig(httpCfg.Retry)
//	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
//	    return visit(ctx, url)
//	}, &retry.Options{
//	    Operation:   "web.fetch",
//	    ShouldRetry: retry.ShouldRetryWith(retry.TransientFetchErrors()),
//	})
//
// Errors carrying an HTTP status expose it through a StatusCode() int
// method; StatusCodeOf extracts it for conditions.
package retry
