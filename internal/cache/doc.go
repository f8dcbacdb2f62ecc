// Package cache implements the instrumented key-value cache.
//
// A Cache stores values under generated keys, reads them back with a
// caller-chosen decoder, and records how its Store operation is used: a call
// counter and the ordered input/output history of every call, both kept in
// the same key-value store as the data.
//
// # Example Usage
//
//	c := cache.New(kv, cache.WithLogger(logger))
//	if err := c.Reset(ctx); err != nil { // optional, destructive
//	    return err
//	}
//
//	key, err := c.Store(ctx, value.Text("Hello"))
//	s, ok, err := c.GetText(ctx, key)
//
//	r, err := c.Replay(ctx, cache.OpStore)
//	fmt.Print(r)
//	// Cache.Store was called 1 times:
//	// Cache.Store("Hello") -> 0f3c...
//
// # Instrumenting other operations
//
// CountCalls and CallHistory are independent decorators over Op. Instrument
// composes both so that, for every call, the counter is incremented first,
// then the input is appended, then the operation runs, then the output is
// appended. Both decorators persist through a Recorder, which also serves
// Replay and CallCount.
//
// # Thread Safety
//
// Cache and Recorder are safe for concurrent use. The store only offers
// single-key atomicity, so concurrent calls to the same operation may
// interleave their history entries; each call still appends exactly one
// input and one output.
package cache
