// Package cache implements the instrumented key-value cache.
package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/kvcache/internal/observability"
	"github.com/vyrodovalexey/kvcache/internal/store"
	"github.com/vyrodovalexey/kvcache/internal/value"
)

// OpStore is the operation identifier under which Store calls are counted
// and recorded.
const OpStore = "Cache.Store"

// Cache stores values under generated keys and records its Store calls.
type Cache struct {
	kv       store.Store
	recorder *Recorder
	logger   observability.Logger
	newKey   func() string
	storeOp  Op[value.Value, string]
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithKeyGenerator replaces the random UUID key generator.
func WithKeyGenerator(gen func() string) Option {
	return func(c *Cache) {
		if gen != nil {
			c.newKey = gen
		}
	}
}

// New creates a Cache on top of kv. The store is used as is: nothing is
// cleared. Call Reset to start from an empty store.
func New(kv store.Store, opts ...Option) *Cache {
	c := &Cache{
		kv:     kv,
		logger: observability.NopLogger(),
		newKey: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.recorder = NewRecorder(kv, c.logger)
	c.storeOp = Instrument(c.recorder, OpStore, c.store)

	return c
}

// Reset removes all data from the underlying store, including counters and
// history of every operation and any other component's keys sharing the
// store. It is destructive and never called implicitly.
func (c *Cache) Reset(ctx context.Context) error {
	if err := c.kv.Flush(ctx); err != nil {
		return fmt.Errorf("reset cache: %w", err)
	}
	c.logger.Info("cache reset")
	return nil
}

// Recorder returns the recorder holding this cache's counters and history.
// It can instrument further operations against the same store.
func (c *Cache) Recorder() *Recorder {
	return c.recorder
}

// Store writes v under a freshly generated key and returns the key. Each
// call is counted and recorded under OpStore.
func (c *Cache) Store(ctx context.Context, v value.Value) (string, error) {
	return c.storeOp(ctx, v)
}

func (c *Cache) store(ctx context.Context, v value.Value) (string, error) {
	key := c.newKey()
	if err := c.kv.Set(ctx, key, v.Encode()); err != nil {
		return "", fmt.Errorf("store %s value: %w", v.Kind(), err)
	}

	c.logger.Debug("value stored",
		observability.String("key", key),
		observability.String("kind", v.Kind().String()))

	return key, nil
}

// Get returns the raw bytes stored under key. A missing key yields
// found=false and a nil error.
func (c *Cache) Get(ctx context.Context, key string) (raw []byte, found bool, err error) {
	raw, found, err = c.kv.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return raw, found, nil
}

// GetAs reads key and decodes it with decode. A missing key yields the zero
// T, found=false and a nil error; decode is not called in that case.
func GetAs[T any](ctx context.Context, c *Cache, key string, decode value.Decoder[T]) (T, bool, error) {
	var zero T

	raw, found, err := c.Get(ctx, key)
	if err != nil || !found {
		return zero, false, err
	}

	v, err := decode(raw)
	if err != nil {
		return zero, false, fmt.Errorf("get %q: %w", key, err)
	}
	return v, true, nil
}

// GetText reads key as UTF-8 text.
func (c *Cache) GetText(ctx context.Context, key string) (string, bool, error) {
	return GetAs(ctx, c, key, value.DecodeText)
}

// GetInt reads key as a base-10 integer.
func (c *Cache) GetInt(ctx context.Context, key string) (int64, bool, error) {
	return GetAs(ctx, c, key, value.DecodeInt)
}

// GetFloat reads key as a float.
func (c *Cache) GetFloat(ctx context.Context, key string) (float64, bool, error) {
	return GetAs(ctx, c, key, value.DecodeFloat)
}

// GetBytes reads key as opaque bytes.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	return GetAs(ctx, c, key, value.DecodeBytes)
}

// Replay returns the recorded history of op.
func (c *Cache) Replay(ctx context.Context, op string) (*Replay, error) {
	return c.recorder.Replay(ctx, op)
}

// CallCount returns how many times op has been called.
func (c *Cache) CallCount(ctx context.Context, op string) (int64, error) {
	return c.recorder.CallCount(ctx, op)
}
