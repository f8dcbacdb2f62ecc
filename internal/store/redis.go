package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/kvcache/internal/config"
	"github.com/vyrodovalexey/kvcache/internal/observability"
)

const (
	tracerName = "github.com/vyrodovalexey/kvcache/internal/store"

	// flushScanCount is the SCAN batch size used when flushing a prefix.
	flushScanCount = 500

	pingTimeout = 5 * time.Second
)

// RedisStore implements Store on top of a go-redis client. Every command
// runs exactly once: failures are reported, never retried.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    observability.Logger
	ownClient bool
}

// Option configures a RedisStore.
type Option func(*RedisStore)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *RedisStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKeyPrefix prepends prefix to every key. Flush then only removes
// keys under the prefix instead of the whole database.
func WithKeyPrefix(prefix string) Option {
	return func(s *RedisStore) {
		s.keyPrefix = prefix
	}
}

// NewRedisStore connects to the Redis server described by cfg and verifies
// the connection with PING.
func NewRedisStore(cfg config.RedisConfig, opts ...Option) (*RedisStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis URL is required")
	}

	redisOpts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	applyRedisPoolOptions(redisOpts, cfg)

	client := redis.NewClient(redisOpts)
	if err := pingRedis(client); err != nil {
		_ = client.Close()
		return nil, &Error{Command: "ping", Cause: err}
	}

	if cfg.KeyPrefix != "" {
		opts = append([]Option{WithKeyPrefix(cfg.KeyPrefix)}, opts...)
	}
	s := NewRedisStoreFromClient(client, opts...)
	s.ownClient = true

	s.logger.Info("redis store initialized",
		observability.String("addr", redisOpts.Addr),
		observability.Int("db", redisOpts.DB),
		observability.String("keyPrefix", s.keyPrefix))

	return s, nil
}

// NewRedisStoreFromClient wraps an existing client. The caller keeps
// ownership of the client; Close does not close it.
func NewRedisStoreFromClient(client redis.UniversalClient, opts ...Option) *RedisStore {
	s := &RedisStore{
		client: client,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// applyRedisPoolOptions applies pool and timeout overrides to Redis options.
func applyRedisPoolOptions(opts *redis.Options, cfg config.RedisConfig) {
	// Commands are not retried; callers see the first failure.
	opts.MaxRetries = -1
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.ConnectTimeout > 0 {
		opts.DialTimeout = cfg.ConnectTimeout.Duration()
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout.Duration()
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout.Duration()
	}
}

// pingRedis tests the Redis connection with a timeout.
func pingRedis(client redis.UniversalClient) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return client.Ping(ctx).Err()
}

func (s *RedisStore) resolveKey(key string) string {
	return s.keyPrefix + key
}

// run executes fn inside a client span, records metrics, and maps failures
// to *Error.
func (s *RedisStore) run(ctx context.Context, command, key string, fn func(ctx context.Context) error) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "store."+command,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", command),
			attribute.String("store.key", key),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics := observability.GetMetrics()
	metrics.StoreDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())

	if err == nil {
		return nil
	}

	metrics.StoreErrors.WithLabelValues(command).Inc()
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
	s.logger.Error("redis command failed",
		observability.String("command", command),
		observability.String("key", key),
		observability.Error(err))
	return &Error{Command: command, Key: key, Cause: err}
}

// Set stores value under key without expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.run(ctx, "set", key, func(ctx context.Context) error {
		return s.client.Set(ctx, s.resolveKey(key), value, 0).Err()
	})
}

// Get returns the value stored under key. A missing key is reported as
// found=false with a nil error.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		val   []byte
		found bool
	)
	err := s.run(ctx, "get", key, func(ctx context.Context) error {
		b, err := s.client.Get(ctx, s.resolveKey(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		val, found = b, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !found {
		s.logger.Debug("store miss", observability.String("key", key))
	}
	return val, found, nil
}

// SetWithExpiry stores value under key and lets it expire after ttl.
func (s *RedisStore) SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return &Error{Command: "setex", Key: key, Cause: fmt.Errorf("non-positive ttl %s", ttl)}
	}
	return s.run(ctx, "setex", key, func(ctx context.Context) error {
		return s.client.Set(ctx, s.resolveKey(key), value, ttl).Err()
	})
}

// Incr atomically increments the integer stored under key.
func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.run(ctx, "incr", key, func(ctx context.Context) error {
		var err error
		n, err = s.client.Incr(ctx, s.resolveKey(key)).Result()
		return err
	})
	return n, err
}

// ListAppend appends value to the tail of the list under key.
func (s *RedisStore) ListAppend(ctx context.Context, key string, value string) error {
	return s.run(ctx, "rpush", key, func(ctx context.Context) error {
		return s.client.RPush(ctx, s.resolveKey(key), value).Err()
	})
}

// ListRange returns list elements start..stop inclusive.
func (s *RedisStore) ListRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	var items []string
	err := s.run(ctx, "lrange", key, func(ctx context.Context) error {
		var err error
		items, err = s.client.LRange(ctx, s.resolveKey(key), start, stop).Result()
		return err
	})
	return items, err
}

// Flush deletes every key under the store's prefix, or the whole current
// database when no prefix is configured.
func (s *RedisStore) Flush(ctx context.Context) error {
	err := s.run(ctx, "flush", s.keyPrefix, func(ctx context.Context) error {
		if s.keyPrefix == "" {
			return s.client.FlushDB(ctx).Err()
		}
		return s.deletePrefix(ctx)
	})
	if err == nil {
		s.logger.Warn("store flushed", observability.String("keyPrefix", s.keyPrefix))
	}
	return err
}

func (s *RedisStore) deletePrefix(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, escapeGlob(s.keyPrefix)+"*", flushScanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// globEscaper escapes the characters SCAN MATCH treats as pattern syntax.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeGlob makes s match itself literally in a SCAN MATCH pattern.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

// Ping checks connectivity to the server.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.run(ctx, "ping", "", func(ctx context.Context) error {
		return s.client.Ping(ctx).Err()
	})
}

// Close releases the connection pool if the store created it.
func (s *RedisStore) Close() error {
	if !s.ownClient {
		return nil
	}
	s.logger.Info("redis store closing")
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
