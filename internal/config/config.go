// Package config provides configuration types and loading for the key-value cache facade.
package config

import "time"

// Default configuration values.
const (
	DefaultRedisURL            = "redis://localhost:6379/0"
	DefaultRedisPoolSize       = 10
	DefaultRedisConnectTimeout = 5 * time.Second
	DefaultRedisReadTimeout    = 3 * time.Second
	DefaultRedisWriteTimeout   = 3 * time.Second

	DefaultFetchTTL = 10 * time.Second

	DefaultHTTPTimeout         = 20 * time.Second
	DefaultHTTPMaxBodySize     = 1 << 20
	DefaultRetryMaxRetries     = 2
	DefaultRetryInitialBackoff = 200 * time.Millisecond
	DefaultRetryMaxBackoff     = 2 * time.Second
	DefaultBreakerThreshold    = 5
	DefaultBreakerTimeout      = 30 * time.Second

	DefaultServiceName = "kvcache"
)

// Count modes for the fetch cache access counter.
const (
	// CountModeFetch increments the counter only when the page is fetched.
	CountModeFetch = "fetch"

	// CountModeAccess increments the counter on every Fetch call.
	CountModeAccess = "access"
)

// Config is the root configuration.
type Config struct {
	// Reset flushes the store before first use. Destructive.
	Reset bool `yaml:"reset" json:"reset"`

	Redis   RedisConfig   `yaml:"redis" json:"redis"`
	Fetch   FetchConfig   `yaml:"fetch" json:"fetch"`
	HTTP    HTTPConfig    `yaml:"http" json:"http"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// RedisConfig contains connection settings for the Redis store.
type RedisConfig struct {
	// URL is the Redis connection URL.
	// Format: redis://[user:password@]host:port[/db]
	URL string `yaml:"url" json:"url"`

	// PoolSize is the maximum number of connections in the pool.
	PoolSize int `yaml:"poolSize,omitempty" json:"poolSize,omitempty"`

	// ConnectTimeout is the timeout for establishing connections.
	ConnectTimeout Duration `yaml:"connectTimeout,omitempty" json:"connectTimeout,omitempty"`

	// ReadTimeout is the timeout for read operations.
	ReadTimeout Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`

	// WriteTimeout is the timeout for write operations.
	WriteTimeout Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`

	// KeyPrefix is prepended to every key the store touches.
	KeyPrefix string `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`
}

// FetchConfig configures the TTL memoized fetch cache.
type FetchConfig struct {
	// TTL is how long a fetched page stays cached.
	TTL Duration `yaml:"ttl,omitempty" json:"ttl,omitempty"`

	// CountMode is "fetch" (count cache misses) or "access" (count every call).
	CountMode string `yaml:"countMode,omitempty" json:"countMode,omitempty"`

	// SingleFlight collapses concurrent misses for the same resource.
	SingleFlight bool `yaml:"singleFlight,omitempty" json:"singleFlight,omitempty"`
}

// HTTPConfig configures the HTTP page fetcher.
type HTTPConfig struct {
	Timeout     Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	UserAgent   string   `yaml:"userAgent,omitempty" json:"userAgent,omitempty"`
	MaxBodySize int      `yaml:"maxBodySize,omitempty" json:"maxBodySize,omitempty"`

	// RateLimit is the maximum number of outgoing requests per second.
	// Zero disables rate limiting.
	RateLimit float64 `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`

	Retry          RetryConfig          `yaml:"retry" json:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker" json:"circuitBreaker"`
}

// RetryConfig contains retry settings for the HTTP fetcher.
type RetryConfig struct {
	MaxRetries     int      `yaml:"maxRetries,omitempty" json:"maxRetries,omitempty"`
	InitialBackoff Duration `yaml:"initialBackoff,omitempty" json:"initialBackoff,omitempty"`
	MaxBackoff     Duration `yaml:"maxBackoff,omitempty" json:"maxBackoff,omitempty"`
}

// CircuitBreakerConfig contains circuit breaker settings for the HTTP fetcher.
type CircuitBreakerConfig struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Threshold int      `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Redis: RedisConfig{
			URL:            DefaultRedisURL,
			PoolSize:       DefaultRedisPoolSize,
			ConnectTimeout: Duration(DefaultRedisConnectTimeout),
			ReadTimeout:    Duration(DefaultRedisReadTimeout),
			WriteTimeout:   Duration(DefaultRedisWriteTimeout),
		},
		Fetch: FetchConfig{
			TTL:       Duration(DefaultFetchTTL),
			CountMode: CountModeFetch,
		},
		HTTP: HTTPConfig{
			Timeout:     Duration(DefaultHTTPTimeout),
			MaxBodySize: DefaultHTTPMaxBodySize,
			Retry: RetryConfig{
				MaxRetries:     DefaultRetryMaxRetries,
				InitialBackoff: Duration(DefaultRetryInitialBackoff),
				MaxBackoff:     Duration(DefaultRetryMaxBackoff),
			},
			CircuitBreaker: CircuitBreakerConfig{
				Threshold: DefaultBreakerThreshold,
				Timeout:   Duration(DefaultBreakerTimeout),
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			ServiceName:  DefaultServiceName,
			SamplingRate: 1.0,
		},
	}
}
