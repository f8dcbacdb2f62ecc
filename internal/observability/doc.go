// Package observability provides logging, metrics, and tracing for the
// key-value cache facade.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "debug", Format: "console"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer func() { _ = logger.Sync() }()
//
//	logger.Info("value stored", observability.String("key", key))
//
// Components take a Logger through functional options and fall back to
// NopLogger when none is supplied.
//
// # Metrics
//
// GetMetrics returns promauto-registered collectors for store commands,
// instrumented calls, and the fetch cache.
//
// # Tracing
//
// NewTracer installs an OpenTelemetry provider with an OTLP gRPC exporter.
// The store emits one client span per command through the global provider.
package observability
