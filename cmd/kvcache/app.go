package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vyrodovalexey/kvcache/internal/cache"
	"github.com/vyrodovalexey/kvcache/internal/config"
	"github.com/vyrodovalexey/kvcache/internal/fetchcache"
	"github.com/vyrodovalexey/kvcache/internal/observability"
	"github.com/vyrodovalexey/kvcache/internal/store"
	"github.com/vyrodovalexey/kvcache/internal/value"
	"github.com/vyrodovalexey/kvcache/internal/web"
)

const shutdownTimeout = 5 * time.Second

// application holds all application components.
type application struct {
	store  *store.RedisStore
	cache  *cache.Cache
	pages  *fetchcache.PageCache
	tracer *observability.Tracer
	logger observability.Logger
}

// newApplication connects to the store and wires the components.
func newApplication(cfg *config.Config, logger observability.Logger) (*application, error) {
	observability.GetMetrics().Init()

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		Enabled:      cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	kv, err := store.NewRedisStore(cfg.Redis, store.WithLogger(logger))
	if err != nil {
		_ = tracer.Shutdown(context.Background())
		return nil, err
	}

	pageOpts, err := pageCacheOptions(cfg.Fetch, logger)
	if err != nil {
		_ = kv.Close()
		_ = tracer.Shutdown(context.Background())
		return nil, err
	}

	fetcher := web.NewFetcher(cfg.HTTP, web.WithLogger(logger))

	return &application{
		store:  kv,
		cache:  cache.New(kv, cache.WithLogger(logger)),
		pages:  fetchcache.New(kv, fetcher, pageOpts...),
		tracer: tracer,
		logger: logger,
	}, nil
}

// pageCacheOptions maps the fetch configuration to fetch cache options.
func pageCacheOptions(cfg config.FetchConfig, logger observability.Logger) ([]fetchcache.Option, error) {
	mode, err := fetchcache.ParseCountMode(cfg.CountMode)
	if err != nil {
		return nil, err
	}

	opts := []fetchcache.Option{
		fetchcache.WithTTL(cfg.TTL.Duration()),
		fetchcache.WithCountMode(mode),
		fetchcache.WithLogger(logger),
	}
	if cfg.SingleFlight {
		opts = append(opts, fetchcache.WithSingleFlight())
	}
	return opts, nil
}

// close releases the store connection and flushes traces.
func (a *application) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return errors.Join(a.store.Close(), a.tracer.Shutdown(ctx))
}

// run executes the demo: store one value of each kind, print the keys and
// the Store call history, then fetch fetchURL twice if one is given.
func run(ctx context.Context, cfg *config.Config, fetchURL string, out io.Writer, logger observability.Logger) error {
	app, err := newApplication(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.close(); err != nil {
			logger.Warn("shutdown incomplete", observability.Error(err))
		}
	}()

	if cfg.Reset {
		if err := app.cache.Reset(ctx); err != nil {
			return err
		}
	}

	if err := app.storeSamples(ctx, out); err != nil {
		return err
	}
	if fetchURL != "" {
		return app.fetchTwice(ctx, out, fetchURL)
	}
	return nil
}

func (a *application) storeSamples(ctx context.Context, out io.Writer) error {
	samples := []value.Value{
		value.Text("Hello Redis!"),
		value.Int(123),
		value.Float(45.67),
		value.Bytes([]byte("bytes data")),
	}

	keys := make([]string, 0, len(samples))
	for _, v := range samples {
		key, err := a.cache.Store(ctx, v)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}

	fmt.Fprintln(out, "Stored keys:")
	for _, key := range keys {
		fmt.Fprintln(out, key)
	}

	replay, err := a.cache.Replay(ctx, cache.OpStore)
	if err != nil {
		return err
	}
	_, err = replay.WriteTo(out)
	return err
}

func (a *application) fetchTwice(ctx context.Context, out io.Writer, url string) error {
	for i := range 2 {
		body, err := a.pages.Fetch(ctx, url)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "fetch %d: %d bytes\n", i+1, len(body))
		if i == 0 {
			if title := web.PageTitle(body); title != "" {
				fmt.Fprintf(out, "title: %s\n", title)
			}
		}
	}

	n, err := a.pages.AccessCount(ctx, url)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s fetched %d times\n", url, n)
	return nil
}
