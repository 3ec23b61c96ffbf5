package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/asaidimu/go-ninja/config"
	"github.com/asaidimu/go-ninja/core/cache"
	"github.com/asaidimu/go-ninja/metrics"
	"github.com/asaidimu/go-ninja/ninja"
	"github.com/asaidimu/go-ninja/redis"
	"github.com/asaidimu/go-ninja/server"
	"github.com/asaidimu/go-ninja/sqlite"
	"go.uber.org/zap"
)

func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath, o.envFiles...)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}

// app is the wired process: store, caches, upstream client and collections.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	bus         *cache.EventBus
	metrics     *metrics.Metrics
	store       cache.Store
	collections *ninja.Collections
	closers     []func() error
}

func newApp(ctx context.Context, opts *options) (*app, error) {
	cfg, err := opts.load()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	codec, err := cache.CodecByName(cfg.Cache.Codec)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := openStore(ctx, cfg, codec, logger)
	if err != nil {
		return nil, err
	}

	bus, err := cache.NewEventBus()
	if err != nil {
		closeStore()
		return nil, err
	}
	m := metrics.New()
	m.Observe(bus)

	cacheOpts := []cache.Option{
		cache.WithTTL(cfg.Cache.TTL.Std()),
		cache.WithCodec(codec),
		cache.WithEvents(bus),
	}
	if cfg.Cache.SingleFlight {
		cacheOpts = append(cacheOpts, cache.WithSingleFlight())
	}

	client := ninja.NewClient(ninja.ClientConfig{
		BaseURL:   cfg.Upstream.BaseURL,
		Timeout:   cfg.Upstream.Timeout.Std(),
		Rate:      cfg.Upstream.Rate,
		Burst:     cfg.Upstream.Burst,
		UserAgent: cfg.Upstream.UserAgent,
	}, logger)

	collections := ninja.NewCollections(client, ninja.Options{
		Store:          store,
		CacheOptions:   cacheOpts,
		DefaultLeague:  cfg.League,
		Leagues:        cfg.AllowedLeagues(),
		ItemFetchLimit: cfg.Upstream.ItemFetchLimit,
		Logger:         logger,
	})

	return &app{
		cfg:         cfg,
		logger:      logger,
		bus:         bus,
		metrics:     m,
		store:       store,
		collections: collections,
		closers:     []func() error{closeStore},
	}, nil
}

// openStore selects the snapshot store named by cache.store. The returned
// func releases it.
func openStore(ctx context.Context, cfg *config.Config, codec cache.Codec, logger *zap.Logger) (cache.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Cache.Store {
	case config.StoreMemory:
		return cache.NewMemoryStore(), noop, nil
	case config.StoreFile:
		s, err := cache.NewFileStore(cfg.Cache.Path, codec.Name())
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case config.StoreSQLite:
		s, err := sqlite.Open(ctx, cfg.Cache.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StoreRedis:
		s, err := redis.Dial(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			// Stale envelopes stay readable for one more TTL.
			Expiry: 2 * cfg.Cache.TTL.Std(),
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown cache store %q", cfg.Cache.Store)
}

// bindings exposes the collections to the query surfaces.
func (a *app) bindings() []server.Collection {
	return []server.Collection{
		server.Bind(a.collections.Currency),
		server.Bind(a.collections.Item),
	}
}

// warmLeagues returns the configured warm-up leagues, defaulting to the
// default league.
func (a *app) warmLeagues() []string {
	if len(a.cfg.Warm.Leagues) > 0 {
		return a.cfg.Warm.Leagues
	}
	return []string{a.cfg.League}
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
