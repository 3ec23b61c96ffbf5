package ninja

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asaidimu/go-ninja/core/cache"
	"github.com/asaidimu/go-ninja/core/view"
	"go.uber.org/zap"
)

// Options configures the collections built by NewCollections.
type Options struct {
	// Store holds the snapshot envelopes of both collections.
	Store cache.Store
	// CacheOptions are applied to both caches.
	CacheOptions []cache.Option
	// TTL overrides the cache default when positive.
	TTL           time.Duration
	DefaultLeague string
	// Leagues lists the leagues that may be queried or warmed. Empty allows any.
	Leagues []string
	// ItemFetchLimit caps concurrent item partition fetches.
	ItemFetchLimit int
	Logger         *zap.Logger
}

// Collections holds the queryable views served by the process.
type Collections struct {
	Currency *view.View[Currency]
	Item     *view.View[Item]
}

// NewCollections wires both views to the client and a shared store.
func NewCollections(client *Client, opts Options) *Collections {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := opts.Store
	if store == nil {
		store = cache.NewMemoryStore()
	}
	cacheOpts := append([]cache.Option{cache.WithLogger(logger)}, opts.CacheOptions...)

	return &Collections{
		Currency: &view.View[Currency]{
			Model:         CurrencyModel,
			Cache:         cache.New[[]Currency](CurrencyCollection, store, cacheOpts...),
			Source:        CurrencySource(client, logger),
			DefaultLeague: opts.DefaultLeague,
			Leagues:       opts.Leagues,
			TTL:           opts.TTL,
			Logger:        logger,
		},
		Item: &view.View[Item]{
			Model:         ItemModel,
			Cache:         cache.New[[]Item](ItemCollection, store, cacheOpts...),
			Source:        ItemSource(client, opts.ItemFetchLimit, logger),
			DefaultLeague: opts.DefaultLeague,
			Leagues:       opts.Leagues,
			TTL:           opts.TTL,
			Logger:        logger,
		},
	}
}

// Warm refreshes, when stale, the snapshots of both collections for a league.
func (c *Collections) Warm(ctx context.Context, league string) error {
	if _, err := c.Currency.Snapshot(ctx, league); err != nil {
		return err
	}
	_, err := c.Item.Snapshot(ctx, league)
	return err
}

// WarmJob refreshes the stale snapshots of a fixed set of leagues. It is run
// by the scheduler.
type WarmJob struct {
	Collections *Collections
	Leagues     []string
	// Timeout bounds the warm-up of one league. Zero means no bound.
	Timeout time.Duration
	Logger  *zap.Logger
}

func (j *WarmJob) Name() string { return "warm" }

// Run warms every league in turn. A failing league does not stop the others;
// all failures are returned joined.
func (j *WarmJob) Run() error {
	logger := j.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var errs []error
	for _, league := range j.Leagues {
		ctx := context.Background()
		cancel := func() {}
		if j.Timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		}
		start := time.Now()
		err := j.Collections.Warm(ctx, league)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("league %s: %w", league, err))
			continue
		}
		logger.Info("League warmed", zap.String("league", league), zap.Duration("elapsed", time.Since(start)))
	}
	return errors.Join(errs...)
}
