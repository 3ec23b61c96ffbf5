// Package cache implements the time-bounded snapshot cache. A snapshot is
// stored under a string key together with the time its refresh started; a
// lookup returns the stored payload while it is younger than the TTL and
// otherwise refreshes it through a caller-supplied function.
package cache

import (
	"context"
	"reflect"
	"time"

	"github.com/asaidimu/go-ninja/core"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the freshness threshold used when none is configured.
const DefaultTTL = time.Hour

// RefreshFunc produces a new payload for a key.
type RefreshFunc[T any] func(ctx context.Context) (T, error)

type options struct {
	ttl          time.Duration
	codec        Codec
	logger       *zap.Logger
	events       *EventBus
	now          func() time.Time
	singleFlight bool
}

// Option configures a Cache.
type Option func(*options)

// WithTTL sets the threshold applied when GetOrRefresh is called with ttl <= 0.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithCodec sets the envelope codec. JSONCodec is used by default.
func WithCodec(codec Codec) Option {
	return func(o *options) {
		if codec != nil {
			o.codec = codec
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEvents publishes lookup and refresh events on bus.
func WithEvents(bus *EventBus) Option {
	return func(o *options) { o.events = bus }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSingleFlight coalesces concurrent refreshes of the same key into one
// call of the refresh function. Without it, callers that observe the same
// stale entry each refresh independently and the last write wins.
func WithSingleFlight() Option {
	return func(o *options) { o.singleFlight = true }
}

// Cache is a snapshot cache for payloads of type T.
type Cache[T any] struct {
	name   string
	store  Store
	codec  Codec
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
	events *EventBus
	group  *singleflight.Group
}

// New creates a cache over store. name identifies the cache in logs and events.
func New[T any](name string, store Store, opts ...Option) *Cache[T] {
	o := options{
		ttl:    DefaultTTL,
		codec:  JSONCodec{},
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[T]{
		name:   name,
		store:  store,
		codec:  o.codec,
		ttl:    o.ttl,
		now:    o.now,
		logger: o.logger.With(zap.String("cache", name)),
		events: o.events,
	}
	if o.singleFlight {
		c.group = &singleflight.Group{}
	}
	return c
}

// TTL returns the default freshness threshold.
func (c *Cache[T]) TTL() time.Duration { return c.ttl }

// GetOrRefresh returns the payload stored under key if it was fetched less than
// ttl ago. Otherwise it calls refresh, stores the result stamped with the time
// the refresh started, and returns it. A ttl <= 0 selects the cache default.
//
// A refresh error is returned unchanged and nothing is stored, even when a
// stale payload exists. Store and codec failures are wrapped in core.ErrCacheIO.
func (c *Cache[T]) GetOrRefresh(ctx context.Context, key string, ttl time.Duration, refresh RefreshFunc[T]) (T, error) {
	var zero T
	if ttl <= 0 {
		ttl = c.ttl
	}

	raw, ok, err := c.store.Load(ctx, key)
	if err != nil {
		return zero, core.CacheError("load", key, err)
	}

	if !ok {
		c.logger.Debug("Snapshot missing", zap.String("key", key))
		c.events.emit(createEvent(EventMiss, c.name, key, time.Time{}, nil))
		return c.refresh(ctx, key, refresh)
	}

	var env Envelope[T]
	if err := c.codec.Unmarshal(raw, &env); err != nil {
		return zero, core.CacheError("decode", key, err)
	}

	age := c.now().Sub(time.Unix(env.FetchTime, 0))
	ageSeconds := int64(age / time.Second)
	if age < ttl {
		c.logger.Debug("Snapshot fresh", zap.String("key", key), zap.Duration("age", age))
		event := createEvent(EventHit, c.name, key, time.Time{}, nil)
		event.Age = &ageSeconds
		c.events.emit(event)
		return env.Data, nil
	}

	c.logger.Debug("Snapshot stale", zap.String("key", key), zap.Duration("age", age), zap.Duration("ttl", ttl))
	event := createEvent(EventStale, c.name, key, time.Time{}, nil)
	event.Age = &ageSeconds
	c.events.emit(event)
	return c.refresh(ctx, key, refresh)
}

func (c *Cache[T]) refresh(ctx context.Context, key string, refresh RefreshFunc[T]) (T, error) {
	if c.group == nil {
		return c.doRefresh(ctx, key, refresh)
	}
	v, err, shared := c.group.Do(key, func() (any, error) {
		return c.doRefresh(ctx, key, refresh)
	})
	if shared {
		c.logger.Debug("Joined in-flight refresh", zap.String("key", key))
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *Cache[T]) doRefresh(ctx context.Context, key string, refresh RefreshFunc[T]) (T, error) {
	var zero T

	// The stored timestamp is the time the refresh started, not finished.
	fetchTime := c.now()
	startTime := time.Now()
	c.events.emit(createEvent(EventRefreshStart, c.name, key, startTime, nil))

	fail := func(err error) (T, error) {
		c.logger.Error("Snapshot refresh failed", zap.String("key", key), zap.Error(err))
		c.events.emit(createEvent(EventRefreshFailed, c.name, key, startTime, err))
		return zero, err
	}

	data, err := refresh(ctx)
	if err != nil {
		return fail(err)
	}

	raw, err := c.codec.Marshal(Envelope[T]{FetchTime: fetchTime.Unix(), Data: data})
	if err != nil {
		return fail(core.CacheError("encode", key, err))
	}
	if err := c.store.Save(ctx, key, raw); err != nil {
		return fail(core.CacheError("save", key, err))
	}

	event := createEvent(EventRefreshSuccess, c.name, key, startTime, nil)
	if n, ok := length(data); ok {
		event.Records = &n
	}
	c.events.emit(event)
	c.logger.Info("Snapshot refreshed",
		zap.String("key", key),
		zap.Int("bytes", len(raw)),
		zap.Duration("elapsed", time.Since(startTime)),
	)
	return data, nil
}

func length(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}
