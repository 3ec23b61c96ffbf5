// Package metrics exposes Prometheus collectors for the snapshot caches and
// the HTTP query surface.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/asaidimu/go-ninja/core/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one process, registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	// CacheEvents counts cache lifecycle events by cache and event type.
	CacheEvents *prometheus.CounterVec
	// RefreshDuration is the latency of snapshot refreshes.
	RefreshDuration *prometheus.HistogramVec
	// SnapshotRecords is the record count of the last successful refresh per key.
	SnapshotRecords *prometheus.GaugeVec
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal *prometheus.CounterVec
	// RequestDuration is the latency of HTTP requests.
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CacheEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ninja_cache_events_total",
				Help: "Total number of snapshot cache events",
			},
			[]string{"cache", "event"},
		),
		RefreshDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ninja_cache_refresh_duration_seconds",
				Help:    "Snapshot refresh latency in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"cache", "result"},
		),
		SnapshotRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ninja_snapshot_records",
				Help: "Number of records in the last refreshed snapshot",
			},
			[]string{"cache", "key"},
		),
		RequestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ninja_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ninja_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Observe subscribes the cache collectors to every event on bus and returns
// the subscription ids.
func (m *Metrics) Observe(bus *cache.EventBus) []string {
	return bus.SubscribeAll("metrics", func(_ context.Context, e cache.Event) error {
		m.record(e)
		return nil
	})
}

func (m *Metrics) record(e cache.Event) {
	m.CacheEvents.WithLabelValues(e.Cache, string(e.Type)).Inc()

	switch e.Type {
	case cache.EventRefreshSuccess, cache.EventRefreshFailed:
		result := "success"
		if e.Type == cache.EventRefreshFailed {
			result = "failed"
		}
		if e.Duration != nil {
			m.RefreshDuration.WithLabelValues(e.Cache, result).Observe(float64(*e.Duration) / 1000)
		}
		if e.Records != nil {
			m.SnapshotRecords.WithLabelValues(e.Cache, e.Key).Set(float64(*e.Records))
		}
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler for /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
