package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/asaidimu/go-ninja/core/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value gathers the registry and returns the counter or gauge value of the
// series of family name carrying exactly labels.
func value(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, metric := range mf.GetMetric() {
			if len(metric.GetLabel()) != len(labels) {
				continue
			}
			for _, lp := range metric.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue series
				}
			}
			if metric.GetCounter() != nil {
				return metric.GetCounter().GetValue()
			}
			return metric.GetGauge().GetValue()
		}
	}
	return 0
}

func seriesCount(t *testing.T, m *Metrics, name string) int {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return len(mf.GetMetric())
		}
	}
	return 0
}

func TestMetrics_ObserveCacheEvents(t *testing.T) {
	ctx := context.Background()
	bus, err := cache.NewEventBus()
	require.NoError(t, err)

	m := New()
	ids := m.Observe(bus)
	assert.Len(t, ids, 6)

	c := cache.New[[]string]("currency", cache.NewMemoryStore(), cache.WithEvents(bus))
	refresh := func(context.Context) ([]string, error) { return []string{"a", "b", "c"}, nil }

	_, err = c.GetOrRefresh(ctx, "currency:Standard", time.Hour, refresh)
	require.NoError(t, err)
	_, err = c.GetOrRefresh(ctx, "currency:Standard", time.Hour, refresh)
	require.NoError(t, err)
	_, err = c.GetOrRefresh(ctx, "currency:Hardcore", time.Hour, func(context.Context) ([]string, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	expected := map[cache.EventType]float64{
		cache.EventMiss:           2,
		cache.EventHit:            1,
		cache.EventRefreshStart:   2,
		cache.EventRefreshSuccess: 1,
		cache.EventRefreshFailed:  1,
	}
	require.Eventually(t, func() bool {
		for event, n := range expected {
			if value(t, m, "ninja_cache_events_total", map[string]string{"cache": "currency", "event": string(event)}) != n {
				return false
			}
		}
		return value(t, m, "ninja_snapshot_records", map[string]string{"cache": "currency", "key": "currency:Standard"}) == 3
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, seriesCount(t, m, "ninja_cache_refresh_duration_seconds"))
}

func TestMetrics_ObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodPost, "/v1/{collection}", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/v1/{collection}", http.StatusOK, 30*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/v1/{collection}", http.StatusBadRequest, time.Millisecond)

	labels := map[string]string{"method": "POST", "route": "/v1/{collection}", "status": "200"}
	assert.Equal(t, float64(2), value(t, m, "ninja_http_requests_total", labels))
	labels["status"] = "400"
	assert.Equal(t, float64(1), value(t, m, "ninja_http_requests_total", labels))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ninja_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
