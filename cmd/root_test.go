package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/asaidimu/go-ninja/config"
	"github.com/asaidimu/go-ninja/core"
	"github.com/asaidimu/go-ninja/core/cache"
	"github.com/asaidimu/go-ninja/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const currencyPage = `{
	"lines": [
		{"currencyTypeName": "Divine Orb", "chaosEquivalent": 150, "detailsId": "divine-orb"},
		{"currencyTypeName": "Mirror of Kalandra", "chaosEquivalent": 30000, "detailsId": "mirror-of-kalandra"},
		{"currencyTypeName": "Orb of Alteration", "chaosEquivalent": 0.1, "detailsId": "orb-of-alteration"}
	],
	"currencyDetails": [
		{"id": 1, "name": "Divine Orb", "tradeId": "divine"},
		{"id": 2, "name": "Mirror of Kalandra", "tradeId": "mirror"},
		{"id": 3, "name": "Orb of Alteration", "tradeId": "alt"}
	]
}`

// newUpstream serves a small currency page and empty pages for every other
// partition, and points the configuration at it.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/data/currencyoverview" && r.URL.Query().Get("type") == "Currency":
			_, _ = w.Write([]byte(currencyPage))
		case r.URL.Path == "/api/data/currencyoverview":
			_, _ = w.Write([]byte(`{"lines": [], "currencyDetails": []}`))
		default:
			_, _ = w.Write([]byte(`{"lines": []}`))
		}
	}))
	t.Cleanup(srv.Close)
	t.Setenv("NINJA_UPSTREAM_BASE_URL", srv.URL)
	t.Setenv("NINJA_LOG_LEVEL", "error")
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "go-ninja dev (commit: none, built: unknown)\n", out)
}

func TestConfigCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("league: Settlers\n"), 0o644))
	t.Setenv("NINJA_REDIS_PASSWORD", "hunter2")

	out, err := execute(t, "config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "league: Settlers")
	assert.Contains(t, out, "ttl: 1h0m0s")
	assert.NotContains(t, out, "hunter2")
}

func TestQueryCmd(t *testing.T) {
	newUpstream(t)

	out, err := execute(t, "query", "currency", "--where", `{"chaos_value":{"_gt":100}}`, "--orderby", `[{"chaos_value":"desc"}]`)
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "Mirror of Kalandra", records[0]["name"])
	assert.Equal(t, float64(200), records[0]["divine_value"])
	assert.Equal(t, "Divine Orb", records[1]["name"])

	out, err = execute(t, "query", "currency", "--count")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = execute(t, "query", "item")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestQueryCmd_Errors(t *testing.T) {
	newUpstream(t)

	_, err := execute(t, "query", "currency", "--where", `{"price":{"_gt":1}}`)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = execute(t, "query", "gems")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: currency, item")

	_, err = execute(t, "query")
	assert.Error(t, err)

	_, err = execute(t, "query", "currency", "--log-level", "loud")
	assert.Error(t, err)

	_, err = execute(t, "query", "currency", "--league", "Made Up")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestWarmAndSnapshotsCmd(t *testing.T) {
	newUpstream(t)
	t.Setenv("NINJA_CACHE_STORE", "sqlite")
	t.Setenv("NINJA_CACHE_PATH", filepath.Join(t.TempDir(), "snapshots.db"))
	t.Setenv("NINJA_LEAGUES", "Standard,Hardcore")

	out, err := execute(t, "snapshots", "list")
	require.NoError(t, err)
	assert.Equal(t, "No snapshots.\n", out)

	out, err = execute(t, "warm", "Standard", "Hardcore")
	require.NoError(t, err)
	assert.Equal(t, "Warmed Standard.\nWarmed Hardcore.\n", out)

	out, err = execute(t, "snapshots", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "KEY"))
	assert.True(t, strings.HasPrefix(lines[1], "currency:Hardcore"))
	assert.True(t, strings.HasPrefix(lines[4], "item:Standard"))

	out, err = execute(t, "snapshots", "drop", "currency", "Standard")
	require.NoError(t, err)
	assert.Equal(t, "Dropped currency:Standard.\n", out)

	_, err = execute(t, "snapshots", "drop", "currency", "Standard")
	assert.Error(t, err)

	_, err = execute(t, "warm", "Made Up")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestSnapshotsCmd_RequiresSQLite(t *testing.T) {
	newUpstream(t)
	_, err := execute(t, "snapshots", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires cache.store sqlite")
}

func TestOpenStore(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	testCases := []struct {
		name  string
		cache config.CacheConfig
	}{
		{name: "memory", cache: config.CacheConfig{Store: config.StoreMemory}},
		{name: "file", cache: config.CacheConfig{Store: config.StoreFile, Path: filepath.Join(dir, "files")}},
		{name: "sqlite", cache: config.CacheConfig{Store: config.StoreSQLite, Path: filepath.Join(dir, "s.db")}},
		{name: "redis", cache: config.CacheConfig{Store: config.StoreRedis}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			cfg := config.Default()
			cfg.Cache.Store = tc.cache.Store
			cfg.Cache.Path = tc.cache.Path
			cfg.Redis.Addr = mr.Addr()

			store, closeStore, err := openStore(ctx, cfg, cache.JSONCodec{}, zap.NewNop())
			require.NoError(t, err)
			defer closeStore()

			require.NoError(t, store.Save(ctx, "currency:Standard", []byte(`{"fetch_time":1}`)))
			data, ok, err := store.Load(ctx, "currency:Standard")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.JSONEq(t, `{"fetch_time":1}`, string(data))
		})
	}

	cfg := config.Default()
	cfg.Cache.Store = "s3"
	_, _, err := openStore(context.Background(), cfg, cache.JSONCodec{}, zap.NewNop())
	assert.Error(t, err)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	srv := server.New(server.Config{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- run(ctx, srv, zap.NewNop()) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
