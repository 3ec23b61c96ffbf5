package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/asaidimu/go-ninja/core/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "snapshots.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_LoadSave(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	_, ok, err := s.Load(ctx, "currency:Standard")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, "currency:Standard", []byte("first")))
	data, ok, err := s.Load(ctx, "currency:Standard")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("first"), data)

	require.NoError(t, s.Save(ctx, "currency:Standard", []byte("second")))
	data, _, err = s.Load(ctx, "currency:Standard")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func TestStore_EntriesAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	s.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	require.NoError(t, s.Save(ctx, "item:Standard", []byte("abc")))
	require.NoError(t, s.Save(ctx, "currency:Standard", []byte("a")))

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "currency:Standard", entries[0].Key)
	assert.Equal(t, 1, entries[0].Bytes)
	assert.Equal(t, "item:Standard", entries[1].Key)
	assert.Equal(t, 3, entries[1].Bytes)
	assert.Equal(t, int64(1_700_000_000), entries[1].UpdatedAt.Unix())

	removed, err := s.Delete(ctx, "item:Standard")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete(ctx, "item:Standard")
	require.NoError(t, err)
	assert.False(t, removed)

	_, ok, err := s.Load(ctx, "item:Standard")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SharedConnection(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "shared.db"))
	require.NoError(t, err)
	defer db.Close()

	s, err := NewStore(ctx, db, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Close leaves a borrowed connection open.
	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, s.Save(ctx, "k", []byte("v")))
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshots.db")

	s, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "currency:Standard", []byte("persisted")))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, nil)
	require.NoError(t, err)
	defer s.Close()
	data, ok, err := s.Load(ctx, "currency:Standard")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("persisted"), data)
}

func TestStore_BacksCache(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	c := cache.New[[]string]("currency", s, cache.WithCodec(cache.MsgpackCodec{}))

	calls := 0
	refresh := func(context.Context) ([]string, error) {
		calls++
		return []string{"Chaos Orb", "Divine Orb"}, nil
	}

	got, err := c.GetOrRefresh(ctx, cache.Key("currency", "Standard"), time.Hour, refresh)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chaos Orb", "Divine Orb"}, got)

	got, err = c.GetOrRefresh(ctx, cache.Key("currency", "Standard"), time.Hour, refresh)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chaos Orb", "Divine Orb"}, got)
	assert.Equal(t, 1, calls)
}
