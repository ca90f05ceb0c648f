package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmq/flowmq/codec"
)

func openTestPebbleStore(t *testing.T) *PebbleStore {
	t.Helper()
	store, err := NewPebbleStore(PebbleStoreConfig{Path: filepath.Join(t.TempDir(), "sessions")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPebbleStore_SaveLoad(t *testing.T) {
	store := openTestPebbleStore(t)
	ctx := context.Background()

	expiry := uint32(30)
	s := New("client-a", codec.V5, false, 60, &codec.ConnectProperties{SessionExpiryInterval: &expiry})
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Load(ctx, "client-a")
	require.NoError(t, err)
	assert.Equal(t, "client-a", got.ClientID)
	assert.Equal(t, codec.V5, got.Dialect)
	require.NotNil(t, got.Properties.SessionExpiryInterval)
	assert.Equal(t, uint32(30), *got.Properties.SessionExpiryInterval)
}

func TestPebbleStore_LoadNotFound(t *testing.T) {
	store := openTestPebbleStore(t)
	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPebbleStore_DeleteAndExists(t *testing.T) {
	store := openTestPebbleStore(t)
	ctx := context.Background()
	s := New("client-b", codec.V3, true, 30, nil)
	require.NoError(t, store.Save(ctx, s))

	exists, err := store.Exists(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, "client-b"))
	exists, err = store.Exists(ctx, "client-b")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPebbleStore_List(t *testing.T) {
	store := openTestPebbleStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, New("c1", codec.V3, true, 0, nil)))
	require.NoError(t, store.Save(ctx, New("c2", codec.V3, true, 0, nil)))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, ids)
}

func TestPebbleStore_ClosedRejectsOps(t *testing.T) {
	store := openTestPebbleStore(t)
	require.NoError(t, store.Close())

	_, err := store.Load(context.Background(), "x")
	assert.ErrorIs(t, err, ErrStoreClosed)
}
