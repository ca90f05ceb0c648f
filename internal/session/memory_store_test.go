package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmq/flowmq/codec"
)

func newTestSession(clientID string) *Session {
	return New(clientID, codec.V5, true, 60, &codec.ConnectProperties{})
}

func TestMemoryStore_SaveLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	s := newTestSession("client1")
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Load(ctx, "client1")
	require.NoError(t, err)
	assert.Equal(t, "client1", got.ClientID)
	assert.Equal(t, codec.V5, got.Dialect)
}

func TestMemoryStore_LoadNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_DeleteAndExists(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newTestSession("client1")))

	ok, err := store.Exists(ctx, "client1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "client1"))

	ok, err = store.Exists(ctx, "client1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_List(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newTestSession("a")))
	require.NoError(t, store.Save(ctx, newTestSession("b")))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestMemoryStore_ClosedRejectsOps(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	ctx := context.Background()
	assert.ErrorIs(t, store.Save(ctx, newTestSession("x")), ErrStoreClosed)
	_, err := store.Load(ctx, "x")
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestSession_IsExpired(t *testing.T) {
	s := New("client1", codec.V5, false, 60, nil)
	assert.False(t, s.IsExpired())

	s.ExpiryInterval = 0
	s.CleanStart = true
	s.SetDisconnected()
	assert.True(t, s.IsExpired())
}
