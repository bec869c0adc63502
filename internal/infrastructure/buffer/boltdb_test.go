package buffer

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "buffer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEnqueuePeekOrdersByPriority(t *testing.T) {
	store := openStore(t)
	base := time.Now()

	require.NoError(t, store.Enqueue(Item{ID: "late", Entity: EntityPost, Priority: 4, Timestamp: base}))
	require.NoError(t, store.Enqueue(Item{ID: "urgent", Entity: EntityDonation, Priority: 1, Timestamp: base.Add(time.Second)}))
	require.NoError(t, store.Enqueue(Item{ID: "early", Entity: EntityPost, Priority: 4, Timestamp: base.Add(-time.Second)}))
	require.NoError(t, store.Enqueue(Item{Entity: EntityProfile, Priority: 99}))

	items, err := store.Peek(10)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "urgent", items[0].ID)
	assert.Equal(t, defaultPriority, items[1].Priority)
	assert.NotEmpty(t, items[1].ID)
	assert.Equal(t, "early", items[2].ID)
	assert.Equal(t, "late", items[3].ID)

	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 4, size)

	limited, err := store.Peek(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestAckRemovesItem(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Enqueue(Item{ID: "a", Entity: EntityPost}))

	items, err := store.Peek(1)
	require.NoError(t, err)
	require.NoError(t, store.Ack(items[0]))

	size, err := store.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestRetryThenDeadLetter(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Enqueue(Item{ID: "a", Entity: EntityDonation}))

	items, err := store.Peek(1)
	require.NoError(t, err)

	dead, err := store.Retry(items[0], errors.New("db down"), 2)
	require.NoError(t, err)
	assert.False(t, dead)

	items, err = store.Peek(1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Retries)
	assert.Equal(t, "db down", items[0].LastError)

	dead, err = store.Retry(items[0], errors.New("still down"), 2)
	require.NoError(t, err)
	assert.True(t, dead)

	size, err := store.Size()
	require.NoError(t, err)
	assert.Zero(t, size)

	letters, err := store.DeadLetters(0)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "a", letters[0].ID)
	assert.Equal(t, 2, letters[0].Retries)
}

func TestCleanupDropsOldDeadLetters(t *testing.T) {
	store := openStore(t)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Enqueue(Item{ID: id, Entity: EntityPost}))
	}
	items, err := store.Peek(0)
	require.NoError(t, err)
	for _, item := range items {
		_, err := store.Retry(item, nil, 1)
		require.NoError(t, err)
	}

	removed, err := store.Cleanup(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = store.Cleanup(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	letters, err := store.DeadLetters(0)
	require.NoError(t, err)
	assert.Empty(t, letters)
}

func TestClosedStore(t *testing.T) {
	var store *Store
	assert.Error(t, store.Enqueue(Item{}))
	_, err := store.Size()
	assert.Error(t, err)
	assert.NoError(t, store.Close())
}

func TestRetryKeepsQueuePosition(t *testing.T) {
	store := openStore(t)
	base := time.Now()
	require.NoError(t, store.Enqueue(Item{ID: "first", Entity: EntityProfile, Subject: "u1", Timestamp: base}))
	require.NoError(t, store.Enqueue(Item{ID: "second", Entity: EntityProfile, Subject: "u1", Timestamp: base}))

	items, err := store.Peek(1)
	require.NoError(t, err)
	require.Equal(t, "first", items[0].ID)
	_, err = store.Retry(items[0], errors.New("db down"), 3)
	require.NoError(t, err)

	items, err = store.Peek(0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].ID)
	assert.Equal(t, 1, items[0].Retries)
	assert.Equal(t, "second", items[1].ID)
}

func TestPendingMatchesSubject(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Enqueue(Item{ID: "a", Entity: EntityProfile, Subject: "u1"}))

	found, err := store.Pending(EntityProfile + "/u1")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = store.Pending(EntityPost + "/u1")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = store.Pending("")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPeekQuarantinesUndecodableEntries(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingBucket).Put([]byte("0_garbage"), []byte("{not json"))
	}))
	require.NoError(t, store.Enqueue(Item{ID: "ok", Entity: EntityPost}))

	items, err := store.Peek(0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ok", items[0].ID)

	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	require.NoError(t, store.db.View(func(tx *bolt.Tx) error {
		assert.Equal(t, []byte("{not json"), tx.Bucket(deadBucket).Get([]byte("0_garbage")))
		return nil
	}))
}
