package state

import (
	"sync"
	"testing"

	agenterrors "agent-lab/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func articleSchema() Schema {
	return Schema{
		"title":    "An example title",
		"status":   "drafting",
		"revision": 1,
	}
}

func TestLocalStoreGetSet(t *testing.T) {
	store := NewLocalStore(articleSchema())

	t.Run("Unknown key before any write", func(t *testing.T) {
		_, err := store.Get("title")
		require.ErrorIs(t, err, agenterrors.ErrUnknownKey)
	})

	t.Run("Set then Get", func(t *testing.T) {
		require.NoError(t, store.Set("title", "Container schedulers"))
		value, err := store.Get("title")
		require.NoError(t, err)
		assert.Equal(t, "Container schedulers", value)
	})

	t.Run("Set outside the schema is rejected", func(t *testing.T) {
		err := store.Set("author", "nobody")
		require.ErrorIs(t, err, agenterrors.ErrSchemaViolation)
	})
}

func TestLocalStoreUpdateIsAtomic(t *testing.T) {
	store := NewLocalStore(articleSchema())
	require.NoError(t, store.Set("status", "drafting"))

	err := store.Update(map[string]any{
		"status": "review",
		"author": "nobody",
	})
	require.ErrorIs(t, err, agenterrors.ErrSchemaViolation)

	// The valid key of the rejected update must not have been applied.
	value, err := store.Get("status")
	require.NoError(t, err)
	assert.Equal(t, "drafting", value)
}

func TestLocalStoreUpdateMerges(t *testing.T) {
	store := NewLocalStore(articleSchema())

	require.NoError(t, store.Update(map[string]any{"title": "Draft", "revision": 1}))
	require.NoError(t, store.Update(map[string]any{"revision": 2}))

	snapshot := store.Snapshot()
	assert.Equal(t, "Draft", snapshot["title"])
	assert.Equal(t, 2, snapshot["revision"])
	_, ok := snapshot["status"]
	assert.False(t, ok)
}

func TestLocalStoreIdempotentReplay(t *testing.T) {
	store := NewLocalStore(articleSchema())
	update := map[string]any{"title": "Draft", "revision": 3}

	require.NoError(t, store.Update(update))
	before := store.Snapshot()
	require.NoError(t, store.Update(update))

	assert.Equal(t, before, store.Snapshot())
}

func TestLocalStoreConcurrentDisjointUpdates(t *testing.T) {
	store := NewLocalStore(articleSchema())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			assert.NoError(t, store.Update(map[string]any{"revision": i}))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			assert.NoError(t, store.Update(map[string]any{"status": "review"}))
		}
	}()
	wg.Wait()

	snapshot := store.Snapshot()
	assert.Equal(t, 99, snapshot["revision"])
	assert.Equal(t, "review", snapshot["status"])
}

func TestSnapshotIsACopy(t *testing.T) {
	store := NewLocalStore(articleSchema())
	require.NoError(t, store.Set("title", "original"))

	snapshot := store.Snapshot()
	snapshot["title"] = "mutated"

	value, err := store.Get("title")
	require.NoError(t, err)
	assert.Equal(t, "original", value)
}
