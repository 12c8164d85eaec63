package repositories

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepository(t *testing.T) *RunHistoryRepository {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunHistoryRepository(db, log)
}

func TestTranscriptRoundTrip(t *testing.T) {
	repo := setupRepository(t)
	base := time.Now().UTC()

	// Stored out of order on purpose; listing must come back chronological.
	records := []TranscriptRecord{
		{ID: uuid.New(), Source: "editor", Content: "Looks good.", At: base.Add(2 * time.Second)},
		{ID: uuid.New(), Source: "User", Content: "Write a story.", At: base},
		{ID: uuid.New(), Source: "writer", Content: "A draft.", At: base.Add(time.Second)},
	}
	for _, record := range records {
		require.NoError(t, repo.StoreTranscript(record))
	}

	listed, err := repo.ListTranscript()
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "User", listed[0].Source)
	assert.Equal(t, "writer", listed[1].Source)
	assert.Equal(t, "editor", listed[2].Source)
	assert.Equal(t, "Write a story.", listed[0].Content)
}

func TestStateHistoryRoundTrip(t *testing.T) {
	repo := setupRepository(t)

	require.NoError(t, repo.AppendState(map[string]any{"revision": 1}))
	require.NoError(t, repo.AppendState(map[string]any{"revision": 2}))

	entries, err := repo.ListStates()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, float64(1), entries[0]["revision"])
	assert.Equal(t, float64(2), entries[1]["revision"])
}

func TestEmptyRepository(t *testing.T) {
	repo := setupRepository(t)

	transcript, err := repo.ListTranscript()
	require.NoError(t, err)
	assert.Empty(t, transcript)

	states, err := repo.ListStates()
	require.NoError(t, err)
	assert.Empty(t, states)
}
