package state

import (
	"testing"

	agenterrors "agent-lab/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	extractor := NewExtractor(articleSchema())

	t.Run("Valid report with a subset of keys", func(t *testing.T) {
		update, err := extractor.Extract(`{"title": "Schedulers", "revision": 2}`)
		require.NoError(t, err)
		assert.Equal(t, "Schedulers", update["title"])
		assert.Equal(t, float64(2), update["revision"])
		assert.Len(t, update, 2)
	})

	t.Run("Empty object is a valid empty update", func(t *testing.T) {
		update, err := extractor.Extract(`{}`)
		require.NoError(t, err)
		assert.Empty(t, update)
	})

	t.Run("Prose around the object is rejected", func(t *testing.T) {
		_, err := extractor.Extract(`Here is the state: {"title": "x"}`)
		require.ErrorIs(t, err, agenterrors.ErrMalformedStateReport)
	})

	t.Run("Non-object JSON is rejected", func(t *testing.T) {
		_, err := extractor.Extract(`["title", "x"]`)
		require.ErrorIs(t, err, agenterrors.ErrMalformedStateReport)
	})

	t.Run("Disallowed key is rejected", func(t *testing.T) {
		_, err := extractor.Extract(`{"title": "x", "author": "nobody"}`)
		require.ErrorIs(t, err, agenterrors.ErrMalformedStateReport)
	})

	t.Run("Plain prose is rejected", func(t *testing.T) {
		_, err := extractor.Extract(`I could not produce a state update.`)
		require.ErrorIs(t, err, agenterrors.ErrMalformedStateReport)
	})
}
