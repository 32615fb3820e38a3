package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsForProfile(t *testing.T) {
	t.Run("strict profile", func(t *testing.T) {
		w, err := WeightsForProfile(ProfileStrict)
		require.NoError(t, err)
		assert.Equal(t, StrictWeights(), w)
		assert.InDelta(t, 1.0, w.sum(), 1e-9)
	})

	t.Run("name-only profile", func(t *testing.T) {
		w, err := WeightsForProfile(ProfileNameOnly)
		require.NoError(t, err)
		assert.Equal(t, 1.0, w.CustomerName)
		assert.Equal(t, 0.0, w.ExternalID)
	})

	t.Run("unknown profile is a configuration error", func(t *testing.T) {
		_, err := WeightsForProfile("fuzzy")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestWeightsNormalized(t *testing.T) {
	t.Run("scales weights to sum to 1", func(t *testing.T) {
		w := Weights{CustomerName: 2, ExternalID: 1, Item: 1}

		normalized, err := w.normalized()
		require.NoError(t, err)

		assert.InDelta(t, 0.5, normalized.CustomerName, 1e-9)
		assert.InDelta(t, 0.25, normalized.ExternalID, 1e-9)
		assert.InDelta(t, 0.25, normalized.Item, 1e-9)
		assert.InDelta(t, 1.0, normalized.sum(), 1e-9)
	})

	t.Run("already-normalized weights are unchanged", func(t *testing.T) {
		normalized, err := StrictWeights().normalized()
		require.NoError(t, err)
		assert.InDelta(t, StrictWeights().CustomerName, normalized.CustomerName, 1e-9)
	})

	t.Run("all-zero weights are rejected", func(t *testing.T) {
		_, err := Weights{}.normalized()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("negative weights are rejected", func(t *testing.T) {
		_, err := Weights{CustomerName: 1, Price: -0.5}.normalized()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfiguration)
	})
}
