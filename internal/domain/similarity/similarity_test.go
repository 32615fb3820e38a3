package similarity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/settleline/reconcile-backend/internal/domain/similarity"
)

func TestStringSimilarity(t *testing.T) {
	t.Run("identical strings score 1", func(t *testing.T) {
		assert.Equal(t, 1.0, similarity.StringSimilarity("Alex Abel", "Alex Abel"))
	})

	t.Run("comparison is case-insensitive", func(t *testing.T) {
		assert.Equal(t, 1.0, similarity.StringSimilarity("ALEX", "alex"))
	})

	t.Run("both empty score 1", func(t *testing.T) {
		assert.Equal(t, 1.0, similarity.StringSimilarity("", ""))
	})

	t.Run("exactly one empty scores 0", func(t *testing.T) {
		assert.Equal(t, 0.0, similarity.StringSimilarity("Alex", ""))
		assert.Equal(t, 0.0, similarity.StringSimilarity("", "Alex"))
	})

	t.Run("known edit distances", func(t *testing.T) {
		tests := []struct {
			a, b string
			want float64
		}{
			{"kitten", "sitting", 1 - 3.0/7.0},
			{"abc", "abd", 1 - 1.0/3.0},
			{"abc", "xyz", 0},
			{"18G", "I8G", 1 - 1.0/3.0},
		}

		for _, tt := range tests {
			got := similarity.StringSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-9, "similarity(%q, %q)", tt.a, tt.b)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		pairs := [][2]string{
			{"Alexis Abe", "Alex Abel"},
			{"Bryan", "Brian Bell"},
			{"Tool A", "Toy B"},
		}

		for _, p := range pairs {
			assert.Equal(t,
				similarity.StringSimilarity(p[0], p[1]),
				similarity.StringSimilarity(p[1], p[0]),
				"similarity(%q, %q) should be symmetric", p[0], p[1])
		}
	})

	t.Run("result stays in unit range", func(t *testing.T) {
		got := similarity.StringSimilarity("a", "completely different string")
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	})

	t.Run("handles multi-byte runes", func(t *testing.T) {
		// One substitution over three runes, not over byte length.
		got := similarity.StringSimilarity("héllo", "hállo")
		assert.InDelta(t, 1-1.0/5.0, got, 1e-9)
	})
}

func TestNumericProximity(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		want float64
	}{
		{"equal values", 100, 100, 1},
		{"both zero", 0, 0, 1},
		{"half apart", 100, 50, 0.5},
		{"zero against nonzero", 0, 100, 0},
		{"opposite signs clamp to zero", -100, 100, 0},
		{"close prices", 12300, 12250, 1 - 50.0/12300.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, similarity.NumericProximity(tt.x, tt.y), 1e-9)
		})
	}

	t.Run("symmetric", func(t *testing.T) {
		assert.Equal(t,
			similarity.NumericProximity(123, 321),
			similarity.NumericProximity(321, 123))
	})
}

func TestDateWindowBonus(t *testing.T) {
	ref := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("same day earns the bonus", func(t *testing.T) {
		got := similarity.DateWindowBonus(ref, ref, 60)
		assert.Equal(t, similarity.DateBonus, got)
	})

	t.Run("last day of the window earns the bonus", func(t *testing.T) {
		got := similarity.DateWindowBonus(ref.AddDate(0, 0, 60), ref, 60)
		assert.Equal(t, similarity.DateBonus, got)
	})

	t.Run("past the window earns nothing", func(t *testing.T) {
		got := similarity.DateWindowBonus(ref.AddDate(0, 0, 61), ref, 60)
		assert.Equal(t, 0.0, got)
	})

	t.Run("before the reference is penalized", func(t *testing.T) {
		got := similarity.DateWindowBonus(ref.AddDate(0, 0, -1), ref, 60)
		assert.Equal(t, similarity.DatePenalty, got)
	})

	t.Run("zero dates earn nothing", func(t *testing.T) {
		assert.Equal(t, 0.0, similarity.DateWindowBonus(time.Time{}, ref, 60))
		assert.Equal(t, 0.0, similarity.DateWindowBonus(ref, time.Time{}, 60))
	})
}
