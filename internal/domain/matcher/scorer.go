package matcher

import (
	"strings"

	"github.com/settleline/reconcile-backend/internal/domain/model"
	"github.com/settleline/reconcile-backend/internal/domain/similarity"
)

// DefaultWindowDays is the grace period within which a transaction is
// expected to follow its order.
const DefaultWindowDays = 60

// Scorer computes the weighted match score for an (order, transaction)
// pair. It has no state beyond its configuration and is safe for
// concurrent use.
type Scorer struct {
	weights    Weights
	windowDays int
}

// NewScorer builds a scorer from a weight profile. Weights are
// normalized; an invalid profile returns ErrConfiguration. windowDays
// <= 0 falls back to DefaultWindowDays.
func NewScorer(weights Weights, windowDays int) (*Scorer, error) {
	normalized, err := weights.normalized()
	if err != nil {
		return nil, err
	}

	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	return &Scorer{weights: normalized, windowDays: windowDays}, nil
}

// Score estimates how likely order and transaction describe the same
// real-world event. The result is the weighted sum of customer-name
// similarity, external-ID similarity, an all-or-nothing item match,
// price proximity, and the date-window factor, clamped to [0,1].
func (s *Scorer) Score(order model.Order, txn model.Transaction) float64 {
	score := s.weights.CustomerName * similarity.StringSimilarity(order.Customer, txn.Customer)
	score += s.weights.ExternalID * similarity.StringSimilarity(order.ExternalID, txn.ExternalID)

	if strings.EqualFold(order.Item, txn.Item) {
		score += s.weights.Item
	}

	score += s.weights.Price * similarity.NumericProximity(float64(order.PriceCents), float64(txn.PriceCents))

	// The window bonus is rescaled so an in-window date earns full
	// credit for its weight and an early transaction is penalized at
	// half weight.
	bonus := similarity.DateWindowBonus(txn.Date, order.Date, s.windowDays)
	score += s.weights.Date * (bonus / similarity.DateBonus)

	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
