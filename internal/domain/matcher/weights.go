package matcher

import "fmt"

// Built-in weight profile names.
const (
	ProfileStrict   = "strict"
	ProfileNameOnly = "name-only"
)

// Weights assigns a relative contribution to each similarity factor.
// Weights are normalized to sum to 1 before scoring, so unequal profiles
// remain valid probabilities.
type Weights struct {
	CustomerName float64 `yaml:"customer_name" json:"customerName"`
	ExternalID   float64 `yaml:"external_id" json:"externalId"`
	Item         float64 `yaml:"item" json:"item"`
	Price        float64 `yaml:"price" json:"price"`
	Date         float64 `yaml:"date" json:"date"`
}

// StrictWeights returns the profile for authoritative, structured bulk
// data: near-equal weight across name, external ID, item, and price,
// with a small date component.
func StrictWeights() Weights {
	return Weights{
		CustomerName: 0.30,
		ExternalID:   0.25,
		Item:         0.20,
		Price:        0.15,
		Date:         0.10,
	}
}

// NameOnlyWeights returns the profile for quick client-side triage,
// where only the customer name is reliably comparable.
func NameOnlyWeights() Weights {
	return Weights{CustomerName: 1}
}

// WeightsForProfile resolves a profile name to its weights.
func WeightsForProfile(profile string) (Weights, error) {
	switch profile {
	case ProfileStrict:
		return StrictWeights(), nil
	case ProfileNameOnly:
		return NameOnlyWeights(), nil
	default:
		return Weights{}, fmt.Errorf("%w: unknown weight profile %q", ErrConfiguration, profile)
	}
}

// sum returns the total of all factor weights.
func (w Weights) sum() float64 {
	return w.CustomerName + w.ExternalID + w.Item + w.Price + w.Date
}

// normalized scales the weights so they sum to 1. Negative factors or an
// all-zero profile are configuration errors.
func (w Weights) normalized() (Weights, error) {
	if w.CustomerName < 0 || w.ExternalID < 0 || w.Item < 0 || w.Price < 0 || w.Date < 0 {
		return Weights{}, fmt.Errorf("%w: weights must not be negative", ErrConfiguration)
	}

	total := w.sum()
	if total <= 0 {
		return Weights{}, fmt.Errorf("%w: weights sum to zero", ErrConfiguration)
	}

	return Weights{
		CustomerName: w.CustomerName / total,
		ExternalID:   w.ExternalID / total,
		Item:         w.Item / total,
		Price:        w.Price / total,
		Date:         w.Date / total,
	}, nil
}
