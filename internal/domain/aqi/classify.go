package aqi

import (
	"math"
)

// Unclassified is the Result.Index of a score at or above the final edge.
const Unclassified = -1

// Result is the outcome of one classification.
type Result struct {
	Score float64 `json:"score"`
	// Category is "" when the score is out of range.
	Category string `json:"category"`
	Index    int    `json:"index"`
	Advisory string `json:"advisory"`
	Color    string `json:"color"`
	// DominantPollutant is "" when no pollutant keys were supplied.
	DominantPollutant string `json:"dominant_pollutant,omitempty"`
}

// Classified reports whether the score landed in a bucket.
func (r Result) Classified() bool { return r.Index != Unclassified }

// Classify buckets rawScore using table, resolves the advisory and color for
// the bucket (falling back to the table defaults) and picks the dominant
// pollutant among pollutantKeys. It has no side effects.
func Classify(features FeatureVector, rawScore float64, table CategoryTable, advisories, colors LabelTable, pollutantKeys []string) (Result, error) {
	const op = "aqi.classify"
	if err := table.Validate(); err != nil {
		return Result{}, err
	}
	if err := advisories.validate("advisory"); err != nil {
		return Result{}, err
	}
	if err := colors.validate("color"); err != nil {
		return Result{}, err
	}
	if err := features.Validate(); err != nil {
		return Result{}, err
	}
	if err := checkPollutants(features, pollutantKeys); err != nil {
		return Result{}, err
	}
	if math.IsNaN(rawScore) || math.IsInf(rawScore, 0) {
		return Result{}, Errorf(op, ErrInferenceFailure, "score %v is not finite", rawScore)
	}

	idx, ok := table.Bucket(rawScore)
	if !ok {
		idx = Unclassified
	}
	label := table.Label(idx)
	dominant, _ := DominantPollutant(features, pollutantKeys)

	return Result{
		Score:             rawScore,
		Category:          label,
		Index:             idx,
		Advisory:          advisories.Lookup(label),
		Color:             colors.Lookup(label),
		DominantPollutant: dominant,
	}, nil
}

// DominantPollutant returns the key among keys with the highest value in
// features. Ties go to the earliest key in keys. ok is false when no key is
// present in features.
func DominantPollutant(features FeatureVector, keys []string) (string, bool) {
	best, bestVal, found := "", 0.0, false
	for _, k := range keys {
		v, ok := features.Get(k)
		if !ok {
			continue
		}
		if !found || v > bestVal {
			best, bestVal, found = k, v, true
		}
	}
	return best, found
}

func checkPollutants(features FeatureVector, keys []string) error {
	const op = "aqi.check_pollutants"
	if len(keys) == 0 {
		return Errorf(op, ErrConfig, "no pollutant keys")
	}
	for _, k := range keys {
		if _, ok := features.Get(k); !ok {
			return Errorf(op, ErrConfig, "pollutant %q is not a feature", k)
		}
	}
	return nil
}
