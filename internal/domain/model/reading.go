// Package model contains domain records passed between layers.
package model

import (
	"math"
	"time"

	"github.com/okian/airq/internal/domain/aqi"
)

// Reading is one set of sensor values submitted for evaluation.
type Reading struct {
	ID         string             // unique id for idempotency
	StationID  string             // reporting station, may be empty for ad-hoc requests
	Profile    string             // classification profile name
	Values     map[string]float64 // raw values keyed by feature key
	ReceivedAt time.Time
}

// Evaluation is the outcome of scoring and classifying a Reading.
type Evaluation struct {
	ID          string
	StationID   string
	Profile     string
	Features    aqi.FeatureVector
	Result      aqi.Result
	Gauge       *aqi.Gauge
	EvaluatedAt time.Time
}

// RawValues is the wire form of Reading.Values. Pointers keep a JSON null
// apart from a zero reading.
type RawValues map[string]*float64

// Decode returns the values, rejecting an empty set and null or non-finite
// entries with aqi.ErrInvalidInput.
func (v RawValues) Decode() (map[string]float64, error) {
	const op = "model.decode_values"
	if len(v) == 0 {
		return nil, aqi.Errorf(op, aqi.ErrInvalidInput, "values are required")
	}
	out := make(map[string]float64, len(v))
	for k, p := range v {
		if p == nil {
			return nil, aqi.Errorf(op, aqi.ErrInvalidInput, "value %q is null", k)
		}
		if math.IsNaN(*p) || math.IsInf(*p, 0) {
			return nil, aqi.Errorf(op, aqi.ErrInvalidInput, "value %q is not finite", k)
		}
		out[k] = *p
	}
	return out, nil
}
