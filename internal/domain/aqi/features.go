// Package aqi implements the air quality classification pipeline: feature
// vectors, category bucketing, advisory and color lookup, dominant pollutant
// detection and gauge description.
package aqi

import (
	"math"
	"sort"
	"strings"
)

// Feature keys used by the built-in profiles. The spelling matches the input
// schema the trained models expect.
const (
	KeyTemp     = "TempC"
	KeyHumidity = "Humidity"
	KeyPM25     = "PM2.5"
	KeyPM10     = "PM10"
	KeyNO2      = "NO2 ppb"
	KeyO3       = "O3 ppb"
	KeyCO       = "CO ppm"
	KeySO2      = "SO2 ppb"
)

// Feature is one named reading.
type Feature struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// FeatureVector is an ordered mapping from feature key to value. Order is
// significant: it must match the schema of the model that scores it.
type FeatureVector []Feature

// NewFeatureVector orders values by keys. Every key must be present and no
// unknown key may be supplied.
func NewFeatureVector(keys []string, values map[string]float64) (FeatureVector, error) {
	const op = "aqi.new_feature_vector"
	fv := make(FeatureVector, 0, len(keys))
	for _, k := range keys {
		v, ok := values[k]
		if !ok {
			return nil, Errorf(op, ErrInvalidInput, "missing feature %q", k)
		}
		fv = append(fv, Feature{Key: k, Value: v})
	}
	if len(values) != len(keys) {
		known := make(map[string]struct{}, len(keys))
		for _, k := range keys {
			known[k] = struct{}{}
		}
		var extra []string
		for k := range values {
			if _, ok := known[k]; !ok {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		return nil, Errorf(op, ErrInvalidInput, "unknown features: %s", strings.Join(extra, ", "))
	}
	if err := fv.Validate(); err != nil {
		return nil, err
	}
	return fv, nil
}

// Validate rejects empty or duplicate keys and non-finite values.
func (fv FeatureVector) Validate() error {
	const op = "aqi.validate_features"
	if len(fv) == 0 {
		return Errorf(op, ErrInvalidInput, "empty feature vector")
	}
	seen := make(map[string]struct{}, len(fv))
	for _, f := range fv {
		if f.Key == "" {
			return Errorf(op, ErrInvalidInput, "empty feature key")
		}
		if _, dup := seen[f.Key]; dup {
			return Errorf(op, ErrInvalidInput, "duplicate feature %q", f.Key)
		}
		seen[f.Key] = struct{}{}
		if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
			return Errorf(op, ErrInvalidInput, "feature %q is not finite", f.Key)
		}
	}
	return nil
}

// Keys returns the feature keys in order.
func (fv FeatureVector) Keys() []string {
	keys := make([]string, len(fv))
	for i, f := range fv {
		keys[i] = f.Key
	}
	return keys
}

// Get returns the value for key.
func (fv FeatureVector) Get(key string) (float64, bool) {
	for _, f := range fv {
		if f.Key == key {
			return f.Value, true
		}
	}
	return 0, false
}

// Map returns the vector as an unordered map.
func (fv FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, len(fv))
	for _, f := range fv {
		m[f.Key] = f.Value
	}
	return m
}

// Field describes one input of a profile: its key, display metadata, the
// accepted range and the default offered to the user.
type Field struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Unit    string  `json:"unit,omitempty"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// Fields is an ordered field list.
type Fields []Field

// Keys returns the field keys in order.
func (fs Fields) Keys() []string {
	keys := make([]string, len(fs))
	for i, f := range fs {
		keys[i] = f.Key
	}
	return keys
}

// Defaults returns the default value of every field.
func (fs Fields) Defaults() FeatureVector {
	fv := make(FeatureVector, len(fs))
	for i, f := range fs {
		fv[i] = Feature{Key: f.Key, Value: f.Default}
	}
	return fv
}

// Check verifies that fv carries every field in order and within bounds.
func (fs Fields) Check(fv FeatureVector) error {
	const op = "aqi.check_bounds"
	if len(fv) != len(fs) {
		return Errorf(op, ErrInvalidInput, "expected %d features, got %d", len(fs), len(fv))
	}
	for i, f := range fs {
		got := fv[i]
		if got.Key != f.Key {
			return Errorf(op, ErrInvalidInput, "feature %d is %q, want %q", i, got.Key, f.Key)
		}
		if got.Value < f.Min || got.Value > f.Max {
			return Errorf(op, ErrInvalidInput, "%s=%g outside [%g, %g]", f.Key, got.Value, f.Min, f.Max)
		}
	}
	return nil
}

func (fs Fields) validate() error {
	const op = "aqi.validate_fields"
	if len(fs) == 0 {
		return Errorf(op, ErrConfig, "profile has no fields")
	}
	seen := make(map[string]struct{}, len(fs))
	for _, f := range fs {
		if f.Key == "" {
			return Errorf(op, ErrConfig, "empty field key")
		}
		if _, dup := seen[f.Key]; dup {
			return Errorf(op, ErrConfig, "duplicate field %q", f.Key)
		}
		seen[f.Key] = struct{}{}
		if !(f.Min <= f.Max) {
			return Errorf(op, ErrConfig, "field %q has min %g above max %g", f.Key, f.Min, f.Max)
		}
		if f.Default < f.Min || f.Default > f.Max {
			return Errorf(op, ErrConfig, "field %q default %g outside [%g, %g]", f.Key, f.Default, f.Min, f.Max)
		}
	}
	return nil
}
