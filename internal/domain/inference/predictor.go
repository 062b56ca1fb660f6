// Package inference defines the prediction boundary of the AQI pipeline and
// evaluates the regression model artifacts shipped with a deployment.
package inference

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/okian/airq/internal/domain/aqi"
)

// Predictor turns a feature vector into a raw AQI score. Implementations are
// immutable once loaded and safe for concurrent use.
type Predictor interface {
	// Schema returns the ordered feature keys the model expects.
	Schema() []string
	// Predict scores fv. fv must match Schema exactly.
	Predict(ctx context.Context, fv aqi.FeatureVector) (float64, error)
}

// CheckSchema verifies that keys equal the predictor schema in name and order.
func CheckSchema(p Predictor, keys []string) error {
	const op = "inference.check_schema"
	want := p.Schema()
	if len(want) != len(keys) {
		return aqi.Wrap(op, aqi.ErrConfig, fmt.Errorf("%w: model expects %d features [%s], got %d [%s]",
			ErrSchemaMismatch, len(want), strings.Join(want, ", "), len(keys), strings.Join(keys, ", ")))
	}
	for i := range want {
		if want[i] != keys[i] {
			return aqi.Wrap(op, aqi.ErrConfig, fmt.Errorf("%w: feature %d is %q, model expects %q",
				ErrSchemaMismatch, i, keys[i], want[i]))
		}
	}
	return nil
}

// prepare runs the checks shared by every Predict implementation and returns
// the raw values in schema order.
func prepare(ctx context.Context, p Predictor, fv aqi.FeatureVector) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, aqi.Wrap("inference.predict", aqi.ErrInferenceFailure, err)
	}
	if err := CheckSchema(p, fv.Keys()); err != nil {
		return nil, err
	}
	if err := fv.Validate(); err != nil {
		return nil, err
	}
	x := make([]float64, len(fv))
	for i, f := range fv {
		x[i] = f.Value
	}
	return x, nil
}

func finish(score float64) (float64, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, aqi.Errorf("inference.predict", aqi.ErrInferenceFailure, "model produced %v", score)
	}
	return score, nil
}

// Linear is a linear regression: intercept + sum(weights[i] * x[i]).
type Linear struct {
	version   string
	features  []string
	intercept float64
	weights   []float64
}

// NewLinear validates and copies the model parameters.
func NewLinear(version string, features []string, intercept float64, weights []float64) (*Linear, error) {
	const op = "inference.new_linear"
	if err := checkFeatures(features); err != nil {
		return nil, aqi.Wrap(op, ErrLoadModel, err)
	}
	if len(weights) != len(features) {
		return nil, aqi.Wrap(op, ErrLoadModel, fmt.Errorf("%d weights for %d features", len(weights), len(features)))
	}
	for i, w := range append([]float64{intercept}, weights...) {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, aqi.Wrap(op, ErrLoadModel, fmt.Errorf("parameter %d is not finite", i))
		}
	}
	return &Linear{
		version:   version,
		features:  append([]string(nil), features...),
		intercept: intercept,
		weights:   append([]float64(nil), weights...),
	}, nil
}

// Schema implements Predictor.
func (m *Linear) Schema() []string { return append([]string(nil), m.features...) }

// Version returns the artifact version.
func (m *Linear) Version() string { return m.version }

// Predict implements Predictor.
func (m *Linear) Predict(ctx context.Context, fv aqi.FeatureVector) (float64, error) {
	x, err := prepare(ctx, m, fv)
	if err != nil {
		return 0, err
	}
	score := m.intercept
	for i, w := range m.weights {
		score += w * x[i]
	}
	return finish(score)
}

func checkFeatures(features []string) error {
	if len(features) == 0 {
		return fmt.Errorf("model declares no features")
	}
	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		if f == "" {
			return fmt.Errorf("empty feature name")
		}
		if _, dup := seen[f]; dup {
			return fmt.Errorf("duplicate feature %q", f)
		}
		seen[f] = struct{}{}
	}
	return nil
}
