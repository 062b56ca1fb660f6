package testreadings

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/airq/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	stationCount       = 16
	outOfRangeMargin   = 0.5 // fraction of the field span added past a bound
)

// getRandomFloat returns a random float64 in [0, 1) using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateValue returns a value inside [f.Min, f.Max].
func generateValue(f Field) float64 {
	return f.Min + getRandomFloat()*(f.Max-f.Min)
}

// generateOutOfRange returns a value strictly outside [f.Min, f.Max].
func generateOutOfRange(f Field) float64 {
	span := f.Max - f.Min
	if span <= 0 {
		span = 1
	}
	offset := (getRandomFloat() + 0.01) * span * outOfRangeMargin
	if getRandomFloat() < 0.5 {
		return f.Min - offset
	}
	return f.Max + offset
}

// generateReadings creates config.NumReadings readings for profile. Roughly
// config.InvalidRatio of them carry one out-of-range value.
func generateReadings(ctx context.Context, config *Config, profile *Profile, stats *Stats) ([]Reading, error) {
	if len(profile.Fields) == 0 {
		return nil, fmt.Errorf("profile %q has no fields", profile.Name)
	}
	if config.NumReadings <= 0 {
		return nil, fmt.Errorf("readings must be positive, got %d", config.NumReadings)
	}

	logger.Get().Info(ctx, "generating readings",
		logger.String("profile", profile.Name),
		logger.Int("numReadings", config.NumReadings))

	stations := make([]string, stationCount)
	for i := range stations {
		stations[i] = fmt.Sprintf("station-%02d", i)
	}

	readings := make([]Reading, config.NumReadings)
	for i := range readings {
		r := Reading{
			ID:        uuid.New().String(),
			StationID: stations[i%stationCount],
			Profile:   profile.Name,
			Values:    make(map[string]float64, len(profile.Fields)),
		}
		for _, f := range profile.Fields {
			r.Values[f.Key] = generateValue(f)
		}
		if config.InvalidRatio > 0 && getRandomFloat() < config.InvalidRatio {
			f := profile.Fields[i%len(profile.Fields)]
			r.Values[f.Key] = generateOutOfRange(f)
			r.Invalid = true
		}
		readings[i] = r
	}

	stats.ReadingsGenerated = len(readings)
	logger.Get().Info(ctx, "readings generated", logger.Int("count", len(readings)))
	return readings, nil
}
