package testreadings

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/airq/internal/domain/aqi"
	"github.com/okian/airq/pkg/logger"
)

// maxReportedMismatches bounds how many mismatches are logged individually.
const maxReportedMismatches = 10

// verifyResults checks every classification against the profile tables:
// the category must be the bucket of the returned AQI, and advisory, color
// and dominant pollutant must come from the profile's lookups.
func verifyResults(ctx context.Context, profile *Profile, results []Classification, stats *Stats) error {
	if len(results) == 0 {
		logger.Get().Warn(ctx, "no classifications to verify")
		return nil
	}

	table := aqi.CategoryTable{Edges: profile.Edges, Labels: profile.Labels}
	if err := table.Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", profile.Name, err)
	}

	for i, c := range results {
		if err := verifyClassification(table, profile, c); err != nil {
			stats.Mismatches++
			if stats.Mismatches <= maxReportedMismatches {
				logger.Get().Warn(ctx, "classification mismatch", logger.Int("index", i), logger.Error(err))
			}
		}
	}

	logger.Get().Info(ctx, "verification completed",
		logger.Int("checked", len(results)),
		logger.Int("mismatches", stats.Mismatches))
	if stats.Mismatches > 0 {
		return fmt.Errorf("%d of %d classifications disagree with profile %q", stats.Mismatches, len(results), profile.Name)
	}
	return nil
}

func verifyClassification(table aqi.CategoryTable, profile *Profile, c Classification) error {
	idx, ok := table.Bucket(c.AQI)
	wantAdvisory, wantColor := profile.Defaults["advisory"], profile.Defaults["color"]

	switch {
	case !ok && c.Category != nil:
		return fmt.Errorf("aqi %.2f is outside the table but category is %q", c.AQI, *c.Category)
	case ok && c.Category == nil:
		return fmt.Errorf("aqi %.2f should be %q but is unclassified", c.AQI, table.Labels[idx])
	case ok:
		label := table.Labels[idx]
		if *c.Category != label {
			return fmt.Errorf("aqi %.2f should be %q, got %q", c.AQI, label, *c.Category)
		}
		if v, found := profile.Advisories[label]; found {
			wantAdvisory = v
		}
		if v, found := profile.Colors[label]; found {
			wantColor = v
		}
	}

	if c.Advisory != wantAdvisory {
		return fmt.Errorf("aqi %.2f: advisory %q, want %q", c.AQI, c.Advisory, wantAdvisory)
	}
	if c.Color != wantColor {
		return fmt.Errorf("aqi %.2f: color %q, want %q", c.AQI, c.Color, wantColor)
	}
	if c.DominantPollutant != nil && !slices.Contains(profile.Pollutants, *c.DominantPollutant) {
		return fmt.Errorf("dominant pollutant %q is not a profile pollutant", *c.DominantPollutant)
	}
	return nil
}
