// Package repository defines the evaluation history store interface and errors.
package repository

import (
	"context"

	"github.com/okian/airq/internal/domain/model"
)

// Store provides read/write access to recent evaluations.
type Store interface {
	// Append records an evaluation. A zero EvaluatedAt is stamped with the
	// store clock.
	Append(ctx context.Context, ev model.Evaluation) (model.Evaluation, error)

	// Latest returns the newest evaluation for a station.
	// Returns ErrNotFound if the station never reported.
	Latest(ctx context.Context, stationID string) (model.Evaluation, error)

	// Recent returns up to n evaluations, newest first.
	Recent(ctx context.Context, n int) ([]model.Evaluation, error)

	// CategoryCounts tallies retained evaluations by category. Unclassified
	// results are counted under the empty label.
	CategoryCounts(ctx context.Context) map[string]int

	// Count returns the number of retained evaluations.
	Count(ctx context.Context) int
}
