package aqi

import (
	"math"
)

// CategoryTable partitions the AQI scale into named, half-open buckets
// [Edges[i], Edges[i+1]). The first bucket also absorbs scores below
// Edges[0]. Scores at or above the final edge are unclassified.
type CategoryTable struct {
	Edges  []float64 `json:"edges"`
	Labels []string  `json:"labels"`
}

// NewCategoryTable validates and copies edges and labels.
func NewCategoryTable(edges []float64, labels []string) (CategoryTable, error) {
	t := CategoryTable{
		Edges:  append([]float64(nil), edges...),
		Labels: append([]string(nil), labels...),
	}
	if err := t.Validate(); err != nil {
		return CategoryTable{}, err
	}
	return t, nil
}

// MustCategoryTable is NewCategoryTable for static tables.
func MustCategoryTable(edges []float64, labels []string) CategoryTable {
	t, err := NewCategoryTable(edges, labels)
	if err != nil {
		panic(err)
	}
	return t
}

// Validate checks that there are at least two finite, strictly increasing
// edges and exactly one unique, non-empty label per bucket.
func (t CategoryTable) Validate() error {
	const op = "aqi.validate_table"
	if len(t.Edges) < 2 {
		return Errorf(op, ErrConfig, "need at least 2 edges, got %d", len(t.Edges))
	}
	if len(t.Labels) != len(t.Edges)-1 {
		return Errorf(op, ErrConfig, "%d labels for %d edges", len(t.Labels), len(t.Edges))
	}
	for i, e := range t.Edges {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return Errorf(op, ErrConfig, "edge %d is not finite", i)
		}
		if i > 0 && !(t.Edges[i-1] < e) {
			return Errorf(op, ErrConfig, "edges not strictly increasing at %d", i)
		}
	}
	seen := make(map[string]struct{}, len(t.Labels))
	for _, l := range t.Labels {
		if l == "" {
			return Errorf(op, ErrConfig, "empty category label")
		}
		if _, dup := seen[l]; dup {
			return Errorf(op, ErrConfig, "duplicate category label %q", l)
		}
		seen[l] = struct{}{}
	}
	return nil
}

// Bucket returns the index of the bucket score falls in. ok is false when
// score is at or above the final edge. The table must be valid.
func (t CategoryTable) Bucket(score float64) (int, bool) {
	last := len(t.Edges) - 1
	if score >= t.Edges[last] {
		return -1, false
	}
	for i := 0; i < last; i++ {
		if score < t.Edges[i+1] {
			return i, true
		}
	}
	return -1, false
}

// Label returns the label of bucket i, or "" when i is out of range.
func (t CategoryTable) Label(i int) string {
	if i < 0 || i >= len(t.Labels) {
		return ""
	}
	return t.Labels[i]
}
