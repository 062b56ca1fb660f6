package repository

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/okian/airq/internal/domain/model"
	"github.com/okian/airq/pkg/metrics"
)

const defaultCapacity = 1_000

// HistoryStore is an in-memory ring of the most recent evaluations plus the
// latest evaluation per station. Safe for concurrent use.
type HistoryStore struct {
	mu       sync.RWMutex
	capacity int
	clock    clockwork.Clock

	ring   []model.Evaluation
	next   int // slot the next append writes to
	size   int
	latest map[string]model.Evaluation
}

// NewHistoryStore creates an empty store.
func NewHistoryStore(opts ...Option) *HistoryStore {
	s := &HistoryStore{
		capacity: defaultCapacity,
		clock:    clockwork.NewRealClock(),
		latest:   make(map[string]model.Evaluation),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ring = make([]model.Evaluation, s.capacity)
	return s
}

// Append implements Store.Append. The oldest entry is overwritten once the
// ring is full; per-station latest entries are kept regardless.
func (s *HistoryStore) Append(ctx context.Context, ev model.Evaluation) (model.Evaluation, error) {
	if ev.ID == "" {
		metrics.RecordErrorByComponent("repository", "missing_id")
		return model.Evaluation{}, ErrMissingID
	}
	if ev.EvaluatedAt.IsZero() {
		ev.EvaluatedAt = s.clock.Now().UTC()
	}

	s.mu.Lock()
	s.ring[s.next] = ev
	s.next = (s.next + 1) % s.capacity
	if s.size < s.capacity {
		s.size++
	}
	if ev.StationID != "" {
		if prev, ok := s.latest[ev.StationID]; !ok || !ev.EvaluatedAt.Before(prev.EvaluatedAt) {
			s.latest[ev.StationID] = ev
		}
	}
	size := s.size
	s.mu.Unlock()

	metrics.UpdateHistoryRecords(size)
	return ev, nil
}

// Latest implements Store.Latest.
func (s *HistoryStore) Latest(ctx context.Context, stationID string) (model.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.latest[stationID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Evaluation{}, ErrNotFound
	}
	return ev, nil
}

// Recent implements Store.Recent.
func (s *HistoryStore) Recent(ctx context.Context, n int) ([]model.Evaluation, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > s.size {
		n = s.size
	}
	out := make([]model.Evaluation, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, s.ring[(s.next-i+s.capacity)%s.capacity])
	}
	return out, nil
}

// CategoryCounts implements Store.CategoryCounts.
func (s *HistoryStore) CategoryCounts(ctx context.Context) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int)
	for i := 1; i <= s.size; i++ {
		out[s.ring[(s.next-i+s.capacity)%s.capacity].Result.Category]++
	}
	return out
}

// Count implements Store.Count.
func (s *HistoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Stations returns the number of stations with a latest evaluation.
func (s *HistoryStore) Stations(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.latest)
}
