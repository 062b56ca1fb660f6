package repository

import "github.com/jonboulle/clockwork"

// Option applies a configuration option to the HistoryStore.
type Option func(*HistoryStore)

// WithCapacity bounds the number of retained evaluations.
func WithCapacity(n int) Option {
	return func(s *HistoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock sets the clock used to stamp evaluations.
func WithClock(c clockwork.Clock) Option {
	return func(s *HistoryStore) {
		if c != nil {
			s.clock = c
		}
	}
}
