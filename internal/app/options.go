package service

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/airq/internal/domain/aqi"
	"github.com/okian/airq/internal/domain/inference"
	"github.com/okian/airq/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithProfiles replaces the served classification profiles.
func WithProfiles(profiles map[string]*aqi.Profile) Option {
	return func(s *Service) {
		if len(profiles) > 0 {
			s.profiles = profiles
		}
	}
}

// WithPredictors sets the model used for each profile.
func WithPredictors(predictors map[string]inference.Predictor) Option {
	return func(s *Service) {
		for name, p := range predictors {
			s.predictors[name] = p
		}
	}
}

// WithDefaultProfile sets the profile used when a request names none.
func WithDefaultProfile(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultProfile = name
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the reading queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithHistorySize bounds the number of retained evaluations.
func WithHistorySize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.historySize = size
		}
	}
}

// WithInferenceTimeout bounds a single model call. Zero disables it.
func WithInferenceTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.inferenceTimeout = d
		}
	}
}

// WithPublishers adds sinks every evaluation is published to.
func WithPublishers(pubs ...Publisher) Option {
	return func(s *Service) {
		for _, p := range pubs {
			if p != nil {
				s.publishers = append(s.publishers, p)
			}
		}
	}
}

// WithReadinessCheck adds a dependency probed by CheckReadiness.
func WithReadinessCheck(name string, c ReadinessChecker) Option {
	return func(s *Service) {
		if c != nil {
			s.readiness[name] = c
		}
	}
}

// WithClock sets the clock used for timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
