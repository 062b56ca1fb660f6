// Package service provides the core classification service that implements
// the dependencies required by the HTTP API and the MQTT subscriber.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	readingqueue "github.com/okian/airq/internal/adapters/mq/queue"
	workerpool "github.com/okian/airq/internal/adapters/mq/worker"
	"github.com/okian/airq/internal/adapters/repository"
	"github.com/okian/airq/internal/domain/aqi"
	"github.com/okian/airq/internal/domain/dedupe"
	"github.com/okian/airq/internal/domain/inference"
	"github.com/okian/airq/internal/domain/model"
	"github.com/okian/airq/pkg/logger"
	"github.com/okian/airq/pkg/metrics"
)

const publishTimeout = 2 * time.Second

// Publisher forwards finished evaluations to an external sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, ev model.Evaluation) error
}

// ReadinessChecker reports whether an external dependency can be used.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

type versioned interface {
	Version() string
}

// Service runs the classification pipeline for every configured profile.
type Service struct {
	mu sync.RWMutex

	// Core components
	history *repository.HistoryStore
	deduper dedupe.Deduper
	queue   *readingqueue.InMemoryQueue
	pool    *workerpool.Pool

	// Configuration
	profiles         map[string]*aqi.Profile
	predictors       map[string]inference.Predictor
	defaultProfile   string
	workerCount      int
	queueSize        int
	dedupeSize       int
	historySize      int
	inferenceTimeout time.Duration
	publishers       []Publisher
	readiness        map[string]ReadinessChecker
	clock            clockwork.Clock

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service serving the built-in profiles by default.
// Predictors must be supplied for every profile before Start.
func New(opts ...Option) *Service {
	s := &Service{
		profiles:         aqi.Builtins(),
		predictors:       map[string]inference.Predictor{},
		defaultProfile:   aqi.ProfileFull,
		workerCount:      runtime.NumCPU(),
		queueSize:        10000,
		dedupeSize:       50000,
		historySize:      1000,
		inferenceTimeout: 250 * time.Millisecond,
		readiness:        map[string]ReadinessChecker{},
		clock:            clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates every profile against its model and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if err := s.checkProfiles(); err != nil {
		return err
	}

	s.logger.Info(ctx, "starting classification service...")

	s.history = repository.NewHistoryStore(
		repository.WithCapacity(s.historySize),
		repository.WithClock(s.clock),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = readingqueue.NewInMemoryQueue(readingqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s)

	// Workers outlive the start context; Stop drains them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	metrics.UpdateProfilesConfigured(len(s.profiles))
	metrics.UpdateModelsLoaded(len(s.predictors))

	s.started = true
	s.logger.Info(ctx, "classification service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("historySize", s.historySize),
		logger.Int("profiles", len(s.profiles)),
		logger.String("defaultProfile", s.defaultProfile),
	)
	return nil
}

func (s *Service) checkProfiles() error {
	const op = "service.start"
	if _, ok := s.profiles[s.defaultProfile]; !ok {
		return aqi.Errorf(op, aqi.ErrConfig, "default profile %q is not configured", s.defaultProfile)
	}
	for name, p := range s.profiles {
		if p.Name != name {
			return aqi.Errorf(op, aqi.ErrConfig, "profile registered as %q is named %q", name, p.Name)
		}
		if err := p.Validate(); err != nil {
			return err
		}
		pred, ok := s.predictors[name]
		if !ok || pred == nil {
			return aqi.Errorf(op, aqi.ErrConfig, "no model for profile %q", name)
		}
		if err := inference.CheckSchema(pred, p.FeatureKeys()); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return nil
}

// Stop drains queued readings until ctx expires and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping classification service...",
		logger.Int("pending", s.queue.Len(ctx)))

	err := s.pool.Shutdown(ctx)
	s.cancel()
	s.started = false

	s.logger.Info(ctx, "classification service stopped",
		logger.Int64("processed", s.pool.Processed()),
		logger.Int64("failed", s.pool.Failed()),
	)
	return err
}

// Classify evaluates values synchronously with the named profile. An empty
// name selects the default profile.
func (s *Service) Classify(ctx context.Context, profile string, values map[string]float64) (model.Evaluation, error) {
	if err := s.requireStarted(); err != nil {
		return model.Evaluation{}, err
	}
	r := model.Reading{
		ID:         uuid.NewString(),
		Profile:    profile,
		Values:     values,
		ReceivedAt: s.clock.Now().UTC(),
	}
	return s.evaluate(ctx, r)
}

// Submit queues a reading for asynchronous evaluation. Readings whose id
// was already accepted are reported as duplicates and dropped. The values
// are checked against the profile before the reading is queued.
func (s *Service) Submit(ctx context.Context, r model.Reading) (bool, error) { //nolint:gocritic // hugeParam: readings are values end to end
	const op = "service.submit"
	if err := s.requireStarted(); err != nil {
		return false, err
	}
	p, err := s.resolve(r.Profile)
	if err != nil {
		return false, err
	}
	if _, err := p.Features(r.Values); err != nil {
		return false, err
	}
	r.Profile = p.Name
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = s.clock.Now().UTC()
	}

	if s.deduper.SeenAndRecord(ctx, r.ID) {
		metrics.RecordReadingDuplicate()
		s.logger.Debug(ctx, "duplicate reading detected, skipping",
			logger.String("readingID", r.ID),
			logger.String("station", r.StationID),
		)
		return true, nil
	}

	if err := s.queue.Enqueue(ctx, r); err != nil {
		s.deduper.Unrecord(ctx, r.ID)
		if errors.Is(err, readingqueue.ErrFull) {
			return false, fmt.Errorf("%s: %w", op, ErrBackpressure)
		}
		if errors.Is(err, readingqueue.ErrClosed) {
			return false, fmt.Errorf("%s: %w", op, ErrNotStarted)
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordReadingSubmitted()
	return false, nil
}

// Evaluate runs the pipeline for a queued reading. Readings that failed
// inference are forgotten by the deduper so a redelivery is retried.
func (s *Service) Evaluate(ctx context.Context, r model.Reading) (model.Evaluation, error) { //nolint:gocritic // hugeParam: readings are values end to end
	ev, err := s.evaluate(ctx, r)
	if err != nil && errors.Is(err, aqi.ErrInferenceFailure) && r.ID != "" {
		s.deduper.Unrecord(ctx, r.ID)
	}
	return ev, err
}

func (s *Service) evaluate(ctx context.Context, r model.Reading) (model.Evaluation, error) { //nolint:gocritic // hugeParam: readings are values end to end
	p, err := s.resolve(r.Profile)
	if err != nil {
		return model.Evaluation{}, err
	}
	ev, err := s.run(ctx, p, r)
	if err != nil {
		metrics.RecordInferenceError(p.Name, errorKind(err))
		return model.Evaluation{}, err
	}
	stored, err := s.history.Append(ctx, ev)
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("record evaluation: %w", err)
	}
	metrics.RecordClassification(p.Name, stored.Result.Category)
	s.publish(ctx, stored)
	return stored, nil
}

func (s *Service) run(ctx context.Context, p *aqi.Profile, r model.Reading) (model.Evaluation, error) { //nolint:gocritic // hugeParam: readings are values end to end
	fv, err := p.Features(r.Values)
	if err != nil {
		return model.Evaluation{}, err
	}
	score, err := s.predict(ctx, p.Name, fv)
	if err != nil {
		return model.Evaluation{}, err
	}
	result, err := p.Classify(fv, score)
	if err != nil {
		return model.Evaluation{}, err
	}
	return model.Evaluation{
		ID:          r.ID,
		StationID:   r.StationID,
		Profile:     p.Name,
		Features:    fv,
		Result:      result,
		Gauge:       p.Describe(result),
		EvaluatedAt: s.clock.Now().UTC(),
	}, nil
}

type prediction struct {
	score float64
	err   error
}

// predict calls the profile's model, bounded by the inference timeout.
func (s *Service) predict(ctx context.Context, profile string, fv aqi.FeatureVector) (float64, error) {
	const op = "service.predict"
	pred := s.predictors[profile]
	if s.inferenceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.inferenceTimeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan prediction, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- prediction{err: aqi.Errorf(op, aqi.ErrInferenceFailure, "model panicked: %v", rec)}
			}
		}()
		score, err := pred.Predict(ctx, fv)
		done <- prediction{score: score, err: err}
	}()

	res, ok := awaitPrediction(ctx, done)
	if !ok {
		return 0, aqi.Wrap(op, aqi.ErrInferenceFailure, ctx.Err())
	}
	metrics.RecordInferenceLatency(profile, float64(time.Since(start).Microseconds())/1000)
	if res.err != nil {
		if errors.Is(res.err, aqi.ErrInvalidInput) || errors.Is(res.err, aqi.ErrConfig) || errors.Is(res.err, aqi.ErrInferenceFailure) {
			return 0, res.err
		}
		return 0, aqi.Wrap(op, aqi.ErrInferenceFailure, res.err)
	}
	return res.score, nil
}

// awaitPrediction waits for the model or for ctx. A result that is already
// available when ctx expires still wins.
func awaitPrediction(ctx context.Context, done <-chan prediction) (prediction, bool) {
	select {
	case res := <-done:
		return res, true
	default:
	}
	select {
	case res := <-done:
		return res, true
	case <-ctx.Done():
		select {
		case res := <-done:
			return res, true
		default:
			return prediction{}, false
		}
	}
}

// publish fans ev out to every sink. Failures are logged and counted only.
func (s *Service) publish(ctx context.Context, ev model.Evaluation) { //nolint:gocritic // hugeParam: evaluations are values end to end
	if len(s.publishers) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	for _, p := range s.publishers {
		err := p.Publish(ctx, ev)
		metrics.RecordPublish(p.Name(), err)
		if err != nil {
			s.logger.Warn(ctx, "failed to publish evaluation",
				logger.String("sink", p.Name()),
				logger.String("evaluationID", ev.ID),
				logger.Error(err),
			)
		}
	}
}

func (s *Service) resolve(name string) (*aqi.Profile, error) {
	if name == "" {
		name = s.defaultProfile
	}
	p, ok := s.profiles[name]
	if !ok {
		return nil, aqi.Wrap("service.resolve_profile", aqi.ErrInvalidInput, fmt.Errorf("%w: %q", ErrUnknownProfile, name))
	}
	return p, nil
}

func (s *Service) requireStarted() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Profiles returns the configured profiles ordered by name.
func (s *Service) Profiles() []*aqi.Profile {
	out := make([]*aqi.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Profile returns the named profile.
func (s *Service) Profile(name string) (*aqi.Profile, error) {
	return s.resolve(name)
}

// DefaultProfile returns the name of the profile used when none is given.
func (s *Service) DefaultProfile() string { return s.defaultProfile }

// ModelVersion returns the version of the model serving profile, if known.
func (s *Service) ModelVersion(profile string) string {
	if v, ok := s.predictors[profile].(versioned); ok {
		return v.Version()
	}
	return ""
}

// Latest returns the most recent evaluation of a station.
func (s *Service) Latest(ctx context.Context, stationID string) (model.Evaluation, error) {
	if err := s.requireStarted(); err != nil {
		return model.Evaluation{}, err
	}
	return s.history.Latest(ctx, stationID)
}

// Recent returns up to n evaluations, newest first.
func (s *Service) Recent(ctx context.Context, n int) ([]model.Evaluation, error) {
	if err := s.requireStarted(); err != nil {
		return nil, err
	}
	return s.history.Recent(ctx, n)
}

// CheckReadiness reports whether the service can accept work.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if err := s.requireStarted(); err != nil {
		return err
	}
	if s.queue.IsClosed() {
		return fmt.Errorf("reading queue: %w", readingqueue.ErrClosed)
	}
	for name, c := range s.readiness {
		if err := c.Ready(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.profiles))
	models := make(map[string]string, len(s.predictors))
	for name := range s.profiles {
		names = append(names, name)
		models[name] = s.ModelVersion(name)
	}
	sort.Strings(names)

	stats := map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"historySize":    s.historySize,
		"defaultProfile": s.defaultProfile,
		"profiles":       names,
		"models":         models,
	}

	if s.history != nil {
		ctx := context.Background()
		stats["queueLength"] = s.queue.Len(ctx)
		stats["dedupeEntries"] = s.deduper.Size()
		stats["evaluations"] = s.history.Count(ctx)
		stats["stations"] = s.history.Stations(ctx)
		stats["categories"] = s.history.CategoryCounts(ctx)
		stats["processed"] = s.pool.Processed()
		stats["failed"] = s.pool.Failed()
	}
	return stats
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, aqi.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, aqi.ErrConfig):
		return "config_error"
	case errors.Is(err, aqi.ErrInferenceFailure):
		return "inference_failure"
	default:
		return "unknown"
	}
}
