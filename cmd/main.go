package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"github.com/okian/airq/internal/adapters/http/api"
	"github.com/okian/airq/internal/adapters/http/site"
	"github.com/okian/airq/internal/adapters/http/swagger"
	"github.com/okian/airq/internal/adapters/kafka"
	"github.com/okian/airq/internal/adapters/mq/mqtt"
	app "github.com/okian/airq/internal/app"
	"github.com/okian/airq/internal/config"
	"github.com/okian/airq/internal/domain/aqi"
	"github.com/okian/airq/internal/domain/inference"
	"github.com/okian/airq/pkg/logger"
	"github.com/okian/airq/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	connectTimeout            = 15 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "airq exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the service and its adapters and blocks until ctx is done.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	profiles, err := cfg.BuildProfiles()
	if err != nil {
		return err
	}
	predictors, err := loadPredictors(ctx, cfg, profiles)
	if err != nil {
		return err
	}

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithProfiles(profiles),
		app.WithPredictors(predictors),
		app.WithDefaultProfile(cfg.DefaultProfile),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithHistorySize(cfg.HistorySize),
		app.WithInferenceTimeout(cfg.InferenceTimeout()),
	}

	var mqttClient *mqtt.Client
	if cfg.MQTTEnabled() {
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		mqttClient, err = mqtt.NewClient(connectCtx, mqtt.ClientConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		})
		cancel()
		if err != nil {
			return err
		}
		defer mqttClient.Close()
		opts = append(opts,
			app.WithPublishers(mqtt.NewPublisher(mqttClient.Native(), cfg.MQTTResultTopic)),
			app.WithReadinessCheck("mqtt", mqttClient),
		)
	}

	if cfg.KafkaEnabled() {
		writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := writer.Close(); err != nil {
				log.Warn(ctx, "kafka writer close failed", logger.Error(err))
			}
		}()
		opts = append(opts, app.WithPublishers(writer))
		log.Info(ctx, "kafka result stream enabled", logger.String("topic", cfg.KafkaTopic))
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	var sub *mqtt.Subscriber
	if mqttClient != nil {
		sub, err = mqtt.NewSubscriber(mqttClient.Native(), cfg.MQTTReadingTopic, svc)
		if err == nil {
			err = sub.Subscribe(ctx)
		}
		if err != nil {
			_ = svc.Stop(context.Background())
			return err
		}
	}

	// Start background metrics updaters
	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a server failure
	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if sub != nil {
		if err := sub.Unsubscribe(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "mqtt unsubscribe failed", logger.Error(err))
		}
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "service shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return runErr
}

// loadPredictors loads the model artifact configured for every profile.
func loadPredictors(ctx context.Context, cfg *config.Config, profiles map[string]*aqi.Profile) (map[string]inference.Predictor, error) {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]inference.Predictor, len(names))
	for _, name := range names {
		path, ok := cfg.ModelPaths[name]
		if !ok || path == "" {
			return nil, aqi.Errorf("main.load_models", aqi.ErrConfig, "no model path for profile %q", name)
		}
		p, err := inference.Load(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		out[name] = p
		logger.Get().Info(ctx, "model loaded", logger.String("profile", name), logger.String("path", path))
	}
	return out, nil
}

// newHandler registers every route and wraps the mux with panic recovery
// and CORS.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	api.NewServer(svc, cfg.MaxRecentLimit).Register(ctx, mux)

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log: logger.Get().Named("http")}),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(cors(mux))
}

// recoveryLogger adapts the logger to gorilla's recovery handler.
type recoveryLogger struct {
	log logger.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	metrics.RecordErrorByComponent("http", "panic")
	l.log.Error(context.Background(), "recovered from panic", logger.String("panic", fmt.Sprint(v...)))
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges derived from service stats.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if queueSize, ok := stats["queueSize"].(int); ok {
		metrics.UpdateQueueCapacity(queueSize)
	}
	if evaluations, ok := stats["evaluations"].(int); ok {
		metrics.UpdateHistoryRecords(evaluations)
	}
	if started, _ := stats["started"].(bool); started {
		if workerCount, ok := stats["workerCount"].(int); ok {
			metrics.UpdateWorkerCount(workerCount)
		}
	}
}
