package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/fluency/internal/adapters/http/api"
	"github.com/okian/fluency/internal/adapters/http/swagger"
	"github.com/okian/fluency/internal/adapters/repository"
	"github.com/okian/fluency/internal/adapters/transcription"
	app "github.com/okian/fluency/internal/app"
	"github.com/okian/fluency/internal/audio"
	"github.com/okian/fluency/internal/config"
	"github.com/okian/fluency/internal/domain/scoring"
	"github.com/okian/fluency/pkg/logger"
	"github.com/okian/fluency/pkg/metrics"
)

// HTTP server timeout constants. Analyses wait on an external transcription
// call, so writes get a long deadline.
const (
	readTimeout               = 60 * time.Second
	writeTimeout              = 180 * time.Second
	idleTimeout               = 120 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	sentryFlushTimeout        = 2 * time.Second
	sentryTracesSampleRate    = 0.2
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (.env -> defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	loggerInstance := logger.Get()

	metrics.Configure(metricsOptions(cfg)...)

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: sentryTracesSampleRate,
			Environment:      cfg.Environment,
		}); err != nil {
			loggerInstance.Warn(ctx, "sentry init failed", logger.Error(err))
		} else {
			loggerInstance.Info(ctx, "sentry initialized", logger.String("environment", cfg.Environment))
			defer sentry.Flush(sentryFlushTimeout)
		}
	}

	svc, err := buildService(ctx, cfg, loggerInstance)
	if err != nil {
		sentry.CaptureException(err)
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		return
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	srv := newHTTPServer(ctx, cfg, svc)

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("transcriber", cfg.Transcriber),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(context.Background(), "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(shutdownCtx, "server stopped")
}

// buildService wires the transcriber, silence detector, scorer and store
// described by cfg into a service. The service is not started.
func buildService(ctx context.Context, cfg *config.Config, l logger.Logger) (*app.Service, error) {
	tr, err := transcription.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create transcriber: %w", err)
	}

	detector := audio.NewDetector(
		audio.NewDecoder(audio.WithFFmpegPath(cfg.FFmpegPath), audio.WithTempDir(cfg.TempDir)),
		cfg.MinSilenceMS,
		cfg.SilenceThreshDB,
	)
	scorer := scoring.NewPauseScorer(
		scoring.WithPauseThreshold(cfg.PauseThresholdSeconds),
		scoring.WithHesitationDamage(cfg.HesitationDamage),
	)

	return app.New(
		app.WithLogger(l),
		app.WithTranscriber(tr),
		app.WithDetector(detector),
		app.WithScorer(scorer),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
		app.WithTempDir(cfg.TempDir),
		app.WithStoreOptions(repository.WithDefaultBand(cfg.DefaultBestBand)),
	), nil
}

// metricsOptions names and labels the metrics from cfg.
func metricsOptions(cfg *config.Config) []metrics.Option {
	opts := []metrics.Option{
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.MetricsLatencyBucketsMS),
	}
	if cfg.Environment != "" {
		opts = append(opts, metrics.WithConstLabels(map[string]string{"environment": cfg.Environment}))
	}
	return opts
}

// newHTTPServer registers the API and docs routes and wraps them in the
// request middleware.
func newHTTPServer(ctx context.Context, cfg *config.Config, svc *app.Service) *http.Server {
	mux := http.NewServeMux()

	// API reference under /api-docs and /openapi.yaml
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithDefaultLeaderboardLimit(cfg.DefaultLeaderboardLimit),
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
		api.WithCORSOrigin(cfg.CORSAllowedOrigin),
	)
	apiServer.Register(ctx, mux)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(mux),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
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

// updateServiceMetrics refreshes queue and leaderboard gauges from the service stats.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}

	if entries, ok := stats["leaderboardEntries"].(int); ok {
		metrics.UpdateLeaderboardEntries(entries)
	}
}
