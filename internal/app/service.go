// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fluency/internal/adapters/mq/queue"
	"github.com/okian/fluency/internal/adapters/mq/worker"
	"github.com/okian/fluency/internal/adapters/repository"
	"github.com/okian/fluency/internal/adapters/transcription"
	"github.com/okian/fluency/internal/domain/failure"
	"github.com/okian/fluency/internal/domain/model"
	"github.com/okian/fluency/internal/domain/scoring"
	"github.com/okian/fluency/pkg/logger"
	"github.com/okian/fluency/pkg/metrics"
)

const (
	defaultQueueSize     = 64
	defaultMaxLimit      = 100
	defaultStopTimeout   = 30 * time.Second
	submissionSourceForm = "form"
	analysisJobIDPrefix  = "analysis-"
)

// Service implements the API dependencies for speech analysis and the leaderboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	transcriber transcription.Transcriber
	detector    SilenceDetector
	scorer      *scoring.PauseScorer
	store       repository.Store
	ownsStore   bool
	queue       *queue.InMemoryQueue
	pool        *worker.Pool

	// Configuration
	workerCount int
	queueSize   int
	maxLimit    int
	storeOpts   []repository.Option
	tempDir     string

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of analysis workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many analyses may wait for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
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

// WithTranscriber sets the speech-to-text backend.
func WithTranscriber(t transcription.Transcriber) Option {
	return func(s *Service) { s.transcriber = t }
}

// WithDetector sets the silence detector.
func WithDetector(d SilenceDetector) Option {
	return func(s *Service) { s.detector = d }
}

// WithScorer sets the pause scorer.
func WithScorer(scorer *scoring.PauseScorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithStore uses an existing leaderboard store. The service does not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithStoreOptions configures the treap store created on Start.
func WithStoreOptions(opts ...repository.Option) Option {
	return func(s *Service) { s.storeOpts = append(s.storeOpts, opts...) }
}

// WithTempDir sets where uploads are spooled before analysis.
func WithTempDir(dir string) Option {
	return func(s *Service) {
		s.tempDir = dir
	}
}

// WithMaxLeaderboardLimit caps how many entries a leaderboard read returns.
func WithMaxLeaderboardLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxLimit = limit
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		maxLimit:    defaultMaxLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the store, queue and worker pool and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.transcriber == nil {
		return ErrMissingTranscriber
	}
	if s.detector == nil {
		return ErrMissingDetector
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.scorer == nil {
		s.scorer = scoring.NewPauseScorer()
	}

	s.logger.Info(ctx, "starting speech analysis service...")

	if s.store == nil {
		s.store = repository.NewTreapStore(ctx, s.storeOpts...)
		s.ownsStore = true
		s.logger.Info(ctx, "using treap store")
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	analyzer := NewAnalyzer(s.transcriber, s.detector, s.scorer, s.store)
	analyzer.tempDir = s.tempDir
	s.pool = worker.NewPool(s.workerCount, s.queue, analyzer)
	// Workers outlive ctx so analyses queued during HTTP shutdown still
	// finish; Stop ends them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "speech analysis service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Float64("pauseThreshold", s.scorer.Threshold()),
	)

	return nil
}

// Stop drains the analysis queue and shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultStopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping speech analysis service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}

	if s.ownsStore {
		if closer, ok := s.store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(ctx, "speech analysis service stopped")
}

// Analyze queues the upload for a worker and waits for its result.
// A full queue fails with failure.KindUnavailable.
func (s *Service) Analyze(ctx context.Context, upload model.Upload) (model.AnalysisResult, error) {
	const op = "analyze speech"

	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()
	if !started {
		return model.AnalysisResult{}, failure.New(failure.KindUnavailable, op, ErrNotStarted)
	}

	job := queue.NewJob(ctx, analysisJobIDPrefix+uuid.NewString(), upload)
	if err := q.Enqueue(ctx, job); err != nil {
		if errors.Is(err, queue.ErrFull) || errors.Is(err, queue.ErrClosed) {
			return model.AnalysisResult{}, failure.New(failure.KindUnavailable, op, err)
		}
		return model.AnalysisResult{}, err
	}

	select {
	case res := <-job.Done():
		return res.Analysis, res.Err
	case <-ctx.Done():
		return model.AnalysisResult{}, ctx.Err()
	}
}

// Submit adds a manually reported score to the leaderboard.
func (s *Service) Submit(ctx context.Context, sub model.Submission) (model.LeaderboardEntry, error) {
	const op = "submit score"

	sub.UserID = strings.TrimSpace(sub.UserID)
	sub.Username = strings.TrimSpace(sub.Username)
	sub.BandScore = strings.TrimSpace(sub.BandScore)
	switch {
	case sub.UserID == "":
		return model.LeaderboardEntry{}, failure.Newf(failure.KindInvalidInput, op, "user_id is required")
	case sub.Username == "":
		return model.LeaderboardEntry{}, failure.Newf(failure.KindInvalidInput, op, "username is required")
	}

	store, err := s.currentStore()
	if err != nil {
		return model.LeaderboardEntry{}, failure.New(failure.KindUnavailable, op, err)
	}

	entry, err := store.Submit(ctx, sub)
	if err != nil {
		return model.LeaderboardEntry{}, err
	}
	metrics.RecordLeaderboardSubmission(submissionSourceForm)
	return entry, nil
}

// Top returns up to limit leaderboard entries, ascending by total damage.
// Limits above the configured maximum are clamped.
func (s *Service) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	const op = "read leaderboard"

	if limit < 0 {
		return nil, failure.New(failure.KindInvalidInput, op, repository.ErrInvalidLimit)
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	store, err := s.currentStore()
	if err != nil {
		return nil, failure.New(failure.KindUnavailable, op, err)
	}
	return store.Top(ctx, limit)
}

// Get returns a user's entry and rank, or repository.ErrNotFound.
func (s *Service) Get(ctx context.Context, userID string) (repository.RankedEntry, error) {
	const op = "read leaderboard entry"

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return repository.RankedEntry{}, failure.New(failure.KindInvalidInput, op, repository.ErrEmptyUserID)
	}

	store, err := s.currentStore()
	if err != nil {
		return repository.RankedEntry{}, failure.New(failure.KindUnavailable, op, err)
	}
	return store.Get(ctx, userID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueCapacity": s.queueSize,
		"maxLimit":      s.maxLimit,
	}
	if s.scorer != nil {
		stats["pauseThreshold"] = s.scorer.Threshold()
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		entries := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["leaderboardEntries"] = entries
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())

		metrics.UpdateLeaderboardEntries(entries)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}

func (s *Service) currentStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}
