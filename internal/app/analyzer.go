package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fluency/internal/adapters/repository"
	"github.com/okian/fluency/internal/adapters/transcription"
	"github.com/okian/fluency/internal/domain/failure"
	"github.com/okian/fluency/internal/domain/model"
	"github.com/okian/fluency/internal/domain/scoring"
	"github.com/okian/fluency/pkg/logger"
	"github.com/okian/fluency/pkg/metrics"
)

// SilenceDetector returns the non-silent ranges of an audio file.
type SilenceDetector interface {
	Detect(ctx context.Context, path string) ([]model.SpeechRange, error)
}

// Analyzer runs one upload through transcription, silence detection and
// scoring. It implements worker.Processor.
type Analyzer struct {
	transcriber transcription.Transcriber
	detector    SilenceDetector
	scorer      *scoring.PauseScorer
	store       repository.Store
	tempDir     string

	logger logger.Logger
}

// NewAnalyzer creates an Analyzer. A nil store disables leaderboard submission.
func NewAnalyzer(t transcription.Transcriber, d SilenceDetector, scorer *scoring.PauseScorer, store repository.Store) *Analyzer {
	if scorer == nil {
		scorer = scoring.NewPauseScorer()
	}
	return &Analyzer{
		transcriber: t,
		detector:    d,
		scorer:      scorer,
		store:       store,
		logger:      logger.Get().Named("analyzer"),
	}
}

// Process analyzes the upload and, for identified users, adds the damage to
// the leaderboard.
func (a *Analyzer) Process(ctx context.Context, upload model.Upload) (model.AnalysisResult, error) {
	start := time.Now()
	res, err := a.process(ctx, upload)

	outcome := "ok"
	if err != nil {
		outcome = failure.KindOf(err).String()
		metrics.RecordError("analysis", outcome)
	}
	metrics.RecordAnalysis(outcome, float64(time.Since(start).Milliseconds()))

	return res, err
}

func (a *Analyzer) process(ctx context.Context, upload model.Upload) (model.AnalysisResult, error) {
	path, err := a.spool(upload)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			a.logger.Warn(ctx, "failed to remove upload temp file", logger.String("path", path), logger.Error(rmErr))
		}
	}()

	var (
		transcript transcription.Transcript
		ranges     []model.SpeechRange
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := a.transcriber.Transcribe(gctx, path)
		if err != nil {
			return err
		}
		transcript = t
		return nil
	})
	g.Go(func() error {
		detectStart := time.Now()
		r, err := a.detector.Detect(gctx, path)
		metrics.RecordSilenceDetectionLatency(float64(time.Since(detectStart).Milliseconds()))
		if err != nil {
			return err
		}
		ranges = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.AnalysisResult{}, err
	}

	score := a.scorer.Score(ranges)
	metrics.RecordScore(score.Damage, score.PauseCount, score.MaxPauseSeconds)

	result := model.AnalysisResult{
		Transcription:    transcript.Text,
		WordCount:        transcript.WordCount,
		MaxPauseDuration: score.MaxPauseSeconds,
		PauseCount:       score.PauseCount,
		Damage:           score.Damage,
		Feedback:         score.Feedback,
	}

	if upload.Identified() && a.store != nil {
		if _, err := a.store.Submit(ctx, model.Submission{
			UserID:   upload.UserID,
			Username: upload.Username,
			Damage:   score.Damage,
		}); err != nil {
			return model.AnalysisResult{}, fmt.Errorf("submit analysis damage: %w", err)
		}
		metrics.RecordLeaderboardSubmission("analysis")
	}

	a.logger.Debug(ctx, "analysis finished",
		logger.String("filename", upload.Filename),
		logger.Int("ranges", len(ranges)),
		logger.Float64("max_pause", score.MaxPauseSeconds),
		logger.Int("damage", score.Damage),
	)

	return result, nil
}

// spool copies the upload body to a temp file named after its extension.
func (a *Analyzer) spool(upload model.Upload) (string, error) {
	const op = "save upload"
	if upload.Body == nil {
		return "", failure.New(failure.KindUpload, op, ErrMissingAudio)
	}

	f, err := os.CreateTemp(a.tempDir, "speech-*"+filepath.Ext(filepath.Base(upload.Filename)))
	if err != nil {
		return "", failure.New(failure.KindUpload, op, err)
	}
	path := f.Name()

	if _, err := io.Copy(f, upload.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", failure.New(failure.KindUpload, op, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", failure.New(failure.KindUpload, op, err)
	}
	return path, nil
}
