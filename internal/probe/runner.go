package probe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/fluency/pkg/logger"
)

const (
	workerChannelMultiplier = 2
	progressInterval        = time.Second
	percentageMultiplier    = 100
)

// Run executes a complete probe: health check, concurrent submissions and
// verification of the resulting leaderboard.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(config.BaseURL, config.Timeout)

	logger.Get().Info(ctx, "starting leaderboard probe",
		logger.String("baseURL", config.BaseURL),
		logger.Int("users", config.Users),
		logger.Int("attemptsPerUser", config.AttemptsPerUser),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN))

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	subs, expected, err := generateSubmissions(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("generation failed: %w", err)
	}

	submitAll(ctx, config, client, subs, stats)
	if stats.Failed > 0 {
		return finish(stats), fmt.Errorf("%w: %d of %d", ErrSubmissionsFailed, stats.Failed, stats.Submitted)
	}

	if err := verifyResults(ctx, config, client, expected, stats); err != nil {
		return finish(stats), fmt.Errorf("verification failed: %w", err)
	}

	finish(stats)
	displayFinalStats(ctx, stats)
	logger.Get().Info(ctx, "probe completed successfully")
	return stats, nil
}

func finish(stats *Stats) *Stats {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	return stats
}

// submitAll sends subs through a fixed pool of workers.
func submitAll(ctx context.Context, config *Config, client *HTTPClient, subs []Submission, stats *Stats) {
	workers := max(config.Workers, 1)
	logger.Get().Info(ctx, "submitting scores",
		logger.Int("submissions", len(subs)),
		logger.Int("workers", workers))

	var submitted, successful, failed atomic.Int64
	var lastReport atomic.Int64
	lastReport.Store(time.Now().UnixNano())

	subChan := make(chan Submission, workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range subChan {
				err := client.Submit(ctx, sub)
				submitted.Add(1)
				if err != nil {
					failed.Add(1)
					if config.Verbose {
						logger.Get().Warn(ctx, "submission failed",
							logger.String("userID", sub.UserID), logger.Error(err))
					}
				} else {
					successful.Add(1)
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					logger.Get().Info(ctx, "progress",
						logger.Int64("submitted", submitted.Load()),
						logger.Int("total", len(subs)),
						logger.Int64("failed", failed.Load()))
				}
			}
		}()
	}

	go func() {
		defer close(subChan)
		for _, sub := range subs {
			select {
			case <-ctx.Done():
				return
			case subChan <- sub:
			}
		}
	}()

	wg.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Successful = int(successful.Load())
	stats.Failed = int(failed.Load())
	if ctx.Err() != nil {
		stats.Failed += len(subs) - stats.Submitted
	}

	logger.Get().Info(ctx, "submission completed",
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed))
}

// displayFinalStats logs the final probe statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Successful) / float64(stats.Submitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("usersGenerated", stats.UsersGenerated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed),
		logger.Int("usersVerified", stats.UsersVerified),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("submissionsPerSecond", perSecond))
}
