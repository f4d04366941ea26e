package probe

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fluency/internal/adapters/repository"
	"github.com/okian/fluency/internal/domain/model"
	"github.com/okian/fluency/pkg/logger"
)

// verifyResults checks every generated user's entry and the ordering of the
// top of the leaderboard.
func verifyResults(ctx context.Context, config *Config, client *HTTPClient, expected map[string]Expected, stats *Stats) error {
	logger.Get().Info(ctx, "verifying results", logger.Int("users", len(expected)))

	ranked, err := fetchEntries(ctx, config, client, expected)
	if err != nil {
		return err
	}
	for id, want := range expected {
		if err := checkEntry(ranked[id], want); err != nil {
			return fmt.Errorf("user %s: %w", id, err)
		}
	}
	stats.UsersVerified = len(ranked)

	top, err := client.Top(ctx, config.TopN)
	if err != nil {
		return fmt.Errorf("fetch leaderboard: %w", err)
	}
	stats.LeaderboardEntries = len(top)
	if err := checkOrdering(top); err != nil {
		return err
	}
	if err := checkRanks(top, ranked); err != nil {
		return err
	}

	displayTop(ctx, top, config.Verbose)
	logger.Get().Info(ctx, "verification completed")
	return nil
}

// fetchEntries looks up every expected user concurrently.
func fetchEntries(ctx context.Context, config *Config, client *HTTPClient, expected map[string]Expected) (map[string]repository.RankedEntry, error) {
	var mu sync.Mutex
	out := make(map[string]repository.RankedEntry, len(expected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(config.Workers, 1))
	for id := range expected {
		g.Go(func() error {
			entry, err := client.Entry(gctx, id)
			if err != nil {
				return fmt.Errorf("fetch entry %s: %w", id, err)
			}
			mu.Lock()
			out[id] = entry
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func checkEntry(got repository.RankedEntry, want Expected) error {
	if got.TotalDamage != want.TotalDamage {
		return fmt.Errorf("%w: total_damage %d, want %d", ErrEntryMismatch, got.TotalDamage, want.TotalDamage)
	}
	if got.Attempts != want.Attempts {
		return fmt.Errorf("%w: attempts %d, want %d", ErrEntryMismatch, got.Attempts, want.Attempts)
	}
	if got.Username != want.Username {
		return fmt.Errorf("%w: username %q, want %q", ErrEntryMismatch, got.Username, want.Username)
	}
	if got.Rank < 1 {
		return fmt.Errorf("%w: rank %d", ErrEntryMismatch, got.Rank)
	}
	return nil
}

// checkOrdering requires total damage to be non-decreasing down the list.
func checkOrdering(top []model.LeaderboardEntry) error {
	for i := 1; i < len(top); i++ {
		if top[i].TotalDamage < top[i-1].TotalDamage {
			return fmt.Errorf("%w: entry %d has %d damage, entry %d has %d",
				ErrOrdering, i, top[i].TotalDamage, i-1, top[i-1].TotalDamage)
		}
	}
	return nil
}

// checkRanks compares list positions with the ranks reported per user. Only
// users created by this run are checked.
func checkRanks(top []model.LeaderboardEntry, ranked map[string]repository.RankedEntry) error {
	for i, e := range top {
		r, ok := ranked[e.UserID]
		if !ok {
			continue
		}
		if r.Rank != i+1 {
			return fmt.Errorf("%w: user %s at position %d reports rank %d", ErrRankMismatch, e.UserID, i+1, r.Rank)
		}
		if r.TotalDamage != e.TotalDamage {
			return fmt.Errorf("%w: user %s list damage %d, entry damage %d",
				ErrEntryMismatch, e.UserID, e.TotalDamage, r.TotalDamage)
		}
	}
	return nil
}

func displayTop(ctx context.Context, top []model.LeaderboardEntry, verbose bool) {
	n := len(top)
	if !verbose {
		n = min(n, 10)
	}
	for i := 0; i < n; i++ {
		logger.Get().Info(ctx, "leaderboard",
			logger.Int("rank", i+1),
			logger.String("userID", top[i].UserID),
			logger.String("username", top[i].Username),
			logger.Int("totalDamage", top[i].TotalDamage),
			logger.Int("attempts", top[i].Attempts))
	}
}
