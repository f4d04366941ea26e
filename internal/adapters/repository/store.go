// Package repository holds the in-memory leaderboard.
package repository

import (
	"context"

	"github.com/okian/fluency/internal/domain/model"
)

// RankedEntry is a leaderboard entry with its 1-based position.
type RankedEntry struct {
	model.LeaderboardEntry
	Rank int `json:"rank"`
}

// Store provides read/write access to the leaderboard.
type Store interface {
	// Submit adds damage to the user's entry, creating it on first sight.
	Submit(ctx context.Context, sub model.Submission) (model.LeaderboardEntry, error)

	// Top returns up to limit entries ordered by total damage ascending.
	Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)

	// Get returns the user's entry and position.
	// Returns ErrNotFound if the user is unknown.
	Get(ctx context.Context, userID string) (RankedEntry, error)

	// Count returns the number of users on the leaderboard.
	Count(ctx context.Context) int
}
