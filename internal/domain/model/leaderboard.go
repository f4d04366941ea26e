package model

import "time"

// LeaderboardEntry is a user's cumulative record on the leaderboard.
type LeaderboardEntry struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	TotalDamage int       `json:"total_damage"`
	Attempts    int       `json:"attempts"`
	BestBand    string    `json:"best_band"`
	LastPlayed  time.Time `json:"last_played"`
}

// Submission is one damage report for a user. BandScore is optional.
type Submission struct {
	UserID    string
	Username  string
	Damage    int
	BandScore string
}
