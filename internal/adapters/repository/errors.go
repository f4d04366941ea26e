package repository

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrNotFound     = errors.New("user not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrEmptyUserID  = errors.New("user id must not be empty")
)
