package probe

import "errors"

var (
	// ErrUnhealthy is returned when the service health check does not answer 200.
	ErrUnhealthy = errors.New("service unhealthy")
	// ErrSubmissionsFailed is returned when any submission was rejected.
	ErrSubmissionsFailed = errors.New("submissions failed")
	// ErrEntryMismatch is returned when a user's totals differ from what was sent.
	ErrEntryMismatch = errors.New("leaderboard entry mismatch")
	// ErrOrdering is returned when the leaderboard is not in ascending damage order.
	ErrOrdering = errors.New("leaderboard out of order")
	// ErrRankMismatch is returned when a per-user rank disagrees with the list position.
	ErrRankMismatch = errors.New("rank mismatch")
	// ErrUnexpectedStatus is returned for non-200 responses.
	ErrUnexpectedStatus = errors.New("unexpected status")
)
