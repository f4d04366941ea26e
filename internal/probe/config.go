package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL         string        // Base URL of the service
	Users           int           // Number of distinct users to create
	AttemptsPerUser int           // Submissions sent for each user
	MaxDamage       int           // Upper bound (inclusive) of per-attempt damage
	TopN            int           // Leaderboard size to fetch and check
	Workers         int           // Number of concurrent submitters
	Timeout         time.Duration // HTTP request timeout
	LogFile         string        // Log file for probe output
	Verbose         bool          // Enable per-request logging
}

// Submission is one score report sent to /leaderboard/submit.
type Submission struct {
	UserID    string
	Username  string
	Damage    int
	BandScore string
}

// Expected is the state the leaderboard should hold for one user once every
// submission for that user has been accepted.
type Expected struct {
	Username    string
	TotalDamage int
	Attempts    int
}

// Stats holds probe statistics.
type Stats struct {
	UsersGenerated     int
	Submitted          int
	Successful         int
	Failed             int
	UsersVerified      int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
