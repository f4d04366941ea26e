// Package scoring turns detected speech ranges into a pause-based damage score.
package scoring

import (
	"math"

	"github.com/okian/fluency/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultPauseThreshold   = 2.0 // seconds
	defaultHesitationDamage = 10

	FeedbackHesitation = "Hesitation detected"
	FeedbackFluent     = "Great fluency!"
)

// Option applies a configuration option to the PauseScorer.
type Option func(*PauseScorer)

// WithPauseThreshold sets the gap, in seconds, above which a pause counts.
func WithPauseThreshold(seconds float64) Option {
	return func(s *PauseScorer) {
		if seconds > 0 {
			s.threshold = seconds
		}
	}
}

// WithHesitationDamage sets the damage assigned when hesitation is detected.
func WithHesitationDamage(damage int) Option {
	return func(s *PauseScorer) {
		if damage >= 0 {
			s.damage = damage
		}
	}
}

// Result is the scoring decision for one clip.
type Result struct {
	MaxPauseSeconds float64 // rounded to 2 decimals
	PauseCount      int
	Damage          int
	Feedback        string
}

// PauseScorer scores ordered, non-overlapping speech ranges.
type PauseScorer struct {
	threshold float64
	damage    int
}

// NewPauseScorer creates a scorer with a 2 s threshold and damage of 10.
func NewPauseScorer(opts ...Option) *PauseScorer {
	s := &PauseScorer{
		threshold: defaultPauseThreshold,
		damage:    defaultHesitationDamage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the longest gap between adjacent ranges and the number of
// gaps above the threshold. The decision uses the unrounded gap.
func (s *PauseScorer) Score(ranges []model.SpeechRange) Result {
	var maxPause float64
	var count int
	for i := 0; i+1 < len(ranges); i++ {
		gap := float64(ranges[i+1].StartMS-ranges[i].EndMS) / 1000
		if gap > maxPause {
			maxPause = gap
		}
		if gap > s.threshold {
			count++
		}
	}

	res := Result{
		MaxPauseSeconds: math.Round(maxPause*100) / 100,
		PauseCount:      count,
		Feedback:        FeedbackFluent,
	}
	if maxPause > s.threshold {
		res.Damage = s.damage
		res.Feedback = FeedbackHesitation
	}
	return res
}

// Threshold returns the configured pause threshold in seconds.
func (s *PauseScorer) Threshold() float64 { return s.threshold }
