// Package model contains domain models passed between layers.
package model

import "io"

// SpeechRange is a non-silent interval of a clip in milliseconds.
type SpeechRange struct {
	StartMS int64
	EndMS   int64
}

// DurationMS returns the length of the range.
func (r SpeechRange) DurationMS() int64 { return r.EndMS - r.StartMS }

// AnalysisResult is the outcome of analysing one uploaded clip.
// Field names mirror the /analyze-speech response.
type AnalysisResult struct {
	Transcription    string  `json:"transcription"`
	WordCount        int     `json:"word_count"`
	MaxPauseDuration float64 `json:"max_pause_duration"` // seconds, 2 decimals
	PauseCount       int     `json:"pause_count"`
	Damage           int     `json:"damage"`
	Feedback         string  `json:"feedback"`
}

// Upload is an audio clip received from a client, plus optional identity used
// to credit the leaderboard.
type Upload struct {
	Filename string
	Body     io.Reader
	UserID   string
	Username string
}

// Identified reports whether the upload names both a user id and a username.
func (u Upload) Identified() bool { return u.UserID != "" && u.Username != "" }
