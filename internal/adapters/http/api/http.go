// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/okian/fluency/internal/domain/model"
	"github.com/okian/fluency/pkg/logger"
)

const (
	defaultLeaderboardLimit = 10
	defaultMaxUploadBytes   = 25 << 20
	defaultCORSOrigin       = "*"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AnalyzeDependencies
	LeaderboardDependencies
}

// Server wires HTTP routes for the speech analysis API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	analyzeHandler     *AnalyzeHandler
	leaderboardHandler *LeaderboardHandler

	corsOrigin string
}

// Option applies a configuration option to the Server.
type Option func(*serverOptions)

type serverOptions struct {
	defaultLimit   int
	maxUploadBytes int64
	corsOrigin     string
}

// WithDefaultLeaderboardLimit sets the limit used when ?limit is absent.
func WithDefaultLeaderboardLimit(limit int) Option {
	return func(o *serverOptions) {
		if limit >= 0 {
			o.defaultLimit = limit
		}
	}
}

// WithMaxUploadBytes caps the request body of /analyze-speech.
func WithMaxUploadBytes(n int64) Option {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxUploadBytes = n
		}
	}
}

// WithCORSOrigin sets the Access-Control-Allow-Origin value.
func WithCORSOrigin(origin string) Option {
	return func(o *serverOptions) {
		if origin != "" {
			o.corsOrigin = origin
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := serverOptions{
		defaultLimit:   defaultLeaderboardLimit,
		maxUploadBytes: defaultMaxUploadBytes,
		corsOrigin:     defaultCORSOrigin,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		analyzeHandler:     NewAnalyzeHandler(deps, o.maxUploadBytes),
		leaderboardHandler: NewLeaderboardHandler(deps, o.defaultLimit),
		corsOrigin:         o.corsOrigin,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", MetricsMiddleware(s.healthHandler.HandleRoot, "root"))
	mux.HandleFunc("GET /health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /analyze-speech", MetricsMiddleware(s.analyzeHandler.HandleAnalyze, "analyze_speech"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("POST /leaderboard/submit", MetricsMiddleware(s.leaderboardHandler.HandleSubmit, "leaderboard_submit"))
	mux.HandleFunc("GET /leaderboard/{user_id}", MetricsMiddleware(s.leaderboardHandler.HandleGetEntry, "leaderboard_entry"))
}

// Handler wraps next with panic recovery, request ids and CORS.
func (s *Server) Handler(next http.Handler) http.Handler {
	return SentryMiddleware(RequestIDMiddleware(CORSMiddleware(next, s.corsOrigin)))
}

type errorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

type leaderboardResponse struct {
	Leaderboard []model.LeaderboardEntry `json:"leaderboard"`
}

type submitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeFailure answers with the status for err. 5xx responses are logged and
// reported to Sentry when a client is configured.
func writeFailure(w http.ResponseWriter, r *http.Request, prefix string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		logger.Get().Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err),
		)
		captureError(r, err, code)
	}
	writeJSON(w, status, errorResponse{Detail: prefix + err.Error(), Code: code})
}

// captureError sends an error to Sentry with request context.
func captureError(r *http.Request, err error, code string) {
	if sentry.CurrentHub().Client() == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(r)
		scope.SetTag("code", code)
		if id := logger.RequestIDFromContext(r.Context()); id != "" {
			scope.SetTag("request_id", id)
		}
		sentry.CaptureException(err)
	})
}
