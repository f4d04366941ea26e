package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/fluency/internal/adapters/repository"
	"github.com/okian/fluency/internal/domain/failure"
	"github.com/okian/fluency/internal/domain/model"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Submit(ctx context.Context, sub model.Submission) (model.LeaderboardEntry, error)
	Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	Get(ctx context.Context, userID string) (repository.RankedEntry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps         LeaderboardDependencies
	defaultLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, defaultLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, defaultLimit: defaultLimit}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"

	limit := h.defaultLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeFailure(w, r, "", failure.New(failure.KindInvalidInput, op, fmt.Errorf("limit %w", ErrInvalidInteger)))
			return
		}
		limit = n
	}

	entries, err := h.deps.Top(r.Context(), limit)
	if err != nil {
		writeFailure(w, r, "", err)
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Leaderboard: entries})
}

// HandleSubmit handles POST /leaderboard/submit form submissions.
func (h *LeaderboardHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_score"

	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeFailure(w, r, "", failure.New(failure.KindInvalidInput, op, err))
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	raw := strings.TrimSpace(r.FormValue("total_damage"))
	if raw == "" {
		writeFailure(w, r, "", failure.New(failure.KindInvalidInput, op, fmt.Errorf("%w: total_damage", ErrMissingField)))
		return
	}
	damage, err := strconv.Atoi(raw)
	if err != nil {
		writeFailure(w, r, "", failure.New(failure.KindInvalidInput, op, fmt.Errorf("total_damage %w", ErrInvalidInteger)))
		return
	}

	if _, err := h.deps.Submit(r.Context(), model.Submission{
		UserID:    r.FormValue("user_id"),
		Username:  r.FormValue("username"),
		Damage:    damage,
		BandScore: r.FormValue("band_score"),
	}); err != nil {
		writeFailure(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Status: "success", Message: "Score submitted"})
}

// HandleGetEntry handles GET /leaderboard/{user_id} requests.
func (h *LeaderboardHandler) HandleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.deps.Get(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writeFailure(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
