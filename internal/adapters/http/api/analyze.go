package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/fluency/internal/domain/failure"
	"github.com/okian/fluency/internal/domain/model"
)

// multipartMemory is how much of a form is held in memory before spilling to disk.
const multipartMemory = 8 << 20

const analyzeErrorPrefix = "Error processing audio: "

// AnalyzeDependencies defines the interface for speech analysis.
type AnalyzeDependencies interface {
	Analyze(ctx context.Context, upload model.Upload) (model.AnalysisResult, error)
}

// AnalyzeHandler handles speech analysis requests.
type AnalyzeHandler struct {
	deps           AnalyzeDependencies
	maxUploadBytes int64
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps AnalyzeDependencies, maxUploadBytes int64) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps, maxUploadBytes: maxUploadBytes}
}

// HandleAnalyze handles POST /analyze-speech requests.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "read upload"

	if r.ContentLength > h.maxUploadBytes {
		writeFailure(w, r, analyzeErrorPrefix, failure.New(failure.KindUpload, op, &http.MaxBytesError{Limit: h.maxUploadBytes}))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeFailure(w, r, analyzeErrorPrefix, failure.New(failure.KindUpload, op, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("audio")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			err = ErrMissingAudio
		}
		writeFailure(w, r, analyzeErrorPrefix, failure.New(failure.KindUpload, op, err))
		return
	}
	defer func() { _ = file.Close() }()

	res, err := h.deps.Analyze(r.Context(), model.Upload{
		Filename: header.Filename,
		Body:     file,
		UserID:   strings.TrimSpace(r.FormValue("user_id")),
		Username: strings.TrimSpace(r.FormValue("username")),
	})
	if err != nil {
		writeFailure(w, r, analyzeErrorPrefix, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
