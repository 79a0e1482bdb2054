package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// RunHandler serves persisted advisory run history.
type RunHandler struct {
	runs   domain.RunStore
	logger *slog.Logger
}

// NewRunHandler creates a RunHandler with the given store and logger.
func NewRunHandler(runs domain.RunStore, logger *slog.Logger) *RunHandler {
	return &RunHandler{
		runs:   runs,
		logger: logger,
	}
}

// listRunsResponse wraps the list runs response.
type listRunsResponse struct {
	Runs []domain.AdviceRun `json:"runs"`
}

// runResponse wraps a single run together with its recommendations.
type runResponse struct {
	Run             domain.AdviceRun             `json:"run"`
	Recommendations []domain.SizedRecommendation `json:"recommendations"`
}

// ListRuns returns recent runs, newest first.
// GET /api/runs?limit=50&offset=0&since=...&until=...
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	runs, err := h.runs.ListRuns(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list runs failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	if runs == nil {
		runs = []domain.AdviceRun{}
	}

	writeJSON(w, http.StatusOK, listRunsResponse{Runs: runs})
}

// GetRun returns one run and the recommendations it emitted.
// GET /api/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing run id")
		return
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get run failed",
			slog.String("run_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	recs, err := h.runs.ListRecommendations(r.Context(), run.ID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list recommendations failed",
			slog.String("run_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list recommendations")
		return
	}
	if recs == nil {
		recs = []domain.SizedRecommendation{}
	}

	writeJSON(w, http.StatusOK, runResponse{Run: run, Recommendations: recs})
}

// LatestRecommendations returns the most recent run's recommendations.
// GET /api/recommendations/latest
func (h *RunHandler) LatestRecommendations(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.LatestRun(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no runs recorded")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: latest run failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get latest run")
		return
	}

	recs, err := h.runs.ListRecommendations(r.Context(), run.ID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list recommendations failed",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list recommendations")
		return
	}
	if recs == nil {
		recs = []domain.SizedRecommendation{}
	}

	writeJSON(w, http.StatusOK, runResponse{Run: run, Recommendations: recs})
}
