package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// StatusHandler serves the backend status: mode, uptime, and the latest
// advisory run summary when run history is available.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	runs      domain.RunStore // may be nil when Postgres is not wired
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler. runs may be nil; the last-run
// summary is then omitted from responses.
func NewStatusHandler(mode string, startedAt time.Time, runs domain.RunStore, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		startedAt: startedAt,
		runs:      runs,
		logger:    logger,
	}
}

// GetStatus responds with the current mode, uptime, and last run summary.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	uptime := int64(time.Since(h.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	resp := map[string]any{
		"mode":           h.mode,
		"uptime_seconds": uptime,
	}

	if h.runs != nil {
		run, err := h.runs.LatestRun(r.Context())
		switch {
		case err == nil:
			resp["last_run"] = run
		case errors.Is(err, domain.ErrNotFound):
			// no runs yet
		default:
			h.logger.ErrorContext(r.Context(), "handler: latest run lookup failed",
				slog.String("error", err.Error()),
			)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
