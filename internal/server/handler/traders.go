package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// TraderHandler serves the most recent trader ranking from the score cache.
type TraderHandler struct {
	scores domain.ScoreCache
	logger *slog.Logger
}

// NewTraderHandler creates a TraderHandler with the given cache and logger.
func NewTraderHandler(scores domain.ScoreCache, logger *slog.Logger) *TraderHandler {
	return &TraderHandler{
		scores: scores,
		logger: logger,
	}
}

// listTradersResponse wraps the trader ranking response.
type listTradersResponse struct {
	Traders []domain.ScoredTrader `json:"traders"`
}

// ListTraders returns the top scored traders from the last completed run.
// The ranking is cached best-first, so limit trims from the top.
// GET /api/traders?limit=50
func (h *TraderHandler) ListTraders(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	traders, err := h.scores.GetScores(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no ranking cached yet")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get scores failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get trader scores")
		return
	}

	if opts.Limit > 0 && len(traders) > opts.Limit {
		traders = traders[:opts.Limit]
	}

	writeJSON(w, http.StatusOK, listTradersResponse{Traders: traders})
}
