package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// AdviseHandler serves the advisory run trigger endpoint.
type AdviseHandler struct {
	logger    *slog.Logger
	triggerCh chan<- struct{} // when non-nil, sending requests one advisory run
}

// NewAdviseHandler creates an AdviseHandler with the given logger.
func NewAdviseHandler(logger *slog.Logger) *AdviseHandler {
	return &AdviseHandler{logger: logger}
}

// WithTriggerChannel sets the channel to send on when a run is requested.
// The advisory loop must receive from this channel to run one pass.
func (h *AdviseHandler) WithTriggerChannel(ch chan<- struct{}) *AdviseHandler {
	h.triggerCh = ch
	return h
}

// TriggerRun enqueues one advisory run. A non-blocking send is performed so
// an already pending trigger is not duplicated.
// POST /api/advise
func (h *AdviseHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "handler: advisory run requested")
	if h.triggerCh != nil {
		select {
		case h.triggerCh <- struct{}{}:
		default:
			// already triggered and not yet consumed
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"message":      "advisory run enqueued",
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}
