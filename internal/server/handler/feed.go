package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// feedMaxCount caps how many stream entries one request may replay.
const feedMaxCount = 200

// FeedHandler replays the durable run event stream.
type FeedHandler struct {
	bus    domain.SignalBus
	stream string
	logger *slog.Logger
}

// NewFeedHandler creates a FeedHandler reading from the given stream.
func NewFeedHandler(bus domain.SignalBus, stream string, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{
		bus:    bus,
		stream: stream,
		logger: logger,
	}
}

// feedEntry is one replayed stream message. The payload is emitted as raw
// JSON when it parses, else as a string.
type feedEntry struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// feedResponse wraps the feed replay response. LastID is the cursor to pass
// as ?after= on the next request.
type feedResponse struct {
	Entries []feedEntry `json:"entries"`
	LastID  string      `json:"last_id,omitempty"`
}

// Replay returns stream entries recorded after the given cursor.
// GET /api/feed?after=<stream-id>&count=N
func (h *FeedHandler) Replay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	after := q.Get("after")
	if after == "" {
		after = "0"
	}

	count := 50
	if v := q.Get("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			count = n
		}
	}
	if count > feedMaxCount {
		count = feedMaxCount
	}

	msgs, err := h.bus.StreamRead(r.Context(), h.stream, after, count)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: feed replay failed",
			slog.String("after", after),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read feed")
		return
	}

	resp := feedResponse{Entries: make([]feedEntry, 0, len(msgs))}
	for _, m := range msgs {
		entry := feedEntry{ID: m.ID}
		if json.Valid(m.Payload) {
			entry.Payload = json.RawMessage(m.Payload)
		} else {
			quoted, _ := json.Marshal(string(m.Payload))
			entry.Payload = json.RawMessage(quoted)
		}
		resp.Entries = append(resp.Entries, entry)
		resp.LastID = m.ID
	}

	writeJSON(w, http.StatusOK, resp)
}
