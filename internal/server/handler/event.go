package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/service"
)

// JournalReader reads the world journal.
type JournalReader interface {
	Since(ctx context.Context, seq int64, limit int) ([]domain.Event, error)
	Recent(ctx context.Context, limit int) ([]domain.Event, error)
	LastSeq(ctx context.Context) (int64, error)
}

var _ JournalReader = (*service.Journal)(nil)

// EventHandler serves the journal.
type EventHandler struct {
	journal JournalReader
	logger  *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(journal JournalReader, logger *slog.Logger) *EventHandler {
	return &EventHandler{journal: journal, logger: component(logger, "events")}
}

type eventsResponse struct {
	Events  []domain.Event `json:"events"`
	LastSeq int64          `json:"last_seq"`
}

// ListEvents returns journal entries. With since, entries after that
// sequence number oldest first; without it, the most recent newest first.
// GET /api/events?since=120&limit=50
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := parsePage(r)
	ctx := r.Context()

	var (
		events []domain.Event
		err    error
	)
	if r.URL.Query().Has("since") {
		var since int64
		since, err = queryInt64(r, "since", 0)
		if err == nil {
			events, err = h.journal.Since(ctx, since, limit)
		}
	} else {
		events, err = h.journal.Recent(ctx, limit)
	}
	if err != nil {
		writeServiceError(ctx, w, h.logger, "list events", err)
		return
	}

	last, err := h.journal.LastSeq(ctx)
	if err != nil {
		writeServiceError(ctx, w, h.logger, "list events", err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, LastSeq: last})
}
