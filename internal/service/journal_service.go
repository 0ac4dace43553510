package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

const defaultJournalLimit = 100

// Journal is the append-only event log. It assigns sequence numbers,
// persists events, and fans them out on the signal bus.
type Journal struct {
	mu     sync.Mutex
	store  domain.EventStore
	bus    domain.SignalBus
	logger *slog.Logger
	now    func() time.Time
}

// NewJournal creates a Journal. bus may be nil.
func NewJournal(store domain.EventStore, bus domain.SignalBus, logger *slog.Logger) *Journal {
	return &Journal{
		store:  store,
		bus:    bus,
		logger: logger.With(slog.String("component", "journal")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Append numbers and stores events, returning them with Seq and CreatedAt
// set. Sequence numbers continue from the last stored event.
func (j *Journal) Append(ctx context.Context, events []domain.Event) ([]domain.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	last, err := j.store.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("journal: last seq: %w", err)
	}
	now := j.now()
	out := make([]domain.Event, len(events))
	for i, e := range events {
		e.Seq = last + int64(i) + 1
		e.CreatedAt = now
		out[i] = e
	}
	if err := j.store.Append(ctx, out); err != nil {
		return nil, fmt.Errorf("journal: append: %w", err)
	}
	j.publish(ctx, out)
	return out, nil
}

// Since returns events after seq, oldest first.
func (j *Journal) Since(ctx context.Context, seq int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = defaultJournalLimit
	}
	events, err := j.store.Since(ctx, seq, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: since %d: %w", seq, err)
	}
	return events, nil
}

// Recent returns the newest events, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = defaultJournalLimit
	}
	events, err := j.store.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	return events, nil
}

// LastSeq returns the sequence number of the newest event, 0 if none.
func (j *Journal) LastSeq(ctx context.Context) (int64, error) {
	return j.store.LastSeq(ctx)
}

func (j *Journal) publish(ctx context.Context, events []domain.Event) {
	if j.bus == nil {
		return
	}
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			continue
		}
		if err := j.bus.Publish(ctx, domain.ChannelEvents, payload); err != nil {
			j.logger.WarnContext(ctx, "journal: publish failed",
				slog.Int64("seq", e.Seq),
				slog.String("error", err.Error()),
			)
		}
		if err := j.bus.StreamAppend(ctx, domain.StreamEvents, payload); err != nil {
			j.logger.WarnContext(ctx, "journal: stream append failed",
				slog.Int64("seq", e.Seq),
				slog.String("error", err.Error()),
			)
		}
	}
}
