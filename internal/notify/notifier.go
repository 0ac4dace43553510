// Package notify announces bet outcomes on Discord and Telegram. The
// Notifier runs as a tick hook and only forwards the event kinds operators
// opted into.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/service"
)

// Event kinds.
const (
	EventBetWon     = "bet_won"
	EventBetLost    = "bet_lost"
	EventBetExpired = "bet_expired"
	EventTickEvents = "world_events"
)

// Message is one notification.
type Message struct {
	Kind  string
	Title string
	Body  string
}

// Sender delivers messages to one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// Notifier fans messages out to every sender. An empty event list allows
// every kind.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Allows reports whether kind passes the event filter.
func (n *Notifier) Allows(kind string) bool {
	return len(n.events) == 0 || n.events[kind]
}

// Notify delivers msg to every sender if its kind is allowed. Sender failures
// do not stop delivery to the others.
func (n *Notifier) Notify(ctx context.Context, msg Message) error {
	if !n.Allows(msg.Kind) {
		return nil
	}
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, msg); err != nil {
			n.logger.ErrorContext(ctx, "notifier: send failed",
				slog.String("sender", s.Name()),
				slog.String("kind", msg.Kind),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// Name implements service.TickHook.
func (n *Notifier) Name() string { return "notifier" }

// AfterTick sends one message per resolved bet and, when enabled, a digest of
// the year's world events.
func (n *Notifier) AfterTick(ctx context.Context, res service.TickResult) error {
	if len(n.senders) == 0 {
		return nil
	}
	var errs []error
	for _, b := range res.Resolution.Resolved {
		if err := n.Notify(ctx, betMessage(b)); err != nil {
			errs = append(errs, err)
		}
	}
	if n.Allows(EventTickEvents) && len(res.Events) > 0 {
		if err := n.Notify(ctx, digest(res)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func betMessage(b domain.Bet) Message {
	var (
		kind, title string
		body        strings.Builder
	)
	switch b.Status {
	case domain.BetWon:
		kind, title = EventBetWon, "Prophecy fulfilled"
		fmt.Fprintf(&body, "Bet %s on %s paid %d favor (staked %d at %.2f).", short(b.ID), b.TargetID, b.PotentialPayout, b.Stake, b.CurrentOdds)
	case domain.BetLost:
		kind, title = EventBetLost, "Prophecy failed"
		fmt.Fprintf(&body, "Bet %s on %s lost %d favor.", short(b.ID), b.TargetID, b.Stake)
	default:
		kind, title = EventBetExpired, "Prophecy expired"
		fmt.Fprintf(&body, "Bet %s on %s expired; %d favor returned.", short(b.ID), b.TargetID, b.Stake)
	}
	if b.ResolutionNotes != "" {
		fmt.Fprintf(&body, "\n%s", b.ResolutionNotes)
	}
	return Message{Kind: kind, Title: title + ": " + b.BetType, Body: body.String()}
}

const digestLimit = 10

func digest(res service.TickResult) Message {
	var body strings.Builder
	for i, e := range res.Events {
		if i == digestLimit {
			fmt.Fprintf(&body, "...and %d more", len(res.Events)-digestLimit)
			break
		}
		fmt.Fprintf(&body, "- %s\n", e.Description)
	}
	return Message{
		Kind:  EventTickEvents,
		Title: fmt.Sprintf("Year %d chronicle", res.Year),
		Body:  strings.TrimRight(body.String(), "\n"),
	}
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var _ service.TickHook = (*Notifier)(nil)
