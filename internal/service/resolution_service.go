package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/pricing"
)

// ResolutionReport summarises one pass over active bets.
type ResolutionReport struct {
	Checked  int          `json:"checked"`
	Won      int          `json:"won"`
	Lost     int          `json:"lost"`
	Expired  int          `json:"expired"`
	Resolved []domain.Bet `json:"resolved,omitempty"`
}

// Processed is the number of bets that reached a terminal state.
func (r ResolutionReport) Processed() int {
	return r.Won + r.Lost + r.Expired
}

func (r *ResolutionReport) add(b domain.Bet) {
	switch b.Status {
	case domain.BetWon:
		r.Won++
	case domain.BetLost:
		r.Lost++
	case domain.BetExpired:
		r.Expired++
	}
	r.Resolved = append(r.Resolved, b)
}

// ResolutionEngine moves active bets to a terminal state once their outcome
// is decided or their timeframe runs out, and settles the stake.
type ResolutionEngine struct {
	bets    domain.BetStore
	world   WorldReader
	reg     *pricing.Registry
	ledger  *FavorLedger
	journal *Journal
	bus     domain.SignalBus
	logger  *slog.Logger
}

// NewResolutionEngine creates a ResolutionEngine. journal and bus may be nil.
func NewResolutionEngine(
	bets domain.BetStore,
	world WorldReader,
	reg *pricing.Registry,
	ledger *FavorLedger,
	journal *Journal,
	bus domain.SignalBus,
	logger *slog.Logger,
) *ResolutionEngine {
	return &ResolutionEngine{
		bets:    bets,
		world:   world,
		reg:     reg,
		ledger:  ledger,
		journal: journal,
		bus:     bus,
		logger:  logger.With(slog.String("component", "resolution")),
	}
}

// Resolve evaluates every active bet against the world as of year. Bets
// already resolved by an earlier run are skipped, so calling it again for
// the same year is a no-op. Per-bet failures do not stop the pass; they are
// returned joined.
func (e *ResolutionEngine) Resolve(ctx context.Context, year int) (ResolutionReport, error) {
	active, err := e.bets.ListActive(ctx)
	if err != nil {
		return ResolutionReport{}, fmt.Errorf("resolution: list active: %w", err)
	}
	return e.run(ctx, active, year)
}

// ProcessExpiredBets resolves only bets whose expiry year is at or before
// year. Outcome predicates are still checked first, so a bet that came true
// in its final year is won rather than expired.
func (e *ResolutionEngine) ProcessExpiredBets(ctx context.Context, year int) (ResolutionReport, error) {
	due, err := e.bets.ListDue(ctx, year)
	if err != nil {
		return ResolutionReport{}, fmt.Errorf("resolution: list due: %w", err)
	}
	return e.run(ctx, due, year)
}

func (e *ResolutionEngine) run(ctx context.Context, bets []domain.Bet, year int) (ResolutionReport, error) {
	var (
		report ResolutionReport
		errs   []error
		events []domain.Event
	)
	for _, b := range bets {
		if b.Status != domain.BetActive {
			continue
		}
		report.Checked++
		resolved, ok, err := e.resolveOne(ctx, b, year)
		if err != nil {
			errs = append(errs, fmt.Errorf("bet %s: %w", b.ID, err))
			continue
		}
		if !ok {
			continue
		}
		report.add(resolved)
		events = append(events, betEvent(resolved))
		e.publish(ctx, resolved)
	}

	if e.journal != nil && len(events) > 0 {
		if _, err := e.journal.Append(ctx, events); err != nil {
			e.logger.WarnContext(ctx, "resolution: journal append failed", slog.String("error", err.Error()))
		}
	}
	if report.Processed() > 0 {
		e.logger.InfoContext(ctx, "resolution: bets resolved",
			slog.Int("year", year),
			slog.Int("won", report.Won),
			slog.Int("lost", report.Lost),
			slog.Int("expired", report.Expired),
		)
	}
	if len(errs) > 0 {
		return report, fmt.Errorf("resolution: %w", errors.Join(errs...))
	}
	return report, nil
}

// resolveOne decides one bet and settles it. It reports false when the bet
// stays active or another run resolved it first.
func (e *ResolutionEngine) resolveOne(ctx context.Context, b domain.Bet, year int) (domain.Bet, bool, error) {
	verdict, notes := e.judge(ctx, b)
	status := domain.BetActive
	switch {
	case verdict == Won:
		status = domain.BetWon
	case verdict == Lost:
		status = domain.BetLost
	case b.DueAt(year):
		status = domain.BetExpired
		notes = fmt.Sprintf("timeframe ended in year %d", b.ExpiryYear())
	default:
		return domain.Bet{}, false, nil
	}

	var credit int64
	switch status {
	case domain.BetWon:
		credit = b.PotentialPayout
	case domain.BetExpired:
		credit = b.Stake
	}

	res := domain.BetResolution{BetID: b.ID, Status: status, Year: year, Notes: notes}
	applied, err := e.ledger.Settle(ctx, b.PlayerID, b.Stake, credit, func(ctx context.Context) (bool, error) {
		return e.bets.Resolve(ctx, res)
	})
	if err != nil {
		return domain.Bet{}, false, err
	}
	if !applied {
		return domain.Bet{}, false, nil
	}

	b.Status = status
	b.ResolvedYear = &year
	b.ResolutionNotes = notes
	return b, true, nil
}

func (e *ResolutionEngine) judge(ctx context.Context, b domain.Bet) (Verdict, string) {
	current := e.world.Target(b.TargetType, b.TargetID)
	if !current.Exists {
		return Lost, fmt.Sprintf("%s %s no longer exists", b.TargetType, b.TargetID)
	}
	bt, ok := e.reg.BetType(b.BetType)
	if !ok {
		e.logger.WarnContext(ctx, "resolution: bet type no longer configured",
			slog.String("bet_id", b.ID),
			slog.String("bet_type", b.BetType),
		)
		return Pending, ""
	}
	pred, ok := LookupPredicate(bt.ResolveCondition)
	if !ok {
		e.logger.WarnContext(ctx, "resolution: unknown predicate",
			slog.String("bet_type", bt.Code),
			slog.String("predicate", bt.ResolveCondition),
		)
		return Pending, ""
	}
	return pred(b.Baseline, current, bt.Threshold)
}

func (e *ResolutionEngine) publish(ctx context.Context, b domain.Bet) {
	if e.bus == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{"event": "bet_resolved", "bet": b})
	if err != nil {
		return
	}
	if err := e.bus.Publish(ctx, domain.ChannelBets, payload); err != nil {
		e.logger.WarnContext(ctx, "resolution: publish failed",
			slog.String("bet_id", b.ID),
			slog.String("error", err.Error()),
		)
	}
}

func betEvent(b domain.Bet) domain.Event {
	e := domain.Event{Category: domain.EventMarket}
	if b.ResolvedYear != nil {
		e.Year = *b.ResolvedYear
	}
	switch b.Status {
	case domain.BetWon:
		e.Description = fmt.Sprintf("The gods rejoice: a %s wager on %s pays %d favor (%s).", b.BetType, b.TargetID, b.PotentialPayout, b.ResolutionNotes)
	case domain.BetLost:
		e.Description = fmt.Sprintf("A %s wager on %s is lost (%s).", b.BetType, b.TargetID, b.ResolutionNotes)
	default:
		e.Description = fmt.Sprintf("A %s wager on %s expires and %d favor returns.", b.BetType, b.TargetID, b.Stake)
	}
	switch b.TargetType {
	case domain.TargetRegion:
		e.RegionIDs = []string{b.TargetID}
	case domain.TargetSettlement:
		e.SettlementIDs = []string{b.TargetID}
	case domain.TargetHero:
		e.HeroIDs = []string{b.TargetID}
	}
	return e
}
