package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/world"
)

// InfluenceAction names a paid divine intervention.
type InfluenceAction string

const (
	ActionBless       InfluenceAction = "bless"
	ActionCorrupt     InfluenceAction = "corrupt"
	ActionAscend      InfluenceAction = "ascend"
	ActionRaiseUndead InfluenceAction = "raise_undead"
	ActionReveal      InfluenceAction = "reveal"
)

const (
	blessProsperity  = 15
	blessSettlers    = 25
	corruptChaos     = 20
	corruptResonance = 20
	ascendResonance  = 10
	raiseUndeadChaos = 10
)

// InfluenceCosts is the favor price of each action.
type InfluenceCosts struct {
	Bless       int64
	Corrupt     int64
	Ascend      int64
	RaiseUndead int64
	Reveal      int64
}

func (c InfluenceCosts) cost(a InfluenceAction) (int64, bool) {
	switch a {
	case ActionBless:
		return c.Bless, true
	case ActionCorrupt:
		return c.Corrupt, true
	case ActionAscend:
		return c.Ascend, true
	case ActionRaiseUndead:
		return c.RaiseUndead, true
	case ActionReveal:
		return c.Reveal, true
	}
	return 0, false
}

// InfluenceRequest asks for one action on one target.
type InfluenceRequest struct {
	PlayerID string          `json:"player_id,omitempty"`
	Action   InfluenceAction `json:"action"`
	TargetID string          `json:"target_id"`
}

// InfluenceResult reports a completed action.
type InfluenceResult struct {
	Action  InfluenceAction     `json:"action"`
	Cost    int64               `json:"cost"`
	Event   domain.Event        `json:"event"`
	Account domain.FavorAccount `json:"account"`
}

// InfluenceService spends favor to change the world directly. It is the
// only way heroes ascend or rise as undead, and the only way a settlement's
// status improves.
type InfluenceService struct {
	state    *world.State
	worlds   domain.WorldStore
	clock    YearSource
	ledger   *FavorLedger
	journal  *Journal
	costs    InfluenceCosts
	playerID string
	logger   *slog.Logger
}

// NewInfluenceService creates an InfluenceService.
func NewInfluenceService(
	state *world.State,
	worlds domain.WorldStore,
	clock YearSource,
	ledger *FavorLedger,
	journal *Journal,
	costs InfluenceCosts,
	defaultPlayer string,
	logger *slog.Logger,
) *InfluenceService {
	if defaultPlayer == "" {
		defaultPlayer = domain.DefaultPlayerID
	}
	return &InfluenceService{
		state:    state,
		worlds:   worlds,
		clock:    clock,
		ledger:   ledger,
		journal:  journal,
		costs:    costs,
		playerID: defaultPlayer,
		logger:   logger.With(slog.String("component", "influence")),
	}
}

// Apply charges the action's cost and applies it. The charge is refunded if
// the world change cannot be made.
func (s *InfluenceService) Apply(ctx context.Context, req InfluenceRequest) (InfluenceResult, error) {
	if req.PlayerID == "" {
		req.PlayerID = s.playerID
	}
	cost, ok := s.costs.cost(req.Action)
	if !ok {
		return InfluenceResult{}, domain.Invalid("action", "unknown action %q", req.Action)
	}
	if req.TargetID == "" {
		return InfluenceResult{}, domain.Invalid("target_id", "is required")
	}
	year := s.clock.Year()

	// Check against a copy first so an impossible action is rejected without
	// touching the ledger.
	probe := s.state.Snapshot()
	if _, err := s.mutate(&probe, req, year); err != nil {
		return InfluenceResult{}, err
	}

	var ev domain.Event
	acct, err := s.ledger.Charge(ctx, req.PlayerID, cost, func(ctx context.Context) error {
		return s.state.Update(func(w *domain.World) error {
			e, err := s.mutate(w, req, year)
			if err != nil {
				return err
			}
			if err := s.worlds.SaveWorld(ctx, *w); err != nil {
				return fmt.Errorf("influence: save world: %w", err)
			}
			ev = e
			return nil
		})
	})
	if err != nil {
		return InfluenceResult{}, err
	}

	if appended, err := s.journal.Append(ctx, []domain.Event{ev}); err != nil {
		s.logger.WarnContext(ctx, "influence: journal append failed", slog.String("error", err.Error()))
	} else if len(appended) == 1 {
		ev = appended[0]
	}
	s.logger.InfoContext(ctx, "influence: applied",
		slog.String("action", string(req.Action)),
		slog.String("target_id", req.TargetID),
		slog.String("player_id", req.PlayerID),
		slog.Int64("cost", cost),
	)
	return InfluenceResult{Action: req.Action, Cost: cost, Event: ev, Account: acct}, nil
}

// Costs returns the configured prices.
func (s *InfluenceService) Costs() InfluenceCosts { return s.costs }

func (s *InfluenceService) mutate(w *domain.World, req InfluenceRequest, year int) (domain.Event, error) {
	ev := domain.Event{Year: year, Category: domain.EventDivine}
	id := req.TargetID

	switch req.Action {
	case ActionBless:
		st, ok := w.Settlements[id]
		if !ok {
			return ev, domain.NotFound("settlement", id)
		}
		if st.Status == domain.SettlementRuined {
			return ev, domain.Invalid("target_id", "ruined settlements cannot be blessed")
		}
		st = st.Clone()
		st.Prosperity = domain.ClampStat(st.Prosperity + blessProsperity)
		st.Status = st.Status.Improved()
		if st.Population == 0 {
			st.Population = blessSettlers
		}
		w.Settlements[id] = st
		ev.Description = fmt.Sprintf("Divine light falls on %s; it is now %s.", st.Name, st.Status)
		ev.RegionIDs = []string{st.RegionID}
		ev.SettlementIDs = []string{id}

	case ActionCorrupt:
		r, ok := w.Regions[id]
		if !ok {
			return ev, domain.NotFound("region", id)
		}
		if r.Status == domain.RegionAbandoned {
			return ev, domain.Invalid("target_id", "abandoned regions cannot be corrupted")
		}
		r = r.Clone()
		r.Chaos = domain.ClampStat(r.Chaos + corruptChaos)
		r.DivineResonance = domain.ClampStat(r.DivineResonance - corruptResonance)
		r.Status = domain.RegionCorrupt
		w.Regions[id] = r
		ev.Description = fmt.Sprintf("A curse settles over %s.", r.Name)
		ev.RegionIDs = []string{id}

	case ActionAscend:
		h, ok := w.Heroes[id]
		if !ok {
			return ev, domain.NotFound("hero", id)
		}
		if h.Status != domain.HeroLiving {
			return ev, domain.Invalid("target_id", "only living heroes can ascend")
		}
		h = h.Clone()
		h.Status = domain.HeroAscended
		w.Heroes[id] = h
		if r, ok := w.Regions[h.RegionID]; ok {
			r = r.Clone()
			r.DivineResonance = domain.ClampStat(r.DivineResonance + ascendResonance)
			w.Regions[r.ID] = r
		}
		ev.Description = fmt.Sprintf("%s ascends to sit among the gods.", h.Name)
		ev.RegionIDs = []string{h.RegionID}
		ev.HeroIDs = []string{id}

	case ActionRaiseUndead:
		h, ok := w.Heroes[id]
		if !ok {
			return ev, domain.NotFound("hero", id)
		}
		if h.Status != domain.HeroDeceased {
			return ev, domain.Invalid("target_id", "only deceased heroes can be raised")
		}
		h = h.Clone()
		h.Status = domain.HeroUndead
		h.IsAlive = false
		h.BondedSettlementID = ""
		w.Heroes[id] = h
		if r, ok := w.Regions[h.RegionID]; ok {
			r = r.Clone()
			r.Chaos = domain.ClampStat(r.Chaos + raiseUndeadChaos)
			w.Regions[r.ID] = r
		}
		ev.Description = fmt.Sprintf("%s claws free of the grave.", h.Name)
		ev.RegionIDs = []string{h.RegionID}
		ev.HeroIDs = []string{id}

	case ActionReveal:
		r, ok := w.Regions[id]
		if !ok {
			return ev, domain.NotFound("region", id)
		}
		r = r.Clone()
		idx := -1
		for i, l := range r.Landmarks {
			if !l.Discovered {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ev, domain.Invalid("target_id", "%s has no hidden landmarks", r.Name)
		}
		r.Landmarks[idx].Discovered = true
		r.Landmarks[idx].DiscoveredYear = year
		w.Regions[id] = r
		ev.Description = fmt.Sprintf("A vision reveals the %s in %s.", r.Landmarks[idx].Name, r.Name)
		ev.RegionIDs = []string{id}
	}
	return ev, nil
}
