// Package evolution advances the world by one year. Each processor reads the
// world as left by the processors before it and returns updated entity
// values plus the journal events its changes produced.
package evolution

import (
	"fmt"
	"math/rand/v2"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// Result is what one processor produced for a year.
type Result struct {
	Regions     []domain.Region
	Settlements []domain.Settlement
	Heroes      []domain.Hero
	Events      []domain.Event
}

// Processor computes one aspect of a year's change. Process must not mutate
// w; it returns replacement values instead.
type Processor interface {
	Name() string
	Process(w domain.World, year int, rng *rand.Rand) Result
}

// Pipeline runs processors strictly in order.
type Pipeline struct {
	processors []Processor
}

// NewPipeline runs the given processors in the given order.
func NewPipeline(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Default returns the Region, Settlement, Hero pipeline.
func Default(rules Rules) *Pipeline {
	return NewPipeline(
		NewRegionProcessor(rules),
		NewSettlementProcessor(rules),
		NewHeroProcessor(rules),
	)
}

// Evolve computes year on a copy of w. The input is never modified; the
// returned world has EvolvedYear set to year. The random stream is derived
// from the world seed and the year, so the same input always evolves the
// same way.
func (p *Pipeline) Evolve(w domain.World, year int) (domain.World, []domain.Event, error) {
	work := w.Clone()
	rng := rand.New(rand.NewPCG(uint64(w.Seed), uint64(year)))

	var events []domain.Event
	for _, proc := range p.processors {
		res, err := runProcessor(proc, work, year, rng)
		if err != nil {
			return domain.World{}, nil, err
		}
		apply(&work, res)
		events = append(events, res.Events...)
	}
	work.EvolvedYear = year
	return work, events, nil
}

func runProcessor(proc Processor, w domain.World, year int, rng *rand.Rand) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evolution: %s processor panicked: %v", proc.Name(), r)
		}
	}()
	return proc.Process(w, year, rng), nil
}

func apply(w *domain.World, res Result) {
	for _, r := range res.Regions {
		w.Regions[r.ID] = r
	}
	for _, s := range res.Settlements {
		w.Settlements[s.ID] = s
	}
	for _, h := range res.Heroes {
		w.Heroes[h.ID] = h
	}
}

func event(year int, cat domain.EventCategory, format string, args ...any) domain.Event {
	return domain.Event{
		Year:        year,
		Category:    cat,
		Description: fmt.Sprintf(format, args...),
	}
}
