package domain

import "time"

// EventCategory groups journal entries.
type EventCategory string

const (
	EventRegion     EventCategory = "region"
	EventSettlement EventCategory = "settlement"
	EventHero       EventCategory = "hero"
	EventDivine     EventCategory = "divine"
	EventMarket     EventCategory = "market"
)

// Event is one immutable journal entry. Seq is assigned by the journal on
// append and is strictly increasing.
type Event struct {
	Seq           int64         `json:"seq"`
	Year          int           `json:"year"`
	Category      EventCategory `json:"category"`
	Description   string        `json:"description"`
	RegionIDs     []string      `json:"related_region_ids,omitempty"`
	SettlementIDs []string      `json:"related_settlement_ids,omitempty"`
	HeroIDs       []string      `json:"related_hero_ids,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
