package domain

import "time"

// BetStatus is the lifecycle state of a bet. Every status except active is
// terminal.
type BetStatus string

const (
	BetActive  BetStatus = "active"
	BetWon     BetStatus = "won"
	BetLost    BetStatus = "lost"
	BetExpired BetStatus = "expired"
)

// Terminal reports whether no further transition is possible.
func (s BetStatus) Terminal() bool {
	return s == BetWon || s == BetLost || s == BetExpired
}

// Valid reports whether s is a known status.
func (s BetStatus) Valid() bool {
	return s == BetActive || s.Terminal()
}

// Confidence is the risk category a player picks for a bet.
type Confidence string

const (
	ConfidenceLongShot    Confidence = "long_shot"
	ConfidencePossible    Confidence = "possible"
	ConfidenceLikely      Confidence = "likely"
	ConfidenceNearCertain Confidence = "near_certain"
)

// Bet is a wager of divine favor on the future state of a world entity.
type Bet struct {
	ID              string     `json:"id"`
	PlayerID        string     `json:"player_id"`
	BetType         string     `json:"bet_type"`
	TargetID        string     `json:"target_id"`
	TargetType      TargetType `json:"target_type"`
	Description     string     `json:"description"`
	Timeframe       int        `json:"timeframe"`
	Confidence      Confidence `json:"confidence"`
	Stake           int64      `json:"divine_favor_stake"`
	PotentialPayout int64      `json:"potential_payout"`
	CurrentOdds     float64    `json:"current_odds"`
	Status          BetStatus  `json:"status"`
	PlacedYear      int        `json:"placed_year"`
	ResolvedYear    *int       `json:"resolved_year,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
	// Baseline is the target's snapshot at placement; predicates compare
	// against it.
	Baseline  Snapshot  `json:"baseline"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExpiryYear is the last year by which the bet must be terminal.
func (b Bet) ExpiryYear() int {
	return b.PlacedYear + b.Timeframe
}

// DueAt reports whether the bet has reached its expiry year.
func (b Bet) DueAt(year int) bool {
	return b.ExpiryYear() <= year
}

// BetFilter narrows a bet listing. Zero values match everything.
type BetFilter struct {
	PlayerID   string
	Status     BetStatus
	BetType    string
	TargetID   string
	Confidence Confidence
	Limit      int
	Offset     int
}

// Matches reports whether b satisfies every set criterion of f. Limit and
// Offset are ignored.
func (f BetFilter) Matches(b Bet) bool {
	if f.PlayerID != "" && b.PlayerID != f.PlayerID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.BetType != "" && b.BetType != f.BetType {
		return false
	}
	if f.TargetID != "" && b.TargetID != f.TargetID {
		return false
	}
	if f.Confidence != "" && b.Confidence != f.Confidence {
		return false
	}
	return true
}

// BetResolution is the terminal transition applied to one bet.
type BetResolution struct {
	BetID  string
	Status BetStatus
	Year   int
	Notes  string
}
