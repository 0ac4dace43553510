package domain

import "time"

// DefaultPlayerID is the single economy the service runs when no player is
// named.
const DefaultPlayerID = "player"

// FavorAccount holds a player's divine favor. Balance is the spendable
// amount; Reserved is favor locked in active bets. Neither is ever negative.
type FavorAccount struct {
	PlayerID  string    `json:"player_id"`
	Balance   int64     `json:"balance"`
	Reserved  int64     `json:"reserved"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Total is balance plus reserved favor.
func (a FavorAccount) Total() int64 {
	return a.Balance + a.Reserved
}
