// Package types holds the JSON wire format of the spectator feed.
package types

// Player is one player's mirrored state.
type Player struct {
	Energy      float64 `json:"energy"`
	Effort      float64 `json:"effort"`
	DecayRate   float64 `json:"decay_rate"`
	Position    int     `json:"position"`
	Active      bool    `json:"active"`
	Recovering  bool    `json:"recovering"`
	RecoverTime int64   `json:"recover_time_ms,omitempty"` // unix millis
	PID         int     `json:"pid,omitempty"`
}

// Team is one team's mirrored totals and players.
type Team struct {
	RoundWins int      `json:"round_wins"`
	Effort    float64  `json:"effort"`
	Players   []Player `json:"players"`
}

// Snapshot is the renderer-facing view of one tick.
type Snapshot struct {
	RopePosition float64 `json:"rope_position"`
	RoundNumber  int     `json:"round_number"`
	Teams        []Team  `json:"teams"`
	GameEnded    bool    `json:"game_ended"`
	FinalWinner  int     `json:"final_winner"` // -1 while undecided or tied
}
