package engine

import (
	"errors"
	"time"
)

var ErrMatchFinished = errors.New("match already finished")
var ErrRoundOver = errors.New("round already over")
var ErrRoundInProgress = errors.New("round still in progress")

// NoWinner marks a match that has not been decided, or ended in a tie.
const NoWinner = -1

// RopePull scales the effort difference into rope displacement per second.
const RopePull = 0.05

type Phase string

const (
	PhaseActive   Phase = "active"
	PhaseRoundEnd Phase = "round_end"
	PhaseMatchEnd Phase = "match_end"
	PhaseExpired  Phase = "expired"
)

type Reason string

const (
	ReasonThreshold   Reason = "threshold"
	ReasonExhaustion  Reason = "exhaustion"
	ReasonConsecutive Reason = "consecutive"
	ReasonTime        Reason = "time"
)

type Player struct {
	Team        int
	Index       int
	Energy      float64
	Effort      float64
	DecayRate   float64
	Position    int
	Active      bool
	Recovering  bool
	RecoverTime time.Time
	PID         int
}

// Pulling reports whether the player currently contributes effort.
func (p *Player) Pulling() bool {
	return p.Active && !p.Recovering
}

type Team struct {
	Players         []Player
	RoundWins       int
	ConsecutiveWins int
	Effort          float64
}

// State is the authoritative match context. Only the referee mutates it.
type State struct {
	Teams        []Team
	RopePosition float64
	RoundNumber  int
	Phase        Phase
	Winner       int
	EndReason    Reason
	Tick         int
	StartedAt    time.Time
}

type EventType string

const (
	EvtRoundWon     EventType = "RoundWon"
	EvtTeamsAligned EventType = "TeamsAligned"
	EvtMatchWon     EventType = "MatchWon"
	EvtMatchTied    EventType = "MatchTied"
)

type Event struct {
	Type   EventType
	Team   int
	Reason Reason
}

// Result summarizes a finished match.
type Result struct {
	Winner    int           `yaml:"winner"`
	Reason    Reason        `yaml:"reason"`
	Rounds    int           `yaml:"rounds"`
	RoundWins []int         `yaml:"round_wins"`
	Elapsed   time.Duration `yaml:"elapsed"`
}

// Finished reports whether the match has reached a terminal phase.
func (s *State) Finished() bool {
	return s.Phase == PhaseMatchEnd || s.Phase == PhaseExpired
}

// Result reports the outcome as of now.
func (s *State) Result(now time.Time) Result {
	wins := make([]int, len(s.Teams))
	for i := range s.Teams {
		wins[i] = s.Teams[i].RoundWins
	}
	var elapsed time.Duration
	if !s.StartedAt.IsZero() {
		elapsed = now.Sub(s.StartedAt)
	}
	return Result{
		Winner:    s.Winner,
		Reason:    s.EndReason,
		Rounds:    s.RoundNumber,
		RoundWins: wins,
		Elapsed:   elapsed,
	}
}
