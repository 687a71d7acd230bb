// Package arena mirrors the referee's match state for readers in other
// processes and goroutines. The referee is the only writer; everything in
// here is derived and never read back as a source of truth.
package arena

import (
	"errors"
	"time"

	"github.com/DoyleJ11/tugofwar/internal/engine"
	"github.com/DoyleJ11/tugofwar/pkg/types"
)

var ErrReadOnly = errors.New("arena opened read-only")
var ErrNotPublished = errors.New("arena has no snapshot yet")
var ErrTorn = errors.New("arena kept changing during read")
var ErrLayout = errors.New("arena layout mismatch")

// NoWinner is the FinalWinner sentinel.
const NoWinner = engine.NoWinner

type PlayerView struct {
	Energy      float64
	Effort      float64
	DecayRate   float64
	Position    int
	Active      bool
	Recovering  bool
	RecoverTime time.Time
	PID         int
}

// Snapshot is exactly what the renderer needs from one tick.
type Snapshot struct {
	Version      uint64
	RopePosition float64
	RoundNumber  int
	RoundWins    []int
	TeamEffort   []float64
	Players      [][]PlayerView
	GameEnded    bool
	FinalWinner  int
}

// Publisher accepts a freshly derived snapshot once per tick.
type Publisher interface {
	Publish(s Snapshot) error
}

// FromState derives a snapshot from the authoritative state.
func FromState(s *engine.State) Snapshot {
	snap := Snapshot{
		RopePosition: s.RopePosition,
		RoundNumber:  s.RoundNumber,
		RoundWins:    make([]int, len(s.Teams)),
		TeamEffort:   make([]float64, len(s.Teams)),
		Players:      make([][]PlayerView, len(s.Teams)),
		GameEnded:    s.Finished(),
		FinalWinner:  NoWinner,
	}
	if s.Finished() {
		snap.FinalWinner = s.Winner
	}
	for t, team := range s.Teams {
		snap.RoundWins[t] = team.RoundWins
		snap.TeamEffort[t] = team.Effort
		views := make([]PlayerView, len(team.Players))
		for i, p := range team.Players {
			views[i] = PlayerView{
				Energy:      p.Energy,
				Effort:      p.Effort,
				DecayRate:   p.DecayRate,
				Position:    p.Position,
				Active:      p.Active,
				Recovering:  p.Recovering,
				RecoverTime: p.RecoverTime,
				PID:         p.PID,
			}
		}
		snap.Players[t] = views
	}
	return snap
}

// Wire converts the snapshot to the spectator JSON format.
func (s Snapshot) Wire() *types.Snapshot {
	out := &types.Snapshot{
		RopePosition: s.RopePosition,
		RoundNumber:  s.RoundNumber,
		Teams:        make([]types.Team, len(s.Players)),
		GameEnded:    s.GameEnded,
		FinalWinner:  s.FinalWinner,
	}
	for t, views := range s.Players {
		team := types.Team{Players: make([]types.Player, len(views))}
		if t < len(s.RoundWins) {
			team.RoundWins = s.RoundWins[t]
		}
		if t < len(s.TeamEffort) {
			team.Effort = s.TeamEffort[t]
		}
		for i, v := range views {
			p := types.Player{
				Energy:     v.Energy,
				Effort:     v.Effort,
				DecayRate:  v.DecayRate,
				Position:   v.Position,
				Active:     v.Active,
				Recovering: v.Recovering,
				PID:        v.PID,
			}
			if !v.RecoverTime.IsZero() {
				p.RecoverTime = v.RecoverTime.UnixMilli()
			}
			team.Players[i] = p
		}
		out.Teams[t] = team
	}
	return out
}
