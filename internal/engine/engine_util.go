package engine

import (
	"math/rand"
	"time"

	"github.com/DoyleJ11/tugofwar/internal/config"
)

// NewState builds the starting teams. Energy is drawn from
// [minimum_energy, minimum_energy+range) and decay from [0.5, 2.0]. All
// randomness comes from rng, so a seed reproduces the line-up.
func NewState(cfg config.MatchConfig, rng *rand.Rand) *State {
	s := &State{
		Teams:       make([]Team, cfg.NumTeams),
		RoundNumber: 1,
		Phase:       PhaseActive,
		Winner:      NoWinner,
	}
	for t := range s.Teams {
		players := make([]Player, cfg.PlayersPerTeam)
		for p := range players {
			energy := float64(cfg.MinimumEnergy + rng.Intn(cfg.Range))
			players[p] = Player{
				Team:      t,
				Index:     p,
				Energy:    energy,
				Effort:    energy,
				DecayRate: 0.5 + float64(rng.Intn(16))/10,
				Position:  p + 1,
				Active:    true,
			}
		}
		s.Teams[t].Players = players
	}
	return s
}

// ContainsEvent reports whether events holds an event of the given type.
func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// AllExhausted reports whether every player on every team has no energy left.
func AllExhausted(s *State) bool {
	for t := range s.Teams {
		for _, p := range s.Teams[t].Players {
			if p.Energy > 0 {
				return false
			}
		}
	}
	return true
}

// RopeWinner picks the team the rope has moved toward. A centred rope goes to
// team 1 (index 0), the same as a negative one.
func RopeWinner(rope float64) int {
	if rope > 0 {
		return 1
	}
	return 0
}

func recoveryDuration(cfg config.MatchConfig, rng *rand.Rand) time.Duration {
	lo := float64(cfg.FallRecoveryMin)
	hi := float64(cfg.FallRecoveryMax)
	secs := lo + rng.Float64()*(hi-lo)
	return time.Duration(secs * float64(time.Second))
}
