package engine

import (
	"math/rand"
	"time"

	"github.com/DoyleJ11/tugofwar/internal/config"
)

// Step advances the match by one tick. The sub-steps run in a fixed order:
// falls, recoveries, energy decay, rope. Reordering them changes outcomes.
func Step(s *State, cfg config.MatchConfig, rng *rand.Rand, now time.Time) {
	checkFalls(s, cfg, rng, now)
	recoverPlayers(s, now)
	updateEffort(s, cfg)
	updateRope(s, cfg)
	s.Tick++
}

func checkFalls(s *State, cfg config.MatchConfig, rng *rand.Rand, now time.Time) {
	pFall := cfg.FallProbability / config.TicksPerSecond
	for t := range s.Teams {
		for i := range s.Teams[t].Players {
			p := &s.Teams[t].Players[i]
			if !p.Pulling() {
				continue
			}
			if rng.Float64() < pFall {
				p.Recovering = true
				p.Effort = 0
				p.RecoverTime = now.Add(recoveryDuration(cfg, rng))
			}
		}
	}
}

func recoverPlayers(s *State, now time.Time) {
	for t := range s.Teams {
		for i := range s.Teams[t].Players {
			p := &s.Teams[t].Players[i]
			if p.Recovering && !now.Before(p.RecoverTime) {
				p.Recovering = false
				p.Effort = p.Energy
			}
		}
	}
}

func updateEffort(s *State, cfg config.MatchConfig) {
	for t := range s.Teams {
		for i := range s.Teams[t].Players {
			p := &s.Teams[t].Players[i]
			if !p.Pulling() {
				continue
			}
			p.Energy -= p.DecayRate / config.TicksPerSecond
			if p.Energy < 0 {
				p.Energy = 0
			}
			p.Effort = p.Energy * float64(p.Position)
		}
	}
}

func updateRope(s *State, cfg config.MatchConfig) {
	for t := range s.Teams {
		total := 0.0
		for _, p := range s.Teams[t].Players {
			if p.Pulling() {
				total += p.Effort
			}
		}
		s.Teams[t].Effort = total
	}

	diff := s.Teams[0].Effort - s.Teams[1].Effort
	s.RopePosition -= (diff * RopePull) / config.TicksPerSecond

	if s.RopePosition > cfg.RopeThreshold {
		s.RopePosition = cfg.RopeThreshold
	}
	if s.RopePosition < -cfg.RopeThreshold {
		s.RopePosition = -cfg.RopeThreshold
	}
}
