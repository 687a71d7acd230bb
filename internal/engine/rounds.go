package engine

import (
	"math"

	"github.com/DoyleJ11/tugofwar/internal/config"
)

// CheckRound decides whether the current round is over. It runs once per
// simulated second and returns the events it produced, in order.
//
//	exhaustion  -> RoundWon -> MatchWon
//	threshold   -> RoundWon -> MatchWon          (streak reached)
//	threshold   -> RoundWon -> TeamsAligned      (next round pending)
func CheckRound(s *State, cfg config.MatchConfig) ([]Event, error) {
	if s.Finished() {
		return nil, ErrMatchFinished
	}
	if s.Phase != PhaseActive {
		return nil, ErrRoundOver
	}

	exhausted := AllExhausted(s)
	if !exhausted && math.Abs(s.RopePosition) < cfg.RoundWinThreshold {
		return nil, nil
	}

	winner := RopeWinner(s.RopePosition)

	if exhausted {
		s.Teams[winner].RoundWins++
		s.Phase = PhaseMatchEnd
		s.Winner = winner
		s.EndReason = ReasonExhaustion
		return []Event{
			{Type: EvtRoundWon, Team: winner, Reason: ReasonExhaustion},
			{Type: EvtMatchWon, Team: winner, Reason: ReasonExhaustion},
		}, nil
	}

	s.Teams[winner].RoundWins++
	s.Teams[winner].ConsecutiveWins++
	for t := range s.Teams {
		if t != winner {
			s.Teams[t].ConsecutiveWins = 0
		}
	}
	events := []Event{{Type: EvtRoundWon, Team: winner, Reason: ReasonThreshold}}

	if s.Teams[winner].ConsecutiveWins >= cfg.ConsecutiveRoundsToWin {
		s.Phase = PhaseMatchEnd
		s.Winner = winner
		s.EndReason = ReasonConsecutive
		return append(events, Event{Type: EvtMatchWon, Team: winner, Reason: ReasonConsecutive}), nil
	}

	s.Phase = PhaseRoundEnd
	AlignAll(s)
	return append(events, Event{Type: EvtTeamsAligned}), nil
}

// StartRound clears the rope and team efforts and opens the next round.
func StartRound(s *State) error {
	if s.Finished() {
		return ErrMatchFinished
	}
	if s.Phase != PhaseRoundEnd {
		return ErrRoundInProgress
	}
	s.RopePosition = 0
	for t := range s.Teams {
		s.Teams[t].Effort = 0
	}
	s.RoundNumber++
	s.Phase = PhaseActive
	return nil
}

// Expire ends the match on time. The team with more round wins takes it;
// equal wins is a tie and no winner is declared.
func Expire(s *State) ([]Event, error) {
	if s.Finished() {
		return nil, ErrMatchFinished
	}
	s.Phase = PhaseExpired
	s.EndReason = ReasonTime

	best, tied := 0, false
	for t := 1; t < len(s.Teams); t++ {
		switch {
		case s.Teams[t].RoundWins > s.Teams[best].RoundWins:
			best, tied = t, false
		case s.Teams[t].RoundWins == s.Teams[best].RoundWins:
			tied = true
		}
	}
	if tied {
		s.Winner = NoWinner
		return []Event{{Type: EvtMatchTied, Team: NoWinner, Reason: ReasonTime}}, nil
	}
	s.Winner = best
	return []Event{{Type: EvtMatchWon, Team: best, Reason: ReasonTime}}, nil
}
