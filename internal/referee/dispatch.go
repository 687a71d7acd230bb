package referee

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/tugofwar/internal/engine"
	"github.com/DoyleJ11/tugofwar/internal/notify"
)

// dispatch turns state machine events into worker notifications. Only
// workers that are still running are signalled. Delivery failures are
// logged and never stop the match.
func (r *Referee) dispatch(events []engine.Event) {
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtRoundWon:
			r.log.Info("round won", zap.Int("round", r.state.RoundNumber), zap.Int("team", ev.Team+1),
				zap.String("reason", string(ev.Reason)), zap.Float64("rope", r.state.RopePosition))
			r.split(notify.RoundWin, notify.RoundLose, ev.Team, r.aliveTeamPIDs)

		case engine.EvtTeamsAligned:
			r.logAlignment()
			r.send(notify.Align, r.alivePIDs())

		case engine.EvtMatchWon:
			r.log.Info("match won", zap.Int("team", ev.Team+1), zap.String("reason", string(ev.Reason)))
			r.split(notify.MatchWin, notify.MatchLose, ev.Team, r.aliveTeamPIDs)

		case engine.EvtMatchTied:
			r.log.Info("match tied")
			r.send(notify.MatchLose, r.alivePIDs())
		}
	}
}

func (r *Referee) split(win, lose notify.Kind, winner int, pidsOf func(int) []int) {
	for t := range r.state.Teams {
		kind := lose
		if t == winner {
			kind = win
		}
		r.send(kind, pidsOf(t))
	}
}

func (r *Referee) send(kind notify.Kind, pids []int) {
	if len(pids) == 0 {
		return
	}
	if err := r.notifier.Notify(kind, pids...); err != nil {
		r.log.Warn("notifying workers", zap.String("event", string(kind)), zap.Error(err))
	}
}

func (r *Referee) teamPIDs(t int) []int {
	var out []int
	for _, p := range r.state.Teams[t].Players {
		if p.PID > 0 {
			out = append(out, p.PID)
		}
	}
	return out
}

func (r *Referee) aliveTeamPIDs(t int) []int {
	var out []int
	for _, pid := range r.teamPIDs(t) {
		if r.alive(pid) {
			out = append(out, pid)
		}
	}
	return out
}

func (r *Referee) alivePIDs() []int {
	var out []int
	for t := range r.state.Teams {
		out = append(out, r.aliveTeamPIDs(t)...)
	}
	return out
}

func (r *Referee) logAlignment() {
	for t, team := range r.state.Teams {
		positions := make([]int, len(team.Players))
		for i, p := range team.Players {
			positions[i] = p.Position
		}
		r.log.Debug("team aligned", zap.Int("team", t+1), zap.Ints("positions", positions))
	}
}
