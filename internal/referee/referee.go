// Package referee runs the match: it owns the authoritative state, drives
// the tick loop and tells the workers what happened.
package referee

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tugofwar/internal/arena"
	"github.com/DoyleJ11/tugofwar/internal/config"
	"github.com/DoyleJ11/tugofwar/internal/engine"
	"github.com/DoyleJ11/tugofwar/internal/notify"
	"github.com/DoyleJ11/tugofwar/internal/telemetry"
)

type Options struct {
	Config     config.MatchConfig
	Rand       *rand.Rand
	Notifier   notify.Notifier
	Publishers []arena.Publisher
	Output     *telemetry.Output

	// Alive reports whether a worker is still running; every notification
	// skips the ones that are not. Defaults to notify.Alive.
	Alive func(pid int) bool
	Now   func() time.Time
	// TickInterval and Countdown default to the configured values. A
	// negative Countdown disables the intermissions.
	TickInterval time.Duration
	Countdown    time.Duration
}

type Referee struct {
	cfg       config.MatchConfig
	state     *engine.State
	rng       *rand.Rand
	notifier  notify.Notifier
	pubs      []arena.Publisher
	out       *telemetry.Output
	alive     func(int) bool
	now       func() time.Time
	tick      time.Duration
	countdown time.Duration
	log       *zap.Logger
}

// New builds the starting teams from opts.Rand.
func New(opts Options, log *zap.Logger) *Referee {
	r := &Referee{
		cfg:       opts.Config,
		rng:       opts.Rand,
		notifier:  opts.Notifier,
		pubs:      opts.Publishers,
		out:       opts.Output,
		alive:     opts.Alive,
		now:       opts.Now,
		tick:      opts.TickInterval,
		countdown: opts.Countdown,
		log:       log,
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if r.alive == nil {
		r.alive = notify.Alive
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.tick <= 0 {
		r.tick = r.cfg.TickInterval()
	}
	if r.cfg.EnergyReportInterval < 1 {
		r.cfg.EnergyReportInterval = 1
	}
	switch {
	case r.countdown == 0:
		r.countdown = time.Duration(r.cfg.Countdown) * time.Second
	case r.countdown < 0:
		r.countdown = 0
	}
	r.state = engine.NewState(r.cfg, r.rng)
	return r
}

// State exposes the authoritative state. It must not be touched while Run
// is executing.
func (r *Referee) State() *engine.State { return r.state }

// Efforts returns every player's starting effort, indexed by team and player.
func (r *Referee) Efforts() [][]float64 {
	out := make([][]float64, len(r.state.Teams))
	for t, team := range r.state.Teams {
		out[t] = make([]float64, len(team.Players))
		for p, pl := range team.Players {
			out[t][p] = pl.Effort
		}
	}
	return out
}

// AttachPIDs records the worker process ids in the player records.
func (r *Referee) AttachPIDs(pids [][]int) {
	for t := range r.state.Teams {
		if t >= len(pids) {
			break
		}
		for p := range r.state.Teams[t].Players {
			if p < len(pids[t]) {
				r.state.Teams[t].Players[p].PID = pids[t][p]
			}
		}
	}
}

// Run plays the match to the end and returns its result. When ctx is
// cancelled first, the workers are told the match is lost and ctx.Err() is
// returned alongside the partial result.
func (r *Referee) Run(ctx context.Context) (engine.Result, error) {
	engine.AlignAll(r.state)
	r.publish()

	r.log.Info("match starting", zap.Duration("countdown", r.countdown),
		zap.Int("teams", len(r.state.Teams)), zap.Int("players_per_team", r.cfg.PlayersPerTeam))
	if err := r.wait(ctx, r.countdown); err != nil {
		return r.abort(err)
	}

	r.state.StartedAt = r.now()
	expiry := time.NewTimer(r.cfg.Duration())
	defer expiry.Stop()
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	ticks := 0
	var resumeAt time.Time
	for {
		select {
		case <-ctx.Done():
			return r.abort(ctx.Err())

		case <-expiry.C:
			return r.expire()

		case <-ticker.C:
			now := r.now()
			if !resumeAt.IsZero() {
				if now.Before(resumeAt) {
					continue
				}
				resumeAt = time.Time{}
				if err := engine.StartRound(r.state); err != nil {
					r.log.Error("starting round", zap.Error(err))
					continue
				}
				r.log.Info("round started", zap.Int("round", r.state.RoundNumber))
			}

			engine.Step(r.state, r.cfg, r.rng, now)
			r.publish()

			ticks++
			if ticks%config.TicksPerSecond != 0 {
				continue
			}
			if secs := ticks / config.TicksPerSecond; secs%r.cfg.EnergyReportInterval == 0 {
				r.report(now)
			}
			if now.Sub(r.state.StartedAt) >= r.cfg.Duration() {
				return r.expire()
			}

			events, err := engine.CheckRound(r.state, r.cfg)
			if err != nil {
				r.log.Error("checking round", zap.Error(err))
				continue
			}
			r.dispatch(events)
			if r.state.Finished() {
				return r.finish()
			}
			if engine.ContainsEvent(events, engine.EvtTeamsAligned) {
				r.publish()
				resumeAt = now.Add(r.countdown)
				r.log.Info("next round starting", zap.Int("round", r.state.RoundNumber+1), zap.Duration("countdown", r.countdown))
			}
		}
	}
}

func (r *Referee) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Referee) expire() (engine.Result, error) {
	events, err := engine.Expire(r.state)
	if err != nil {
		return r.state.Result(r.now()), err
	}
	r.log.Info("game time expired")
	r.dispatch(events)
	return r.finish()
}

func (r *Referee) finish() (engine.Result, error) {
	r.publish()
	res := r.state.Result(r.now())
	r.log.Info("match over",
		zap.Int("winner", res.Winner+1),
		zap.String("reason", string(res.Reason)),
		zap.Ints("round_wins", res.RoundWins),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// abort ends an interrupted match without declaring a winner.
func (r *Referee) abort(cause error) (engine.Result, error) {
	r.log.Warn("match interrupted", zap.Error(cause))
	r.send(notify.MatchLose, r.alivePIDs())
	snap := arena.FromState(r.state)
	snap.GameEnded = true
	snap.FinalWinner = arena.NoWinner
	r.publishSnapshot(snap)
	return r.state.Result(r.now()), cause
}

func (r *Referee) publish() {
	r.publishSnapshot(arena.FromState(r.state))
}

func (r *Referee) publishSnapshot(snap arena.Snapshot) {
	for _, p := range r.pubs {
		if err := p.Publish(snap); err != nil {
			r.log.Warn("publishing snapshot", zap.Error(err))
		}
	}
}

func (r *Referee) report(now time.Time) {
	rep := telemetry.NewReport(r.state, now.Sub(r.state.StartedAt))
	rep.Log(r.log)
	if err := r.out.WriteReport(rep); err != nil {
		r.log.Warn("writing report", zap.Error(err))
	}
}
