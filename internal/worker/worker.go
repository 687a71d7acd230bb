// Package worker is the player process. A worker never sees the match
// state: it sleeps until an event or its own timer wakes it, then decides
// from its local effort whether to keep waiting.
package worker

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/DoyleJ11/tugofwar/internal/notify"
)

type Worker struct {
	Team   int
	Player int

	effort float64
	rounds int
	rng    *rand.Rand
	log    *zap.Logger
}

// New creates a worker holding its own copy of its starting effort.
func New(team, player int, effort float64, seed int64, log *zap.Logger) *Worker {
	return &Worker{
		Team:   team,
		Player: player,
		effort: effort,
		rng:    rand.New(rand.NewSource(seed)),
		log:    log.With(zap.Int("team", team+1), zap.Int("player", player+1)),
	}
}

// Effort is the worker's local view of its effort.
func (w *Worker) Effort() float64 { return w.effort }

// Loop suspends until an event, a timer fire or cancellation. It returns nil
// once the local effort has dropped to zero or ctx is cancelled.
func (w *Worker) Loop(ctx context.Context, events <-chan notify.Kind) error {
	timer := time.NewTimer(w.period())
	defer timer.Stop()

	w.log.Debug("worker waiting", zap.Float64("effort", w.effort))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return nil

		case kind, ok := <-events:
			if !ok {
				w.log.Info("event source closed")
				return nil
			}
			w.handle(kind)

		case <-timer.C:
			timer.Reset(w.period())
		}

		if w.effort <= 0 {
			w.log.Info("worker exiting", zap.Int("rounds_seen", w.rounds))
			return nil
		}
	}
}

func (w *Worker) handle(kind notify.Kind) {
	switch kind {
	case notify.RoundWin, notify.RoundLose:
		w.rounds++
		w.log.Debug("round result", zap.String("event", string(kind)))
	case notify.MatchWin, notify.MatchLose:
		w.effort = 0
		w.log.Info("match result", zap.String("event", string(kind)))
	case notify.Align:
		w.log.Debug("teams aligned")
	default:
		w.log.Warn("unknown event", zap.String("event", string(kind)))
	}
}

// period is the randomized wake-up interval, 1 to 3 seconds.
func (w *Worker) period() time.Duration {
	return time.Duration(1+w.rng.Intn(3)) * time.Second
}

// Run drives Loop from process signals. SIGTERM and SIGINT end it cleanly.
func Run(ctx context.Context, w *Worker) error {
	ctx, stop := signal.NotifyContext(ctx, unix.SIGTERM, unix.SIGINT)
	defer stop()

	sigs := make(chan os.Signal, len(notify.Kinds))
	signal.Notify(sigs, notify.Signals()...)
	defer signal.Stop(sigs)

	events := make(chan notify.Kind, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				if kind, ok := notify.KindOf(sig); ok {
					notify.Deliver(events, kind)
				}
			}
		}
	}()

	return w.Loop(ctx, events)
}
