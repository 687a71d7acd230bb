package notify

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// SIGURG is left alone: the Go runtime uses it for goroutine preemption.
var signals = map[Kind]unix.Signal{
	RoundWin:  unix.SIGUSR1,
	RoundLose: unix.SIGUSR2,
	MatchWin:  unix.SIGWINCH,
	MatchLose: unix.SIGIO,
	Align:     unix.SIGHUP,
}

// SignalOf returns the POSIX signal that carries kind.
func SignalOf(kind Kind) (unix.Signal, bool) {
	sig, ok := signals[kind]
	return sig, ok
}

// KindOf maps a received signal back to its event kind.
func KindOf(sig os.Signal) (Kind, bool) {
	for kind, s := range signals {
		if sig == os.Signal(s) {
			return kind, true
		}
	}
	return "", false
}

// Signals returns every signal a worker should listen for.
func Signals() []os.Signal {
	out := make([]os.Signal, 0, len(Kinds))
	for _, kind := range Kinds {
		out = append(out, signals[kind])
	}
	return out
}

// SignalBus notifies worker processes by pid.
type SignalBus struct{}

func (SignalBus) Notify(kind Kind, pids ...int) error {
	sig, ok := signals[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	var err error
	for _, pid := range pids {
		// 0 and negative pids address process groups.
		if pid <= 0 {
			continue
		}
		if e := unix.Kill(pid, sig); e != nil {
			err = multierr.Append(err, fmt.Errorf("sending %s to pid %d: %w", kind, pid, e))
		}
	}
	return err
}

// Alive reports whether pid still exists.
func Alive(pid int) bool {
	return pid > 0 && unix.Kill(pid, 0) == nil
}
