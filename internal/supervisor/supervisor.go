// Package supervisor starts the player workers and the renderer as child
// processes of the referee and keeps track of which of them are still
// running.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

var ErrSpawn = errors.New("spawning child process")
var ErrWorkersRunning = errors.New("workers still running")
var ErrStopped = errors.New("supervisor stopped")

type Role string

const (
	RoleWorker Role = "worker"
	RoleRender Role = "render"
)

// DefaultRendererGrace is how long the renderer may keep its final screen up
// before it is asked to terminate.
const DefaultRendererGrace = 6 * time.Second

type Options struct {
	// Executable is re-executed for every child; empty means os.Executable().
	Executable string
	Teams      int
	Players    int
	// Efforts[t][p] is the starting effort handed to each worker.
	Efforts [][]float64
	Seed    int64

	Headless      bool
	ArenaPath     string
	RopeThreshold float64
	RendererGrace time.Duration

	// ExtraArgs are appended to every child's arguments.
	ExtraArgs []string
	Env       []string
	Stdout    io.Writer
	Stderr    io.Writer
}

type child struct {
	Role   Role
	Team   int
	Player int
	PID    int
	exited bool
}

type Supervisor struct {
	opts     Options
	log      *zap.Logger
	inbox    chan msg
	pids     [][]int
	renderer int
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, opts Options, log *zap.Logger) *Supervisor {
	if opts.RendererGrace <= 0 {
		opts.RendererGrace = DefaultRendererGrace
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	ctx, cancel := context.WithCancel(parent)
	s := &Supervisor{
		opts:   opts,
		log:    log,
		inbox:  make(chan msg, 64),
		ctx:    ctx,
		cancel: cancel,
	}
	go s.loop()
	return s
}

// Spawn starts one worker per player and, unless headless, the renderer.
// If any child fails to start, the ones already running are sent SIGTERM
// and the error is returned.
func (s *Supervisor) Spawn() error {
	exe := s.opts.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return fmt.Errorf("%w: %w", ErrSpawn, err)
		}
	}

	var started []int
	fail := func(err error) error {
		if len(started) > 0 {
			s.log.Warn("stopping started children", zap.Ints("pids", started))
			if kerr := terminate(started); kerr != nil {
				err = multierr.Append(err, kerr)
			}
		}
		return err
	}

	s.pids = make([][]int, s.opts.Teams)
	for t := 0; t < s.opts.Teams; t++ {
		s.pids[t] = make([]int, s.opts.Players)
		for p := 0; p < s.opts.Players; p++ {
			c := child{Role: RoleWorker, Team: t, Player: p}
			pid, err := s.start(exe, c, s.workerArgs(t, p))
			if err != nil {
				return fail(fmt.Errorf("%w: worker %d/%d: %w", ErrSpawn, t+1, p+1, err))
			}
			s.pids[t][p] = pid
			started = append(started, pid)
		}
	}

	if !s.opts.Headless {
		args := []string{
			string(RoleRender),
			"-arena", s.opts.ArenaPath,
			"-threshold", strconv.FormatFloat(s.opts.RopeThreshold, 'f', -1, 64),
		}
		pid, err := s.start(exe, child{Role: RoleRender, Team: -1, Player: -1}, args)
		if err != nil {
			return fail(fmt.Errorf("%w: renderer: %w", ErrSpawn, err))
		}
		s.renderer = pid
	}

	s.log.Info("children started", zap.Int("workers", len(started)), zap.Bool("renderer", s.renderer != 0))
	return nil
}

func (s *Supervisor) workerArgs(t, p int) []string {
	var effort float64
	if t < len(s.opts.Efforts) && p < len(s.opts.Efforts[t]) {
		effort = s.opts.Efforts[t][p]
	}
	return []string{
		string(RoleWorker),
		"-team", strconv.Itoa(t),
		"-player", strconv.Itoa(p),
		"-effort", strconv.FormatFloat(effort, 'f', -1, 64),
		"-seed", strconv.FormatInt(s.opts.Seed+int64(t*s.opts.Players+p)+1, 10),
	}
}

func (s *Supervisor) start(exe string, c child, args []string) (int, error) {
	cmd := exec.Command(exe, append(args, s.opts.ExtraArgs...)...)
	cmd.Env = append(os.Environ(), s.opts.Env...)
	cmd.Stdout = s.opts.Stdout
	cmd.Stderr = s.opts.Stderr
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	c.PID = cmd.Process.Pid

	s.post(childStarted{c: c})
	go func() {
		err := cmd.Wait()
		s.post(childExited{pid: c.PID, err: err})
	}()
	return c.PID, nil
}

// post delivers m to the monitor unless it has already stopped.
func (s *Supervisor) post(m msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

// PIDs returns the worker pids indexed by team and player. Valid after Spawn.
func (s *Supervisor) PIDs() [][]int { return s.pids }

// RendererPID is 0 when no renderer was started.
func (s *Supervisor) RendererPID() int { return s.renderer }

// WorkerPIDs flattens PIDs.
func (s *Supervisor) WorkerPIDs() []int {
	var out []int
	for _, team := range s.pids {
		out = append(out, team...)
	}
	return out
}

// Alive lists the worker pids that have not exited yet.
func (s *Supervisor) Alive(ctx context.Context) ([]int, error) {
	reply := make(chan []int, 1)
	if err := s.ask(ctx, listAlive{role: RoleWorker, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case pids := <-reply:
		return pids, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, ErrStopped
	}
}

// Running reports whether pid is a worker the monitor has not seen exit.
// Unknown pids and a stopped supervisor both report false.
func (s *Supervisor) Running(pid int) bool {
	ctx, cancel := context.WithTimeout(s.ctx, time.Second)
	defer cancel()
	alive, err := s.Alive(ctx)
	if err != nil {
		return false
	}
	return slices.Contains(alive, pid)
}

// Exited returns a channel closed once every pid in pids has exited.
func (s *Supervisor) Exited(ctx context.Context, pids ...int) (<-chan struct{}, error) {
	done := make(chan struct{})
	if err := s.ask(ctx, awaitExit{pids: pids, done: done}); err != nil {
		return nil, err
	}
	return done, nil
}

func (s *Supervisor) ask(ctx context.Context, m msg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrStopped
	}
}

// Shutdown lets the renderer finish its final screen, then asks it to
// terminate, and waits for the workers to leave on their own until ctx
// expires. Workers are never killed; the ones still running are logged and
// reported as ErrWorkersRunning.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	defer s.cancel()

	var errs error
	if s.renderer != 0 {
		errs = multierr.Append(errs, s.stopRenderer(ctx))
	}

	done, err := s.Exited(ctx, s.WorkerPIDs()...)
	if err != nil {
		return multierr.Append(errs, err)
	}
	select {
	case <-done:
		s.log.Info("all workers exited")
		return errs
	case <-ctx.Done():
	}

	// The monitor is still up, but ctx is not; ask with a short budget.
	qctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	alive, err := s.Alive(qctx)
	if err != nil {
		return multierr.Append(errs, err)
	}
	for _, pid := range alive {
		s.log.Warn("worker still running at shutdown", zap.Int("pid", pid))
	}
	if len(alive) > 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: %d", ErrWorkersRunning, len(alive)))
	}
	return errs
}

func (s *Supervisor) stopRenderer(ctx context.Context) error {
	done, err := s.Exited(ctx, s.renderer)
	if err != nil {
		return err
	}
	grace := time.NewTimer(s.opts.RendererGrace)
	defer grace.Stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	case <-grace.C:
	}

	s.log.Info("terminating renderer", zap.Int("pid", s.renderer))
	if err := unix.Kill(s.renderer, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("terminate renderer: %w", err)
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("renderer %d: %w", s.renderer, ctx.Err())
	}
}

func terminate(pids []int) error {
	var errs error
	for _, pid := range pids {
		if err := unix.Kill(pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
			errs = multierr.Append(errs, fmt.Errorf("sigterm %d: %w", pid, err))
		}
	}
	return errs
}
