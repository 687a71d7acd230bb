package supervisor

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/DoyleJ11/tugofwar/internal/notify"
	"github.com/DoyleJ11/tugofwar/internal/worker"
)

const helperEnv = "TUGOFWAR_HELPER_PROCESS"

// TestMain doubles as the child binary: when re-executed with helperEnv set
// it plays the requested role instead of running the tests.
func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		os.Exit(runHelper(os.Args[1:]))
	}
	os.Exit(m.Run())
}

func runHelper(args []string) int {
	if len(args) == 0 {
		return 2
	}
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	team := fs.Int("team", 0, "")
	player := fs.Int("player", 0, "")
	effort := fs.Float64("effort", 0, "")
	seed := fs.Int64("seed", 1, "")
	fs.String("arena", "", "")
	fs.Float64("threshold", 0, "")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	switch Role(args[0]) {
	case RoleWorker:
		w := worker.New(*team, *player, *effort, *seed, zap.NewNop())
		if err := worker.Run(context.Background(), w); err != nil {
			return 1
		}
		return 0
	case RoleRender:
		ctx, stop := signal.NotifyContext(context.Background(), unix.SIGTERM)
		defer stop()
		<-ctx.Done()
		return 0
	default:
		return 2
	}
}

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Executable:    os.Args[0],
		Teams:         2,
		Players:       2,
		Efforts:       [][]float64{{80, 90}, {85, 95}},
		Seed:          42,
		ArenaPath:     filepath.Join(t.TempDir(), "test.arena"),
		RopeThreshold: 100,
		RendererGrace: 50 * time.Millisecond,
		Env:           []string{helperEnv + "=1"},
	}
}

// signalUntilGone keeps sending kind to pids until none of them is alive.
// Workers install their handlers asynchronously, so a single early signal
// can be missed; the match signals are ignored by default until then.
func signalUntilGone(t *testing.T, s *Supervisor, kind notify.Kind, within time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool {
		alive, err := s.Alive(context.Background())
		if err != nil || len(alive) == 0 {
			return err == nil
		}
		_ = notify.SignalBus{}.Notify(kind, alive...)
		return false
	}, within, 50*time.Millisecond)
}

func TestSpawn_StartsEveryWorkerAndRenderer(t *testing.T) {
	s := New(context.Background(), testOptions(t), zap.NewNop())
	require.NoError(t, s.Spawn())

	pids := s.PIDs()
	require.Len(t, pids, 2)
	seen := map[int]bool{}
	for _, team := range pids {
		require.Len(t, team, 2)
		for _, pid := range team {
			assert.Positive(t, pid)
			assert.False(t, seen[pid], "duplicate pid %d", pid)
			seen[pid] = true
		}
	}
	assert.Positive(t, s.RendererPID())
	assert.False(t, seen[s.RendererPID()])

	alive, err := s.Alive(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, s.WorkerPIDs(), alive)

	signalUntilGone(t, s, notify.MatchWin, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.False(t, notify.Alive(s.RendererPID()))
}

func TestShutdown_ReportsWorkersThatKeepRunning(t *testing.T) {
	opts := testOptions(t)
	opts.Headless = true
	opts.Teams, opts.Players = 1, 1
	s := New(context.Background(), opts, zap.NewNop())
	require.NoError(t, s.Spawn())
	assert.Zero(t, s.RendererPID())

	pid := s.WorkerPIDs()[0]
	t.Cleanup(func() { _ = unix.Kill(pid, unix.SIGTERM) })

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := s.Shutdown(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorkersRunning)
	assert.True(t, notify.Alive(pid), "shutdown must not kill workers")
}

func TestExited_ClosesWhenChildLeaves(t *testing.T) {
	opts := testOptions(t)
	opts.Headless = true
	opts.Teams, opts.Players = 1, 1
	s := New(context.Background(), opts, zap.NewNop())
	require.NoError(t, s.Spawn())

	done, err := s.Exited(context.Background(), s.WorkerPIDs()...)
	require.NoError(t, err)
	select {
	case <-done:
		t.Fatalf("worker reported exited before any event")
	default:
	}

	signalUntilGone(t, s, notify.MatchLose, 5*time.Second)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("exit waiter not released")
	}
}

func TestRunning_TracksReapedWorkers(t *testing.T) {
	opts := testOptions(t)
	opts.Headless = true
	opts.Teams, opts.Players = 1, 1
	s := New(context.Background(), opts, zap.NewNop())
	require.NoError(t, s.Spawn())

	pid := s.WorkerPIDs()[0]
	assert.True(t, s.Running(pid))
	assert.False(t, s.Running(pid+100000))

	signalUntilGone(t, s, notify.MatchLose, 5*time.Second)
	assert.False(t, s.Running(pid))
}

func TestSpawn_FailsOnMissingExecutable(t *testing.T) {
	opts := testOptions(t)
	opts.Executable = filepath.Join(t.TempDir(), "does-not-exist")
	s := New(context.Background(), opts, zap.NewNop())

	err := s.Spawn()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpawn)
}

func TestWorkerArgs(t *testing.T) {
	s := &Supervisor{opts: testOptions(t)}
	args := s.workerArgs(1, 0)
	assert.Equal(t, []string{"worker", "-team", "1", "-player", "0", "-effort", "85", "-seed", "45"}, args)
}
