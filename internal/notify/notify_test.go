package notify

import (
	"math"
	"os"
	"os/signal"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func recvKind(t *testing.T, ch <-chan Kind, within time.Duration) Kind {
	t.Helper()
	select {
	case k, ok := <-ch:
		require.True(t, ok, "mailbox closed unexpectedly")
		return k
	case <-time.After(within):
		t.Fatalf("timed out waiting for event")
		return ""
	}
}

func TestSignalMapping_RoundTrips(t *testing.T) {
	seen := map[unix.Signal]Kind{}
	for _, kind := range Kinds {
		sig, ok := SignalOf(kind)
		require.True(t, ok, "kind %s has no signal", kind)
		assert.NotEqual(t, unix.SIGURG, sig)
		if prev, dup := seen[sig]; dup {
			t.Fatalf("%s and %s share signal %v", prev, kind, sig)
		}
		seen[sig] = kind

		back, ok := KindOf(sig)
		require.True(t, ok)
		assert.Equal(t, kind, back)
	}
	assert.Len(t, Signals(), len(Kinds))

	_, ok := KindOf(unix.SIGTERM)
	assert.False(t, ok)
}

func TestSignalBus_DeliversToProcess(t *testing.T) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGWINCH)
	defer signal.Stop(sigs)

	require.NoError(t, SignalBus{}.Notify(MatchWin, os.Getpid()))

	select {
	case sig := <-sigs:
		kind, ok := KindOf(sig)
		require.True(t, ok)
		assert.Equal(t, MatchWin, kind)
	case <-time.After(2 * time.Second):
		t.Fatalf("signal not received")
	}
}

func TestSignalBus_Errors(t *testing.T) {
	assert.ErrorIs(t, SignalBus{}.Notify(Kind("jump"), os.Getpid()), ErrUnknownKind)

	// Unassigned ids are skipped rather than broadcast to the process group.
	assert.NoError(t, SignalBus{}.Notify(Align, 0, -1))

	err := SignalBus{}.Notify(Align, math.MaxInt32)
	require.Error(t, err)
	assert.ErrorIs(t, err, unix.ESRCH)
}

func TestAlive(t *testing.T) {
	assert.True(t, Alive(os.Getpid()))
	assert.False(t, Alive(0))
	assert.False(t, Alive(math.MaxInt32))
}

func TestChanBus_LastEventWins(t *testing.T) {
	bus := NewChanBus()
	box := bus.Register(11)

	require.NoError(t, bus.Notify(RoundWin, 11))
	require.NoError(t, bus.Notify(Align, 11))
	require.NoError(t, bus.Notify(MatchLose, 11))

	assert.Equal(t, MatchLose, recvKind(t, box, 100*time.Millisecond))
	select {
	case k := <-box:
		t.Fatalf("expected a single pending event, got extra %s", k)
	default:
	}
}

func TestChanBus_FansOutAndReportsMissingMailboxes(t *testing.T) {
	bus := NewChanBus()
	a := bus.Register(1)
	b := bus.Register(2)

	err := bus.Notify(RoundLose, 1, 2, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMailbox)

	assert.Equal(t, RoundLose, recvKind(t, a, 100*time.Millisecond))
	assert.Equal(t, RoundLose, recvKind(t, b, 100*time.Millisecond))
}

func TestChanBus_UnregisterClosesMailbox(t *testing.T) {
	bus := NewChanBus()
	box := bus.Register(5)
	assert.Equal(t, box, bus.Register(5))

	bus.Unregister(5)
	_, ok := <-box
	assert.False(t, ok)
	assert.ErrorIs(t, bus.Notify(Align, 5), ErrNoMailbox)
}
