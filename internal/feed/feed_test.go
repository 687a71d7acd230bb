package feed

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tugofwar/internal/arena"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan arena.Snapshot, within time.Duration) arena.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return arena.Snapshot{}
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan arena.Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
	}
}

func recvClosed(t *testing.T, ch <-chan arena.Snapshot, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("outbox still open after %v", within)
		}
	}
}

func snapAt(rope float64, round int) arena.Snapshot {
	return arena.Snapshot{RopePosition: rope, RoundNumber: round, FinalWinner: arena.NoWinner}
}

func TestFeed_JoinBeforeFirstPublishGetsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := New(ctx, zap.NewNop())

	out := make(chan arena.Snapshot, 2)
	f.Inbox() <- Join{ClientID: "c1", Outbox: out}
	recvNoSnapshot(t, out, 50*time.Millisecond)

	view, err := f.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if view.Published || view.NumClients != 1 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestFeed_JoinGetsLatestThenBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := New(ctx, zap.NewNop())

	if err := f.Publish(snapAt(3, 1)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	out := make(chan arena.Snapshot, 2)
	f.Inbox() <- Join{ClientID: "c1", Outbox: out}
	first := recvSnapshot(t, out, 100*time.Millisecond)
	if first.RopePosition != 3 {
		t.Fatalf("after join: want rope 3, got %v", first.RopePosition)
	}

	_ = f.Publish(snapAt(-8, 2))
	next := recvSnapshot(t, out, 100*time.Millisecond)
	if next.RopePosition != -8 || next.RoundNumber != 2 {
		t.Fatalf("after publish: got %+v", next)
	}

	f.Inbox() <- Shutdown{}
	recvClosed(t, out, 200*time.Millisecond)
}

func TestFeed_DropSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := New(ctx, zap.NewNop())

	out := make(chan arena.Snapshot, 1)
	f.Inbox() <- Join{ClientID: "slow", Outbox: out}
	_ = f.Publish(snapAt(1, 1))
	_ = f.Publish(snapAt(2, 1))

	view, err := f.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if view.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}
	if view.Latest.RopePosition != 2 {
		t.Fatalf("latest rope: got %v", view.Latest.RopePosition)
	}
}

func TestFeed_LeaveStopsDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := New(ctx, zap.NewNop())

	out := make(chan arena.Snapshot, 4)
	f.Inbox() <- Join{ClientID: "c1", Outbox: out}
	f.Inbox() <- Leave{ClientID: "c1"}
	_ = f.Publish(snapAt(5, 1))

	if _, err := f.State(ctx); err != nil {
		t.Fatalf("state: %v", err)
	}
	recvNoSnapshot(t, out, 50*time.Millisecond)
}

func TestFeed_CancelClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := New(ctx, zap.NewNop())

	out := make(chan arena.Snapshot, 1)
	f.Inbox() <- Join{ClientID: "c1", Outbox: out}
	if _, err := f.State(context.Background()); err != nil {
		t.Fatalf("state: %v", err)
	}

	cancel()
	recvClosed(t, out, 200*time.Millisecond)

	select {
	case <-f.Done():
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("feed not done after cancel")
	}
	if _, err := f.State(context.Background()); err == nil {
		t.Fatalf("expected error from stopped feed")
	}
	// Publishing to a stopped feed must not block.
	_ = f.Publish(snapAt(0, 1))
}
