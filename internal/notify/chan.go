package notify

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// ChanBus is the in-process Notifier for workers run as goroutines, with one
// single-slot mailbox per id. The referee binary uses SignalBus; ChanBus
// drives Worker.Loop when referee and workers share a process, as in tests.
type ChanBus struct {
	mu    sync.Mutex
	boxes map[int]chan Kind
}

func NewChanBus() *ChanBus {
	return &ChanBus{boxes: make(map[int]chan Kind)}
}

// Register opens the mailbox for id and returns its receive side.
func (b *ChanBus) Register(id int) <-chan Kind {
	b.mu.Lock()
	defer b.mu.Unlock()
	if box, ok := b.boxes[id]; ok {
		return box
	}
	box := make(chan Kind, 1)
	b.boxes[id] = box
	return box
}

// Unregister closes the mailbox for id.
func (b *ChanBus) Unregister(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if box, ok := b.boxes[id]; ok {
		close(box)
		delete(b.boxes, id)
	}
}

func (b *ChanBus) Notify(kind Kind, ids ...int) error {
	if _, ok := signals[kind]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	for _, id := range ids {
		box, ok := b.boxes[id]
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: %d", ErrNoMailbox, id))
			continue
		}
		Deliver(box, kind)
	}
	return err
}
