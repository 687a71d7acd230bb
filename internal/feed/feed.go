// Package feed fans arena snapshots out to spectators. A Feed is an actor:
// all of its state is owned by one goroutine and changed only through
// messages on its inbox.
package feed

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tugofwar/internal/arena"
)

type Msg interface{ isFeedMsg() }

type Join struct {
	ClientID string
	Outbox   chan arena.Snapshot // where this client wants to receive snapshots
}

func (Join) isFeedMsg() {}

type Leave struct{ ClientID string }

func (Leave) isFeedMsg() {}

type Update struct{ Snap arena.Snapshot }

func (Update) isFeedMsg() {}

type Shutdown struct{}

func (Shutdown) isFeedMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isFeedMsg() {}

type View struct {
	Published  bool
	NumClients int
	Latest     arena.Snapshot
}

type Feed struct {
	inbox     chan Msg
	latest    arena.Snapshot
	published bool
	clients   map[string]chan arena.Snapshot
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(parent context.Context, log *zap.Logger) *Feed {
	ctx, cancel := context.WithCancel(parent)

	f := &Feed{
		inbox:   make(chan Msg, 64),
		clients: make(map[string]chan arena.Snapshot),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}

	go f.loop()
	return f
}

func (f *Feed) loop() {
	for {
		select {
		case <-f.ctx.Done():
			f.shutdown()
			return

		case m := <-f.inbox:
			switch msg := m.(type) {
			case Join:
				f.clients[msg.ClientID] = msg.Outbox
				if f.published {
					f.send(msg.ClientID, msg.Outbox, f.latest)
				}
				f.log.Debug("spectator joined", zap.String("client_id", msg.ClientID), zap.Int("clients", len(f.clients)))

			case Leave:
				if _, ok := f.clients[msg.ClientID]; ok {
					delete(f.clients, msg.ClientID)
					f.log.Debug("spectator left", zap.String("client_id", msg.ClientID))
				}

			case Update:
				f.latest = msg.Snap
				f.published = true
				for id, ch := range f.clients {
					f.send(id, ch, msg.Snap)
				}

			case GetState:
				msg.Reply <- View{
					Published:  f.published,
					NumClients: len(f.clients),
					Latest:     f.latest,
				}

			case Shutdown:
				f.shutdown()
				return
			}
		}
	}
}

// send never blocks; a client whose outbox is full is dropped.
func (f *Feed) send(id string, ch chan arena.Snapshot, snap arena.Snapshot) {
	select {
	case ch <- snap:
	default:
		close(ch)
		delete(f.clients, id)
		f.log.Info("dropping slow spectator", zap.String("client_id", id))
	}
}

func (f *Feed) shutdown() {
	for id, ch := range f.clients {
		close(ch)
		delete(f.clients, id)
	}
	f.cancel()
}

// Publish hands a snapshot to the feed. It never blocks the caller: when the
// inbox is full or the feed has stopped the snapshot is dropped.
func (f *Feed) Publish(s arena.Snapshot) error {
	select {
	case f.inbox <- Update{Snap: s}:
	default:
	}
	return nil
}

// State asks the feed for its current view.
func (f *Feed) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case f.inbox <- GetState{Reply: reply}:
	case <-f.ctx.Done():
		return View{}, f.ctx.Err()
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-f.ctx.Done():
		return View{}, f.ctx.Err()
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// Done is closed once the feed has stopped.
func (f *Feed) Done() <-chan struct{} { return f.ctx.Done() }

// Inbox exposes the inbox so tests and the websocket layer can send messages.
func (f *Feed) Inbox() chan<- Msg { return f.inbox }
