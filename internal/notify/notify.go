// Package notify delivers payload-less match events from the referee to
// player workers. Delivery is fire-and-forget: nothing is acknowledged and a
// pending event may be replaced by a newer one before the worker wakes.
package notify

import (
	"errors"
)

var ErrUnknownKind = errors.New("unknown notification kind")
var ErrNoMailbox = errors.New("no mailbox for worker")

type Kind string

const (
	RoundWin  Kind = "round-win"
	RoundLose Kind = "round-lose"
	MatchWin  Kind = "match-win"
	MatchLose Kind = "match-lose"
	Align     Kind = "align"
)

// Kinds lists every event kind.
var Kinds = []Kind{RoundWin, RoundLose, MatchWin, MatchLose, Align}

// Notifier sends one event kind to a set of worker ids.
type Notifier interface {
	Notify(kind Kind, ids ...int) error
}

// Deliver puts kind into box without blocking. A pending event that the
// receiver has not consumed yet is replaced, so the last event wins.
func Deliver(box chan Kind, kind Kind) {
	for {
		select {
		case box <- kind:
			return
		default:
		}
		select {
		case <-box:
		default:
		}
	}
}
