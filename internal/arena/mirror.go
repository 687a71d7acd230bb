package arena

import "sync/atomic"

// Mirror is an in-process Publisher for readers that share the referee's
// address space. The referee binary publishes to a Region and the spectator
// feed; Mirror is what referee tests inspect.
type Mirror struct {
	cur atomic.Pointer[Snapshot]
	seq atomic.Uint64
}

func NewMirror() *Mirror { return &Mirror{} }

// Publish stores a private copy of s.
func (m *Mirror) Publish(s Snapshot) error {
	c := clone(s)
	c.Version = m.seq.Add(1)
	m.cur.Store(&c)
	return nil
}

func (m *Mirror) Read() (Snapshot, error) {
	p := m.cur.Load()
	if p == nil {
		return Snapshot{}, ErrNotPublished
	}
	return clone(*p), nil
}

func clone(s Snapshot) Snapshot {
	out := s
	out.RoundWins = append([]int(nil), s.RoundWins...)
	out.TeamEffort = append([]float64(nil), s.TeamEffort...)
	out.Players = make([][]PlayerView, len(s.Players))
	for i, views := range s.Players {
		out.Players[i] = append([]PlayerView(nil), views...)
	}
	return out
}
