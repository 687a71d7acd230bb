package arena

import (
	"encoding/binary"
	"math"
	"time"
)

// Slot layout, all fields 8 bytes little-endian:
//
//	rope f64 | round u64 | ended u64 | winner i64
//	per team:   wins i64 | effort f64
//	per player: energy f64 | effort f64 | decay f64 | position i64 |
//	            flags u64 (bit0 active, bit1 recovering) | recover_time unix-nanos i64 | pid i64
const (
	slotFixedSize = 4 * 8
	teamSize      = 2 * 8
	playerSize    = 7 * 8
)

const (
	flagActive uint64 = 1 << iota
	flagRecovering
)

func slotSize(teams, players int) int {
	return slotFixedSize + teams*teamSize + teams*players*playerSize
}

type cursor struct {
	b   []byte
	off int
}

func (c *cursor) putU64(v uint64) {
	binary.LittleEndian.PutUint64(c.b[c.off:], v)
	c.off += 8
}

func (c *cursor) putI64(v int64)   { c.putU64(uint64(v)) }
func (c *cursor) putF64(v float64) { c.putU64(math.Float64bits(v)) }

func (c *cursor) u64() uint64 {
	v := binary.LittleEndian.Uint64(c.b[c.off:])
	c.off += 8
	return v
}

func (c *cursor) i64() int64   { return int64(c.u64()) }
func (c *cursor) f64() float64 { return math.Float64frombits(c.u64()) }

// encode writes s into buf, which must be slotSize(teams, players) long.
// Missing teams or players are written as zeroes.
func encode(buf []byte, s *Snapshot, teams, players int) {
	c := cursor{b: buf}
	c.putF64(s.RopePosition)
	c.putU64(uint64(s.RoundNumber))
	ended := uint64(0)
	if s.GameEnded {
		ended = 1
	}
	c.putU64(ended)
	c.putI64(int64(s.FinalWinner))

	for t := 0; t < teams; t++ {
		var wins int
		var effort float64
		if t < len(s.RoundWins) {
			wins = s.RoundWins[t]
		}
		if t < len(s.TeamEffort) {
			effort = s.TeamEffort[t]
		}
		c.putI64(int64(wins))
		c.putF64(effort)
	}

	for t := 0; t < teams; t++ {
		for i := 0; i < players; i++ {
			var v PlayerView
			if t < len(s.Players) && i < len(s.Players[t]) {
				v = s.Players[t][i]
			}
			c.putF64(v.Energy)
			c.putF64(v.Effort)
			c.putF64(v.DecayRate)
			c.putI64(int64(v.Position))
			var flags uint64
			if v.Active {
				flags |= flagActive
			}
			if v.Recovering {
				flags |= flagRecovering
			}
			c.putU64(flags)
			var nanos int64
			if !v.RecoverTime.IsZero() {
				nanos = v.RecoverTime.UnixNano()
			}
			c.putI64(nanos)
			c.putI64(int64(v.PID))
		}
	}
}

func decode(buf []byte, teams, players int) Snapshot {
	c := cursor{b: buf}
	s := Snapshot{
		RopePosition: c.f64(),
		RoundNumber:  int(c.u64()),
		GameEnded:    c.u64() != 0,
		FinalWinner:  int(c.i64()),
		RoundWins:    make([]int, teams),
		TeamEffort:   make([]float64, teams),
		Players:      make([][]PlayerView, teams),
	}
	for t := 0; t < teams; t++ {
		s.RoundWins[t] = int(c.i64())
		s.TeamEffort[t] = c.f64()
	}
	for t := 0; t < teams; t++ {
		views := make([]PlayerView, players)
		for i := range views {
			v := PlayerView{
				Energy:    c.f64(),
				Effort:    c.f64(),
				DecayRate: c.f64(),
				Position:  int(c.i64()),
			}
			flags := c.u64()
			v.Active = flags&flagActive != 0
			v.Recovering = flags&flagRecovering != 0
			if nanos := c.i64(); nanos != 0 {
				v.RecoverTime = time.Unix(0, nanos)
			}
			v.PID = int(c.i64())
			views[i] = v
		}
		s.Players[t] = views
	}
	return s
}
