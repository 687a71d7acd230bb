// Package layout holds the renderer's scene geometry. It has no raylib
// dependency so it can be tested without a display.
package layout

import "time"

// FinalScreenDelay is how long the final score stays up before the
// renderer exits.
const FinalScreenDelay = 5 * time.Second

const (
	team1BaseX   = 0.25
	team2BaseX   = 0.75
	ropeCenterX  = 0.50
	maxRopeShift = 0.25 // of the window width at full threshold
	ropeHalfLen  = 100
	playerGap    = 60
	baseDrop     = 50 // players stand this far below the rope
)

// Scene maps arena values to screen coordinates. Y grows downwards.
type Scene struct {
	Width     float32
	Height    float32
	Threshold float64
}

// RopeOffset is the horizontal shift of the rope in pixels. A negative
// rope position pulls everything to the left, towards team 1.
func (s Scene) RopeOffset(rope float64) float32 {
	if s.Threshold <= 0 {
		return 0
	}
	r := rope / s.Threshold
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return float32(r) * maxRopeShift * s.Width
}

func (s Scene) RopeY() float32 { return 0.5 * s.Height }

// Rope returns the endpoints of the drawn rope segment.
func (s Scene) Rope(rope float64) (x1, x2 float32) {
	c := ropeCenterX*s.Width + s.RopeOffset(rope)
	return c - ropeHalfLen, c + ropeHalfLen
}

// CenterX is the fixed center marker.
func (s Scene) CenterX() float32 { return ropeCenterX * s.Width }

// BaseY is where the players' feet are.
func (s Scene) BaseY() float32 { return s.RopeY() + baseDrop }

// PlayerX places a player by team and rope position (1-based). Team 1
// stands left of center with position 1 nearest the rope; team 2 mirrors it.
func (s Scene) PlayerX(team, position int, rope float64) float32 {
	idx := float32(position - 1)
	base := float32(team1BaseX)
	offset := (1.5 - idx) * playerGap
	if team != 0 {
		base = team2BaseX
		offset = (idx - 1.5) * playerGap
	}
	return base*s.Width + s.RopeOffset(rope) + offset
}

// PlayerScale grows the figure with energy, 0.6 at zero energy and 1.0 at 100.
func PlayerScale(energy float64) float32 {
	if energy < 0 {
		energy = 0
	}
	return 0.6 + float32(energy/100)*0.4
}

// EndTimer tracks the final screen. The renderer should exit once Done
// reports true.
type EndTimer struct {
	Delay time.Duration
	since time.Time
}

// Observe records whether the latest snapshot marked the match ended.
func (e *EndTimer) Observe(ended bool, now time.Time) {
	if ended && e.since.IsZero() {
		e.since = now
	}
}

func (e *EndTimer) Showing() bool { return !e.since.IsZero() }

func (e *EndTimer) Done(now time.Time) bool {
	return e.Showing() && now.Sub(e.since) >= e.Delay
}
