package layout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRopeOffset(t *testing.T) {
	s := Scene{Width: 1000, Height: 600, Threshold: 100}
	cases := []struct {
		name string
		rope float64
		want float32
	}{
		{"centred", 0, 0},
		{"half left", -50, -125},
		{"full right", 100, 250},
		{"clamped beyond threshold", -400, -250},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, s.RopeOffset(tc.rope), 1e-4)
		})
	}

	assert.Zero(t, Scene{Width: 1000}.RopeOffset(50), "no threshold means no shift")
}

func TestRope_FollowsPosition(t *testing.T) {
	s := Scene{Width: 1000, Height: 600, Threshold: 100}
	x1, x2 := s.Rope(0)
	assert.Equal(t, float32(400), x1)
	assert.Equal(t, float32(600), x2)
	assert.Equal(t, float32(500), s.CenterX())

	x1, _ = s.Rope(-100)
	assert.Equal(t, float32(150), x1)
	assert.Equal(t, float32(300), s.RopeY())
	assert.Equal(t, float32(350), s.BaseY())
}

func TestPlayerX_MirrorsTeams(t *testing.T) {
	s := Scene{Width: 1000, Height: 600, Threshold: 100}

	// Position 1 is nearest the rope on both sides.
	assert.Equal(t, float32(340), s.PlayerX(0, 1, 0))
	assert.Equal(t, float32(160), s.PlayerX(0, 4, 0))
	assert.Equal(t, float32(660), s.PlayerX(1, 1, 0))
	assert.Equal(t, float32(840), s.PlayerX(1, 4, 0))

	for pos := 1; pos <= 4; pos++ {
		left := s.CenterX() - s.PlayerX(0, pos, 0)
		right := s.PlayerX(1, pos, 0) - s.CenterX()
		assert.Equal(t, left, right, "position %d", pos)
		assert.Equal(t, s.PlayerX(0, pos, 0)-125, s.PlayerX(0, pos, -50))
	}
}

func TestPlayerScale(t *testing.T) {
	assert.InDelta(t, 0.6, PlayerScale(0), 1e-6)
	assert.InDelta(t, 0.6, PlayerScale(-3), 1e-6)
	assert.InDelta(t, 1.0, PlayerScale(100), 1e-6)
	assert.InDelta(t, 0.8, PlayerScale(50), 1e-6)
}

func TestEndTimer(t *testing.T) {
	e := EndTimer{Delay: FinalScreenDelay}
	t0 := time.Unix(100, 0)

	e.Observe(false, t0)
	assert.False(t, e.Showing())
	assert.False(t, e.Done(t0.Add(time.Hour)))

	e.Observe(true, t0)
	e.Observe(true, t0.Add(3*time.Second))
	assert.True(t, e.Showing())
	assert.False(t, e.Done(t0.Add(4*time.Second)))
	assert.True(t, e.Done(t0.Add(5*time.Second)))
}
