// Package render draws the match from the shared arena. It only ever reads
// the arena.
package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tugofwar/internal/arena"
	"github.com/DoyleJ11/tugofwar/internal/render/layout"
)

const (
	windowWidth  = 1000
	windowHeight = 600
	targetFPS    = 60
)

var (
	ropeColor   = rl.NewColor(153, 77, 26, 255)
	fallenColor = rl.Gray
	teamColors  = [2]rl.Color{
		rl.NewColor(0, 77, 255, 255), // team 1 blue
		rl.NewColor(0, 204, 0, 255),  // team 2 green
	}
)

// Reader is the read side of an arena.
type Reader interface {
	Read() (arena.Snapshot, error)
}

// Run opens the window and redraws from r until the final screen has been
// shown, the window is closed or ctx is cancelled.
func Run(ctx context.Context, r Reader, threshold float64, log *zap.Logger) error {
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(windowWidth, windowHeight, "Tug of War")
	defer rl.CloseWindow()
	rl.SetTargetFPS(targetFPS)

	end := layout.EndTimer{Delay: layout.FinalScreenDelay}
	opened := time.Now()
	var last arena.Snapshot
	have := false

	for !rl.WindowShouldClose() {
		if ctx.Err() != nil {
			log.Info("renderer stopping", zap.Error(ctx.Err()))
			return nil
		}

		snap, err := r.Read()
		switch {
		case err == nil:
			last, have = snap, true
		case errors.Is(err, arena.ErrNotPublished), errors.Is(err, arena.ErrTorn):
			// keep the previous frame
		default:
			return fmt.Errorf("reading arena: %w", err)
		}

		now := time.Now()
		end.Observe(have && last.GameEnded, now)
		if end.Done(now) {
			log.Info("final screen done")
			return nil
		}

		scene := layout.Scene{
			Width:     float32(rl.GetScreenWidth()),
			Height:    float32(rl.GetScreenHeight()),
			Threshold: threshold,
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)
		quit := false
		switch {
		case !have:
			drawWaiting(scene)
		case end.Showing():
			quit = drawFinal(scene, last)
		default:
			drawMatch(scene, last, now.Sub(opened))
		}
		rl.EndDrawing()

		if quit {
			return nil
		}
	}
	return nil
}

func drawWaiting(s layout.Scene) {
	text := "Waiting for the referee..."
	w := rl.MeasureText(text, 24)
	rl.DrawText(text, int32(s.Width/2)-w/2, int32(s.Height/2), 24, rl.DarkGray)
}

// drawFinal shows the result and reports whether the close button was hit.
func drawFinal(s layout.Scene, snap arena.Snapshot) bool {
	title := "THE MATCH IS A TIE!"
	if snap.FinalWinner != arena.NoWinner {
		title = fmt.Sprintf("TEAM %d IS THE WINNER!", snap.FinalWinner+1)
	}
	score := fmt.Sprintf("Final Score: Team1=%d  |  Team2=%d", wins(snap, 0), wins(snap, 1))

	cx, cy := int32(s.Width/2), int32(s.Height*0.45)
	rl.DrawText(title, cx-rl.MeasureText(title, 32)/2, cy, 32, rl.Red)
	rl.DrawText(score, cx-rl.MeasureText(score, 20)/2, cy+48, 20, rl.Black)

	return gui.Button(rl.Rectangle{X: s.Width/2 - 60, Y: s.Height*0.45 + 90, Width: 120, Height: 30}, "Close")
}

func drawMatch(s layout.Scene, snap arena.Snapshot, elapsed time.Duration) {
	ropeY := s.RopeY()
	x1, x2 := s.Rope(snap.RopePosition)
	rl.DrawLineEx(rl.Vector2{X: x1, Y: ropeY}, rl.Vector2{X: x2, Y: ropeY}, 5, ropeColor)
	cx := s.CenterX()
	rl.DrawLineEx(rl.Vector2{X: cx, Y: ropeY - 20}, rl.Vector2{X: cx, Y: ropeY + 20}, 2, rl.Red)

	baseY := s.BaseY()
	for t, views := range snap.Players {
		if t > 1 {
			break
		}
		for _, p := range views {
			x := s.PlayerX(t, p.Position, snap.RopePosition)
			scale := layout.PlayerScale(p.Energy)
			if p.Recovering {
				drawFallen(x, baseY, scale)
			} else {
				drawPlayer(x, baseY, scale, teamColors[t])
			}
			labelX := int32(x) - 20
			rl.DrawText(fmt.Sprintf("E %.1f", p.Energy), labelX, int32(baseY)+30, 14, rl.Black)
			rl.DrawText(fmt.Sprintf("F %.1f", p.Effort), labelX, int32(baseY)+46, 14, rl.DarkGray)
		}
		if t < len(snap.TeamEffort) {
			label := fmt.Sprintf("Team %d Total Effort: %.1f", t+1, snap.TeamEffort[t])
			// under the team, starting at its outermost player
			lx := s.PlayerX(t, 4, 0) - 20
			if t == 1 {
				lx = s.PlayerX(t, 1, 0) - 20
			}
			rl.DrawText(label, int32(lx), int32(baseY)+80, 16, rl.Black)
		}
	}

	header := fmt.Sprintf("Time: %d sec | Round: %d | Team1 Wins: %d | Team2 Wins: %d | Rope: %.1f/%.1f",
		int(elapsed.Seconds()), snap.RoundNumber, wins(snap, 0), wins(snap, 1), snap.RopePosition, s.Threshold)
	gui.StatusBar(rl.Rectangle{X: 0, Y: 0, Width: s.Width, Height: 28}, header)
}

func wins(snap arena.Snapshot, t int) int {
	if t < len(snap.RoundWins) {
		return snap.RoundWins[t]
	}
	return 0
}

// drawPlayer draws a stick figure standing with its feet at (x, y).
func drawPlayer(x, y, scale float32, c rl.Color) {
	head := 10 * scale
	body := 40 * scale
	limb := 20 * scale

	hip := rl.Vector2{X: x, Y: y}
	neck := rl.Vector2{X: x, Y: y - body}
	shoulder := rl.Vector2{X: x, Y: y - body*0.7}

	rl.DrawCircleV(rl.Vector2{X: x, Y: y - body - head}, head, c)
	rl.DrawLineEx(neck, hip, 2, c)
	rl.DrawLineEx(shoulder, rl.Vector2{X: x - limb, Y: y - body*0.5}, 2, c)
	rl.DrawLineEx(shoulder, rl.Vector2{X: x + limb, Y: y - body*0.5}, 2, c)
	rl.DrawLineEx(hip, rl.Vector2{X: x - limb*0.8, Y: y + limb}, 2, c)
	rl.DrawLineEx(hip, rl.Vector2{X: x + limb*0.8, Y: y + limb}, 2, c)
}

// drawFallen draws a grey figure lying down with a red cross over its head.
func drawFallen(x, y, scale float32) {
	head := 10 * scale
	body := 40 * scale
	hy := y + 20*scale

	rl.DrawCircleV(rl.Vector2{X: x - body/2 - head, Y: hy}, head, fallenColor)
	rl.DrawLineEx(rl.Vector2{X: x - body/2, Y: hy}, rl.Vector2{X: x + body/2, Y: hy}, 2, fallenColor)

	hx := x - body/2 - head
	rl.DrawLineEx(rl.Vector2{X: hx - head, Y: hy - head}, rl.Vector2{X: hx + head, Y: hy + head}, 2, rl.Red)
	rl.DrawLineEx(rl.Vector2{X: hx - head, Y: hy + head}, rl.Vector2{X: hx + head, Y: hy - head}, 2, rl.Red)
}
