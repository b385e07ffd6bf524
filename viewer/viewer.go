// Package viewer renders the simulation with raylib and maps mouse
// input onto the draggable obstacle.
package viewer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slosh/config"
	"github.com/pthm-cable/slosh/scene"
)

// Viewer draws a scene into a raylib window.
type Viewer struct {
	screenW, screenH float32
	worldW, worldH   float32
	scale            float32 // pixels per world unit
	paused           bool
	showPanel        bool

	panel *ParamsPanel
}

// New creates a viewer for the given configuration.
func New(cfg *config.Config) *Viewer {
	v := &Viewer{
		screenW: float32(cfg.Screen.Width),
		screenH: float32(cfg.Screen.Height),
		worldW:  float32(cfg.World.Width),
		worldH:  float32(cfg.World.Height),
		panel:   NewParamsPanel(10, 10, 260),
	}
	v.scale = v.screenW / v.worldW
	if s := v.screenH / v.worldH; s < v.scale {
		v.scale = s
	}
	return v
}

// Paused reports whether stepping is suspended.
func (v *Viewer) Paused() bool { return v.paused }

// toScreen maps world coordinates to screen pixels. The world Y axis
// points up; the screen's points down.
func (v *Viewer) toScreen(x, y float32) (float32, float32) {
	return x * v.scale, v.screenH - y*v.scale
}

// toWorld maps screen pixels to world coordinates.
func (v *Viewer) toWorld(x, y float32) (float32, float32) {
	return x / v.scale, (v.screenH - y) / v.scale
}

// HandleInput processes keyboard and mouse input for one frame.
func (v *Viewer) HandleInput(s *scene.Scene) {
	if rl.IsKeyPressed(rl.KeySpace) {
		v.paused = !v.paused
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		v.showPanel = !v.showPanel
	}

	// Mouse drives the obstacle; input is ignored while the cursor is
	// over the open panel. A held button that leaves the panel starts a
	// drag via Drag.
	mouse := rl.GetMousePosition()
	if v.showPanel && v.panel.Contains(mouse.X, mouse.Y) {
		return
	}
	wx, wy := v.toWorld(mouse.X, mouse.Y)
	switch {
	case rl.IsMouseButtonPressed(rl.MouseLeftButton):
		s.StartDrag(wx, wy)
	case rl.IsMouseButtonDown(rl.MouseLeftButton):
		s.Drag(wx, wy)
	case rl.IsMouseButtonReleased(rl.MouseLeftButton):
		s.EndDrag()
	}
}

// Draw renders one frame.
func (v *Viewer) Draw(s *scene.Scene) {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	// Tank outline
	tx, ty := v.toScreen(s.Tank.X, s.Tank.Y)
	rl.DrawCircleLines(int32(tx), int32(ty), s.Tank.R*v.scale, rl.DarkGray)

	// Particles, coloured from the RGBA buffer
	pr := s.ParticleRadius * v.scale
	if pr < 1 {
		pr = 1
	}
	for i := 0; i < s.Particles.N; i++ {
		px, py := v.toScreen(s.Particles.Pos[2*i], s.Particles.Pos[2*i+1])
		ci := 4 * i
		col := rl.Color{
			R: uint8(s.Particles.Color[ci] * 255),
			G: uint8(s.Particles.Color[ci+1] * 255),
			B: uint8(s.Particles.Color[ci+2] * 255),
			A: uint8(s.Particles.Color[ci+3] * 255),
		}
		rl.DrawCircleV(rl.Vector2{X: px, Y: py}, pr, col)
	}

	// Obstacle
	if s.Obstacle.Active {
		ox, oy := v.toScreen(s.Obstacle.X, s.Obstacle.Y)
		rl.DrawCircleV(rl.Vector2{X: ox, Y: oy}, s.Obstacle.R*v.scale, rl.Red)
	}

	if v.showPanel {
		v.panel.Draw(s)
	}

	rl.DrawFPS(int32(v.screenW)-90, 10)

	rl.EndDrawing()
}
