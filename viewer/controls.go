package viewer

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slosh/scene"
)

// ParamsPanel renders the solver parameter panel and writes slider
// values straight back into the scene between frames.
type ParamsPanel struct {
	x, y, width float32
	height      float32
}

// NewParamsPanel creates a panel anchored at (x, y).
func NewParamsPanel(x, y, width float32) *ParamsPanel {
	return &ParamsPanel{x: x, y: y, width: width, height: 300}
}

// Contains reports whether a screen point falls inside the panel.
func (p *ParamsPanel) Contains(x, y float32) bool {
	return x >= p.x && x <= p.x+p.width && y >= p.y && y <= p.y+p.height
}

// Draw renders the panel and applies any edits to the scene.
func (p *ParamsPanel) Draw(s *scene.Scene) {
	rl.DrawRectangle(int32(p.x), int32(p.y), int32(p.width), int32(p.height), rl.Fade(rl.Black, 0.7))

	x := p.x + 10
	y := p.y + 10
	w := p.width - 90

	rl.DrawText("Solver", int32(x), int32(y), 18, rl.RayWhite)
	y += 28

	rl.DrawText("Flip ratio", int32(x), int32(y), 14, rl.Gray)
	y += 18
	s.FlipRatio = gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: w, Height: 20},
		"0", "1",
		s.FlipRatio, 0, 1,
	)
	rl.DrawText(fmt.Sprintf("%.2f", s.FlipRatio), int32(x+w+10), int32(y+2), 16, rl.RayWhite)
	y += 30

	rl.DrawText("Over-relaxation", int32(x), int32(y), 14, rl.Gray)
	y += 18
	s.OverRelaxation = gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: w, Height: 20},
		"1.0", "2.0",
		s.OverRelaxation, 1.0, 2.0,
	)
	rl.DrawText(fmt.Sprintf("%.2f", s.OverRelaxation), int32(x+w+10), int32(y+2), 16, rl.RayWhite)
	y += 30

	rl.DrawText("Pressure iterations", int32(x), int32(y), 14, rl.Gray)
	y += 18
	iters := gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: w, Height: 20},
		"10", "100",
		float32(s.NumPressureIters), 10, 100,
	)
	s.NumPressureIters = int(iters)
	rl.DrawText(fmt.Sprintf("%d", s.NumPressureIters), int32(x+w+10), int32(y+2), 16, rl.RayWhite)
	y += 30

	s.CompensateDrift = gui.CheckBox(
		rl.Rectangle{X: x, Y: y, Width: 20, Height: 20},
		"Compensate drift", s.CompensateDrift,
	)
	y += 28

	s.Separate = gui.CheckBox(
		rl.Rectangle{X: x, Y: y, Width: 20, Height: 20},
		"Separate particles", s.Separate,
	)
	y += 28

	s.DynamicColors = gui.CheckBox(
		rl.Rectangle{X: x, Y: y, Width: 20, Height: 20},
		"Dynamic colours", s.DynamicColors,
	)
	y += 28

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 120, Height: 26}, "Clear obstacle") {
		s.EndDrag()
	}

	p.height = y + 36 - p.y
}
