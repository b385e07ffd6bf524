package fluid

import (
	"math"
	"testing"
)

// bigTank returns a circle large enough that no cell centre of an
// n-cell grid with spacing h lies outside it.
func bigTank(n int, h float32) Circle {
	return Circle{X: float32(n) * h / 2, Y: float32(n) * h / 2, R: float32(n) * h * 10}
}

func defaultSolveOptions(iters int) SolveOptions {
	return SolveOptions{
		NumIters:       iters,
		DT:             1.0 / 60.0,
		Density:        1000,
		OverRelaxation: 1.9,
	}
}

func TestSolveDivergenceFreeFieldUnchanged(t *testing.T) {
	// Uniform u with zero v has zero divergence on every interior cell;
	// a sweep must not touch the interior faces.
	const n = 8
	g, gb := newTestSetup(n, 1)
	for i := range gb.U {
		gb.U[i] = 1
		gb.CellType[i] = CellFluid
	}

	SolveIncompressibility(g, gb, defaultSolveOptions(1), bigTank(n, 1), Obstacle{}, 1)

	for i := 1; i < n; i++ {
		for j := 0; j < n; j++ {
			if got := gb.U[g.Idx(i, j)]; got != 1 {
				t.Errorf("u[%d,%d] = %f, want 1", i, j, got)
			}
		}
	}
	for i := 0; i < n; i++ {
		for j := 1; j < n; j++ {
			if got := gb.V[g.Idx(i, j)]; got != 0 {
				t.Errorf("v[%d,%d] = %f, want 0", i, j, got)
			}
		}
	}
}

func TestSolveReducesDivergence(t *testing.T) {
	const n = 10
	g, gb := newTestSetup(n, 1)
	for i := range gb.CellType {
		gb.CellType[i] = CellFluid
	}
	// A divergent spot in the middle.
	gb.U[g.Idx(5, 5)] = -1
	gb.U[g.Idx(6, 5)] = 1
	gb.V[g.Idx(5, 5)] = -1
	gb.V[g.Idx(5, 6)] = 1

	divAt := func(i, j int) float64 {
		d := (gb.U[g.Idx(i+1, j)] - gb.U[g.Idx(i, j)]) +
			(gb.V[g.Idx(i, j+1)] - gb.V[g.Idx(i, j)])
		return math.Abs(float64(d))
	}

	before := divAt(5, 5)
	SolveIncompressibility(g, gb, defaultSolveOptions(80), bigTank(n, 1), Obstacle{}, 1)
	after := divAt(5, 5)

	if after >= before*0.1 {
		t.Errorf("divergence %f -> %f, want at least a 10x reduction", before, after)
	}
	if gb.P[g.Idx(5, 5)] == 0 {
		t.Error("pressure accumulated nothing on the divergent cell")
	}
}

func TestSolveSkipsCellsWithSolidStencil(t *testing.T) {
	// A fluid cell fully enclosed by s=0 neighbours has sumS < eps and
	// must be skipped, leaving its divergence unresolved.
	const n = 6
	g, gb := newTestSetup(n, 1)
	for i := range gb.CellType {
		gb.CellType[i] = CellAir
	}
	gb.CellType[g.Idx(3, 3)] = CellFluid
	for _, idx := range []int{g.Idx(2, 3), g.Idx(4, 3), g.Idx(3, 2), g.Idx(3, 4)} {
		gb.S[idx] = 0
	}
	gb.U[g.Idx(4, 3)] = 1 // nonzero divergence in the enclosed cell

	SolveIncompressibility(g, gb, defaultSolveOptions(5), bigTank(n, 1), Obstacle{}, 1)

	if gb.P[g.Idx(3, 3)] != 0 {
		t.Errorf("pressure written on a cell with an all-solid stencil: %f", gb.P[g.Idx(3, 3)])
	}
}

func TestBoundaryEnforcementStaticWall(t *testing.T) {
	// With a small tank, faces adjacent to outside-circle cells must be
	// exactly zero.
	const n = 10
	g, gb := newTestSetup(n, 1)
	for i := range gb.U {
		gb.U[i] = 3
		gb.V[i] = 3
	}
	tank := Circle{X: 5, Y: 5, R: 3}

	SolveIncompressibility(g, gb, defaultSolveOptions(0), tank, Obstacle{}, 1)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			idx := g.Idx(i, j)
			uStatic := isStaticWall(i-1, j, g, tank) || isStaticWall(i, j, g, tank)
			if uStatic && gb.U[idx] != 0 {
				t.Errorf("u[%d,%d] = %f adjacent to static wall, want 0", i, j, gb.U[idx])
			}
			if !uStatic && gb.U[idx] != 3 {
				t.Errorf("u[%d,%d] = %f away from walls, want untouched", i, j, gb.U[idx])
			}
			vStatic := isStaticWall(i, j-1, g, tank) || isStaticWall(i, j, g, tank)
			if vStatic && gb.V[idx] != 0 {
				t.Errorf("v[%d,%d] = %f adjacent to static wall, want 0", i, j, gb.V[idx])
			}
		}
	}
}

func TestBoundaryEnforcementObstacle(t *testing.T) {
	const n = 12
	g, gb := newTestSetup(n, 1)

	obs := Obstacle{Active: true, X: 6, Y: 6, R: 1.6, VelX: 2.5, VelY: -1.5}
	tank := bigTank(n, 1)

	tests := []struct {
		name   string
		active bool
		wantU  func(i, j int) float32
	}{
		{
			name:   "active obstacle imposes its velocity",
			active: true,
			wantU: func(i, j int) float32 {
				if isDraggable(i-1, j, g, obs) || isDraggable(i, j, g, obs) {
					return obs.VelX
				}
				return 1
			},
		},
		{
			name:   "inactive obstacle leaves faces alone",
			active: false,
			wantU:  func(i, j int) float32 { return 1 },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for i := range gb.U {
				gb.U[i] = 1
				gb.V[i] = 1
			}
			o := obs
			o.Active = tc.active
			SolveIncompressibility(g, gb, defaultSolveOptions(0), tank, o, 1)

			// Stay away from the grid rim: those faces adjoin
			// out-of-range cells and are zeroed as static.
			for i := 1; i < n; i++ {
				for j := 1; j < n-1; j++ {
					want := tc.wantU(i, j)
					if got := gb.U[g.Idx(i, j)]; got != want {
						t.Errorf("u[%d,%d] = %f, want %f", i, j, got, want)
					}
				}
			}
		})
	}
}

func TestBoundaryStaticWinsOverObstacle(t *testing.T) {
	// An obstacle overlapping the wall ring: faces that touch both a
	// static cell and a draggable cell must be zeroed, not dragged.
	const n = 10
	g, gb := newTestSetup(n, 1)
	for i := range gb.U {
		gb.U[i] = 1
	}
	tank := Circle{X: 5, Y: 5, R: 3}
	obs := Obstacle{Active: true, X: 8, Y: 5, R: 2, VelX: 9, VelY: 9}

	SolveIncompressibility(g, gb, defaultSolveOptions(0), tank, obs, 1)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			idx := g.Idx(i, j)
			static := isStaticWall(i-1, j, g, tank) || isStaticWall(i, j, g, tank)
			if static && gb.U[idx] != 0 {
				t.Errorf("u[%d,%d] = %f on a static face, want 0", i, j, gb.U[idx])
			}
		}
	}
}

func TestSolveDriftCompensationPenalisesPacking(t *testing.T) {
	const n = 8
	g, gb := newTestSetup(n, 1)
	for i := range gb.CellType {
		gb.CellType[i] = CellFluid
	}
	// Zero divergence but over-packed centre cell.
	gb.Density[g.Idx(4, 4)] = 3

	opts := defaultSolveOptions(1)
	opts.ParticleRestDensity = 2
	opts.CompensateDrift = true

	SolveIncompressibility(g, gb, opts, bigTank(n, 1), Obstacle{}, 1)

	// The compensation term turns zero divergence into outflow.
	out := gb.U[g.Idx(5, 4)] - gb.U[g.Idx(4, 4)] + gb.V[g.Idx(4, 5)] - gb.V[g.Idx(4, 4)]
	if out <= 0 {
		t.Errorf("expected outflow from the over-packed cell, got %f", out)
	}
}
