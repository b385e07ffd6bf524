package fluid

// SolveOptions carries the pressure-projection parameters.
type SolveOptions struct {
	NumIters            int
	DT                  float32
	Density             float32
	OverRelaxation      float32
	ParticleRestDensity float32
	CompensateDrift     bool
}

// SolveIncompressibility reduces divergence over fluid cells with
// serial Gauss-Seidel sweeps, then enforces the static-wall and
// obstacle boundary conditions on face velocities.
//
// The sweep order defines the solver; do not parallelise or reorder the
// pressure loop. The pressure buffer is accumulated into, not reset.
func SolveIncompressibility(g Grid, gb *GridBuffers, opts SolveOptions, tank Circle, obs Obstacle, workers int) {
	cp := opts.Density * g.H / opts.DT
	n := g.NumY

	for iter := 0; iter < opts.NumIters; iter++ {
		for i := 1; i < g.NumX-1; i++ {
			for j := 1; j < g.NumY-1; j++ {
				idx := i*n + j
				if gb.CellType[idx] != CellFluid {
					continue
				}

				left := (i-1)*n + j
				right := (i+1)*n + j
				bottom := i*n + j - 1
				top := i*n + j + 1

				sx0 := gb.S[left]
				sx1 := gb.S[right]
				sy0 := gb.S[bottom]
				sy1 := gb.S[top]
				sumS := sx0 + sx1 + sy0 + sy1
				if sumS < normEps {
					continue
				}

				div := (gb.U[right] - gb.U[idx]) + (gb.V[top] - gb.V[idx])

				if opts.ParticleRestDensity > 0 && opts.CompensateDrift {
					comp := gb.Density[idx] - opts.ParticleRestDensity
					if comp > 0 {
						div -= comp
					}
				}

				p := -div / sumS * opts.OverRelaxation
				gb.P[idx] += cp * p

				gb.U[idx] -= sx0 * p
				gb.U[right] += sx1 * p
				gb.V[idx] -= sy0 * p
				gb.V[top] += sy1 * p
			}
		}
	}

	enforceBoundaries(g, gb, tank, obs, workers)
}

// enforceBoundaries applies the face-velocity policy: a face touching a
// static-wall cell is zeroed; otherwise a face touching a draggable
// cell takes the obstacle velocity. Static wins ties.
func enforceBoundaries(g Grid, gb *GridBuffers, tank Circle, obs Obstacle, workers int) {
	n := g.NumY

	// u-faces adjoin cells (i-1, j) and (i, j).
	parallelRange(workers, 0, g.NumX, func(i int) {
		for j := 0; j < g.NumY; j++ {
			idx := i*n + j
			if isStaticWall(i-1, j, g, tank) || isStaticWall(i, j, g, tank) {
				gb.U[idx] = 0
			} else if isDraggable(i-1, j, g, obs) || isDraggable(i, j, g, obs) {
				gb.U[idx] = obs.VelX
			}
		}
	})

	// v-faces adjoin cells (i, j-1) and (i, j).
	parallelRange(workers, 0, g.NumX, func(i int) {
		for j := 0; j < g.NumY; j++ {
			idx := i*n + j
			if isStaticWall(i, j-1, g, tank) || isStaticWall(i, j, g, tank) {
				gb.V[idx] = 0
			} else if isDraggable(i, j-1, g, obs) || isDraggable(i, j, g, obs) {
				gb.V[idx] = obs.VelY
			}
		}
	})
}
