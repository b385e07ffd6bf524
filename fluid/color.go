package fluid

// Colour pipeline tuning.
const (
	colorFadeStep       = 0.01 // per-step shift of R/G down, B up
	lowDensityThreshold = 0.7  // rel density below which a particle is highlighted
	lowDensityHighlight = 0.8  // R and G of the highlight colour
)

// UpdateDynamicParticleColors fades each particle's colour toward deep
// blue, clamps to [0,1], and overwrites particles sitting in
// low-density cells with the highlight colour. Parallel per particle.
func UpdateDynamicParticleColors(g Grid, gb *GridBuffers, pb *ParticleBuffers, restDensity float32, workers int) {
	n := g.NumY
	numCells := g.NumCells()

	parallelRange(workers, 0, pb.N, func(i int) {
		ci := 4 * i
		pb.Color[ci] = clamp01(pb.Color[ci] - colorFadeStep)
		pb.Color[ci+1] = clamp01(pb.Color[ci+1] - colorFadeStep)
		pb.Color[ci+2] = clamp01(pb.Color[ci+2] + colorFadeStep)
		pb.Color[ci+3] = clamp01(pb.Color[ci+3])

		if restDensity <= normEps {
			return
		}
		xi := int(clampFloat(floorf(pb.Pos[2*i]*g.InvH), 0, float32(g.NumX-1)))
		yi := int(clampFloat(floorf(pb.Pos[2*i+1]*g.InvH), 0, float32(g.NumY-1)))
		cell := xi*n + yi
		if cell < 0 || cell >= numCells {
			return
		}
		if gb.Density[cell]/restDensity < lowDensityThreshold {
			pb.Color[ci] = lowDensityHighlight
			pb.Color[ci+1] = lowDensityHighlight
			pb.Color[ci+2] = 1
			pb.Color[ci+3] = 1
		}
	})
}

// DiffuseParticleColors blends the colours of nearby particle pairs
// toward their arithmetic mean with strength coeff. Serial: a pair
// write touches both endpoints. No-op unless enabled.
func DiffuseParticleColors(pb *ParticleBuffers, bins *ParticleGrid, particleRadius float32, enabled bool, coeff float32) {
	if !enabled || pb.N == 0 {
		return
	}

	minDist := 2 * particleRadius
	minDist2 := minDist * minDist
	pn := bins.NumY
	numBins := bins.NumX * bins.NumY

	for i := 0; i < pb.N; i++ {
		px := pb.Pos[2*i]
		py := pb.Pos[2*i+1]

		pxi := int(clampFloat(floorf(px*bins.InvSpacing), 0, float32(bins.NumX-1)))
		pyi := int(clampFloat(floorf(py*bins.InvSpacing), 0, float32(bins.NumY-1)))
		x0 := maxInt(0, pxi-1)
		x1 := minInt(bins.NumX-1, pxi+1)
		y0 := maxInt(0, pyi-1)
		y1 := minInt(bins.NumY-1, pyi+1)

		for cx := x0; cx <= x1; cx++ {
			for cy := y0; cy <= y1; cy++ {
				cell := cx*pn + cy
				if cell < 0 || cell+1 > numBins {
					continue
				}
				start := bins.FirstCell[cell]
				end := bins.FirstCell[cell+1]
				if start < 0 || end < start || int(end) > pb.N {
					continue
				}

				for k := start; k < end; k++ {
					if k < 0 || int(k) >= pb.N {
						continue
					}
					j := int(bins.CellIDs[k])
					if j == i || j < 0 || j >= pb.N {
						continue
					}

					dx := pb.Pos[2*j] - px
					dy := pb.Pos[2*j+1] - py
					d2 := dx*dx + dy*dy
					if d2 >= minDist2 || d2 <= distEps {
						continue
					}

					ci := 4 * i
					cj := 4 * j
					for c := 0; c < 4; c++ {
						avg := 0.5 * (pb.Color[ci+c] + pb.Color[cj+c])
						pb.Color[ci+c] = clamp01(pb.Color[ci+c] + (avg-pb.Color[ci+c])*coeff)
						pb.Color[cj+c] = clamp01(pb.Color[cj+c] + (avg-pb.Color[cj+c])*coeff)
					}
				}
			}
		}
	}
}
