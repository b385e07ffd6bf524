package fluid

// UpdateParticleDensity rebuilds the cell-centred bilinear particle
// count. The scatter is serial; particles whose containing quad falls
// outside the interior are skipped.
func UpdateParticleDensity(g Grid, gb *GridBuffers, pb *ParticleBuffers) {
	clear(gb.Density)

	n := g.NumY
	numCells := g.NumCells()
	h := g.H
	h2 := 0.5 * h

	for i := 0; i < pb.N; i++ {
		x := clampFloat(pb.Pos[2*i], h, float32(g.NumX-1)*h)
		y := clampFloat(pb.Pos[2*i+1], h, float32(g.NumY-1)*h)
		x -= h2
		y -= h2

		x0 := int(floorf(x * g.InvH))
		y0 := int(floorf(y * g.InvH))
		tx := (x - float32(x0)*h) * g.InvH
		ty := (y - float32(y0)*h) * g.InvH

		if x0 < 0 || x0 >= g.NumX-1 || y0 < 0 || y0 >= g.NumY-1 {
			continue
		}

		x1 := x0 + 1
		y1 := y0 + 1
		sx := 1 - tx
		sy := 1 - ty

		idx0 := x0*n + y0
		idx1 := x1*n + y0
		idx2 := x1*n + y1
		idx3 := x0*n + y1

		if idx0 >= 0 && idx0 < numCells {
			gb.Density[idx0] += sx * sy
		}
		if idx1 >= 0 && idx1 < numCells {
			gb.Density[idx1] += tx * sy
		}
		if idx2 >= 0 && idx2 < numCells {
			gb.Density[idx2] += tx * ty
		}
		if idx3 >= 0 && idx3 < numCells {
			gb.Density[idx3] += sx * ty
		}
	}
}

// ComputeRestDensity returns the mean particle density over fluid
// cells, or zero when there are none. Drivers call this once, after
// the first density update, to calibrate drift compensation.
func ComputeRestDensity(g Grid, gb *GridBuffers) float32 {
	var sum float32
	count := 0
	for i, ct := range gb.CellType {
		if ct == CellFluid {
			sum += gb.Density[i]
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float32(count)
}
