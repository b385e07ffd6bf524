package fluid

// distEps is the squared distance below which a pair is treated as
// coincident and skipped rather than divided by.
const distEps = 1e-12

// PushParticlesApart resolves particle overlap with neighbour-bin
// accelerated pair repulsion. Pairs whose squared distance is within
// minDist2 (honoured verbatim as passed) are displaced symmetrically
// along their separation axis toward minDist = 2*particleRadius.
//
// Strictly serial: each displacement is visible to every later pair in
// the same pass, including the outer particle's own position.
func PushParticlesApart(pb *ParticleBuffers, bins *ParticleGrid, numIters int, particleRadius, minDist2 float32) {
	minDist := 2 * particleRadius
	pn := bins.NumY
	numBins := bins.NumX * bins.NumY

	for iter := 0; iter < numIters; iter++ {
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
					// Inverted or out-of-range CSR ranges skip the bin.
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

						// Re-read both positions: they may have moved
						// earlier in this pass.
						pix := pb.Pos[2*i]
						piy := pb.Pos[2*i+1]
						qx := pb.Pos[2*j]
						qy := pb.Pos[2*j+1]

						dx := qx - pix
						dy := qy - piy
						d2 := dx*dx + dy*dy
						if d2 > minDist2 || d2 < distEps {
							continue
						}

						d := sqrtf(d2)
						var s float32
						if d > normEps {
							s = 0.5 * (minDist - d) / d
						}
						ox := dx * s
						oy := dy * s

						pb.Pos[2*i] = pix - ox
						pb.Pos[2*i+1] = piy - oy
						pb.Pos[2*j] = qx + ox
						pb.Pos[2*j+1] = qy + oy
					}
				}
			}
		}
	}
}
