package fluid

import "gonum.org/v1/gonum/blas/blas32"

// normEps is the smallest accumulated weight that still normalises a
// face; anything below short-circuits to zero instead of producing NaN.
const normEps = 1e-9

// TransferVelocities moves velocities between particles and the MAC
// grid. toGrid=true scatters particle velocities onto faces (P->G) and
// reclassifies cells; toGrid=false gathers face velocities back onto
// particles (G->P), blending PIC and FLIP by flipRatio.
func TransferVelocities(toGrid bool, flipRatio float32, g Grid, gb *GridBuffers, pb *ParticleBuffers, workers int) {
	if toGrid {
		transferToGrid(g, gb, pb, workers)
	} else {
		transferToParticles(flipRatio, g, gb, pb)
	}
}

// faceOffsets returns the sample-lattice offsets for one velocity
// component. u samples sit at (i*h, (j+1/2)*h), v samples at
// ((i+1/2)*h, j*h).
func faceOffsets(comp int, g Grid) (dxOffset, dyOffset float32) {
	h2 := 0.5 * g.H
	if comp == 0 {
		return 0, h2
	}
	return h2, 0
}

// cornerWeights computes the bilinear corner indices and weights for a
// clamped particle position against one face lattice.
func cornerWeights(px, py, dxOffset, dyOffset float32, g Grid) (n0, n1, n2, n3 int, w0, w1, w2, w3 float32) {
	h := g.H
	px = clampFloat(px, h, float32(g.NumX-1)*h)
	py = clampFloat(py, h, float32(g.NumY-1)*h)

	fx := (px - dxOffset) * g.InvH
	fy := (py - dyOffset) * g.InvH
	x0 := int(min32(floorf(fx), float32(g.NumX-2)))
	y0 := int(min32(floorf(fy), float32(g.NumY-2)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)
	sx := 1 - tx
	sy := 1 - ty

	x1 := x0 + 1
	y1 := y0 + 1
	n := g.NumY
	n0 = x0*n + y0
	n1 = x1*n + y0
	n2 = x1*n + y1
	n3 = x0*n + y1
	w0 = sx * sy
	w1 = tx * sy
	w2 = tx * ty
	w3 = sx * ty
	return
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func transferToGrid(g Grid, gb *GridBuffers, pb *ParticleBuffers, workers int) {
	numCells := g.NumCells()
	n := g.NumY

	// 1. Snapshot grid velocities and clear the accumulators.
	uVec := blas32.Vector{N: numCells, Inc: 1, Data: gb.U}
	vVec := blas32.Vector{N: numCells, Inc: 1, Data: gb.V}
	blas32.Copy(uVec, blas32.Vector{N: numCells, Inc: 1, Data: gb.PrevU})
	blas32.Copy(vVec, blas32.Vector{N: numCells, Inc: 1, Data: gb.PrevV})
	clear(gb.DU)
	clear(gb.DV)
	clear(gb.U)
	clear(gb.V)

	// 2. Reclassify: SOLID where the mask says so, AIR elsewhere.
	parallelRange(workers, 0, numCells, func(i int) {
		if gb.S[i] == 0 {
			gb.CellType[i] = CellSolid
		} else {
			gb.CellType[i] = CellAir
		}
	})

	// 3. Cells containing particles become FLUID unless SOLID. The AIR
	// check after the SOLID pass is what keeps solids solid.
	for i := 0; i < pb.N; i++ {
		xi := int(clampFloat(floorf(pb.Pos[2*i]*g.InvH), 0, float32(g.NumX-1)))
		yi := int(clampFloat(floorf(pb.Pos[2*i+1]*g.InvH), 0, float32(g.NumY-1)))
		c := xi*n + yi
		if c >= 0 && c < numCells && gb.CellType[c] == CellAir {
			gb.CellType[c] = CellFluid
		}
	}

	// 4. Scatter particle velocities and weights. Serial: distinct
	// particles hit the same faces.
	for comp := 0; comp < 2; comp++ {
		dxOffset, dyOffset := faceOffsets(comp, g)
		f := gb.U
		df := gb.DU
		if comp == 1 {
			f = gb.V
			df = gb.DV
		}
		for i := 0; i < pb.N; i++ {
			n0, n1, n2, n3, w0, w1, w2, w3 := cornerWeights(pb.Pos[2*i], pb.Pos[2*i+1], dxOffset, dyOffset, g)
			pv := pb.Vel[2*i+comp]
			if n0 >= 0 && n0 < numCells {
				f[n0] += pv * w0
				df[n0] += w0
			}
			if n1 >= 0 && n1 < numCells {
				f[n1] += pv * w1
				df[n1] += w1
			}
			if n2 >= 0 && n2 < numCells {
				f[n2] += pv * w2
				df[n2] += w2
			}
			if n3 >= 0 && n3 < numCells {
				f[n3] += pv * w3
				df[n3] += w3
			}
		}
	}

	// 5. Normalise by accumulated weight; untouched faces become zero.
	parallelRange(workers, 0, numCells, func(i int) {
		if gb.DU[i] > normEps {
			gb.U[i] /= gb.DU[i]
		} else {
			gb.U[i] = 0
		}
		if gb.DV[i] > normEps {
			gb.V[i] /= gb.DV[i]
		} else {
			gb.V[i] = 0
		}
	})

	// 6. Restore faces bordering solid cells from the snapshot.
	parallelRange(workers, 0, g.NumX, func(i int) {
		for j := 0; j < g.NumY; j++ {
			idx := i*n + j
			solid := gb.CellType[idx] == CellSolid
			if solid || (i > 0 && gb.CellType[(i-1)*n+j] == CellSolid) {
				gb.U[idx] = gb.PrevU[idx]
			}
			if solid || (j > 0 && gb.CellType[i*n+j-1] == CellSolid) {
				gb.V[idx] = gb.PrevV[idx]
			}
		}
	})
}

func transferToParticles(flipRatio float32, g Grid, gb *GridBuffers, pb *ParticleBuffers) {
	numCells := g.NumCells()
	n := g.NumY

	// A face sample is usable when either cell sharing the face is not
	// AIR. The face-normal neighbour offset differs by component,
	// matching the deposition rule on the P->G side.
	valid := func(idx, comp int) bool {
		if idx < 0 || idx >= numCells {
			return false
		}
		offset := n
		if comp == 1 {
			offset = 1
		}
		neighbor := idx - offset
		if gb.CellType[idx] != CellAir {
			return true
		}
		return neighbor >= 0 && neighbor < numCells && gb.CellType[neighbor] != CellAir
	}

	for comp := 0; comp < 2; comp++ {
		dxOffset, dyOffset := faceOffsets(comp, g)
		f := gb.U
		prevF := gb.PrevU
		if comp == 1 {
			f = gb.V
			prevF = gb.PrevV
		}

		for i := 0; i < pb.N; i++ {
			n0, n1, n2, n3, w0, w1, w2, w3 := cornerWeights(pb.Pos[2*i], pb.Pos[2*i+1], dxOffset, dyOffset, g)

			var v0, v1, v2, v3 float32
			if valid(n0, comp) {
				v0 = 1
			}
			if valid(n1, comp) {
				v1 = 1
			}
			if valid(n2, comp) {
				v2 = 1
			}
			if valid(n3, comp) {
				v3 = 1
			}

			sumW := v0*w0 + v1*w1 + v2*w2 + v3*w3
			if sumW <= normEps {
				continue // no usable samples; keep the particle velocity
			}

			f0 := sample(f, n0, numCells)
			f1 := sample(f, n1, numCells)
			f2 := sample(f, n2, numCells)
			f3 := sample(f, n3, numCells)
			p0 := sample(prevF, n0, numCells)
			p1 := sample(prevF, n1, numCells)
			p2 := sample(prevF, n2, numCells)
			p3 := sample(prevF, n3, numCells)

			picV := (v0*w0*f0 + v1*w1*f1 + v2*w2*f2 + v3*w3*f3) / sumW
			corr := (v0*w0*(f0-p0) + v1*w1*(f1-p1) + v2*w2*(f2-p2) + v3*w3*(f3-p3)) / sumW
			flipV := pb.Vel[2*i+comp] + corr

			pb.Vel[2*i+comp] = (1-flipRatio)*picV + flipRatio*flipV
		}
	}
}

// sample reads f[idx] with a bounds guard; out-of-range reads are zero.
func sample(f []float32, idx, numCells int) float32 {
	if idx < 0 || idx >= numCells {
		return 0
	}
	return f[idx]
}
