package fluid

import (
	"math"
	"testing"
)

// newTestSetup builds an open nxn grid (s=1 everywhere) with spacing h.
func newTestSetup(n int, h float32) (Grid, *GridBuffers) {
	g := NewGrid(n, n, h)
	gb := NewGridBuffers(g)
	for i := range gb.S {
		gb.S[i] = 1
	}
	return g, gb
}

// placeParticle sets particle i's position and velocity.
func placeParticle(pb *ParticleBuffers, i int, x, y, vx, vy float32) {
	pb.Pos[2*i] = x
	pb.Pos[2*i+1] = y
	pb.Vel[2*i] = vx
	pb.Vel[2*i+1] = vy
}

func TestTransferToGridReclassifiesCells(t *testing.T) {
	g, gb := newTestSetup(6, 1)
	gb.S[g.Idx(0, 0)] = 0 // one solid cell

	pb := NewParticleBuffers(2)
	pb.N = 2
	placeParticle(pb, 0, 2.5, 2.5, 0, 0)
	placeParticle(pb, 1, 0.5, 0.5, 0, 0) // inside the solid cell

	TransferVelocities(true, 0, g, gb, pb, 1)

	if got := gb.CellType[g.Idx(0, 0)]; got != CellSolid {
		t.Errorf("solid cell reclassified to %d, want SOLID", got)
	}
	if got := gb.CellType[g.Idx(2, 2)]; got != CellFluid {
		t.Errorf("occupied cell = %d, want FLUID", got)
	}
	if got := gb.CellType[g.Idx(4, 4)]; got != CellAir {
		t.Errorf("empty cell = %d, want AIR", got)
	}
}

func TestTransferRoundTripUniformVelocity(t *testing.T) {
	// A particle at a cell centre scatters its velocity onto exactly two
	// faces per component; normalisation must reproduce it exactly, and
	// a pure PIC gather must hand it back.
	g, gb := newTestSetup(8, 1)

	const vx, vy = 1.25, -0.5
	pb := NewParticleBuffers(1)
	pb.N = 1
	placeParticle(pb, 0, 3.5, 3.5, vx, vy)

	TransferVelocities(true, 0, g, gb, pb, 1)

	for idx, w := range gb.DU {
		if w > normEps {
			if diff := math.Abs(float64(gb.U[idx] - vx)); diff > 1e-6 {
				t.Errorf("u[%d] = %f, want %f", idx, gb.U[idx], vx)
			}
		} else if gb.U[idx] != 0 {
			t.Errorf("u[%d] = %f on a face with no weight, want 0", idx, gb.U[idx])
		}
	}

	pb.Vel[0] = 0
	pb.Vel[1] = 0
	TransferVelocities(false, 0, g, gb, pb, 1)

	if diff := math.Abs(float64(pb.Vel[0] - vx)); diff > 1e-5 {
		t.Errorf("gathered vx = %f, want %f", pb.Vel[0], vx)
	}
	if diff := math.Abs(float64(pb.Vel[1] - vy)); diff > 1e-5 {
		t.Errorf("gathered vy = %f, want %f", pb.Vel[1], vy)
	}
}

func TestTransferPureFlipKeepsVelocities(t *testing.T) {
	// After two consecutive P->G transfers the snapshot equals the live
	// grid, so the FLIP correction vanishes and flipRatio=1 must leave
	// every particle velocity untouched.
	g, gb := newTestSetup(10, 0.5)

	pb := NewParticleBuffers(9)
	pb.N = 9
	k := 0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			placeParticle(pb, k,
				2.0+float32(i)*0.4, 2.0+float32(j)*0.4,
				float32(i)-1, float32(j)*0.5)
			k++
		}
	}

	before := make([]float32, len(pb.Vel))

	TransferVelocities(true, 0, g, gb, pb, 1)
	TransferVelocities(true, 0, g, gb, pb, 1)
	copy(before, pb.Vel)
	TransferVelocities(false, 1, g, gb, pb, 1)

	for i := range pb.Vel {
		if diff := math.Abs(float64(pb.Vel[i] - before[i])); diff > 1e-6 {
			t.Errorf("vel[%d] = %f, want %f", i, pb.Vel[i], before[i])
		}
	}
}

func TestTransferToGridRestoresSolidFaces(t *testing.T) {
	g, gb := newTestSetup(6, 1)
	gb.S[g.Idx(2, 2)] = 0

	for i := range gb.U {
		gb.U[i] = 7
		gb.V[i] = -3
	}

	pb := NewParticleBuffers(0)
	TransferVelocities(true, 0, g, gb, pb, 1)

	// Faces touching the solid cell keep their snapshot values.
	if gb.U[g.Idx(2, 2)] != 7 || gb.U[g.Idx(3, 2)] != 7 {
		t.Errorf("solid-adjacent u faces = %f, %f, want 7", gb.U[g.Idx(2, 2)], gb.U[g.Idx(3, 2)])
	}
	if gb.V[g.Idx(2, 2)] != -3 || gb.V[g.Idx(2, 3)] != -3 {
		t.Errorf("solid-adjacent v faces = %f, %f, want -3", gb.V[g.Idx(2, 2)], gb.V[g.Idx(2, 3)])
	}
	// Faces away from the solid cell were zeroed with no particles.
	if gb.U[g.Idx(4, 4)] != 0 || gb.V[g.Idx(4, 4)] != 0 {
		t.Errorf("free faces = %f, %f, want 0", gb.U[g.Idx(4, 4)], gb.V[g.Idx(4, 4)])
	}
}

func TestTransferEmptySceneLeavesParticleBuffersAlone(t *testing.T) {
	g, gb := newTestSetup(6, 1)
	pb := NewParticleBuffers(0)

	TransferVelocities(true, 0, g, gb, pb, 1)
	TransferVelocities(false, 0.9, g, gb, pb, 1)

	for i, ct := range gb.CellType {
		if ct != CellAir {
			t.Fatalf("cellType[%d] = %d, want AIR everywhere in an empty open scene", i, ct)
		}
	}
	for i := range gb.U {
		if gb.U[i] != 0 || gb.V[i] != 0 {
			t.Fatalf("velocities not zeroed at %d", i)
		}
	}
}
