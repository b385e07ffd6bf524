// Package scene owns the simulation state and drives the fluid kernels
// in their required order, once per step.
package scene

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/slosh/config"
	"github.com/pthm-cable/slosh/fluid"
)

// Scene holds the complete simulation state: the MAC grid, the particle
// set, the neighbour bins, and the draggable obstacle.
type Scene struct {
	Grid      fluid.Grid
	Buffers   *fluid.GridBuffers
	Particles *fluid.ParticleBuffers
	Bins      *fluid.ParticleGrid
	Tank      fluid.Circle
	Obstacle  fluid.Obstacle

	// Solver parameters, mutable between steps (live tuning).
	DT               float32
	GravityX         float32
	GravityY         float32
	FlipRatio        float32
	OverRelaxation   float32
	Density          float32
	NumPressureIters int
	NumParticleIters int
	CompensateDrift  bool
	Separate         bool
	DynamicColors    bool
	DiffusionCoeff   float32
	Workers          int

	ParticleRadius float32
	RestDensity    float32

	rng  *rand.Rand
	tick int32
}

// New builds a scene from the loaded configuration: the tank mask is
// carved from the circular domain and a particle disc is seeded at the
// tank centre. The seed drives the packing jitter, so equal seeds give
// reproducible runs.
func New(cfg *config.Config, seed int64) *Scene {
	d := &cfg.Derived
	g := fluid.NewGrid(d.FNumX, d.FNumY, d.H)

	s := &Scene{
		Grid:    g,
		Buffers: fluid.NewGridBuffers(g),
		rng:     rand.New(rand.NewSource(seed)),
		Tank:    fluid.Circle{X: d.TankCX, Y: d.TankCY, R: d.TankR},
		Obstacle: fluid.Obstacle{
			R: float32(cfg.Obstacle.Radius),
		},

		DT:               d.DT32,
		GravityX:         float32(cfg.Physics.GravityX),
		GravityY:         float32(cfg.Physics.GravityY),
		FlipRatio:        float32(cfg.Solver.FlipRatio),
		OverRelaxation:   float32(cfg.Solver.OverRelaxation),
		Density:          float32(cfg.Solver.Density),
		NumPressureIters: cfg.Solver.NumPressureIters,
		NumParticleIters: cfg.Solver.NumParticleIters,
		CompensateDrift:  cfg.Solver.CompensateDrift,
		Separate:         cfg.Solver.SeparateParticles,
		DynamicColors:    cfg.Color.DynamicColoring,
		DiffusionCoeff:   float32(cfg.Color.DiffusionCoeff),
		Workers:          cfg.Physics.Workers,

		ParticleRadius: d.ParticleRadius,
	}

	s.buildTankMask()
	s.seedParticles(cfg)

	s.Bins = fluid.NewParticleGrid(d.PNumX, d.PNumY, d.PInvSpacing, s.Particles.N)
	return s
}

// buildTankMask marks cells whose centre lies outside the tank circle
// as solid; everything else is open.
func (s *Scene) buildTankMask() {
	for i := 0; i < s.Grid.NumX; i++ {
		for j := 0; j < s.Grid.NumY; j++ {
			cx, cy := s.Grid.CellCenter(i, j)
			idx := s.Grid.Idx(i, j)
			if s.Tank.Contains(cx, cy) {
				s.Buffers.S[idx] = 1
			} else {
				s.Buffers.S[idx] = 0
			}
		}
	}
}

// seedParticles fills a disc at the tank centre with hex-packed
// particles at rest, coloured with the configured base colour. A small
// seeded jitter breaks the lattice so the first splash is not perfectly
// symmetric.
func (s *Scene) seedParticles(cfg *config.Config) {
	r := s.ParticleRadius
	dx := 2 * r
	dy := float32(math.Sqrt(3)) / 2 * dx
	fillR := s.Tank.R * float32(cfg.World.FillFraction)
	jitter := 0.1 * r

	type pt struct{ x, y float32 }
	var seeds []pt
	row := 0
	for y := s.Tank.Y - fillR; y <= s.Tank.Y+fillR; y += dy {
		offset := float32(0)
		if row%2 == 1 {
			offset = r
		}
		for x := s.Tank.X - fillR + offset; x <= s.Tank.X+fillR; x += dx {
			ddx := x - s.Tank.X
			ddy := y - s.Tank.Y
			if ddx*ddx+ddy*ddy <= fillR*fillR {
				jx := (s.rng.Float32()*2 - 1) * jitter
				jy := (s.rng.Float32()*2 - 1) * jitter
				seeds = append(seeds, pt{x + jx, y + jy})
			}
		}
		row++
	}

	pb := fluid.NewParticleBuffers(len(seeds))
	pb.N = len(seeds)
	baseR := float32(cfg.Color.BaseR)
	baseG := float32(cfg.Color.BaseG)
	baseB := float32(cfg.Color.BaseB)
	for i, p := range seeds {
		pb.Pos[2*i] = p.x
		pb.Pos[2*i+1] = p.y
		pb.Color[4*i] = baseR
		pb.Color[4*i+1] = baseG
		pb.Color[4*i+2] = baseB
		pb.Color[4*i+3] = 1
	}
	s.Particles = pb
}

// Tick returns the number of completed steps.
func (s *Scene) Tick() int32 { return s.tick }

// StartDrag activates the obstacle at a position with zero velocity.
func (s *Scene) StartDrag(x, y float32) {
	s.Obstacle.Active = true
	s.Obstacle.X = x
	s.Obstacle.Y = y
	s.Obstacle.VelX = 0
	s.Obstacle.VelY = 0
}

// Drag moves the obstacle, deriving its velocity from the displacement
// over one step.
func (s *Scene) Drag(x, y float32) {
	if !s.Obstacle.Active {
		s.StartDrag(x, y)
		return
	}
	if s.DT > 0 {
		s.Obstacle.VelX = (x - s.Obstacle.X) / s.DT
		s.Obstacle.VelY = (y - s.Obstacle.Y) / s.DT
	}
	s.Obstacle.X = x
	s.Obstacle.Y = y
}

// EndDrag deactivates the obstacle.
func (s *Scene) EndDrag() {
	s.Obstacle.Active = false
	s.Obstacle.VelX = 0
	s.Obstacle.VelY = 0
}
