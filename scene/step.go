package scene

import (
	"math"

	"github.com/pthm-cable/slosh/fluid"
	"github.com/pthm-cable/slosh/telemetry"
)

// Step advances the simulation by one tick, invoking the kernels in
// strict order. perf may be nil.
func (s *Scene) Step(perf *telemetry.PerfCollector) {
	phase := func(name string) {
		if perf != nil {
			perf.StartPhase(name)
		}
	}

	phase(telemetry.PhaseIntegrate)
	s.integrateParticles()

	phase(telemetry.PhaseTransferToGrid)
	fluid.TransferVelocities(true, 0, s.Grid, s.Buffers, s.Particles, s.Workers)

	phase(telemetry.PhaseDensity)
	fluid.UpdateParticleDensity(s.Grid, s.Buffers, s.Particles)
	if s.RestDensity == 0 {
		s.RestDensity = fluid.ComputeRestDensity(s.Grid, s.Buffers)
	}

	phase(telemetry.PhasePressure)
	// Fresh pressure field each step; the solver itself only
	// accumulates.
	clear(s.Buffers.P)
	fluid.SolveIncompressibility(s.Grid, s.Buffers, fluid.SolveOptions{
		NumIters:            s.NumPressureIters,
		DT:                  s.DT,
		Density:             s.Density,
		OverRelaxation:      s.OverRelaxation,
		ParticleRestDensity: s.RestDensity,
		CompensateDrift:     s.CompensateDrift,
	}, s.Tank, s.Obstacle, s.Workers)

	phase(telemetry.PhaseTransferToParticles)
	fluid.TransferVelocities(false, s.FlipRatio, s.Grid, s.Buffers, s.Particles, s.Workers)

	phase(telemetry.PhaseBinning)
	s.Bins.Rebuild(s.Particles.Pos, s.Particles.N)

	if s.Separate {
		phase(telemetry.PhaseSeparation)
		minDist := 2 * s.ParticleRadius
		fluid.PushParticlesApart(s.Particles, s.Bins, s.NumParticleIters, s.ParticleRadius, minDist*minDist)
	}

	phase(telemetry.PhaseCollisions)
	fluid.HandleCollisions(s.Particles, s.ParticleRadius, s.Obstacle, s.Tank, s.Workers)

	if s.DynamicColors {
		phase(telemetry.PhaseColors)
		fluid.UpdateDynamicParticleColors(s.Grid, s.Buffers, s.Particles, s.RestDensity, s.Workers)
		fluid.DiffuseParticleColors(s.Particles, s.Bins, s.ParticleRadius, true, s.DiffusionCoeff)
	}

	s.tick++
}

// integrateParticles applies gravity and advects particle positions.
func (s *Scene) integrateParticles() {
	dt := s.DT
	gx := s.GravityX * dt
	gy := s.GravityY * dt
	for i := 0; i < s.Particles.N; i++ {
		s.Particles.Vel[2*i] += gx
		s.Particles.Vel[2*i+1] += gy
		s.Particles.Pos[2*i] += s.Particles.Vel[2*i] * dt
		s.Particles.Pos[2*i+1] += s.Particles.Vel[2*i+1] * dt
	}
}

// Snapshot summarises the current state for telemetry.
func (s *Scene) Snapshot() telemetry.StepSample {
	var maxSpeed float32
	for i := 0; i < s.Particles.N; i++ {
		vx := s.Particles.Vel[2*i]
		vy := s.Particles.Vel[2*i+1]
		sp := vx*vx + vy*vy
		if sp > maxSpeed {
			maxSpeed = sp
		}
	}

	fluidCells := 0
	var div float32
	n := s.Grid.NumY
	for i := 1; i < s.Grid.NumX-1; i++ {
		for j := 1; j < s.Grid.NumY-1; j++ {
			idx := i*n + j
			if s.Buffers.CellType[idx] != fluid.CellFluid {
				continue
			}
			fluidCells++
			d := (s.Buffers.U[(i+1)*n+j] - s.Buffers.U[idx]) + (s.Buffers.V[idx+1] - s.Buffers.V[idx])
			if d < 0 {
				d = -d
			}
			div += d
		}
	}
	avgDiv := float32(0)
	if fluidCells > 0 {
		avgDiv = div / float32(fluidCells)
	}

	return telemetry.StepSample{
		Tick:          s.tick,
		NumParticles:  s.Particles.N,
		FluidCells:    fluidCells,
		MaxSpeed:      math.Sqrt(float64(maxSpeed)),
		AvgDivergence: float64(avgDiv),
		RestDensity:   float64(s.RestDensity),
	}
}
