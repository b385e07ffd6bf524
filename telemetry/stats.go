package telemetry

import (
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// StepSample summarises one simulation step.
type StepSample struct {
	Tick          int32
	NumParticles  int
	FluidCells    int
	MaxSpeed      float64
	AvgDivergence float64
	RestDensity   float64
}

// WindowStats aggregates step samples over a telemetry window.
type WindowStats struct {
	WindowEnd     int32   `csv:"window_end"`
	NumParticles  int     `csv:"num_particles"`
	FluidCells    float64 `csv:"fluid_cells_avg"`
	MaxSpeedMean  float64 `csv:"max_speed_mean"`
	MaxSpeedStd   float64 `csv:"max_speed_std"`
	DivergenceCV  float64 `csv:"divergence_cv"`
	AvgDivergence float64 `csv:"avg_divergence"`
	RestDensity   float64 `csv:"rest_density"`
}

// Collector accumulates step samples and flushes window aggregates.
type Collector struct {
	samples []StepSample
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{samples: make([]StepSample, 0, 256)}
}

// Record adds one step sample to the current window.
func (c *Collector) Record(s StepSample) {
	c.samples = append(c.samples, s)
}

// Flush aggregates the current window into WindowStats and resets the
// collector. Returns false when the window is empty.
func (c *Collector) Flush() (WindowStats, bool) {
	n := len(c.samples)
	if n == 0 {
		return WindowStats{}, false
	}

	speeds := make([]float64, n)
	divs := make([]float64, n)
	var fluidCells float64
	for i, s := range c.samples {
		speeds[i] = s.MaxSpeed
		divs[i] = s.AvgDivergence
		fluidCells += float64(s.FluidCells)
	}

	speedMean, speedStd := stat.MeanStdDev(speeds, nil)
	divMean, divStd := stat.MeanStdDev(divs, nil)
	divCV := 0.0
	if divMean > 0 {
		divCV = divStd / divMean
	}

	last := c.samples[n-1]
	ws := WindowStats{
		WindowEnd:     last.Tick,
		NumParticles:  last.NumParticles,
		FluidCells:    fluidCells / float64(n),
		MaxSpeedMean:  speedMean,
		MaxSpeedStd:   speedStd,
		DivergenceCV:  divCV,
		AvgDivergence: divMean,
		RestDensity:   last.RestDensity,
	}

	c.samples = c.samples[:0]
	return ws, true
}

// LogStats logs window statistics.
func (w WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", w.WindowEnd,
		"num_particles", w.NumParticles,
		"fluid_cells_avg", w.FluidCells,
		"max_speed_mean", w.MaxSpeedMean,
		"avg_divergence", w.AvgDivergence,
		"divergence_cv", w.DivergenceCV,
		"rest_density", w.RestDensity,
	)
}
