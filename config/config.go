// Package config provides configuration loading and access for the simulator.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	World     WorldConfig     `yaml:"world"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Solver    SolverConfig    `yaml:"solver"`
	Particles ParticlesConfig `yaml:"particles"`
	Obstacle  ObstacleConfig  `yaml:"obstacle"`
	Color     ColorConfig     `yaml:"color"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Tuner     TunerConfig     `yaml:"tuner"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds the simulation domain geometry.
// The domain is a circular tank inscribed in the world rectangle.
type WorldConfig struct {
	Width        float64 `yaml:"width"`         // world units
	Height       float64 `yaml:"height"`        // world units
	GridRes      int     `yaml:"grid_res"`      // grid spacings along the Y axis (grid_res+1 cells)
	TankRadius   float64 `yaml:"tank_radius"`   // fraction of min(width,height)/2
	FillFraction float64 `yaml:"fill_fraction"` // fraction of the tank radius seeded with particles
}

// PhysicsConfig holds time stepping and body-force parameters.
type PhysicsConfig struct {
	DT       float64 `yaml:"dt"`
	GravityX float64 `yaml:"gravity_x"`
	GravityY float64 `yaml:"gravity_y"`
	Workers  int     `yaml:"workers"` // parallel worker cap for grid/particle sweeps
}

// SolverConfig holds pressure solver parameters.
type SolverConfig struct {
	NumPressureIters  int     `yaml:"num_pressure_iters"`
	NumParticleIters  int     `yaml:"num_particle_iters"`
	OverRelaxation    float64 `yaml:"over_relaxation"`
	Density           float64 `yaml:"density"`
	FlipRatio         float64 `yaml:"flip_ratio"`
	CompensateDrift   bool    `yaml:"compensate_drift"`
	SeparateParticles bool    `yaml:"separate_particles"`
}

// ParticlesConfig holds particle seeding parameters.
type ParticlesConfig struct {
	RadiusFactor float64 `yaml:"radius_factor"` // particle radius as a fraction of grid spacing
}

// ObstacleConfig holds draggable obstacle parameters.
type ObstacleConfig struct {
	Radius float64 `yaml:"radius"` // world units
}

// ColorConfig holds the visual colour pipeline parameters.
type ColorConfig struct {
	DynamicColoring bool    `yaml:"dynamic_coloring"`
	DiffusionCoeff  float64 `yaml:"diffusion_coeff"`
	BaseR           float64 `yaml:"base_r"`
	BaseG           float64 `yaml:"base_g"`
	BaseB           float64 `yaml:"base_b"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// TunerConfig holds the live-tuning server parameters.
type TunerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Address   string `yaml:"address"`
	PresetDir string `yaml:"preset_dir"` // directory of JSON parameter presets
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32           float32 // Physics.DT as float32
	FNumX, FNumY   int     // fluid grid dimensions
	H              float32 // grid spacing
	InvH           float32
	TankCX, TankCY float32 // tank centre in world units
	TankR          float32 // tank radius in world units
	ParticleRadius float32
	PNumX, PNumY   int     // particle bin grid dimensions
	PInvSpacing    float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Compute derived values
	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)

	// Grid spacing comes from the requested resolution along Y; one
	// border cell on each side stays outside the tank circle.
	res := c.World.GridRes
	if res < 8 {
		res = 8
	}
	h := float32(c.World.Height) / float32(res)
	c.Derived.H = h
	c.Derived.InvH = 1.0 / h
	c.Derived.FNumX = int(float32(c.World.Width)/h) + 1
	c.Derived.FNumY = res + 1

	minDim := c.World.Width
	if c.World.Height < minDim {
		minDim = c.World.Height
	}
	c.Derived.TankCX = float32(c.World.Width) * 0.5
	c.Derived.TankCY = float32(c.World.Height) * 0.5
	c.Derived.TankR = float32(minDim) * 0.5 * float32(c.World.TankRadius)

	c.Derived.ParticleRadius = h * float32(c.Particles.RadiusFactor)

	// Particle bins hold a 2r neighbourhood inside a 3x3 window.
	pSpacing := 2.2 * c.Derived.ParticleRadius
	c.Derived.PInvSpacing = 1.0 / pSpacing
	c.Derived.PNumX = int(float32(c.World.Width)*c.Derived.PInvSpacing) + 1
	c.Derived.PNumY = int(float32(c.World.Height)*c.Derived.PInvSpacing) + 1
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
