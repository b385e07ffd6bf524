package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slosh/config"
	"github.com/pthm-cable/slosh/scene"
	"github.com/pthm-cable/slosh/telemetry"
	"github.com/pthm-cable/slosh/tuner"
	"github.com/pthm-cable/slosh/viewer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	tunerAddr := flag.String("tuner", "", "Tuner server address (overrides config; empty = config)")
	presetDir := flag.String("preset-dir", "", "Directory of JSON parameter presets (overrides config)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	s := scene.New(cfg, rngSeed)
	slog.Info("scene ready",
		"particles", s.Particles.N,
		"grid", cfg.Derived.FNumX*cfg.Derived.FNumY,
		"h", cfg.Derived.H,
		"seed", rngSeed,
	)

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	collector := telemetry.NewCollector()

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	// Optional live-tuning server
	var tunerSrv *tuner.Server
	addr := cfg.Tuner.Address
	enabled := cfg.Tuner.Enabled
	presets := cfg.Tuner.PresetDir
	if *tunerAddr != "" {
		addr = *tunerAddr
		enabled = true
	}
	if *presetDir != "" {
		presets = *presetDir
	}
	if enabled {
		tunerSrv = tuner.New(addr, paramsFromScene(s), presets)
		tunerSrv.Start()
		defer tunerSrv.Close()
	}

	// Window length in ticks for stats flushing
	windowTicks := int32(cfg.Telemetry.StatsWindow / cfg.Physics.DT)
	if windowTicks < 1 {
		windowTicks = 60
	}

	step := func() {
		if tunerSrv != nil {
			if p, changed := tunerSrv.Pending(); changed {
				applyParams(s, p)
			}
		}

		perf.StartTick()
		s.Step(perf)
		perf.EndTick()
		collector.Record(s.Snapshot())

		if s.Tick()%windowTicks == 0 {
			if ws, ok := collector.Flush(); ok {
				if *logStats {
					ws.LogStats()
					perf.Stats().LogStats()
				}
				if err := output.WriteTelemetry(ws); err != nil {
					slog.Error("telemetry write failed", "error", err)
				}
				if err := output.WritePerf(perf.Stats(), ws.WindowEnd); err != nil {
					slog.Error("perf write failed", "error", err)
				}
				if tunerSrv != nil {
					tunerSrv.Broadcast(ws)
				}
			}
		}
	}

	if *headless {
		slog.Info("starting headless simulation", "max_ticks", *maxTicks)
		for {
			step()
			if *maxTicks > 0 && int(s.Tick()) >= *maxTicks {
				slog.Info("max ticks reached", "tick", s.Tick())
				return
			}
		}
	}

	// Graphical mode
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Slosh")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	v := viewer.New(cfg)
	for !rl.WindowShouldClose() {
		v.HandleInput(s)
		if !v.Paused() {
			step()
		}
		v.Draw(s)

		if *maxTicks > 0 && int(s.Tick()) >= *maxTicks {
			break
		}
	}
}

// paramsFromScene snapshots the scene's tunable parameters.
func paramsFromScene(s *scene.Scene) tuner.Params {
	return tuner.Params{
		FlipRatio:         float64(s.FlipRatio),
		OverRelaxation:    float64(s.OverRelaxation),
		NumPressureIters:  s.NumPressureIters,
		NumParticleIters:  s.NumParticleIters,
		GravityX:          float64(s.GravityX),
		GravityY:          float64(s.GravityY),
		CompensateDrift:   s.CompensateDrift,
		SeparateParticles: s.Separate,
		DynamicColoring:   s.DynamicColors,
	}
}

// applyParams writes a tuner update into the scene between steps.
func applyParams(s *scene.Scene, p tuner.Params) {
	s.FlipRatio = float32(p.FlipRatio)
	s.OverRelaxation = float32(p.OverRelaxation)
	s.NumPressureIters = p.NumPressureIters
	s.NumParticleIters = p.NumParticleIters
	s.GravityX = float32(p.GravityX)
	s.GravityY = float32(p.GravityY)
	s.CompensateDrift = p.CompensateDrift
	s.Separate = p.SeparateParticles
	s.DynamicColors = p.DynamicColoring
	slog.Info("applied tuner params", "flip_ratio", p.FlipRatio, "pressure_iters", p.NumPressureIters)
}
