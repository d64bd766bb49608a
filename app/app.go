package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pthm-cable/fitsfall/config"
	"github.com/pthm-cable/fitsfall/frames"
	"github.com/pthm-cable/fitsfall/renderer"
	"github.com/pthm-cable/fitsfall/systems"
	"github.com/pthm-cable/fitsfall/telemetry"
)

// Options holds run settings that are not part of the config file.
type Options struct {
	Seed        int64  // RNG seed for initial rotations (0 = time-based)
	LogStats    bool   // Log window stats via slog
	OutputDir   string // Directory for CSV logs and config snapshot ("" = disabled)
	SnapshotDir string // Directory for pool snapshots taken on bookmarks ("" = disabled)
	MaxTicks    uint64 // Stop Run after N ticks (0 = unlimited)

	// StatsCallback is called with each flushed stats window.
	StatsCallback func(telemetry.WindowStats)
}

// App owns one animation run: the frame buffer, the particle pool and its
// animator, a render sink and the telemetry collectors.
type App struct {
	cfg    config.Config
	opts   Options
	logger *slog.Logger
	seed   int64
	rng    *rand.Rand

	source   frames.Source
	mod      systems.Modulator
	sink     renderer.Sink
	buffer   *frames.Buffer
	animator *systems.Animator

	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	outputManager    *telemetry.OutputManager
	bookmarkDetector *telemetry.BookmarkDetector

	lastFrame int
	started   bool
}

// New wires an App. The config is copied; grid.dim 0 is resolved from the
// first loaded frame in Start. The config snapshot in the output directory is
// written once the grid size is known.
func New(cfg *config.Config, opts Options, source frames.Source, mod systems.Modulator, sink renderer.Sink) (*App, error) {
	if source == nil {
		return nil, errors.New("app: nil frame source")
	}
	if sink == nil {
		sink = &renderer.Headless{}
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	a := &App{
		cfg:              *cfg,
		opts:             opts,
		logger:           slog.Default(),
		seed:             seed,
		rng:              rand.New(rand.NewSource(seed)),
		source:           source,
		mod:              mod,
		sink:             sink,
		buffer:           frames.NewBuffer(cfg.Source.Frames),
		collector:        telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Derived.DT),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow, time.Duration(cfg.Derived.DT*float64(time.Second))),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		lastFrame:        -1,
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	a.outputManager = om

	if a.cfg.Grid.Dim > 0 {
		a.build()
		if err := a.outputManager.WriteConfig(&a.cfg); err != nil {
			a.outputManager.Close()
			return nil, err
		}
	}
	return a, nil
}

// SetLogger replaces the logger used by the app and its animator.
func (a *App) SetLogger(l *slog.Logger) {
	a.logger = l
	if a.animator != nil {
		a.animator.SetLogger(l)
	}
}

// build creates the pool and animator for the current grid dimension.
func (a *App) build() {
	cfg := &a.cfg
	cfg.ComputeDerived()

	layout := systems.Layout{
		WorldSize: float32(cfg.Grid.WorldSize),
		InitY:     float32(cfg.Grid.InitY),
	}
	motion := systems.Motion{
		FallRate:       float32(cfg.Motion.FallRate),
		FallValueScale: float32(cfg.Motion.FallValueScale),
		RotationRate:   float32(cfg.Motion.RotationRate),
		AudioInfluence: float32(cfg.Audio.Influence),
		Brightness:     float32(cfg.Audio.Brightness),
		FadeFloor:      float32(cfg.Motion.FadeFloor),
		RecycleFloor:   float32(cfg.Motion.RecycleFloor),
		FadeStep:       float32(cfg.Motion.FadeStep),
	}

	pool := systems.NewPool(cfg.Grid.Slabs, cfg.Grid.Dim, layout, a.rng)
	a.animator = systems.NewAnimator(pool, a.buffer, a.mod, motion, cfg.Cadence.UpdateInterval)
	a.animator.SetLogger(a.logger)
	a.animator.SetPhaseTimer(a.perfCollector)
}

// Start loads every frame from the source and blocks until the buffer is
// full, the load fails, or ctx is done.
func (a *App) Start(ctx context.Context) error {
	start := time.Now()
	a.buffer.Load(ctx, a.source)
	if err := a.buffer.Wait(ctx); err != nil {
		return err
	}

	if a.animator == nil {
		side := a.buffer.At(0).Side()
		if side == 0 {
			return fmt.Errorf("%w: frame 0 is not square (%d values)", config.ErrInvalid, a.buffer.At(0).Len())
		}
		a.cfg.Grid.Dim = side
		a.build()
		if err := a.outputManager.WriteConfig(&a.cfg); err != nil {
			return err
		}
	}

	a.started = true
	a.logger.Info("frames loaded",
		"frames", a.buffer.Len(),
		"grid_dim", a.cfg.Grid.Dim,
		"capacity", a.cfg.Derived.Capacity,
		"elapsed", time.Since(start),
	)
	return nil
}

// Step runs one render tick: animate, draw, then record telemetry.
func (a *App) Step() (systems.TickReport, error) {
	if a.animator == nil {
		panic(&frames.PreconditionError{Op: "Step", Loaded: a.buffer.Loaded(), Want: a.buffer.Len()})
	}

	a.perfCollector.StartTick()
	report := a.animator.Tick()
	if report.Refreshed {
		a.lastFrame = report.Frame
	}

	a.perfCollector.StartPhase(telemetry.PhaseRender)
	err := a.sink.Draw(renderer.View{
		Particles: a.animator.Pool().Particles(),
		Tick:      report.Tick,
		Frame:     a.lastFrame,
		Volume:    report.Volume,
		Visible:   report.Visible,
	})

	a.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	a.collector.Record(report)
	a.flushTelemetry(report.Tick)

	a.perfCollector.EndTick(telemetry.Workload{Particles: a.animator.Pool().Capacity(), Visible: report.Visible})
	a.perfCollector.RecordFrame()

	if err != nil {
		return report, fmt.Errorf("drawing tick %d: %w", report.Tick, err)
	}
	return report, nil
}

// flushTelemetry writes a stats window when one is due.
func (a *App) flushTelemetry(tick uint64) {
	if !a.collector.ShouldFlush(tick) {
		return
	}

	stats := a.collector.Flush(tick, a.animator.Pool().Particles())
	perfStats := a.perfCollector.Stats()

	if a.opts.StatsCallback != nil {
		a.opts.StatsCallback(stats)
	}

	if a.opts.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := a.outputManager.WriteTelemetry(stats); err != nil {
		a.logger.Error("failed to write telemetry", "error", err)
	}
	if err := a.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		a.logger.Error("failed to write perf", "error", err)
	}

	for _, bm := range a.bookmarkDetector.Check(stats) {
		if a.opts.LogStats {
			bm.LogBookmark()
		}
		if err := a.outputManager.WriteBookmark(bm); err != nil {
			a.logger.Error("failed to write bookmark", "error", err)
		}
		if a.opts.SnapshotDir != "" {
			a.saveSnapshot(&bm)
		}
	}
}

// saveSnapshot writes the pool state, tagged with the bookmark that caused it.
func (a *App) saveSnapshot(bm *telemetry.Bookmark) {
	snap := telemetry.NewSnapshot(a.animator.Pool(), a.animator.Ticks(), a.buffer.Cursor(), a.seed)
	snap.Bookmark = bm
	path, err := telemetry.SaveSnapshot(snap, a.opts.SnapshotDir)
	if err != nil {
		a.logger.Error("failed to save snapshot", "error", err)
		return
	}
	a.logger.Info("snapshot saved", "path", path, "bookmark", string(bm.Type))
}

// Run loads the frames if Start has not been called, then steps until ctx is
// done, the sink asks to close, or the tick limit is reached.
func (a *App) Run(ctx context.Context) error {
	if !a.started {
		if err := a.Start(ctx); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("run cancelled", "tick", a.Tick())
			return nil
		default:
		}

		if a.sink.ShouldClose() {
			a.logger.Info("sink closed", "tick", a.Tick())
			return nil
		}

		if _, err := a.Step(); err != nil {
			return err
		}

		if a.opts.MaxTicks > 0 && a.Tick() >= a.opts.MaxTicks {
			a.logger.Info("max ticks reached", "tick", a.Tick())
			return nil
		}
	}
}

// Close releases the sink and flushes the output files.
func (a *App) Close() error {
	return errors.Join(a.outputManager.Close(), a.sink.Close())
}

// Tick returns the number of completed ticks.
func (a *App) Tick() uint64 {
	if a.animator == nil {
		return 0
	}
	return a.animator.Ticks()
}

// Config returns the run's config, with grid.dim resolved after Start.
func (a *App) Config() *config.Config {
	return &a.cfg
}

// Buffer returns the frame buffer.
func (a *App) Buffer() *frames.Buffer {
	return a.buffer
}

// Animator returns the animator, or nil before the grid size is known.
func (a *App) Animator() *systems.Animator {
	return a.animator
}

// Collector returns the stats collector.
func (a *App) Collector() *telemetry.Collector {
	return a.collector
}
