package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/fitsfall/app"
	"github.com/pthm-cable/fitsfall/audio"
	"github.com/pthm-cable/fitsfall/audio/mic"
	"github.com/pthm-cable/fitsfall/config"
	"github.com/pthm-cable/fitsfall/fits"
	"github.com/pthm-cable/fitsfall/frames"
	"github.com/pthm-cable/fitsfall/renderer"
	"github.com/pthm-cable/fitsfall/systems"
)

var (
	configPath string
	logFormat  string
	logLevel   string

	sourceKind string
	frameCount int
	renderMode string
	audioMode  string
	wavPath    string
	maxTicks   uint64
	outputDir  string
	snapDir    string
	logStats   bool
	seed       int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "fitsfall [file.fits]",
		Short:         "animate a stack of data frames as falling particle grids",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runAnimation,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (empty = use defaults)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format: json or text")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	addRunFlags(rootCmd)

	runCmd := &cobra.Command{
		Use:   "run [file.fits]",
		Short: "run the animation (default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAnimation,
	}
	addRunFlags(runCmd)

	infoCmd := &cobra.Command{
		Use:   "info file.fits",
		Short: "print a FITS header and per-frame value ranges",
		Args:  cobra.ExactArgs(1),
		RunE:  printInfo,
	}

	rootCmd.AddCommand(runCmd, infoCmd)
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setupLogging(os.Stdout)
	}

	if err := rootCmd.Execute(); err != nil {
		slog.Error("fitsfall failed", "error", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&sourceKind, "source", "", "frame source: fits or noise (empty = use config)")
	f.IntVar(&frameCount, "frames", 0, "number of frames to load (0 = use config)")
	f.StringVar(&renderMode, "render", "", "render sink: window, terminal or headless (empty = use config)")
	f.StringVar(&audioMode, "audio", "", "audio modulation: none, mic or wav (empty = use config)")
	f.StringVar(&wavPath, "wav", "", "WAV file for --audio wav")
	f.Uint64Var(&maxTicks, "max-ticks", 0, "stop after N ticks (0 = unlimited)")
	f.StringVar(&outputDir, "output-dir", "", "output directory for CSV logs and config snapshot")
	f.StringVar(&snapDir, "snapshot-dir", "", "directory for pool snapshots taken on bookmarks")
	f.BoolVar(&logStats, "log-stats", false, "output window stats via slog")
	f.Int64Var(&seed, "seed", 0, "RNG seed (0 = time-based)")
}

func setupLogging(w io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch logFormat {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return fmt.Errorf("invalid --log-format %q", logFormat)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// applyFlags overrides config values with any flags that were set.
func applyFlags(cfg *config.Config, args []string) error {
	if len(args) == 1 {
		cfg.Source.Kind = "fits"
		cfg.Source.Path = args[0]
	}
	if sourceKind != "" {
		cfg.Source.Kind = sourceKind
	}
	if frameCount > 0 {
		cfg.Source.Frames = frameCount
	}
	if renderMode != "" {
		cfg.Render.Mode = renderMode
	}
	if audioMode != "" {
		cfg.Audio.Source = audioMode
	}
	if wavPath != "" {
		cfg.Audio.WAVPath = wavPath
		if audioMode == "" {
			cfg.Audio.Source = "wav"
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.ComputeDerived()
	return nil
}

func runAnimation(cmd *cobra.Command, args []string) error {
	if err := config.Init(configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.Cfg()
	if err := applyFlags(cfg, args); err != nil {
		return err
	}

	source, err := openSource(cfg)
	if err != nil {
		return err
	}

	mod, closeAudio, err := openModulator(cfg)
	if err != nil {
		return err
	}
	defer closeAudio()

	sink, err := openSink(cfg)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, app.Options{
		Seed:        seed,
		LogStats:    logStats,
		OutputDir:   outputDir,
		SnapshotDir: snapDir,
		MaxTicks:    maxTicks,
	}, source, mod, sink)
	if err != nil {
		sink.Close()
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("closing run", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting animation",
		"source", cfg.Source.Kind,
		"frames", cfg.Source.Frames,
		"render", cfg.Render.Mode,
		"audio", cfg.Audio.Source,
		"seed", seed,
		"max_ticks", maxTicks,
	)
	return a.Run(ctx)
}

func openSource(cfg *config.Config) (frames.Source, error) {
	switch cfg.Source.Kind {
	case "fits":
		if cfg.Source.Path == "" {
			return nil, fmt.Errorf("%w: source.path is required for fits", config.ErrInvalid)
		}
		cube, err := fits.Open(cfg.Source.Path)
		if err != nil {
			return nil, err
		}
		if cube.Width != cube.Height {
			return nil, fmt.Errorf("%w: frames are %dx%d, want square", config.ErrInvalid, cube.Width, cube.Height)
		}
		if cfg.Grid.Dim != cube.Width {
			slog.Info("grid.dim follows frame side", "configured", cfg.Grid.Dim, "frame_side", cube.Width)
			cfg.Grid.Dim = cube.Width
			cfg.ComputeDerived()
		}
		return fits.NewSource(cube, cfg.Source.Workers), nil

	case "noise":
		n := cfg.Source.Noise
		side := cfg.Grid.Dim
		if side == 0 {
			side = n.Side
		}
		src := frames.NewNoiseSource(n.Seed, side, n.Scale, n.Speed)
		src.Workers = cfg.Source.Workers
		return src, nil
	}
	return nil, fmt.Errorf("%w: unknown source.kind %q", config.ErrInvalid, cfg.Source.Kind)
}

func analyserConfig(cfg *config.Config) audio.AnalyserConfig {
	return audio.AnalyserConfig{
		FFTSize:   cfg.Audio.FFTSize,
		Smoothing: cfg.Audio.Smoothing,
		MinDB:     cfg.Audio.MinDB,
		MaxDB:     cfg.Audio.MaxDB,
		Scale:     cfg.Audio.Scale,
	}
}

// openModulator returns the configured volume source and a func that
// releases it.
func openModulator(cfg *config.Config) (systems.Modulator, func(), error) {
	noop := func() {}

	var mod audio.Modulator
	release := noop
	switch cfg.Audio.Source {
	case "", "none":
		mod = audio.Silent{}

	case "mic":
		m, err := mic.Open(analyserConfig(cfg), cfg.Audio.SampleRate)
		if err != nil {
			return nil, noop, err
		}
		mod = m
		release = func() {
			if err := m.Close(); err != nil {
				slog.Error("closing microphone", "error", err)
			}
		}

	case "wav":
		clip, err := audio.LoadWAV(cfg.Audio.WAVPath)
		if err != nil {
			return nil, noop, err
		}
		slog.Info("audio clip loaded", "path", cfg.Audio.WAVPath, "samples", len(clip.Samples), "sample_rate", clip.SampleRate)
		mod = audio.NewPlayback(clip, analyserConfig(cfg), cfg.Screen.TargetFPS)

	default:
		return nil, noop, fmt.Errorf("%w: unknown audio.source %q", config.ErrInvalid, cfg.Audio.Source)
	}

	if cfg.Audio.SpringFrequency > 0 {
		mod = audio.NewSpring(mod, cfg.Screen.TargetFPS, cfg.Audio.SpringFrequency, cfg.Audio.SpringDamping)
	}
	return mod, release, nil
}

func openSink(cfg *config.Config) (renderer.Sink, error) {
	switch cfg.Render.Mode {
	case "window":
		return renderer.NewWindow(renderer.WindowConfig{
			Width:        int32(cfg.Screen.Width),
			Height:       int32(cfg.Screen.Height),
			TargetFPS:    int32(cfg.Screen.TargetFPS),
			Title:        cfg.Screen.Title,
			ParticleSize: float32(cfg.Grid.ParticleSize),
		}), nil
	case "terminal":
		half := float32(cfg.Grid.WorldSize) / 2
		return renderer.NewTerminal(renderer.Bounds{
			MinX: -half,
			MaxX: half,
			MinY: float32(cfg.Motion.RecycleFloor),
			MaxY: float32(cfg.Grid.InitY) + 1,
		})
	case "headless":
		return &renderer.Headless{}, nil
	}
	return nil, fmt.Errorf("%w: unknown render.mode %q", config.ErrInvalid, cfg.Render.Mode)
}

func printInfo(cmd *cobra.Command, args []string) error {
	cube, err := fits.Open(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%s: %dx%d, %d frames, BITPIX %d\n\n", filepath.Base(args[0]), cube.Width, cube.Height, cube.Depth, cube.Bitpix)
	for i := range cube.Header.Keys() {
		c := cube.Header.Card(i)
		if c.Comment != "" {
			fmt.Fprintf(out, "%-8s = %-20v / %s\n", c.Name, c.Value, c.Comment)
		} else {
			fmt.Fprintf(out, "%-8s = %v\n", c.Name, c.Value)
		}
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FRAME\tMIN\tMAX\tDEGENERATE")
	for i := 0; i < cube.Depth; i++ {
		values, err := cube.Frame(i)
		if err != nil {
			return fmt.Errorf("decoding frame %d: %w", i, err)
		}
		e := frames.ExtentOf(values)
		fmt.Fprintf(tw, "%d\t%g\t%g\t%t\n", i, e.Min, e.Max, e.Degenerate())
	}
	return tw.Flush()
}
