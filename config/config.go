// Package config provides configuration loading and access for the visualizer.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is returned by Validate for out-of-range parameters.
var ErrInvalid = errors.New("config: invalid value")

// Config holds all visualizer configuration parameters.
// Values are start-up constants; nothing reads them back after the engine is built.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Grid      GridConfig      `yaml:"grid"`
	Cadence   CadenceConfig   `yaml:"cadence"`
	Motion    MotionConfig    `yaml:"motion"`
	Audio     AudioConfig     `yaml:"audio"`
	Source    SourceConfig    `yaml:"source"`
	Render    RenderConfig    `yaml:"render"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	TargetFPS int    `yaml:"target_fps"`
	Title     string `yaml:"title"`
}

// GridConfig describes the particle pool layout.
type GridConfig struct {
	Dim          int     `yaml:"dim"`           // Particles per grid row/col (0 = take frame side from source)
	Slabs        int     `yaml:"slabs"`         // Number of stacked grids in flight
	WorldSize    float64 `yaml:"world_size"`    // Edge length of a rendered grid in world units
	InitY        float64 `yaml:"init_y"`        // Spawn height of new grids
	ParticleSize float64 `yaml:"particle_size"` // Cube edge length in the window sink
}

// CadenceConfig controls how often new frames are consumed.
type CadenceConfig struct {
	UpdateInterval int `yaml:"update_interval"` // Render ticks between slab refreshes
}

// MotionConfig holds per-particle motion and fade constants.
type MotionConfig struct {
	FallRate       float64 `yaml:"fall_rate"`        // Base downward step per tick
	FallValueScale float64 `yaml:"fall_value_scale"` // Extra fall per unit of assigned value
	RotationRate   float64 `yaml:"rotation_rate"`    // Base rotation step per tick (radians)
	FadeFloor      float64 `yaml:"fade_floor"`       // Height below which particles fade out
	RecycleFloor   float64 `yaml:"recycle_floor"`    // Height below which particles are recycled
	FadeStep       float64 `yaml:"fade_step"`        // Alpha change per tick
}

// AudioConfig holds audio modulation parameters.
type AudioConfig struct {
	Source          string  `yaml:"source"`           // none | mic | wav
	WAVPath         string  `yaml:"wav_path"`         // Used when source is wav
	SampleRate      int     `yaml:"sample_rate"`      // Capture rate for the mic
	FFTSize         int     `yaml:"fft_size"`         // Analyser window, power of two
	Smoothing       float64 `yaml:"smoothing"`        // Analyser time smoothing in [0, 1)
	MinDB           float64 `yaml:"min_db"`           // Spectrum floor mapped to 0
	MaxDB           float64 `yaml:"max_db"`           // Spectrum ceiling mapped to 255
	Scale           float64 `yaml:"scale"`            // Multiplier from byte average to modulator output
	Influence       float64 `yaml:"influence"`        // Rotation added per unit of volume
	Brightness      float64 `yaml:"brightness"`       // Color gain per unit of volume
	SpringFrequency float64 `yaml:"spring_frequency"` // Output smoothing spring (0 = off)
	SpringDamping   float64 `yaml:"spring_damping"`
}

// SourceConfig selects where frames come from.
type SourceConfig struct {
	Kind    string      `yaml:"kind"`    // fits | noise
	Path    string      `yaml:"path"`    // FITS file path
	Frames  int         `yaml:"frames"`  // Number of frames to load
	Workers int         `yaml:"workers"` // Concurrent frame decoders (0 = GOMAXPROCS)
	Noise   NoiseConfig `yaml:"noise"`
}

// NoiseConfig holds parameters for the synthetic frame source.
type NoiseConfig struct {
	Seed  int64   `yaml:"seed"`
	Side  int     `yaml:"side"`  // Frame side when grid.dim is 0
	Scale float64 `yaml:"scale"` // Spatial frequency
	Speed float64 `yaml:"speed"` // Noise time step per frame
}

// RenderConfig selects the render sink.
type RenderConfig struct {
	Mode string `yaml:"mode"` // window | terminal | headless
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // Seconds per stats window
	PerfWindow  int     `yaml:"perf_window"`  // Ticks averaged by the perf collector
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	GridArea int     // Grid.Dim squared
	Capacity int     // GridArea * Grid.Slabs
	DT       float64 // Seconds per render tick at the target frame rate
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
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ComputeDerived()

	return cfg, nil
}

// ComputeDerived recalculates derived values. Call it again after changing
// Grid.Dim once the frame side is known.
func (c *Config) ComputeDerived() {
	c.Derived.GridArea = c.Grid.Dim * c.Grid.Dim
	c.Derived.Capacity = c.Derived.GridArea * c.Grid.Slabs
	c.Derived.DT = 0
	if c.Screen.TargetFPS > 0 {
		c.Derived.DT = 1.0 / float64(c.Screen.TargetFPS)
	}
}

// Validate checks parameter ranges and floor ordering.
func (c *Config) Validate() error {
	switch {
	case c.Grid.Dim < 0:
		return fmt.Errorf("%w: grid.dim must be >= 0, got %d", ErrInvalid, c.Grid.Dim)
	case c.Grid.Slabs <= 0:
		return fmt.Errorf("%w: grid.slabs must be positive, got %d", ErrInvalid, c.Grid.Slabs)
	case c.Cadence.UpdateInterval <= 0:
		return fmt.Errorf("%w: cadence.update_interval must be positive, got %d", ErrInvalid, c.Cadence.UpdateInterval)
	case c.Source.Frames <= 0:
		return fmt.Errorf("%w: source.frames must be positive, got %d", ErrInvalid, c.Source.Frames)
	case c.Motion.FadeFloor <= c.Motion.RecycleFloor:
		return fmt.Errorf("%w: motion.fade_floor (%g) must be above motion.recycle_floor (%g)",
			ErrInvalid, c.Motion.FadeFloor, c.Motion.RecycleFloor)
	case c.Grid.InitY <= c.Motion.FadeFloor:
		return fmt.Errorf("%w: grid.init_y (%g) must be above motion.fade_floor (%g)",
			ErrInvalid, c.Grid.InitY, c.Motion.FadeFloor)
	case c.Motion.FadeStep <= 0:
		return fmt.Errorf("%w: motion.fade_step must be positive, got %g", ErrInvalid, c.Motion.FadeStep)
	case c.Audio.FFTSize <= 0 || c.Audio.FFTSize&(c.Audio.FFTSize-1) != 0:
		return fmt.Errorf("%w: audio.fft_size must be a power of two, got %d", ErrInvalid, c.Audio.FFTSize)
	case c.Audio.Smoothing < 0 || c.Audio.Smoothing >= 1:
		return fmt.Errorf("%w: audio.smoothing must be in [0, 1), got %g", ErrInvalid, c.Audio.Smoothing)
	}
	return nil
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
