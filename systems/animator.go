package systems

import (
	"errors"
	"log/slog"

	"github.com/pthm-cable/fitsfall/components"
	"github.com/pthm-cable/fitsfall/frames"
)

// Phase names reported to a PhaseTimer during a tick.
const (
	TimerAudio   = "audio"
	TimerSweep   = "sweep"
	TimerRefresh = "refresh"
)

// Motion holds the per-tick motion and fade constants.
type Motion struct {
	FallRate       float32 // Base fall per tick
	FallValueScale float32 // Extra fall per unit of assigned value
	RotationRate   float32 // Base rotation per tick on each axis
	AudioInfluence float32 // Extra rotation per unit of volume
	Brightness     float32 // Color gain per unit of volume
	FadeFloor      float32
	RecycleFloor   float32
	FadeStep       float32
}

// FrameSupplier hands out frames in cyclic order once loaded. *frames.Buffer
// implements it.
type FrameSupplier interface {
	Ready() bool
	Loaded() int
	Len() int
	Next() frames.Frame
}

// Modulator supplies the audio volume for a tick.
type Modulator interface {
	Sample() float64
}

// PhaseTimer receives phase boundaries inside a tick.
type PhaseTimer interface {
	StartPhase(name string)
}

// TickReport summarizes one tick.
type TickReport struct {
	Tick       uint64
	Volume     float64
	Visible    int  // Visible particles after the sweep
	Refreshed  bool // A slab received a new frame this tick
	Slab       int  // Refreshed slab, or -1
	Frame      int  // Frame index written, or -1
	Preempted  int
	Malformed  bool
	Degenerate bool
}

// LogValue implements slog.LogValuer for structured logging.
func (r TickReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("tick", r.Tick),
		slog.Float64("volume", r.Volume),
		slog.Int("visible", r.Visible),
		slog.Int("slab", r.Slab),
		slog.Int("frame", r.Frame),
		slog.Int("preempted", r.Preempted),
	)
}

// Animator drives the pool one render tick at a time. It owns the tick
// counter and is the only writer of the pool.
type Animator struct {
	pool     *Pool
	frames   FrameSupplier
	mod      Modulator
	motion   Motion
	interval int
	elapsed  int
	tick     uint64

	timer  PhaseTimer
	logger *slog.Logger
}

// NewAnimator creates an animator that refreshes one slab every interval ticks.
func NewAnimator(pool *Pool, supplier FrameSupplier, mod Modulator, motion Motion, interval int) *Animator {
	if interval < 1 {
		interval = 1
	}
	return &Animator{
		pool:     pool,
		frames:   supplier,
		mod:      mod,
		motion:   motion,
		interval: interval,
		logger:   slog.Default(),
	}
}

// SetLogger replaces the default logger.
func (a *Animator) SetLogger(l *slog.Logger) {
	a.logger = l
}

// SetPhaseTimer installs a timer notified at each phase of a tick.
func (a *Animator) SetPhaseTimer(t PhaseTimer) {
	a.timer = t
}

// Pool returns the animated pool.
func (a *Animator) Pool() *Pool {
	return a.pool
}

// Motion returns the motion constants.
func (a *Animator) Motion() Motion {
	return a.motion
}

// Ticks returns the number of completed ticks.
func (a *Animator) Ticks() uint64 {
	return a.tick
}

// Tick advances every particle one step and, on the cadence, writes the next
// frame into the next slab. It panics with *frames.PreconditionError if the
// frame supplier is not ready.
func (a *Animator) Tick() TickReport {
	if !a.frames.Ready() {
		panic(&frames.PreconditionError{Op: "Tick", Loaded: a.frames.Loaded(), Want: a.frames.Len()})
	}

	a.tick++
	report := TickReport{Tick: a.tick, Slab: -1, Frame: -1}

	a.startPhase(TimerAudio)
	var vol float64
	if a.mod != nil {
		vol = a.mod.Sample()
	}
	report.Volume = vol

	a.startPhase(TimerSweep)
	report.Visible = a.sweep(float32(vol))

	a.elapsed++
	if a.elapsed >= a.interval {
		a.elapsed = 0
		a.startPhase(TimerRefresh)
		a.refresh(&report)
	}
	return report
}

func (a *Animator) startPhase(name string) {
	if a.timer != nil {
		a.timer.StartPhase(name)
	}
}

// sweep runs the per-particle state machine and returns the visible count.
func (a *Animator) sweep(vol float32) int {
	m := a.motion
	rot := m.RotationRate + m.AudioInfluence*vol
	gain := 1 + m.Brightness*vol
	visible := 0

	ps := a.pool.particles
	for i := range ps {
		pt := &ps[i]
		switch m.PhaseOf(pt) {
		case PhaseHidden:
			continue
		case PhaseRecycle:
			a.pool.recycle(pt)
			continue
		case PhaseFalling:
			if pt.Color.A < pt.Value {
				pt.Color.A = min(pt.Value, pt.Color.A+m.FadeStep)
			}
		case PhaseFadingOut:
			pt.Color.A = max(0, pt.Color.A-m.FadeStep)
		}

		pt.Position.Y -= m.FallRate + m.FallValueScale*pt.Value
		pt.Rotation.X += rot
		pt.Rotation.Y += rot
		pt.Rotation.Z += rot

		shade := min(1, pt.Value*gain)
		pt.Color.R, pt.Color.G, pt.Color.B = shade, shade, shade
		visible++
	}
	return visible
}

func (a *Animator) refresh(report *TickReport) {
	f := a.frames.Next()
	res, err := a.pool.RefreshNextSlab(f)

	report.Refreshed = true
	report.Slab = res.Slab
	report.Frame = res.Frame
	report.Preempted = res.Preempted
	report.Degenerate = res.Degenerate

	if res.Preempted > 0 {
		a.logger.Debug("preempted slab",
			"tick", a.tick,
			"slab", res.Slab,
			"particles", res.Preempted,
		)
	}
	if errors.Is(err, ErrMalformedFrame) {
		report.Malformed = true
		a.logger.Warn("skipped malformed frame", "tick", a.tick, "slab", res.Slab, "error", err)
	}
}

// Alphas appends the alpha of every visible particle to dst.
func Alphas(dst []float64, ps []components.Particle) []float64 {
	for i := range ps {
		if ps[i].Visible {
			dst = append(dst, float64(ps[i].Color.A))
		}
	}
	return dst
}
