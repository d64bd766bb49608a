package telemetry

import (
	"log/slog"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/fitsfall/systems"
)

// Phase names for one render tick. Audio, sweep and refresh are reported by
// the animator through systems.PhaseTimer; render and telemetry by the app.
const (
	PhaseAudio     = systems.TimerAudio
	PhaseSweep     = systems.TimerSweep
	PhaseRefresh   = systems.TimerRefresh
	PhaseRender    = "render"
	PhaseTelemetry = "telemetry"
)

type phase int

const (
	phaseAudio phase = iota
	phaseSweep
	phaseRefresh
	phaseRender
	phaseTelemetry
	numPhases

	noPhase phase = -1
)

func phaseOf(name string) phase {
	switch name {
	case PhaseAudio:
		return phaseAudio
	case PhaseSweep:
		return phaseSweep
	case PhaseRefresh:
		return phaseRefresh
	case PhaseRender:
		return phaseRender
	case PhaseTelemetry:
		return phaseTelemetry
	}
	return noPhase
}

// Workload is what one tick had to process.
type Workload struct {
	Particles int // Particles swept (pool capacity)
	Visible   int // Particles handed to the sink
}

type tickSample struct {
	total  time.Duration
	phases [numPhases]time.Duration
	work   Workload
}

// PerfCollector times render ticks by phase over a rolling window of ticks
// and relates each phase to the particles it processed.
type PerfCollector struct {
	ring   []tickSample
	next   int
	filled int
	budget time.Duration

	cur        tickSample
	tickStart  time.Time
	phaseStart time.Time
	active     phase

	lastFrame time.Time
	frameDur  time.Duration

	now func() time.Time
}

// NewPerfCollector keeps the last window ticks. budget is the time available
// per frame (0 = no headroom reporting).
func NewPerfCollector(window int, budget time.Duration) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{
		ring:   make([]tickSample, window),
		budget: budget,
		active: noPhase,
		now:    time.Now,
	}
}

// StartTick begins timing a render tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = p.now()
	p.cur = tickSample{}
	p.active = noPhase
}

// StartPhase closes the running phase and opens the named one. Unknown names
// close the running phase without opening another.
func (p *PerfCollector) StartPhase(name string) {
	now := p.now()
	p.closePhase(now)
	p.phaseStart = now
	p.active = phaseOf(name)
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.active != noPhase {
		p.cur.phases[p.active] += now.Sub(p.phaseStart)
	}
	p.active = noPhase
}

// EndTick closes the tick and stores it with its workload.
func (p *PerfCollector) EndTick(work Workload) {
	now := p.now()
	p.closePhase(now)
	p.cur.total = now.Sub(p.tickStart)
	p.cur.work = work

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	if p.filled < len(p.ring) {
		p.filled++
	}
}

// RecordFrame marks a presented frame; the gap between calls gives FPS.
func (p *PerfCollector) RecordFrame() {
	now := p.now()
	if !p.lastFrame.IsZero() {
		p.frameDur = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats summarises the ticks in the window.
type PerfStats struct {
	Ticks int

	AvgTick time.Duration
	P95Tick time.Duration
	MaxTick time.Duration

	// Mean time per tick in each phase
	Audio     time.Duration
	Sweep     time.Duration
	Refresh   time.Duration
	Render    time.Duration
	Telemetry time.Duration

	// Unit costs
	SweepPerKParticle time.Duration // Sweep time per 1000 particles swept
	RefreshPerSlab    time.Duration // Refresh time per refreshed slab
	RenderPerKVisible time.Duration // Render time per 1000 visible particles
	RefreshTicks      int           // Ticks in the window that refreshed a slab

	Headroom float64 // 1 - AvgTick/budget; 0 without a budget

	FrameDuration time.Duration
	FPS           float64
}

// Stats aggregates the window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{Ticks: p.filled, FrameDuration: p.frameDur}
	if p.frameDur > 0 {
		s.FPS = float64(time.Second) / float64(p.frameDur)
	}
	if p.filled == 0 {
		return s
	}

	var sums [numPhases]time.Duration
	var total time.Duration
	var particles, visible int
	totals := make([]float64, p.filled)
	for i, t := range p.ring[:p.filled] {
		total += t.total
		totals[i] = float64(t.total)
		s.MaxTick = max(s.MaxTick, t.total)
		for ph, d := range t.phases {
			sums[ph] += d
		}
		if t.phases[phaseRefresh] > 0 {
			s.RefreshTicks++
		}
		particles += t.work.Particles
		visible += t.work.Visible
	}

	n := time.Duration(p.filled)
	s.AvgTick = total / n
	slices.Sort(totals)
	s.P95Tick = time.Duration(stat.Quantile(0.95, stat.Empirical, totals, nil))

	s.Audio = sums[phaseAudio] / n
	s.Sweep = sums[phaseSweep] / n
	s.Refresh = sums[phaseRefresh] / n
	s.Render = sums[phaseRender] / n
	s.Telemetry = sums[phaseTelemetry] / n

	s.SweepPerKParticle = perK(sums[phaseSweep], particles)
	s.RenderPerKVisible = perK(sums[phaseRender], visible)
	if s.RefreshTicks > 0 {
		s.RefreshPerSlab = sums[phaseRefresh] / time.Duration(s.RefreshTicks)
	}

	if p.budget > 0 {
		s.Headroom = 1 - float64(s.AvgTick)/float64(p.budget)
	}
	return s
}

func perK(d time.Duration, count int) time.Duration {
	if count <= 0 {
		return 0
	}
	return d * 1000 / time.Duration(count)
}

func micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

// LogStats logs the window using slog.
func (s PerfStats) LogStats() {
	slog.Info("perf", "window", s)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("ticks", s.Ticks),
		slog.Int64("avg_tick_us", s.AvgTick.Microseconds()),
		slog.Int64("p95_tick_us", s.P95Tick.Microseconds()),
		slog.Float64("sweep_us_per_1k", micros(s.SweepPerKParticle)),
		slog.Float64("refresh_us_per_slab", micros(s.RefreshPerSlab)),
		slog.Float64("render_us_per_1k_visible", micros(s.RenderPerKVisible)),
	}
	if s.Headroom != 0 {
		attrs = append(attrs, slog.Float64("headroom", s.Headroom))
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	WindowEnd           uint64  `csv:"window_end"`
	Ticks               int     `csv:"ticks"`
	AvgTickUS           int64   `csv:"avg_tick_us"`
	P95TickUS           int64   `csv:"p95_tick_us"`
	MaxTickUS           int64   `csv:"max_tick_us"`
	SweepUS             float64 `csv:"sweep_us"`
	RefreshUS           float64 `csv:"refresh_us"`
	RenderUS            float64 `csv:"render_us"`
	SweepPerKParticleUS float64 `csv:"sweep_us_per_1k_particles"`
	RefreshPerSlabUS    float64 `csv:"refresh_us_per_slab"`
	RenderPerKVisibleUS float64 `csv:"render_us_per_1k_visible"`
	Headroom            float64 `csv:"headroom"`
	FPS                 float64 `csv:"fps"`
}

// ToCSV flattens the stats for perf.csv.
func (s PerfStats) ToCSV(windowEnd uint64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:           windowEnd,
		Ticks:               s.Ticks,
		AvgTickUS:           s.AvgTick.Microseconds(),
		P95TickUS:           s.P95Tick.Microseconds(),
		MaxTickUS:           s.MaxTick.Microseconds(),
		SweepUS:             micros(s.Sweep),
		RefreshUS:           micros(s.Refresh),
		RenderUS:            micros(s.Render),
		SweepPerKParticleUS: micros(s.SweepPerKParticle),
		RefreshPerSlabUS:    micros(s.RefreshPerSlab),
		RenderPerKVisibleUS: micros(s.RenderPerKVisible),
		Headroom:            s.Headroom,
		FPS:                 s.FPS,
	}
}

var _ systems.PhaseTimer = (*PerfCollector)(nil)
