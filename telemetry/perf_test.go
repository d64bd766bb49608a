package telemetry

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/pthm-cable/fitsfall/frames"
	"github.com/pthm-cable/fitsfall/systems"
)

// manualClock only moves when told to.
type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time           { return c.t }
func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// stepClock moves by step on every reading.
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func newManualCollector(window int, budget time.Duration) (*PerfCollector, *manualClock) {
	clk := &manualClock{t: time.Unix(0, 0)}
	pc := NewPerfCollector(window, budget)
	pc.now = clk.now
	return pc, clk
}

func TestPerfStatsUnitCosts(t *testing.T) {
	pc, clk := newManualCollector(10, 10*time.Millisecond)

	// Refreshing tick
	pc.StartTick()
	pc.StartPhase(PhaseSweep)
	clk.advance(2 * time.Millisecond)
	pc.StartPhase(PhaseRefresh)
	clk.advance(time.Millisecond)
	pc.StartPhase(PhaseRender)
	clk.advance(time.Millisecond)
	pc.EndTick(Workload{Particles: 4000, Visible: 2000})

	// Plain tick
	pc.StartTick()
	pc.StartPhase(PhaseSweep)
	clk.advance(2 * time.Millisecond)
	pc.StartPhase(PhaseRender)
	clk.advance(time.Millisecond)
	pc.EndTick(Workload{Particles: 4000, Visible: 1000})

	want := PerfStats{
		Ticks:             2,
		AvgTick:           3500 * time.Microsecond,
		P95Tick:           4 * time.Millisecond,
		MaxTick:           4 * time.Millisecond,
		Sweep:             2 * time.Millisecond,
		Refresh:           500 * time.Microsecond,
		Render:            time.Millisecond,
		SweepPerKParticle: 500 * time.Microsecond,
		RefreshPerSlab:    time.Millisecond,
		RenderPerKVisible: 666666 * time.Nanosecond,
		RefreshTicks:      1,
		Headroom:          0.65,
	}
	if diff := cmp.Diff(want, pc.Stats(), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestPerfCollectorRollingWindow(t *testing.T) {
	pc, clk := newManualCollector(3, 0)

	for i := 1; i <= 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseSweep)
		clk.advance(time.Duration(i) * time.Millisecond)
		pc.EndTick(Workload{Particles: 1000})
	}

	s := pc.Stats()
	if s.Ticks != 3 {
		t.Errorf("expected 3 ticks in window, got %d", s.Ticks)
	}
	if s.AvgTick != 4*time.Millisecond {
		t.Errorf("expected avg tick 4ms over the last three ticks, got %v", s.AvgTick)
	}
	if s.MaxTick != 5*time.Millisecond {
		t.Errorf("expected max tick 5ms, got %v", s.MaxTick)
	}
	if s.Headroom != 0 {
		t.Errorf("expected no headroom without a budget, got %v", s.Headroom)
	}
}

func TestPerfCollectorUnknownPhaseClosesRunning(t *testing.T) {
	pc, clk := newManualCollector(4, 0)

	pc.StartTick()
	pc.StartPhase(PhaseSweep)
	clk.advance(time.Millisecond)
	pc.StartPhase("idle")
	clk.advance(5 * time.Millisecond)
	pc.EndTick(Workload{})

	s := pc.Stats()
	if s.Sweep != time.Millisecond {
		t.Errorf("expected sweep 1ms, got %v", s.Sweep)
	}
	if s.AvgTick != 6*time.Millisecond {
		t.Errorf("expected tick 6ms, got %v", s.AvgTick)
	}
	if s.SweepPerKParticle != 0 || s.RenderPerKVisible != 0 {
		t.Error("unit costs should be zero without a workload")
	}
}

func TestPerfCollectorEmpty(t *testing.T) {
	pc := NewPerfCollector(0, time.Second)
	if diff := cmp.Diff(PerfStats{}, pc.Stats()); diff != "" {
		t.Errorf("expected zero stats (-want +got):\n%s", diff)
	}
}

func TestPerfCollectorFrameRate(t *testing.T) {
	pc, clk := newManualCollector(4, 0)

	pc.RecordFrame()
	clk.advance(20 * time.Millisecond)
	pc.RecordFrame()

	s := pc.Stats()
	if s.FrameDuration != 20*time.Millisecond {
		t.Errorf("expected frame duration 20ms, got %v", s.FrameDuration)
	}
	if s.FPS != 50 {
		t.Errorf("expected 50 fps, got %v", s.FPS)
	}
}

func TestPerfCollectorTimesAnimatorPhases(t *testing.T) {
	buf := frames.NewBuffer(1)
	if err := buf.Put(0, []float64{0, 1, 2, 3}, frames.Extent{Min: 0, Max: 3}); err != nil {
		t.Fatal(err)
	}
	pool := systems.NewPool(2, 2, systems.Layout{WorldSize: 10, InitY: 5}, rand.New(rand.NewSource(1)))
	motion := systems.Motion{FallRate: 0.1, FadeFloor: -20, RecycleFloor: -25, FadeStep: 0.05}
	anim := systems.NewAnimator(pool, buf, nil, motion, 2)

	pc := NewPerfCollector(10, 0)
	pc.now = (&stepClock{t: time.Unix(0, 0), step: time.Microsecond}).now
	anim.SetPhaseTimer(pc)

	for i := 0; i < 4; i++ {
		pc.StartTick()
		report := anim.Tick()
		pc.StartPhase(PhaseRender)
		pc.EndTick(Workload{Particles: pool.Capacity(), Visible: report.Visible})
	}

	s := pc.Stats()
	if s.RefreshTicks != 2 {
		t.Errorf("expected refresh timed on 2 of 4 ticks at interval 2, got %d", s.RefreshTicks)
	}
	// Each phase spans exactly one clock reading
	for name, got := range map[string]time.Duration{
		PhaseAudio:   s.Audio,
		PhaseSweep:   s.Sweep,
		PhaseRender:  s.Render,
		PhaseRefresh: s.RefreshPerSlab,
	} {
		if got != time.Microsecond {
			t.Errorf("expected %s to take 1us, got %v", name, got)
		}
	}
	if want := time.Microsecond * 1000 / time.Duration(pool.Capacity()); s.SweepPerKParticle != want {
		t.Errorf("expected sweep cost %v per 1k particles, got %v", want, s.SweepPerKParticle)
	}
}
