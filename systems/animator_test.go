package systems

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/pthm-cable/fitsfall/components"
	"github.com/pthm-cable/fitsfall/frames"
)

var testMotion = Motion{
	FallRate:       0.1,
	FallValueScale: 0.08,
	RotationRate:   0.01,
	AudioInfluence: 0.1,
	FadeFloor:      -20,
	RecycleFloor:   -25,
	FadeStep:       0.05,
}

// countingModulator returns a fixed volume and counts reads.
type countingModulator struct {
	vol   float64
	calls int
}

func (m *countingModulator) Sample() float64 {
	m.calls++
	return m.vol
}

// recordingTimer records phase names.
type recordingTimer struct {
	phases []string
}

func (r *recordingTimer) StartPhase(name string) {
	r.phases = append(r.phases, name)
}

func readyBuffer(t *testing.T, vals ...[]float64) *frames.Buffer {
	t.Helper()
	b := frames.NewBuffer(len(vals))
	for i, v := range vals {
		if err := b.Put(i, v, frames.ExtentOf(v)); err != nil {
			t.Fatal(err)
		}
	}
	return b
}

func TestAnimatorEndToEnd(t *testing.T) {
	pool := NewPool(2, 2, testLayout, rand.New(rand.NewSource(1)))
	buf := readyBuffer(t, []float64{0, 1, 2, 3}, []float64{3, 2, 1, 0})
	anim := NewAnimator(pool, buf, &countingModulator{}, testMotion, 1)
	approx := cmpopts.EquateApprox(0, 1e-6)

	// Tick 1: slab 0 gets frame 0
	r := anim.Tick()
	if r.Slab != 0 || r.Frame != 0 {
		t.Fatalf("tick 1: expected slab 0 frame 0, got %+v", r)
	}
	if diff := cmp.Diff([]float32{0, 1.0 / 3, 2.0 / 3, 1}, slabValues(pool, 0), approx); diff != "" {
		t.Errorf("tick 1 slab 0 values (-want +got):\n%s", diff)
	}
	for i, pt := range pool.Slab(0) {
		if !pt.Visible || pt.Color.A != 0 {
			t.Errorf("tick 1 particle %d: expected visible at alpha 0, got %v %g", i, pt.Visible, pt.Color.A)
		}
	}

	// Tick 2: slab 1 gets frame 1, cursor wraps
	r = anim.Tick()
	if r.Slab != 1 || r.Frame != 1 {
		t.Fatalf("tick 2: expected slab 1 frame 1, got %+v", r)
	}
	if diff := cmp.Diff([]float32{1, 2.0 / 3, 1.0 / 3, 0}, slabValues(pool, 1), approx); diff != "" {
		t.Errorf("tick 2 slab 1 values (-want +got):\n%s", diff)
	}
	if pool.NextSlab() != 0 {
		t.Errorf("tick 2: expected next slab 0, got %d", pool.NextSlab())
	}

	// Tick 3: slab 0 is still in flight and gets preempted
	r = anim.Tick()
	if r.Slab != 0 || r.Frame != 0 {
		t.Fatalf("tick 3: expected slab 0 frame 0, got %+v", r)
	}
	if r.Preempted != 4 {
		t.Errorf("tick 3: expected 4 preempted, got %d", r.Preempted)
	}
	for i, pt := range pool.Slab(0) {
		if pt.Position.Y != testLayout.InitY || pt.Color.A != 0 {
			t.Errorf("tick 3 particle %d: expected fresh spawn, got y=%g a=%g", i, pt.Position.Y, pt.Color.A)
		}
	}
}

func TestAnimatorCadence(t *testing.T) {
	pool := NewPool(4, 2, testLayout, rand.New(rand.NewSource(1)))
	buf := readyBuffer(t, []float64{0, 1, 2, 3})
	anim := NewAnimator(pool, buf, nil, testMotion, 3)

	var refreshed []uint64
	for i := 0; i < 9; i++ {
		if r := anim.Tick(); r.Refreshed {
			refreshed = append(refreshed, r.Tick)
		}
	}
	if diff := cmp.Diff([]uint64{3, 6, 9}, refreshed); diff != "" {
		t.Errorf("refresh ticks (-want +got):\n%s", diff)
	}
}

func TestAnimatorSamplesAudioOncePerTick(t *testing.T) {
	pool := NewPool(2, 2, testLayout, rand.New(rand.NewSource(1)))
	mod := &countingModulator{vol: 0.5}
	anim := NewAnimator(pool, readyBuffer(t, []float64{0, 1, 2, 3}), mod, testMotion, 2)

	for i := 0; i < 10; i++ {
		anim.Tick()
	}
	if mod.calls != 10 {
		t.Errorf("expected 10 samples over 10 ticks, got %d", mod.calls)
	}
}

func TestAnimatorAudioRotation(t *testing.T) {
	pool := NewPool(1, 1, testLayout, rand.New(rand.NewSource(1)))
	anim := NewAnimator(pool, readyBuffer(t, []float64{1}), &countingModulator{vol: 1}, testMotion, 1)
	anim.Tick()

	before := pool.Particle(0).Rotation
	anim.Tick()
	after := pool.Particle(0).Rotation

	want := testMotion.RotationRate + testMotion.AudioInfluence
	if d := after.X - before.X; d < want-1e-5 || d > want+1e-5 {
		t.Errorf("expected rotation step %g, got %g", want, d)
	}
}

func TestAnimatorTickBeforeReadyPanics(t *testing.T) {
	pool := NewPool(1, 1, testLayout, rand.New(rand.NewSource(1)))
	anim := NewAnimator(pool, frames.NewBuffer(2), nil, testMotion, 5)

	defer func() {
		r := recover()
		err, ok := r.(error)
		var pe *frames.PreconditionError
		if !ok || !errors.As(err, &pe) {
			t.Fatalf("expected *frames.PreconditionError panic, got %v", r)
		}
		if pe.Op != "Tick" {
			t.Errorf("expected op Tick, got %q", pe.Op)
		}
	}()
	anim.Tick()
}

func TestSweepRecyclesBelowFloor(t *testing.T) {
	pool := NewPool(1, 1, testLayout, rand.New(rand.NewSource(1)))
	anim := NewAnimator(pool, readyBuffer(t, []float64{1}), nil, testMotion, 1000)

	pt := pool.Particle(0)
	pt.Visible = true
	pt.Value = 1
	pt.Color.A = 0.3
	pt.Position.Y = testMotion.RecycleFloor - 0.01

	anim.Tick()
	if pt.Visible || pt.Position.Y != testLayout.InitY {
		t.Errorf("expected recycle after one tick, got visible=%v y=%g", pt.Visible, pt.Position.Y)
	}
}

func TestSweepFadeInClampsToValue(t *testing.T) {
	pool := NewPool(1, 1, testLayout, rand.New(rand.NewSource(1)))
	anim := NewAnimator(pool, readyBuffer(t, []float64{1}), nil, testMotion, 1000)

	pt := pool.Particle(0)
	pt.Visible = true
	pt.Value = 0.12

	for i := 0; i < 5; i++ {
		anim.Tick()
	}
	if pt.Color.A != 0.12 {
		t.Errorf("expected alpha clamped to 0.12, got %g", pt.Color.A)
	}
}

func TestSweepFadeOutNeverNegative(t *testing.T) {
	pool := NewPool(1, 1, testLayout, rand.New(rand.NewSource(1)))
	anim := NewAnimator(pool, readyBuffer(t, []float64{1}), nil, testMotion, 1000)

	pt := pool.Particle(0)
	pt.Visible = true
	pt.Value = 0
	pt.Color.A = 0.07
	pt.Position.Y = testMotion.FadeFloor - 0.5

	anim.Tick()
	if pt.Color.A >= 0.07 {
		t.Errorf("expected alpha to decay, got %g", pt.Color.A)
	}
	anim.Tick()
	if pt.Color.A != 0 {
		t.Errorf("expected alpha floored at 0, got %g", pt.Color.A)
	}
}

func TestParticleLifecycle(t *testing.T) {
	pool := NewPool(1, 1, testLayout, rand.New(rand.NewSource(1)))
	anim := NewAnimator(pool, readyBuffer(t, []float64{1}), nil, testMotion, 100000)

	pt := pool.Particle(0)
	pt.Visible = true
	pt.Value = 1

	seen := map[Phase]bool{}
	for i := 0; i < 1000 && pt.Visible; i++ {
		seen[testMotion.PhaseOf(pt)] = true
		anim.Tick()
	}
	if pt.Visible {
		t.Fatal("particle never recycled")
	}
	for _, ph := range []Phase{PhaseFalling, PhaseFadingOut, PhaseRecycle} {
		if !seen[ph] {
			t.Errorf("particle never passed through %s", ph)
		}
	}
}

func TestPhaseOf(t *testing.T) {
	tests := []struct {
		name string
		pt   components.Particle
		want Phase
	}{
		{"hidden", components.Particle{Position: components.Vec3{Y: 20}}, PhaseHidden},
		{"falling", components.Particle{Visible: true, Position: components.Vec3{Y: 0}}, PhaseFalling},
		{"at fade floor", components.Particle{Visible: true, Position: components.Vec3{Y: -20}}, PhaseFalling},
		{"fading", components.Particle{Visible: true, Position: components.Vec3{Y: -22}}, PhaseFadingOut},
		{"recycle", components.Particle{Visible: true, Position: components.Vec3{Y: -26}}, PhaseRecycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testMotion.PhaseOf(&tt.pt); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestAnimatorInvariantsOverLongRun(t *testing.T) {
	pool := NewPool(5, 3, testLayout, rand.New(rand.NewSource(2)))
	var vals [][]float64
	for i := 0; i < 7; i++ {
		v := make([]float64, 9)
		for j := range v {
			v[j] = float64((i + j) % 4)
		}
		vals = append(vals, v)
	}
	vals = append(vals, []float64{1, 2}) // malformed
	buf := readyBuffer(t, vals...)
	anim := NewAnimator(pool, buf, &countingModulator{vol: 0.8}, testMotion, 4)

	for i := 0; i < 5000; i++ {
		anim.Tick()
		n := pool.NextSlab()
		if n%pool.GridArea() != 0 || n >= pool.Capacity() {
			t.Fatalf("tick %d: next slab %d violates invariant", i, n)
		}
		if buf.Cursor() < 0 || buf.Cursor() >= buf.Len() {
			t.Fatalf("tick %d: cursor %d out of range", i, buf.Cursor())
		}
	}
	for i, pt := range pool.Particles() {
		if pt.Color.A < 0 || pt.Color.A > pt.Value+1e-6 {
			t.Fatalf("particle %d: alpha %g outside [0, %g]", i, pt.Color.A, pt.Value)
		}
	}
}

func TestAnimatorPhaseTimer(t *testing.T) {
	pool := NewPool(1, 1, testLayout, rand.New(rand.NewSource(1)))
	anim := NewAnimator(pool, readyBuffer(t, []float64{1}), nil, testMotion, 2)
	timer := &recordingTimer{}
	anim.SetPhaseTimer(timer)

	anim.Tick()
	anim.Tick()

	want := []string{TimerAudio, TimerSweep, TimerAudio, TimerSweep, TimerRefresh}
	if diff := cmp.Diff(want, timer.phases); diff != "" {
		t.Errorf("phases (-want +got):\n%s", diff)
	}
}

func TestAlphas(t *testing.T) {
	ps := []components.Particle{
		{Visible: true, Color: components.Color{A: 0.5}},
		{Visible: false, Color: components.Color{A: 0.9}},
		{Visible: true, Color: components.Color{A: 0.25}},
	}
	if diff := cmp.Diff([]float64{0.5, 0.25}, Alphas(nil, ps)); diff != "" {
		t.Errorf("alphas (-want +got):\n%s", diff)
	}
}
