package renderer

import (
	"strings"
	"testing"

	"github.com/pthm-cable/fitsfall/components"
)

func TestAlphaRune(t *testing.T) {
	tests := []struct {
		a    float32
		want rune
	}{
		{-1, ' '},
		{0, ' '},
		{0.01, '.'},
		{0.5, '+'},
		{1, '@'},
		{2, '@'},
	}
	for _, tt := range tests {
		if got := AlphaRune(tt.a); got != tt.want {
			t.Errorf("AlphaRune(%g) = %q, want %q", tt.a, got, tt.want)
		}
	}
}

func TestSideView(t *testing.T) {
	b := Bounds{MinX: -10, MaxX: 10, MinY: -10, MaxY: 10}
	ps := []components.Particle{
		{Visible: true, Position: components.Vec3{X: -9, Y: 9}, Color: components.Color{R: 0.2, A: 0.3}},
		{Visible: true, Position: components.Vec3{X: -9, Y: 9, Z: 5}, Color: components.Color{R: 0.8, A: 0.6}},
		{Visible: true, Position: components.Vec3{X: 9, Y: -9}, Color: components.Color{R: 1, A: 1}},
		{Visible: false, Position: components.Vec3{X: 0, Y: 0}, Color: components.Color{A: 1}},
		{Visible: true, Position: components.Vec3{X: 50, Y: 0}, Color: components.Color{A: 1}},
	}

	cells := SideView(nil, ps, b, 4, 4)
	if len(cells) != 16 {
		t.Fatalf("expected 16 cells, got %d", len(cells))
	}

	// Top-left keeps the more opaque of the two overlapping particles
	if c := cells[0]; c.Alpha != 0.6 || c.Shade != 0.8 {
		t.Errorf("top-left: expected alpha 0.6 shade 0.8, got %+v", c)
	}
	if c := cells[15]; c.Alpha != 1 {
		t.Errorf("bottom-right: expected alpha 1, got %+v", c)
	}

	lit := 0
	for _, c := range cells {
		if c.Alpha > 0 {
			lit++
		}
	}
	if lit != 2 {
		t.Errorf("expected 2 lit cells, got %d", lit)
	}

	// Reuse clears old content
	cells = SideView(cells, nil, b, 4, 4)
	for i, c := range cells {
		if c.Alpha != 0 {
			t.Fatalf("cell %d not cleared", i)
		}
	}
}

func TestHeadlessCountsVisible(t *testing.T) {
	h := &Headless{}
	ps := []components.Particle{{Visible: true}, {}, {Visible: true}}
	if err := h.Draw(View{Particles: ps}); err != nil {
		t.Fatal(err)
	}
	if h.Draws != 1 || h.LastVisible != 2 {
		t.Errorf("expected 1 draw with 2 visible, got %d and %d", h.Draws, h.LastVisible)
	}
}

func TestStatusText(t *testing.T) {
	s := StatusText(View{Tick: 12, Frame: -1, Visible: 3, Volume: 0.5}, 60)
	for _, want := range []string{"FPS 60", "tick 12", "frame -", "visible 3", "vol 0.50"} {
		if !strings.Contains(s, want) {
			t.Errorf("status %q missing %q", s, want)
		}
	}
}

func TestUnit8(t *testing.T) {
	if unit8(-0.5) != 0 || unit8(0) != 0 || unit8(1) != 255 || unit8(3) != 255 {
		t.Error("unit8 should clamp to [0, 255]")
	}
	if got := unit8(0.5); got != 128 {
		t.Errorf("unit8(0.5) = %d, want 128", got)
	}
}
