// Package renderer draws the particle pool once per tick.
package renderer

import "github.com/pthm-cable/fitsfall/components"

// View is what a sink receives each tick. Particles aliases the pool: sinks
// read it during Draw and must not keep or modify it afterwards.
type View struct {
	Particles []components.Particle
	Tick      uint64
	Frame     int // Frame index most recently written, or -1
	Volume    float64
	Visible   int
}

// Sink consumes one View per tick.
type Sink interface {
	Draw(v View) error
	ShouldClose() bool
	Close() error
}

// Headless is a Sink that draws nothing. It counts draws and the visible
// particles it was shown.
type Headless struct {
	Draws       uint64
	LastVisible int
}

// Draw records the view.
func (h *Headless) Draw(v View) error {
	h.Draws++
	n := 0
	for i := range v.Particles {
		if v.Particles[i].Visible {
			n++
		}
	}
	h.LastVisible = n
	return nil
}

// ShouldClose always returns false.
func (h *Headless) ShouldClose() bool { return false }

// Close is a no-op.
func (h *Headless) Close() error { return nil }
