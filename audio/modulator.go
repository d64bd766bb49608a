// Package audio turns sound into the per-tick volume that modulates the
// particle field.
package audio

// Modulator supplies a volume in roughly [0, 1.5] once per render tick.
// Values above 1 are allowed and not wrapped.
type Modulator interface {
	Sample() float64
}

// Silent is a Modulator that always returns 0.
type Silent struct{}

// Sample returns 0.
func (Silent) Sample() float64 { return 0 }

// Constant is a Modulator that always returns its own value.
type Constant float64

// Sample returns c.
func (c Constant) Sample() float64 { return float64(c) }
