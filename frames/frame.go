// Package frames holds decoded data frames and the looping buffer the
// animator pulls them from.
package frames

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Extent is the value range of a frame.
type Extent struct {
	Min, Max float64
}

// Width returns Max - Min.
func (e Extent) Width() float64 {
	return e.Max - e.Min
}

// Degenerate reports whether the extent has zero or non-finite width.
func (e Extent) Degenerate() bool {
	w := e.Width()
	return w == 0 || math.IsNaN(w) || math.IsInf(w, 0)
}

// Normalize maps v into the extent as (v-Min)/(Max-Min).
// A degenerate extent or a non-finite result yields 0.
func (e Extent) Normalize(v float64) float64 {
	if e.Degenerate() {
		return 0
	}
	s := (v - e.Min) / e.Width()
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

// ExtentOf returns the min and max of the finite values.
// An input with no finite values returns the zero Extent.
func ExtentOf(values []float64) Extent {
	if len(values) == 0 {
		return Extent{}
	}
	if !floats.HasNaN(values) && !hasInf(values) {
		return Extent{Min: floats.Min(values), Max: floats.Max(values)}
	}

	ext := Extent{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		ext.Min = math.Min(ext.Min, v)
		ext.Max = math.Max(ext.Max, v)
	}
	if ext.Min > ext.Max {
		return Extent{}
	}
	return ext
}

func hasInf(values []float64) bool {
	for _, v := range values {
		if math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// Frame is one time step of 2-D scalar data in row-major order.
// A Frame is immutable once constructed.
type Frame struct {
	Index  int
	Values []float64
	Extent Extent
}

// NewFrame copies values into a new Frame.
func NewFrame(index int, values []float64, extent Extent) Frame {
	v := make([]float64, len(values))
	copy(v, values)
	return Frame{Index: index, Values: v, Extent: extent}
}

// Len returns the number of values in the frame.
func (f Frame) Len() int {
	return len(f.Values)
}

// Side returns the edge length of a square frame, or 0 if the frame is not square.
func (f Frame) Side() int {
	n := len(f.Values)
	side := int(math.Sqrt(float64(n)))
	for side*side > n {
		side--
	}
	for (side+1)*(side+1) <= n {
		side++
	}
	if side*side != n {
		return 0
	}
	return side
}
