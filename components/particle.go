// Package components defines the plain data records shared by the particle
// engine and the render sinks.
package components

// Vec3 is a position or Euler rotation in world space.
type Vec3 struct {
	X, Y, Z float32
}

// Color is a linear RGBA color with channels in [0, 1].
type Color struct {
	R, G, B, A float32
}

// Particle is one reusable cell of the falling grid.
// Slab and the X/Z coordinates are fixed when the pool is built; a particle is
// reset in place when recycled and never reallocated.
type Particle struct {
	Position Vec3
	Rotation Vec3
	Color    Color
	Visible  bool
	Value    float32 // normalized frame value assigned on refresh, drives fade-in target
	Slab     int
}
