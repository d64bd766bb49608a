// Package camera provides an orbit camera for the 3-D view.
package camera

import "math"

// Camera orbits a fixed target. Yaw turns around the Y axis, pitch tilts
// towards it and Distance is the radius of the orbit.
type Camera struct {
	// Target is the point the camera looks at
	TargetX, TargetY, TargetZ float32

	Yaw      float32 // Radians around Y, 0 looks from +Z
	Pitch    float32 // Radians above the XZ plane
	Distance float32

	// Zoom constraints
	MinDistance, MaxDistance float32

	home pose
}

// pose is the orientation a camera was created with.
type pose struct {
	yaw, pitch, distance float32
}

// maxPitch keeps the camera off the poles, where the up vector degenerates.
const maxPitch = math.Pi/2 - 0.01

// New creates a camera at (x, y, z) looking at the origin.
func New(x, y, z float32) *Camera {
	d := float32(math.Sqrt(float64(x*x + y*y + z*z)))
	c := &Camera{
		Distance:    d,
		MinDistance: d / 4,
		MaxDistance: d * 4,
	}
	if d > 0 {
		c.Yaw = float32(math.Atan2(float64(x), float64(z)))
		c.Pitch = float32(math.Asin(float64(y / d)))
	}
	c.Pitch = clamp(c.Pitch, -maxPitch, maxPitch)
	c.home = pose{yaw: c.Yaw, pitch: c.Pitch, distance: c.Distance}
	return c
}

// Position returns the camera position in world coordinates.
func (c *Camera) Position() (x, y, z float32) {
	cp := float32(math.Cos(float64(c.Pitch)))
	x = c.TargetX + c.Distance*cp*float32(math.Sin(float64(c.Yaw)))
	y = c.TargetY + c.Distance*float32(math.Sin(float64(c.Pitch)))
	z = c.TargetZ + c.Distance*cp*float32(math.Cos(float64(c.Yaw)))
	return x, y, z
}

// Orbit turns the camera by the given yaw and pitch deltas in radians.
// Yaw wraps to [-pi, pi); pitch is clamped short of the poles.
func (c *Camera) Orbit(dyaw, dpitch float32) {
	c.Yaw = wrapAngle(c.Yaw + dyaw)
	c.Pitch = clamp(c.Pitch+dpitch, -maxPitch, maxPitch)
}

// ZoomBy divides the orbit distance by factor, clamped to min/max.
func (c *Camera) ZoomBy(factor float32) {
	if factor <= 0 {
		return
	}
	c.Distance = clamp(c.Distance/factor, c.MinDistance, c.MaxDistance)
}

// Reset returns the camera to the pose it was created with.
func (c *Camera) Reset() {
	c.Yaw = c.home.yaw
	c.Pitch = c.home.pitch
	c.Distance = c.home.distance
}

// wrapAngle wraps a to [-pi, pi).
func wrapAngle(a float32) float32 {
	return float32(math.Mod(math.Mod(float64(a)+math.Pi, 2*math.Pi)+2*math.Pi, 2*math.Pi) - math.Pi)
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
