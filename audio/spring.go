package audio

import "github.com/charmbracelet/harmonica"

// Spring smooths another modulator with a damped spring, one step per Sample.
type Spring struct {
	src    Modulator
	spring harmonica.Spring
	pos    float64
	vel    float64
}

// NewSpring wraps src. frequency is the angular frequency, damping the
// damping ratio (1 is critically damped).
func NewSpring(src Modulator, fps int, frequency, damping float64) *Spring {
	return &Spring{
		src:    src,
		spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping),
	}
}

// Sample reads src once and moves the spring toward it. Negative overshoot
// is clamped to 0.
func (s *Spring) Sample() float64 {
	target := s.src.Sample()
	s.pos, s.vel = s.spring.Update(s.pos, s.vel, target)
	if s.pos < 0 {
		return 0
	}
	return s.pos
}
