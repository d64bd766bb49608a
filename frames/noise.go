package frames

import (
	"context"

	"github.com/ojrac/opensimplex-go"
)

// NoiseSource generates square frames from 3-D simplex noise, with time as
// the third axis. It stands in for a data file when none is given.
type NoiseSource struct {
	Side    int     // Frame edge length
	Scale   float64 // Spatial frequency
	Speed   float64 // Time step between frames
	Workers int     // Concurrent frame generators (0 = GOMAXPROCS)

	noise opensimplex.Noise
}

// NewNoiseSource creates a noise source seeded with seed.
func NewNoiseSource(seed int64, side int, scale, speed float64) *NoiseSource {
	return &NoiseSource{
		Side:  side,
		Scale: scale,
		Speed: speed,
		noise: opensimplex.NewNormalized(seed),
	}
}

// Frame generates frame i. Values lie in [0, 1].
func (s *NoiseSource) Frame(i int) []float64 {
	values := make([]float64, s.Side*s.Side)
	t := float64(i) * s.Speed
	for row := 0; row < s.Side; row++ {
		for col := 0; col < s.Side; col++ {
			values[row*s.Side+col] = s.noise.Eval3(float64(col)*s.Scale, float64(row)*s.Scale, t)
		}
	}
	return values
}

// LoadFrames generates count frames on a worker pool. Frames are delivered
// in completion order, not index order.
func (s *NoiseSource) LoadFrames(ctx context.Context, count int, onFrame FrameFunc) error {
	return RunWorkers(ctx, count, s.Workers, func(i int) error {
		values := s.Frame(i)
		return onFrame(i, values, ExtentOf(values))
	})
}
