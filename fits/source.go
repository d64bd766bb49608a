package fits

import (
	"context"
	"fmt"

	"github.com/pthm-cable/fitsfall/frames"
)

// Source serves the planes of a cube as frames. Planes are decoded on a
// worker pool and delivered in completion order.
type Source struct {
	Cube    *Cube
	Workers int
}

// NewSource wraps c. Workers <= 0 uses GOMAXPROCS.
func NewSource(c *Cube, workers int) *Source {
	return &Source{Cube: c, Workers: workers}
}

// LoadFrames decodes the first count planes. Asking for more planes than the
// cube holds is an error.
func (s *Source) LoadFrames(ctx context.Context, count int, onFrame frames.FrameFunc) error {
	if count > s.Cube.Depth {
		return fmt.Errorf("fits: requested %d frames, cube has %d", count, s.Cube.Depth)
	}
	return frames.RunWorkers(ctx, count, s.Workers, func(i int) error {
		values, err := s.Cube.Frame(i)
		if err != nil {
			return err
		}
		return onFrame(i, values, frames.ExtentOf(values))
	})
}
