package frames

import "context"

// FrameFunc receives one decoded frame. Sources may call it concurrently and
// in any index order.
type FrameFunc func(index int, values []float64, extent Extent) error

// Source decodes count frames and pushes each one to onFrame.
// LoadFrames returns once every frame has been delivered, or on the first error.
type Source interface {
	LoadFrames(ctx context.Context, count int, onFrame FrameFunc) error
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, count int, onFrame FrameFunc) error

// LoadFrames calls f.
func (f SourceFunc) LoadFrames(ctx context.Context, count int, onFrame FrameFunc) error {
	return f(ctx, count, onFrame)
}

// Static returns a Source that delivers the given value slices in reverse
// index order, computing each extent with ExtentOf.
func Static(values ...[]float64) Source {
	return SourceFunc(func(ctx context.Context, count int, onFrame FrameFunc) error {
		if count > len(values) {
			count = len(values)
		}
		for i := count - 1; i >= 0; i-- {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := onFrame(i, values[i], ExtentOf(values[i])); err != nil {
				return err
			}
		}
		return nil
	})
}
