package frames

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Buffer is a fixed-capacity, looping store of frames.
//
// Frames are stored at their declared index as they arrive. Once every slot
// is filled the buffer seals itself, Done is closed, and Next cycles through
// the frames forever. Next is owned by a single caller (the render loop) and
// does no locking after the barrier.
type Buffer struct {
	mu     sync.Mutex
	frames []Frame
	filled []bool
	loaded int

	ready atomic.Bool
	done  chan struct{}

	loadErr  error
	failed   chan struct{}
	failOnce sync.Once

	cursor int
}

// NewBuffer creates a buffer for capacity frames. Capacity must be positive.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		panic(fmt.Sprintf("frames: buffer capacity must be positive, got %d", capacity))
	}
	return &Buffer{
		frames: make([]Frame, capacity),
		filled: make([]bool, capacity),
		done:   make(chan struct{}),
		failed: make(chan struct{}),
	}
}

// Put stores a frame at index. It matches FrameFunc and is safe to call from
// several goroutines.
func (b *Buffer) Put(index int, values []float64, extent Extent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ready.Load() {
		return ErrSealed
	}
	if index < 0 || index >= len(b.frames) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexRange, index, len(b.frames))
	}
	if b.filled[index] {
		return fmt.Errorf("%w: %d", ErrDuplicateFrame, index)
	}

	b.frames[index] = NewFrame(index, values, extent)
	b.filled[index] = true
	b.loaded++

	if b.loaded == len(b.frames) {
		b.ready.Store(true)
		close(b.done)
	}
	return nil
}

// Load runs src in the background to fill the buffer. Use Wait or Done to
// observe completion.
func (b *Buffer) Load(ctx context.Context, src Source) {
	go func() {
		err := src.LoadFrames(ctx, len(b.frames), b.Put)
		if err == nil && !b.Ready() {
			b.mu.Lock()
			loaded := b.loaded
			b.mu.Unlock()
			err = fmt.Errorf("%w: %d/%d frames", ErrIncompleteLoad, loaded, len(b.frames))
		}
		if err != nil {
			b.fail(err)
		}
	}()
}

func (b *Buffer) fail(err error) {
	b.failOnce.Do(func() {
		b.mu.Lock()
		b.loadErr = err
		b.mu.Unlock()
		close(b.failed)
	})
}

// Wait blocks until the buffer is ready, the load fails, or ctx is done.
func (b *Buffer) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return nil
	default:
	}

	select {
	case <-b.done:
		return nil
	case <-b.failed:
		b.mu.Lock()
		defer b.mu.Unlock()
		return fmt.Errorf("loading frames: %w", b.loadErr)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when every frame has been stored.
func (b *Buffer) Done() <-chan struct{} {
	return b.done
}

// Ready reports whether the load barrier has been reached.
func (b *Buffer) Ready() bool {
	return b.ready.Load()
}

// Loaded returns the number of frames stored so far.
func (b *Buffer) Loaded() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

// Len returns the buffer capacity.
func (b *Buffer) Len() int {
	return len(b.frames)
}

// Cursor returns the index of the frame the next call to Next returns.
func (b *Buffer) Cursor() int {
	return b.cursor
}

// Next returns the frame at the cursor and advances it, wrapping at capacity.
// It panics with *PreconditionError if the buffer is not ready.
func (b *Buffer) Next() Frame {
	if !b.ready.Load() {
		panic(&PreconditionError{Op: "Next", Loaded: b.Loaded(), Want: len(b.frames)})
	}
	f := b.frames[b.cursor]
	b.cursor = (b.cursor + 1) % len(b.frames)
	return f
}

// At returns the frame stored at index without moving the cursor.
// It panics with *PreconditionError if the buffer is not ready.
func (b *Buffer) At(index int) Frame {
	if !b.ready.Load() {
		panic(&PreconditionError{Op: "At", Loaded: b.Loaded(), Want: len(b.frames)})
	}
	return b.frames[index]
}
