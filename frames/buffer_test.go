package frames

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func fill(t *testing.T, b *Buffer, order ...int) {
	t.Helper()
	for _, i := range order {
		if err := b.Put(i, []float64{float64(i)}, Extent{0, 1}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
}

func TestBufferOutOfOrderInsert(t *testing.T) {
	b := NewBuffer(4)
	fill(t, b, 2, 0, 3)
	if b.Ready() {
		t.Fatal("buffer should not be ready with 3/4 frames")
	}
	fill(t, b, 1)
	if !b.Ready() {
		t.Fatal("buffer should be ready with 4/4 frames")
	}

	for want := 0; want < 4; want++ {
		f := b.Next()
		if f.Index != want || f.Values[0] != float64(want) {
			t.Errorf("expected frame %d, got index %d value %g", want, f.Index, f.Values[0])
		}
	}
}

func TestBufferCyclesRestartably(t *testing.T) {
	const n = 5
	b := NewBuffer(n)
	fill(t, b, 4, 3, 2, 1, 0)

	var first []int
	for i := 0; i < n; i++ {
		first = append(first, b.Next().Index)
	}

	for k := 1; k <= 3; k++ {
		var cycle []int
		for i := 0; i < n; i++ {
			if c := b.Cursor(); c < 0 || c >= n {
				t.Fatalf("cursor %d out of range", c)
			}
			cycle = append(cycle, b.Next().Index)
		}
		if diff := cmp.Diff(first, cycle); diff != "" {
			t.Errorf("cycle %d differs (-first +cycle):\n%s", k, diff)
		}
	}
	if b.Cursor() != 0 {
		t.Errorf("expected cursor 0 after whole cycles, got %d", b.Cursor())
	}
}

func TestBufferPutErrors(t *testing.T) {
	b := NewBuffer(2)

	if err := b.Put(2, nil, Extent{}); !errors.Is(err, ErrIndexRange) {
		t.Errorf("expected ErrIndexRange, got %v", err)
	}
	if err := b.Put(-1, nil, Extent{}); !errors.Is(err, ErrIndexRange) {
		t.Errorf("expected ErrIndexRange, got %v", err)
	}

	fill(t, b, 0)
	if err := b.Put(0, nil, Extent{}); !errors.Is(err, ErrDuplicateFrame) {
		t.Errorf("expected ErrDuplicateFrame, got %v", err)
	}

	fill(t, b, 1)
	if err := b.Put(1, nil, Extent{}); !errors.Is(err, ErrSealed) {
		t.Errorf("expected ErrSealed, got %v", err)
	}
}

func TestBufferNextBeforeReadyPanics(t *testing.T) {
	b := NewBuffer(2)
	fill(t, b, 1)

	defer func() {
		r := recover()
		var pe *PreconditionError
		err, ok := r.(error)
		if !ok || !errors.As(err, &pe) {
			t.Fatalf("expected *PreconditionError panic, got %v", r)
		}
		if pe.Loaded != 1 || pe.Want != 2 {
			t.Errorf("expected 1/2 loaded, got %d/%d", pe.Loaded, pe.Want)
		}
	}()
	b.Next()
}

func TestBufferConcurrentPut(t *testing.T) {
	const n = 64
	b := NewBuffer(n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := b.Put(i, []float64{float64(i)}, Extent{}); err != nil {
				t.Errorf("put %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	select {
	case <-b.Done():
	default:
		t.Fatal("done channel should be closed")
	}
	for i := 0; i < n; i++ {
		if got := b.Next().Index; got != i {
			t.Fatalf("expected frame %d, got %d", i, got)
		}
	}
}

func TestBufferLoadAndWait(t *testing.T) {
	b := NewBuffer(3)
	b.Load(context.Background(), Static([]float64{0, 1}, []float64{1, 2}, []float64{2, 3}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}

	f := b.Next()
	if f.Extent != (Extent{0, 1}) {
		t.Errorf("expected extent {0 1}, got %+v", f.Extent)
	}
}

func TestBufferIncompleteLoad(t *testing.T) {
	b := NewBuffer(3)
	b.Load(context.Background(), Static([]float64{0}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Wait(ctx); !errors.Is(err, ErrIncompleteLoad) {
		t.Fatalf("expected ErrIncompleteLoad, got %v", err)
	}
	if b.Ready() {
		t.Error("buffer should not be ready")
	}
}

func TestBufferSourceError(t *testing.T) {
	boom := errors.New("decode failed")
	b := NewBuffer(2)
	b.Load(context.Background(), SourceFunc(func(ctx context.Context, count int, onFrame FrameFunc) error {
		return boom
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Wait(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestBufferWaitCancelled(t *testing.T) {
	b := NewBuffer(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
