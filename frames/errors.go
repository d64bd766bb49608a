package frames

import (
	"errors"
	"fmt"
)

var (
	// ErrSealed is returned by Put once every frame has been stored.
	ErrSealed = errors.New("frames: buffer sealed")
	// ErrDuplicateFrame is returned when an index is delivered twice.
	ErrDuplicateFrame = errors.New("frames: duplicate frame index")
	// ErrIndexRange is returned for an index outside [0, capacity).
	ErrIndexRange = errors.New("frames: frame index out of range")
	// ErrIncompleteLoad is returned when a source finishes before filling the buffer.
	ErrIncompleteLoad = errors.New("frames: source finished before buffer was full")
)

// PreconditionError reports a call made before the load barrier was reached.
// It is used as a panic value: it signals a caller bug, not a runtime condition.
type PreconditionError struct {
	Op     string
	Loaded int
	Want   int
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("frames: %s called before buffer ready (%d/%d frames loaded)", e.Op, e.Loaded, e.Want)
}
