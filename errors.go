package framebuf

import (
	"errors"
	"fmt"
)

// Errors returned by World operations.
var (
	// ErrInvalidDimensions is returned when a width or height is not positive.
	ErrInvalidDimensions = errors.New("framebuf: invalid dimensions")

	// ErrWorldClosed is returned when operations are attempted on a closed World.
	ErrWorldClosed = errors.New("framebuf: world is closed")

	// ErrNilPresenter is returned when a nil Presenter is injected or a
	// factory returns nil without an error.
	ErrNilPresenter = errors.New("framebuf: nil presenter")

	// ErrInvalidHandle is returned when a SurfaceHandle fails validation.
	ErrInvalidHandle = errors.New("framebuf: invalid surface handle")

	// ErrFrameSize is returned by Draw when the presenter's frame does not
	// hold exactly width*height pixels for the current buffer size.
	ErrFrameSize = errors.New("framebuf: presenter frame size mismatch")
)

// Errors presenters return to signal well-known failure modes.
var (
	// ErrSurfaceLost means the presentation surface went away. The host
	// decides whether to recreate the World.
	ErrSurfaceLost = errors.New("framebuf: surface lost")

	// ErrDimensionsExceedLimit means a presenter cannot allocate the
	// requested buffer or surface size.
	ErrDimensionsExceedLimit = errors.New("framebuf: dimensions exceed presenter limit")

	// ErrPresenterClosed is returned by presenters after Close.
	ErrPresenterClosed = errors.New("framebuf: presenter is closed")
)

// ResizeTarget names what a failed resize was applied to.
type ResizeTarget uint8

const (
	// ResizeTargetBuffer is the logical pixel buffer.
	ResizeTargetBuffer ResizeTarget = iota
	// ResizeTargetSurface is the presentation surface.
	ResizeTargetSurface
)

func (t ResizeTarget) String() string {
	switch t {
	case ResizeTargetBuffer:
		return "buffer"
	case ResizeTargetSurface:
		return "surface"
	default:
		return fmt.Sprintf("ResizeTarget(%d)", uint8(t))
	}
}

// ResizeError reports a presenter rejecting a pending resize during Draw.
// The pending resize stays recorded and is retried by the next Draw.
type ResizeError struct {
	Target        ResizeTarget
	Width, Height int
	Err           error
}

func (e *ResizeError) Error() string {
	return fmt.Sprintf("framebuf: resize %s to %dx%d: %v", e.Target, e.Width, e.Height, e.Err)
}

func (e *ResizeError) Unwrap() error { return e.Err }

// RenderError reports a presenter failing to present a frame.
// Draw does not retry; queued damage has already been applied to the frame.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("framebuf: render: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
