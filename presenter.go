package framebuf

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Presenter turns the World's frame into an on-screen image.
//
// The frame returned by Frame holds buffer-width x buffer-height pixels in
// the same packed, row-major layout as the World's buffer. World writes
// damaged regions into it and then calls Render.
//
// World serializes calls to a Presenter; implementations need no locking of
// their own unless they are shared with other goroutines.
type Presenter interface {
	// ResizeBuffer reallocates the frame. Content after a resize is undefined.
	ResizeBuffer(width, height int) error

	// ResizeSurface changes the presentation surface size. The presenter
	// scales the buffer to fit.
	ResizeSurface(width, height int) error

	// Frame returns the mutable frame. The slice is valid until the next
	// ResizeBuffer or Close.
	Frame() []uint32

	// Render presents the frame.
	Render() error

	// Close releases presenter resources. Close is idempotent.
	Close() error
}

// DamageObserver is implemented by presenters that can present partial
// updates. World calls FrameDamaged after each region is written into the
// frame and before Render.
type DamageObserver interface {
	FrameDamaged(r Rect)
}

// PresenterOptions are passed to presenter factories.
type PresenterOptions struct {
	// Handle identifies the target surface.
	Handle SurfaceHandle

	// SurfaceWidth and SurfaceHeight are the initial surface size.
	SurfaceWidth, SurfaceHeight int

	// BufferWidth and BufferHeight are the initial frame size.
	BufferWidth, BufferHeight int

	// Format is the packed pixel layout the World's writers use.
	// Zero means gputypes.TextureFormatBGRA8Unorm.
	Format gputypes.TextureFormat

	// DeviceProvider optionally shares a GPU device with the host.
	// Presenters that do not use a GPU ignore it.
	DeviceProvider gpucontext.DeviceProvider
}

// DefaultFormat is the pixel layout used when none is configured:
// 32-bit pixels with blue in the low byte.
var DefaultFormat = gputypes.TextureFormatBGRA8Unorm

func (o PresenterOptions) withDefaults() PresenterOptions {
	if o.Format == gputypes.TextureFormatUndefined {
		o.Format = DefaultFormat
	}
	if o.BufferWidth <= 0 {
		o.BufferWidth = 1
	}
	if o.BufferHeight <= 0 {
		o.BufferHeight = 1
	}
	return o
}

// PresenterFactory creates a Presenter with the given options.
// Implementations should validate options and return descriptive errors.
type PresenterFactory func(opts PresenterOptions) (Presenter, error)
