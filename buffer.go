package framebuf

import "fmt"

// MaxPixels bounds width*height for any buffer or surface. A 1<<28 pixel
// store is 1 GiB of packed pixels.
const MaxPixels = 1 << 28

// CheckSize validates a width and height for allocation. It reports
// ErrInvalidDimensions for non-positive sides and for areas above
// MaxPixels, including products that would overflow int. what names the
// size in the error, e.g. "buffer".
func CheckSize(what string, width, height int) error {
	if width <= 0 || height <= 0 || width > MaxPixels/height {
		return fmt.Errorf("%w: %s %dx%d", ErrInvalidDimensions, what, width, height)
	}
	return nil
}

// Buffer is the logical pixel store a World presents.
//
// It holds one packed 32-bit pixel per logical pixel, row-major with no
// padding, and tracks the presentation surface size separately: the
// presenter scales the buffer to the surface. Both sizes carry a dirty flag
// that stays set until the change has been applied to the presenter.
//
// Buffer is not safe for concurrent use; World guards it with a mutex.
type Buffer struct {
	width, height               int
	surfaceWidth, surfaceHeight int
	bufferDirty, surfaceDirty   bool
	pixels                      []uint32
}

// NewBuffer returns a clean 1x1 buffer with a 1x1 surface.
func NewBuffer() *Buffer {
	return &Buffer{
		width:         1,
		height:        1,
		surfaceWidth:  1,
		surfaceHeight: 1,
		pixels:        make([]uint32, 1),
	}
}

// ResizeBuffer changes the buffer dimensions and marks them dirty.
// Resizing to the current size is a no-op and reports false.
//
// Pixel content after a resize is undefined; writers are expected to
// repopulate the store and declare damage.
func (b *Buffer) ResizeBuffer(width, height int) (bool, error) {
	if err := CheckSize("buffer", width, height); err != nil {
		return false, err
	}
	if b.width == width && b.height == height {
		return false, nil
	}

	b.width = width
	b.height = height
	b.bufferDirty = true

	n := width * height
	if cap(b.pixels) >= n {
		b.pixels = b.pixels[:n]
	} else {
		b.pixels = make([]uint32, n)
	}
	b.checkInvariant()
	return true, nil
}

// ResizeSurface changes the surface dimensions and marks them dirty.
// The pixel store is untouched. Resizing to the current size is a no-op
// and reports false.
func (b *Buffer) ResizeSurface(width, height int) (bool, error) {
	if err := CheckSize("surface", width, height); err != nil {
		return false, err
	}
	if b.surfaceWidth == width && b.surfaceHeight == height {
		return false, nil
	}

	b.surfaceWidth = width
	b.surfaceHeight = height
	b.surfaceDirty = true
	return true, nil
}

// Damage clamps r to the buffer and captures the covered pixels.
// The second result is false when nothing of r lies inside the buffer.
func (b *Buffer) Damage(r Rect) (Damage, bool) {
	return b.damage(r, copyRect)
}

func (b *Buffer) damage(r Rect, copyFn copyFunc) (Damage, bool) {
	region, ok := r.Clamp(b.width, b.height)
	if !ok {
		return Damage{}, false
	}
	snapshot := make([]uint32, region.Area())
	copyFn(snapshot, region.Width, 0, 0, b.pixels, b.width, region.Left, region.Top, region.Width, region.Height)
	return Damage{Region: region, Snapshot: snapshot}, true
}

// Pixels returns the live pixel store. Writes through the slice change the
// buffer directly; they become visible after the region is declared damaged
// and the World draws.
func (b *Buffer) Pixels() []uint32 {
	return b.pixels
}

// MarkClean clears both dirty flags.
func (b *Buffer) MarkClean() {
	b.bufferDirty = false
	b.surfaceDirty = false
}

// BufferSize returns the buffer dimensions.
func (b *Buffer) BufferSize() (width, height int) { return b.width, b.height }

// SurfaceSize returns the surface dimensions.
func (b *Buffer) SurfaceSize() (width, height int) { return b.surfaceWidth, b.surfaceHeight }

// BufferSizeDirty reports a buffer resize not yet applied to the presenter.
func (b *Buffer) BufferSizeDirty() bool { return b.bufferDirty }

// SurfaceSizeDirty reports a surface resize not yet applied to the presenter.
func (b *Buffer) SurfaceSizeDirty() bool { return b.surfaceDirty }

// Bounds returns the buffer extent as a rectangle at the origin.
func (b *Buffer) Bounds() Rect { return Rect{Width: b.width, Height: b.height} }

func (b *Buffer) checkInvariant() {
	if len(b.pixels) != b.width*b.height {
		panic(fmt.Sprintf("framebuf: buffer holds %d pixels for %dx%d", len(b.pixels), b.width, b.height))
	}
}
