package framebuf

import "github.com/gogpu/framebuf/internal/parallel"

// copyFunc copies a w x h block from src at (sx, sy) to dst at (dx, dy).
// Strides are in pixels.
type copyFunc func(dst []uint32, dstStride, dx, dy int, src []uint32, srcStride, sx, sy, w, h int)

func copyRect(dst []uint32, dstStride, dx, dy int, src []uint32, srcStride, sx, sy, w, h int) {
	copyRows(dst, dstStride, dx, dy, src, srcStride, sx, sy, w, 0, h)
}

func copyRows(dst []uint32, dstStride, dx, dy int, src []uint32, srcStride, sx, sy, w, y0, y1 int) {
	for y := y0; y < y1; y++ {
		d := (dy+y)*dstStride + dx
		s := (sy+y)*srcStride + sx
		copy(dst[d:d+w], src[s:s+w])
	}
}

// minBandRows keeps parallel bands tall enough that scheduling stays
// cheaper than the copy itself.
const minBandRows = parallel.TileHeight / 4

// parallelCopy returns a copyFunc that spreads blocks of at least
// threshold pixels across pool. A nil pool copies on the caller.
func parallelCopy(pool *parallel.WorkerPool, threshold int) copyFunc {
	if pool == nil {
		return copyRect
	}
	return func(dst []uint32, dstStride, dx, dy int, src []uint32, srcStride, sx, sy, w, h int) {
		if w*h < threshold {
			copyRows(dst, dstStride, dx, dy, src, srcStride, sx, sy, w, 0, h)
			return
		}
		pool.Rows(h, minBandRows, func(y0, y1 int) {
			copyRows(dst, dstStride, dx, dy, src, srcStride, sx, sy, w, y0, y1)
		})
	}
}
