// Package framebuf provides a damage-tracked, double-buffered framebuffer.
//
// # Overview
//
// Producers draw into a logical pixel buffer, declare which rectangles
// changed, and a presenter copies only those rectangles into its frame
// before putting it on screen. Each declaration captures a private snapshot
// of the region, so producers may keep writing while earlier damage waits
// to be drawn.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/framebuf"
//	    _ "github.com/gogpu/framebuf/presenter/software"
//	)
//
//	w, err := framebuf.New(framebuf.Headless(), 640, 480)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	w.ResizeBuffer(320, 240)
//	w.WithPixels(func(pix []uint32, width, height int) {
//	    pix[10*width+10] = 0xFFFF0000
//	})
//	w.Damage(framebuf.R(10, 10, 1, 1))
//	w.Draw()
//
// # Pixels
//
// The buffer holds one packed 32-bit pixel per logical pixel, row-major
// with no padding. The default layout is BGRA8Unorm: blue in the low byte,
// alpha in the high byte (0xAARRGGBB when written as a literal).
//
// # Damage coalescing
//
// The queue keeps the union of every pending region. A region that covers
// the union replaces everything queued before it; any other region is
// appended. Draw replays the queue in declaration order.
//
// # Presenters
//
// Backends register themselves with RegisterPresenter, usually from an
// init function, and World picks one by name or by priority:
//
//	presenter/gpu       100  texture upload through wgpu HAL
//	presenter/term       20  half-block terminal rendering
//	presenter/software   10  in-memory image, scaled to the surface
//
// # Concurrency
//
// All World methods are safe for concurrent use. See World for the
// ordering guarantees between Damage, resizes and Draw.
package framebuf
