package main

import "github.com/gogpu/framebuf"

const (
	background = 0xFF202030
	blockColor = 0xFFE0A020
)

// bouncer moves a square around the buffer, reflecting off the edges.
type bouncer struct {
	x, y   int
	dx, dy int
	size   int
}

func newBouncer(size int) *bouncer {
	return &bouncer{dx: 3, dy: 2, size: size}
}

func (b *bouncer) rect() framebuf.Rect {
	return framebuf.R(b.x, b.y, b.size, b.size)
}

// step advances the block within a width x height buffer.
func (b *bouncer) step(width, height int) {
	b.x += b.dx
	b.y += b.dy
	if b.x < 0 || b.x+b.size > width {
		b.dx = -b.dx
		b.x = clamp(b.x, 0, width-b.size)
	}
	if b.y < 0 || b.y+b.size > height {
		b.dy = -b.dy
		b.y = clamp(b.y, 0, height-b.size)
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// fillRect paints r clipped to the buffer.
func fillRect(pix []uint32, width, height int, r framebuf.Rect, c uint32) {
	r, ok := r.Clamp(width, height)
	if !ok {
		return
	}
	for y := r.Top; y < r.Bottom(); y++ {
		row := pix[y*width+r.Left : y*width+r.Right()]
		for i := range row {
			row[i] = c
		}
	}
}

// animate clears the buffer, then moves the block once per frame and
// declares only the area it touched.
func animate(w *framebuf.World, b *bouncer, frame int) error {
	if frame == 0 {
		var full framebuf.Rect
		err := w.WithPixels(func(pix []uint32, width, height int) {
			full = framebuf.R(0, 0, width, height)
			fillRect(pix, width, height, full, background)
			fillRect(pix, width, height, b.rect(), blockColor)
		})
		if err != nil {
			return err
		}
		return w.Damage(full)
	}

	old := b.rect()
	err := w.WithPixels(func(pix []uint32, width, height int) {
		fillRect(pix, width, height, old, background)
		b.step(width, height)
		fillRect(pix, width, height, b.rect(), blockColor)
	})
	if err != nil {
		return err
	}
	return w.Damage(old.Union(b.rect()))
}
