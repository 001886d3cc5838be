package framebuf

import "fmt"

// Rect is an axis-aligned rectangle in buffer pixel coordinates.
// The zero Rect is empty.
type Rect struct {
	Left, Top     int
	Width, Height int
}

// R is shorthand for Rect{left, top, width, height}.
func R(left, top, width, height int) Rect {
	return Rect{Left: left, Top: top, Width: width, Height: height}
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.Left + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Top + r.Height }

// Empty reports whether r covers no pixels.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Area returns the number of pixels covered by r, or 0 if r is empty.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Contains reports whether s lies entirely within r.
// Every rectangle contains the empty rectangle.
func (r Rect) Contains(s Rect) bool {
	if s.Empty() {
		return true
	}
	if r.Empty() {
		return false
	}
	return s.Left >= r.Left && s.Top >= r.Top &&
		s.Right() <= r.Right() && s.Bottom() <= r.Bottom()
}

// Union returns the smallest rectangle containing both r and s.
// An empty operand is ignored.
func (r Rect) Union(s Rect) Rect {
	if r.Empty() {
		return s
	}
	if s.Empty() {
		return r
	}
	left := min(r.Left, s.Left)
	top := min(r.Top, s.Top)
	right := max(r.Right(), s.Right())
	bottom := max(r.Bottom(), s.Bottom())
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// Intersect returns the overlap of r and s, or the zero Rect if they are disjoint.
func (r Rect) Intersect(s Rect) Rect {
	left := max(r.Left, s.Left)
	top := max(r.Top, s.Top)
	right := min(r.Right(), s.Right())
	bottom := min(r.Bottom(), s.Bottom())
	if right <= left || bottom <= top {
		return Rect{}
	}
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// Clamp limits r to the extent [0,width) x [0,height).
//
// The origin is clamped into the extent first and the size is then cut to
// what remains, so a rectangle starting left of or above the extent keeps
// its size rather than being shifted. The second result is false when the
// clamped rectangle has no area.
func (r Rect) Clamp(width, height int) (Rect, bool) {
	left := clampInt(r.Left, 0, width)
	top := clampInt(r.Top, 0, height)
	w := min(max(r.Width, 0), width-left)
	h := min(max(r.Height, 0), height-top)
	if w <= 0 || h <= 0 {
		return Rect{}, false
	}
	return Rect{Left: left, Top: top, Width: w, Height: h}, true
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.Left, r.Top, r.Width, r.Height)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
