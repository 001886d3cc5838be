package parallel

import (
	"math/bits"
	"sync/atomic"
)

// TileMask records which tiles of a width x height pixel frame are dirty.
//
// One bit per tile, packed into atomic words, so Mark* may race with
// Take* without external locking. A mask for a different frame size is
// obtained by building a new one; TileMask never resizes in place.
type TileMask struct {
	words  []atomic.Uint64
	width  int
	height int
	tilesX int
	tilesY int
}

// NewTileMask creates a clean mask covering a width x height frame.
// Returns nil if either dimension is not positive.
func NewTileMask(width, height int) *TileMask {
	if width <= 0 || height <= 0 {
		return nil
	}
	tilesX := (width + TileWidth - 1) / TileWidth
	tilesY := (height + TileHeight - 1) / TileHeight
	return &TileMask{
		words:  make([]atomic.Uint64, (tilesX*tilesY+63)/64),
		width:  width,
		height: height,
		tilesX: tilesX,
		tilesY: tilesY,
	}
}

// Size returns the pixel extent the mask covers.
func (m *TileMask) Size() (width, height int) { return m.width, m.height }

// Tiles returns the tile grid dimensions.
func (m *TileMask) Tiles() (tilesX, tilesY int) { return m.tilesX, m.tilesY }

func (m *TileMask) mark(tx, ty int) {
	idx := ty*m.tilesX + tx
	m.words[idx>>6].Or(1 << (idx & 63))
}

// MarkRect marks every tile touched by the pixel rectangle as dirty.
// Parts of the rectangle outside the frame are ignored.
func (m *TileMask) MarkRect(x, y, w, h int) {
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, m.width), min(y+h, m.height)
	if x1 <= x0 || y1 <= y0 {
		return
	}
	for ty := y0 / TileHeight; ty <= (y1-1)/TileHeight; ty++ {
		for tx := x0 / TileWidth; tx <= (x1-1)/TileWidth; tx++ {
			m.mark(tx, ty)
		}
	}
}

// MarkAll marks the whole frame dirty.
func (m *TileMask) MarkAll() {
	total := m.tilesX * m.tilesY
	for i := range m.words {
		n := min(total-i*64, 64)
		if n == 64 {
			m.words[i].Store(^uint64(0))
		} else {
			m.words[i].Store(uint64(1)<<n - 1)
		}
	}
}

// IsDirty reports whether tile (tx, ty) is dirty. Out-of-range tiles are clean.
func (m *TileMask) IsDirty(tx, ty int) bool {
	if tx < 0 || tx >= m.tilesX || ty < 0 || ty >= m.tilesY {
		return false
	}
	idx := ty*m.tilesX + tx
	return m.words[idx>>6].Load()&(1<<(idx&63)) != 0
}

// Empty reports whether no tile is dirty.
func (m *TileMask) Empty() bool {
	for i := range m.words {
		if m.words[i].Load() != 0 {
			return false
		}
	}
	return true
}

// Count returns the number of dirty tiles.
func (m *TileMask) Count() int {
	n := 0
	for i := range m.words {
		n += bits.OnesCount64(m.words[i].Load())
	}
	return n
}

// Take clears the mask and calls fn for every tile that was dirty, in
// row-major order.
func (m *TileMask) Take(fn func(tx, ty int)) {
	for i := range m.words {
		word := m.words[i].Swap(0)
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			word &^= 1 << bit
			idx := i*64 + bit
			fn(idx%m.tilesX, idx/m.tilesX)
		}
	}
}

// TakeRows clears the mask and returns the pixel row bands [y0, y1) that
// contain at least one dirty tile. Adjacent tile rows are merged.
func (m *TileMask) TakeRows() [][2]int {
	dirtyRow := make([]bool, m.tilesY)
	m.Take(func(_, ty int) { dirtyRow[ty] = true })

	var bands [][2]int
	for ty := 0; ty < m.tilesY; ty++ {
		if !dirtyRow[ty] {
			continue
		}
		y0 := ty * TileHeight
		for ty+1 < m.tilesY && dirtyRow[ty+1] {
			ty++
		}
		y1 := min((ty+1)*TileHeight, m.height)
		bands = append(bands, [2]int{y0, y1})
	}
	return bands
}
