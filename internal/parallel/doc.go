// Package parallel provides the concurrency helpers behind framebuf blits.
//
// Two pieces live here:
//
//   - WorkerPool splits large pixel copies into row bands and runs them on a
//     fixed set of goroutines.
//   - TileMask tracks which 64x64 tiles of a frame changed since the last
//     present, using an atomic bitmap so damage can be recorded from one
//     goroutine while a presenter consumes it on another.
package parallel

// Tile size constants. 64x64 tiles of 32-bit pixels are 16KB each,
// which keeps a tile copy within L1 on common hardware.
const (
	// TileWidth is the width of a tile in pixels.
	TileWidth = 64

	// TileHeight is the height of a tile in pixels.
	TileHeight = 64
)
