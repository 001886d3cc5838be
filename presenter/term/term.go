// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package term

import (
	"fmt"
	"os"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/gogpu/gputypes"
	xterm "golang.org/x/term"

	"github.com/gogpu/framebuf"
	"github.com/gogpu/framebuf/internal/parallel"
)

// Name is the registry name of the terminal presenter.
const Name = "term"

// Priority is the registry priority of the terminal presenter.
const Priority = framebuf.PriorityTerminal

// halfBlock fills the upper half of a cell: its foreground is the top
// pixel and its background the bottom one.
const halfBlock = '▀'

func init() {
	framebuf.RegisterPresenter(Name, Priority, func(opts framebuf.PresenterOptions) (framebuf.Presenter, error) {
		return New(opts, Config{})
	}, Available)
}

// Available reports whether standard output is a terminal.
func Available() bool {
	return xterm.IsTerminal(int(os.Stdout.Fd()))
}

// Config tunes a terminal Presenter.
type Config struct {
	// Screen to draw on. If nil, the presenter opens the terminal and
	// finalizes it on Close; a caller-provided screen is left open.
	Screen tcell.Screen
}

// Presenter draws frames onto a tcell screen with half-block cells, one
// cell per two vertically adjacent surface pixels. The surface width is
// in columns and the surface height in pixel rows, so a surface of
// cols x rows*2 fills a cols x rows terminal.
//
// The buffer is scaled to the surface by nearest neighbour. Only cells
// covering tiles reported through FrameDamaged are redrawn.
type Presenter struct {
	mu sync.Mutex

	screen    tcell.Screen
	ownScreen bool
	swapRB    bool

	width, height               int
	surfaceWidth, surfaceHeight int
	frame                       []uint32
	dirty                       *parallel.TileMask
	full                        bool

	cellsDrawn int
	closed     bool
}

// New creates a terminal presenter.
func New(opts framebuf.PresenterOptions, cfg Config) (*Presenter, error) {
	switch opts.Handle.Kind {
	case framebuf.HandleHeadless, framebuf.HandleTerminal:
	default:
		return nil, fmt.Errorf("term: cannot present to %s surface", opts.Handle.Kind)
	}

	p := &Presenter{screen: cfg.Screen}
	switch opts.Format {
	case gputypes.TextureFormatUndefined, gputypes.TextureFormatBGRA8Unorm:
	case gputypes.TextureFormatRGBA8Unorm:
		p.swapRB = true
	default:
		return nil, fmt.Errorf("term: unsupported pixel format %v", opts.Format)
	}

	if err := p.resizeSurface(opts.SurfaceWidth, opts.SurfaceHeight); err != nil {
		return nil, err
	}
	if err := p.resizeBuffer(max(opts.BufferWidth, 1), max(opts.BufferHeight, 1)); err != nil {
		return nil, err
	}

	if p.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return nil, fmt.Errorf("term: open screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			return nil, fmt.Errorf("term: init screen: %w", err)
		}
		p.screen = screen
		p.ownScreen = true
	}
	return p, nil
}

// ResizeBuffer reallocates the frame and schedules a full redraw.
func (p *Presenter) ResizeBuffer(width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return framebuf.ErrPresenterClosed
	}
	return p.resizeBuffer(width, height)
}

func (p *Presenter) resizeBuffer(width, height int) error {
	if err := framebuf.CheckSize("buffer", width, height); err != nil {
		return err
	}
	p.width, p.height = width, height
	p.frame = make([]uint32, width*height)
	p.dirty = parallel.NewTileMask(width, height)
	p.full = true
	return nil
}

// ResizeSurface changes the cell area drawn to and schedules a full redraw.
func (p *Presenter) ResizeSurface(width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return framebuf.ErrPresenterClosed
	}
	return p.resizeSurface(width, height)
}

func (p *Presenter) resizeSurface(width, height int) error {
	if err := framebuf.CheckSize("surface", width, height); err != nil {
		return err
	}
	p.surfaceWidth, p.surfaceHeight = width, height
	p.full = true
	return nil
}

// Frame returns the buffer-sized frame.
func (p *Presenter) Frame() []uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}

// FrameDamaged marks the tiles under r for redraw.
func (p *Presenter) FrameDamaged(r framebuf.Rect) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dirty != nil {
		p.dirty.MarkRect(r.Left, r.Top, r.Width, r.Height)
	}
}

// Render redraws dirty cells and shows the screen.
func (p *Presenter) Render() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return framebuf.ErrPresenterClosed
	}

	cols, rows := p.cellArea()
	if p.full {
		p.dirty.Take(func(int, int) {})
		p.drawCells(0, 0, cols, rows)
		p.full = false
	} else {
		p.dirty.Take(func(tx, ty int) {
			x0, y0 := tx*parallel.TileWidth, ty*parallel.TileHeight
			x1 := min(x0+parallel.TileWidth, p.width)
			y1 := min(y0+parallel.TileHeight, p.height)

			// Buffer tile to surface pixels, then to cells.
			sx0 := x0 * p.surfaceWidth / p.width
			sx1 := ceilDiv(x1*p.surfaceWidth, p.width)
			sy0 := y0 * p.surfaceHeight / p.height
			sy1 := ceilDiv(y1*p.surfaceHeight, p.height)
			p.drawCells(sx0, sy0/2, min(sx1, cols), min(ceilDiv(sy1, 2), rows))
		})
	}

	p.screen.Show()
	return nil
}

// cellArea returns the cells covered by the surface, clipped to the screen.
func (p *Presenter) cellArea() (cols, rows int) {
	cols, rows = p.surfaceWidth, ceilDiv(p.surfaceHeight, 2)
	if sw, sh := p.screen.Size(); sw > 0 && sh > 0 {
		cols, rows = min(cols, sw), min(rows, sh)
	}
	return cols, rows
}

// drawCells redraws cells [cx0,cx1) x [cy0,cy1).
func (p *Presenter) drawCells(cx0, cy0, cx1, cy1 int) {
	for cy := cy0; cy < cy1; cy++ {
		top := 2 * cy
		bottom := top + 1
		for cx := cx0; cx < cx1; cx++ {
			style := tcell.StyleDefault.Foreground(p.sample(cx, top))
			if bottom < p.surfaceHeight {
				style = style.Background(p.sample(cx, bottom))
			}
			p.screen.SetContent(cx, cy, halfBlock, nil, style)
			p.cellsDrawn++
		}
	}
}

// sample returns the colour of surface pixel (sx, sy).
func (p *Presenter) sample(sx, sy int) tcell.Color {
	bx := sx * p.width / p.surfaceWidth
	by := sy * p.height / p.surfaceHeight
	v := p.frame[by*p.width+bx]
	r, g, b := int32(v>>16&0xff), int32(v>>8&0xff), int32(v&0xff)
	if p.swapRB {
		r, b = b, r
	}
	return tcell.NewRGBColor(r, g, b)
}

// CellsDrawn returns the number of cells written since creation.
func (p *Presenter) CellsDrawn() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cellsDrawn
}

// Screen returns the screen drawn to.
func (p *Presenter) Screen() tcell.Screen {
	return p.screen
}

// Close finalizes the screen if the presenter opened it.
func (p *Presenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.frame = nil
	if p.ownScreen {
		p.screen.Fini()
	}
	return nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

var (
	_ framebuf.Presenter      = (*Presenter)(nil)
	_ framebuf.DamageObserver = (*Presenter)(nil)
)
