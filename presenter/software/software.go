// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/framebuf"
	"github.com/gogpu/framebuf/internal/parallel"
)

// Name is the registry name of the software presenter.
const Name = "software"

// Priority is the registry priority of the software presenter.
const Priority = framebuf.PrioritySoftware

func init() {
	framebuf.RegisterPresenter(Name, Priority, func(opts framebuf.PresenterOptions) (framebuf.Presenter, error) {
		return New(opts, Config{})
	}, nil)
}

// Config tunes a software Presenter.
type Config struct {
	// Interpolator scales the buffer to the surface.
	// Nil means xdraw.NearestNeighbor.
	Interpolator xdraw.Interpolator

	// MaxDimension limits buffer and surface sides. Zero means no limit.
	MaxDimension int

	// OnRender, if set, is called at the end of every Render with the
	// surface image. The image must not be retained past the call.
	OnRender func(img *image.RGBA)
}

// Presenter renders frames into an in-memory *image.RGBA sized like the
// surface. It is the portable fallback backend and the one used in tests
// and headless tools.
//
// The frame is converted to RGBA only where FrameDamaged reported changes,
// then scaled onto the surface image.
type Presenter struct {
	mu sync.Mutex

	format gputypes.TextureFormat
	cfg    Config

	width, height int
	frame         []uint32
	dirty         *parallel.TileMask

	// src mirrors the frame in RGBA; dst is the surface image.
	src *image.RGBA
	dst *image.RGBA

	renders int
	closed  bool
}

// New creates a software presenter.
func New(opts framebuf.PresenterOptions, cfg Config) (*Presenter, error) {
	switch opts.Format {
	case gputypes.TextureFormatUndefined:
		opts.Format = framebuf.DefaultFormat
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm:
	default:
		return nil, fmt.Errorf("software: unsupported pixel format %v", opts.Format)
	}
	if cfg.Interpolator == nil {
		cfg.Interpolator = xdraw.NearestNeighbor
	}

	p := &Presenter{format: opts.Format, cfg: cfg}
	if err := p.resizeBuffer(max(opts.BufferWidth, 1), max(opts.BufferHeight, 1)); err != nil {
		return nil, err
	}
	if err := p.resizeSurface(opts.SurfaceWidth, opts.SurfaceHeight); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Presenter) checkSize(what string, width, height int) error {
	if err := framebuf.CheckSize(what, width, height); err != nil {
		return err
	}
	if limit := p.cfg.MaxDimension; limit > 0 && (width > limit || height > limit) {
		return fmt.Errorf("%w: %s %dx%d, max %d", framebuf.ErrDimensionsExceedLimit, what, width, height, limit)
	}
	return nil
}

// ResizeBuffer reallocates the frame. The new frame is zeroed.
func (p *Presenter) ResizeBuffer(width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return framebuf.ErrPresenterClosed
	}
	return p.resizeBuffer(width, height)
}

func (p *Presenter) resizeBuffer(width, height int) error {
	if err := p.checkSize("buffer", width, height); err != nil {
		return err
	}
	p.width, p.height = width, height
	p.frame = make([]uint32, width*height)
	p.src = image.NewRGBA(image.Rect(0, 0, width, height))
	p.dirty = parallel.NewTileMask(width, height)
	p.dirty.MarkAll()
	return nil
}

// ResizeSurface reallocates the surface image.
func (p *Presenter) ResizeSurface(width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return framebuf.ErrPresenterClosed
	}
	return p.resizeSurface(width, height)
}

func (p *Presenter) resizeSurface(width, height int) error {
	if err := p.checkSize("surface", width, height); err != nil {
		return err
	}
	p.dst = image.NewRGBA(image.Rect(0, 0, width, height))
	p.dirty.MarkAll()
	return nil
}

// Frame returns the buffer-sized frame.
func (p *Presenter) Frame() []uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}

// FrameDamaged marks the tiles under r for conversion on the next Render.
func (p *Presenter) FrameDamaged(r framebuf.Rect) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dirty != nil {
		p.dirty.MarkRect(r.Left, r.Top, r.Width, r.Height)
	}
}

// Render converts dirty tiles to RGBA and scales the result onto the
// surface image.
func (p *Presenter) Render() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return framebuf.ErrPresenterClosed
	}

	if !p.dirty.Empty() {
		p.dirty.Take(func(tx, ty int) {
			x0, y0 := tx*parallel.TileWidth, ty*parallel.TileHeight
			x1 := min(x0+parallel.TileWidth, p.width)
			y1 := min(y0+parallel.TileHeight, p.height)
			p.convert(x0, y0, x1, y1)
		})
		if p.dst.Bounds() == p.src.Bounds() {
			copy(p.dst.Pix, p.src.Pix)
		} else {
			p.cfg.Interpolator.Scale(p.dst, p.dst.Bounds(), p.src, p.src.Bounds(), xdraw.Src, nil)
		}
	}

	p.renders++
	if p.cfg.OnRender != nil {
		p.cfg.OnRender(p.dst)
	}
	return nil
}

// convert unpacks frame pixels in [x0,x1) x [y0,y1) into src.
func (p *Presenter) convert(x0, y0, x1, y1 int) {
	swap := p.format == gputypes.TextureFormatBGRA8Unorm
	for y := y0; y < y1; y++ {
		row := p.frame[y*p.width+x0 : y*p.width+x1]
		out := p.src.Pix[p.src.PixOffset(x0, y):]
		for i, v := range row {
			c0, c1, c2, a := byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
			if swap {
				c0, c2 = c2, c0
			}
			o := out[i*4 : i*4+4 : i*4+4]
			o[0], o[1], o[2], o[3] = c0, c1, c2, a
		}
	}
}

// Snapshot returns a copy of the surface image as of the last Render.
func (p *Presenter) Snapshot() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dst == nil {
		return nil
	}
	img := image.NewRGBA(p.dst.Bounds())
	copy(img.Pix, p.dst.Pix)
	return img
}

// Renders returns the number of completed Render calls.
func (p *Presenter) Renders() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renders
}

// Close releases the images. Later calls return framebuf.ErrPresenterClosed.
func (p *Presenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.frame = nil
	p.src = nil
	return nil
}

// ParseInterpolator maps a scaling filter name to an interpolator:
// "nearest" (or ""), "approx-bilinear", "bilinear" or "catmull-rom".
func ParseInterpolator(name string) (xdraw.Interpolator, error) {
	switch strings.ToLower(name) {
	case "", "nearest":
		return xdraw.NearestNeighbor, nil
	case "approx-bilinear":
		return xdraw.ApproxBiLinear, nil
	case "bilinear":
		return xdraw.BiLinear, nil
	case "catmull-rom", "catmullrom":
		return xdraw.CatmullRom, nil
	default:
		return nil, fmt.Errorf("software: unknown interpolator %q", name)
	}
}

var (
	_ framebuf.Presenter      = (*Presenter)(nil)
	_ framebuf.DamageObserver = (*Presenter)(nil)
)
