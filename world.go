package framebuf

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gogpu/framebuf/internal/parallel"
)

// World pairs a Buffer and a DamageQueue with a Presenter.
//
// Writers fill the buffer through WithPixels and declare what changed with
// Damage. Each declaration captures a snapshot of the region and queues it.
// Draw applies pending resizes to the presenter, replays the queued
// snapshots into the presenter's frame and presents it, so only damaged
// areas are copied.
//
// World is safe for concurrent use. Buffer state and the damage queue are
// guarded by two independent locks and Draw never holds both at once, so a
// Damage that lands between Draw's resize step and its blit step may have
// been clamped against the pre-resize buffer. Draw re-clamps every entry
// against the current frame; such an entry is truncated or dropped rather
// than written out of bounds, and Stats counts it in DamagesDropped.
type World struct {
	handle    SurfaceHandle
	presenter Presenter
	observer  DamageObserver
	pool      *parallel.WorkerPool
	copyFn    copyFunc

	bufMu sync.Mutex
	buf   Buffer

	queueMu sync.Mutex
	queue   DamageQueue

	// drawMu serializes Draw and Close, the only callers of the presenter
	// outside construction.
	drawMu sync.Mutex
	closed atomic.Bool

	stats worldStats
}

type worldStats struct {
	draws            atomic.Uint64
	renders          atomic.Uint64
	renderFailures   atomic.Uint64
	resizeFailures   atomic.Uint64
	damagesQueued    atomic.Uint64
	damagesCoalesced atomic.Uint64
	damagesDiscarded atomic.Uint64
	damagesDropped   atomic.Uint64
}

// Stats is a snapshot of World counters.
type Stats struct {
	// Draws counts Draw calls that reached the presenter.
	Draws uint64
	// Renders counts successful presents.
	Renders uint64
	// RenderFailures counts Draw calls that failed in Render.
	RenderFailures uint64
	// ResizeFailures counts Draw calls that failed applying a resize.
	ResizeFailures uint64
	// DamagesQueued counts damage entries added to the queue.
	DamagesQueued uint64
	// DamagesCoalesced counts queued entries discarded because a later
	// region covered all of them.
	DamagesCoalesced uint64
	// DamagesDiscarded counts declarations with no area inside the buffer.
	DamagesDiscarded uint64
	// DamagesDropped counts queued entries that no longer fit the frame
	// when drawn.
	DamagesDropped uint64
	// Pending is the current queue length.
	Pending int
}

// New creates a World presenting to the surface identified by handle.
//
// The buffer starts at 1x1; call ResizeBuffer before writing. The presenter
// comes from WithPresenter, from the backend named by WithPresenterName, or
// from the highest-priority available registered backend. If no presenter
// can be created, New returns the error and no World.
func New(handle SurfaceHandle, surfaceWidth, surfaceHeight int, opts ...Option) (*World, error) {
	if err := CheckSize("surface", surfaceWidth, surfaceHeight); err != nil {
		return nil, err
	}
	if err := handle.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	presenter, err := o.newPresenter(handle, surfaceWidth, surfaceHeight)
	if err != nil {
		return nil, fmt.Errorf("framebuf: create presenter: %w", err)
	}

	w := &World{
		handle:    handle,
		presenter: presenter,
		buf: Buffer{
			width:         1,
			height:        1,
			surfaceWidth:  surfaceWidth,
			surfaceHeight: surfaceHeight,
			pixels:        make([]uint32, 1),
		},
	}
	if obs, ok := presenter.(DamageObserver); ok {
		w.observer = obs
	}

	workers := o.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > 1 {
		w.pool = parallel.NewWorkerPool(workers)
	}
	w.copyFn = parallelCopy(w.pool, o.threshold)

	Logger().Debug("framebuf: world created",
		"handle", handle, "surface_width", surfaceWidth, "surface_height", surfaceHeight,
		"workers", workers)
	return w, nil
}

func (o *options) newPresenter(handle SurfaceHandle, surfaceWidth, surfaceHeight int) (Presenter, error) {
	if o.presenter != nil {
		return o.presenter, nil
	}

	popts := PresenterOptions{
		Handle:         handle,
		SurfaceWidth:   surfaceWidth,
		SurfaceHeight:  surfaceHeight,
		BufferWidth:    1,
		BufferHeight:   1,
		Format:         o.format,
		DeviceProvider: o.provider,
	}
	if o.presenterName != "" {
		return o.registry.NewPresenterByName(o.presenterName, popts)
	}
	return o.registry.NewPresenter(popts)
}

// ResizeBuffer schedules a buffer resize, applied to the presenter by the
// next Draw. The pixel store is reallocated immediately and its content is
// undefined until rewritten.
func (w *World) ResizeBuffer(width, height int) error {
	if w.closed.Load() {
		return ErrWorldClosed
	}

	w.bufMu.Lock()
	defer w.bufMu.Unlock()

	changed, err := w.buf.ResizeBuffer(width, height)
	if changed {
		Logger().Debug("framebuf: record buffer resize", "width", width, "height", height)
	}
	return err
}

// ResizeSurface schedules a surface resize, applied by the next Draw.
func (w *World) ResizeSurface(width, height int) error {
	if w.closed.Load() {
		return ErrWorldClosed
	}

	w.bufMu.Lock()
	defer w.bufMu.Unlock()

	changed, err := w.buf.ResizeSurface(width, height)
	if changed {
		Logger().Debug("framebuf: record surface resize", "width", width, "height", height)
	}
	return err
}

// Damage declares r changed. The part of r inside the buffer is captured
// and queued for the next Draw; a region with no area inside the buffer is
// ignored.
//
// The buffer lock is held while the entry is queued so that snapshots of
// overlapping regions enter the queue in the order they were taken.
func (w *World) Damage(r Rect) error {
	if w.closed.Load() {
		return ErrWorldClosed
	}

	w.bufMu.Lock()
	defer w.bufMu.Unlock()

	d, ok := w.buf.damage(r, w.copyFn)
	if !ok {
		w.stats.damagesDiscarded.Add(1)
		Logger().Debug("framebuf: discard empty damage", "region", r)
		return nil
	}

	w.queueMu.Lock()
	discarded := w.queue.Push(d)
	w.queueMu.Unlock()

	w.stats.damagesQueued.Add(1)
	if discarded > 0 {
		w.stats.damagesCoalesced.Add(uint64(discarded))
	}
	Logger().Debug("framebuf: record damage", "region", d.Region, "coalesced", discarded)
	return nil
}

// WithPixels calls fn with the live pixel store and the buffer size while
// holding the buffer lock. fn may read and write pix freely but must not
// retain it: the slice is only valid until fn returns. Writes become
// visible once the changed region is passed to Damage and drawn.
func (w *World) WithPixels(fn func(pix []uint32, width, height int)) error {
	if w.closed.Load() {
		return ErrWorldClosed
	}

	w.bufMu.Lock()
	defer w.bufMu.Unlock()

	fn(w.buf.pixels, w.buf.width, w.buf.height)
	return nil
}

// CopyPixels returns a copy of the pixel store and its dimensions.
func (w *World) CopyPixels() (pix []uint32, width, height int, err error) {
	if w.closed.Load() {
		return nil, 0, 0, ErrWorldClosed
	}

	w.bufMu.Lock()
	defer w.bufMu.Unlock()

	pix = make([]uint32, len(w.buf.pixels))
	copy(pix, w.buf.pixels)
	return pix, w.buf.width, w.buf.height, nil
}

// BufferSize returns the current buffer dimensions.
func (w *World) BufferSize() (width, height int) {
	w.bufMu.Lock()
	defer w.bufMu.Unlock()
	return w.buf.BufferSize()
}

// SurfaceSize returns the current surface dimensions.
func (w *World) SurfaceSize() (width, height int) {
	w.bufMu.Lock()
	defer w.bufMu.Unlock()
	return w.buf.SurfaceSize()
}

// PendingDamage returns the queued regions in the order Draw will apply them.
func (w *World) PendingDamage() []Rect {
	w.queueMu.Lock()
	defer w.queueMu.Unlock()
	return w.queue.Regions()
}

// Draw presents all damage declared since the previous Draw.
//
// Pending resizes are applied first; if the presenter rejects one, Draw
// returns a *ResizeError, leaves the queue untouched, and the resize is
// retried by the next Draw. Queued snapshots are then written into the
// presenter's frame in declaration order and the frame is rendered. A
// failed render is returned as a *RenderError and not retried.
//
// With no pending resize and an empty queue, Draw only renders.
func (w *World) Draw() error {
	w.drawMu.Lock()
	defer w.drawMu.Unlock()

	if w.closed.Load() {
		return ErrWorldClosed
	}
	w.stats.draws.Add(1)

	width, height, err := w.applyResizes()
	if err != nil {
		w.stats.resizeFailures.Add(1)
		return err
	}

	frame := w.presenter.Frame()
	if len(frame) != width*height {
		return fmt.Errorf("%w: %d pixels for %dx%d", ErrFrameSize, len(frame), width, height)
	}

	w.flushDamage(frame, width, height)

	if err := w.presenter.Render(); err != nil {
		w.stats.renderFailures.Add(1)
		return &RenderError{Err: err}
	}
	w.stats.renders.Add(1)
	return nil
}

// applyResizes forwards pending size changes to the presenter under the
// buffer lock and returns the buffer size the frame must have.
func (w *World) applyResizes() (width, height int, err error) {
	w.bufMu.Lock()
	defer w.bufMu.Unlock()

	b := &w.buf
	if b.bufferDirty {
		if err := w.presenter.ResizeBuffer(b.width, b.height); err != nil {
			return 0, 0, &ResizeError{Target: ResizeTargetBuffer, Width: b.width, Height: b.height, Err: err}
		}
		Logger().Debug("framebuf: resize buffer", "width", b.width, "height", b.height)
	}
	if b.surfaceDirty {
		if err := w.presenter.ResizeSurface(b.surfaceWidth, b.surfaceHeight); err != nil {
			return 0, 0, &ResizeError{Target: ResizeTargetSurface, Width: b.surfaceWidth, Height: b.surfaceHeight, Err: err}
		}
		Logger().Debug("framebuf: resize surface", "width", b.surfaceWidth, "height", b.surfaceHeight)
	}
	b.MarkClean()
	return b.width, b.height, nil
}

// flushDamage drains the queue into frame under the queue lock.
func (w *World) flushDamage(frame []uint32, width, height int) {
	w.queueMu.Lock()
	defer w.queueMu.Unlock()

	w.queue.Drain(func(d Damage) {
		r, ok := d.Region.Clamp(width, height)
		if !ok {
			w.stats.damagesDropped.Add(1)
			Logger().Debug("framebuf: drop damage outside frame", "region", d.Region,
				"frame_width", width, "frame_height", height)
			return
		}
		if r != d.Region {
			w.stats.damagesDropped.Add(1)
			Logger().Debug("framebuf: truncate damage to frame", "region", d.Region, "drawn", r)
		}

		w.copyFn(frame, width, r.Left, r.Top,
			d.Snapshot, d.Region.Width, r.Left-d.Region.Left, r.Top-d.Region.Top,
			r.Width, r.Height)

		if w.observer != nil {
			w.observer.FrameDamaged(r)
		}
	})
}

// Stats returns a snapshot of the World's counters.
func (w *World) Stats() Stats {
	w.queueMu.Lock()
	pending := w.queue.Len()
	w.queueMu.Unlock()

	return Stats{
		Draws:            w.stats.draws.Load(),
		Renders:          w.stats.renders.Load(),
		RenderFailures:   w.stats.renderFailures.Load(),
		ResizeFailures:   w.stats.resizeFailures.Load(),
		DamagesQueued:    w.stats.damagesQueued.Load(),
		DamagesCoalesced: w.stats.damagesCoalesced.Load(),
		DamagesDiscarded: w.stats.damagesDiscarded.Load(),
		DamagesDropped:   w.stats.damagesDropped.Load(),
		Pending:          pending,
	}
}

// Handle returns the surface handle the World was created with.
func (w *World) Handle() SurfaceHandle {
	return w.handle
}

// Presenter returns the World's presenter, or nil after Close.
func (w *World) Presenter() Presenter {
	if w.closed.Load() {
		return nil
	}
	return w.presenter
}

// Close releases the presenter, the queued damage and the copy workers.
// After Close every operation returns ErrWorldClosed.
// Close is idempotent.
func (w *World) Close() error {
	w.drawMu.Lock()
	defer w.drawMu.Unlock()

	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}

	w.queueMu.Lock()
	w.queue.Drain(func(Damage) {})
	w.queueMu.Unlock()

	if w.pool != nil {
		w.pool.Close()
	}

	err := w.presenter.Close()
	Logger().Debug("framebuf: world closed", "error", err)
	return err
}
