package framebuf

import (
	"errors"
	"math/rand"
	"reflect"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
)

// mockPresenter implements Presenter and DamageObserver for testing.
type mockPresenter struct {
	width, height               int
	surfaceWidth, surfaceHeight int
	frame                       []uint32

	resizeBufferCalls  int
	resizeSurfaceCalls int
	renders            int
	closes             int
	damaged            []Rect

	failResizeBuffer  error
	failResizeSurface error
	failRender        error
	badFrame          bool
}

func newMockPresenter() *mockPresenter {
	return &mockPresenter{width: 1, height: 1, surfaceWidth: 1, surfaceHeight: 1, frame: make([]uint32, 1)}
}

func (m *mockPresenter) ResizeBuffer(width, height int) error {
	m.resizeBufferCalls++
	if m.failResizeBuffer != nil {
		return m.failResizeBuffer
	}
	m.width, m.height = width, height
	m.frame = make([]uint32, width*height)
	return nil
}

func (m *mockPresenter) ResizeSurface(width, height int) error {
	m.resizeSurfaceCalls++
	if m.failResizeSurface != nil {
		return m.failResizeSurface
	}
	m.surfaceWidth, m.surfaceHeight = width, height
	return nil
}

func (m *mockPresenter) Frame() []uint32 {
	if m.badFrame {
		return m.frame[:len(m.frame)-1]
	}
	return m.frame
}

func (m *mockPresenter) Render() error {
	m.renders++
	return m.failRender
}

func (m *mockPresenter) Close() error {
	m.closes++
	return nil
}

func (m *mockPresenter) FrameDamaged(r Rect) {
	m.damaged = append(m.damaged, r)
}

func (m *mockPresenter) at(x, y int) uint32 {
	return m.frame[y*m.width+x]
}

// newTestWorld creates a headless World backed by a mock presenter.
func newTestWorld(t *testing.T, opts ...Option) *World {
	t.Helper()
	w, _ := newTestWorldWithPresenter(t, opts...)
	return w
}

func newTestWorldWithPresenter(t *testing.T, opts ...Option) (*World, *mockPresenter) {
	t.Helper()
	p := newMockPresenter()
	w, err := New(Headless(), 100, 100, append([]Option{WithPresenter(p), WithWorkers(1)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w, p
}

func fill(t *testing.T, w *World, r Rect, value uint32) {
	t.Helper()
	err := w.WithPixels(func(pix []uint32, width, _ int) {
		for y := r.Top; y < r.Bottom(); y++ {
			for x := r.Left; x < r.Right(); x++ {
				pix[y*width+x] = value
			}
		}
	})
	if err != nil {
		t.Fatalf("WithPixels() = %v", err)
	}
}

func mustDraw(t *testing.T, w *World) {
	t.Helper()
	if err := w.Draw(); err != nil {
		t.Fatalf("Draw() = %v", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		handle  SurfaceHandle
		width   int
		height  int
		opts    []Option
		wantErr error
	}{
		{"valid", Headless(), 640, 480, []Option{WithPresenter(newMockPresenter())}, nil},
		{"zero width", Headless(), 0, 480, []Option{WithPresenter(newMockPresenter())}, ErrInvalidDimensions},
		{"negative height", Headless(), 640, -1, []Option{WithPresenter(newMockPresenter())}, ErrInvalidDimensions},
		{"oversize surface", Headless(), 1 << 32, 1 << 32, []Option{WithPresenter(newMockPresenter())}, ErrInvalidDimensions},
		{"bad handle", SurfaceHandle{Kind: HandleWayland}, 640, 480, []Option{WithPresenter(newMockPresenter())}, ErrInvalidHandle},
		{"empty registry", Headless(), 640, 480, []Option{WithRegistry(NewRegistry())}, ErrNoPresenterAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := New(tt.handle, tt.width, tt.height, tt.opts...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("New() error = %v, want %v", err, tt.wantErr)
				}
				if w != nil {
					t.Error("New() returned a World together with an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() unexpected error = %v", err)
			}
			defer w.Close()

			if bw, bh := w.BufferSize(); bw != 1 || bh != 1 {
				t.Errorf("BufferSize() = %dx%d, want 1x1", bw, bh)
			}
			if sw, sh := w.SurfaceSize(); sw != tt.width || sh != tt.height {
				t.Errorf("SurfaceSize() = %dx%d, want %dx%d", sw, sh, tt.width, tt.height)
			}
			if w.Handle() != tt.handle {
				t.Errorf("Handle() = %v, want %v", w.Handle(), tt.handle)
			}
		})
	}
}

func TestNewFromRegistry(t *testing.T) {
	reg := NewRegistry()
	var got PresenterOptions
	reg.Register("mock", 10, func(opts PresenterOptions) (Presenter, error) {
		got = opts
		return newMockPresenter(), nil
	}, nil)

	handle := SurfaceHandle{Kind: HandleXlib, Window: 0x42, Display: 0x7}
	w, err := New(handle, 320, 200, WithRegistry(reg), WithPresenterName("mock"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if got.Handle != handle {
		t.Errorf("factory handle = %v, want %v", got.Handle, handle)
	}
	if got.SurfaceWidth != 320 || got.SurfaceHeight != 200 {
		t.Errorf("factory surface = %dx%d, want 320x200", got.SurfaceWidth, got.SurfaceHeight)
	}
	if got.BufferWidth != 1 || got.BufferHeight != 1 {
		t.Errorf("factory buffer = %dx%d, want 1x1", got.BufferWidth, got.BufferHeight)
	}
	if got.Format != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("factory format = %v, want BGRA8Unorm", got.Format)
	}
}

func TestNewPresenterFailure(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("no adapter")
	reg.Register("broken", 10, func(PresenterOptions) (Presenter, error) { return nil, boom }, nil)

	w, err := New(Headless(), 10, 10, WithRegistry(reg))
	if !errors.Is(err, boom) {
		t.Errorf("New() error = %v, want wrapped %v", err, boom)
	}
	if w != nil {
		t.Error("New() must not return a partial World")
	}
}

// A 4x4 buffer with a white 2x2 block in the middle.
func TestDrawScenarioWhiteBlock(t *testing.T) {
	w, p := newTestWorldWithPresenter(t)
	if err := w.ResizeBuffer(4, 4); err != nil {
		t.Fatal(err)
	}

	fill(t, w, R(1, 1, 2, 2), 0xFFFFFFFF)
	if err := w.Damage(R(1, 1, 2, 2)); err != nil {
		t.Fatal(err)
	}

	if got := w.PendingDamage(); !reflect.DeepEqual(got, []Rect{R(1, 1, 2, 2)}) {
		t.Fatalf("PendingDamage() = %v, want [(1,1 2x2)]", got)
	}
	w.queueMu.Lock()
	snapshot := w.queue.entries[0].Snapshot
	w.queueMu.Unlock()
	if !equalPixels(snapshot, []uint32{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF}) {
		t.Errorf("snapshot = %x", snapshot)
	}

	mustDraw(t, w)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := uint32(0)
			if x >= 1 && x <= 2 && y >= 1 && y <= 2 {
				want = 0xFFFFFFFF
			}
			if got := p.at(x, y); got != want {
				t.Errorf("frame(%d,%d) = %#x, want %#x", x, y, got, want)
			}
		}
	}
	if n := len(w.PendingDamage()); n != 0 {
		t.Errorf("queue length after Draw = %d, want 0", n)
	}
	if p.renders != 1 {
		t.Errorf("renders = %d, want 1", p.renders)
	}
}

func TestDrawRoundTrip(t *testing.T) {
	w, p := newTestWorldWithPresenter(t)
	if err := w.ResizeBuffer(37, 23); err != nil {
		t.Fatal(err)
	}
	mustDraw(t, w)

	rng := rand.New(rand.NewSource(1))
	region := R(5, 3, 17, 11)
	written := make(map[[2]int]uint32)
	err := w.WithPixels(func(pix []uint32, width, _ int) {
		for y := region.Top; y < region.Bottom(); y++ {
			for x := region.Left; x < region.Right(); x++ {
				v := rng.Uint32()
				pix[y*width+x] = v
				written[[2]int{x, y}] = v
			}
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Damage(region); err != nil {
		t.Fatal(err)
	}
	mustDraw(t, w)

	for xy, want := range written {
		if got := p.at(xy[0], xy[1]); got != want {
			t.Fatalf("frame(%d,%d) = %#x, want %#x", xy[0], xy[1], got, want)
		}
	}
	if p.at(0, 0) != 0 || p.at(36, 22) != 0 {
		t.Error("pixels outside the damaged region must not be written")
	}
}

func TestDrawOnlyCopiesDamagedPixels(t *testing.T) {
	w, p := newTestWorldWithPresenter(t)
	if err := w.ResizeBuffer(8, 8); err != nil {
		t.Fatal(err)
	}
	mustDraw(t, w)

	// Written but never declared: must stay invisible.
	fill(t, w, R(0, 0, 8, 8), 0x11111111)
	fill(t, w, R(2, 2, 1, 1), 0x22222222)
	if err := w.Damage(R(2, 2, 1, 1)); err != nil {
		t.Fatal(err)
	}
	mustDraw(t, w)

	if p.at(2, 2) != 0x22222222 {
		t.Errorf("damaged pixel = %#x", p.at(2, 2))
	}
	if p.at(0, 0) != 0 {
		t.Errorf("undeclared pixel = %#x, want 0", p.at(0, 0))
	}
}

func TestDrawIdempotent(t *testing.T) {
	w, p := newTestWorldWithPresenter(t)
	if err := w.ResizeBuffer(4, 4); err != nil {
		t.Fatal(err)
	}
	fill(t, w, R(0, 0, 4, 4), 7)
	if err := w.Damage(R(0, 0, 4, 4)); err != nil {
		t.Fatal(err)
	}
	mustDraw(t, w)

	frame := append([]uint32(nil), p.frame...)
	resizes := p.resizeBufferCalls + p.resizeSurfaceCalls
	damaged := len(p.damaged)

	mustDraw(t, w)
	mustDraw(t, w)

	if !equalPixels(frame, p.frame) {
		t.Error("frame changed on a draw with nothing pending")
	}
	if got := p.resizeBufferCalls + p.resizeSurfaceCalls; got != resizes {
		t.Errorf("resize calls = %d, want %d", got, resizes)
	}
	if len(p.damaged) != damaged {
		t.Error("no regions should be reported on an idle draw")
	}
	if p.renders != 3 {
		t.Errorf("renders = %d, want 3", p.renders)
	}
}

func TestDrawAppliesResizesLazily(t *testing.T) {
	w, p := newTestWorldWithPresenter(t)

	if err := w.ResizeBuffer(16, 9); err != nil {
		t.Fatal(err)
	}
	if err := w.ResizeSurface(1920, 1080); err != nil {
		t.Fatal(err)
	}
	if p.resizeBufferCalls != 0 || p.resizeSurfaceCalls != 0 {
		t.Fatal("presenter resized before Draw")
	}

	mustDraw(t, w)

	if p.width != 16 || p.height != 9 {
		t.Errorf("presenter buffer = %dx%d, want 16x9", p.width, p.height)
	}
	if p.surfaceWidth != 1920 || p.surfaceHeight != 1080 {
		t.Errorf("presenter surface = %dx%d, want 1920x1080", p.surfaceWidth, p.surfaceHeight)
	}
	w.bufMu.Lock()
	dirty := w.buf.BufferSizeDirty() || w.buf.SurfaceSizeDirty()
	w.bufMu.Unlock()
	if dirty {
		t.Error("dirty flags should be clear after a successful Draw")
	}

	// Identical resizes do not reach the presenter again.
	if err := w.ResizeBuffer(16, 9); err != nil {
		t.Fatal(err)
	}
	mustDraw(t, w)
	if p.resizeBufferCalls != 1 || p.resizeSurfaceCalls != 1 {
		t.Errorf("resize calls = %d/%d, want 1/1", p.resizeBufferCalls, p.resizeSurfaceCalls)
	}
}

func TestDrawResizeFailureRetries(t *testing.T) {
	tests := []struct {
		name   string
		target ResizeTarget
		setup  func(*World) error
		fail   func(*mockPresenter, error)
	}{
		{
			name:   "buffer",
			target: ResizeTargetBuffer,
			setup:  func(w *World) error { return w.ResizeBuffer(4, 4) },
			fail:   func(p *mockPresenter, err error) { p.failResizeBuffer = err },
		},
		{
			name:   "surface",
			target: ResizeTargetSurface,
			setup:  func(w *World) error { return w.ResizeSurface(1<<20, 10) },
			fail:   func(p *mockPresenter, err error) { p.failResizeSurface = err },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, p := newTestWorldWithPresenter(t)
			if err := tt.setup(w); err != nil {
				t.Fatal(err)
			}
			if err := w.Damage(R(0, 0, 1, 1)); err != nil {
				t.Fatal(err)
			}
			tt.fail(p, ErrDimensionsExceedLimit)

			err := w.Draw()
			var rerr *ResizeError
			if !errors.As(err, &rerr) {
				t.Fatalf("Draw() error = %v, want *ResizeError", err)
			}
			if rerr.Target != tt.target {
				t.Errorf("Target = %v, want %v", rerr.Target, tt.target)
			}
			if !errors.Is(err, ErrDimensionsExceedLimit) {
				t.Error("ResizeError should unwrap to the presenter error")
			}
			if p.renders != 0 {
				t.Error("Render must not run after a resize failure")
			}
			if len(w.PendingDamage()) != 1 {
				t.Error("queued damage must survive a resize failure")
			}
			if w.Stats().ResizeFailures != 1 {
				t.Errorf("ResizeFailures = %d, want 1", w.Stats().ResizeFailures)
			}

			tt.fail(p, nil)
			mustDraw(t, w)
			if p.renders != 1 {
				t.Errorf("renders = %d after retry, want 1", p.renders)
			}
			if len(w.PendingDamage()) != 0 {
				t.Error("queue should drain once the resize succeeds")
			}
		})
	}
}

func TestDrawRenderFailure(t *testing.T) {
	w, p := newTestWorldWithPresenter(t)
	if err := w.ResizeBuffer(2, 2); err != nil {
		t.Fatal(err)
	}
	fill(t, w, R(0, 0, 2, 2), 9)
	if err := w.Damage(R(0, 0, 2, 2)); err != nil {
		t.Fatal(err)
	}
	p.failRender = ErrSurfaceLost

	err := w.Draw()
	var rerr *RenderError
	if !errors.As(err, &rerr) || !errors.Is(err, ErrSurfaceLost) {
		t.Fatalf("Draw() error = %v, want *RenderError wrapping ErrSurfaceLost", err)
	}
	if p.renders != 1 {
		t.Errorf("renders = %d, want exactly 1 (no retry)", p.renders)
	}
	if p.at(1, 1) != 9 {
		t.Error("damage should be applied to the frame before Render")
	}
	if len(w.PendingDamage()) != 0 {
		t.Error("queue is consumed even when Render fails")
	}
	if w.Stats().RenderFailures != 1 {
		t.Errorf("RenderFailures = %d, want 1", w.Stats().RenderFailures)
	}
}

func TestDrawFrameSizeMismatch(t *testing.T) {
	w, p := newTestWorldWithPresenter(t)
	if err := w.ResizeBuffer(3, 3); err != nil {
		t.Fatal(err)
	}
	if err := w.Damage(R(0, 0, 3, 3)); err != nil {
		t.Fatal(err)
	}
	p.badFrame = true

	if err := w.Draw(); !errors.Is(err, ErrFrameSize) {
		t.Fatalf("Draw() error = %v, want ErrFrameSize", err)
	}
	if len(w.PendingDamage()) != 1 {
		t.Error("queue must be kept when the frame is unusable")
	}
}

// A resize between declaring damage and drawing it: the entry is re-clamped
// against the new frame, truncated or dropped, never written out of bounds.
func TestDrawReclampsAfterResize(t *testing.T) {
	w, p := newTestWorldWithPresenter(t)
	if err := w.ResizeBuffer(4, 4); err != nil {
		t.Fatal(err)
	}
	mustDraw(t, w)

	fill(t, w, R(0, 0, 4, 4), 0xAB)
	if err := w.Damage(R(2, 2, 2, 2)); err != nil {
		t.Fatal(err)
	}
	if err := w.Damage(R(0, 3, 1, 1)); err != nil {
		t.Fatal(err)
	}
	if err := w.ResizeBuffer(3, 3); err != nil {
		t.Fatal(err)
	}
	mustDraw(t, w)

	if p.width != 3 || p.height != 3 {
		t.Fatalf("presenter buffer = %dx%d, want 3x3", p.width, p.height)
	}
	if p.at(2, 2) != 0xAB {
		t.Errorf("truncated damage not drawn: frame(2,2) = %#x", p.at(2, 2))
	}
	if want := []Rect{R(2, 2, 1, 1)}; !reflect.DeepEqual(p.damaged, want) {
		t.Errorf("reported regions = %v, want %v", p.damaged, want)
	}
	if got := w.Stats().DamagesDropped; got != 2 {
		t.Errorf("DamagesDropped = %d, want 2 (one truncated, one dropped)", got)
	}
}

func TestWorldCoalescing(t *testing.T) {
	t.Run("later contains earlier", func(t *testing.T) {
		w := newTestWorld(t)
		_ = w.ResizeBuffer(4, 4)
		_ = w.Damage(R(1, 1, 1, 1))
		_ = w.Damage(R(0, 0, 4, 4))
		if got := w.PendingDamage(); !reflect.DeepEqual(got, []Rect{R(0, 0, 4, 4)}) {
			t.Errorf("PendingDamage() = %v, want [(0,0 4x4)]", got)
		}
		if s := w.Stats(); s.DamagesCoalesced != 1 || s.DamagesQueued != 2 || s.Pending != 1 {
			t.Errorf("Stats() = %+v", s)
		}
	})

	t.Run("disjoint", func(t *testing.T) {
		w := newTestWorld(t)
		_ = w.ResizeBuffer(4, 4)
		_ = w.Damage(R(0, 0, 1, 1))
		_ = w.Damage(R(3, 3, 1, 1))
		want := []Rect{R(0, 0, 1, 1), R(3, 3, 1, 1)}
		if got := w.PendingDamage(); !reflect.DeepEqual(got, want) {
			t.Errorf("PendingDamage() = %v, want %v", got, want)
		}
	})

	// Containment is decided on the clamped region: (-1,-1 3x3) clamps to
	// (0,0 3x3), which covers (2,2 1x1) although the raw rectangle does not.
	t.Run("containment after clamping", func(t *testing.T) {
		w := newTestWorld(t)
		_ = w.ResizeBuffer(4, 4)
		_ = w.Damage(R(2, 2, 1, 1))
		_ = w.Damage(R(-1, -1, 3, 3))
		if got := w.PendingDamage(); !reflect.DeepEqual(got, []Rect{R(0, 0, 3, 3)}) {
			t.Errorf("PendingDamage() = %v, want [(0,0 3x3)]", got)
		}
	})

	t.Run("oversized damage clamps and replaces", func(t *testing.T) {
		w := newTestWorld(t)
		_ = w.ResizeBuffer(4, 4)
		_ = w.Damage(R(1, 1, 2, 2))
		_ = w.Damage(R(0, 0, 1000, 1000))
		if got := w.PendingDamage(); !reflect.DeepEqual(got, []Rect{R(0, 0, 4, 4)}) {
			t.Errorf("PendingDamage() = %v, want [(0,0 4x4)]", got)
		}
	})
}

func TestWorldRejectsOversizeResize(t *testing.T) {
	w, p := newTestWorldWithPresenter(t)
	if err := w.ResizeBuffer(4, 4); err != nil {
		t.Fatal(err)
	}
	mustDraw(t, w)

	if err := w.ResizeBuffer(1<<32, 1<<32); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("ResizeBuffer(1<<32, 1<<32) = %v, want ErrInvalidDimensions", err)
	}
	if err := w.ResizeSurface(1<<20, 1<<20); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("ResizeSurface(1<<20, 1<<20) = %v, want ErrInvalidDimensions", err)
	}

	fill(t, w, R(0, 0, 2, 2), 0xFFFFFFFF)
	if err := w.Damage(R(0, 0, 2, 2)); err != nil {
		t.Fatalf("Damage() = %v", err)
	}
	mustDraw(t, w)
	if got := p.frame[0]; got != 0xFFFFFFFF {
		t.Errorf("frame[0] = %#x, want 0xffffffff", got)
	}
}

func TestWorldDegenerateDamage(t *testing.T) {
	w := newTestWorld(t)
	_ = w.ResizeBuffer(4, 4)

	for _, r := range []Rect{R(4, 0, 1, 1), R(0, 10, 2, 2), R(1, 1, 0, 3), R(2, 2, -1, 3)} {
		if err := w.Damage(r); err != nil {
			t.Errorf("Damage(%v) = %v, want nil", r, err)
		}
	}
	if n := len(w.PendingDamage()); n != 0 {
		t.Errorf("queue length = %d, want 0", n)
	}
	if got := w.Stats().DamagesDiscarded; got != 4 {
		t.Errorf("DamagesDiscarded = %d, want 4", got)
	}
}

func TestWorldPixelAccess(t *testing.T) {
	w := newTestWorld(t)
	_ = w.ResizeBuffer(3, 2)

	err := w.WithPixels(func(pix []uint32, width, height int) {
		if width != 3 || height != 2 || len(pix) != 6 {
			t.Errorf("view = %d pixels %dx%d, want 6 3x2", len(pix), width, height)
		}
		pix[5] = 42
	})
	if err != nil {
		t.Fatal(err)
	}

	pix, width, height, err := w.CopyPixels()
	if err != nil {
		t.Fatal(err)
	}
	if width != 3 || height != 2 || pix[5] != 42 {
		t.Errorf("CopyPixels() = %v %dx%d", pix, width, height)
	}
	pix[5] = 0
	_ = w.WithPixels(func(live []uint32, _, _ int) {
		if live[5] != 42 {
			t.Error("CopyPixels must return a copy")
		}
	})
}

func TestWorldClose(t *testing.T) {
	p := newMockPresenter()
	w, err := New(Headless(), 10, 10, WithPresenter(p), WithWorkers(2))
	if err != nil {
		t.Fatal(err)
	}
	_ = w.ResizeBuffer(2, 2)
	_ = w.Damage(R(0, 0, 2, 2))

	if err := w.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
	if p.closes != 1 {
		t.Errorf("presenter closed %d times, want 1", p.closes)
	}
	if w.Presenter() != nil {
		t.Error("Presenter() should be nil after Close")
	}

	checks := map[string]error{
		"Draw":          w.Draw(),
		"Damage":        w.Damage(R(0, 0, 1, 1)),
		"ResizeBuffer":  w.ResizeBuffer(5, 5),
		"ResizeSurface": w.ResizeSurface(5, 5),
		"WithPixels":    w.WithPixels(func([]uint32, int, int) {}),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrWorldClosed) {
			t.Errorf("%s after Close = %v, want ErrWorldClosed", name, err)
		}
	}
	if _, _, _, err := w.CopyPixels(); !errors.Is(err, ErrWorldClosed) {
		t.Errorf("CopyPixels after Close = %v, want ErrWorldClosed", err)
	}
}

func TestWorldParallelCopies(t *testing.T) {
	w, p := newTestWorldWithPresenter(t, WithWorkers(4), WithParallelThreshold(1))
	const size = 256
	if err := w.ResizeBuffer(size, size); err != nil {
		t.Fatal(err)
	}
	mustDraw(t, w)

	_ = w.WithPixels(func(pix []uint32, _, _ int) {
		for i := range pix {
			pix[i] = uint32(i) * 2654435761
		}
	})
	region := R(3, 5, 200, 240)
	if err := w.Damage(region); err != nil {
		t.Fatal(err)
	}
	mustDraw(t, w)

	pix, _, _, _ := w.CopyPixels()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			want := uint32(0)
			if x >= region.Left && x < region.Right() && y >= region.Top && y < region.Bottom() {
				want = pix[y*size+x]
			}
			if got := p.at(x, y); got != want {
				t.Fatalf("frame(%d,%d) = %#x, want %#x", x, y, got, want)
			}
		}
	}
}

// Writers, resizers and a drawer run concurrently. Afterwards a full damage
// and draw must leave the frame identical to the buffer.
func TestWorldConcurrentUse(t *testing.T) {
	w, p := newTestWorldWithPresenter(t, WithWorkers(3), WithParallelThreshold(16))
	if err := w.ResizeBuffer(32, 32); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				r := R(i%24, g*6, 8, 6)
				_ = w.WithPixels(func(pix []uint32, width, height int) {
					c, ok := r.Clamp(width, height)
					if !ok {
						return
					}
					for y := c.Top; y < c.Bottom(); y++ {
						for x := c.Left; x < c.Right(); x++ {
							pix[y*width+x] = uint32(g<<16 | i)
						}
					}
				})
				_ = w.Damage(r)
			}
		}(g)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = w.ResizeBuffer(32-i%2, 32)
			_ = w.ResizeSurface(100+i, 100)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if err := w.Draw(); err != nil {
				t.Errorf("Draw() = %v", err)
				return
			}
		}
	}()
	wg.Wait()

	width, height := w.BufferSize()
	if err := w.Damage(R(0, 0, width, height)); err != nil {
		t.Fatal(err)
	}
	mustDraw(t, w)

	pix, _, _, _ := w.CopyPixels()
	if !equalPixels(pix, p.frame) {
		t.Error("frame differs from buffer after a full damage and draw")
	}
	if n := len(w.PendingDamage()); n != 0 {
		t.Errorf("queue length = %d after final draw", n)
	}
}
