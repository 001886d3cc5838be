// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framebuf"
	"github.com/gogpu/framebuf/internal/parallel"
)

// Name is the registry name of the GPU presenter.
const Name = "gpu"

// Priority is the registry priority of the GPU presenter.
const Priority = framebuf.PriorityGPU

//go:embed shaders/blit.wgsl
var blitShaderSource string

// BlitShaderSource returns the WGSL source of the fullscreen blit shader
// compiled into BlitShader.
func BlitShaderSource() string {
	return blitShaderSource
}

func init() {
	framebuf.RegisterPresenter(Name, Priority, func(opts framebuf.PresenterOptions) (framebuf.Presenter, error) {
		return New(opts, Config{})
	}, Available)
}

// Available reports whether a standalone Vulkan HAL backend is registered.
// Presenters sharing a host device through a DeviceProvider do not need it.
func Available() bool {
	_, ok := hal.GetBackend(gputypes.BackendVulkan)
	return ok
}

// Config tunes a GPU Presenter.
type Config struct {
	// Device and Queue, if both set, are used instead of the options'
	// DeviceProvider or a standalone device. The presenter does not destroy them.
	Device hal.Device
	Queue  hal.Queue

	// MaxTextureDimension limits buffer and surface sides.
	// Zero uses gputypes.DefaultLimits().
	MaxTextureDimension int

	// OnPresent, if set, is called at the end of every Render with the frame
	// texture. The texture is owned by the presenter and is replaced on
	// buffer resize.
	OnPresent func(tex hal.Texture, width, height int)
}

// Presenter uploads frames into a GPU texture sized like the buffer.
//
// Only the row bands containing tiles reported through FrameDamaged are
// uploaded. Sampling the texture onto the surface is left to the host,
// which receives the texture through Config.OnPresent and may use
// BlitShader for a fullscreen pass.
type Presenter struct {
	mu sync.Mutex

	cfg    Config
	format gputypes.TextureFormat
	maxDim int

	instance   hal.Instance
	device     hal.Device
	queue      hal.Queue
	ownsDevice bool

	texture hal.Texture
	shader  hal.ShaderModule

	width, height               int
	surfaceWidth, surfaceHeight int
	frame                       []uint32
	staging                     []byte
	dirty                       *parallel.TileMask

	uploads int
	closed  bool
}

// New creates a GPU presenter.
//
// The device is taken, in order, from cfg.Device/cfg.Queue, from a
// DeviceProvider that exposes HalDevice() and HalQueue(), or opened
// standalone on the Vulkan backend.
func New(opts framebuf.PresenterOptions, cfg Config) (*Presenter, error) {
	switch opts.Format {
	case gputypes.TextureFormatUndefined:
		opts.Format = framebuf.DefaultFormat
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm:
	default:
		return nil, fmt.Errorf("gpu: unsupported pixel format %v", opts.Format)
	}

	p := &Presenter{
		cfg:    cfg,
		format: opts.Format,
		maxDim: cfg.MaxTextureDimension,
	}
	if p.maxDim <= 0 {
		p.maxDim = int(gputypes.DefaultLimits().MaxTextureDimension2D)
	}

	if err := p.acquireDevice(opts); err != nil {
		return nil, err
	}
	if err := p.resizeSurface(opts.SurfaceWidth, opts.SurfaceHeight); err != nil {
		p.releaseDevice()
		return nil, err
	}
	if err := p.resizeBuffer(max(opts.BufferWidth, 1), max(opts.BufferHeight, 1)); err != nil {
		p.releaseDevice()
		return nil, err
	}
	p.compileBlitShader()
	return p, nil
}

func (p *Presenter) acquireDevice(opts framebuf.PresenterOptions) error {
	if p.cfg.Device != nil && p.cfg.Queue != nil {
		p.device, p.queue = p.cfg.Device, p.cfg.Queue
		return nil
	}

	if opts.DeviceProvider != nil {
		type halProvider interface {
			HalDevice() any
			HalQueue() any
		}
		hp, ok := opts.DeviceProvider.(halProvider)
		if !ok {
			return errors.New("gpu: provider does not expose HAL types")
		}
		device, ok := hp.HalDevice().(hal.Device)
		if !ok || device == nil {
			return errors.New("gpu: provider HalDevice is not hal.Device")
		}
		queue, ok := hp.HalQueue().(hal.Queue)
		if !ok || queue == nil {
			return errors.New("gpu: provider HalQueue is not hal.Queue")
		}
		p.device, p.queue = device, queue
		framebuf.Logger().Debug("gpu: using shared device")
		return nil
	}

	return p.openStandalone()
}

// openStandalone creates a Vulkan device owned by the presenter.
func (p *Presenter) openStandalone() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return errors.New("gpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("gpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return errors.New("gpu: no GPU adapters found")
	}

	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("gpu: open device: %w", err)
	}

	p.instance = instance
	p.device = openDev.Device
	p.queue = openDev.Queue
	p.ownsDevice = true
	framebuf.Logger().Info("gpu: device opened", "adapter", selected.Info.Name)
	return nil
}

func (p *Presenter) releaseDevice() {
	if p.texture != nil {
		p.device.DestroyTexture(p.texture)
		p.texture = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
	if p.ownsDevice {
		p.device.Destroy()
		p.instance.Destroy()
		p.instance = nil
	}
	p.device = nil
	p.queue = nil
}

// compileBlitShader builds the blit shader module. Failure is not fatal:
// uploads still work and the host may bring its own pipeline.
func (p *Presenter) compileBlitShader() {
	spirv, err := naga.Compile(blitShaderSource)
	if err != nil {
		framebuf.Logger().Warn("gpu: blit shader compilation failed", "error", err)
		return
	}

	code := make([]uint32, len(spirv)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}

	module, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "framebuf_blit",
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		framebuf.Logger().Warn("gpu: blit shader module creation failed", "error", err)
		return
	}
	p.shader = module
}

func (p *Presenter) checkSize(what string, width, height int) error {
	if err := framebuf.CheckSize(what, width, height); err != nil {
		return err
	}
	if width > p.maxDim || height > p.maxDim {
		return fmt.Errorf("%w: %s %dx%d, max %d", framebuf.ErrDimensionsExceedLimit, what, width, height, p.maxDim)
	}
	return nil
}

// ResizeBuffer recreates the frame texture. The whole frame is uploaded on
// the next Render.
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

	tex, err := p.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "framebuf_frame",
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        p.format,
		Usage:         gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("gpu: create frame texture %dx%d: %w", width, height, err)
	}
	if p.texture != nil {
		p.device.DestroyTexture(p.texture)
	}
	p.texture = tex

	p.width, p.height = width, height
	p.frame = make([]uint32, width*height)
	p.staging = make([]byte, 0, width*4*parallel.TileHeight)
	p.dirty = parallel.NewTileMask(width, height)
	p.dirty.MarkAll()
	return nil
}

// ResizeSurface validates the surface size against the device limit.
// Scaling onto the surface happens in the host's blit pass.
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
	p.surfaceWidth, p.surfaceHeight = width, height
	return nil
}

// Frame returns the buffer-sized frame.
func (p *Presenter) Frame() []uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}

// FrameDamaged marks the tiles under r for upload.
func (p *Presenter) FrameDamaged(r framebuf.Rect) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dirty != nil {
		p.dirty.MarkRect(r.Left, r.Top, r.Width, r.Height)
	}
}

// Render uploads dirty row bands and hands the texture to OnPresent.
func (p *Presenter) Render() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return framebuf.ErrPresenterClosed
	}
	if p.device == nil {
		return framebuf.ErrSurfaceLost
	}

	for _, band := range p.dirty.TakeRows() {
		p.upload(band[0], band[1])
	}

	if p.cfg.OnPresent != nil {
		p.cfg.OnPresent(p.texture, p.width, p.height)
	}
	return nil
}

// upload writes frame rows [y0, y1) into the texture.
func (p *Presenter) upload(y0, y1 int) {
	rowBytes := p.width * 4
	n := (y1 - y0) * rowBytes
	if cap(p.staging) < n {
		p.staging = make([]byte, n)
	}
	data := p.staging[:n]
	for i, v := range p.frame[y0*p.width : y1*p.width] {
		binary.LittleEndian.PutUint32(data[i*4:], v)
	}

	p.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  p.texture,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: 0, Y: uint32(y0), Z: 0},
			Aspect:   gputypes.TextureAspectAll,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(rowBytes),
			RowsPerImage: uint32(y1 - y0),
		},
		&hal.Extent3D{Width: uint32(p.width), Height: uint32(y1 - y0), DepthOrArrayLayers: 1},
	)
	p.uploads++
}

// Texture returns the current frame texture.
func (p *Presenter) Texture() hal.Texture {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.texture
}

// BlitShader returns the compiled blit shader module, or nil if it could
// not be built. Entry points are vs_main and fs_main; binding 0 is the
// frame texture and binding 1 a sampler.
func (p *Presenter) BlitShader() hal.ShaderModule {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shader
}

// SurfaceSize returns the validated surface size.
func (p *Presenter) SurfaceSize() (width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.surfaceWidth, p.surfaceHeight
}

// Uploads returns the number of texture writes issued so far.
func (p *Presenter) Uploads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uploads
}

// Close destroys the texture, the shader module and, if the presenter
// opened it, the device.
func (p *Presenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.releaseDevice()
	p.frame = nil
	return nil
}

var (
	_ framebuf.Presenter      = (*Presenter)(nil)
	_ framebuf.DamageObserver = (*Presenter)(nil)
)
