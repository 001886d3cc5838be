package framebuf

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Option configures a World during creation.
//
// Example:
//
//	// Best available registered presenter
//	w, err := framebuf.New(handle, 800, 600)
//
//	// A specific backend, sharing the host's GPU device
//	w, err := framebuf.New(handle, 800, 600,
//	    framebuf.WithPresenterName("gpu"),
//	    framebuf.WithDeviceProvider(app.GPUContextProvider()))
type Option func(*options)

type options struct {
	presenter     Presenter
	presenterName string
	registry      *Registry
	format        gputypes.TextureFormat
	provider      gpucontext.DeviceProvider
	workers       int
	threshold     int
}

// defaultParallelThreshold is the smallest copy, in pixels, worth splitting
// across workers: one full tile.
const defaultParallelThreshold = 64 * 64

func defaultOptions() options {
	return options{
		registry:  globalRegistry,
		format:    DefaultFormat,
		threshold: defaultParallelThreshold,
	}
}

// WithPresenter uses p instead of creating one from the registry.
// The World takes ownership and closes p in Close.
func WithPresenter(p Presenter) Option {
	return func(o *options) {
		o.presenter = p
	}
}

// WithPresenterName selects a registered presenter backend by name.
// Without it, the highest-priority available backend is used.
func WithPresenterName(name string) Option {
	return func(o *options) {
		o.presenterName = name
	}
}

// WithRegistry resolves presenter backends from r instead of the global registry.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithFormat declares the packed pixel layout writers use. The presenter
// is configured to interpret the frame accordingly.
func WithFormat(format gputypes.TextureFormat) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithDeviceProvider shares a host GPU device with GPU presenters.
func WithDeviceProvider(provider gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithWorkers sets how many goroutines split large snapshot and blit copies.
// 0 uses GOMAXPROCS; 1 disables parallel copies.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithParallelThreshold sets the smallest copy, in pixels, that is split
// across workers.
func WithParallelThreshold(pixels int) Option {
	return func(o *options) {
		if pixels > 0 {
			o.threshold = pixels
		}
	}
}
