// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package framebuf

import (
	"cmp"
	"errors"
	"slices"
	"sync"
)

// Well-known presenter priorities. A World created without an explicit
// presenter takes the highest-priority available backend.
const (
	PriorityGPU      = 100
	PriorityTerminal = 20
	PrioritySoftware = 10
)

// RegistryEntry describes one presenter backend known to a Registry.
type RegistryEntry struct {
	Name     string
	Priority int
	Factory  PresenterFactory

	// Available reports whether the backend can run here. The registry
	// calls it at most once per registration and reuses the answer.
	Available func() bool
}

// Registry maps backend names to presenter factories.
//
// Backend packages add themselves from init, so a blank import is enough to
// make a presenter selectable:
//
//	import _ "github.com/gogpu/framebuf/presenter/software"
//
//	w, err := framebuf.New(framebuf.Headless(), 800, 600,
//	    framebuf.WithPresenterName("software"))
//
// The zero Registry is empty and ready to use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]RegistryEntry
}

var globalRegistry = &Registry{}

// NewRegistry returns an empty registry, for hosts and tests that want to
// control exactly which backends World can pick.
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterPresenter adds a backend to the process-wide registry. A nil
// available func means the backend always runs. Registering an existing
// name replaces it.
func RegisterPresenter(name string, priority int, factory PresenterFactory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// UnregisterPresenter drops name from the process-wide registry.
func UnregisterPresenter(name string) {
	globalRegistry.Unregister(name)
}

// Presenters lists every registered backend, best first.
func Presenters() []string {
	return globalRegistry.List()
}

// AvailablePresenters lists the available backends, best first.
func AvailablePresenters() []string {
	return globalRegistry.Available()
}

// NewPresenter builds a presenter from the process-wide registry.
func NewPresenter(opts PresenterOptions) (Presenter, error) {
	return globalRegistry.NewPresenter(opts)
}

// NewPresenterByName builds a presenter from one named backend.
func NewPresenterByName(name string, opts PresenterOptions) (Presenter, error) {
	return globalRegistry.NewPresenterByName(name, opts)
}

// Register adds or replaces a backend. The availability check is
// wrapped so that it runs on first use only.
func (r *Registry) Register(name string, priority int, factory PresenterFactory, available func() bool) {
	check := func() bool { return true }
	if available != nil {
		check = sync.OnceValue(available)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[string]RegistryEntry)
	}
	r.entries[name] = RegistryEntry{Name: name, Priority: priority, Factory: factory, Available: check}
}

// Unregister drops name. Unknown names are ignored.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// List returns every backend name, best first.
func (r *Registry) List() []string {
	return names(r.ranked(false))
}

// Available returns the names of available backends, best first.
func (r *Registry) Available() []string {
	return names(r.ranked(true))
}

// Get returns the entry registered under name. The entry is a value, so
// changing it does not affect the registry.
func (r *Registry) Get(name string) (RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// NewPresenter walks the available backends best first and returns the
// first presenter that builds. If every factory fails, the error joins all
// of their errors.
func (r *Registry) NewPresenter(opts PresenterOptions) (Presenter, error) {
	candidates := r.ranked(true)
	if len(candidates) == 0 {
		return nil, ErrNoPresenterAvailable
	}

	errs := make([]error, 0, len(candidates))
	for _, e := range candidates {
		p, err := build(e, opts)
		if err == nil {
			return p, nil
		}
		Logger().Debug("framebuf: presenter backend failed, trying next", "backend", e.Name, "error", err)
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// NewPresenterByName builds a presenter from the named backend only.
func (r *Registry) NewPresenterByName(name string, opts PresenterOptions) (Presenter, error) {
	e, ok := r.Get(name)
	if !ok {
		return nil, &PresenterNotFoundError{Name: name}
	}
	if !e.Available() {
		return nil, &PresenterUnavailableError{Name: name}
	}
	return build(e, opts)
}

func build(e RegistryEntry, opts PresenterOptions) (Presenter, error) {
	p, err := e.Factory(opts.withDefaults())
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNilPresenter
	}
	return p, nil
}

// ranked snapshots the entries ordered by descending priority, then name.
func (r *Registry) ranked(onlyAvailable bool) []RegistryEntry {
	r.mu.RLock()
	out := make([]RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()

	// Availability checks run unlocked so a slow one cannot block Register.
	if onlyAvailable {
		out = slices.DeleteFunc(out, func(e RegistryEntry) bool { return !e.Available() })
	}
	slices.SortFunc(out, func(a, b RegistryEntry) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

func names(entries []RegistryEntry) []string {
	if len(entries) == 0 {
		return nil
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

// ErrNoPresenterAvailable is returned when no registered backend reports
// itself available.
var ErrNoPresenterAvailable = errors.New("framebuf: no presenter available")

// PresenterNotFoundError is returned for a backend name nobody registered.
type PresenterNotFoundError struct {
	Name string
}

func (e *PresenterNotFoundError) Error() string {
	return "framebuf: presenter not found: " + e.Name
}

// PresenterUnavailableError is returned when a named backend cannot run here.
type PresenterUnavailableError struct {
	Name string
}

func (e *PresenterUnavailableError) Error() string {
	return "framebuf: presenter unavailable: " + e.Name
}
