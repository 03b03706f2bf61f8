// Package registry maps encoder ids to factories so the export orchestrator
// can create backends by name. A Registry is an explicit object passed by
// dependency injection; there is no package-level global.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/user/gifcast/pkg/ports"
)

// ErrNoEncoders is returned when a default encoder is requested from an
// empty registry.
var ErrNoEncoders = errors.New("registry: no encoders registered")

// Registry holds encoder factories keyed by id, with one designated default.
type Registry struct {
	mu        sync.Mutex
	factories map[string]ports.EncoderFactory
	defaultID string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{factories: make(map[string]ports.EncoderFactory)}
}

// Register adds a factory under the given id, replacing any previous entry.
// The first registration becomes the implicit default; passing setDefault
// true makes this id the default explicitly.
func (r *Registry) Register(id string, factory ports.EncoderFactory, setDefault ...bool) error {
	if id == "" {
		return errors.New("registry: empty encoder id")
	}
	if factory == nil {
		return fmt.Errorf("registry: nil factory for %q", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[id] = factory
	if r.defaultID == "" || (len(setDefault) > 0 && setDefault[0]) {
		r.defaultID = id
	}
	return nil
}

// Unregister removes an id. If it was the default, an arbitrary remaining
// entry becomes the new default.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.factories, id)
	if r.defaultID == id {
		r.defaultID = ""
		for remaining := range r.factories {
			r.defaultID = remaining
			break
		}
	}
}

// Create instantiates the encoder registered under id. An empty id selects
// the default.
func (r *Registry) Create(id string) (ports.GifEncoder, error) {
	r.mu.Lock()
	if id == "" {
		id = r.defaultID
	}
	factory, ok := r.factories[id]
	r.mu.Unlock()

	if id == "" {
		return nil, ErrNoEncoders
	}
	if !ok {
		return nil, fmt.Errorf("registry: unknown encoder %q", id)
	}

	enc := factory()
	if enc == nil {
		return nil, fmt.Errorf("registry: factory for %q produced no encoder", id)
	}
	return enc, nil
}

// CreateDefault instantiates the default encoder.
func (r *Registry) CreateDefault() (ports.GifEncoder, error) {
	return r.Create("")
}

// DefaultID returns the current default encoder id, or "" when empty.
func (r *Registry) DefaultID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defaultID
}

// SetDefault marks an already-registered id as the default.
func (r *Registry) SetDefault(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[id]; !ok {
		return fmt.Errorf("registry: unknown encoder %q", id)
	}
	r.defaultID = id
	return nil
}

// Has reports whether an id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.factories[id]
	return ok
}

// ListAvailable instantiates every factory, collects its metadata, and
// disposes the instance. Factories that fail (panic or return nil) are
// skipped rather than failing the listing.
func (r *Registry) ListAvailable() []ports.EncoderInfo {
	r.mu.Lock()
	ids := make([]string, 0, len(r.factories))
	factories := make([]ports.EncoderFactory, 0, len(r.factories))
	for id, f := range r.factories {
		ids = append(ids, id)
		factories = append(factories, f)
	}
	r.mu.Unlock()

	infos := make([]ports.EncoderInfo, 0, len(ids))
	for i := range ids {
		if info, ok := probeFactory(factories[i]); ok {
			infos = append(infos, info)
		}
	}
	return infos
}

// Clear removes every registration. Intended for tests.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]ports.EncoderFactory)
	r.defaultID = ""
}

func probeFactory(factory ports.EncoderFactory) (info ports.EncoderInfo, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	enc := factory()
	if enc == nil {
		return ports.EncoderInfo{}, false
	}
	defer enc.Dispose()
	return enc.Info(), true
}
