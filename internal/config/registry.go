package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/brac-ds/shruti/pkg/provider/acoustic"
)

// ErrProviderNotRegistered is returned by [Registry.CreateAcoustic] when no
// factory has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps acoustic provider names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	acoustic map[string]func(ProviderEntry) (acoustic.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		acoustic: make(map[string]func(ProviderEntry) (acoustic.Provider, error)),
	}
}

// RegisterAcoustic registers an acoustic provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterAcoustic(name string, factory func(ProviderEntry) (acoustic.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acoustic[name] = factory
}

// CreateAcoustic instantiates the acoustic provider selected by entry.Name.
func (r *Registry) CreateAcoustic(entry ProviderEntry) (acoustic.Provider, error) {
	r.mu.RLock()
	factory, ok := r.acoustic[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: acoustic provider %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
