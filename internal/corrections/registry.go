package corrections

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultRegistryCapacity bounds how many issued references the registry
// remembers. Old references age out in issue order once the bound is hit, so
// memory stays flat regardless of request volume.
const DefaultRegistryCapacity = 4096

// Registry tracks the audio references issued for transcription requests.
// Only a reference it remembers can anchor a correction.
//
// Safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	refs  map[string]struct{}
	order []string
	cap   int
}

// NewRegistry constructs a Registry with the given capacity. Capacities
// below 1 use [DefaultRegistryCapacity].
func NewRegistry(capacity int) *Registry {
	if capacity < 1 {
		capacity = DefaultRegistryCapacity
	}
	return &Registry{
		refs: make(map[string]struct{}, capacity),
		cap:  capacity,
	}
}

// Issue mints a fresh reference, remembers it, and returns it.
func (r *Registry) Issue() string {
	ref := uuid.NewString()
	r.mu.Lock()
	r.remember(ref)
	r.mu.Unlock()
	return ref
}

// Known reports whether ref was previously issued and has not aged out.
func (r *Registry) Known(ref string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.refs[ref]
	return ok
}

// remember must be called with r.mu held.
func (r *Registry) remember(ref string) {
	if len(r.order) >= r.cap {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.refs, oldest)
	}
	r.refs[ref] = struct{}{}
	r.order = append(r.order, ref)
}
