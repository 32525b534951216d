package attempt

import (
	"sync"

	"github.com/google/uuid"
)

// Registry holds in-flight attempts keyed by id. Attempts are runtime-only
// and are never persisted; abandoning one needs no teardown.
type Registry struct {
	mu       sync.RWMutex
	attempts map[string]*Attempt
}

func NewRegistry() *Registry {
	return &Registry{
		attempts: make(map[string]*Attempt),
	}
}

// Add registers an attempt and returns its id.
func (r *Registry) Add(a *Attempt) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.attempts[id] = a
	r.mu.Unlock()

	return id
}

func (r *Registry) Get(id string) (*Attempt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.attempts[id]
	return a, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.attempts, id)
	r.mu.Unlock()
}
