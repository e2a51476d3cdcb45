package destination

import (
	"fmt"
	"sync"
)

// Registry holds the known destinations and tracks which one is active.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	byID     map[string]Destination
	activeID string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Destination)}
}

// Register adds a destination. The first registered destination becomes
// active by default.
func (r *Registry) Register(d Destination) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := d.ID()
	if _, exists := r.byID[id]; !exists {
		r.order = append(r.order, id)
	}
	r.byID[id] = d
	if r.activeID == "" {
		r.activeID = id
	}
}

// Select makes the destination with the given id active.
func (r *Registry) Select(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return fmt.Errorf("unknown destination %q", id)
	}
	r.activeID = id
	return nil
}

// Active returns the currently selected destination, or nil when the
// registry is empty.
func (r *Registry) Active() Destination {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.activeID == "" {
		return nil
	}
	return r.byID[r.activeID]
}

// ActiveID returns the id of the selected destination, empty when none.
func (r *Registry) ActiveID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeID
}

// Get returns a destination by id.
func (r *Registry) Get(id string) (Destination, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// List returns destination info in registration order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		d := r.byID[id]
		infos = append(infos, Info{
			ID:     d.ID(),
			Name:   d.Name(),
			Active: id == r.activeID,
		})
	}
	return infos
}
