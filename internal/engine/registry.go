package engine

import (
	"errors"
	"sync"
)

// ErrProcessNotFound indicates the process ID is not registered.
var ErrProcessNotFound = errors.New("process not found")

// Registry is an in-memory index of processes by ID. List returns
// processes in registration order.
type Registry struct {
	mu        sync.RWMutex
	processes map[string]*Process
	order     []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{processes: make(map[string]*Process)}
}

// Put registers a process, replacing any previous entry with the same ID.
func (r *Registry) Put(p *Process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.processes[p.ID()]; !exists {
		r.order = append(r.order, p.ID())
	}
	r.processes[p.ID()] = p
}

// Get returns the process with the given ID.
func (r *Registry) Get(id string) (*Process, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processes[id]
	if !ok {
		return nil, ErrProcessNotFound
	}
	return p, nil
}

// Remove drops a process from the registry.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.processes[id]; !ok {
		return ErrProcessNotFound
	}
	delete(r.processes, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns all registered processes in registration order.
func (r *Registry) List() []*Process {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Process, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.processes[id])
	}
	return out
}

// Len returns the number of registered processes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.processes)
}
