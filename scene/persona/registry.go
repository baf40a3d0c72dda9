package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Registry holds all known agent descriptors.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*Agent)}
}

// LoadFromFile loads agent descriptors from a JSON file.
func (r *Registry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read personas file: %w", err)
	}
	return r.LoadFromJSON(data)
}

// LoadFromJSON loads agent descriptors from raw JSON bytes. Entries without
// an ID are skipped; optional fields are defaulted on load.
func (r *Registry) LoadFromJSON(data []byte) error {
	var list []*Agent
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse personas JSON: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range list {
		if a == nil || a.ID == "" {
			continue
		}
		withDefaults := a.WithDefaults()
		r.agents[a.ID] = &withDefaults
	}
	return nil
}

// Register adds or replaces a single descriptor.
func (r *Registry) Register(a Agent) {
	if a.ID == "" {
		return
	}
	withDefaults := a.WithDefaults()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.ID] = &withDefaults
}

// Get returns a descriptor by ID, or nil.
func (r *Registry) Get(id string) *Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[id]
}

// All returns a snapshot of all descriptors.
func (r *Registry) All() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	return out
}

// Count returns the number of registered descriptors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
