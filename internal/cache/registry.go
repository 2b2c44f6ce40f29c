package cache

import "sync"

// Registry hands out instances by name. Creation is idempotent: asking for a
// handle that already exists returns the existing instance, config untouched.
// Instances under distinct handles are fully independent.
type Registry[V any] struct {
	mu        sync.RWMutex
	instances map[string]*Instance[V]
	opts      []Option
}

// NewRegistry creates an empty registry. The options are applied to every
// instance the registry creates.
func NewRegistry[V any](opts ...Option) *Registry[V] {
	return &Registry[V]{
		instances: make(map[string]*Instance[V]),
		opts:      opts,
	}
}

// GetOrCreate returns the instance registered under name, creating it with
// cfg if the handle is new. The cfg of an existing instance is not changed.
func (r *Registry[V]) GetOrCreate(name string, cfg Config) *Instance[V] {
	r.mu.RLock()
	inst, ok := r.instances[name]
	r.mu.RUnlock()
	if ok {
		return inst
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check: another caller may have created it between the locks.
	if inst, ok := r.instances[name]; ok {
		return inst
	}
	inst = New[V](name, cfg, r.opts...)
	r.instances[name] = inst
	return inst
}

// Get returns the instance registered under name, if any.
func (r *Registry[V]) Get(name string) (*Instance[V], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	return inst, ok
}

// Len reports how many instances are registered.
func (r *Registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// Close closes every registered instance and forgets them all.
func (r *Registry[V]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, inst := range r.instances {
		inst.Close()
		delete(r.instances, name)
	}
}
