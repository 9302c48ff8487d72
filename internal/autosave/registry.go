package autosave

import "sync"

// Registry owns the controllers of one page, one per target.
type Registry struct {
	persister Persister
	defaults  []Option

	mu          sync.Mutex
	controllers map[Target]*Controller
}

// NewRegistry creates a registry whose controllers share persister and the
// default options.
func NewRegistry(persister Persister, defaults ...Option) *Registry {
	return &Registry{
		persister:   persister,
		defaults:    defaults,
		controllers: make(map[Target]*Controller),
	}
}

// Open returns the controller of target, creating it when missing. Options
// apply on creation only.
func (r *Registry) Open(target Target, opts ...Option) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.controllers[target]; ok {
		return c
	}
	all := make([]Option, 0, len(r.defaults)+len(opts))
	all = append(all, r.defaults...)
	all = append(all, opts...)
	c := New(target, r.persister, all...)
	r.controllers[target] = c
	return c
}

func (r *Registry) Get(target Target) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[target]
	return c, ok
}

// Close tears down the controller of target. It reports whether one existed.
func (r *Registry) Close(target Target) bool {
	r.mu.Lock()
	c, ok := r.controllers[target]
	delete(r.controllers, target)
	r.mu.Unlock()
	if ok {
		c.Close()
	}
	return ok
}

// Rebind moves an editor from old to next: the old controller is torn down
// and next starts idle.
func (r *Registry) Rebind(old, next Target, opts ...Option) *Controller {
	r.Close(old)
	return r.Open(next, opts...)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	controllers := r.controllers
	r.controllers = make(map[Target]*Controller)
	r.mu.Unlock()
	for _, c := range controllers {
		c.Close()
	}
}
