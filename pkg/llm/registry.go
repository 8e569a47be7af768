package llm

import (
	"fmt"
)

// Registry holds the configured providers. The orchestrator selects
// providers by name from here and never branches on provider identity in
// its own logic.
type Registry struct {
	providers map[string]Provider
	order     []string
	meter     *UsageMeter
}

// NewRegistry creates an empty registry sharing the given usage meter.
func NewRegistry(meter *UsageMeter) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		meter:     meter,
	}
}

// Register adds a provider. Registration order defines the default
// fallback order.
func (r *Registry) Register(p Provider) {
	name := p.Name()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// Get returns the named provider.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Chain resolves a preference list into the available providers, in order.
// Unregistered names are skipped; remaining registered providers are
// appended so a chain never silently shrinks to zero fallbacks.
func (r *Registry) Chain(preferred ...string) []Provider {
	seen := make(map[string]bool, len(r.providers))
	var chain []Provider

	for _, name := range preferred {
		if p, ok := r.providers[name]; ok && !seen[name] {
			chain = append(chain, p)
			seen[name] = true
		}
	}
	for _, name := range r.order {
		if !seen[name] {
			chain = append(chain, r.providers[name])
			seen[name] = true
		}
	}
	return chain
}

// Names returns the registered provider names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Usage returns the shared usage meter snapshot.
func (r *Registry) Usage() map[string]Usage {
	return r.meter.Snapshot()
}

// Empty reports whether no providers are registered.
func (r *Registry) Empty() bool {
	return len(r.providers) == 0
}

// Require returns the named provider or an error naming it.
func (r *Registry) Require(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q is not configured", name)
	}
	return p, nil
}
