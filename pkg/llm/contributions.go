package llm

import (
	"context"
	"sync"
)

// Contributions collects the providers whose calls fed one pipeline run.
// It is scoped to a single request, so attribution stays correct while
// independent requests share the registry and its usage meter.
type Contributions struct {
	mu    sync.Mutex
	seen  map[string]bool
	order []string
}

// Add records a contributing provider. Duplicates are ignored; first
// contribution order is preserved.
func (c *Contributions) Add(name string) {
	if c == nil || name == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	if c.seen[name] {
		return
	}
	c.seen[name] = true
	c.order = append(c.order, name)
}

// Names returns the contributing providers in first-contribution order.
func (c *Contributions) Names() []string {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

type contributionsKey struct{}

// WithContributions attaches a fresh collector to the context. Engines
// record successful provider calls against it via RecordContribution.
func WithContributions(ctx context.Context) (context.Context, *Contributions) {
	c := &Contributions{}
	return context.WithValue(ctx, contributionsKey{}, c), c
}

// RecordContribution records a successful provider call on the context's
// collector. A context without a collector is a no-op, so engines can be
// called outside a pipeline run.
func RecordContribution(ctx context.Context, provider string) {
	if c, ok := ctx.Value(contributionsKey{}).(*Contributions); ok {
		c.Add(provider)
	}
}
