// Package catalog keeps a local, read-only copy of the recipes owned by
// the current principal, synchronized through a live query.
package catalog

import (
	"context"
	"sync"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/logger"
)

// Option configures a Catalog.
type Option func(*Catalog)

// WithOnChange registers a callback invoked after every list replacement.
func WithOnChange(fn func([]domain.Recipe)) Option {
	return func(c *Catalog) {
		c.onChange = fn
	}
}

// Catalog mirrors "all recipes whose owner is the bound principal". Every
// snapshot replaces the whole list; nothing is merged or sorted locally.
type Catalog struct {
	docs     domain.DocumentStore
	log      *logger.Logger
	onChange func([]domain.Recipe)

	mu          sync.RWMutex
	owner       domain.Principal
	recipes     []domain.Recipe
	synced      bool
	generation  uint64
	unsubscribe func()
}

// New creates an unbound catalog.
func New(docs domain.DocumentStore, log *logger.Logger, opts ...Option) *Catalog {
	c := &Catalog{
		docs: docs,
		log:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bind points the catalog at owner. Any previous subscription is cancelled
// and the list cleared first; binding the empty principal just tears down.
// Binding the current owner again is a no-op.
func (c *Catalog) Bind(ctx context.Context, owner domain.Principal) error {
	c.mu.Lock()
	if owner == c.owner && (c.unsubscribe != nil || !owner.Valid()) {
		c.mu.Unlock()
		return nil
	}
	prev := c.teardownLocked()
	c.owner = owner
	gen := c.generation
	c.mu.Unlock()

	if prev != nil {
		prev()
	}
	c.changed()

	if !owner.Valid() {
		return nil
	}

	unsubscribe, err := c.docs.Subscribe(ctx, domain.OwnedBy(owner), func(snap domain.Snapshot) {
		c.replace(gen, snap)
	})
	if err != nil {
		c.log.Error("subscribing to recipes of %s: %v", owner, err)
		return err
	}

	c.mu.Lock()
	if c.generation != gen {
		// Rebound while subscribing.
		c.mu.Unlock()
		unsubscribe()
		return nil
	}
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	c.log.Debug("subscribed to recipes of %s", owner)
	return nil
}

// replace swaps in snap unless it belongs to a subscription that has since
// been torn down.
func (c *Catalog) replace(gen uint64, snap domain.Snapshot) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.log.Debug("dropping stale snapshot (%d recipes)", len(snap))
		return
	}
	c.recipes = []domain.Recipe(snap)
	c.synced = true
	c.mu.Unlock()

	c.log.Debug("received %d recipe(s)", len(snap))
	c.changed()
}

// teardownLocked invalidates the current subscription and returns its
// cancel func. Callers hold c.mu.
func (c *Catalog) teardownLocked() func() {
	prev := c.unsubscribe
	c.unsubscribe = nil
	c.generation++
	c.recipes = nil
	c.synced = false
	c.owner = ""
	return prev
}

func (c *Catalog) changed() {
	if c.onChange != nil {
		c.onChange(c.Recipes())
	}
}

// Recipes returns a copy of the current list in snapshot order.
func (c *Catalog) Recipes() []domain.Recipe {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Recipe, len(c.recipes))
	for i, r := range c.recipes {
		out[i] = r.Clone()
	}
	return out
}

// Synced reports whether at least one snapshot has arrived for the
// current owner.
func (c *Catalog) Synced() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced
}

// Owner returns the principal the catalog is bound to.
func (c *Catalog) Owner() domain.Principal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

// Close cancels the subscription and clears the list.
func (c *Catalog) Close() {
	c.mu.Lock()
	prev := c.teardownLocked()
	c.mu.Unlock()

	if prev != nil {
		prev()
		c.log.Debug("recipe subscription cancelled")
	}
}
