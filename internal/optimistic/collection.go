// Package optimistic applies list mutations locally before the server has
// confirmed them, and reconciles once it answers: the server's version
// replaces the tentative one on success, the rollback restores the entry on
// failure.
package optimistic

import (
	"context"
	"sync"

	"github.com/Makepad-fr/workpanel/internal/logging"
)

// Collection is an ordered list of items keyed by identifier. The view that
// owns it is the only writer; all writes go through Replace or a Mutation.
type Collection[T any] struct {
	mu      sync.RWMutex
	name    string
	key     func(T) string
	items   []T
	pending map[string]int
	l       logging.Logger

	inflight []*Op[T]       // unresolved ops, oldest first
	fetches  int            // Refresh calls waiting for the server
	settled  []Transform[T] // confirmed effects, kept while fetches > 0
}

type Option[T any] func(*Collection[T])

func WithLogger[T any](l logging.Logger) Option[T] {
	return func(c *Collection[T]) { c.l = l }
}

// NewCollection starts empty. name only shows up in logs.
func NewCollection[T any](name string, key func(T) string, opts ...Option[T]) *Collection[T] {
	c := &Collection[T]{
		name:    name,
		key:     key,
		pending: map[string]int{},
		l:       logging.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Items returns a copy of the current state.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.items)
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get finds the item with the given identifier.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		if c.key(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Replace swaps the whole list, e.g. after a fresh fetch.
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = clone(items)
}

// Refresh replaces the list with what fetch returns. Mutations still waiting
// for the server are applied again on top of the fresh list, as are those
// confirmed while fetch ran, so a refresh never undoes a local change.
func (c *Collection[T]) Refresh(ctx context.Context, fetch func(context.Context) ([]T, error)) error {
	c.mu.Lock()
	c.fetches++
	mark := len(c.settled)
	c.mu.Unlock()

	items, err := fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches--
	if c.fetches == 0 {
		defer func() { c.settled = nil }()
	}
	if err != nil {
		return err
	}
	cur := clone(items)
	for _, fn := range c.settled[mark:] {
		cur = fn(cur)
	}
	for _, op := range c.inflight {
		op.before = clone(cur)
		if op.m.Tentative != nil {
			cur = op.m.Tentative(clone(cur))
		}
	}
	c.items = cur
	if n := len(c.inflight); n > 0 {
		c.l.Debug("refresh kept pending mutations", "collection", c.name, "pending", n)
	}
	return nil
}

// IsPending reports whether a mutation on id is still waiting for the server.
func (c *Collection[T]) IsPending(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending[id] > 0
}

func (c *Collection[T]) Key(it T) string { return c.key(it) }

// begin applies op's tentative transform and records it as unresolved.
func (c *Collection[T]) begin(op *Op[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	op.before = clone(c.items)
	if op.m.Tentative != nil {
		c.items = op.m.Tentative(clone(c.items))
	}
	c.inflight = append(c.inflight, op)
	c.pending[op.m.ID]++
}

// finish reconciles op with fn, which sees the list before op's change and
// the current one. replay is what a refresh still running must redo.
func (c *Collection[T]) finish(op *Op[T], fn Rollback[T], replay Transform[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn != nil {
		c.items = fn(op.before, clone(c.items))
	}
	for i, o := range c.inflight {
		if o == op {
			c.inflight = append(c.inflight[:i:i], c.inflight[i+1:]...)
			break
		}
	}
	if replay != nil && c.fetches > 0 {
		c.settled = append(c.settled, replay)
	}
	c.pending[op.m.ID]--
	if c.pending[op.m.ID] <= 0 {
		delete(c.pending, op.m.ID)
	}
}

func clone[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
