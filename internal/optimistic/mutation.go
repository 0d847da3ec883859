package optimistic

import (
	"context"
	"fmt"
	"sync"

	"github.com/Makepad-fr/workpanel/internal/session"
)

// State of a single mutation. Pending moves to exactly one of the others.
type State int

const (
	Pending State = iota
	Confirmed
	Reverted
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Reverted:
		return "reverted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Transform maps the current list to a new one. It must not keep or modify
// its argument outside the returned slice.
type Transform[T any] func(items []T) []T

// Rollback undoes a tentative transform. before is the list as it was just
// ahead of the tentative change; current is the list now, which may include
// other mutations that landed in between.
type Rollback[T any] func(before, current []T) []T

// Mutation describes one optimistic change to a collection.
type Mutation[T any] struct {
	// ID is the identifier being mutated; it keys pending state and logs.
	ID string
	// Tentative is applied before the request. Nil means nothing is shown
	// until the server answers, as for creation.
	Tentative Transform[T]
	// Request performs the authorized call. A nil item means the server sent
	// no body and the tentative state stands.
	Request func(ctx context.Context) (*T, error)
	// Confirm folds the server's item into the list. Defaults to
	// ReplaceByKey. It may also run on a fetched list that already holds
	// the item.
	Confirm func(items []T, server T) []T
	// Rollback runs on failure. Defaults to RestoreKey(ID).
	Rollback Rollback[T]
}

// Op is a mutation whose tentative change has been applied and whose
// request has not yet been resolved.
type Op[T any] struct {
	c      *Collection[T]
	m      Mutation[T]
	before []T // guarded by c.mu; a refresh rebases it

	resolving sync.Mutex // held for the whole of Resolve

	mu    sync.Mutex
	state State
	item  *T
	err   error
}

// Begin checks for a credential and applies the tentative transform. Without
// a credential nothing is changed and session.ErrNotLoggedIn is returned.
func Begin[T any](c *Collection[T], creds session.TokenSource, m Mutation[T]) (*Op[T], error) {
	if _, err := session.Require(creds); err != nil {
		return nil, err
	}
	if m.Request == nil {
		return nil, fmt.Errorf("mutation %q has no request", m.ID)
	}
	if m.Confirm == nil {
		m.Confirm = func(items []T, server T) []T { return ReplaceByKey(c.key, server)(items) }
	}
	if m.Rollback == nil {
		m.Rollback = RestoreKey(c.key, m.ID)
	}

	op := &Op[T]{c: c, m: m}
	c.begin(op)

	c.l.Debug("mutation pending", "collection", c.name, "id", m.ID)
	return op, nil
}

// Resolve issues the request and reconciles. Calling it again returns the
// first outcome without another request.
func (op *Op[T]) Resolve(ctx context.Context) (*T, error) {
	op.resolving.Lock()
	defer op.resolving.Unlock()
	if st, item, err := op.outcome(); st != Pending {
		return item, err
	}
	item, err := op.m.Request(ctx)
	if err != nil {
		op.c.finish(op, op.m.Rollback, nil)
		op.settle(Reverted, nil, err)
		op.c.l.Warn("mutation reverted", "collection", op.c.name, "id", op.m.ID, "error", err)
		return nil, err
	}
	op.c.finish(op, op.confirm(item), op.replay(item))
	op.settle(Confirmed, item, nil)
	op.c.l.Debug("mutation confirmed", "collection", op.c.name, "id", op.m.ID)
	return item, nil
}

func (op *Op[T]) confirm(item *T) Rollback[T] {
	if item == nil {
		return nil
	}
	return func(_, current []T) []T { return op.m.Confirm(current, *item) }
}

// replay redoes a confirmed mutation on a freshly fetched list.
func (op *Op[T]) replay(item *T) Transform[T] {
	return func(items []T) []T {
		if op.m.Tentative != nil {
			items = op.m.Tentative(items)
		}
		if item != nil {
			items = op.m.Confirm(items, *item)
		}
		return items
	}
}

func (op *Op[T]) outcome() (State, *T, error) {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.state, op.item, op.err
}

func (op *Op[T]) settle(st State, item *T, err error) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.state, op.item, op.err = st, item, err
}

func (op *Op[T]) State() State {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.state
}

// Apply runs Begin and Resolve back to back.
func Apply[T any](ctx context.Context, c *Collection[T], creds session.TokenSource, m Mutation[T]) (*T, error) {
	op, err := Begin(c, creds, m)
	if err != nil {
		return nil, err
	}
	return op.Resolve(ctx)
}
