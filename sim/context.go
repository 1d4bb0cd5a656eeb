package sim

import (
	"log"
	"sync/atomic"
)

// A StateRef identifies one per-context state slot declared by a component.
type StateRef struct {
	index int64
}

var nextStateSlot int64

// DeclareState allocates a new state slot reference. Components declare
// their slots at construction time, before any context is created.
func DeclareState() StateRef {
	return StateRef{index: atomic.AddInt64(&nextStateSlot, 1)}
}

// Cloner lets a state value control how it is copied when a context is
// cloned.
type Cloner interface {
	CloneState() any
}

// A Context is a per-timeline container of component-owned state. Everything
// that determines a component's output lives in a context, so that output
// computation is a pure function of context state.
//
// A context must only be accessed from the goroutine that drives the
// simulator owning it.
type Context struct {
	slots map[int64]any
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{slots: make(map[int64]any)}
}

// State returns the value stored in the given slot, or nil when the slot has
// never been set.
func (c *Context) State(ref StateRef) any {
	return c.slots[ref.index]
}

// MustState returns the value stored in the given slot and panics when the
// slot has never been set.
func (c *Context) MustState(ref StateRef) any {
	v, ok := c.slots[ref.index]
	if !ok {
		log.Panic("reading a state slot before it is set")
	}

	return v
}

// SetState stores a value in the given slot.
func (c *Context) SetState(ref StateRef, v any) {
	c.slots[ref.index] = v
}

// Clone duplicates the context. Values implementing Cloner are copied
// through CloneState; all other values are copied by assignment and must be
// treated as immutable by their owners.
func (c *Context) Clone() *Context {
	clone := NewContext()

	for k, v := range c.slots {
		if cl, ok := v.(Cloner); ok {
			clone.slots[k] = cl.CloneState()
			continue
		}

		clone.slots[k] = v
	}

	return clone
}
