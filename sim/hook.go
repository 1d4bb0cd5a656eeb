package sim

import "sync"

// HookPos defines the enum of possible hooking positions
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable defines an object that accept Hooks
type Hookable interface {
	// AcceptHook registers a hook
	AcceptHook(hook Hook)
}

// HookPosBeforeEvent is a hook position that triggers before handling an event
var HookPosBeforeEvent = &HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is a hook position that triggers after handling an event
var HookPosAfterEvent = &HookPos{Name: "AfterEvent"}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
//
// Bridges invoke delivery hooks on the messaging layer's goroutines while
// hooks are still being attached on the setup goroutine, so the hook list is
// guarded by a lock.
type HookableBase struct {
	hookLock sync.RWMutex
	hooks    []Hook
}

// NewHookableBase creates a HookableBase object
func NewHookableBase() *HookableBase {
	h := new(HookableBase)
	h.hooks = make([]Hook, 0)
	return h
}

// AcceptHook register a hook
func (h *HookableBase) AcceptHook(hook Hook) {
	h.hookLock.Lock()
	h.hooks = append(h.hooks, hook)
	h.hookLock.Unlock()
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	h.hookLock.RLock()
	n := len(h.hooks)
	h.hookLock.RUnlock()

	return n
}

// InvokeHook triggers the register Hooks. The list is snapshotted under the
// lock and invoked outside of it, so a hook can itself register hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	h.hookLock.RLock()
	hooks := h.hooks
	h.hookLock.RUnlock()

	for _, hook := range hooks {
		hook.Func(ctx)
	}
}
