package sim

import "log"

// An OutputPort exposes a value that is computed purely from context state.
//
// The allocator returns a default value of the port's payload type. The
// calculator derives the port value from a context. The calculator must not
// have side effects, so that the port can be evaluated arbitrarily many
// times.
type OutputPort struct {
	name       string
	allocator  func() any
	calculator func(ctx *Context) any
}

// NewOutputPort creates an output port with the given allocator and
// calculator callbacks.
func NewOutputPort(
	name string,
	allocator func() any,
	calculator func(ctx *Context) any,
) *OutputPort {
	if allocator == nil {
		log.Panic("output port requires an allocator")
	}

	if calculator == nil {
		log.Panic("output port requires a calculator")
	}

	return &OutputPort{
		name:       name,
		allocator:  allocator,
		calculator: calculator,
	}
}

// Name returns the name of the port.
func (p *OutputPort) Name() string {
	return p.name
}

// Allocate returns a default value of the port's payload type.
func (p *OutputPort) Allocate() any {
	return p.allocator()
}

// Eval computes the port value from the given context.
func (p *OutputPort) Eval(ctx *Context) any {
	return p.calculator(ctx)
}
