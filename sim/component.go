package sim

import (
	"fmt"
	"os"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// An UpdateSource is an object that the Simulator drives with the
// scheduler's two-phase poll/commit cycle.
//
// The Simulator repeatedly polls CalcNextUpdateTime to ask "when is your
// next event". When the reported time is reached, the Simulator invokes
// ApplyUpdate to commit the pending update into the context. Both calls
// happen on the simulator goroutine; an UpdateSource never sees concurrent
// poll/commit calls on the same context.
type UpdateSource interface {
	// SetDefaultState populates the source's state slots in a freshly
	// created context.
	SetDefaultState(ctx *Context)

	// CalcNextUpdateTime reports the time of the update event the source
	// needs, if any. The second return value is true only when a new event
	// must be scheduled; a source with an update already scheduled but not
	// yet applied returns false so that the Simulator does not schedule a
	// duplicate.
	CalcNextUpdateTime(ctx *Context) (VTimeInSec, bool)

	// ApplyUpdate commits the pending update into the context. It is only
	// invoked when an update event was previously reported.
	ApplyUpdate(ctx *Context)
}

// A Component is an element that is being simulated.
type Component interface {
	Named
	Hookable
	UpdateSource
}

// ComponentBase provides some functions that other components can use.
type ComponentBase struct {
	HookableBase
	name          string
	outputPorts   map[string]*OutputPort
	outputPortSeq []*OutputPort
}

// NewComponentBase creates a new ComponentBase
func NewComponentBase(name string) *ComponentBase {
	c := new(ComponentBase)
	c.name = name
	c.outputPorts = make(map[string]*OutputPort)
	return c
}

// Name returns the name of the component.
func (c *ComponentBase) Name() string {
	return c.name
}

// DeclareOutputPort registers an output port with the component and returns
// it.
func (c *ComponentBase) DeclareOutputPort(
	name string,
	allocator func() any,
	calculator func(ctx *Context) any,
) *OutputPort {
	if _, found := c.outputPorts[name]; found {
		panic("output port " + name + " already declared on " + c.name)
	}

	port := NewOutputPort(name, allocator, calculator)
	c.outputPorts[name] = port
	c.outputPortSeq = append(c.outputPortSeq, port)

	return port
}

// GetOutputPortByName returns the output port by the name of the port.
func (c *ComponentBase) GetOutputPortByName(name string) *OutputPort {
	port, found := c.outputPorts[name]
	if !found {
		errMsg := fmt.Sprintf(
			"Port %s is not available on component %s.\n", name, c.name)
		errMsg += "Available ports include:\n"
		for n := range c.outputPorts {
			errMsg += fmt.Sprintf("\t%s\n", n)
		}
		fmt.Fprint(os.Stderr, errMsg)

		panic("port not found")
	}

	return port
}

// OutputPorts returns all the output ports declared on the component, in
// declaration order.
func (c *ComponentBase) OutputPorts() []*OutputPort {
	return c.outputPortSeq
}
