// Package simulation wires engines, bridges, recording, and monitoring into
// runnable simulations.
package simulation

import (
	"github.com/sarchlab/simbridge/datarecording"
	"github.com/sarchlab/simbridge/messaging"
	"github.com/sarchlab/simbridge/monitoring"
	"github.com/sarchlab/simbridge/sim"
)

// A Simulation provides the services required to define a simulation that
// exchanges messages with the outside world.
type Simulation struct {
	id string

	engine       sim.Engine
	simulator    *sim.Simulator
	node         messaging.Node
	dataRecorder datarecording.DataRecorder
	tracer       *datarecording.DeliveryTracer
	monitor      *monitoring.Monitor

	components    []sim.Component
	compNameIndex map[string]int
}

// ID returns the ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the engine used in the simulation.
func (s *Simulation) Engine() sim.Engine {
	return s.engine
}

// Simulator returns the simulator that drives the components.
func (s *Simulation) Simulator() *sim.Simulator {
	return s.simulator
}

// Node returns the messaging node of the simulation.
func (s *Simulation) Node() messaging.Node {
	return s.node
}

// DataRecorder returns the data recorder of the simulation.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// RegisterComponent registers a component with the simulation. The
// component is driven by the simulator, traced by the delivery tracer, and
// exposed through the monitor.
func (s *Simulation) RegisterComponent(c sim.Component) {
	compName := c.Name()
	if _, ok := s.compNameIndex[compName]; ok {
		panic("component " + compName + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = len(s.components) - 1

	s.simulator.RegisterSource(c)

	if s.tracer != nil {
		c.AcceptHook(s.tracer)
	}

	if s.monitor != nil {
		s.monitor.RegisterComponent(c)
	}
}

// GetComponentByName returns the component with the given name.
func (s *Simulation) GetComponentByName(name string) sim.Component {
	return s.components[s.compNameIndex[name]]
}

// Init populates the default state of all the registered components. It
// must be called after all components are registered and before stepping.
func (s *Simulation) Init() {
	s.simulator.Initialize()
}

// StepTo runs the simulation up to the given virtual time.
func (s *Simulation) StepTo(t sim.VTimeInSec) error {
	return s.simulator.StepTo(t)
}

// Terminate flushes the recorded data and closes the messaging node.
func (s *Simulation) Terminate() {
	if s.dataRecorder != nil {
		s.dataRecorder.Flush()
	}

	if s.node != nil {
		_ = s.node.Close()
	}
}
