package simulation

import (
	"github.com/rs/xid"

	"github.com/sarchlab/simbridge/datarecording"
	"github.com/sarchlab/simbridge/messaging"
	"github.com/sarchlab/simbridge/monitoring"
	"github.com/sarchlab/simbridge/sim"
)

// Builder can be used to build a simulation.
type Builder struct {
	node           messaging.Node
	monitorOn      bool
	monitorPort    int
	autoOpen       bool
	recordingOn    bool
	outputFileName string
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		monitorOn:   true,
		recordingOn: true,
	}
}

// WithNode sets the messaging node the simulation's bridges connect
// through. Defaults to an in-process node.
func (b Builder) WithNode(n messaging.Node) Builder {
	b.node = n
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithDashboardAutoOpen makes the monitor open its URL in a browser.
func (b Builder) WithDashboardAutoOpen() Builder {
	b.autoOpen = true
	return b
}

// WithoutDataRecording sets the simulation to not record bridge traces.
func (b Builder) WithoutDataRecording() Builder {
	b.recordingOn = false
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file name cannot be set when recording is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	engine := sim.NewSerialEngine()

	s := &Simulation{
		id:            xid.New().String(),
		engine:        engine,
		simulator:     sim.NewSimulator(engine),
		node:          b.node,
		compNameIndex: make(map[string]int),
	}

	if s.node == nil {
		s.node = messaging.NewMemoryNode()
	}

	if b.recordingOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "simbridge_" + s.id
		}

		s.dataRecorder = datarecording.New(outputPath)
		s.tracer = datarecording.NewDeliveryTracer(s.dataRecorder, engine)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		if b.autoOpen {
			s.monitor.WithAutoOpen()
		}
		s.monitor.RegisterEngine(engine)
		s.monitor.StartServer()
	}

	return s
}
