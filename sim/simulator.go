package sim

import "log"

// HookPosUpdateScheduled marks when the simulator schedules a commit event
// for an update source.
var HookPosUpdateScheduled = &HookPos{Name: "Update Scheduled"}

// A Simulator drives a set of update sources against one engine and one
// context, following the two-phase poll/commit cycle.
//
// Before each batch of events, the simulator polls every source for its next
// update time and schedules a commit event for each source that reports one.
// When a commit event fires, the simulator invokes the source's ApplyUpdate
// with the context, so that all state mutation happens in scheduler-time
// order on the simulator goroutine.
//
// A Simulator assumes at most one concurrent caller. Driving the same
// Simulator from two goroutines is undefined.
type Simulator struct {
	HookableBase

	engine      Engine
	context     *Context
	sources     []UpdateSource
	initialized bool
}

// NewSimulator creates a Simulator on top of the given engine.
func NewSimulator(engine Engine) *Simulator {
	if engine == nil {
		log.Panic("simulator requires an engine")
	}

	return &Simulator{
		engine:  engine,
		context: NewContext(),
	}
}

// Engine returns the engine that the simulator runs on.
func (s *Simulator) Engine() Engine {
	return s.engine
}

// Context returns the context that holds all the component state.
func (s *Simulator) Context() *Context {
	return s.context
}

// RegisterSource registers an update source to be driven by the simulator.
func (s *Simulator) RegisterSource(src UpdateSource) {
	if s.initialized {
		log.Panic("cannot register sources after initialization")
	}

	s.sources = append(s.sources, src)
}

// Initialize populates the default state of every registered source.
func (s *Simulator) Initialize() {
	if s.initialized {
		log.Panic("simulator already initialized")
	}

	for _, src := range s.sources {
		src.SetDefaultState(s.context)
	}

	s.initialized = true
}

// StepTo runs the simulation up to the given time. Update events reported by
// the sources are committed along the way, in time order, and the engine
// clock ends at exactly the given time.
func (s *Simulator) StepTo(t VTimeInSec) error {
	if !s.initialized {
		log.Panic("simulator must be initialized before stepping")
	}

	if t < s.engine.CurrentTime() {
		log.Panic("cannot step to a time in the past")
	}

	for {
		s.pollSources()

		evtTime, hasEvt := s.engine.NextEventTime()
		if !hasEvt || evtTime > t {
			return s.engine.RunUntil(t)
		}

		if err := s.engine.RunUntil(evtTime); err != nil {
			return err
		}
	}
}

func (s *Simulator) pollSources() {
	for _, src := range s.sources {
		updateTime, needSchedule := src.CalcNextUpdateTime(s.context)
		if !needSchedule {
			continue
		}

		evt := commitEvent{
			EventBase: NewEventBase(updateTime, s),
			source:    src,
		}
		s.engine.Schedule(evt)

		s.InvokeHook(HookCtx{
			Domain: s,
			Pos:    HookPosUpdateScheduled,
			Item:   src,
			Detail: updateTime,
		})
	}
}

// Handle commits the update of the source carried by a commit event.
func (s *Simulator) Handle(e Event) error {
	evt := e.(commitEvent)
	evt.source.ApplyUpdate(s.context)
	return nil
}

// A commitEvent carries one pending source update to its commit time.
type commitEvent struct {
	*EventBase
	source UpdateSource
}
