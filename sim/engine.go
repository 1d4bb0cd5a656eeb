package sim

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	Schedule(e Event)
}

// An Engine is a unit that keeps the discrete event simulation run.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// NextEventTime returns the time of the earliest scheduled event. The
	// second return value is false when no event is scheduled.
	NextEventTime() (VTimeInSec, bool)

	// RunUntil processes all the events scheduled at or before the given
	// time and then advances the engine clock to that time.
	RunUntil(t VTimeInSec) error

	// Run will process all the events until the simulation finishes
	Run() error
}
