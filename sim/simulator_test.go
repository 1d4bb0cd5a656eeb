package sim

import (
	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type periodicSourceState struct {
	nextAt    VTimeInSec
	scheduled bool
	fired     int
}

// periodicSource requests one update per period, up to a limit.
type periodicSource struct {
	ref    StateRef
	period VTimeInSec
	limit  int
	tt     TimeTeller

	applied []VTimeInSec
}

func newPeriodicSource(period VTimeInSec, limit int, tt TimeTeller) *periodicSource {
	return &periodicSource{
		ref:    DeclareState(),
		period: period,
		limit:  limit,
		tt:     tt,
	}
}

func (s *periodicSource) SetDefaultState(ctx *Context) {
	ctx.SetState(s.ref, periodicSourceState{nextAt: s.period})
}

func (s *periodicSource) CalcNextUpdateTime(ctx *Context) (VTimeInSec, bool) {
	st := ctx.MustState(s.ref).(periodicSourceState)

	if st.fired >= s.limit {
		return 0, false
	}

	if st.scheduled {
		return st.nextAt, false
	}

	st.scheduled = true
	ctx.SetState(s.ref, st)

	return st.nextAt, true
}

func (s *periodicSource) ApplyUpdate(ctx *Context) {
	st := ctx.MustState(s.ref).(periodicSourceState)

	s.applied = append(s.applied, s.tt.CurrentTime())

	st.fired++
	st.nextAt += s.period
	st.scheduled = false
	ctx.SetState(s.ref, st)
}

var _ = ginkgo.Describe("Simulator", func() {
	var (
		engine    *SerialEngine
		simulator *Simulator
	)

	ginkgo.BeforeEach(func() {
		engine = NewSerialEngine()
		simulator = NewSimulator(engine)
	})

	ginkgo.It("should populate default state on initialize", func() {
		src := newPeriodicSource(0.25, 100, engine)
		simulator.RegisterSource(src)

		simulator.Initialize()

		st := simulator.Context().MustState(src.ref).(periodicSourceState)
		Expect(st.nextAt).To(Equal(VTimeInSec(0.25)))
	})

	ginkgo.It("should commit updates in time order up to the boundary", func() {
		src := newPeriodicSource(0.3, 100, engine)
		simulator.RegisterSource(src)
		simulator.Initialize()

		err := simulator.StepTo(1.0)

		Expect(err).To(BeNil())
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(1.0)))
		Expect(src.applied).To(HaveLen(3))
		Expect(float64(src.applied[0])).To(BeNumerically("~", 0.3, 1e-9))
		Expect(float64(src.applied[1])).To(BeNumerically("~", 0.6, 1e-9))
		Expect(float64(src.applied[2])).To(BeNumerically("~", 0.9, 1e-9))
	})

	ginkgo.It("should commit exactly once per reported update", func() {
		src := newPeriodicSource(0.5, 1, engine)
		simulator.RegisterSource(src)
		simulator.Initialize()

		err := simulator.StepTo(2.0)

		Expect(err).To(BeNil())
		Expect(src.applied).To(HaveLen(1))
		Expect(float64(src.applied[0])).To(BeNumerically("~", 0.5, 1e-9))
	})

	ginkgo.It("should continue committing across multiple steps", func() {
		src := newPeriodicSource(0.4, 100, engine)
		simulator.RegisterSource(src)
		simulator.Initialize()

		Expect(simulator.StepTo(0.5)).To(Succeed())
		Expect(src.applied).To(HaveLen(1))

		Expect(simulator.StepTo(1.0)).To(Succeed())
		Expect(src.applied).To(HaveLen(2))
	})

	ginkgo.It("should panic when stepping before initialization", func() {
		Expect(func() { _ = simulator.StepTo(1.0) }).To(Panic())
	})

	ginkgo.It("should panic when registering after initialization", func() {
		simulator.Initialize()

		src := newPeriodicSource(0.5, 1, engine)
		Expect(func() { simulator.RegisterSource(src) }).To(Panic())
	})

	ginkgo.It("should panic when stepping backward", func() {
		simulator.Initialize()
		Expect(simulator.StepTo(1.0)).To(Succeed())

		Expect(func() { _ = simulator.StepTo(0.5) }).To(Panic())
	})
})
