package sim

import (
	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = ginkgo.Describe("EventQueue", func() {
	var (
		mockCtrl *gomock.Controller
		queue    *EventQueueImpl
	)

	ginkgo.BeforeEach(func() {
		mockCtrl = gomock.NewController(ginkgo.GinkgoT())
		queue = NewEventQueue()
	})

	ginkgo.AfterEach(func() {
		mockCtrl.Finish()
	})

	event := func(t VTimeInSec) Event {
		evt := NewMockEvent(mockCtrl)
		evt.EXPECT().Time().Return(t).AnyTimes()
		return evt
	}

	ginkgo.It("should pop events in time order", func() {
		evt1 := event(2.0)
		evt2 := event(1.0)
		evt3 := event(3.0)

		queue.Push(evt1)
		queue.Push(evt2)
		queue.Push(evt3)

		Expect(queue.Len()).To(Equal(3))
		Expect(queue.Pop().Time()).To(Equal(VTimeInSec(1.0)))
		Expect(queue.Pop().Time()).To(Equal(VTimeInSec(2.0)))
		Expect(queue.Pop().Time()).To(Equal(VTimeInSec(3.0)))
	})

	ginkgo.It("should peek without removing", func() {
		queue.Push(event(1.5))

		Expect(queue.Peek().Time()).To(Equal(VTimeInSec(1.5)))
		Expect(queue.Len()).To(Equal(1))
	})
})
