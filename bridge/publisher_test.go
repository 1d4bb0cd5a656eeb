package bridge

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/simbridge/messaging"
	"github.com/sarchlab/simbridge/sim"
)

var _ = Describe("PublisherBridge", func() {
	var (
		node      *messaging.MemoryNode
		engine    *sim.SerialEngine
		simulator *sim.Simulator
	)

	BeforeEach(func() {
		node = messaging.NewMemoryNode()
		engine = sim.NewSerialEngine()
		simulator = sim.NewSimulator(engine)
	})

	AfterEach(func() {
		Expect(node.Close()).To(Succeed())
	})

	collect := func(topic string) func() []string {
		var mu sync.Mutex
		var texts []string

		_, err := messaging.SubscribeDecoded(
			node, topic, 16, messaging.JSONCodec{}, noteAllocator,
			func(v any) {
				mu.Lock()
				texts = append(texts, v.(*note).Text)
				mu.Unlock()
			})
		Expect(err).To(BeNil())

		return func() []string {
			mu.Lock()
			defer mu.Unlock()
			return append([]string(nil), texts...)
		}
	}

	It("should panic when built without a node", func() {
		Expect(func() {
			MakePublisherBuilder().
				WithSource(func(ctx *sim.Context) any { return note{} }).
				Build("Pub", "notes")
		}).To(Panic())
	})

	It("should panic when built without a source", func() {
		Expect(func() {
			MakePublisherBuilder().
				WithNode(node).
				Build("Pub", "notes")
		}).To(Panic())
	})

	It("should panic when built with a non-positive period", func() {
		Expect(func() {
			MakePublisherBuilder().
				WithNode(node).
				WithSource(func(ctx *sim.Context) any { return note{} }).
				WithPublishPeriod(0).
				Build("Pub", "notes")
		}).To(Panic())
	})

	It("should publish once per period, starting at time 0", func() {
		texts := collect("notes")

		pub := MakePublisherBuilder().
			WithNode(node).
			WithSource(func(ctx *sim.Context) any {
				return note{Text: "tick"}
			}).
			Build("Pub", "notes")

		simulator.RegisterSource(pub)
		simulator.Initialize()

		Expect(simulator.StepTo(1.0)).To(Succeed())

		Expect(pub.PublishCount(simulator.Context())).To(Equal(uint64(5)))
		Eventually(texts).Should(HaveLen(5))
		Expect(texts()[0]).To(Equal("tick"))
	})

	It("should honor a custom publish period", func() {
		texts := collect("notes")

		pub := MakePublisherBuilder().
			WithNode(node).
			WithPublishPeriod(0.5).
			WithSource(func(ctx *sim.Context) any {
				return note{Text: "slow"}
			}).
			Build("Pub", "notes")

		simulator.RegisterSource(pub)
		simulator.Initialize()

		Expect(simulator.StepTo(1.0)).To(Succeed())

		Expect(pub.PublishCount(simulator.Context())).To(Equal(uint64(3)))
		Eventually(texts).Should(HaveLen(3))
	})

	It("should publish values computed from context state", func() {
		texts := collect("notes")

		pub := MakePublisherBuilder().
			WithNode(node).
			WithSource(func(ctx *sim.Context) any {
				if engine.CurrentTime() >= 0.5 {
					return note{Text: "late"}
				}
				return note{Text: "early"}
			}).
			Build("Pub", "notes")

		simulator.RegisterSource(pub)
		simulator.Initialize()

		Expect(simulator.StepTo(1.0)).To(Succeed())

		Eventually(texts).Should(HaveLen(5))
		Expect(texts()).To(Equal(
			[]string{"early", "early", "late", "late", "late"}))
	})
})
