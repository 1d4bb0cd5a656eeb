package messaging

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// recorder collects delivered payloads as strings.
type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) handle(payload []byte) {
	r.mu.Lock()
	r.msgs = append(r.msgs, string(payload))
	r.mu.Unlock()
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

var _ = Describe("MemoryNode", func() {
	var node *MemoryNode

	BeforeEach(func() {
		node = NewMemoryNode()
	})

	AfterEach(func() {
		Expect(node.Close()).To(Succeed())
	})

	It("should deliver to every subscriber of the topic", func() {
		r1 := &recorder{}
		r2 := &recorder{}

		_, err := node.Subscribe("t", 4, r1.handle)
		Expect(err).To(BeNil())
		_, err = node.Subscribe("t", 4, r2.handle)
		Expect(err).To(BeNil())

		Expect(node.Publish("t", []byte("hello"))).To(Succeed())

		Eventually(r1.messages).Should(Equal([]string{"hello"}))
		Eventually(r2.messages).Should(Equal([]string{"hello"}))
	})

	It("should not deliver across topics", func() {
		r := &recorder{}
		_, err := node.Subscribe("a", 4, r.handle)
		Expect(err).To(BeNil())

		Expect(node.Publish("b", []byte("stray"))).To(Succeed())
		Expect(node.Publish("a", []byte("mine"))).To(Succeed())

		Eventually(r.messages).Should(Equal([]string{"mine"}))
		Consistently(r.messages).Should(Equal([]string{"mine"}))
	})

	It("should deliver in publish order on one subscription", func() {
		r := &recorder{}
		_, err := node.Subscribe("t", 16, r.handle)
		Expect(err).To(BeNil())

		for _, m := range []string{"1", "2", "3", "4"} {
			Expect(node.Publish("t", []byte(m))).To(Succeed())
		}

		Eventually(r.messages).Should(Equal([]string{"1", "2", "3", "4"}))
	})

	It("should drop the oldest pending message when the queue is full", func() {
		started := make(chan struct{}, 8)
		gate := make(chan struct{})
		r := &recorder{}

		_, err := node.Subscribe("t", 2, func(payload []byte) {
			started <- struct{}{}
			<-gate
			r.handle(payload)
		})
		Expect(err).To(BeNil())

		Expect(node.Publish("t", []byte("1"))).To(Succeed())
		Eventually(started).Should(Receive())

		Expect(node.Publish("t", []byte("2"))).To(Succeed())
		Expect(node.Publish("t", []byte("3"))).To(Succeed())
		Expect(node.Publish("t", []byte("4"))).To(Succeed())

		close(gate)

		Eventually(r.messages).Should(Equal([]string{"1", "3", "4"}))
	})

	It("should not return from Unsubscribe while a callback runs", func() {
		started := make(chan struct{})
		gate := make(chan struct{})

		sub, err := node.Subscribe("t", 4, func(payload []byte) {
			close(started)
			<-gate
		})
		Expect(err).To(BeNil())

		Expect(node.Publish("t", []byte("x"))).To(Succeed())
		Eventually(started).Should(BeClosed())

		unsubscribed := make(chan struct{})
		go func() {
			sub.Unsubscribe()
			close(unsubscribed)
		}()

		Consistently(unsubscribed).ShouldNot(BeClosed())

		close(gate)

		Eventually(unsubscribed).Should(BeClosed())
	})

	It("should stop delivering after Unsubscribe", func() {
		r := &recorder{}
		sub, err := node.Subscribe("t", 4, r.handle)
		Expect(err).To(BeNil())

		Expect(node.Publish("t", []byte("before"))).To(Succeed())
		Eventually(r.messages).Should(Equal([]string{"before"}))

		sub.Unsubscribe()

		Expect(node.Publish("t", []byte("after"))).To(Succeed())
		Consistently(r.messages).Should(Equal([]string{"before"}))
	})

	It("should copy the payload on publish", func() {
		r := &recorder{}
		_, err := node.Subscribe("t", 4, r.handle)
		Expect(err).To(BeNil())

		payload := []byte("orig")
		Expect(node.Publish("t", payload)).To(Succeed())
		copy(payload, "xxxx")

		Eventually(r.messages).Should(Equal([]string{"orig"}))
	})

	It("should report the subscribed topic", func() {
		sub, err := node.Subscribe("t", 4, func(payload []byte) {})
		Expect(err).To(BeNil())

		Expect(sub.Topic()).To(Equal("t"))
	})

	It("should reject invalid subscriptions", func() {
		_, err := node.Subscribe("t", 0, func(payload []byte) {})
		Expect(err).ToNot(BeNil())

		_, err = node.Subscribe("t", 4, nil)
		Expect(err).ToNot(BeNil())
	})

	It("should reject use after close", func() {
		Expect(node.Close()).To(Succeed())

		Expect(node.Publish("t", []byte("x"))).ToNot(Succeed())

		_, err := node.Subscribe("t", 4, func(payload []byte) {})
		Expect(err).ToNot(BeNil())
	})
})
