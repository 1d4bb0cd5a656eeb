package sim

import (
	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type cloneTracked struct {
	value  int
	cloned bool
}

func (c *cloneTracked) CloneState() any {
	return &cloneTracked{value: c.value, cloned: true}
}

var _ = ginkgo.Describe("Context", func() {
	var ctx *Context

	ginkgo.BeforeEach(func() {
		ctx = NewContext()
	})

	ginkgo.It("should store and retrieve state", func() {
		ref := DeclareState()

		ctx.SetState(ref, 42)

		Expect(ctx.State(ref)).To(Equal(42))
		Expect(ctx.MustState(ref)).To(Equal(42))
	})

	ginkgo.It("should return nil for unset slots", func() {
		ref := DeclareState()

		Expect(ctx.State(ref)).To(BeNil())
	})

	ginkgo.It("should panic when must-reading an unset slot", func() {
		ref := DeclareState()

		Expect(func() { ctx.MustState(ref) }).To(Panic())
	})

	ginkgo.It("should keep slots of different components separate", func() {
		ref1 := DeclareState()
		ref2 := DeclareState()

		ctx.SetState(ref1, "a")
		ctx.SetState(ref2, "b")

		Expect(ctx.State(ref1)).To(Equal("a"))
		Expect(ctx.State(ref2)).To(Equal("b"))
	})

	ginkgo.It("should clone values through Cloner", func() {
		ref := DeclareState()
		ctx.SetState(ref, &cloneTracked{value: 7})

		clone := ctx.Clone()

		cloned := clone.State(ref).(*cloneTracked)
		Expect(cloned.value).To(Equal(7))
		Expect(cloned.cloned).To(BeTrue())
		Expect(cloned).ToNot(BeIdenticalTo(ctx.State(ref)))
	})

	ginkgo.It("should copy plain values by assignment", func() {
		ref := DeclareState()
		ctx.SetState(ref, "payload")

		clone := ctx.Clone()
		ctx.SetState(ref, "changed")

		Expect(clone.State(ref)).To(Equal("payload"))
	})
})
