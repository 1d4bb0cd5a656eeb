package sim

import (
	"sync"
	"sync/atomic"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingHook struct {
	invocations atomic.Uint64
}

func (h *countingHook) Func(ctx HookCtx) {
	h.invocations.Add(1)
}

var _ = ginkgo.Describe("HookableBase", func() {
	var hookable *HookableBase

	ginkgo.BeforeEach(func() {
		hookable = NewHookableBase()
	})

	ginkgo.It("should invoke every registered hook", func() {
		h1 := &countingHook{}
		h2 := &countingHook{}
		hookable.AcceptHook(h1)
		hookable.AcceptHook(h2)

		hookable.InvokeHook(HookCtx{})
		hookable.InvokeHook(HookCtx{})

		Expect(h1.invocations.Load()).To(Equal(uint64(2)))
		Expect(h2.invocations.Load()).To(Equal(uint64(2)))
		Expect(hookable.NumHooks()).To(Equal(2))
	})

	ginkgo.It("should accept hooks while hooks are being invoked", func() {
		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				hookable.InvokeHook(HookCtx{})
			}
		}()

		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				hookable.AcceptHook(&countingHook{})
			}
		}()

		wg.Wait()

		Expect(hookable.NumHooks()).To(Equal(1000))
	})

	ginkgo.It("should let a hook register another hook", func() {
		hookable.AcceptHook(hookFunc(func(ctx HookCtx) {
			hookable.AcceptHook(&countingHook{})
		}))

		hookable.InvokeHook(HookCtx{})

		Expect(hookable.NumHooks()).To(Equal(2))
	})
})

type hookFunc func(ctx HookCtx)

func (f hookFunc) Func(ctx HookCtx) {
	f(ctx)
}
