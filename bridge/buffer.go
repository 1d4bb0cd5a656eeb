// Package bridge connects push-based messaging topics to the pull-based
// simulation scheduler. A SubscriberBridge makes the most recent message of
// a topic observable as simulator state; a PublisherBridge periodically
// publishes simulator-computed values back to a topic.
package bridge

import "sync"

// messageBuffer is a single-slot, latest-wins mailbox between the messaging
// layer's delivery goroutine and the simulator goroutine.
//
// The buffer holds the most recently delivered payload together with a
// counter of how many deliveries have happened. A delivery that arrives
// before the previous one was consumed overwrites it; only the latest
// payload survives. The mutex is the only guard of the pair and is held for
// no longer than a single read or write.
type messageBuffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	payload any
	count   uint64
}

func newMessageBuffer() *messageBuffer {
	b := &messageBuffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// deliver replaces the pending payload, increments the delivery counter, and
// wakes all waiters. It is safe to call from any goroutine.
func (b *messageBuffer) deliver(payload any) {
	b.mu.Lock()
	b.payload = payload
	b.count++
	b.cond.Broadcast()
	b.mu.Unlock()
}

// load returns a consistent (payload, counter) pair.
func (b *messageBuffer) load() (any, uint64) {
	b.mu.Lock()
	p := b.payload
	c := b.count
	b.mu.Unlock()

	return p, c
}

// counter returns the current delivery counter.
func (b *messageBuffer) counter() uint64 {
	b.mu.Lock()
	c := b.count
	b.mu.Unlock()

	return c
}

// waitForChange blocks the calling goroutine until the delivery counter
// differs from known, and returns the new counter. The loop re-checks the
// predicate after every wake to guard against spurious wakeups. The lock is
// released while blocked.
func (b *messageBuffer) waitForChange(known uint64) uint64 {
	b.mu.Lock()

	for b.count == known {
		b.cond.Wait()
	}

	c := b.count
	b.mu.Unlock()

	return c
}
