package bridge

import (
	"log"

	"github.com/sarchlab/simbridge/messaging"
	"github.com/sarchlab/simbridge/sim"
)

// HookPosDeliver marks when a message is delivered into the bridge's buffer.
// The hook is invoked on the messaging layer's delivery goroutine.
var HookPosDeliver = &sim.HookPos{Name: "Bridge Deliver"}

// HookPosRefreshSchedule marks when a poll detects new deliveries and
// requests a refresh event.
var HookPosRefreshSchedule = &sim.HookPos{Name: "Bridge Refresh Schedule"}

// HookPosCommit marks when a refresh event copies the buffer into the
// snapshot state.
var HookPosCommit = &sim.HookPos{Name: "Bridge Commit"}

// DefaultRefreshDelay is the default offset between the poll that detects
// new deliveries and the refresh event it requests. The offset keeps the
// refresh strictly after the current time, since the engine forbids
// zero-duration same-instant rescheduling during a poll.
const DefaultRefreshDelay = sim.VTimeInSec(0.0001)

// DefaultQueueDepth is the default messaging-layer queue depth of a
// subscriber bridge.
const DefaultQueueDepth = 100

// subscriberState is the scheduler-owned snapshot of a subscriber bridge.
// payload and count mirror the buffer as of the last commit. stale marks
// that a refresh event is scheduled but not yet applied.
type subscriberState struct {
	payload   any
	count     uint64
	stale     bool
	refreshAt sim.VTimeInSec
}

// A SubscriberBridge makes the messages of one topic observable as
// simulator state.
//
// Messages delivered by the messaging layer land in an internal latest-wins
// buffer. On each poll, the bridge compares the buffer's delivery counter
// with the snapshot stored in the context and requests a refresh event when
// they differ. The refresh event copies the buffer into the snapshot, and
// the output port only ever reads the snapshot. The output is therefore
// always consistent with scheduler time, never with the concurrently
// mutated buffer.
type SubscriberBridge struct {
	*sim.ComponentBase

	topic        string
	refreshDelay sim.VTimeInSec
	timeTeller   sim.TimeTeller
	allocator    func() any

	buf      *messageBuffer
	sub      messaging.Subscription
	stateRef sim.StateRef
	out      *sim.OutputPort
}

// SubscriberBuilder builds SubscriberBridges.
type SubscriberBuilder struct {
	node         messaging.Node
	timeTeller   sim.TimeTeller
	codec        messaging.Codec
	allocator    func() any
	refreshDelay sim.VTimeInSec
	queueDepth   int
}

// MakeSubscriberBuilder creates a SubscriberBuilder with default
// parameters.
func MakeSubscriberBuilder() SubscriberBuilder {
	return SubscriberBuilder{
		codec:        messaging.JSONCodec{},
		refreshDelay: DefaultRefreshDelay,
		queueDepth:   DefaultQueueDepth,
	}
}

// WithNode sets the messaging node to subscribe through.
func (b SubscriberBuilder) WithNode(n messaging.Node) SubscriberBuilder {
	b.node = n
	return b
}

// WithTimeTeller sets the source of the current scheduler time, usually the
// engine.
func (b SubscriberBuilder) WithTimeTeller(tt sim.TimeTeller) SubscriberBuilder {
	b.timeTeller = tt
	return b
}

// WithCodec sets the codec used to decode wire payloads. Defaults to JSON.
func (b SubscriberBuilder) WithCodec(c messaging.Codec) SubscriberBuilder {
	b.codec = c
	return b
}

// WithAllocator sets the allocator of the message type. The allocator must
// return a pointer to a fresh zero value.
func (b SubscriberBuilder) WithAllocator(alloc func() any) SubscriberBuilder {
	b.allocator = alloc
	return b
}

// WithRefreshDelay overrides the offset between a poll that detects new
// deliveries and the refresh event it requests. The right value depends on
// the host scheduler's time-comparison semantics, so it is a parameter
// rather than a constant.
func (b SubscriberBuilder) WithRefreshDelay(
	d sim.VTimeInSec,
) SubscriberBuilder {
	b.refreshDelay = d
	return b
}

// WithQueueDepth overrides the messaging-layer queue depth.
func (b SubscriberBuilder) WithQueueDepth(depth int) SubscriberBuilder {
	b.queueDepth = depth
	return b
}

// Build creates a SubscriberBridge subscribed to the given topic. Build
// panics when no messaging node is configured, since no bridge can function
// without one.
func (b SubscriberBuilder) Build(name, topic string) *SubscriberBridge {
	if b.node == nil {
		log.Panic("subscriber bridge requires a messaging node")
	}

	if b.timeTeller == nil {
		log.Panic("subscriber bridge requires a time teller")
	}

	if b.allocator == nil {
		log.Panic("subscriber bridge requires a message allocator")
	}

	if b.refreshDelay <= 0 {
		log.Panic("refresh delay must be positive")
	}

	s := &SubscriberBridge{
		ComponentBase: sim.NewComponentBase(name),
		topic:         topic,
		refreshDelay:  b.refreshDelay,
		timeTeller:    b.timeTeller,
		allocator:     b.allocator,
		buf:           newMessageBuffer(),
		stateRef:      sim.DeclareState(),
	}

	s.out = s.DeclareOutputPort("Output", b.allocator,
		func(ctx *sim.Context) any {
			return s.state(ctx).payload
		})

	sub, err := messaging.SubscribeDecoded(
		b.node, topic, b.queueDepth, b.codec, b.allocator, s.handleMessage)
	if err != nil {
		log.Panicf("subscriber bridge cannot subscribe to %s: %v", topic, err)
	}
	s.sub = sub

	return s
}

// handleMessage is the delivery callback. It runs on the messaging layer's
// goroutine and must not block beyond the buffer's lock hold time.
func (s *SubscriberBridge) handleMessage(v any) {
	s.buf.deliver(v)

	if s.NumHooks() > 0 {
		s.InvokeHook(sim.HookCtx{
			Domain: s,
			Pos:    HookPosDeliver,
			Item:   v,
		})
	}
}

// SetDefaultState populates the snapshot with whatever the buffer holds at
// this instant. Before any delivery that is the zero message and counter 0.
func (s *SubscriberBridge) SetDefaultState(ctx *sim.Context) {
	payload, count := s.buf.load()
	if payload == nil {
		payload = s.allocator()
	}

	ctx.SetState(s.stateRef, subscriberState{
		payload: payload,
		count:   count,
	})
}

// CalcNextUpdateTime compares the live delivery counter with the snapshot
// counter and requests a refresh event slightly after the current time when
// they differ. While a refresh is pending, the pending time is reported
// without requesting a second event.
func (s *SubscriberBridge) CalcNextUpdateTime(
	ctx *sim.Context,
) (sim.VTimeInSec, bool) {
	st := s.state(ctx)

	if st.stale {
		return st.refreshAt, false
	}

	if s.buf.counter() == st.count {
		return 0, false
	}

	st.stale = true
	st.refreshAt = s.timeTeller.CurrentTime() + s.refreshDelay
	ctx.SetState(s.stateRef, st)

	if s.NumHooks() > 0 {
		s.InvokeHook(sim.HookCtx{
			Domain: s,
			Pos:    HookPosRefreshSchedule,
			Detail: st.refreshAt,
		})
	}

	return st.refreshAt, true
}

// ApplyUpdate copies the buffer's (payload, counter) pair into the snapshot
// and returns the bridge to the synced state. Deliveries that happened
// between the poll and this commit are included; intermediate payloads are
// not observable.
func (s *SubscriberBridge) ApplyUpdate(ctx *sim.Context) {
	payload, count := s.buf.load()

	st := s.state(ctx)
	st.payload = payload
	st.count = count
	st.stale = false
	ctx.SetState(s.stateRef, st)

	if s.NumHooks() > 0 {
		s.InvokeHook(sim.HookCtx{
			Domain: s,
			Pos:    HookPosCommit,
			Item:   payload,
			Detail: count,
		})
	}
}

func (s *SubscriberBridge) state(ctx *sim.Context) subscriberState {
	return ctx.MustState(s.stateRef).(subscriberState)
}

// Output returns the port that exposes the snapshot payload.
func (s *SubscriberBridge) Output() *sim.OutputPort {
	return s.out
}

// TopicName returns the topic the bridge subscribes to.
func (s *SubscriberBridge) TopicName() string {
	return s.topic
}

// MessageCount returns the delivery counter stored in the given context,
// i.e. the counter as of the last commit.
func (s *SubscriberBridge) MessageCount(ctx *sim.Context) uint64 {
	return s.state(ctx).count
}

// LiveMessageCount returns the delivery counter of the internal buffer. It
// may be ahead of MessageCount while a refresh is pending.
func (s *SubscriberBridge) LiveMessageCount() uint64 {
	return s.buf.counter()
}

// WaitForDelivery blocks until the live delivery counter differs from
// previous, and returns the new counter. It is meant for callers that drive
// the simulator manually and want to synchronize their poll/commit cycle to
// real deliveries instead of busy-polling. There is no timeout; a caller
// blocks until the next delivery arrives.
func (s *SubscriberBridge) WaitForDelivery(previous uint64) uint64 {
	return s.buf.waitForChange(previous)
}

// Unsubscribe detaches the bridge from the messaging layer. It returns only
// after no in-flight delivery callback can still reference the bridge's
// buffer, so the bridge can be released afterwards.
func (s *SubscriberBridge) Unsubscribe() {
	s.sub.Unsubscribe()
}
