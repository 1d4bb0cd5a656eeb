package bridge

import (
	"log"

	"github.com/sarchlab/simbridge/messaging"
	"github.com/sarchlab/simbridge/sim"
)

// HookPosPublish marks when the bridge publishes a value to the messaging
// layer.
var HookPosPublish = &sim.HookPos{Name: "Bridge Publish"}

// DefaultPublishPeriod is the default interval between two publishes.
const DefaultPublishPeriod = sim.VTimeInSec(0.25)

// publisherState tracks the periodic publish schedule of a publisher
// bridge. scheduled marks that the next publish event is already requested.
type publisherState struct {
	nextAt    sim.VTimeInSec
	scheduled bool
	published uint64
}

// A PublisherBridge periodically publishes a simulator-computed value to a
// messaging topic.
//
// The value is produced by a source callback that reads context state only,
// so publishing is a pure function of the timeline being driven. All
// publishing happens on the simulator goroutine; unlike the subscriber
// side, there is no cross-thread hazard here.
type PublisherBridge struct {
	*sim.ComponentBase

	topic  string
	period sim.VTimeInSec
	node   messaging.Node
	codec  messaging.Codec
	source func(ctx *sim.Context) any

	stateRef sim.StateRef
}

// PublisherBuilder builds PublisherBridges.
type PublisherBuilder struct {
	node   messaging.Node
	codec  messaging.Codec
	source func(ctx *sim.Context) any
	period sim.VTimeInSec
}

// MakePublisherBuilder creates a PublisherBuilder with default parameters.
func MakePublisherBuilder() PublisherBuilder {
	return PublisherBuilder{
		codec:  messaging.JSONCodec{},
		period: DefaultPublishPeriod,
	}
}

// WithNode sets the messaging node to publish through.
func (b PublisherBuilder) WithNode(n messaging.Node) PublisherBuilder {
	b.node = n
	return b
}

// WithCodec sets the codec used to encode values. Defaults to JSON.
func (b PublisherBuilder) WithCodec(c messaging.Codec) PublisherBuilder {
	b.codec = c
	return b
}

// WithSource sets the callback that computes the value to publish. The
// callback must read context state only.
func (b PublisherBuilder) WithSource(
	source func(ctx *sim.Context) any,
) PublisherBuilder {
	b.source = source
	return b
}

// WithPublishPeriod sets the interval between two publishes.
func (b PublisherBuilder) WithPublishPeriod(
	period sim.VTimeInSec,
) PublisherBuilder {
	b.period = period
	return b
}

// Build creates a PublisherBridge that publishes to the given topic. The
// first publish happens at time 0, then once per period.
func (b PublisherBuilder) Build(name, topic string) *PublisherBridge {
	if b.node == nil {
		log.Panic("publisher bridge requires a messaging node")
	}

	if b.source == nil {
		log.Panic("publisher bridge requires a source")
	}

	if b.period <= 0 {
		log.Panic("publish period must be positive")
	}

	return &PublisherBridge{
		ComponentBase: sim.NewComponentBase(name),
		topic:         topic,
		period:        b.period,
		node:          b.node,
		codec:         b.codec,
		source:        b.source,
		stateRef:      sim.DeclareState(),
	}
}

// SetDefaultState schedules the first publish at time 0.
func (p *PublisherBridge) SetDefaultState(ctx *sim.Context) {
	ctx.SetState(p.stateRef, publisherState{})
}

// CalcNextUpdateTime reports the next publish time.
func (p *PublisherBridge) CalcNextUpdateTime(
	ctx *sim.Context,
) (sim.VTimeInSec, bool) {
	st := p.state(ctx)

	if st.scheduled {
		return st.nextAt, false
	}

	st.scheduled = true
	ctx.SetState(p.stateRef, st)

	return st.nextAt, true
}

// ApplyUpdate encodes the source value, publishes it, and schedules the
// next publish one period later.
func (p *PublisherBridge) ApplyUpdate(ctx *sim.Context) {
	v := p.source(ctx)

	payload, err := p.codec.Encode(v)
	if err != nil {
		log.Panicf("publisher bridge cannot encode value for %s: %v",
			p.topic, err)
	}

	if err := p.node.Publish(p.topic, payload); err != nil {
		log.Printf("publisher bridge failed to publish to %s: %v",
			p.topic, err)
	}

	st := p.state(ctx)
	st.published++
	st.nextAt += p.period
	st.scheduled = false
	ctx.SetState(p.stateRef, st)

	if p.NumHooks() > 0 {
		p.InvokeHook(sim.HookCtx{
			Domain: p,
			Pos:    HookPosPublish,
			Item:   v,
			Detail: st.published,
		})
	}
}

func (p *PublisherBridge) state(ctx *sim.Context) publisherState {
	return ctx.MustState(p.stateRef).(publisherState)
}

// TopicName returns the topic the bridge publishes to.
func (p *PublisherBridge) TopicName() string {
	return p.topic
}

// PublishCount returns how many publishes have happened in the given
// context.
func (p *PublisherBridge) PublishCount(ctx *sim.Context) uint64 {
	return p.state(ctx).published
}
