// Package messaging defines the push-based messaging layer that bridges
// consume. A Node delivers published payloads to subscription callbacks on
// goroutines owned by the messaging layer, with no relation to simulation
// time.
package messaging

// A DeliveryHandler is invoked with one payload per successful delivery. It
// may be invoked concurrently with handlers of other subscriptions, but
// never concurrently with itself on the same subscription.
type DeliveryHandler func(payload []byte)

// A Subscription is the handle returned by Node.Subscribe. The handle must
// outlive every component that registered the callback.
type Subscription interface {
	// Topic returns the topic the subscription listens on.
	Topic() string

	// Unsubscribe stops the delivery of messages. It returns only after any
	// in-flight callback invocation has completed, so that resources
	// referenced by the callback can be released afterwards.
	Unsubscribe()
}

// A Node connects to one messaging domain and can publish to topics and
// subscribe to them.
type Node interface {
	// Publish sends a payload to every subscriber of the topic. Publish
	// never blocks on slow subscribers.
	Publish(topic string, payload []byte) error

	// Subscribe registers a callback that is invoked once per delivered
	// message. Up to queueDepth messages are buffered between the publisher
	// and the callback; beyond that, the oldest pending messages are
	// dropped.
	Subscribe(topic string, queueDepth int, fn DeliveryHandler) (Subscription, error)

	// Close tears the node down, unsubscribing all subscriptions.
	Close() error
}
