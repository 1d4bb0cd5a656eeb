package messaging

import (
	"errors"
	"sync"
)

// MemoryNode is a process-local messaging node. It is the default transport
// for tests and single-process simulations.
type MemoryNode struct {
	mu     sync.RWMutex
	closed bool
	nextID int
	subs   map[string]map[int]*memorySubscription
}

// NewMemoryNode creates an in-process messaging node.
func NewMemoryNode() *MemoryNode {
	return &MemoryNode{
		subs: make(map[string]map[int]*memorySubscription),
	}
}

// Publish delivers the payload to every subscription of the topic. The
// payload is copied once so that later mutation by the caller cannot be
// observed by subscribers.
func (n *MemoryNode) Publish(topic string, payload []byte) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return errors.New("messaging: node is closed")
	}

	for _, s := range n.subs[topic] {
		s.enqueue(append([]byte(nil), payload...))
	}

	return nil
}

// Subscribe registers a delivery callback for the topic. The callback is
// invoked on a dispatch goroutine owned by the node, one message at a time.
func (n *MemoryNode) Subscribe(
	topic string,
	queueDepth int,
	fn DeliveryHandler,
) (Subscription, error) {
	if queueDepth <= 0 {
		return nil, errors.New("messaging: queue depth must be positive")
	}

	if fn == nil {
		return nil, errors.New("messaging: delivery handler must not be nil")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, errors.New("messaging: node is closed")
	}

	if _, ok := n.subs[topic]; !ok {
		n.subs[topic] = make(map[int]*memorySubscription)
	}

	id := n.nextID
	n.nextID++

	s := &memorySubscription{
		node:  n,
		topic: topic,
		id:    id,
		queue: make(chan []byte, queueDepth),
		done:  make(chan struct{}),
	}
	n.subs[topic][id] = s

	go s.dispatch(fn)

	return s, nil
}

// Close unsubscribes every subscription and rejects further use of the node.
func (n *MemoryNode) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true

	var all []*memorySubscription
	for _, byID := range n.subs {
		for _, s := range byID {
			all = append(all, s)
		}
	}
	n.subs = make(map[string]map[int]*memorySubscription)
	n.mu.Unlock()

	for _, s := range all {
		s.shutdown()
	}

	return nil
}

type memorySubscription struct {
	node  *MemoryNode
	topic string
	id    int

	queue chan []byte
	done  chan struct{}

	shutdownOnce sync.Once
}

func (s *memorySubscription) Topic() string {
	return s.topic
}

// Unsubscribe detaches the subscription from the node and waits until the
// dispatch goroutine has drained and exited. After Unsubscribe returns, the
// delivery callback can no longer be invoked.
func (s *memorySubscription) Unsubscribe() {
	s.node.mu.Lock()
	if byID, ok := s.node.subs[s.topic]; ok {
		delete(byID, s.id)
		if len(byID) == 0 {
			delete(s.node.subs, s.topic)
		}
	}
	s.node.mu.Unlock()

	s.shutdown()
}

func (s *memorySubscription) shutdown() {
	s.shutdownOnce.Do(func() { close(s.queue) })
	<-s.done
}

// enqueue inserts a payload, dropping the oldest pending payload when the
// queue is full. The caller holds the node's read lock, so enqueue can never
// race with close.
func (s *memorySubscription) enqueue(payload []byte) {
	for {
		select {
		case s.queue <- payload:
			return
		default:
		}

		select {
		case <-s.queue:
		default:
		}
	}
}

func (s *memorySubscription) dispatch(fn DeliveryHandler) {
	for payload := range s.queue {
		fn(payload)
	}

	close(s.done)
}
