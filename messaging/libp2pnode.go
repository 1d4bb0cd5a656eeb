package messaging

import (
	"context"
	"fmt"
	"log"
	"sync"

	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// Libp2pConfig configures a gossipsub-backed messaging node.
type Libp2pConfig struct {
	// ListenAddrs are multiaddrs to listen on. Defaults to a random TCP
	// port on all interfaces.
	ListenAddrs []string

	// Bootstrap are multiaddrs of peers to connect to at startup.
	Bootstrap []string
}

// Libp2pNode is a messaging node backed by libp2p gossipsub. It lets
// bridges in different processes share topics.
type Libp2pNode struct {
	ctx    context.Context
	cancel context.CancelFunc

	host host.Host
	ps   *pubsub.PubSub

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewLibp2pNode creates a gossipsub node with the given configuration.
func NewLibp2pNode(
	parent context.Context,
	cfg Libp2pConfig,
) (*Libp2pNode, error) {
	ctx, cancel := context.WithCancel(parent)

	listenAddrs := cfg.ListenAddrs
	if len(listenAddrs) == 0 {
		listenAddrs = []string{"/ip4/0.0.0.0/tcp/0"}
	}

	h, err := libp2p.New(libp2p.ListenAddrStrings(listenAddrs...))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		_ = h.Close()
		cancel()
		return nil, fmt.Errorf("create gossipsub: %w", err)
	}

	n := &Libp2pNode{
		ctx:    ctx,
		cancel: cancel,
		host:   h,
		ps:     ps,
		topics: make(map[string]*pubsub.Topic),
	}

	n.connectBootstrapPeers(cfg.Bootstrap)

	return n, nil
}

func (n *Libp2pNode) connectBootstrapPeers(addrs []string) {
	for _, raw := range addrs {
		if raw == "" {
			continue
		}

		addr, err := ma.NewMultiaddr(raw)
		if err != nil {
			log.Printf("messaging: skip bootstrap addr %q: %v", raw, err)
			continue
		}

		info, err := peer.AddrInfoFromP2pAddr(addr)
		if err != nil {
			log.Printf("messaging: skip bootstrap addr %q: %v", raw, err)
			continue
		}

		if err := n.host.Connect(n.ctx, *info); err != nil {
			log.Printf("messaging: bootstrap connect failed %s: %v",
				info.ID, err)
		}
	}
}

// Publish sends the payload to all peers subscribed to the topic, including
// subscriptions on this node.
func (n *Libp2pNode) Publish(topic string, payload []byte) error {
	t, err := n.getOrJoinTopic(topic)
	if err != nil {
		return err
	}

	return t.Publish(n.ctx, payload)
}

// Subscribe registers a delivery callback for the topic. Messages are read
// by a goroutine owned by the node and handed to the callback one at a time.
func (n *Libp2pNode) Subscribe(
	topic string,
	queueDepth int,
	fn DeliveryHandler,
) (Subscription, error) {
	if queueDepth <= 0 {
		return nil, fmt.Errorf("messaging: queue depth must be positive")
	}

	if fn == nil {
		return nil, fmt.Errorf("messaging: delivery handler must not be nil")
	}

	t, err := n.getOrJoinTopic(topic)
	if err != nil {
		return nil, err
	}

	sub, err := t.Subscribe(pubsub.WithBufferSize(queueDepth))
	if err != nil {
		return nil, err
	}

	s := &libp2pSubscription{
		topic: topic,
		sub:   sub,
		done:  make(chan struct{}),
	}

	go s.read(n.ctx, fn)

	return s, nil
}

func (n *Libp2pNode) getOrJoinTopic(topic string) (*pubsub.Topic, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if t, ok := n.topics[topic]; ok {
		return t, nil
	}

	t, err := n.ps.Join(topic)
	if err != nil {
		return nil, fmt.Errorf("join topic %q: %w", topic, err)
	}

	n.topics[topic] = t

	return t, nil
}

// Close shuts the node down. Subscriptions stop delivering once their
// readers observe the cancellation.
func (n *Libp2pNode) Close() error {
	n.cancel()
	return n.host.Close()
}

type libp2pSubscription struct {
	topic string
	sub   *pubsub.Subscription
	done  chan struct{}
}

func (s *libp2pSubscription) Topic() string {
	return s.topic
}

// Unsubscribe cancels the subscription and waits for the reader goroutine to
// finish its in-flight callback, if any.
func (s *libp2pSubscription) Unsubscribe() {
	s.sub.Cancel()
	<-s.done
}

func (s *libp2pSubscription) read(ctx context.Context, fn DeliveryHandler) {
	defer close(s.done)

	for {
		msg, err := s.sub.Next(ctx)
		if err != nil {
			return
		}

		fn(msg.Data)
	}
}
