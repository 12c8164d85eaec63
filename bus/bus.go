// Package bus is the topic-addressed transport connecting the agents of one
// run. Publish is fire-and-forget: messages are queued per subscriber and
// delivered in the order a given publisher issued them. There is no ordering
// across publishers, no deduplication, and no wildcard subscription; a
// publish to a topic nobody subscribed to is a silent no-op.
package bus

import (
	"context"
	"log/slog"
	"sync"

	"agent-lab/domain"
)

type Bus struct {
	mu   sync.RWMutex
	subs map[string][]*Subscription
	log  *slog.Logger
}

func New(log *slog.Logger) *Bus {
	return &Bus{
		subs: make(map[string][]*Subscription),
		log:  log,
	}
}

// Subscribe attaches a named inbox to one or more topics. Messages published
// to any of the topics land in the same inbox, in publish order. The
// subscription must exist before the first publish it wants to observe.
func (b *Bus) Subscribe(name string, topics ...string) *Subscription {
	sub := &Subscription{
		name:   name,
		notify: make(chan struct{}, 1),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range topics {
		b.subs[topic] = append(b.subs[topic], sub)
	}
	return sub
}

// Publish enqueues msg for every current subscriber of topic. It never
// blocks: inboxes grow as needed so a slow consumer cannot stall a publisher
// or lose a message.
func (b *Bus) Publish(topic string, msg domain.BusMessage) {
	b.mu.RLock()
	subs := b.subs[topic]
	b.mu.RUnlock()

	if len(subs) == 0 {
		b.log.Debug("No subscriber for topic", "topic", topic)
		return
	}

	for _, sub := range subs {
		sub.enqueue(msg)
	}
}

// Subscription is a single consumer inbox. Receive is the only consumer-side
// operation; it is safe for one goroutine at a time.
type Subscription struct {
	name   string
	mu     sync.Mutex
	queue  []domain.BusMessage
	notify chan struct{}
}

func (s *Subscription) enqueue(msg domain.BusMessage) {
	s.mu.Lock()
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Receive blocks until a message is available or ctx is canceled.
func (s *Subscription) Receive(ctx context.Context) (domain.BusMessage, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			msg := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return msg, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.notify:
		}
	}
}

// Pending reports how many messages are waiting in the inbox.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
