package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer is the per-subscription event buffer. Sends never block:
// when a subscriber falls behind, events are dropped, matching the lossy
// contract of the real channel.
const subscriberBuffer = 16

// MemoryChannel is an in-process implementation of Notifier and Publisher.
// It backs single-process deployments and tests.
type MemoryChannel struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[*memorySubscription]struct{}
}

// NewMemoryChannel creates a new in-process notification channel.
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{
		subs: make(map[uuid.UUID]map[*memorySubscription]struct{}),
	}
}

// Subscribe opens a subscription scoped to one job ID.
func (c *MemoryChannel) Subscribe(ctx context.Context, jobID uuid.UUID) (Subscription, error) {
	sub := &memorySubscription{
		channel: c,
		jobID:   jobID,
		events:  make(chan Event, subscriberBuffer),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs[jobID] == nil {
		c.subs[jobID] = make(map[*memorySubscription]struct{})
	}
	c.subs[jobID][sub] = struct{}{}

	return sub, nil
}

// Publish delivers the event to every live subscription for its job ID.
// Slow subscribers are skipped rather than blocked on.
func (c *MemoryChannel) Publish(ctx context.Context, event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for sub := range c.subs[event.JobID] {
		select {
		case sub.events <- event:
		default:
			// Subscriber buffer full; drop. The watcher's timer fallback
			// covers missed events.
		}
	}
	return nil
}

// remove detaches a subscription. Called exactly once per subscription.
func (c *MemoryChannel) remove(sub *memorySubscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if subs, ok := c.subs[sub.jobID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(c.subs, sub.jobID)
		}
	}
	close(sub.events)
}

type memorySubscription struct {
	channel *MemoryChannel
	jobID   uuid.UUID
	events  chan Event
	once    sync.Once
}

func (s *memorySubscription) Events() <-chan Event {
	return s.events
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.channel.remove(s)
	})
	return nil
}

// Compile-time interface checks.
var (
	_ Notifier  = (*MemoryChannel)(nil)
	_ Publisher = (*MemoryChannel)(nil)
)
