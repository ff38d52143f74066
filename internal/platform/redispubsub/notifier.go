// Package redispubsub implements the notify interfaces on Redis pub/sub.
// Delivery is at-least-once and unordered, which is exactly the contract the
// lifecycle watcher is built to tolerate.
package redispubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/planship/contentops/internal/notify"
	"github.com/redis/go-redis/v9"
)

// Channel implements notify.Notifier and notify.Publisher over one Redis
// pub/sub channel per job id.
type Channel struct {
	client *redis.Client
	logger *slog.Logger
}

// NewChannel creates a new Redis-backed notification channel.
func NewChannel(client *redis.Client, logger *slog.Logger) *Channel {
	return &Channel{
		client: client,
		logger: logger.With("component", "redis_notify_channel"),
	}
}

// channelName returns the pub/sub channel for one job.
func channelName(jobID uuid.UUID) string {
	return "contentops:jobs:" + jobID.String()
}

// Publish pushes a job update event. Callers treat publish failures as
// lost events; the watcher's timer fallback covers them.
func (c *Channel) Publish(ctx context.Context, event notify.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode job event: %w", err)
	}

	if err := c.client.Publish(ctx, channelName(event.JobID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish job event: %w", err)
	}
	return nil
}

// Subscribe opens a subscription scoped to one job id. The returned
// subscription must be closed by the caller; the watch handle does so on
// retirement.
func (c *Channel) Subscribe(ctx context.Context, jobID uuid.UUID) (notify.Subscription, error) {
	pubsub := c.client.Subscribe(ctx, channelName(jobID))

	// Confirm the subscription is established before the caller relies on it.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to job events: %w", err)
	}

	sub := &subscription{
		pubsub: pubsub,
		events: make(chan notify.Event, 16),
	}

	go sub.forward(c.logger.With("job_id", jobID))

	return sub, nil
}

type subscription struct {
	pubsub *redis.PubSub
	events chan notify.Event
	once   sync.Once
}

// forward decodes raw pub/sub messages into events. A malformed message is
// logged and dropped, never treated as a completion signal.
func (s *subscription) forward(log *slog.Logger) {
	defer close(s.events)

	for msg := range s.pubsub.Channel() {
		var event notify.Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Warn("dropping malformed job event", "error", err)
			continue
		}

		select {
		case s.events <- event:
		default:
			// Slow consumer; drop. The ledger remains the source of truth.
			log.Warn("dropping job event for slow subscriber")
		}
	}
}

func (s *subscription) Events() <-chan notify.Event {
	return s.events
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}

// Compile-time interface checks.
var (
	_ notify.Notifier  = (*Channel)(nil)
	_ notify.Publisher = (*Channel)(nil)
)
