package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/pgmq"

	"github.com/rs/zerolog"
)

// Notifier delivers a single user-facing notification. Delivery is decoupled
// from generation; the queue implementation enqueues and an external worker
// drains.
type Notifier interface {
	Notify(ctx context.Context, subscriptionID, title, body string) error
}

type notificationPayload struct {
	SubscriptionID string    `json:"subscription_id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}

type queueNotifier struct {
	client *pgmq.Client
	queue  string
	logger zerolog.Logger
}

// NewQueueNotifier returns a Notifier that enqueues onto a pgmq queue. The
// queue is created on first use if it does not exist.
func NewQueueNotifier(ctx context.Context, client *pgmq.Client, queue string, logger zerolog.Logger) (Notifier, error) {
	if err := client.CreateQueue(ctx, queue); err != nil {
		return nil, fmt.Errorf("ensure notification queue %s: %w", queue, err)
	}
	return &queueNotifier{
		client: client,
		queue:  queue,
		logger: logger.With().Str("service", "QueueNotifier").Logger(),
	}, nil
}

func (n *queueNotifier) Notify(ctx context.Context, subscriptionID, title, body string) error {
	payload, err := json.Marshal(notificationPayload{
		SubscriptionID: subscriptionID,
		Title:          title,
		Body:           body,
		EnqueuedAt:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	if err := n.client.Send(ctx, n.queue, payload); err != nil {
		return err
	}
	n.logger.Debug().Str("subscription_id", subscriptionID).Msg("Notification enqueued")
	return nil
}
