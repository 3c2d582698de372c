// Package service holds the notification publisher used by the handlers.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-hub/internal/model"
	"github.com/iliyamo/volunteer-hub/internal/queue"
)

// NotificationStore is the direct write path used when the broker is down.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
}

// Notifier publishes notification events to RabbitMQ.  When the broker
// cannot be reached, or no URL is configured, the remaining events are
// written straight to the store so nothing is dropped.
type Notifier struct {
	url   string
	store NotificationStore
	log   *zap.Logger
}

func NewNotifier(url string, store NotificationStore, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{url: url, store: store, log: log}
}

// Notify delivers events in order.  It only fails when an event could be
// neither published nor stored.
func (n *Notifier) Notify(ctx context.Context, events ...queue.NotificationEvent) error {
	if len(events) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range events {
		if events[i].CreatedAt.IsZero() {
			events[i].CreatedAt = now
		}
	}

	sent := 0
	if n.url != "" {
		var err error
		sent, err = n.publish(ctx, events)
		if err != nil {
			n.log.Warn("rabbitmq unavailable, storing notifications directly",
				zap.Error(err), zap.Int("published", sent), zap.Int("pending", len(events)-sent))
		}
	}
	for _, ev := range events[sent:] {
		if err := n.store.Create(ctx, ev.Notification()); err != nil {
			return fmt.Errorf("store notification for user %d: %w", ev.UserID, err)
		}
	}
	return nil
}

// publish sends events over one connection and reports how many made it.
func (n *Notifier) publish(ctx context.Context, events []queue.NotificationEvent) (int, error) {
	conn, err := amqp.DialConfig(n.url, amqp.Config{Dial: amqp.DefaultDial(3 * time.Second)})
	if err != nil {
		return 0, fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return 0, fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.NotificationQueue, true, false, false, false, nil); err != nil {
		return 0, fmt.Errorf("queue declare: %w", err)
	}

	for i, ev := range events {
		body, err := json.Marshal(ev)
		if err != nil {
			return i, fmt.Errorf("marshal: %w", err)
		}
		if err := ch.PublishWithContext(ctx, "", queue.NotificationQueue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.CreatedAt,
			Body:         body,
		}); err != nil {
			return i, fmt.Errorf("publish: %w", err)
		}
	}
	return len(events), nil
}
