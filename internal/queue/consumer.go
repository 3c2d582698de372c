package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-hub/internal/database"
	"github.com/iliyamo/volunteer-hub/internal/model"
)

// NotificationWriter persists a notification row.
type NotificationWriter interface {
	Create(ctx context.Context, n *model.Notification) error
}

// Consumer drains the notification queue into a NotificationWriter.
type Consumer struct {
	URL    string
	Writer NotificationWriter
	Log    *zap.Logger
}

// Run connects to RabbitMQ, declares the durable notification queue and
// consumes it until ctx is cancelled.  Lost connections are retried with
// exponential backoff capped at 30s.  It returns ctx.Err() on shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
	backoff := time.Second
	for {
		conn, err := amqp.DialConfig(c.URL, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
		if err != nil {
			c.Log.Warn("notification consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("notification consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("notification consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(NotificationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.Log.Info("notification consumer: listening", zap.String("queue", NotificationQueue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(ctx, d.Body); err != nil {
				c.Log.Error("notification consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, retryable(err))
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// retryable reports whether a failed message should be requeued.  Malformed
// bodies and notifications for users or events that no longer exist would
// fail the same way on every delivery.
func retryable(err error) bool {
	return !errors.Is(err, errBadMessage) && !database.IsForeignKeyViolation(err)
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", errBadMessage, err)
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Writer.Create(ctx, ev.Notification()); err != nil {
		return fmt.Errorf("store notification for user %d: %w", ev.UserID, err)
	}
	return nil
}
