// Package queue defines the notification messages exchanged over RabbitMQ
// and the consumer that persists them.
package queue

import (
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/volunteer-hub/internal/model"
)

// NotificationQueue is the durable queue notifications are published to.
const NotificationQueue = "volunteer.notifications"

// NotificationEvent asks for one in-app notification to be stored for a
// user.  It carries everything the row needs so the consumer never has to
// query the event.
type NotificationEvent struct {
	UserID    uint64    `json:"user_id"`
	EventID   *uint64   `json:"event_id,omitempty"`
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

var errBadMessage = errors.New("malformed notification")

// Validate rejects messages that could never be stored.
func (e NotificationEvent) Validate() error {
	if e.UserID == 0 || strings.TrimSpace(e.Text) == "" || !model.IsValidNotificationType(e.Type) {
		return errBadMessage
	}
	return nil
}

// Notification converts the message into the row written to the store.
func (e NotificationEvent) Notification() *model.Notification {
	return &model.Notification{
		UserID:  e.UserID,
		EventID: e.EventID,
		Type:    e.Type,
		Text:    e.Text,
	}
}
