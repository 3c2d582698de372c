package model

import "time"

// Notification types stored in notifications.type.
const (
	NotifyAssignment   = "ASSIGNMENT"
	NotifyUpdate       = "UPDATE"
	NotifyCancellation = "CANCELLATION"
	NotifyReminder     = "REMINDER"
)

// Notification is a message shown to a user in the app.  IsCleared is set
// when the user dismisses it; IsVisible is cleared when it is deleted from
// the list.  EventID is nil for messages not tied to an event.
type Notification struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	EventID   *uint64   `json:"event_id,omitempty"`
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	IsCleared bool      `json:"is_cleared"`
	IsVisible bool      `json:"is_visible"`
	CreatedAt time.Time `json:"created_at"`
}

// IsValidNotificationType reports whether t is one of the Notify* constants.
func IsValidNotificationType(t string) bool {
	switch t {
	case NotifyAssignment, NotifyUpdate, NotifyCancellation, NotifyReminder:
		return true
	}
	return false
}
