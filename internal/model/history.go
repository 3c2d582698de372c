package model

import "time"

// History statuses stored in volunteer_history.status.
const (
	HistoryAssigned  = "ASSIGNED"
	HistoryCompleted = "COMPLETED"
	HistoryCancelled = "CANCELLED"
	HistoryNoShow    = "NO_SHOW"
)

// HistoryEntry records a volunteer's participation in an event.  The event
// name, description, location and date are copied at insert time so the
// history stays readable after the event is edited or cancelled.
type HistoryEntry struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	EventID     uint64    `json:"event_id"`
	EventName   string    `json:"event_name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	EventDate   Date      `json:"event_date"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryReportRow is one line of the participation report.
type HistoryReportRow struct {
	UserID        uint64 `json:"user_id"`
	VolunteerName string `json:"volunteer_name"`
	Email         string `json:"email"`
	EventID       uint64 `json:"event_id"`
	EventName     string `json:"event_name"`
	EventDate     Date   `json:"event_date"`
	Status        string `json:"status"`
}

// IsValidHistoryStatus reports whether s is a known history status.
func IsValidHistoryStatus(s string) bool {
	switch s {
	case HistoryAssigned, HistoryCompleted, HistoryCancelled, HistoryNoShow:
		return true
	}
	return false
}
