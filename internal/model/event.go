package model

import "time"

// Event statuses stored in events.status.
const (
	EventInProgress = "IN_PROGRESS"
	EventCancelled  = "CANCELLED"
	EventCompleted  = "COMPLETED"
)

// Urgency levels stored in events.urgency.
const (
	UrgencyLow      = "LOW"
	UrgencyMedium   = "MEDIUM"
	UrgencyHigh     = "HIGH"
	UrgencyCritical = "CRITICAL"
)

// Volunteer states stored in event_volunteers.state.  MATCHED rows are
// written by the matcher; SELECTED rows are the admin's final roster.
const (
	VolunteerMatched  = "MATCHED"
	VolunteerSelected = "SELECTED"
)

// Event represents a scheduled activity that needs volunteers.  The
// required skills live in `event_skills`.
//
// Fields:
//
//	ID             – primary key identifier.
//	Name           – display name.
//	Description    – free text shown to volunteers.
//	Location       – address or venue.
//	RequiredSkills – catalog labels a volunteer must overlap with.
//	Urgency        – LOW, MEDIUM, HIGH or CRITICAL.
//	Date           – the day the event happens.
//	Manager        – name of the person running the event.
//	Status         – IN_PROGRESS, CANCELLED or COMPLETED.
type Event struct {
	ID             uint64    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	RequiredSkills []string  `json:"required_skills"`
	Urgency        string    `json:"urgency"`
	Date           Date      `json:"date"`
	Manager        string    `json:"manager"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EventVolunteer is a volunteer attached to an event in a given state.
type EventVolunteer struct {
	UserID   uint64   `json:"user_id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Skills   []string `json:"skills"`
	State    string   `json:"state"`
}

// IsValidUrgency reports whether u is a known urgency level.
func IsValidUrgency(u string) bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// IsValidEventStatus reports whether s is a known event status.
func IsValidEventStatus(s string) bool {
	switch s {
	case EventInProgress, EventCancelled, EventCompleted:
		return true
	}
	return false
}
