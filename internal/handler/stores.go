package handler

import (
	"context"
	"time"

	"github.com/iliyamo/volunteer-hub/internal/model"
	"github.com/iliyamo/volunteer-hub/internal/queue"
	"github.com/iliyamo/volunteer-hub/internal/repository"
)

// The interfaces below are satisfied by the MySQL repositories and by the
// in-memory fakes used in tests.

type UserStore interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

type ProfileStore interface {
	Get(ctx context.Context, userID uint64) (model.Profile, error)
	Save(ctx context.Context, p model.Profile) error
	ListVolunteers(ctx context.Context) ([]model.Profile, error)
}

type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	List(ctx context.Context, statuses ...string) ([]*model.Event, error)
	Update(ctx context.Context, e *model.Event) error
	SetStatus(ctx context.Context, id uint64, status string) error
	AddSkill(ctx context.Context, id uint64, skill string) error
	SaveMatches(ctx context.Context, eventID uint64, userIDs []uint64) error
	ReplaceSelected(ctx context.Context, eventID uint64, userIDs []uint64) ([]uint64, error)
	ListVolunteers(ctx context.Context, eventID uint64) ([]model.EventVolunteer, error)
	Report(ctx context.Context) ([]repository.EventReportRow, error)
}

type HistoryStore interface {
	Add(ctx context.Context, userID, eventID uint64, status string) (*model.HistoryEntry, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.HistoryEntry, error)
	DeleteByUserEvent(ctx context.Context, userID, eventID uint64) error
	UserIDsForEvent(ctx context.Context, eventID uint64) ([]uint64, error)
	SetStatusForEvent(ctx context.Context, eventID uint64, status string) error
	ListAll(ctx context.Context) ([]model.HistoryReportRow, error)
}

type NotificationStore interface {
	ListByUser(ctx context.Context, userID uint64, includeCleared bool) ([]model.Notification, error)
	Clear(ctx context.Context, id, userID uint64) error
	Hide(ctx context.Context, id, userID uint64) error
	ClearAll(ctx context.Context, userID uint64) (int64, error)
}

// Notifier delivers notifications, see service.Notifier.
type Notifier interface {
	Notify(ctx context.Context, events ...queue.NotificationEvent) error
}

// CachePurger drops cached GET responses after writes, see
// middleware.CachePurger.
type CachePurger interface {
	Purge(ctx context.Context, groups ...string) error
}
