package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/volunteer-hub/internal/database"
	"github.com/iliyamo/volunteer-hub/internal/model"
)

// HistoryRepo stores volunteer participation records.
type HistoryRepo struct {
	db *sql.DB
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{db: db} }

const historyColumns = "id, user_id, event_id, event_name, description, location, event_date, status, created_at"

// Add records that userID took part in eventID, copying the event's name,
// description, location and date.  ErrNotFound is returned when either the
// event or the user does not exist.
func (r *HistoryRepo) Add(ctx context.Context, userID, eventID uint64, status string) (*model.HistoryEntry, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO volunteer_history (user_id, event_id, event_name, description, location, event_date, status)
		 SELECT ?, e.id, e.name, e.description, e.location, e.event_date, ?
		 FROM events e WHERE e.id = ?`,
		userID, status, eventID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("insert history: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.get(ctx, uint64(id))
}

func (r *HistoryRepo) get(ctx context.Context, id uint64) (*model.HistoryEntry, error) {
	h := new(model.HistoryEntry)
	err := r.db.QueryRowContext(ctx, "SELECT "+historyColumns+" FROM volunteer_history WHERE id = ?", id).
		Scan(&h.ID, &h.UserID, &h.EventID, &h.EventName, &h.Description, &h.Location, &h.EventDate, &h.Status, &h.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return h, err
}

// ListByUser returns a user's history, most recent event first.
func (r *HistoryRepo) ListByUser(ctx context.Context, userID uint64) ([]model.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+historyColumns+" FROM volunteer_history WHERE user_id = ? ORDER BY event_date DESC, id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.HistoryEntry{}
	for rows.Next() {
		var h model.HistoryEntry
		if err := rows.Scan(&h.ID, &h.UserID, &h.EventID, &h.EventName, &h.Description, &h.Location, &h.EventDate, &h.Status, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// UserIDsForEvent returns the users holding at least one entry for eventID.
func (r *HistoryRepo) UserIDsForEvent(ctx context.Context, eventID uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT user_id FROM volunteer_history WHERE event_id = ? ORDER BY user_id", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint64
	for rows.Next() {
		var uid uint64
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		out = append(out, uid)
	}
	return out, rows.Err()
}

// DeleteByUserEvent removes every entry linking userID to eventID.  It
// returns ErrNotFound when there was nothing to delete.
func (r *HistoryRepo) DeleteByUserEvent(ctx context.Context, userID, eventID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM volunteer_history WHERE user_id = ? AND event_id = ?", userID, eventID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatusForEvent updates the status of every entry for an event, used
// when an event is cancelled.
func (r *HistoryRepo) SetStatusForEvent(ctx context.Context, eventID uint64, status string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE volunteer_history SET status = ? WHERE event_id = ? AND status = ?",
		status, eventID, model.HistoryAssigned)
	return err
}

// ListAll returns every entry joined with the volunteer's name for the
// participation report.
func (r *HistoryRepo) ListAll(ctx context.Context) ([]model.HistoryReportRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT h.user_id, COALESCE(p.full_name,''), u.email, h.event_id, h.event_name, h.event_date, h.status
		 FROM volunteer_history h
		 JOIN users u ON u.id = h.user_id
		 LEFT JOIN user_profiles p ON p.user_id = h.user_id
		 ORDER BY h.event_date DESC, h.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.HistoryReportRow{}
	for rows.Next() {
		var row model.HistoryReportRow
		if err := rows.Scan(&row.UserID, &row.VolunteerName, &row.Email, &row.EventID, &row.EventName, &row.EventDate, &row.Status); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
