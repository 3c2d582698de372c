package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/volunteer-hub/internal/model"
)

// NotificationRepo stores in-app notifications.
type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts a visible, uncleared notification and fills in its ID.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, event_id, type, text) VALUES (?,?,?,?)",
		n.UserID, n.EventID, n.Type, n.Text)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	n.IsVisible = true
	return nil
}

// ListByUser returns the user's visible notifications, newest first.
// Cleared ones are included only when includeCleared is set.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, includeCleared bool) ([]model.Notification, error) {
	q := `SELECT id, user_id, event_id, type, text, is_cleared, is_visible, created_at
	      FROM notifications WHERE user_id = ? AND is_visible = 1`
	if !includeCleared {
		q += " AND is_cleared = 0"
	}
	q += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		var eventID sql.NullInt64
		if err := rows.Scan(&n.ID, &n.UserID, &eventID, &n.Type, &n.Text, &n.IsCleared, &n.IsVisible, &n.CreatedAt); err != nil {
			return nil, err
		}
		if eventID.Valid {
			v := uint64(eventID.Int64)
			n.EventID = &v
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Clear marks one of the user's notifications as cleared.
func (r *NotificationRepo) Clear(ctx context.Context, id, userID uint64) error {
	return r.touch(ctx, "UPDATE notifications SET is_cleared = 1 WHERE id = ? AND user_id = ? AND is_visible = 1", id, userID)
}

// Hide removes one of the user's notifications from every listing.
func (r *NotificationRepo) Hide(ctx context.Context, id, userID uint64) error {
	return r.touch(ctx, "UPDATE notifications SET is_visible = 0 WHERE id = ? AND user_id = ?", id, userID)
}

// touch runs an ownership-scoped update.  Zero affected rows may mean the
// row is missing, owned by someone else, or already in the target state;
// only the first two are errors.
func (r *NotificationRepo) touch(ctx context.Context, q string, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx, q, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	err = r.db.QueryRowContext(ctx, "SELECT 1 FROM notifications WHERE id = ? AND user_id = ?", id, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}

// ClearAll marks every visible notification of the user as cleared and
// returns how many changed.
func (r *NotificationRepo) ClearAll(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_cleared = 1 WHERE user_id = ? AND is_visible = 1 AND is_cleared = 0", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
