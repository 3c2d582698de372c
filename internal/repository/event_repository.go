package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/volunteer-hub/internal/model"
)

// EventRepo encapsulates all database queries related to events, their
// required skills and the volunteers attached to them.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the provided DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

const eventColumns = "id, name, description, location, urgency, event_date, manager, status, created_at, updated_at"

func scanEvent(s interface{ Scan(...any) error }) (*model.Event, error) {
	e := new(model.Event)
	err := s.Scan(&e.ID, &e.Name, &e.Description, &e.Location, &e.Urgency, &e.Date,
		&e.Manager, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// Create inserts the event and its required skills.  On success e.ID and
// e.Status are populated.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	if e.Status == "" {
		e.Status = model.EventInProgress
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (name, description, location, urgency, event_date, manager, status)
		 VALUES (?,?,?,?,?,?,?)`,
		e.Name, e.Description, e.Location, e.Urgency, e.Date, e.Manager, e.Status)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	if err := replaceEventSkills(ctx, tx, e.ID, e.RequiredSkills); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceEventSkills(ctx context.Context, tx *sql.Tx, eventID uint64, skills []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM event_skills WHERE event_id = ?", eventID); err != nil {
		return fmt.Errorf("reset event skills: %w", err)
	}
	for _, s := range skills {
		if _, err := tx.ExecContext(ctx, "INSERT INTO event_skills (event_id, skill_name) VALUES (?,?)", eventID, s); err != nil {
			return fmt.Errorf("insert event skill %q: %w", s, err)
		}
	}
	return nil
}

// GetByID fetches an event with its required skills.  It returns
// ErrNotFound if no row is found.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	skills, err := r.skillsFor(ctx, []uint64{id})
	if err != nil {
		return nil, err
	}
	e.RequiredSkills = nonNil(skills[id])
	return e, nil
}

// List returns events whose status is one of statuses (all events when
// statuses is empty), ordered by date then id.
func (r *EventRepo) List(ctx context.Context, statuses ...string) ([]*model.Event, error) {
	q := "SELECT " + eventColumns + " FROM events"
	var args []any
	if len(statuses) > 0 {
		q += " WHERE status IN (" + strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",") + ")"
		for _, s := range statuses {
			args = append(args, s)
		}
	}
	q += " ORDER BY event_date, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Event{}
	var ids []uint64
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	skills, err := r.skillsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range out {
		e.RequiredSkills = nonNil(skills[e.ID])
	}
	return out, nil
}

// Update rewrites every column of the event and replaces its skills.  It
// returns ErrNotFound when the event does not exist.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists uint64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM events WHERE id = ? FOR UPDATE", e.ID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE events SET name=?, description=?, location=?, urgency=?, event_date=?, manager=?, status=?
		 WHERE id=?`,
		e.Name, e.Description, e.Location, e.Urgency, e.Date, e.Manager, e.Status, e.ID); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if err := replaceEventSkills(ctx, tx, e.ID, e.RequiredSkills); err != nil {
		return err
	}
	return tx.Commit()
}

// SetStatus changes only the status column.
func (r *EventRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE events SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 affected rows when the value is unchanged.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// AddSkill attaches one skill to an event; adding an existing skill is a no-op.
func (r *EventRepo) AddSkill(ctx context.Context, id uint64, skill string) error {
	_, err := r.db.ExecContext(ctx, "INSERT IGNORE INTO event_skills (event_id, skill_name) VALUES (?,?)", id, skill)
	return err
}

// SaveMatches records userIDs as MATCHED for the event.  Volunteers that are
// already attached keep their state, so re-running the matcher never
// demotes a SELECTED volunteer.
func (r *EventRepo) SaveMatches(ctx context.Context, eventID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	var b strings.Builder
	args := make([]any, 0, len(userIDs)*3)
	b.WriteString("INSERT INTO event_volunteers (event_id, user_id, state) VALUES ")
	for i, uid := range userIDs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?,?,?)")
		args = append(args, eventID, uid, model.VolunteerMatched)
	}
	b.WriteString(" ON DUPLICATE KEY UPDATE state = state")
	_, err := r.db.ExecContext(ctx, b.String(), args...)
	return err
}

// ReplaceSelected makes userIDs the event's SELECTED set.  Previously
// selected volunteers missing from userIDs fall back to MATCHED.  The IDs
// that were not selected before the call are returned.
func (r *EventRepo) ReplaceSelected(ctx context.Context, eventID uint64, userIDs []uint64) ([]uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		"SELECT user_id FROM event_volunteers WHERE event_id = ? AND state = ? FOR UPDATE",
		eventID, model.VolunteerSelected)
	if err != nil {
		return nil, err
	}
	before := map[uint64]bool{}
	for rows.Next() {
		var uid uint64
		if err := rows.Scan(&uid); err != nil {
			rows.Close()
			return nil, err
		}
		before[uid] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE event_volunteers SET state = ? WHERE event_id = ? AND state = ?",
		model.VolunteerMatched, eventID, model.VolunteerSelected); err != nil {
		return nil, err
	}

	var added []uint64
	for _, uid := range userIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_volunteers (event_id, user_id, state) VALUES (?,?,?)
			 ON DUPLICATE KEY UPDATE state = VALUES(state)`,
			eventID, uid, model.VolunteerSelected); err != nil {
			return nil, fmt.Errorf("select volunteer %d: %w", uid, err)
		}
		if !before[uid] {
			added = append(added, uid)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return added, nil
}

// ListVolunteers returns the volunteers attached to an event with their
// skills, selected volunteers first.
func (r *EventRepo) ListVolunteers(ctx context.Context, eventID uint64) ([]model.EventVolunteer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, COALESCE(p.full_name,''), u.email, ev.state
		 FROM event_volunteers ev
		 JOIN users u ON u.id = ev.user_id
		 LEFT JOIN user_profiles p ON p.user_id = u.id
		 WHERE ev.event_id = ?
		 ORDER BY ev.state DESC, u.id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.EventVolunteer{}
	var ids []uint64
	for rows.Next() {
		var v model.EventVolunteer
		if err := rows.Scan(&v.UserID, &v.FullName, &v.Email, &v.State); err != nil {
			return nil, err
		}
		out = append(out, v)
		ids = append(ids, v.UserID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	skills, err := loadLabels(ctx, r.db, "SELECT user_id, skill_name FROM user_skills WHERE user_id IN (%s) ORDER BY user_id, skill_name", ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Skills = nonNil(skills[out[i].UserID])
	}
	return out, nil
}

// EventReportRow is one line of the event assignment report.
type EventReportRow struct {
	EventID    uint64     `json:"event_id"`
	Name       string     `json:"name"`
	Location   string     `json:"location"`
	Date       model.Date `json:"date"`
	Manager    string     `json:"manager"`
	Status     string     `json:"status"`
	Volunteers []string   `json:"volunteers"`
}

// Report lists every event with the names of its selected volunteers.
func (r *EventRepo) Report(ctx context.Context) ([]EventReportRow, error) {
	events, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT ev.event_id, COALESCE(NULLIF(p.full_name,''), u.email)
		 FROM event_volunteers ev
		 JOIN users u ON u.id = ev.user_id
		 LEFT JOIN user_profiles p ON p.user_id = u.id
		 WHERE ev.state = ?
		 ORDER BY ev.event_id, u.id`, model.VolunteerSelected)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := map[uint64][]string{}
	for rows.Next() {
		var id uint64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = append(names[id], name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]EventReportRow, 0, len(events))
	for _, e := range events {
		out = append(out, EventReportRow{
			EventID: e.ID, Name: e.Name, Location: e.Location, Date: e.Date,
			Manager: e.Manager, Status: e.Status, Volunteers: nonNil(names[e.ID]),
		})
	}
	return out, nil
}

func (r *EventRepo) skillsFor(ctx context.Context, ids []uint64) (map[uint64][]string, error) {
	return loadLabels(ctx, r.db, "SELECT event_id, skill_name FROM event_skills WHERE event_id IN (%s) ORDER BY event_id, skill_name", ids)
}
