package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/volunteer-hub/internal/model"
)

// ProfileRepo reads and writes the profile tables: user_profiles,
// user_skills and user_availability, joined with users for identity.
type ProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

const profileSelect = `SELECT u.id, u.email, u.role,
       COALESCE(p.full_name,''), COALESCE(p.address1,''), COALESCE(p.address2,''),
       COALESCE(p.city,''), COALESCE(p.state,''), COALESCE(p.zip,''), COALESCE(p.preferences,'')
FROM users u
LEFT JOIN user_profiles p ON p.user_id = u.id`

func scanProfile(s interface{ Scan(...any) error }, p *model.Profile) error {
	return s.Scan(&p.UserID, &p.Email, &p.Role,
		&p.FullName, &p.Address.Line1, &p.Address.Line2,
		&p.Address.City, &p.Address.State, &p.Address.Zip, &p.Preferences)
}

// Get loads one profile with its skills and availability.
func (r *ProfileRepo) Get(ctx context.Context, userID uint64) (model.Profile, error) {
	var p model.Profile
	if err := scanProfile(r.db.QueryRowContext(ctx, profileSelect+" WHERE u.id = ?", userID), &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Profile{}, ErrNotFound
		}
		return model.Profile{}, err
	}
	skills, err := r.skillsFor(ctx, []uint64{userID})
	if err != nil {
		return model.Profile{}, err
	}
	p.Skills = nonNil(skills[userID])

	rows, err := r.db.QueryContext(ctx,
		"SELECT date_avail FROM user_availability WHERE user_id = ? ORDER BY date_avail", userID)
	if err != nil {
		return model.Profile{}, err
	}
	defer rows.Close()
	p.Availability = []model.Date{}
	for rows.Next() {
		var d model.Date
		if err := rows.Scan(&d); err != nil {
			return model.Profile{}, err
		}
		p.Availability = append(p.Availability, d)
	}
	return p, rows.Err()
}

// Save writes the personal fields and replaces the skill and availability
// sets in one transaction.  The profile row is upserted so users created
// before profiles existed are repaired on first save.
func (r *ProfileRepo) Save(ctx context.Context, p model.Profile) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `INSERT INTO user_profiles (user_id, full_name, address1, address2, city, state, zip, preferences)
VALUES (?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE full_name=VALUES(full_name), address1=VALUES(address1), address2=VALUES(address2),
  city=VALUES(city), state=VALUES(state), zip=VALUES(zip), preferences=VALUES(preferences)`
	if _, err := tx.ExecContext(ctx, upsert, p.UserID, p.FullName, p.Address.Line1, p.Address.Line2,
		p.Address.City, p.Address.State, p.Address.Zip, p.Preferences); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_skills WHERE user_id = ?", p.UserID); err != nil {
		return fmt.Errorf("reset skills: %w", err)
	}
	for _, s := range p.Skills {
		if _, err := tx.ExecContext(ctx, "INSERT INTO user_skills (user_id, skill_name) VALUES (?,?)", p.UserID, s); err != nil {
			return fmt.Errorf("insert skill %q: %w", s, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_availability WHERE user_id = ?", p.UserID); err != nil {
		return fmt.Errorf("reset availability: %w", err)
	}
	for _, d := range p.Availability {
		if _, err := tx.ExecContext(ctx, "INSERT INTO user_availability (user_id, date_avail) VALUES (?,?)", p.UserID, d); err != nil {
			return fmt.Errorf("insert availability %s: %w", d, err)
		}
	}
	return tx.Commit()
}

// ListVolunteers returns every active volunteer with their skills, ordered
// by id.  Availability is not loaded; the roster is used for matching and
// admin listings only.
func (r *ProfileRepo) ListVolunteers(ctx context.Context) ([]model.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		profileSelect+" WHERE u.role = ? AND u.is_active = 1 ORDER BY u.id", model.RoleVolunteer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Profile
	var ids []uint64
	for rows.Next() {
		var p model.Profile
		if err := scanProfile(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
		ids = append(ids, p.UserID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	skills, err := r.skillsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Skills = nonNil(skills[out[i].UserID])
	}
	return out, nil
}

func (r *ProfileRepo) skillsFor(ctx context.Context, ids []uint64) (map[uint64][]string, error) {
	return loadLabels(ctx, r.db, "SELECT user_id, skill_name FROM user_skills WHERE user_id IN (%s) ORDER BY user_id, skill_name", ids)
}

// loadLabels runs a two-column (id, label) query with an IN list built from
// ids and groups the labels by id.
func loadLabels(ctx context.Context, db *sql.DB, format string, ids []uint64) (map[uint64][]string, error) {
	out := make(map[uint64][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ph, args := inList(ids)
	rows, err := db.QueryContext(ctx, fmt.Sprintf(format, ph), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var label string
		if err := rows.Scan(&id, &label); err != nil {
			return nil, err
		}
		out[id] = append(out[id], label)
	}
	return out, rows.Err()
}

func inList(ids []uint64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
