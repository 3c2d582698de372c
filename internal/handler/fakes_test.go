package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/volunteer-hub/internal/model"
	"github.com/iliyamo/volunteer-hub/internal/queue"
	"github.com/iliyamo/volunteer-hub/internal/repository"
	"github.com/iliyamo/volunteer-hub/internal/utils"
)

// memDB is an in-memory stand-in for the MySQL schema.  The store types
// below are thin views over it so they can implement interfaces whose
// method names overlap.
type memDB struct {
	mu        sync.Mutex
	users     map[uint64]model.User
	byEmail   map[string]uint64
	tokens    map[string]*memToken
	profiles  map[uint64]model.Profile
	events    map[uint64]model.Event
	attached  map[uint64]map[uint64]string
	history   []model.HistoryEntry
	notifs    []model.Notification
	nextID    uint64
	published []queue.NotificationEvent
	purged    []string
}

type memToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

func newMemDB() *memDB {
	return &memDB{
		users:    map[uint64]model.User{},
		byEmail:  map[string]uint64{},
		tokens:   map[string]*memToken{},
		profiles: map[uint64]model.Profile{},
		events:   map[uint64]model.Event{},
		attached: map[uint64]map[uint64]string{},
	}
}

func (db *memDB) id() uint64 {
	db.nextID++
	return db.nextID
}

// ---- users ----

type memUsers struct{ *memDB }

func (s memUsers) Create(_ context.Context, email, password, role string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byEmail[email]; dup {
		return 0, repository.ErrEmailExists
	}
	id := s.id()
	s.users[id] = model.User{ID: id, Email: email, PasswordHash: hash, Role: role, IsActive: true}
	s.byEmail[email] = id
	s.profiles[id] = model.Profile{UserID: id, Skills: []string{}, Availability: []model.Date{}}
	return id, nil
}

func (s memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return s.users[id], nil
}

func (s memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

// ---- tokens ----

type memTokens struct{ *memDB }

func (s memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[hash] = &memToken{userID: userID, exp: exp}
	return nil
}

func (s memTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[hash]
	if !ok || t.revoked || time.Now().After(t.exp) {
		return 0, repository.ErrNotFound
	}
	return t.userID, nil
}

func (s memTokens) RevokeByHash(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[hash]; ok {
		t.revoked = true
	}
	return nil
}

func (s memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.userID == userID {
			t.revoked = true
		}
	}
	return nil
}

// ---- profiles ----

type memProfiles struct{ *memDB }

func (s memProfiles) get(id uint64) (model.Profile, bool) {
	u, ok := s.users[id]
	if !ok {
		return model.Profile{}, false
	}
	p := s.profiles[id]
	p.UserID, p.Email, p.Role = u.ID, u.Email, u.Role
	p.Skills = append([]string{}, p.Skills...)
	p.Availability = append([]model.Date{}, p.Availability...)
	return p, true
}

func (s memProfiles) Get(_ context.Context, userID uint64) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.get(userID)
	if !ok {
		return model.Profile{}, repository.ErrNotFound
	}
	return p, nil
}

func (s memProfiles) Save(_ context.Context, p model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

func (s memProfiles) ListVolunteers(_ context.Context) ([]model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Profile
	for id, u := range s.users {
		if u.Role == model.RoleVolunteer && u.IsActive {
			p, _ := s.get(id)
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// ---- events ----

type memEvents struct{ *memDB }

func cloneEvent(e model.Event) *model.Event {
	e.RequiredSkills = append([]string{}, e.RequiredSkills...)
	return &e
}

func (s memEvents) Create(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	s.events[e.ID] = *cloneEvent(*e)
	return nil
}

func (s memEvents) GetByID(_ context.Context, id uint64) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (s memEvents) List(_ context.Context, statuses ...string) ([]*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[string]bool{}
	for _, st := range statuses {
		want[st] = true
	}
	out := []*model.Event{}
	for _, e := range s.events {
		if len(want) == 0 || want[e.Status] {
			out = append(out, cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memEvents) Update(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; !ok {
		return repository.ErrNotFound
	}
	s.events[e.ID] = *cloneEvent(*e)
	return nil
}

func (s memEvents) SetStatus(_ context.Context, id uint64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status = status
	s.events[id] = e
	return nil
}

func (s memEvents) AddSkill(_ context.Context, id uint64, skill string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.events[id]
	for _, k := range e.RequiredSkills {
		if k == skill {
			return nil
		}
	}
	e.RequiredSkills = append(e.RequiredSkills, skill)
	s.events[id] = e
	return nil
}

func (s memEvents) SaveMatches(_ context.Context, eventID uint64, userIDs []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.attachedTo(eventID)
	for _, uid := range userIDs {
		if _, ok := m[uid]; !ok {
			m[uid] = model.VolunteerMatched
		}
	}
	return nil
}

func (s memEvents) attachedTo(eventID uint64) map[uint64]string {
	m, ok := s.attached[eventID]
	if !ok {
		m = map[uint64]string{}
		s.attached[eventID] = m
	}
	return m
}

func (s memEvents) ReplaceSelected(_ context.Context, eventID uint64, userIDs []uint64) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.attachedTo(eventID)
	before := map[uint64]bool{}
	for uid, st := range m {
		if st == model.VolunteerSelected {
			before[uid] = true
			m[uid] = model.VolunteerMatched
		}
	}
	var added []uint64
	for _, uid := range userIDs {
		m[uid] = model.VolunteerSelected
		if !before[uid] {
			added = append(added, uid)
		}
	}
	return added, nil
}

func (s memEvents) ListVolunteers(_ context.Context, eventID uint64) ([]model.EventVolunteer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.EventVolunteer{}
	for uid, st := range s.attached[eventID] {
		p, _ := memProfiles(s).get(uid)
		out = append(out, model.EventVolunteer{UserID: uid, FullName: p.FullName, Email: p.Email, Skills: p.Skills, State: st})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s memEvents) Report(ctx context.Context) ([]repository.EventReportRow, error) {
	events, _ := s.List(ctx)
	out := []repository.EventReportRow{}
	for _, e := range events {
		vols, _ := s.ListVolunteers(ctx, e.ID)
		names := []string{}
		for _, v := range vols {
			if v.State == model.VolunteerSelected {
				names = append(names, v.FullName)
			}
		}
		out = append(out, repository.EventReportRow{
			EventID: e.ID, Name: e.Name, Location: e.Location, Date: e.Date,
			Manager: e.Manager, Status: e.Status, Volunteers: names,
		})
	}
	return out, nil
}

// ---- history ----

type memHistory struct{ *memDB }

func (s memHistory) Add(_ context.Context, userID, eventID uint64, status string) (*model.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if _, uok := s.users[userID]; !ok || !uok {
		return nil, repository.ErrNotFound
	}
	h := model.HistoryEntry{
		ID: s.id(), UserID: userID, EventID: eventID, EventName: e.Name, Description: e.Description,
		Location: e.Location, EventDate: e.Date, Status: status, CreatedAt: time.Now(),
	}
	s.history = append(s.history, h)
	return &h, nil
}

func (s memHistory) ListByUser(_ context.Context, userID uint64) ([]model.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.HistoryEntry{}
	for _, h := range s.history {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s memHistory) UserIDsForEvent(_ context.Context, eventID uint64) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[uint64]bool{}
	var out []uint64
	for _, h := range s.history {
		if h.EventID == eventID && !seen[h.UserID] {
			seen[h.UserID] = true
			out = append(out, h.UserID)
		}
	}
	return out, nil
}

func (s memHistory) DeleteByUserEvent(_ context.Context, userID, eventID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.history[:0]
	for _, h := range s.history {
		if h.UserID != userID || h.EventID != eventID {
			kept = append(kept, h)
		}
	}
	removed := len(s.history) - len(kept)
	s.history = kept
	if removed == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s memHistory) SetStatusForEvent(_ context.Context, eventID uint64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.history {
		if s.history[i].EventID == eventID && s.history[i].Status == model.HistoryAssigned {
			s.history[i].Status = status
		}
	}
	return nil
}

func (s memHistory) ListAll(_ context.Context) ([]model.HistoryReportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.HistoryReportRow{}
	for _, h := range s.history {
		p, _ := memProfiles(s).get(h.UserID)
		out = append(out, model.HistoryReportRow{
			UserID: h.UserID, VolunteerName: p.FullName, Email: p.Email,
			EventID: h.EventID, EventName: h.EventName, EventDate: h.EventDate, Status: h.Status,
		})
	}
	return out, nil
}

// ---- notifications ----

type memNotifications struct{ *memDB }

func (s memNotifications) ListByUser(_ context.Context, userID uint64, includeCleared bool) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Notification{}
	for i := len(s.notifs) - 1; i >= 0; i-- {
		n := s.notifs[i]
		if n.UserID == userID && n.IsVisible && (includeCleared || !n.IsCleared) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s memNotifications) find(id, userID uint64) *model.Notification {
	for i := range s.notifs {
		if s.notifs[i].ID == id && s.notifs[i].UserID == userID {
			return &s.notifs[i]
		}
	}
	return nil
}

func (s memNotifications) Clear(_ context.Context, id, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.find(id, userID)
	if n == nil {
		return repository.ErrNotFound
	}
	n.IsCleared = true
	return nil
}

func (s memNotifications) Hide(_ context.Context, id, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.find(id, userID)
	if n == nil {
		return repository.ErrNotFound
	}
	n.IsVisible = false
	return nil
}

func (s memNotifications) ClearAll(_ context.Context, userID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.notifs {
		if s.notifs[i].UserID == userID && s.notifs[i].IsVisible && !s.notifs[i].IsCleared {
			s.notifs[i].IsCleared = true
			n++
		}
	}
	return n, nil
}

// memNotifier stores every event as a notification row, like the broker
// fallback path.
type memNotifier struct{ *memDB }

func (s memNotifier) Notify(_ context.Context, events ...queue.NotificationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		s.published = append(s.published, ev)
		n := ev.Notification()
		n.ID = s.id()
		n.IsVisible = true
		n.CreatedAt = time.Now()
		s.notifs = append(s.notifs, *n)
	}
	return nil
}

type memCache struct{ *memDB }

func (s memCache) Purge(_ context.Context, groups ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purged = append(s.purged, groups...)
	return nil
}
