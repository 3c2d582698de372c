package handler

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/volunteer-hub/internal/model"
)

func eventPath(id uint64, rest ...string) string {
	p := "/v1/events/" + strconv.FormatUint(id, 10)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func validEvent() echo.Map {
	return echo.Map{
		"name":            "Food Drive",
		"description":     "Sort and pack donations",
		"location":        "Houston Food Bank",
		"required_skills": []string{"cooking", "Logistics"},
		"urgency":         "high",
		"date":            "2030-03-01",
		"manager":         "Jo",
	}
}

func TestCreateEvent(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.user("admin@example.com", model.RoleAdmin, "Admin")

	rec := s.do(http.MethodPost, "/v1/events", admin, validEvent())
	requireStatus(t, http.StatusCreated, rec)
	e := decode[model.Event](t, rec)
	assert.NotZero(t, e.ID)
	assert.Equal(t, []string{"Cooking", "Logistics"}, e.RequiredSkills)
	assert.Equal(t, model.UrgencyHigh, e.Urgency)
	assert.Equal(t, model.EventInProgress, e.Status)
	assert.Equal(t, "2030-03-01", e.Date.String())
	assert.Equal(t, []string{eventsCacheGroup}, s.db.purged)

	rec = s.do(http.MethodGet, eventPath(e.ID), "", nil)
	requireStatus(t, http.StatusOK, rec)
	assert.Equal(t, "Food Drive", decode[model.Event](t, rec).Name)
}

func TestCreateEventRejects(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.user("admin@example.com", model.RoleAdmin, "Admin")
	_, vol := s.user("v@example.com", model.RoleVolunteer, "Vee")

	with := func(k string, v any) echo.Map {
		m := validEvent()
		if v == nil {
			delete(m, k)
		} else {
			m[k] = v
		}
		return m
	}
	cases := []struct {
		name string
		body echo.Map
		msg  string
	}{
		{"no name", with("name", nil), "name is required"},
		{"no skills", with("required_skills", []string{}), "required_skills is required"},
		{"bad urgency", with("urgency", "SOON"), "urgency is invalid"},
		{"bad date", with("date", "March 1st"), "date is invalid"},
		{"unknown skill", with("required_skills", []string{"Juggling"}), "unknown skill: Juggling"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/v1/events", admin, tc.body)
			requireStatus(t, http.StatusBadRequest, rec)
			assert.Equal(t, tc.msg, errorOf(t, rec))
		})
	}

	requireStatus(t, http.StatusForbidden, s.do(http.MethodPost, "/v1/events", vol, validEvent()))
	requireStatus(t, http.StatusUnauthorized, s.do(http.MethodPost, "/v1/events", "", validEvent()))
}

func TestListEventsByStatus(t *testing.T) {
	s := newTestServer(t)
	open := s.event("Open", "Cooking")
	closed := s.event("Closed", "Cooking")
	require.NoError(t, memEvents{s.db}.SetStatus(context.Background(), closed, model.EventCancelled))

	ids := func(path string) []uint64 {
		rec := s.do(http.MethodGet, path, "", nil)
		requireStatus(t, http.StatusOK, rec)
		var out []uint64
		for _, e := range decode[[]model.Event](t, rec) {
			out = append(out, e.ID)
		}
		return out
	}
	assert.Equal(t, []uint64{open}, ids("/v1/events"))
	assert.Equal(t, []uint64{closed}, ids("/v1/events?status=cancelled"))
	assert.Equal(t, []uint64{open, closed}, ids("/v1/events?status=all"))

	rec := s.do(http.MethodGet, "/v1/events?status=later", "", nil)
	requireStatus(t, http.StatusBadRequest, rec)
	assert.Equal(t, "status is invalid", errorOf(t, rec))

	requireStatus(t, http.StatusNotFound, s.do(http.MethodGet, eventPath(999), "", nil))
	requireStatus(t, http.StatusBadRequest, s.do(http.MethodGet, "/v1/events/zero", "", nil))
}

func TestUpdateEventNotifiesAttached(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.user("admin@example.com", model.RoleAdmin, "Admin")
	vid, vol := s.user("v@example.com", model.RoleVolunteer, "Vee", "Cooking")
	id := s.event("Soup Kitchen", "Cooking")
	requireStatus(t, http.StatusOK, s.do(http.MethodPost, eventPath(id, "match-volunteers"), admin, nil))

	rec := s.do(http.MethodPut, eventPath(id), admin, echo.Map{"location": "Downtown", "urgency": "low"})
	requireStatus(t, http.StatusOK, rec)
	e := decode[model.Event](t, rec)
	assert.Equal(t, "Downtown", e.Location)
	assert.Equal(t, model.UrgencyLow, e.Urgency)
	assert.Equal(t, "Soup Kitchen", e.Name)

	rec = s.do(http.MethodGet, "/v1/notifications", vol, nil)
	requireStatus(t, http.StatusOK, rec)
	notes := decode[[]model.Notification](t, rec)
	require.Len(t, notes, 1)
	assert.Equal(t, vid, notes[0].UserID)
	assert.Equal(t, model.NotifyUpdate, notes[0].Type)
	assert.Equal(t, "Soup Kitchen on 2030-06-15 has been updated.", notes[0].Text)

	rec = s.do(http.MethodPut, eventPath(id), admin, echo.Map{"date": "tomorrow"})
	requireStatus(t, http.StatusBadRequest, rec)
	assert.Equal(t, "date is invalid", errorOf(t, rec))
	requireStatus(t, http.StatusNotFound, s.do(http.MethodPut, eventPath(999), admin, echo.Map{"name": "x"}))
}

func TestCompleteEventClosesHistory(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.user("admin@example.com", model.RoleAdmin, "Admin")
	vid, _ := s.user("v@example.com", model.RoleVolunteer, "Vee", "Cooking")
	id := s.event("Soup Kitchen", "Cooking")
	requireStatus(t, http.StatusOK, s.do(http.MethodPut, eventPath(id, "volunteers"), admin, echo.Map{"user_ids": []uint64{vid}}))

	requireStatus(t, http.StatusOK, s.do(http.MethodPut, eventPath(id), admin, echo.Map{"status": "completed"}))
	require.Len(t, s.db.history, 1)
	assert.Equal(t, model.HistoryCompleted, s.db.history[0].Status)
}

func TestDeleteEventCancels(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.user("admin@example.com", model.RoleAdmin, "Admin")
	vid, _ := s.user("v@example.com", model.RoleVolunteer, "Vee", "Cooking")
	id := s.event("Soup Kitchen", "Cooking")
	requireStatus(t, http.StatusOK, s.do(http.MethodPut, eventPath(id, "volunteers"), admin, echo.Map{"user_ids": []uint64{vid}}))

	rec := s.do(http.MethodDelete, eventPath(id), admin, nil)
	requireStatus(t, http.StatusOK, rec)
	assert.Equal(t, model.EventCancelled, decode[model.Event](t, rec).Status)
	assert.Equal(t, model.EventCancelled, s.db.events[id].Status, "event row is kept")
	require.Len(t, s.db.history, 1)
	assert.Equal(t, model.HistoryCancelled, s.db.history[0].Status)

	last := s.db.published[len(s.db.published)-1]
	assert.Equal(t, model.NotifyCancellation, last.Type)
	assert.Equal(t, vid, last.UserID)
	sent := len(s.db.published)

	// Cancelling twice changes nothing.
	requireStatus(t, http.StatusOK, s.do(http.MethodDelete, eventPath(id), admin, nil))
	assert.Len(t, s.db.published, sent)

	requireStatus(t, http.StatusNotFound, s.do(http.MethodDelete, eventPath(999), admin, nil))
}

func TestAddSkillAndCatalog(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.user("admin@example.com", model.RoleAdmin, "Admin")
	id := s.event("Shelter", "Animal Handling")

	rec := s.do(http.MethodPost, eventPath(id, "skills"), admin, echo.Map{"skill": "security"})
	requireStatus(t, http.StatusOK, rec)
	assert.Equal(t, []string{"Animal Handling", "Security"}, decode[model.Event](t, rec).RequiredSkills)

	rec = s.do(http.MethodPost, eventPath(id, "skills"), admin, echo.Map{"skill": "Juggling"})
	requireStatus(t, http.StatusBadRequest, rec)
	assert.Equal(t, "unknown skill: Juggling", errorOf(t, rec))

	rec = s.do(http.MethodPost, eventPath(id, "skills"), admin, echo.Map{})
	requireStatus(t, http.StatusBadRequest, rec)
	assert.Equal(t, "skill is required", errorOf(t, rec))

	requireStatus(t, http.StatusNotFound, s.do(http.MethodPost, eventPath(999, "skills"), admin, echo.Map{"skill": "Cooking"}))

	rec = s.do(http.MethodGet, "/v1/skills", "", nil)
	requireStatus(t, http.StatusOK, rec)
	assert.Contains(t, decode[map[string][]string](t, rec)["skills"], "First-Aid")
}

func TestUpdateEventKeepsRequiredSkills(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.user("admin@example.com", model.RoleAdmin, "Admin")
	id := s.event("Soup Kitchen", "Cooking")

	rec := s.do(http.MethodPut, eventPath(id), admin, echo.Map{"required_skills": []string{}})
	requireStatus(t, http.StatusBadRequest, rec)
	assert.Equal(t, "required_skills is required", errorOf(t, rec))
	assert.Equal(t, []string{"Cooking"}, s.db.events[id].RequiredSkills)

	rec = s.do(http.MethodPut, eventPath(id), admin, echo.Map{"required_skills": []string{"logistics"}, "status": "in_progress"})
	requireStatus(t, http.StatusOK, rec)
	e := decode[model.Event](t, rec)
	assert.Equal(t, []string{"Logistics"}, e.RequiredSkills)
	assert.Equal(t, model.EventInProgress, e.Status)
}
