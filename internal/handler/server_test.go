package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/volunteer-hub/internal/config"
	"github.com/iliyamo/volunteer-hub/internal/middleware"
	"github.com/iliyamo/volunteer-hub/internal/model"
	"github.com/iliyamo/volunteer-hub/internal/utils"
)

type testServer struct {
	t   *testing.T
	e   *echo.Echo
	db  *memDB
	cfg config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost}
	db := newMemDB()
	log := zap.NewNop()
	skills := config.NewSkillCatalog(config.DefaultSkills)

	auth := NewAuthHandler(cfg, memUsers{db}, memTokens{db}, log)
	prof := NewProfileHandler(memProfiles{db}, skills, log)
	ev := NewEventHandler(memEvents{db}, memProfiles{db}, memHistory{db}, memNotifier{db}, memCache{db}, skills, log)
	hist := NewHistoryHandler(memHistory{db}, log)
	notes := NewNotificationHandler(memNotifications{db}, log)
	rep := NewReportHandler(memEvents{db}, memHistory{db}, log)

	e := echo.New()
	e.Validator = NewValidator()
	jwt := middleware.JWTAuth(cfg.JWTSecret)
	admin := middleware.RequireRole(model.RoleAdmin)

	e.POST("/v1/auth/register", auth.Register)
	e.POST("/v1/auth/login", auth.Login)
	e.POST("/v1/auth/refresh", auth.Refresh)
	e.POST("/v1/auth/logout", auth.Logout)
	e.GET("/v1/auth/status", auth.Status)
	e.GET("/v1/me", auth.Me, jwt)

	e.GET("/v1/profile", prof.Get, jwt)
	e.PUT("/v1/profile", prof.Update, jwt)
	e.GET("/v1/profiles/:id", prof.GetByID, jwt)
	e.GET("/v1/admin/profile", prof.AdminProfile, jwt, admin)

	e.GET("/v1/events", ev.List)
	e.GET("/v1/events/:id", ev.Get)
	e.GET("/v1/skills", ev.ListSkills)
	e.POST("/v1/events", ev.Create, jwt, admin)
	e.PUT("/v1/events/:id", ev.Update, jwt, admin)
	e.DELETE("/v1/events/:id", ev.Delete, jwt, admin)
	e.POST("/v1/events/:id/skills", ev.AddSkill, jwt, admin)
	e.GET("/v1/volunteers", ev.Volunteers, jwt, admin)
	e.GET("/v1/events/:id/matches", ev.Matches, jwt, admin)
	e.POST("/v1/events/:id/match-volunteers", ev.MatchVolunteers, jwt, admin)
	e.GET("/v1/events/:id/volunteers", ev.EventVolunteers, jwt, admin)
	e.PUT("/v1/events/:id/volunteers", ev.SelectVolunteers, jwt, admin)

	e.GET("/v1/volunteer-history", hist.ListAll, jwt, admin)
	e.GET("/v1/volunteer-history/:userId", hist.ListForUser, jwt)
	e.POST("/v1/volunteer-history/:userId", hist.Add, jwt, admin)
	e.DELETE("/v1/volunteer-history/:userId/:eventId", hist.Delete, jwt, admin)

	e.GET("/v1/notifications", notes.List, jwt)
	e.POST("/v1/notifications/clear-all", notes.ClearAll, jwt)
	e.PATCH("/v1/notifications/:id/clear", notes.Clear, jwt)
	e.DELETE("/v1/notifications/:id", notes.Hide, jwt)

	e.GET("/v1/reports/participation", rep.Participation, jwt, admin)
	e.GET("/v1/reports/events", rep.EventAssignments, jwt, admin)

	return &testServer{t: t, e: e, db: db, cfg: cfg}
}

// do sends body as JSON (raw when it is a string) with an optional bearer
// token.
func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

// user creates an account directly in the store and returns its ID and an
// access token.
func (s *testServer) user(email, role, fullName string, skills ...string) (uint64, string) {
	s.t.Helper()
	uid, err := memUsers{s.db}.Create(context.Background(), email, "password1", role, s.cfg.BcryptCost)
	require.NoError(s.t, err)
	s.db.mu.Lock()
	p := s.db.profiles[uid]
	p.FullName = fullName
	p.Skills = append([]string{}, skills...)
	s.db.profiles[uid] = p
	s.db.mu.Unlock()
	at, err := utils.NewAccessToken(s.cfg.JWTSecret, uid, role, s.cfg.AccessTTLMin)
	require.NoError(s.t, err)
	return uid, at.Token
}

func (s *testServer) event(name string, skills ...string) uint64 {
	s.t.Helper()
	d, err := model.ParseDate("2030-06-15")
	require.NoError(s.t, err)
	e := &model.Event{
		Name: name, Description: name + " description", Location: "Houston", RequiredSkills: skills,
		Urgency: model.UrgencyHigh, Date: d, Manager: "Jo", Status: model.EventInProgress,
	}
	require.NoError(s.t, memEvents{s.db}.Create(context.Background(), e))
	return e.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]any](t, rec)["error"].(string)
}

func requireStatus(t *testing.T, want int, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, want, rec.Code, rec.Body.String())
}

func mustField(t *testing.T, raw []byte, name string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	v, ok := m[name]
	require.True(t, ok, "missing field %q in %s", name, raw)
	return v
}
