package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-hub/internal/config"
	"github.com/iliyamo/volunteer-hub/internal/handler"
	"github.com/iliyamo/volunteer-hub/internal/model"
	"github.com/iliyamo/volunteer-hub/internal/utils"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

const secret = "router-secret"

// newServer wires real handlers without stores; only routes that never
// reach storage are exercised.
func newServer(t *testing.T, ping error) *echo.Echo {
	t.Helper()
	log := zap.NewNop()
	skills := config.NewSkillCatalog(config.DefaultSkills)
	e := NewEcho(log, []string{"http://localhost:3000"})
	RegisterRoutes(e, Handlers{
		Auth:         handler.NewAuthHandler(config.Config{JWTSecret: secret}, nil, nil, log),
		Profile:      handler.NewProfileHandler(nil, skills, log),
		Event:        handler.NewEventHandler(nil, nil, nil, nil, nil, skills, log),
		History:      handler.NewHistoryHandler(nil, log),
		Notification: handler.NewNotificationHandler(nil, log),
		Report:       handler.NewReportHandler(nil, nil, log),
		Ready:        handler.Ready(fakePinger{err: ping}),
	}, Options{JWTSecret: secret})
	return e
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, 7, role, 5)
	require.NoError(t, err)
	return at.Token
}

func TestHealthAndReady(t *testing.T) {
	e := newServer(t, nil)
	rec := serve(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = serve(e, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newServer(t, errors.New("connection refused"))
	rec = serve(down, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouteProtection(t *testing.T) {
	e := newServer(t, nil)
	vol := token(t, model.RoleVolunteer)

	cases := []struct {
		method, path, token string
		want                int
	}{
		{http.MethodGet, "/v1/skills", "", http.StatusOK},
		{http.MethodGet, "/v1/auth/status", "", http.StatusOK},
		{http.MethodGet, "/v1/me", "", http.StatusUnauthorized},
		{http.MethodGet, "/v1/me", vol, http.StatusOK},
		{http.MethodGet, "/v1/profile", "", http.StatusUnauthorized},
		{http.MethodGet, "/v1/notifications", "bad-token", http.StatusUnauthorized},
		{http.MethodPost, "/v1/events", "", http.StatusUnauthorized},
		{http.MethodPost, "/v1/events", vol, http.StatusForbidden},
		{http.MethodGet, "/v1/reports/participation", vol, http.StatusForbidden},
		{http.MethodGet, "/v1/volunteer-history", vol, http.StatusForbidden},
		{http.MethodGet, "/v1/events/1/matches", vol, http.StatusForbidden},
		{http.MethodGet, "/v1/nowhere", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := serve(e, tc.method, tc.path, tc.token)
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestCORS(t *testing.T) {
	e := newServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/skills", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	req = httptest.NewRequest(http.MethodGet, "/v1/skills", nil)
	req.Header.Set(echo.HeaderOrigin, "http://evil.example")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestChainSkipsNil(t *testing.T) {
	noop := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	assert.Len(t, chain(nil, noop, nil), 1)
	assert.Empty(t, chain())
}
