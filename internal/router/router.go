package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-hub/internal/handler"
	"github.com/iliyamo/volunteer-hub/internal/middleware"
	"github.com/iliyamo/volunteer-hub/internal/model"
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Auth         *handler.AuthHandler
	Profile      *handler.ProfileHandler
	Event        *handler.EventHandler
	History      *handler.HistoryHandler
	Notification *handler.NotificationHandler
	Report       *handler.ReportHandler
	Ready        echo.HandlerFunc
}

// Options carries the cross-cutting middleware.  Nil middleware is skipped.
type Options struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// NewEcho builds the server with the global middleware stack: panic
// recovery, request logging and CORS for the browser front end.
func NewEcho(log *zap.Logger, corsOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  corsOrigins,
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{"X-Request-ID", "X-Cache", "X-RateLimit-Remaining", "Retry-After"},
	}))
	return e
}

// chain drops nil middleware so optional layers can be left unset.
func chain(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterRoutes mounts the whole API.  Middleware is attached per route
// rather than per group so public, volunteer and admin routes can share
// the /v1/events prefix.
func RegisterRoutes(e *echo.Echo, h Handlers, opt Options) {
	e.GET("/healthz", handler.Health)
	if h.Ready != nil {
		e.GET("/readyz", h.Ready)
	}

	jwt := middleware.JWTAuth(opt.JWTSecret)
	public := chain(opt.RateLimit)
	cached := chain(opt.RateLimit, opt.Cache)
	authed := chain(jwt, opt.RateLimit)
	admin := chain(jwt, opt.RateLimit, middleware.RequireRole(model.RoleAdmin))

	v1 := e.Group("/v1")
	registerAuth(v1, h.Auth, public, authed)
	registerPublic(v1, h.Event, cached)
	registerVolunteer(v1, h, authed)
	registerAdmin(v1, h, admin)
}

func registerAuth(v1 *echo.Group, a *handler.AuthHandler, public, authed []echo.MiddlewareFunc) {
	v1.POST("/auth/register", a.Register, public...)
	v1.POST("/auth/login", a.Login, public...)
	v1.POST("/auth/refresh", a.Refresh, public...)
	// Logout accepts either a refresh token or a bearer token, so it is not
	// behind JWTAuth.
	v1.POST("/auth/logout", a.Logout, public...)
	v1.GET("/auth/status", a.Status, public...)
	v1.GET("/me", a.Me, authed...)
}

// registerPublic mounts the read-only browse endpoints.  They are the only
// cached routes.
func registerPublic(v1 *echo.Group, ev *handler.EventHandler, cached []echo.MiddlewareFunc) {
	v1.GET("/events", ev.List, cached...)
	v1.GET("/events/:id", ev.Get, cached...)
	v1.GET("/skills", ev.ListSkills, cached...)
}
