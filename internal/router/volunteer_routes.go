package router

import (
	"github.com/labstack/echo/v4"
)

// registerVolunteer mounts endpoints open to any signed-in user.  Handlers
// enforce ownership where a path names another user.
func registerVolunteer(v1 *echo.Group, h Handlers, authed []echo.MiddlewareFunc) {
	// ---- Profile ----
	v1.GET("/profile", h.Profile.Get, authed...)
	v1.PUT("/profile", h.Profile.Update, authed...)
	v1.GET("/profiles/:id", h.Profile.GetByID, authed...)

	// ---- History ----
	v1.GET("/volunteer-history/:userId", h.History.ListForUser, authed...)

	// ---- Notifications ----
	v1.GET("/notifications", h.Notification.List, authed...)
	v1.POST("/notifications/clear-all", h.Notification.ClearAll, authed...)
	v1.PATCH("/notifications/:id/clear", h.Notification.Clear, authed...)
	v1.DELETE("/notifications/:id", h.Notification.Hide, authed...)
}
