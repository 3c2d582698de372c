package router

import (
	"github.com/labstack/echo/v4"
)

// registerAdmin mounts ADMIN-only endpoints.
func registerAdmin(v1 *echo.Group, h Handlers, admin []echo.MiddlewareFunc) {
	v1.GET("/admin/profile", h.Profile.AdminProfile, admin...)

	// ---- Events ----
	v1.POST("/events", h.Event.Create, admin...)
	v1.PUT("/events/:id", h.Event.Update, admin...)
	v1.DELETE("/events/:id", h.Event.Delete, admin...)
	v1.POST("/events/:id/skills", h.Event.AddSkill, admin...)

	// ---- Matching ----
	v1.GET("/volunteers", h.Event.Volunteers, admin...)
	v1.GET("/events/:id/matches", h.Event.Matches, admin...)
	v1.POST("/events/:id/match-volunteers", h.Event.MatchVolunteers, admin...)
	v1.GET("/events/:id/volunteers", h.Event.EventVolunteers, admin...)
	v1.PUT("/events/:id/volunteers", h.Event.SelectVolunteers, admin...)

	// ---- History ----
	v1.GET("/volunteer-history", h.History.ListAll, admin...)
	v1.POST("/volunteer-history/:userId", h.History.Add, admin...)
	v1.DELETE("/volunteer-history/:userId/:eventId", h.History.Delete, admin...)

	// ---- Reports ----
	v1.GET("/reports/participation", h.Report.Participation, admin...)
	v1.GET("/reports/events", h.Report.EventAssignments, admin...)
}
