package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-hub/internal/repository"
)

// NotificationHandler serves the caller's in-app notifications.
type NotificationHandler struct {
	Notifications NotificationStore
	Log           *zap.Logger
}

func NewNotificationHandler(n NotificationStore, log *zap.Logger) *NotificationHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationHandler{Notifications: n, Log: log}
}

// List returns visible notifications, newest first.  ?all=true includes
// cleared ones.
func (h *NotificationHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	all, _ := strconv.ParseBool(c.QueryParam("all"))
	ctx, cancel := dbCtx(c)
	defer cancel()
	rows, err := h.Notifications.ListByUser(ctx, uid, all)
	if err != nil {
		return internalError(c, h.Log, "list notifications failed", err)
	}
	return c.JSON(http.StatusOK, rows)
}

// Clear marks one notification as read.
func (h *NotificationHandler) Clear(c echo.Context) error {
	return h.touch(c, h.Notifications.Clear)
}

// Hide removes one notification from the caller's list.
func (h *NotificationHandler) Hide(c echo.Context) error {
	return h.touch(c, h.Notifications.Hide)
}

func (h *NotificationHandler) touch(c echo.Context, op func(ctx context.Context, id, userID uint64) error) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := op(ctx, id, uid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "notification not found")
		}
		return internalError(c, h.Log, "update notification failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ClearAll marks every notification of the caller as read.
func (h *NotificationHandler) ClearAll(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	n, err := h.Notifications.ClearAll(ctx, uid)
	if err != nil {
		return internalError(c, h.Log, "clear notifications failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"cleared": n})
}
