package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-hub/internal/middleware"
	"github.com/iliyamo/volunteer-hub/internal/model"
)

// dbTimeout bounds the storage work done for one request.
const dbTimeout = 5 * time.Second

var errNoUser = errors.New("invalid user_id in context")

// getUserID returns the caller's ID stored by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	if uid, ok := middleware.UserID(c); ok {
		return uid, nil
	}
	return 0, errNoUser
}

func isAdmin(c echo.Context) bool { return middleware.Role(c) == model.RoleAdmin }

// canSee reports whether the caller may read data owned by userID: admins
// see everything, volunteers only their own records.
func canSee(c echo.Context, userID uint64) bool {
	if isAdmin(c) {
		return true
	}
	uid, err := getUserID(c)
	return err == nil && uid == userID
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func notFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": msg})
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
}

// internalError logs the cause with the request id and answers 500 with a
// generic message.
func internalError(c echo.Context, log *zap.Logger, msg string, err error) error {
	if log != nil {
		rid, _ := c.Get("request_id").(string)
		log.Error(msg, zap.Error(err), zap.String("request_id", rid), zap.String("path", c.Path()))
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}
