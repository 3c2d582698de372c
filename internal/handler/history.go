package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-hub/internal/model"
	"github.com/iliyamo/volunteer-hub/internal/repository"
)

// HistoryHandler serves volunteer participation history.
type HistoryHandler struct {
	History HistoryStore
	Log     *zap.Logger
}

func NewHistoryHandler(h HistoryStore, log *zap.Logger) *HistoryHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HistoryHandler{History: h, Log: log}
}

type addHistoryReq struct {
	EventID uint64 `json:"event_id" validate:"required"`
	Status  string `json:"status" validate:"omitempty,oneof=ASSIGNED COMPLETED CANCELLED NO_SHOW"`
}

// ListForUser returns one volunteer's history, newest event first.
func (h *HistoryHandler) ListForUser(c echo.Context) error {
	uid, ok := parseID(c, "userId")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	if !canSee(c, uid) {
		return forbidden(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	rows, err := h.History.ListByUser(ctx, uid)
	if err != nil {
		return internalError(c, h.Log, "list history failed", err)
	}
	return c.JSON(http.StatusOK, rows)
}

// Add appends an entry for the user, snapshotting the event.
func (h *HistoryHandler) Add(c echo.Context) error {
	uid, ok := parseID(c, "userId")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req addHistoryReq
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if ok, err := validate(c, &req); !ok {
		return err
	}
	if req.Status == "" {
		req.Status = model.HistoryAssigned
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	entry, err := h.History.Add(ctx, uid, req.EventID, req.Status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "user or event not found")
		}
		return internalError(c, h.Log, "add history failed", err)
	}
	return c.JSON(http.StatusCreated, entry)
}

// Delete removes the user's entries for one event.
func (h *HistoryHandler) Delete(c echo.Context) error {
	uid, ok := parseID(c, "userId")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	eid, ok := parseID(c, "eventId")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.History.DeleteByUserEvent(ctx, uid, eid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "event not found for the user")
		}
		return internalError(c, h.Log, "delete history failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListAll returns every entry with the volunteer's name.
func (h *HistoryHandler) ListAll(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	rows, err := h.History.ListAll(ctx)
	if err != nil {
		return internalError(c, h.Log, "list history failed", err)
	}
	return c.JSON(http.StatusOK, rows)
}
