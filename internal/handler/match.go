package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-hub/internal/config"
	"github.com/iliyamo/volunteer-hub/internal/matching"
	"github.com/iliyamo/volunteer-hub/internal/model"
)

func NewEventHandler(events EventStore, profiles ProfileStore, history HistoryStore, n Notifier, cache CachePurger, skills config.SkillCatalog, log *zap.Logger) *EventHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventHandler{Events: events, Profiles: profiles, History: history, Notifier: n, Cache: cache, Skills: skills, Log: log}
}

type matchResp struct {
	UserID       uint64   `json:"user_id"`
	FullName     string   `json:"full_name"`
	Email        string   `json:"email"`
	Skills       []string `json:"skills"`
	SharedSkills []string `json:"shared_skills"`
}

type selectReq struct {
	UserIDs []uint64 `json:"user_ids" validate:"required,dive,gt=0"`
}

// Volunteers lists every active volunteer with their skills.
func (h *EventHandler) Volunteers(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	vols, err := h.Profiles.ListVolunteers(ctx)
	if err != nil {
		return internalError(c, h.Log, "list volunteers failed", err)
	}
	if vols == nil {
		vols = []model.Profile{}
	}
	return c.JSON(http.StatusOK, vols)
}

// match loads the event and filters the volunteer roster against its
// required skills.
func (h *EventHandler) match(ctx context.Context, id uint64) (*model.Event, []matchResp, error) {
	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	profiles, err := h.Profiles.ListVolunteers(ctx)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[uint64]model.Profile, len(profiles))
	roster := make([]matching.Volunteer, 0, len(profiles))
	for _, p := range profiles {
		byID[p.UserID] = p
		roster = append(roster, matching.Volunteer{UserID: p.UserID, FullName: p.FullName, Skills: p.Skills})
	}
	out := []matchResp{}
	for _, cand := range matching.Candidates(e.RequiredSkills, roster) {
		out = append(out, matchResp{
			UserID:       cand.UserID,
			FullName:     cand.FullName,
			Email:        byID[cand.UserID].Email,
			Skills:       cand.Skills,
			SharedSkills: cand.SharedSkills,
		})
	}
	return e, out, nil
}

// Matches computes the volunteers qualifying for an event without storing
// anything.
func (h *EventHandler) Matches(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	e, out, err := h.match(ctx, id)
	if err != nil {
		return h.eventErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": e.ID, "required_skills": e.RequiredSkills, "volunteers": out})
}

// MatchVolunteers computes the match and records it as MATCHED rows.
// Selected volunteers keep their state.
func (h *EventHandler) MatchVolunteers(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	e, out, err := h.match(ctx, id)
	if err != nil {
		return h.eventErr(c, err)
	}
	if e.Status == model.EventCancelled {
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is cancelled"})
	}
	ids := make([]uint64, 0, len(out))
	for _, m := range out {
		ids = append(ids, m.UserID)
	}
	if err := h.Events.SaveMatches(ctx, e.ID, ids); err != nil {
		return internalError(c, h.Log, "save matches failed", err)
	}
	h.Log.Info("volunteers matched", zap.Uint64("event_id", e.ID), zap.Int("count", len(ids)))
	return c.JSON(http.StatusOK, echo.Map{"event_id": e.ID, "required_skills": e.RequiredSkills, "volunteers": out})
}

// EventVolunteers lists the volunteers attached to an event.
func (h *EventHandler) EventVolunteers(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Events.GetByID(ctx, id); err != nil {
		return h.eventErr(c, err)
	}
	vols, err := h.Events.ListVolunteers(ctx, id)
	if err != nil {
		return internalError(c, h.Log, "list event volunteers failed", err)
	}
	return c.JSON(http.StatusOK, vols)
}

// SelectVolunteers replaces the event's SELECTED set.  Each selected
// volunteer without a history entry for the event gets an ASSIGNED entry
// and an ASSIGNMENT notification.
func (h *EventHandler) SelectVolunteers(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req selectReq
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	if ok, err := validate(c, &req); !ok {
		return err
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return h.eventErr(c, err)
	}
	if e.Status == model.EventCancelled {
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is cancelled"})
	}

	profiles, err := h.Profiles.ListVolunteers(ctx)
	if err != nil {
		return internalError(c, h.Log, "list volunteers failed", err)
	}
	known := make(map[uint64]bool, len(profiles))
	for _, p := range profiles {
		known[p.UserID] = true
	}
	ids := make([]uint64, 0, len(req.UserIDs))
	seen := make(map[uint64]bool, len(req.UserIDs))
	for _, uid := range req.UserIDs {
		if !known[uid] {
			return badRequest(c, fmt.Sprintf("user %d is not a volunteer", uid))
		}
		if !seen[uid] {
			seen[uid] = true
			ids = append(ids, uid)
		}
	}

	if _, err := h.Events.ReplaceSelected(ctx, e.ID, ids); err != nil {
		return internalError(c, h.Log, "select volunteers failed", err)
	}

	// A volunteer with a history entry for the event was assigned earlier.
	recorded, err := h.History.UserIDsForEvent(ctx, e.ID)
	if err != nil {
		return internalError(c, h.Log, "load history failed", err)
	}
	done := make(map[uint64]bool, len(recorded))
	for _, uid := range recorded {
		done[uid] = true
	}
	text := fmt.Sprintf("You have been assigned to %s on %s at %s.", e.Name, e.Date, e.Location)
	for _, uid := range ids {
		if done[uid] {
			continue
		}
		if _, err := h.History.Add(ctx, uid, e.ID, model.HistoryAssigned); err != nil {
			return internalError(c, h.Log, "record history failed", err)
		}
		h.notify(ctx, e.ID, []uint64{uid}, model.NotifyAssignment, text)
	}

	vols, err := h.Events.ListVolunteers(ctx, e.ID)
	if err != nil {
		return internalError(c, h.Log, "list event volunteers failed", err)
	}
	return c.JSON(http.StatusOK, vols)
}
