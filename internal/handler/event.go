package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-hub/internal/config"
	"github.com/iliyamo/volunteer-hub/internal/model"
	"github.com/iliyamo/volunteer-hub/internal/queue"
	"github.com/iliyamo/volunteer-hub/internal/repository"
)

// EventHandler serves event CRUD, the skill catalog and the matching
// endpoints.
type EventHandler struct {
	Events   EventStore
	Profiles ProfileStore
	History  HistoryStore
	Notifier Notifier
	Cache    CachePurger
	Skills   config.SkillCatalog
	Log      *zap.Logger
}

// eventsCacheGroup is the cache group of every public /v1/events response.
const eventsCacheGroup = "events"

type createEventReq struct {
	Name           string   `json:"name" validate:"required,max=100"`
	Description    string   `json:"description" validate:"required"`
	Location       string   `json:"location" validate:"required,max=255"`
	RequiredSkills []string `json:"required_skills" validate:"required,min=1"`
	Urgency        string   `json:"urgency" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	Date           string   `json:"date" validate:"required"`
	Manager        string   `json:"manager" validate:"required,max=100"`
}

type updateEventReq struct {
	Name           *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Description    *string  `json:"description" validate:"omitempty,min=1"`
	Location       *string  `json:"location" validate:"omitempty,min=1,max=255"`
	RequiredSkills []string `json:"required_skills" validate:"omitempty,min=1"`
	Urgency        *string  `json:"urgency" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Date           *string  `json:"date"`
	Manager        *string  `json:"manager" validate:"omitempty,min=1,max=100"`
	Status         *string  `json:"status" validate:"omitempty,oneof=IN_PROGRESS CANCELLED COMPLETED"`
}

type addSkillReq struct {
	Skill string `json:"skill" validate:"required"`
}

func upper(s *string) {
	if s != nil {
		*s = strings.ToUpper(strings.TrimSpace(*s))
	}
}

// statusFilter maps ?status= to the statuses listed.
func statusFilter(q string) ([]string, bool) {
	switch strings.ToLower(strings.TrimSpace(q)) {
	case "", "in_progress", "active":
		return []string{model.EventInProgress}, true
	case "all":
		return nil, true
	case "cancelled":
		return []string{model.EventCancelled}, true
	case "completed":
		return []string{model.EventCompleted}, true
	}
	return nil, false
}

// List returns in-progress events unless ?status widens the selection.
func (h *EventHandler) List(c echo.Context) error {
	statuses, ok := statusFilter(c.QueryParam("status"))
	if !ok {
		return badRequest(c, "status is invalid")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	events, err := h.Events.List(ctx, statuses...)
	if err != nil {
		return internalError(c, h.Log, "list events failed", err)
	}
	return c.JSON(http.StatusOK, events)
}

// Get returns one event with its required skills.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return h.eventErr(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *EventHandler) eventErr(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "event not found")
	}
	return internalError(c, h.Log, "load event failed", err)
}

// Create stores a new in-progress event.
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventReq
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	upper(&req.Urgency)
	req.Name = strings.TrimSpace(req.Name)
	if ok, err := validate(c, &req); !ok {
		return err
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return badRequest(c, "date is invalid")
	}
	skills, bad := h.Skills.Normalize(req.RequiredSkills)
	if bad != "" {
		return badRequest(c, "unknown skill: "+bad)
	}

	e := &model.Event{
		Name:           req.Name,
		Description:    strings.TrimSpace(req.Description),
		Location:       strings.TrimSpace(req.Location),
		RequiredSkills: skills,
		Urgency:        req.Urgency,
		Date:           date,
		Manager:        strings.TrimSpace(req.Manager),
		Status:         model.EventInProgress,
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Events.Create(ctx, e); err != nil {
		return internalError(c, h.Log, "create event failed", err)
	}
	h.purge(ctx)
	return c.JSON(http.StatusCreated, e)
}

// Update applies a partial update.  Moving an event to CANCELLED has the
// same effects as Delete; other changes notify attached volunteers.
func (h *EventHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req updateEventReq
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	upper(req.Urgency)
	upper(req.Status)
	if ok, err := validate(c, &req); !ok {
		return err
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return h.eventErr(c, err)
	}
	prevStatus := e.Status

	setStr(&e.Name, req.Name)
	setStr(&e.Description, req.Description)
	setStr(&e.Location, req.Location)
	setStr(&e.Manager, req.Manager)
	if req.Urgency != nil {
		e.Urgency = *req.Urgency
	}
	if req.Status != nil {
		e.Status = *req.Status
	}
	if req.Date != nil {
		d, err := model.ParseDate(*req.Date)
		if err != nil {
			return badRequest(c, "date is invalid")
		}
		e.Date = d
	}
	if req.RequiredSkills != nil {
		// omitempty lets an explicit [] through; an event needs a skill to match anyone.
		if len(req.RequiredSkills) == 0 {
			return badRequest(c, "required_skills is required")
		}
		skills, bad := h.Skills.Normalize(req.RequiredSkills)
		if bad != "" {
			return badRequest(c, "unknown skill: "+bad)
		}
		e.RequiredSkills = skills
	}

	if err := h.Events.Update(ctx, e); err != nil {
		return h.eventErr(c, err)
	}
	h.purge(ctx)

	switch {
	case e.Status != prevStatus && e.Status == model.EventCancelled:
		if err := h.afterCancel(ctx, e); err != nil {
			return internalError(c, h.Log, "cancel event failed", err)
		}
	case e.Status != prevStatus && e.Status == model.EventCompleted:
		if err := h.History.SetStatusForEvent(ctx, e.ID, model.HistoryCompleted); err != nil {
			return internalError(c, h.Log, "complete history failed", err)
		}
	case e.Status != model.EventCancelled:
		h.notifyAttached(ctx, e, model.NotifyUpdate, fmt.Sprintf("%s on %s has been updated.", e.Name, e.Date))
	}
	return c.JSON(http.StatusOK, e)
}

// Delete cancels the event instead of removing it so history keeps its
// reference.  Attached volunteers are notified.
func (h *EventHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return h.eventErr(c, err)
	}
	if e.Status == model.EventCancelled {
		return c.JSON(http.StatusOK, e)
	}
	if err := h.Events.SetStatus(ctx, id, model.EventCancelled); err != nil {
		return h.eventErr(c, err)
	}
	e.Status = model.EventCancelled
	h.purge(ctx)
	if err := h.afterCancel(ctx, e); err != nil {
		return internalError(c, h.Log, "cancel event failed", err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *EventHandler) afterCancel(ctx context.Context, e *model.Event) error {
	if err := h.History.SetStatusForEvent(ctx, e.ID, model.HistoryCancelled); err != nil {
		return err
	}
	h.notifyAttached(ctx, e, model.NotifyCancellation, fmt.Sprintf("%s on %s has been cancelled.", e.Name, e.Date))
	return nil
}

// notifyAttached sends one notification to every volunteer attached to e.
// Failures are logged; the triggering change has already been stored.
func (h *EventHandler) notifyAttached(ctx context.Context, e *model.Event, typ, text string) {
	vols, err := h.Events.ListVolunteers(ctx, e.ID)
	if err != nil {
		h.Log.Error("list event volunteers failed", zap.Uint64("event_id", e.ID), zap.Error(err))
		return
	}
	ids := make([]uint64, 0, len(vols))
	for _, v := range vols {
		ids = append(ids, v.UserID)
	}
	h.notify(ctx, e.ID, ids, typ, text)
}

func (h *EventHandler) notify(ctx context.Context, eventID uint64, userIDs []uint64, typ, text string) {
	if len(userIDs) == 0 {
		return
	}
	evs := make([]queue.NotificationEvent, 0, len(userIDs))
	for _, uid := range userIDs {
		eid := eventID
		evs = append(evs, queue.NotificationEvent{UserID: uid, EventID: &eid, Type: typ, Text: text})
	}
	if err := h.Notifier.Notify(ctx, evs...); err != nil {
		h.Log.Error("notify volunteers failed", zap.Uint64("event_id", eventID), zap.String("type", typ), zap.Error(err))
	}
}

func (h *EventHandler) purge(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(ctx, eventsCacheGroup); err != nil {
		h.Log.Warn("purge events cache failed", zap.Error(err))
	}
}

// AddSkill attaches one catalog skill to the event.
func (h *EventHandler) AddSkill(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req addSkillReq
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	if ok, err := validate(c, &req); !ok {
		return err
	}
	skill, ok := h.Skills.Canonical(req.Skill)
	if !ok {
		return badRequest(c, "unknown skill: "+req.Skill)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Events.GetByID(ctx, id); err != nil {
		return h.eventErr(c, err)
	}
	if err := h.Events.AddSkill(ctx, id, skill); err != nil {
		return internalError(c, h.Log, "add skill failed", err)
	}
	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return h.eventErr(c, err)
	}
	h.purge(ctx)
	return c.JSON(http.StatusOK, e)
}

// ListSkills returns the skill catalog.
func (h *EventHandler) ListSkills(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"skills": h.Skills.Skills})
}
