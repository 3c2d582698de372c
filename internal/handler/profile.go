package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-hub/internal/config"
	"github.com/iliyamo/volunteer-hub/internal/model"
	"github.com/iliyamo/volunteer-hub/internal/repository"
)

// ProfileHandler serves the caller's profile and admin lookups.
type ProfileHandler struct {
	Profiles ProfileStore
	Skills   config.SkillCatalog
	Log      *zap.Logger
}

func NewProfileHandler(p ProfileStore, skills config.SkillCatalog, log *zap.Logger) *ProfileHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileHandler{Profiles: p, Skills: skills, Log: log}
}

type addressReq struct {
	Line1 *string `json:"line1" validate:"omitempty,max=100"`
	Line2 *string `json:"line2" validate:"omitempty,max=100"`
	City  *string `json:"city" validate:"omitempty,max=100"`
	State *string `json:"state" validate:"omitempty,len=2,alpha"`
	Zip   *string `json:"zip" validate:"omitempty,min=5,max=9"`
}

// updateProfileReq is a partial update: nil fields keep their value.
type updateProfileReq struct {
	FullName     *string     `json:"full_name" validate:"omitempty,max=50"`
	Address      *addressReq `json:"address"`
	Preferences  *string     `json:"preferences" validate:"omitempty,max=1000"`
	Skills       []string    `json:"skills"`
	Availability []string    `json:"availability"`
}

// Get returns the caller's own profile.
func (h *ProfileHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return h.render(c, uid)
}

// GetByID returns any profile to admins and a volunteer's own profile to
// that volunteer.
func (h *ProfileHandler) GetByID(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if !canSee(c, id) {
		return forbidden(c)
	}
	return h.render(c, id)
}

func (h *ProfileHandler) render(c echo.Context, userID uint64) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "profile not found")
		}
		return internalError(c, h.Log, "load profile failed", err)
	}
	return c.JSON(http.StatusOK, p)
}

// Update applies a partial update to the caller's profile.  Skills and
// availability, when present, replace the stored sets.
func (h *ProfileHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateProfileReq
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	if ok, err := validate(c, &req); !ok {
		return err
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	p, err := h.Profiles.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "profile not found")
		}
		return internalError(c, h.Log, "load profile failed", err)
	}

	setStr(&p.FullName, req.FullName)
	setStr(&p.Preferences, req.Preferences)
	if a := req.Address; a != nil {
		setStr(&p.Address.Line1, a.Line1)
		setStr(&p.Address.Line2, a.Line2)
		setStr(&p.Address.City, a.City)
		setStr(&p.Address.Zip, a.Zip)
		if a.State != nil {
			p.Address.State = strings.ToUpper(strings.TrimSpace(*a.State))
		}
	}
	if req.Skills != nil {
		skills, bad := h.Skills.Normalize(req.Skills)
		if bad != "" {
			return badRequest(c, "unknown skill: "+bad)
		}
		p.Skills = skills
	}
	if req.Availability != nil {
		dates, bad := parseDates(req.Availability)
		if bad != "" {
			return badRequest(c, "invalid availability date: "+bad)
		}
		p.Availability = dates
	}

	if err := h.Profiles.Save(ctx, p); err != nil {
		return internalError(c, h.Log, "save profile failed", err)
	}
	return c.JSON(http.StatusOK, p)
}

// AdminProfile returns the calling admin's identity for the admin header.
func (h *ProfileHandler) AdminProfile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Profiles.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "profile not found")
		}
		return internalError(c, h.Log, "load profile failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":        p.UserID,
		"email":     p.Email,
		"full_name": p.FullName,
		"role":      p.Role,
	})
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// parseDates parses YYYY-MM-DD values, dropping duplicates.  The first
// unparsable value is returned as the second result.
func parseDates(raw []string) ([]model.Date, string) {
	out := make([]model.Date, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, s := range raw {
		d, err := model.ParseDate(strings.TrimSpace(s))
		if err != nil {
			return nil, s
		}
		if !seen[d.String()] {
			seen[d.String()] = true
			out = append(out, d)
		}
	}
	return out, ""
}
