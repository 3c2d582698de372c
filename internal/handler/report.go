package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ReportHandler serves the admin reports as JSON or CSV.
type ReportHandler struct {
	Events  EventStore
	History HistoryStore
	Log     *zap.Logger
}

func NewReportHandler(events EventStore, history HistoryStore, log *zap.Logger) *ReportHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportHandler{Events: events, History: history, Log: log}
}

func reportFormat(c echo.Context) (string, bool) {
	switch f := strings.ToLower(c.QueryParam("format")); f {
	case "", "json":
		return "json", true
	case "csv":
		return "csv", true
	}
	return "", false
}

// Participation lists every history entry with the volunteer's name.
func (h *ReportHandler) Participation(c echo.Context) error {
	format, ok := reportFormat(c)
	if !ok {
		return badRequest(c, "format is invalid")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	rows, err := h.History.ListAll(ctx)
	if err != nil {
		return internalError(c, h.Log, "participation report failed", err)
	}
	if format == "json" {
		return c.JSON(http.StatusOK, rows)
	}
	records := [][]string{{"volunteer_id", "volunteer_name", "email", "event_id", "event_name", "event_date", "status"}}
	for _, r := range rows {
		records = append(records, []string{
			strconv.FormatUint(r.UserID, 10), r.VolunteerName, r.Email,
			strconv.FormatUint(r.EventID, 10), r.EventName, r.EventDate.String(), r.Status,
		})
	}
	return h.writeCSV(c, "participation.csv", records)
}

// EventAssignments lists every event with its selected volunteers.
func (h *ReportHandler) EventAssignments(c echo.Context) error {
	format, ok := reportFormat(c)
	if !ok {
		return badRequest(c, "format is invalid")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	rows, err := h.Events.Report(ctx)
	if err != nil {
		return internalError(c, h.Log, "event report failed", err)
	}
	if format == "json" {
		return c.JSON(http.StatusOK, rows)
	}
	records := [][]string{{"event_id", "name", "location", "date", "manager", "status", "volunteers"}}
	for _, r := range rows {
		records = append(records, []string{
			strconv.FormatUint(r.EventID, 10), r.Name, r.Location, r.Date.String(),
			r.Manager, r.Status, strings.Join(r.Volunteers, "; "),
		})
	}
	return h.writeCSV(c, "events.csv", records)
}

func (h *ReportHandler) writeCSV(c echo.Context, filename string, records [][]string) error {
	var buf bytes.Buffer
	if err := csv.NewWriter(&buf).WriteAll(records); err != nil {
		return internalError(c, h.Log, "write csv failed", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
