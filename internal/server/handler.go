package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/k-negishi/macos-calendar-bridge/internal/domain"
)

// eventRequest 作成・更新リクエスト。時刻は RFC 3339
type eventRequest struct {
	Calendar string `json:"calendar"`
	Title    string `json:"title"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

type handler struct {
	calendar Calendar
	exporter Exporter
}

func newHandler(calendar Calendar, exporter Exporter) *handler {
	return &handler{calendar: calendar, exporter: exporter}
}

// health GET /health
func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// listEvents GET /api/events
func (h *handler) listEvents(c echo.Context) error {
	return c.JSON(http.StatusOK, h.calendar.List(c.Request().Context()))
}

// listCalendars GET /api/calendars
func (h *handler) listCalendars(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"calendars": h.calendar.ListCalendars(c.Request().Context())})
}

// listDays GET /api/days
func (h *handler) listDays(c echo.Context) error {
	listing := h.calendar.List(c.Request().Context())
	return c.JSON(http.StatusOK, map[string][]domain.DayGroup{"days": h.calendar.GroupByDay(listing)})
}

// exportEvents GET /api/events.ics
func (h *handler) exportEvents(c echo.Context) error {
	listing := h.calendar.List(c.Request().Context())

	c.Response().Header().Set(echo.HeaderContentType, "text/calendar; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="events.ics"`)
	c.Response().WriteHeader(http.StatusOK)
	return h.exporter.Export(c.Response(), listing)
}

// createEvent POST /api/events
func (h *handler) createEvent(c echo.Context) error {
	req, start, end, err := bindEvent(c)
	if err != nil {
		return err
	}
	if req.Calendar == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "calendar is required")
	}

	result := h.calendar.Create(c.Request().Context(), req.Calendar, req.Title, start, end)
	return mutationResponse(c, result)
}

// updateEvent PUT /api/events/:id
func (h *handler) updateEvent(c echo.Context) error {
	req, start, end, err := bindEvent(c)
	if err != nil {
		return err
	}

	result := h.calendar.Update(c.Request().Context(), c.Param("id"), req.Title, start, end)
	return mutationResponse(c, result)
}

// deleteEvent DELETE /api/events/:id
func (h *handler) deleteEvent(c echo.Context) error {
	result := h.calendar.Delete(c.Request().Context(), c.Param("id"))
	return mutationResponse(c, result)
}

// bindEvent リクエストボディを読み取り、時刻を解析する
func bindEvent(c echo.Context) (eventRequest, time.Time, time.Time, error) {
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return req, time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" {
		return req, time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return req, time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid start: must be RFC 3339")
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		return req, time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid end: must be RFC 3339")
	}
	if end.Before(start) {
		return req, time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "end must not be before start")
	}
	return req, start, end, nil
}

// mutationResponse 成功は 200、反映されなかった場合は 422
func mutationResponse(c echo.Context, result domain.MutationResult) error {
	if !result.Success {
		return c.JSON(http.StatusUnprocessableEntity, result)
	}
	return c.JSON(http.StatusOK, result)
}
