package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-center-api/internal/dto"
	"github.com/noah-isme/training-center-api/internal/service"
	appErrors "github.com/noah-isme/training-center-api/pkg/errors"
	"github.com/noah-isme/training-center-api/pkg/response"
)

type occupancyService interface {
	ParseDate(raw string) (time.Time, error)
	DailyRoomOverview(ctx context.Context, date time.Time) (*dto.DailyRoomOverview, error)
	RoomOccupancy(ctx context.Context, roomID string, at *time.Time) (*dto.ResourceOccupancy, error)
	TeacherOccupancy(ctx context.Context, teacherID string, at *time.Time) (*dto.ResourceOccupancy, error)
}

type scheduleExporter interface {
	RoomSchedule(overview *dto.DailyRoomOverview, format service.ExportFormat) (*service.ExportResult, error)
}

// OccupancyHandler serves the read-only occupancy views.
type OccupancyHandler struct {
	service  occupancyService
	exporter scheduleExporter
}

// NewOccupancyHandler constructs the handler.
func NewOccupancyHandler(service occupancyService, exporter scheduleExporter) *OccupancyHandler {
	return &OccupancyHandler{service: service, exporter: exporter}
}

// RoomSchedule godoc
// @Summary Daily room overview
// @Tags Occupancy
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Param format query string false "json (default), csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /rooms/schedule [get]
func (h *OccupancyHandler) RoomSchedule(c *gin.Context) {
	date, err := h.service.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	overview, err := h.service.DailyRoomOverview(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	format := strings.ToLower(strings.TrimSpace(c.Query("format")))
	if format == "" || format == "json" {
		response.OK(c, overview)
		return
	}
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export not configured"))
		return
	}
	result, err := h.exporter.RoomSchedule(overview, service.ExportFormat(format))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Body)
}

// RoomOccupancy godoc
// @Summary Whether a room is in use
// @Tags Occupancy
// @Produce json
// @Param id path string true "Room ID"
// @Param at query string false "RFC3339 instant, defaults to now"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id}/occupancy [get]
func (h *OccupancyHandler) RoomOccupancy(c *gin.Context) {
	at, err := parseInstant(c.Query("at"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.RoomOccupancy(c.Request.Context(), c.Param("id"), at)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// TeacherOccupancy godoc
// @Summary Whether a teacher is teaching
// @Tags Occupancy
// @Produce json
// @Param id path string true "Teacher ID"
// @Param at query string false "RFC3339 instant, defaults to now"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/occupancy [get]
func (h *OccupancyHandler) TeacherOccupancy(c *gin.Context) {
	at, err := parseInstant(c.Query("at"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.TeacherOccupancy(c.Request.Context(), c.Param("id"), at)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func parseInstant(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at must be an RFC3339 timestamp")
	}
	return &at, nil
}
