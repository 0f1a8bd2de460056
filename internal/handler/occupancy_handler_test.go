package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-center-api/internal/dto"
	"github.com/noah-isme/training-center-api/internal/models"
	"github.com/noah-isme/training-center-api/internal/service"
	appErrors "github.com/noah-isme/training-center-api/pkg/errors"
)

type occupancyServiceMock struct {
	lastDate time.Time
	lastAt   *time.Time
	lastID   string
}

func (m *occupancyServiceMock) ParseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD")
	}
	return date, nil
}

func (m *occupancyServiceMock) DailyRoomOverview(ctx context.Context, date time.Time) (*dto.DailyRoomOverview, error) {
	m.lastDate = date
	return &dto.DailyRoomOverview{Date: date.Format("2006-01-02")}, nil
}

func (m *occupancyServiceMock) RoomOccupancy(ctx context.Context, roomID string, at *time.Time) (*dto.ResourceOccupancy, error) {
	m.lastID, m.lastAt = roomID, at
	return &dto.ResourceOccupancy{Resource: models.ResourceRoom, ResourceID: roomID}, nil
}

func (m *occupancyServiceMock) TeacherOccupancy(ctx context.Context, teacherID string, at *time.Time) (*dto.ResourceOccupancy, error) {
	m.lastID, m.lastAt = teacherID, at
	if teacherID == "missing" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return &dto.ResourceOccupancy{Resource: models.ResourceTeacher, ResourceID: teacherID, Occupied: true}, nil
}

type exporterMock struct {
	format service.ExportFormat
}

func (m *exporterMock) RoomSchedule(overview *dto.DailyRoomOverview, format service.ExportFormat) (*service.ExportResult, error) {
	m.format = format
	return &service.ExportResult{Filename: "room-schedule-" + overview.Date + ".csv", ContentType: "text/csv", Body: []byte("Room,08:00\n")}, nil
}

func TestOccupancyHandlerRoomScheduleJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &occupancyServiceMock{}
	handler := NewOccupancyHandler(mockSvc, &exporterMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/rooms/schedule?date=2025-03-04", nil)
	handler.RoomSchedule(adminContext(w, req))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, mockSvc.lastDate.Day())
	assert.Contains(t, w.Body.String(), `"date":"2025-03-04"`)
}

func TestOccupancyHandlerRoomScheduleCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &exporterMock{}
	handler := NewOccupancyHandler(&occupancyServiceMock{}, exporter)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/rooms/schedule?format=CSV", nil)
	handler.RoomSchedule(adminContext(w, req))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormat("csv"), exporter.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "room-schedule-2025-03-03.csv")
	assert.Equal(t, "Room,08:00\n", w.Body.String())
}

func TestOccupancyHandlerRoomScheduleBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewOccupancyHandler(&occupancyServiceMock{}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/rooms/schedule?date=03/04/2025", nil)
	handler.RoomSchedule(adminContext(w, req))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOccupancyHandlerRoomOccupancyParsesInstant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &occupancyServiceMock{}
	handler := NewOccupancyHandler(mockSvc, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/rooms/room-1/occupancy?at=2025-03-03T09:15:00Z", nil)
	c := adminContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: "room-1"}}

	handler.RoomOccupancy(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "room-1", mockSvc.lastID)
	require.NotNil(t, mockSvc.lastAt)
	assert.Equal(t, 15, mockSvc.lastAt.Minute())
}

func TestOccupancyHandlerRejectsBadInstant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &occupancyServiceMock{}
	handler := NewOccupancyHandler(mockSvc, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/teachers/tch-1/occupancy?at=9am", nil)
	c := adminContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: "tch-1"}}

	handler.TeacherOccupancy(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mockSvc.lastID)
}

func TestOccupancyHandlerTeacherNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewOccupancyHandler(&occupancyServiceMock{}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/teachers/missing/occupancy", nil)
	c := adminContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.TeacherOccupancy(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
