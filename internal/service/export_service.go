package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/training-center-api/internal/dto"
	"github.com/noah-isme/training-center-api/internal/models"
	appErrors "github.com/noah-isme/training-center-api/pkg/errors"
	"github.com/noah-isme/training-center-api/pkg/export"
)

// ExportFormat names a rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult is a rendered document.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders the daily room schedule as CSV or PDF.
type ExportService struct {
	csv      csvRenderer
	pdf      pdfRenderer
	location *time.Location
	logger   *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to pkg/export.
func NewExportService(location *time.Location, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, location: location, logger: logger}
}

// RoomSchedule renders overview in format.
func (s *ExportService) RoomSchedule(overview *dto.DailyRoomOverview, format ExportFormat) (*ExportResult, error) {
	dataset := s.buildRoomScheduleDataset(overview)
	filename := sanitizeFilename("room-schedule-" + overview.Date)

	switch format {
	case ExportFormatCSV:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render csv")
		}
		return &ExportResult{Filename: filename + ".csv", ContentType: "text/csv", Body: body}, nil
	case ExportFormatPDF:
		body, err := s.pdf.Render(dataset, "Room schedule "+overview.Date)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render pdf")
		}
		return &ExportResult{Filename: filename + ".pdf", ContentType: "application/pdf", Body: body}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
}

// buildRoomScheduleDataset flattens an overview into one row per room and one column per slot.
func (s *ExportService) buildRoomScheduleDataset(overview *dto.DailyRoomOverview) export.Dataset {
	headers := []string{"Room", "Location"}
	if len(overview.Rooms) > 0 {
		for _, slot := range overview.Rooms[0].Grid.Slots {
			headers = append(headers, slot.Label)
		}
	}
	headers = append(headers, "Unslotted")

	rows := make([]map[string]string, 0, len(overview.Rooms)+1)
	for _, room := range overview.Rooms {
		row := map[string]string{"Room": room.Room.Name, "Location": room.Room.Location}
		for _, slot := range room.Grid.Slots {
			row[slot.Label] = s.describeSessions(slot.Sessions)
		}
		row["Unslotted"] = s.describeSessions(room.Grid.Unslotted)
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i]["Room"] < rows[j]["Room"] })
	if len(overview.WithoutRoom) > 0 {
		rows = append(rows, map[string]string{"Room": "(no room)", "Unslotted": s.describeSessions(overview.WithoutRoom)})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func (s *ExportService) describeSessions(sessions []models.Session) string {
	parts := make([]string, 0, len(sessions))
	for _, session := range sessions {
		label := session.Topic
		if label == "" {
			label = session.GroupID
		}
		parts = append(parts, fmt.Sprintf("%s (%s-%s)", label,
			session.StartTime.In(s.location).Format("15:04"),
			session.EndTime.In(s.location).Format("15:04")))
	}
	return strings.Join(parts, "; ")
}

func sanitizeFilename(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
