package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/school-attendance/internal/models"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
	"github.com/noah-isme/school-attendance/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type todayRoster interface {
	Today(ctx context.Context, classID int64) (*models.Roster, error)
}

// ExportResult is a rendered roster file.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders today's roster of a class as CSV or PDF.
type ExportService struct {
	rosters todayRoster
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService; nil renderers use the defaults.
func NewExportService(rosters todayRoster, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{rosters: rosters, csv: csv, pdf: pdf, logger: logger}
}

// ExportRoster materializes today's roster when needed and renders it in format.
func (s *ExportService) ExportRoster(ctx context.Context, classID int64, format export.Format) (*ExportResult, error) {
	roster, err := s.rosters.Today(ctx, classID)
	if err != nil {
		return nil, err
	}
	data := RosterDataset(roster)

	var body []byte
	switch format {
	case export.FormatPDF:
		body, err = s.pdf.Render(data)
	default:
		format = export.FormatCSV
		body, err = s.csv.Render(data)
	}
	if err != nil {
		s.logger.Error("roster export failed", zap.Int64("class_id", classID), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	return &ExportResult{
		Filename:    fmt.Sprintf("attendance-%d-%s.%s", classID, roster.Date.Format("2006-01-02"), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// RosterDataset flattens a roster into export rows.
func RosterDataset(roster *models.Roster) export.Dataset {
	data := export.Dataset{
		Title:   fmt.Sprintf("%s %s", roster.ClassName, roster.Date.Format("2006-01-02")),
		Headers: []string{"Record", "Student ID", "Student", "Status"},
		Rows:    make([][]string, 0, len(roster.Records)),
	}
	for _, rec := range roster.Records {
		data.Rows = append(data.Rows, []string{
			strconv.FormatInt(rec.ID, 10),
			strconv.FormatInt(rec.StudentID, 10),
			rec.StudentName,
			rec.Status,
		})
	}
	return data
}
