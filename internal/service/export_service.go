package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/gizmohq/survey-api/internal/dto"
	"github.com/gizmohq/survey-api/internal/models"
	appErrors "github.com/gizmohq/survey-api/pkg/errors"
	"github.com/gizmohq/survey-api/pkg/export"
)

type analyticsProvider interface {
	SurveyAnalytics(ctx context.Context, teacherID, surveyID string, filter models.ResponseFilter) (*dto.SurveyAnalyticsResponse, bool, error)
}

// ExportFormat selects the rendered document type.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportResult is a rendered export document.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService flattens a survey's analytics payload into downloadable
// tabular documents.
type ExportService struct {
	analytics analyticsProvider
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	archive   *ExportArchive
	logger    *zap.Logger
}

// NewExportService constructs an ExportService. The archive is optional.
func NewExportService(analytics analyticsProvider, csv *export.CSVExporter, pdf *export.PDFExporter, archive *ExportArchive, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{analytics: analytics, csv: csv, pdf: pdf, archive: archive, logger: logger}
}

var exportHeaders = []string{"Question", "Type", "Value", "Label", "Count", "Percentage"}

// ExportSurveyAnalytics renders the survey's per-question statistics in the
// requested format. Choice questions contribute one row per distinct value;
// text questions contribute one row per word-cloud term with the weight in
// the count column.
func (s *ExportService) ExportSurveyAnalytics(ctx context.Context, teacherID, surveyID string, format ExportFormat, filter models.ResponseFilter) (*ExportResult, error) {
	payload, _, err := s.analytics.SurveyAnalytics(ctx, teacherID, surveyID, filter)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: exportHeaders}
	for _, item := range payload.Questions {
		dataset.Rows = append(dataset.Rows, questionRows(item)...)
	}

	var result *ExportResult
	switch format {
	case ExportCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, fmt.Errorf("render csv export: %w", err)
		}
		result = &ExportResult{
			Filename:    fmt.Sprintf("survey-%s-analytics.csv", surveyID),
			ContentType: "text/csv",
			Data:        data,
		}
	case ExportPDF:
		data, err := s.pdf.Render(dataset, payload.SurveyTitle)
		if err != nil {
			return nil, fmt.Errorf("render pdf export: %w", err)
		}
		result = &ExportResult{
			Filename:    fmt.Sprintf("survey-%s-analytics.pdf", surveyID),
			ContentType: "application/pdf",
			Data:        data,
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	s.archive.Enqueue(*result)
	return result, nil
}

func questionRows(item dto.QuestionAnalytics) []map[string]string {
	var rows []map[string]string
	switch {
	case item.Type.ChoiceBased():
		// ChartData.Labels carries the display order of the stats keys.
		for _, value := range item.ChartData.Labels {
			stat := item.Stats[value]
			label := value
			if item.Type == models.QuestionLikertScale {
				if n, err := strconv.Atoi(value); err == nil {
					label = item.Question.LikertLabel(n)
				}
			}
			rows = append(rows, map[string]string{
				"Question":   item.Question.Text,
				"Type":       string(item.Type),
				"Value":      value,
				"Label":      label,
				"Count":      strconv.Itoa(stat.Count),
				"Percentage": strconv.FormatFloat(stat.Percentage, 'f', 1, 64),
			})
		}
	case item.Type.TextBased():
		for _, entry := range item.WordCloud {
			rows = append(rows, map[string]string{
				"Question":   item.Question.Text,
				"Type":       string(item.Type),
				"Value":      entry.Text,
				"Label":      entry.Text,
				"Count":      strconv.Itoa(entry.Weight),
				"Percentage": "",
			})
		}
	}
	return rows
}
