package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gizmohq/survey-api/internal/dto"
	"github.com/gizmohq/survey-api/internal/models"
	appErrors "github.com/gizmohq/survey-api/pkg/errors"
	"github.com/gizmohq/survey-api/pkg/export"
	"github.com/gizmohq/survey-api/pkg/storage"
)

type stubAnalyticsProvider struct {
	payload *dto.SurveyAnalyticsResponse
	err     error
}

func (s *stubAnalyticsProvider) SurveyAnalytics(context.Context, string, string, models.ResponseFilter) (*dto.SurveyAnalyticsResponse, bool, error) {
	return s.payload, false, s.err
}

func exportFixture() *dto.SurveyAnalyticsResponse {
	choice := models.Question{ID: "q-1", Text: "Join again?", Type: models.QuestionMultipleChoice}
	likert := models.Question{
		ID: "q-2", Text: "Rate the unit", Type: models.QuestionLikertScale,
		LikertMin: 1, LikertMax: 3, LikertLabels: models.StringList{"Poor", "Okay", "Great"},
	}
	text := models.Question{ID: "q-3", Text: "Anything else?", Type: models.QuestionLongAnswer}
	return &dto.SurveyAnalyticsResponse{
		SurveyID:    "srv-1",
		SurveyTitle: "Midterm Feedback",
		Questions: []dto.QuestionAnalytics{
			{
				Question: choice,
				Type:     choice.Type,
				Stats: map[string]dto.ChoiceStat{
					"Yes": {Count: 2, Percentage: 66.7},
					"No":  {Count: 1, Percentage: 33.3},
				},
				ChartData: dto.ChartData{Labels: []string{"Yes", "No"}, Data: []int{2, 1}, Type: "pie"},
			},
			{
				Question: likert,
				Type:     likert.Type,
				Stats: map[string]dto.ChoiceStat{
					"3": {Count: 4, Percentage: 100},
				},
				ChartData: dto.ChartData{Labels: []string{"3"}, Data: []int{4}, Type: "bar"},
			},
			{
				Question:  text,
				Type:      text.Type,
				WordCloud: []dto.WordCloudEntry{{Text: "engaging", Weight: 3}},
			},
		},
	}
}

func newExportService(provider analyticsProvider) *ExportService {
	return NewExportService(provider, export.NewCSVExporter(), export.NewPDFExporter(), nil, zap.NewNop())
}

func TestExportSurveyAnalyticsCSV(t *testing.T) {
	svc := newExportService(&stubAnalyticsProvider{payload: exportFixture()})

	result, err := svc.ExportSurveyAnalytics(context.Background(), "teacher-1", "srv-1", ExportCSV, models.ResponseFilter{})
	require.NoError(t, err)
	assert.Equal(t, "survey-srv-1-analytics.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	records, err := csv.NewReader(bytes.NewReader(result.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, exportHeaders, records[0])
	// Choice rows follow chart order, not map order.
	assert.Equal(t, []string{"Join again?", "multiple_choice", "Yes", "Yes", "2", "66.7"}, records[1])
	assert.Equal(t, []string{"Join again?", "multiple_choice", "No", "No", "1", "33.3"}, records[2])
	// Likert values render their configured label.
	assert.Equal(t, []string{"Rate the unit", "likert_scale", "3", "Great", "4", "100.0"}, records[3])
	// Text questions export word-cloud weight in the count column.
	assert.Equal(t, []string{"Anything else?", "long_answer", "engaging", "engaging", "3", ""}, records[4])
}

func TestExportSurveyAnalyticsPDF(t *testing.T) {
	svc := newExportService(&stubAnalyticsProvider{payload: exportFixture()})

	result, err := svc.ExportSurveyAnalytics(context.Background(), "teacher-1", "srv-1", ExportPDF, models.ResponseFilter{})
	require.NoError(t, err)
	assert.Equal(t, "survey-srv-1-analytics.pdf", result.Filename)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Data, []byte("%PDF")))
}

func TestExportSurveyAnalyticsUnknownFormat(t *testing.T) {
	svc := newExportService(&stubAnalyticsProvider{payload: exportFixture()})

	_, err := svc.ExportSurveyAnalytics(context.Background(), "teacher-1", "srv-1", ExportFormat("xlsx"), models.ResponseFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportArchiveStoresRenderedDocuments(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir() + "/exports")
	require.NoError(t, err)
	archive := NewExportArchive(store, time.Hour, zap.NewNop())
	archive.Start(context.Background())
	defer archive.Stop()

	svc := NewExportService(&stubAnalyticsProvider{payload: exportFixture()}, export.NewCSVExporter(), export.NewPDFExporter(), archive, zap.NewNop())

	_, err = svc.ExportSurveyAnalytics(context.Background(), "teacher-1", "srv-1", ExportCSV, models.ResponseFilter{})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		file, err := store.Open(archivedName(t, store))
		if err != nil {
			return false
		}
		defer file.Close()
		return true
	}, time.Second, 10*time.Millisecond)
}

// archivedName returns the single archived filename, or empty while the
// worker has not flushed yet.
func archivedName(t *testing.T, store *storage.LocalStorage) string {
	t.Helper()
	names, err := store.List()
	if err != nil || len(names) == 0 {
		return ""
	}
	return names[0]
}

func TestExportSurveyAnalyticsPropagatesNotFound(t *testing.T) {
	svc := newExportService(&stubAnalyticsProvider{err: appErrors.Clone(appErrors.ErrNotFound, "survey not found")})

	_, err := svc.ExportSurveyAnalytics(context.Background(), "teacher-1", "missing", ExportCSV, models.ResponseFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
