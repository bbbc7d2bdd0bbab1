package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gizmohq/survey-api/internal/dto"
	"github.com/gizmohq/survey-api/internal/models"
	appErrors "github.com/gizmohq/survey-api/pkg/errors"
)

type fakeSurveyReader struct {
	survey    *models.Survey
	surveyErr error
	questions []models.Question
	sections  []models.Section
}

func (f *fakeSurveyReader) FindByID(context.Context, string, string) (*models.Survey, error) {
	if f.surveyErr != nil {
		return nil, f.surveyErr
	}
	return f.survey, nil
}

func (f *fakeSurveyReader) QuestionsBySurvey(context.Context, string) ([]models.Question, error) {
	return f.questions, nil
}

func (f *fakeSurveyReader) SectionsBySurvey(context.Context, string) ([]models.Section, error) {
	return f.sections, nil
}

type fakeResponseReader struct {
	responses  []models.SurveyResponse
	byQuestion map[string][]models.Answer
	lastFilter models.ResponseFilter
}

func (f *fakeResponseReader) ListByOwner(_ context.Context, _ string, filter models.ResponseFilter) ([]models.SurveyResponse, error) {
	f.lastFilter = filter
	return f.responses, nil
}

func (f *fakeResponseReader) AnswersByQuestion(_ context.Context, _ string, questionID string, _ models.ResponseFilter) ([]models.Answer, error) {
	return f.byQuestion[questionID], nil
}

type fakeRoster struct {
	counts map[string]int
}

func (f *fakeRoster) StudentCount(_ context.Context, sectionID string) (int, error) {
	return f.counts[sectionID], nil
}

func choiceAnswers(questionID string, choices ...string) []models.Answer {
	answers := make([]models.Answer, 0, len(choices))
	for i, choice := range choices {
		answers = append(answers, models.Answer{
			ID:         questionID + "-a" + string(rune('0'+i)),
			QuestionID: questionID,
			Choice:     choice,
		})
	}
	return answers
}

func newAnalyticsService(surveys *fakeSurveyReader, responses *fakeResponseReader, roster *fakeRoster) *SurveyAnalyticsService {
	return NewSurveyAnalyticsService(SurveyAnalyticsParams{
		Surveys:   surveys,
		Responses: responses,
		Roster:    roster,
		Logger:    zap.NewNop(),
	})
}

func TestSurveyAnalyticsMultipleChoiceStats(t *testing.T) {
	surveys := &fakeSurveyReader{
		survey: &models.Survey{ID: "srv-1", Title: "Feedback"},
		questions: []models.Question{
			{ID: "q-1", SurveyID: "srv-1", Text: "Join again?", Type: models.QuestionMultipleChoice, Options: models.StringList{"Yes", "No"}},
		},
	}
	responses := &fakeResponseReader{
		byQuestion: map[string][]models.Answer{
			"q-1": choiceAnswers("q-1", "Yes", "No", "Yes"),
		},
	}

	svc := newAnalyticsService(surveys, responses, &fakeRoster{})
	payload, cacheHit, err := svc.SurveyAnalytics(context.Background(), "teacher-1", "srv-1", models.ResponseFilter{})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	require.Len(t, payload.Questions, 1)

	item := payload.Questions[0]
	assert.Equal(t, dto.ChoiceStat{Count: 2, Percentage: 66.7}, item.Stats["Yes"])
	assert.Equal(t, dto.ChoiceStat{Count: 1, Percentage: 33.3}, item.Stats["No"])
	assert.Equal(t, []string{"Yes", "No"}, item.ChartData.Labels)
	assert.Equal(t, []int{2, 1}, item.ChartData.Data)
	assert.Equal(t, "pie", item.ChartData.Type)

	totalCount := 0
	totalPct := 0.0
	for _, stat := range item.Stats {
		totalCount += stat.Count
		totalPct += stat.Percentage
	}
	assert.Equal(t, 3, totalCount)
	assert.InDelta(t, 100, totalPct, 0.1)
}

func TestSurveyAnalyticsLikertNumericOrdering(t *testing.T) {
	surveys := &fakeSurveyReader{
		survey: &models.Survey{ID: "srv-1", Title: "Feedback"},
		questions: []models.Question{
			{ID: "q-1", SurveyID: "srv-1", Type: models.QuestionLikertScale, LikertMin: 1, LikertMax: 10},
		},
	}
	responses := &fakeResponseReader{
		byQuestion: map[string][]models.Answer{
			"q-1": choiceAnswers("q-1", "10", "2", "n/a", "1", "10", "maybe"),
		},
	}

	svc := newAnalyticsService(surveys, responses, &fakeRoster{})
	payload, _, err := svc.SurveyAnalytics(context.Background(), "teacher-1", "srv-1", models.ResponseFilter{})
	require.NoError(t, err)

	item := payload.Questions[0]
	assert.Equal(t, []string{"1", "2", "10", "n/a", "maybe"}, item.ChartData.Labels)
	assert.Equal(t, []int{1, 1, 2, 1, 1}, item.ChartData.Data)
	assert.Equal(t, "bar", item.ChartData.Type)
}

func TestSurveyAnalyticsTextQuestionFeedsWordCloud(t *testing.T) {
	surveys := &fakeSurveyReader{
		survey: &models.Survey{ID: "srv-1", Title: "Feedback"},
		questions: []models.Question{
			{ID: "q-1", SurveyID: "srv-1", Type: models.QuestionLongAnswer},
		},
	}
	responses := &fakeResponseReader{
		byQuestion: map[string][]models.Answer{
			"q-1": {
				{ID: "a-1", QuestionID: "q-1", Text: "  Lessons were engaging  "},
				{ID: "a-2", QuestionID: "q-1", Text: "   "},
				{ID: "a-3", QuestionID: "q-1", Text: "engaging homework"},
			},
		},
	}

	svc := newAnalyticsService(surveys, responses, &fakeRoster{})
	payload, _, err := svc.SurveyAnalytics(context.Background(), "teacher-1", "srv-1", models.ResponseFilter{})
	require.NoError(t, err)

	item := payload.Questions[0]
	assert.Equal(t, []string{"Lessons were engaging", "engaging homework"}, item.Responses)
	require.NotEmpty(t, item.WordCloud)
	assert.Equal(t, dto.WordCloudEntry{Text: "engaging", Weight: 2}, item.WordCloud[0])
	assert.Empty(t, item.Stats)
	assert.Empty(t, item.ChartData.Labels)
}

func TestSurveyAnalyticsZeroQuestionsAndAnswers(t *testing.T) {
	surveys := &fakeSurveyReader{survey: &models.Survey{ID: "srv-1", Title: "Empty"}}
	responses := &fakeResponseReader{}

	svc := newAnalyticsService(surveys, responses, &fakeRoster{})
	payload, _, err := svc.SurveyAnalytics(context.Background(), "teacher-1", "srv-1", models.ResponseFilter{})
	require.NoError(t, err)
	assert.Empty(t, payload.Questions)
	assert.Zero(t, payload.TotalResponses)
	assert.Zero(t, payload.TotalQuestions)
}

func TestSurveyAnalyticsEmptyQuestionYieldsZeroedStats(t *testing.T) {
	surveys := &fakeSurveyReader{
		survey: &models.Survey{ID: "srv-1", Title: "Feedback"},
		questions: []models.Question{
			{ID: "q-1", SurveyID: "srv-1", Type: models.QuestionMultipleChoice},
		},
	}
	responses := &fakeResponseReader{byQuestion: map[string][]models.Answer{}}

	svc := newAnalyticsService(surveys, responses, &fakeRoster{})
	payload, _, err := svc.SurveyAnalytics(context.Background(), "teacher-1", "srv-1", models.ResponseFilter{})
	require.NoError(t, err)

	item := payload.Questions[0]
	assert.Empty(t, item.Stats)
	assert.Empty(t, item.ChartData.Labels)
	assert.Empty(t, item.ChartData.Data)
}

func TestSurveyAnalyticsSectionStatsAndRecency(t *testing.T) {
	secA := "sec-a"
	secB := "sec-b"
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	surveys := &fakeSurveyReader{
		survey: &models.Survey{ID: "srv-1", Title: "Feedback"},
		sections: []models.Section{
			{ID: secA, Name: "Grade 10 A", Code: "10A"},
			{ID: secB, Name: "Grade 10 B", Code: "10B"},
		},
	}
	responses := &fakeResponseReader{
		responses: []models.SurveyResponse{
			{ID: "r-1", SurveyID: "srv-1", SectionID: &secA, SubmittedAt: now.Add(-2 * time.Hour)},
			{ID: "r-2", SurveyID: "srv-1", SectionID: &secA, SubmittedAt: now.Add(-48 * time.Hour)},
			{ID: "r-3", SurveyID: "srv-1", SectionID: &secB, SubmittedAt: now.Add(-30 * time.Minute)},
		},
	}
	roster := &fakeRoster{counts: map[string]int{secA: 4, secB: 0}}

	svc := newAnalyticsService(surveys, responses, roster)
	svc.now = func() time.Time { return now }

	payload, _, err := svc.SurveyAnalytics(context.Background(), "teacher-1", "srv-1", models.ResponseFilter{})
	require.NoError(t, err)

	assert.Equal(t, 3, payload.TotalResponses)
	assert.Equal(t, 2, payload.RecentResponses)
	assert.Equal(t, now, payload.LastUpdated)

	require.Len(t, payload.SectionStats, 2)
	assert.Equal(t, 50.0, payload.SectionStats[0].CompletionRate)
	assert.Equal(t, 2, payload.SectionStats[0].ResponsesReceived)
	// Empty roster divides to zero, not an error.
	assert.Equal(t, 0.0, payload.SectionStats[1].CompletionRate)
	assert.Equal(t, 1, payload.SectionStats[1].ResponsesReceived)
}

func TestSurveyAnalyticsSurveyNotFound(t *testing.T) {
	surveys := &fakeSurveyReader{surveyErr: sql.ErrNoRows}

	svc := newAnalyticsService(surveys, &fakeResponseReader{}, &fakeRoster{})
	_, _, err := svc.SurveyAnalytics(context.Background(), "teacher-1", "missing", models.ResponseFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.store == nil {
		s.store = map[string][]byte{}
	}
	s.store[key] = raw
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(context.Context, string) error {
	s.store = map[string][]byte{}
	return nil
}

func TestSurveyAnalyticsUsesCacheWhenEnabled(t *testing.T) {
	surveys := &fakeSurveyReader{survey: &models.Survey{ID: "srv-1", Title: "Feedback"}}
	responses := &fakeResponseReader{}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)

	svc := NewSurveyAnalyticsService(SurveyAnalyticsParams{
		Surveys:   surveys,
		Responses: responses,
		Roster:    &fakeRoster{},
		Cache:     cacheSvc,
		Logger:    zap.NewNop(),
	})

	ctx := context.Background()
	first, hit1, err := svc.SurveyAnalytics(ctx, "teacher-1", "srv-1", models.ResponseFilter{})
	require.NoError(t, err)
	assert.False(t, hit1)

	second, hit2, err := svc.SurveyAnalytics(ctx, "teacher-1", "srv-1", models.ResponseFilter{})
	require.NoError(t, err)
	assert.True(t, hit2)
	assert.Equal(t, first.SurveyID, second.SurveyID)
}
