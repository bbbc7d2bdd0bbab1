package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gizmohq/survey-api/internal/dto"
	"github.com/gizmohq/survey-api/internal/models"
	appErrors "github.com/gizmohq/survey-api/pkg/errors"
)

type surveyReader interface {
	FindByID(ctx context.Context, id, ownerID string) (*models.Survey, error)
	QuestionsBySurvey(ctx context.Context, surveyID string) ([]models.Question, error)
	SectionsBySurvey(ctx context.Context, surveyID string) ([]models.Section, error)
}

type responseReader interface {
	ListByOwner(ctx context.Context, ownerID string, filter models.ResponseFilter) ([]models.SurveyResponse, error)
	AnswersByQuestion(ctx context.Context, surveyID, questionID string, filter models.ResponseFilter) ([]models.Answer, error)
}

type sectionRoster interface {
	StudentCount(ctx context.Context, sectionID string) (int, error)
}

// SurveyAnalyticsConfig tunes analytics composition.
type SurveyAnalyticsConfig struct {
	CacheTTL     time.Duration
	RecentWindow time.Duration
}

// SurveyAnalyticsService composes the full analytics payload for a survey:
// per-question aggregation, word clouds for free-text questions, section
// completion rates and submission recency. Every call recomputes from the
// current data; nothing is mutated.
type SurveyAnalyticsService struct {
	surveys   surveyReader
	responses responseReader
	roster    sectionRoster
	wordcloud *WordCloudSummarizer
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
	cfg       SurveyAnalyticsConfig
}

// SurveyAnalyticsParams groups constructor dependencies.
type SurveyAnalyticsParams struct {
	Surveys   surveyReader
	Responses responseReader
	Roster    sectionRoster
	WordCloud *WordCloudSummarizer
	Cache     *CacheService
	Metrics   *MetricsService
	Logger    *zap.Logger
	Config    SurveyAnalyticsConfig
}

// NewSurveyAnalyticsService constructs the service with sane defaults.
func NewSurveyAnalyticsService(params SurveyAnalyticsParams) *SurveyAnalyticsService {
	cfg := params.Config
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 24 * time.Hour
	}
	wordcloud := params.WordCloud
	if wordcloud == nil {
		wordcloud = NewWordCloudSummarizer(nil, 0)
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SurveyAnalyticsService{
		surveys:   params.Surveys,
		responses: params.Responses,
		roster:    params.Roster,
		wordcloud: wordcloud,
		cache:     params.Cache,
		metrics:   params.Metrics,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// SurveyAnalytics returns the composed analytics payload for one survey
// owned by the given teacher. The boolean indicates a cache hit. An
// optional filter narrows the responses considered; the zero filter means
// every response to the survey.
func (s *SurveyAnalyticsService) SurveyAnalytics(ctx context.Context, teacherID, surveyID string, filter models.ResponseFilter) (*dto.SurveyAnalyticsResponse, bool, error) {
	survey, err := s.surveys.FindByID(ctx, surveyID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "survey not found")
		}
		return nil, false, fmt.Errorf("load survey: %w", err)
	}

	cacheKey := surveyAnalyticsCacheKey(teacherID, surveyID, filter)
	if s.cache != nil {
		var cached dto.SurveyAnalyticsResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, err
		} else if hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	payload, err := s.compose(ctx, teacherID, survey, filter)
	if err != nil {
		return nil, false, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("analytics_survey", time.Since(start))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, payload, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("cache survey analytics", zap.Error(err))
		}
	}
	return payload, false, nil
}

func (s *SurveyAnalyticsService) compose(ctx context.Context, teacherID string, survey *models.Survey, filter models.ResponseFilter) (*dto.SurveyAnalyticsResponse, error) {
	questions, err := s.surveys.QuestionsBySurvey(ctx, survey.ID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	filter.SurveyID = survey.ID
	responses, err := s.responses.ListByOwner(ctx, teacherID, filter)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}

	// Questions arrive in display order from the repository; the payload
	// preserves that order.
	items := make([]dto.QuestionAnalytics, 0, len(questions))
	for _, question := range questions {
		answers, err := s.responses.AnswersByQuestion(ctx, survey.ID, question.ID, filter)
		if err != nil {
			return nil, fmt.Errorf("load answers for question %s: %w", question.ID, err)
		}
		items = append(items, s.aggregateQuestion(question, answers))
	}

	sectionStats, err := s.sectionStats(ctx, survey.ID, responses)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	recentCutoff := now.Add(-s.cfg.RecentWindow)
	recent := 0
	for _, resp := range responses {
		if !resp.SubmittedAt.Before(recentCutoff) {
			recent++
		}
	}

	return &dto.SurveyAnalyticsResponse{
		SurveyID:        survey.ID,
		SurveyTitle:     survey.Title,
		TotalResponses:  len(responses),
		TotalQuestions:  len(questions),
		RecentResponses: recent,
		SectionStats:    sectionStats,
		Questions:       items,
		LastUpdated:     now,
	}, nil
}

// aggregateQuestion produces the type-specific summary for one question.
// It is total over the question-type enum; a question with zero answers
// yields empty stats and chart series, never an error.
func (s *SurveyAnalyticsService) aggregateQuestion(question models.Question, answers []models.Answer) dto.QuestionAnalytics {
	result := dto.QuestionAnalytics{
		Question:  question,
		Type:      question.Type,
		Stats:     map[string]dto.ChoiceStat{},
		Responses: []string{},
		WordCloud: []dto.WordCloudEntry{},
	}

	switch question.Type {
	case models.QuestionMultipleChoice:
		keys, counts := groupChoices(answers)
		result.Stats = choiceStats(keys, counts, len(answers))
		result.ChartData = chartData(keys, counts, "pie")

	case models.QuestionLikertScale:
		keys, counts := groupChoices(answers)
		sortLikertKeys(keys)
		result.Stats = choiceStats(keys, counts, len(answers))
		result.ChartData = chartData(keys, counts, "bar")

	case models.QuestionShortAnswer, models.QuestionLongAnswer:
		texts := make([]string, 0, len(answers))
		for _, answer := range answers {
			if trimmed := strings.TrimSpace(answer.Text); trimmed != "" {
				texts = append(texts, trimmed)
			}
		}
		result.Responses = texts
		result.WordCloud = s.wordcloud.Summarize(texts)
	}

	return result
}

func (s *SurveyAnalyticsService) sectionStats(ctx context.Context, surveyID string, responses []models.SurveyResponse) ([]dto.SectionCompletionStat, error) {
	sections, err := s.surveys.SectionsBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("load survey sections: %w", err)
	}

	bySection := make(map[string]int)
	for _, resp := range responses {
		if resp.SectionID != nil {
			bySection[*resp.SectionID]++
		}
	}

	stats := make([]dto.SectionCompletionStat, 0, len(sections))
	for _, section := range sections {
		students, err := s.roster.StudentCount(ctx, section.ID)
		if err != nil {
			return nil, fmt.Errorf("count students for section %s: %w", section.ID, err)
		}
		received := bySection[section.ID]
		rate := 0.0
		if students > 0 {
			rate = round1(float64(received) / float64(students) * 100)
		}
		stats = append(stats, dto.SectionCompletionStat{
			SectionID:         section.ID,
			SectionName:       section.Name,
			SectionCode:       section.Code,
			TotalStudents:     students,
			ResponsesReceived: received,
			CompletionRate:    rate,
		})
	}
	return stats, nil
}

// groupChoices counts distinct choice values preserving first-seen order.
func groupChoices(answers []models.Answer) ([]string, map[string]int) {
	counts := make(map[string]int, len(answers))
	var keys []string
	for _, answer := range answers {
		if _, seen := counts[answer.Choice]; !seen {
			keys = append(keys, answer.Choice)
		}
		counts[answer.Choice]++
	}
	return keys, counts
}

// sortLikertKeys orders scale values numerically ascending. Values that are
// not integer literals sort after every numeric value and keep their
// relative encounter order; legacy rows with free-form choices stay visible
// instead of being dropped.
func sortLikertKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		vi, errI := strconv.Atoi(keys[i])
		vj, errJ := strconv.Atoi(keys[j])
		switch {
		case errI == nil && errJ == nil:
			return vi < vj
		case errI == nil:
			return true
		default:
			return false
		}
	})
}

func choiceStats(keys []string, counts map[string]int, total int) map[string]dto.ChoiceStat {
	stats := make(map[string]dto.ChoiceStat, len(keys))
	for _, key := range keys {
		percentage := 0.0
		if total > 0 {
			percentage = round1(float64(counts[key]) / float64(total) * 100)
		}
		stats[key] = dto.ChoiceStat{Count: counts[key], Percentage: percentage}
	}
	return stats
}

func chartData(keys []string, counts map[string]int, chartType string) dto.ChartData {
	labels := make([]string, 0, len(keys))
	data := make([]int, 0, len(keys))
	for _, key := range keys {
		labels = append(labels, key)
		data = append(data, counts[key])
	}
	return dto.ChartData{Labels: labels, Data: data, Type: chartType}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func surveyAnalyticsCacheKey(teacherID, surveyID string, filter models.ResponseFilter) string {
	parts := []string{"analytics", "survey", teacherID, surveyID, filter.SectionID, formatDatePtr(filter.DateFrom), formatDatePtr(filter.DateTo)}
	return strings.Join(parts, ":")
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
