package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gizmohq/survey-api/internal/dto"
	"github.com/gizmohq/survey-api/internal/models"
	appErrors "github.com/gizmohq/survey-api/pkg/errors"
)

// filterAll is the sentinel query value that leaves a dimension unfiltered.
const filterAll = "all"

type dashboardSurveyReader interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Survey, error)
	SectionsBySurvey(ctx context.Context, surveyID string) ([]models.Section, error)
}

type dashboardResponseReader interface {
	ListByOwner(ctx context.Context, ownerID string, filter models.ResponseFilter) ([]models.SurveyResponse, error)
}

type dashboardSectionReader interface {
	List(ctx context.Context) ([]models.Section, error)
	StudentCount(ctx context.Context, sectionID string) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL        time.Duration
	TrendWindowDays int
}

// DashboardService aggregates response trends across all of a teacher's
// surveys and sections: per-survey coverage, per-section counts and a
// gap-free daily time series. Calling it without filters is equivalent to
// filtering by every survey, every section and the trailing default window.
type DashboardService struct {
	surveys   dashboardSurveyReader
	responses dashboardResponseReader
	sections  dashboardSectionReader
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
	cfg       DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Surveys   dashboardSurveyReader
	Responses dashboardResponseReader
	Sections  dashboardSectionReader
	Cache     *CacheService
	Metrics   *MetricsService
	Logger    *zap.Logger
	Config    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.TrendWindowDays <= 0 {
		cfg.TrendWindowDays = 30
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		surveys:   params.Surveys,
		responses: params.Responses,
		sections:  params.Sections,
		cache:     params.Cache,
		metrics:   params.Metrics,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// resolvedFilter is the normalised form of a DashboardFilter: sentinel
// values collapsed to empty strings and the date window always populated.
type resolvedFilter struct {
	surveyID  string
	sectionID string
	from      time.Time
	to        time.Time
}

// Dashboard returns the composed dashboard payload for a teacher. The
// boolean indicates a cache hit.
func (s *DashboardService) Dashboard(ctx context.Context, teacherID string, filter models.DashboardFilter) (*dto.DashboardResponse, bool, error) {
	if teacherID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	resolved, err := s.resolveFilter(filter)
	if err != nil {
		return nil, false, err
	}

	cacheKey := dashboardCacheKey(teacherID, resolved)
	if s.cache != nil {
		var cached dto.DashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, err
		} else if hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	payload, err := s.compose(ctx, teacherID, resolved)
	if err != nil {
		return nil, false, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("analytics_dashboard", time.Since(start))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, payload, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("cache dashboard analytics", zap.Error(err))
		}
	}
	return payload, false, nil
}

// resolveFilter validates dates and applies defaults. The supplied window is
// honoured only when both bounds are present; a lone bound is still
// validated, then the trailing trend window applies, so the series and the
// response predicate always share one fully bounded window.
func (s *DashboardService) resolveFilter(filter models.DashboardFilter) (resolvedFilter, error) {
	resolved := resolvedFilter{}
	if filter.SurveyID != "" && filter.SurveyID != filterAll {
		resolved.surveyID = filter.SurveyID
	}
	if filter.SectionID != "" && filter.SectionID != filterAll {
		resolved.sectionID = filter.SectionID
	}

	today := dateOnly(s.now().UTC())
	resolved.from = today.AddDate(0, 0, -s.cfg.TrendWindowDays)
	resolved.to = today

	var from, to time.Time
	if filter.DateFrom != "" {
		parsed, err := parseFilterDate(filter.DateFrom)
		if err != nil {
			return resolvedFilter{}, appErrors.Clone(appErrors.ErrInvalidDateFilter, fmt.Sprintf("invalid date_from %q", filter.DateFrom))
		}
		from = parsed
	}
	if filter.DateTo != "" {
		parsed, err := parseFilterDate(filter.DateTo)
		if err != nil {
			return resolvedFilter{}, appErrors.Clone(appErrors.ErrInvalidDateFilter, fmt.Sprintf("invalid date_to %q", filter.DateTo))
		}
		to = parsed
	}
	if filter.DateFrom != "" && filter.DateTo != "" {
		resolved.from = from
		resolved.to = to
	}
	return resolved, nil
}

func (s *DashboardService) compose(ctx context.Context, teacherID string, filter resolvedFilter) (*dto.DashboardResponse, error) {
	surveys, err := s.surveys.ListByOwner(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	allSections, err := s.sections.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}

	responseFilter := models.ResponseFilter{
		SurveyID:  filter.surveyID,
		SectionID: filter.sectionID,
		DateFrom:  &filter.from,
		DateTo:    &filter.to,
	}
	responses, err := s.responses.ListByOwner(ctx, teacherID, responseFilter)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}

	totalSurveys := len(surveys)
	totalSections := len(allSections)

	selectedSurveys := surveys
	if filter.surveyID != "" {
		selectedSurveys = nil
		for _, survey := range surveys {
			if survey.ID == filter.surveyID {
				selectedSurveys = append(selectedSurveys, survey)
			}
		}
	}
	selectedSections := allSections
	if filter.sectionID != "" {
		selectedSections = nil
		for _, section := range allSections {
			if section.ID == filter.sectionID {
				selectedSections = append(selectedSections, section)
			}
		}
	}

	pie, err := s.composePie(ctx, selectedSurveys, filter.sectionID, responses)
	if err != nil {
		return nil, err
	}
	bar := composeBar(selectedSections, responses)
	line := composeLine(filter.from, filter.to, responses)

	hasData := dto.DashboardHasData{
		Surveys:   len(selectedSurveys) > 0,
		Responses: len(responses) > 0,
		Sections:  len(selectedSections) > 0,
	}
	for _, entry := range pie {
		if entry.Responses > 0 {
			hasData.PieChart = true
			break
		}
	}
	for _, entry := range bar {
		if entry.ResponseCount > 0 {
			hasData.BarChart = true
			break
		}
	}
	for _, entry := range line {
		if entry.ResponseCount > 0 {
			hasData.LineChart = true
			break
		}
	}

	return &dto.DashboardResponse{
		PieChartData:   pie,
		BarChartData:   bar,
		LineChartData:  line,
		TotalSurveys:   totalSurveys,
		TotalSections:  totalSections,
		HasData:        hasData,
		FiltersApplied: echoFilter(filter),
	}, nil
}

// echoFilter reports the filters that were actually applied, defaults
// substituted, so a cached payload and a fresh one describe the same window.
func echoFilter(filter resolvedFilter) models.DashboardFilter {
	echo := models.DashboardFilter{
		SurveyID:  filter.surveyID,
		SectionID: filter.sectionID,
		DateFrom:  filter.from.Format("2006-01-02"),
		DateTo:    filter.to.Format("2006-01-02"),
	}
	if echo.SurveyID == "" {
		echo.SurveyID = filterAll
	}
	if echo.SectionID == "" {
		echo.SectionID = filterAll
	}
	return echo
}

// composePie builds per-survey coverage. Possible responses are the student
// counts of the survey's assigned sections, narrowed to the selected
// section when one is set; an empty roster yields 0 percent, not an error.
func (s *DashboardService) composePie(ctx context.Context, surveys []models.Survey, sectionID string, responses []models.SurveyResponse) ([]dto.PieChartEntry, error) {
	bySurvey := make(map[string]int)
	for _, resp := range responses {
		bySurvey[resp.SurveyID]++
	}

	entries := make([]dto.PieChartEntry, 0, len(surveys))
	for _, survey := range surveys {
		sections, err := s.surveys.SectionsBySurvey(ctx, survey.ID)
		if err != nil {
			return nil, fmt.Errorf("list sections for survey %s: %w", survey.ID, err)
		}
		possible := 0
		for _, section := range sections {
			if sectionID != "" && section.ID != sectionID {
				continue
			}
			count, err := s.sections.StudentCount(ctx, section.ID)
			if err != nil {
				return nil, fmt.Errorf("count students for section %s: %w", section.ID, err)
			}
			possible += count
		}
		received := bySurvey[survey.ID]
		percentage := 0.0
		if possible > 0 {
			percentage = round1(float64(received) / float64(possible) * 100)
		}
		entries = append(entries, dto.PieChartEntry{
			SurveyID:    survey.ID,
			SurveyTitle: survey.Title,
			Responses:   received,
			Possible:    possible,
			Percentage:  percentage,
		})
	}
	return entries, nil
}

func composeBar(sections []models.Section, responses []models.SurveyResponse) []dto.BarChartEntry {
	bySection := make(map[string]int)
	for _, resp := range responses {
		if resp.SectionID != nil {
			bySection[*resp.SectionID]++
		}
	}
	entries := make([]dto.BarChartEntry, 0, len(sections))
	for _, section := range sections {
		entries = append(entries, dto.BarChartEntry{
			SectionID:     section.ID,
			SectionName:   section.Name,
			SectionCode:   section.Code,
			ResponseCount: bySection[section.ID],
		})
	}
	return entries
}

// composeLine emits one entry per calendar day of the inclusive window,
// including zero-count days. A window whose start is after its end yields
// an empty series.
func composeLine(from, to time.Time, responses []models.SurveyResponse) []dto.LineChartEntry {
	byDay := make(map[string]int)
	for _, resp := range responses {
		byDay[resp.SubmittedAt.UTC().Format("2006-01-02")]++
	}
	var entries []dto.LineChartEntry
	for day := dateOnly(from); !day.After(dateOnly(to)); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		entries = append(entries, dto.LineChartEntry{
			Date:          key,
			DateFormatted: day.Format("01/02"),
			ResponseCount: byDay[key],
		})
	}
	return entries
}

func parseFilterDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(raw))
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dashboardCacheKey(teacherID string, filter resolvedFilter) string {
	return strings.Join([]string{
		"analytics", "dashboard", teacherID,
		filter.surveyID, filter.sectionID,
		filter.from.Format("2006-01-02"), filter.to.Format("2006-01-02"),
	}, ":")
}
