package dto

import (
	"time"

	"github.com/gizmohq/survey-api/internal/models"
)

// ChoiceStat pairs an absolute count with its share of the answers.
type ChoiceStat struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ChartData describes a renderable chart series. Labels and Data are
// parallel slices; Type selects the visualisation ("pie" or "bar").
type ChartData struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
	Type   string   `json:"type"`
}

// WordCloudEntry weights a single term for word-cloud rendering.
type WordCloudEntry struct {
	Text   string `json:"text"`
	Weight int    `json:"weight"`
}

// QuestionAnalytics is the per-question aggregation result. Choice-based
// questions populate Stats and ChartData; text questions populate
// Responses and WordCloud. ChartData.Labels carries the display order of
// the Stats keys since JSON objects do not preserve ordering.
type QuestionAnalytics struct {
	Question  models.Question       `json:"question"`
	Type      models.QuestionType   `json:"type"`
	Stats     map[string]ChoiceStat `json:"stats"`
	ChartData ChartData             `json:"chart_data"`
	Responses []string              `json:"responses"`
	WordCloud []WordCloudEntry      `json:"word_cloud_data"`
}

// SectionCompletionStat summarises response coverage for one section.
type SectionCompletionStat struct {
	SectionID         string  `json:"section_id"`
	SectionName       string  `json:"section_name"`
	SectionCode       string  `json:"section_code"`
	TotalStudents     int     `json:"total_students"`
	ResponsesReceived int     `json:"responses_received"`
	CompletionRate    float64 `json:"completion_rate"`
}

// SurveyAnalyticsResponse is the full analytics payload for one survey.
type SurveyAnalyticsResponse struct {
	SurveyID        string                  `json:"survey_id"`
	SurveyTitle     string                  `json:"survey_title"`
	TotalResponses  int                     `json:"total_responses"`
	TotalQuestions  int                     `json:"total_questions"`
	RecentResponses int                     `json:"recent_responses"`
	SectionStats    []SectionCompletionStat `json:"section_stats"`
	Questions       []QuestionAnalytics     `json:"analytics_data"`
	LastUpdated     time.Time               `json:"last_updated"`
}
