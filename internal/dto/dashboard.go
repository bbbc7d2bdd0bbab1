package dto

import "github.com/gizmohq/survey-api/internal/models"

// PieChartEntry reports response coverage for one survey.
type PieChartEntry struct {
	SurveyID    string  `json:"survey_id"`
	SurveyTitle string  `json:"survey_title"`
	Responses   int     `json:"responses"`
	Possible    int     `json:"possible"`
	Percentage  float64 `json:"percentage"`
}

// BarChartEntry reports the filtered response count for one section.
type BarChartEntry struct {
	SectionID     string `json:"section_id"`
	SectionName   string `json:"section_name"`
	SectionCode   string `json:"section_code"`
	ResponseCount int    `json:"response_count"`
}

// LineChartEntry is one calendar day of the daily response trend.
type LineChartEntry struct {
	Date          string `json:"date"`
	DateFormatted string `json:"date_formatted"`
	ResponseCount int    `json:"response_count"`
}

// DashboardHasData tells the presentation layer which chart areas have
// anything worth rendering. The per-chart flags are true only when the
// composed series contains at least one nonzero entry.
type DashboardHasData struct {
	Surveys   bool `json:"surveys"`
	Responses bool `json:"responses"`
	Sections  bool `json:"sections"`
	PieChart  bool `json:"pie_chart"`
	BarChart  bool `json:"bar_chart"`
	LineChart bool `json:"line_chart"`
}

// DashboardResponse is the composed dashboard analytics payload.
type DashboardResponse struct {
	PieChartData   []PieChartEntry        `json:"pie_chart_data"`
	BarChartData   []BarChartEntry        `json:"bar_chart_data"`
	LineChartData  []LineChartEntry       `json:"line_chart_data"`
	TotalSurveys   int                    `json:"total_surveys"`
	TotalSections  int                    `json:"total_sections"`
	HasData        DashboardHasData       `json:"has_data"`
	FiltersApplied models.DashboardFilter `json:"filters_applied"`
}
