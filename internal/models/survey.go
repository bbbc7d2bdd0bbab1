package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionLikertScale    QuestionType = "likert_scale"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionLongAnswer     QuestionType = "long_answer"
)

// Valid reports whether the type is one of the supported kinds.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionLikertScale, QuestionShortAnswer, QuestionLongAnswer:
		return true
	}
	return false
}

// ChoiceBased reports whether answers arrive through the choice channel.
func (t QuestionType) ChoiceBased() bool {
	return t == QuestionMultipleChoice || t == QuestionLikertScale
}

// TextBased reports whether answers arrive through the free-text channel.
func (t QuestionType) TextBased() bool {
	return t == QuestionShortAnswer || t == QuestionLongAnswer
}

// StringList stores an ordered list of strings as a JSON column.
type StringList []string

// Scan implements sql.Scanner for JSON-encoded list columns.
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan StringList: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, l)
}

// Value implements driver.Valuer, encoding the list as JSON.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Section represents a class cohort that surveys are assigned to.
type Section struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Code        string    `db:"code" json:"code"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Survey is the root aggregate teachers create and assign to sections.
type Survey struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description,omitempty"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	Active      bool       `db:"active" json:"active"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Open reports whether the survey still accepts submissions at the given time.
func (s Survey) Open(now time.Time) bool {
	if !s.Active {
		return false
	}
	if s.DueDate != nil && now.After(*s.DueDate) {
		return false
	}
	return true
}

// Question belongs to a survey and renders according to its type.
type Question struct {
	ID           string       `db:"id" json:"id"`
	SurveyID     string       `db:"survey_id" json:"survey_id"`
	Text         string       `db:"question_text" json:"question_text"`
	Type         QuestionType `db:"question_type" json:"question_type"`
	Required     bool         `db:"is_required" json:"is_required"`
	Position     int          `db:"position" json:"position"`
	Options      StringList   `db:"options" json:"options,omitempty"`
	LikertMin    int          `db:"likert_min" json:"likert_min,omitempty"`
	LikertMax    int          `db:"likert_max" json:"likert_max,omitempty"`
	LikertLabels StringList   `db:"likert_labels" json:"likert_labels,omitempty"`
}

// LikertLabel returns the display label for a scale value. Values outside
// the label list fall back to the numeric value rendered as a string.
func (q Question) LikertLabel(value int) string {
	idx := value - q.LikertMin
	if idx >= 0 && idx < len(q.LikertLabels) {
		return q.LikertLabels[idx]
	}
	return strconv.Itoa(value)
}

// SurveyResponse records one student's submission. SectionID is resolved
// from the responding student's profile when loading.
type SurveyResponse struct {
	ID          string    `db:"id" json:"id"`
	SurveyID    string    `db:"survey_id" json:"survey_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	SectionID   *string   `db:"section_id" json:"section_id,omitempty"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
	Complete    bool      `db:"is_complete" json:"is_complete"`
}

// Answer holds a single answer. Exactly one of the value channels is
// populated depending on the question type.
type Answer struct {
	ID         string `db:"id" json:"id"`
	ResponseID string `db:"response_id" json:"response_id"`
	QuestionID string `db:"question_id" json:"question_id"`
	Choice     string `db:"answer_choice" json:"answer_choice,omitempty"`
	Text       string `db:"answer_text" json:"answer_text,omitempty"`
}

// ResponseFilter narrows response and answer queries. Zero values mean
// unfiltered; date bounds are inclusive calendar days applied to the
// submission timestamp's date component.
type ResponseFilter struct {
	SurveyID  string
	SectionID string
	DateFrom  *time.Time
	DateTo    *time.Time
}

// DashboardFilter carries the raw filter values from the API boundary.
// Empty strings and the literal "all" leave a dimension unfiltered; dates
// use the YYYY-MM-DD format.
type DashboardFilter struct {
	SurveyID  string `form:"survey_id" json:"survey_id,omitempty"`
	SectionID string `form:"section_id" json:"section_id,omitempty"`
	DateFrom  string `form:"date_from" json:"date_from,omitempty"`
	DateTo    string `form:"date_to" json:"date_to,omitempty"`
}
