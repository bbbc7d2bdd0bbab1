package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gizmohq/survey-api/internal/models"
)

// ResponseRepository provides read access to survey responses and answers.
// Date bounds on the filter are inclusive calendar days applied to the
// submission timestamp.
type ResponseRepository struct {
	db *sqlx.DB
}

// NewResponseRepository constructs a ResponseRepository.
func NewResponseRepository(db *sqlx.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// ListByOwner returns responses to any of the owner's surveys matching the
// filter. The responding student's section is resolved through the join.
func (r *ResponseRepository) ListByOwner(ctx context.Context, ownerID string, filter models.ResponseFilter) ([]models.SurveyResponse, error) {
	query := `SELECT r.id, r.survey_id, r.student_id, u.section_id, r.submitted_at, r.is_complete
		FROM survey_responses r
		JOIN surveys s ON s.id = r.survey_id
		JOIN users u ON u.id = r.student_id
		WHERE s.created_by = $1`
	args := []interface{}{ownerID}
	query, args = appendResponseFilter(query, args, filter, "r", "u")
	query += " ORDER BY r.submitted_at DESC, r.id ASC"

	var responses []models.SurveyResponse
	if err := r.db.SelectContext(ctx, &responses, query, args...); err != nil {
		return nil, fmt.Errorf("list responses by owner: %w", err)
	}
	return responses, nil
}

// AnswersByQuestion returns every answer for a (survey, question) pair,
// narrowed by the filter, in submission order.
func (r *ResponseRepository) AnswersByQuestion(ctx context.Context, surveyID, questionID string, filter models.ResponseFilter) ([]models.Answer, error) {
	query := `SELECT a.id, a.response_id, a.question_id, a.answer_choice, a.answer_text
		FROM answers a
		JOIN survey_responses r ON r.id = a.response_id
		JOIN users u ON u.id = r.student_id
		WHERE r.survey_id = $1 AND a.question_id = $2`
	args := []interface{}{surveyID, questionID}
	filter.SurveyID = ""
	query, args = appendResponseFilter(query, args, filter, "r", "u")
	query += " ORDER BY r.submitted_at ASC, a.id ASC"

	var answers []models.Answer
	if err := r.db.SelectContext(ctx, &answers, query, args...); err != nil {
		return nil, fmt.Errorf("list answers for question: %w", err)
	}
	return answers, nil
}

// appendResponseFilter extends a response query with the optional filter
// dimensions. respAlias and userAlias name the joined tables in the query.
func appendResponseFilter(query string, args []interface{}, filter models.ResponseFilter, respAlias, userAlias string) (string, []interface{}) {
	if filter.SurveyID != "" {
		args = append(args, filter.SurveyID)
		query += fmt.Sprintf(" AND %s.survey_id = $%d", respAlias, len(args))
	}
	if filter.SectionID != "" {
		args = append(args, filter.SectionID)
		query += fmt.Sprintf(" AND %s.section_id = $%d", userAlias, len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, dayStart(*filter.DateFrom))
		query += fmt.Sprintf(" AND %s.submitted_at >= $%d", respAlias, len(args))
	}
	if filter.DateTo != nil {
		args = append(args, dayStart(*filter.DateTo).AddDate(0, 0, 1))
		query += fmt.Sprintf(" AND %s.submitted_at < $%d", respAlias, len(args))
	}
	return query, args
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
