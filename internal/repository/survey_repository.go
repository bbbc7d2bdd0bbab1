package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gizmohq/survey-api/internal/models"
)

const surveyColumns = "id, title, description, created_by, active, due_date, created_at, updated_at"

// SurveyRepository provides read access to surveys, their questions and
// their section assignments.
type SurveyRepository struct {
	db *sqlx.DB
}

// NewSurveyRepository constructs a SurveyRepository.
func NewSurveyRepository(db *sqlx.DB) *SurveyRepository {
	return &SurveyRepository{db: db}
}

// ListByOwner returns all surveys created by the given teacher, newest first.
func (r *SurveyRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Survey, error) {
	query := fmt.Sprintf("SELECT %s FROM surveys WHERE created_by = $1 ORDER BY created_at DESC", surveyColumns)
	var surveys []models.Survey
	if err := r.db.SelectContext(ctx, &surveys, query, ownerID); err != nil {
		return nil, fmt.Errorf("list surveys by owner: %w", err)
	}
	return surveys, nil
}

// FindByID fetches a survey scoped to its owner.
func (r *SurveyRepository) FindByID(ctx context.Context, id, ownerID string) (*models.Survey, error) {
	query := fmt.Sprintf("SELECT %s FROM surveys WHERE id = $1 AND created_by = $2", surveyColumns)
	var survey models.Survey
	if err := r.db.GetContext(ctx, &survey, query, id, ownerID); err != nil {
		return nil, err
	}
	return &survey, nil
}

// QuestionsBySurvey returns the survey's questions in display order.
func (r *SurveyRepository) QuestionsBySurvey(ctx context.Context, surveyID string) ([]models.Question, error) {
	const query = `SELECT id, survey_id, question_text, question_type, is_required, position, options, likert_min, likert_max, likert_labels
		FROM questions WHERE survey_id = $1 ORDER BY position ASC, id ASC`
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, surveyID); err != nil {
		return nil, fmt.Errorf("list questions for survey: %w", err)
	}
	return questions, nil
}

// SectionsBySurvey returns the sections a survey is assigned to.
func (r *SurveyRepository) SectionsBySurvey(ctx context.Context, surveyID string) ([]models.Section, error) {
	const query = `SELECT s.id, s.name, s.code, s.description, s.created_at
		FROM sections s
		JOIN survey_sections ss ON ss.section_id = s.id
		WHERE ss.survey_id = $1
		ORDER BY s.code ASC`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, surveyID); err != nil {
		return nil, fmt.Errorf("list sections for survey: %w", err)
	}
	return sections, nil
}
