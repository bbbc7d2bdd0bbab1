package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gizmohq/survey-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSurveyRepositoryListByOwner(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSurveyRepository(db)

	rows := sqlmock.NewRows([]string{"id", "title", "description", "created_by", "active", "due_date", "created_at", "updated_at"}).
		AddRow("srv-1", "Course Feedback", "", "teacher-1", true, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, created_by, active, due_date, created_at, updated_at FROM surveys WHERE created_by = $1 ORDER BY created_at DESC")).
		WithArgs("teacher-1").
		WillReturnRows(rows)

	surveys, err := repo.ListByOwner(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.Len(t, surveys, 1)
	assert.Equal(t, "Course Feedback", surveys[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSurveyRepositoryQuestionsBySurveyOrdered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSurveyRepository(db)

	rows := sqlmock.NewRows([]string{"id", "survey_id", "question_text", "question_type", "is_required", "position", "options", "likert_min", "likert_max", "likert_labels"}).
		AddRow("q-1", "srv-1", "How was the pace?", "multiple_choice", true, 1, []byte(`["Too slow","Just right","Too fast"]`), 0, 0, []byte(`[]`)).
		AddRow("q-2", "srv-1", "Rate the material", "likert_scale", true, 2, []byte(`[]`), 1, 5, []byte(`["Poor","Fair","Good","Great","Excellent"]`))
	mock.ExpectQuery("SELECT id, survey_id, question_text, question_type, is_required, position, options, likert_min, likert_max, likert_labels\\s+FROM questions WHERE survey_id = \\$1 ORDER BY position ASC, id ASC").
		WithArgs("srv-1").
		WillReturnRows(rows)

	questions, err := repo.QuestionsBySurvey(context.Background(), "srv-1")
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, models.QuestionMultipleChoice, questions[0].Type)
	assert.Equal(t, models.StringList{"Too slow", "Just right", "Too fast"}, questions[0].Options)
	assert.Equal(t, 5, questions[1].LikertMax)
	assert.Equal(t, "Great", questions[1].LikertLabel(4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSurveyRepositorySectionsBySurvey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSurveyRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "code", "description", "created_at"}).
		AddRow("sec-1", "Grade 10 A", "10A", "", time.Now()).
		AddRow("sec-2", "Grade 10 B", "10B", "", time.Now())
	mock.ExpectQuery("SELECT s.id, s.name, s.code, s.description, s.created_at\\s+FROM sections s\\s+JOIN survey_sections ss ON ss.section_id = s.id\\s+WHERE ss.survey_id = \\$1\\s+ORDER BY s.code ASC").
		WithArgs("srv-1").
		WillReturnRows(rows)

	sections, err := repo.SectionsBySurvey(context.Background(), "srv-1")
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "10A", sections[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
