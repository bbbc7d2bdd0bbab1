package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gizmohq/survey-api/internal/models"
)

// SectionRepository provides read access to sections and their rosters.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs a SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// List returns every section ordered by code.
func (r *SectionRepository) List(ctx context.Context) ([]models.Section, error) {
	const query = `SELECT id, name, code, description, created_at FROM sections ORDER BY code ASC`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// FindByID fetches a single section.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, name, code, description, created_at FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// StudentCount counts the users with the student role assigned to a section.
func (r *SectionRepository) StudentCount(ctx context.Context, sectionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE section_id = $1 AND role = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sectionID, models.RoleStudent); err != nil {
		return 0, fmt.Errorf("count students in section: %w", err)
	}
	return count, nil
}
