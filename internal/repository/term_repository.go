package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
)

// TermRepository reads academic terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository constructs the repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// FindByID returns a term by its ID.
func (r *TermRepository) FindByID(ctx context.Context, id string) (*models.Term, error) {
	const query = `SELECT id, code, season, year, is_active, created_at FROM terms WHERE id = $1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		return nil, err
	}
	return &term, nil
}

// FindByCode resolves a term by its short code, e.g. "2025F".
func (r *TermRepository) FindByCode(ctx context.Context, code string) (*models.Term, error) {
	const query = `SELECT id, code, season, year, is_active, created_at FROM terms WHERE code = $1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, code); err != nil {
		return nil, err
	}
	return &term, nil
}
