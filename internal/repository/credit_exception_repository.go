package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
)

// CreditExceptionRepository reads credit hour exception grants.
type CreditExceptionRepository struct {
	db *sqlx.DB
}

// NewCreditExceptionRepository constructs the repository.
func NewCreditExceptionRepository(db *sqlx.DB) *CreditExceptionRepository {
	return &CreditExceptionRepository{db: db}
}

// FindActive returns the active exception for a (student, term) pair, or nil
// when none applies. "Active" means the flag is set and the validity window
// covers now.
func (r *CreditExceptionRepository) FindActive(ctx context.Context, studentID, termID string) (*models.CreditHoursException, error) {
	const query = `SELECT id, student_id, term_id, granted_by, additional_hours, is_active, valid_from, valid_until
        FROM credit_hours_exceptions
        WHERE student_id = $1 AND term_id = $2 AND is_active = TRUE
          AND valid_from <= NOW() AND valid_until >= NOW()
        ORDER BY valid_until DESC LIMIT 1`
	var exception models.CreditHoursException
	if err := r.db.GetContext(ctx, &exception, query, studentID, termID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &exception, nil
}
