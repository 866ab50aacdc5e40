package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
)

// StudentRepository reads student records. Students are mutated by grade
// import jobs elsewhere; the enrollment core only reads them.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, academic_id, full_name, cgpa, taken_credit_hours, program_id, level_id, is_graduating, active, created_at, updated_at`

// FindByID returns a student by primary key.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByAcademicID resolves a student by the institutional academic number.
func (r *StudentRepository) FindByAcademicID(ctx context.Context, academicID string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE academic_id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, academicID); err != nil {
		return nil, err
	}
	return &student, nil
}
