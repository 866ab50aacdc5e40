package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
)

// CourseRepository reads catalogue courses and their prerequisite chains.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course with its ordered prerequisite list.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.CourseWithPrerequisites, error) {
	const query = `SELECT id, code, title, credit_hours, created_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	prereqs, err := r.ListPrerequisites(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return &models.CourseWithPrerequisites{Course: course, Prerequisites: prereqs}, nil
}

// FindByCode resolves a course by catalogue code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	const query = `SELECT id, code, title, credit_hours, created_at FROM courses WHERE code = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListByIDs returns the courses matching the given IDs.
func (r *CourseRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, code, title, credit_hours, created_at FROM courses WHERE id IN (%s) ORDER BY code`,
		strings.Join(placeholders, ","))
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListPrerequisites returns prerequisite rows for the given course IDs.
func (r *CourseRepository) ListPrerequisites(ctx context.Context, courseIDs []string) ([]models.CoursePrerequisite, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(courseIDs))
	args := make([]interface{}, len(courseIDs))
	for i, id := range courseIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT cp.course_id, cp.prerequisite_id, c.code, cp.seq
        FROM course_prerequisites cp
        JOIN courses c ON c.id = cp.prerequisite_id
        WHERE cp.course_id IN (%s)
        ORDER BY cp.course_id, cp.seq`, strings.Join(placeholders, ","))
	var prereqs []models.CoursePrerequisite
	if err := r.db.SelectContext(ctx, &prereqs, query, args...); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return prereqs, nil
}
