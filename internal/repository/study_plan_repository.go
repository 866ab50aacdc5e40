package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
)

// StudyPlanRepository reads program study plans and elective pools.
type StudyPlanRepository struct {
	db *sqlx.DB
}

// NewStudyPlanRepository constructs the repository.
func NewStudyPlanRepository(db *sqlx.DB) *StudyPlanRepository {
	return &StudyPlanRepository{db: db}
}

const planColumns = `id, program_id, semester_no, course_id, elective_group_id, type`

// ListBySemester returns the plan rows of one program semester.
func (r *StudyPlanRepository) ListBySemester(ctx context.Context, programID string, semesterNo int) ([]models.StudyPlanEntry, error) {
	query := `SELECT ` + planColumns + ` FROM study_plans WHERE program_id = $1 AND semester_no = $2 ORDER BY id`
	var entries []models.StudyPlanEntry
	if err := r.db.SelectContext(ctx, &entries, query, programID, semesterNo); err != nil {
		return nil, fmt.Errorf("list study plan semester: %w", err)
	}
	return entries, nil
}

// ListBeforeSemester returns plan rows of all semesters strictly before the
// given one, used by the missing-requirements pass.
func (r *StudyPlanRepository) ListBeforeSemester(ctx context.Context, programID string, semesterNo int) ([]models.StudyPlanEntry, error) {
	query := `SELECT ` + planColumns + ` FROM study_plans WHERE program_id = $1 AND semester_no < $2 ORDER BY semester_no, id`
	var entries []models.StudyPlanEntry
	if err := r.db.SelectContext(ctx, &entries, query, programID, semesterNo); err != nil {
		return nil, fmt.Errorf("list earlier study plan semesters: %w", err)
	}
	return entries, nil
}

// GroupsByIDs loads the named elective groups referenced by plan rows.
func (r *StudyPlanRepository) GroupsByIDs(ctx context.Context, ids []string) ([]models.ElectiveGroup, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, program_id, code FROM elective_groups WHERE id IN (%s) ORDER BY code`,
		strings.Join(placeholders, ","))
	var groups []models.ElectiveGroup
	if err := r.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, fmt.Errorf("list elective groups: %w", err)
	}
	return groups, nil
}

// PoolByGroupIDs returns the union of pool courses feeding the given
// elective groups. A pool may be shared by several groups; callers
// deduplicate by course ID.
func (r *StudyPlanRepository) PoolByGroupIDs(ctx context.Context, groupIDs []string) ([]models.ElectivePoolCourse, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(groupIDs))
	args := make([]interface{}, len(groupIDs))
	for i, id := range groupIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT egc.elective_group_id, eg.code AS group_code, egc.course_id,
        c.code AS course_code, c.title AS course_title, c.credit_hours
        FROM elective_group_courses egc
        JOIN elective_groups eg ON eg.id = egc.elective_group_id
        JOIN courses c ON c.id = egc.course_id
        WHERE egc.elective_group_id IN (%s)
        ORDER BY c.code`, strings.Join(placeholders, ","))
	var pool []models.ElectivePoolCourse
	if err := r.db.SelectContext(ctx, &pool, query, args...); err != nil {
		return nil, fmt.Errorf("list elective pool: %w", err)
	}
	return pool, nil
}
