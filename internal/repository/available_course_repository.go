package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
	appErrors "github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/errors"
)

// AvailableCourseRepository handles course offerings, their activity groups
// and eligibility scoping.
type AvailableCourseRepository struct {
	db *sqlx.DB
}

// NewAvailableCourseRepository constructs the repository.
func NewAvailableCourseRepository(db *sqlx.DB) *AvailableCourseRepository {
	return &AvailableCourseRepository{db: db}
}

// FindByID returns the raw offering row.
func (r *AvailableCourseRepository) FindByID(ctx context.Context, id string) (*models.AvailableCourse, error) {
	const query = `SELECT id, course_id, term_id, mode, created_at FROM available_courses WHERE id = $1`
	var offering models.AvailableCourse
	if err := r.db.GetContext(ctx, &offering, query, id); err != nil {
		return nil, err
	}
	return &offering, nil
}

// FindDetailByID returns an offering with its course, prerequisites and
// activity groups.
func (r *AvailableCourseRepository) FindDetailByID(ctx context.Context, id string) (*models.OfferingDetail, error) {
	offering, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	const courseQuery = `SELECT id, code, title, credit_hours, created_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, courseQuery, offering.CourseID); err != nil {
		return nil, fmt.Errorf("load offering course: %w", err)
	}

	const prereqQuery = `SELECT cp.course_id, cp.prerequisite_id, c.code, cp.seq
        FROM course_prerequisites cp
        JOIN courses c ON c.id = cp.prerequisite_id
        WHERE cp.course_id = $1 ORDER BY cp.seq`
	var prereqs []models.CoursePrerequisite
	if err := r.db.SelectContext(ctx, &prereqs, prereqQuery, offering.CourseID); err != nil {
		return nil, fmt.Errorf("load offering prerequisites: %w", err)
	}

	groups, err := r.ListGroups(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.OfferingDetail{
		AvailableCourse: *offering,
		Course:          models.CourseWithPrerequisites{Course: course, Prerequisites: prereqs},
		Groups:          groups,
	}, nil
}

// FindByCourseAndTerm resolves the offering binding a course to a term.
func (r *AvailableCourseRepository) FindByCourseAndTerm(ctx context.Context, courseID, termID string) (*models.AvailableCourse, error) {
	const query = `SELECT id, course_id, term_id, mode, created_at FROM available_courses WHERE course_id = $1 AND term_id = $2 LIMIT 1`
	var offering models.AvailableCourse
	if err := r.db.GetContext(ctx, &offering, query, courseID, termID); err != nil {
		return nil, err
	}
	return &offering, nil
}

// ListGroupsForOfferings returns the activity groups of several offerings.
func (r *AvailableCourseRepository) ListGroupsForOfferings(ctx context.Context, offeringIDs []string) ([]models.AvailableCourseSchedule, error) {
	if len(offeringIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(offeringIDs))
	args := make([]interface{}, len(offeringIDs))
	for i, id := range offeringIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, available_course_id, activity_type, group_no, location, program_id, level_id, min_capacity, max_capacity
        FROM available_course_schedules WHERE available_course_id IN (%s)
        ORDER BY available_course_id, activity_type, group_no`, strings.Join(placeholders, ","))
	var groups []models.AvailableCourseSchedule
	if err := r.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, fmt.Errorf("list offering groups: %w", err)
	}
	return groups, nil
}

// ListGroups returns all activity groups of an offering.
func (r *AvailableCourseRepository) ListGroups(ctx context.Context, offeringID string) ([]models.AvailableCourseSchedule, error) {
	const query = `SELECT id, available_course_id, activity_type, group_no, location, program_id, level_id, min_capacity, max_capacity
        FROM available_course_schedules WHERE available_course_id = $1
        ORDER BY activity_type, group_no`
	var groups []models.AvailableCourseSchedule
	if err := r.db.SelectContext(ctx, &groups, query, offeringID); err != nil {
		return nil, fmt.Errorf("list activity groups: %w", err)
	}
	return groups, nil
}

// FindGroupByNumber resolves an activity group by offering and group number.
func (r *AvailableCourseRepository) FindGroupByNumber(ctx context.Context, offeringID string, groupNo int) (*models.AvailableCourseSchedule, error) {
	const query = `SELECT id, available_course_id, activity_type, group_no, location, program_id, level_id, min_capacity, max_capacity
        FROM available_course_schedules WHERE available_course_id = $1 AND group_no = $2 LIMIT 1`
	var group models.AvailableCourseSchedule
	if err := r.db.GetContext(ctx, &group, query, offeringID, groupNo); err != nil {
		return nil, err
	}
	return &group, nil
}

// ListSlotsForGroups returns the timetable slots occupied by each group.
func (r *AvailableCourseRepository) ListSlotsForGroups(ctx context.Context, groupIDs []string) ([]models.GroupSlot, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(groupIDs))
	args := make([]interface{}, len(groupIDs))
	for i, id := range groupIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT sa.available_course_schedule_id, ss.id, ss.day_of_week, ss.start_time, ss.end_time, ss.slot_order
        FROM schedule_assignments sa
        JOIN schedule_slots ss ON ss.id = sa.schedule_slot_id
        WHERE sa.available_course_schedule_id IN (%s)
        ORDER BY ss.day_of_week, ss.slot_order`, strings.Join(placeholders, ","))
	var slots []models.GroupSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list group slots: %w", err)
	}
	return slots, nil
}

// ListForTerm returns offerings visible to the given program/level in a term.
// Universal offerings always match; individual ones require an eligibility
// row for the program/level (optionally narrowed to a group number).
func (r *AvailableCourseRepository) ListForTerm(ctx context.Context, termID, programID string, levelID int) ([]models.AvailableCourse, error) {
	const query = `SELECT DISTINCT ac.id, ac.course_id, ac.term_id, ac.mode, ac.created_at
        FROM available_courses ac
        LEFT JOIN available_course_eligibilities el ON el.available_course_id = ac.id
        WHERE ac.term_id = $1
          AND (ac.mode = 'universal' OR (el.program_id = $2 AND el.level_id = $3))
        ORDER BY ac.created_at`
	var offerings []models.AvailableCourse
	if err := r.db.SelectContext(ctx, &offerings, query, termID, programID, levelID); err != nil {
		return nil, fmt.Errorf("list offerings for term: %w", err)
	}
	return offerings, nil
}

// CountActiveReservations returns the active seat count per group.
func (r *AvailableCourseRepository) CountActiveReservations(ctx context.Context, groupIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(groupIDs))
	if len(groupIDs) == 0 {
		return counts, nil
	}
	placeholders := make([]string, len(groupIDs))
	args := make([]interface{}, len(groupIDs))
	for i, id := range groupIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT available_course_schedule_id, COUNT(*) AS cnt
        FROM enrollment_schedules
        WHERE status = 'ACTIVE' AND available_course_schedule_id IN (%s)
        GROUP BY available_course_schedule_id`, strings.Join(placeholders, ","))
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count reservations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var cnt int
		if err := rows.Scan(&id, &cnt); err != nil {
			return nil, fmt.Errorf("scan reservation count: %w", err)
		}
		counts[id] = cnt
	}
	return counts, rows.Err()
}

// Delete removes an offering with its eligibility rows, groups and slot
// assignments. Deletion is rejected while any active seat reservation still
// references one of the offering's groups.
func (r *AvailableCourseRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin offering delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const guard = `SELECT 1 FROM enrollment_schedules es
        JOIN available_course_schedules acs ON acs.id = es.available_course_schedule_id
        WHERE acs.available_course_id = $1 AND es.status = 'ACTIVE' LIMIT 1`
	var exists int
	if err := tx.GetContext(ctx, &exists, guard, id); err == nil {
		return appErrors.ErrOfferingInUse
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("check offering reservations: %w", err)
	}

	steps := []string{
		`DELETE FROM schedule_assignments WHERE available_course_schedule_id IN
            (SELECT id FROM available_course_schedules WHERE available_course_id = $1)`,
		`DELETE FROM available_course_schedules WHERE available_course_id = $1`,
		`DELETE FROM available_course_eligibilities WHERE available_course_id = $1`,
		`DELETE FROM available_courses WHERE id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step, id); err != nil {
			return fmt.Errorf("delete offering: %w", err)
		}
	}

	return tx.Commit()
}
