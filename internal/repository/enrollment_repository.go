package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
)

// EnrollmentTx exposes the row-locked operations available inside one
// enrollment transaction. The capacity check-then-increment and the
// duplicate existence check are read-then-write against shared rows, so
// they only run behind these locks.
type EnrollmentTx interface {
	LockStudent(ctx context.Context, studentID string) error
	HasEnrollment(ctx context.Context, studentID, courseID, termID string) (bool, error)
	FindByTriple(ctx context.Context, studentID, courseID, termID string) (*models.Enrollment, error)
	SumActiveCreditHours(ctx context.Context, studentID, termID string) (int, error)
	LockGroupCapacity(ctx context.Context, groupID string) (*models.ScheduleCapacity, error)
	CountActiveReservations(ctx context.Context, groupID string) (int, error)
	ListActiveSlots(ctx context.Context, studentID, termID string) ([]models.ScheduleSlot, error)
	ListGroupSlots(ctx context.Context, groupIDs []string) ([]models.GroupSlot, error)
	InsertEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	InsertEnrollmentSchedule(ctx context.Context, reservation *models.EnrollmentSchedule) error
	UpdateGrade(ctx context.Context, enrollmentID string, grade *string) error
}

// EnrollmentRepository persists enrollments and seat reservations.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// InTx runs fn inside a single transaction, rolling back on error or panic.
// Context cancellation during the callback aborts the whole batch.
func (r *EnrollmentRepository) InTx(ctx context.Context, fn func(tx EnrollmentTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(&enrollmentTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type enrollmentTx struct {
	tx *sqlx.Tx
}

// LockStudent takes a row lock on the student, serializing concurrent
// enrollment batches for the same student. Locking here covers the duplicate
// and time-conflict checks, which cannot lock rows that do not exist yet.
func (t *enrollmentTx) LockStudent(ctx context.Context, studentID string) error {
	const query = `SELECT id FROM students WHERE id = $1 FOR UPDATE`
	var id string
	if err := t.tx.GetContext(ctx, &id, query, studentID); err != nil {
		return fmt.Errorf("lock student: %w", err)
	}
	return nil
}

func (t *enrollmentTx) HasEnrollment(ctx context.Context, studentID, courseID, termID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND term_id = $3 LIMIT 1`
	var exists int
	if err := t.tx.GetContext(ctx, &exists, query, studentID, courseID, termID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

func (t *enrollmentTx) FindByTriple(ctx context.Context, studentID, courseID, termID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, term_id, grade, created_at, updated_at
        FROM enrollments WHERE student_id = $1 AND course_id = $2 AND term_id = $3`
	var enrollment models.Enrollment
	if err := t.tx.GetContext(ctx, &enrollment, query, studentID, courseID, termID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (t *enrollmentTx) SumActiveCreditHours(ctx context.Context, studentID, termID string) (int, error) {
	const query = `SELECT COALESCE(SUM(c.credit_hours), 0)
        FROM enrollments e JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1 AND e.term_id = $2`
	var total int
	if err := t.tx.GetContext(ctx, &total, query, studentID, termID); err != nil {
		return 0, fmt.Errorf("sum credit hours: %w", err)
	}
	return total, nil
}

// LockGroupCapacity locks the activity group row so that the subsequent
// count-and-insert cannot oversell the last seat under concurrency.
func (t *enrollmentTx) LockGroupCapacity(ctx context.Context, groupID string) (*models.ScheduleCapacity, error) {
	const query = `SELECT id, activity_type, group_no, max_capacity
        FROM available_course_schedules WHERE id = $1 FOR UPDATE`
	var capacity models.ScheduleCapacity
	if err := t.tx.GetContext(ctx, &capacity, query, groupID); err != nil {
		return nil, err
	}
	return &capacity, nil
}

func (t *enrollmentTx) CountActiveReservations(ctx context.Context, groupID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollment_schedules
        WHERE available_course_schedule_id = $1 AND status = 'ACTIVE'`
	var count int
	if err := t.tx.GetContext(ctx, &count, query, groupID); err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return count, nil
}

func (t *enrollmentTx) ListActiveSlots(ctx context.Context, studentID, termID string) ([]models.ScheduleSlot, error) {
	const query = `SELECT ss.id, ss.day_of_week, ss.start_time, ss.end_time, ss.slot_order
        FROM enrollment_schedules es
        JOIN enrollments e ON e.id = es.enrollment_id
        JOIN schedule_assignments sa ON sa.available_course_schedule_id = es.available_course_schedule_id
        JOIN schedule_slots ss ON ss.id = sa.schedule_slot_id
        WHERE e.student_id = $1 AND e.term_id = $2 AND es.status = 'ACTIVE'`
	var slots []models.ScheduleSlot
	if err := t.tx.SelectContext(ctx, &slots, query, studentID, termID); err != nil {
		return nil, fmt.Errorf("list reserved slots: %w", err)
	}
	return slots, nil
}

func (t *enrollmentTx) ListGroupSlots(ctx context.Context, groupIDs []string) ([]models.GroupSlot, error) {
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
        WHERE sa.available_course_schedule_id IN (%s)`, strings.Join(placeholders, ","))
	var slots []models.GroupSlot
	if err := t.tx.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list requested slots: %w", err)
	}
	return slots, nil
}

func (t *enrollmentTx) InsertEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, student_id, course_id, term_id, grade, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :term_id, :grade, :created_at, :updated_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

func (t *enrollmentTx) InsertEnrollmentSchedule(ctx context.Context, reservation *models.EnrollmentSchedule) error {
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	if reservation.Status == "" {
		reservation.Status = models.ReservationActive
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollment_schedules (id, enrollment_id, available_course_schedule_id, status, created_at)
        VALUES (:id, :enrollment_id, :available_course_schedule_id, :status, :created_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, reservation); err != nil {
		return fmt.Errorf("create seat reservation: %w", err)
	}
	return nil
}

func (t *enrollmentTx) UpdateGrade(ctx context.Context, enrollmentID string, grade *string) error {
	const query = `UPDATE enrollments SET grade = $2, updated_at = $3 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, enrollmentID, grade, time.Now().UTC()); err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	return nil
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
JOIN courses c ON c.id = e.course_id
JOIN terms t ON t.id = e.term_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("e.term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.Graded != nil {
		if *filter.Graded {
			conditions = append(conditions, "e.grade IS NOT NULL")
		} else {
			conditions = append(conditions, "e.grade IS NULL")
		}
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":  "e.created_at",
		"course_code": "c.code",
		"term_code":   "t.code",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_id, e.term_id, e.grade, e.created_at, e.updated_at,
        c.code AS course_code, c.title AS course_title, c.credit_hours, t.code AS term_code
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, term_id, grade, created_at, updated_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListPassedCourseIDs returns the IDs of courses the student completed with
// a passing grade, across all terms.
func (r *EnrollmentRepository) ListPassedCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT e.course_id FROM enrollments e
        WHERE e.student_id = $1 AND e.grade IN ('A+','A','A-','B+','B','B-','C+','C','C-','D+','D','P')`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list passed courses: %w", err)
	}
	return ids, nil
}

// ListHistoryByStudent returns every enrollment joined with course info for
// guidance classification.
func (r *EnrollmentRepository) ListHistoryByStudent(ctx context.Context, studentID string) ([]models.HistoryRecord, error) {
	const query = `SELECT e.id AS enrollment_id, e.course_id, c.code AS course_code, c.title AS course_title,
        c.credit_hours, e.term_id, e.grade
        FROM enrollments e JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1
        ORDER BY e.created_at`
	var history []models.HistoryRecord
	if err := r.db.SelectContext(ctx, &history, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollment history: %w", err)
	}
	return history, nil
}

// Timetable returns the student's reserved weekly slots for a term.
func (r *EnrollmentRepository) Timetable(ctx context.Context, studentID, termID string) ([]models.TimetableEntry, error) {
	const query = `SELECT c.code AS course_code, c.title AS course_title, acs.activity_type, acs.group_no, acs.location,
        ss.day_of_week, ss.start_time, ss.end_time
        FROM enrollment_schedules es
        JOIN enrollments e ON e.id = es.enrollment_id
        JOIN courses c ON c.id = e.course_id
        JOIN available_course_schedules acs ON acs.id = es.available_course_schedule_id
        JOIN schedule_assignments sa ON sa.available_course_schedule_id = acs.id
        JOIN schedule_slots ss ON ss.id = sa.schedule_slot_id
        WHERE e.student_id = $1 AND e.term_id = $2 AND es.status = 'ACTIVE'
        ORDER BY ss.day_of_week, ss.slot_order`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, studentID, termID); err != nil {
		return nil, fmt.Errorf("load timetable: %w", err)
	}
	return entries, nil
}

// Delete removes an enrollment together with its seat reservations,
// releasing the seats in the same transaction.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM enrollment_schedules WHERE enrollment_id = $1`, id); err != nil {
		return fmt.Errorf("release reservations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}

	return tx.Commit()
}
