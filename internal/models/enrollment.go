package models

import "time"

// EnrollmentScheduleStatus tracks whether a seat reservation is live.
type EnrollmentScheduleStatus string

const (
	ReservationActive   EnrollmentScheduleStatus = "ACTIVE"
	ReservationReleased EnrollmentScheduleStatus = "RELEASED"
)

// Enrollment records a student taking a course within a term. The triple
// (student_id, course_id, term_id) is unique. A nil grade means the course
// is in progress or incomplete.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	TermID    string    `db:"term_id" json:"term_id"`
	Grade     *string   `db:"grade" json:"grade,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EnrollmentSchedule is one reserved seat in an activity group; its active
// rows are what the capacity allocator counts.
type EnrollmentSchedule struct {
	ID                        string                   `db:"id" json:"id"`
	EnrollmentID              string                   `db:"enrollment_id" json:"enrollment_id"`
	AvailableCourseScheduleID string                   `db:"available_course_schedule_id" json:"available_course_schedule_id"`
	Status                    EnrollmentScheduleStatus `db:"status" json:"status"`
	CreatedAt                 time.Time                `db:"created_at" json:"created_at"`
}

// EnrollmentDetail enriches Enrollment with course and term info.
type EnrollmentDetail struct {
	Enrollment
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
	CreditHours int    `db:"credit_hours" json:"credit_hours"`
	TermCode    string `db:"term_code" json:"term_code"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	TermID    string
	Graded    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// HistoryRecord is one enrollment joined with its course for guidance
// classification.
type HistoryRecord struct {
	EnrollmentID string  `db:"enrollment_id" json:"enrollment_id"`
	CourseID     string  `db:"course_id" json:"course_id"`
	CourseCode   string  `db:"course_code" json:"course_code"`
	CourseTitle  string  `db:"course_title" json:"course_title"`
	CreditHours  int     `db:"credit_hours" json:"credit_hours"`
	TermID       string  `db:"term_id" json:"term_id"`
	Grade        *string `db:"grade" json:"grade,omitempty"`
}
