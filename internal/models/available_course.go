package models

import "time"

// OfferingMode controls who may see an offering.
type OfferingMode string

const (
	// OfferingModeUniversal makes the offering visible to every program/level.
	OfferingModeUniversal OfferingMode = "universal"
	// OfferingModeIndividual scopes visibility through eligibility rows.
	OfferingModeIndividual OfferingMode = "individual"
)

// ActivityType enumerates the kinds of scheduled activities.
type ActivityType string

const (
	ActivityLecture  ActivityType = "lecture"
	ActivityTutorial ActivityType = "tutorial"
	ActivityLab      ActivityType = "lab"
)

// AvailableCourse binds a course to a term as an enrollable offering.
// Universal offerings carry no eligibility rows; individual offerings
// carry zero or more.
type AvailableCourse struct {
	ID        string       `db:"id" json:"id"`
	CourseID  string       `db:"course_id" json:"course_id"`
	TermID    string       `db:"term_id" json:"term_id"`
	Mode      OfferingMode `db:"mode" json:"mode"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// Eligibility scopes an individual offering to a program/level pair, with
// an optional group restriction.
type Eligibility struct {
	ID                string `db:"id" json:"id"`
	AvailableCourseID string `db:"available_course_id" json:"available_course_id"`
	ProgramID         string `db:"program_id" json:"program_id"`
	LevelID           int    `db:"level_id" json:"level_id"`
	GroupNo           *int   `db:"group_no" json:"group_no,omitempty"`
}

// AvailableCourseSchedule is one activity group of an offering: a lecture,
// tutorial or lab section with its own capacity and time slots.
// A nil MaxCapacity means unlimited seats. MinCapacity feeds course-opening
// decisions only and never blocks an individual enrollment.
type AvailableCourseSchedule struct {
	ID                string       `db:"id" json:"id"`
	AvailableCourseID string       `db:"available_course_id" json:"available_course_id"`
	ActivityType      ActivityType `db:"activity_type" json:"activity_type"`
	GroupNo           int          `db:"group_no" json:"group_no"`
	Location          *string      `db:"location" json:"location,omitempty"`
	ProgramID         *string      `db:"program_id" json:"program_id,omitempty"`
	LevelID           *int         `db:"level_id" json:"level_id,omitempty"`
	MinCapacity       int          `db:"min_capacity" json:"min_capacity"`
	MaxCapacity       *int         `db:"max_capacity" json:"max_capacity,omitempty"`
}

// ScheduleCapacity is the locked capacity view used during reservation.
type ScheduleCapacity struct {
	ID           string       `db:"id"`
	ActivityType ActivityType `db:"activity_type"`
	GroupNo      int          `db:"group_no"`
	MaxCapacity  *int         `db:"max_capacity"`
}

// OfferingDetail joins an offering with its course and activity groups.
type OfferingDetail struct {
	AvailableCourse
	Course        CourseWithPrerequisites   `json:"course"`
	Groups        []AvailableCourseSchedule `json:"groups"`
	RemainingByID map[string]int            `json:"-"`
}

// CatalogEntry is the student-facing view of one enrollable offering.
type CatalogEntry struct {
	AvailableCourseID string         `json:"available_course_id"`
	CourseID          string         `json:"course_id"`
	CourseCode        string         `json:"course_code"`
	CourseTitle       string         `json:"course_title"`
	CreditHours       int            `json:"credit_hours"`
	Available         bool           `json:"available"`
	MissingPrereq     string         `json:"missing_prerequisite,omitempty"`
	Groups            []CatalogGroup `json:"groups"`
}

// CatalogGroup describes an activity group with live seat availability.
type CatalogGroup struct {
	AvailableCourseSchedule
	EnrolledCount  int            `json:"enrolled_count"`
	RemainingSeats *int           `json:"remaining_seats,omitempty"`
	Slots          []ScheduleSlot `json:"slots"`
}
