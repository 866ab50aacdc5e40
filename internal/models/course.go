package models

import "time"

// Course is a catalogue course with its credit weight.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Title       string    `db:"title" json:"title"`
	CreditHours int       `db:"credit_hours" json:"credit_hours"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CoursePrerequisite links a course to one required predecessor.
// Seq preserves catalogue ordering; it has no semantic weight.
type CoursePrerequisite struct {
	CourseID       string `db:"course_id" json:"course_id"`
	PrerequisiteID string `db:"prerequisite_id" json:"prerequisite_id"`
	Code           string `db:"code" json:"code"`
	Seq            int    `db:"seq" json:"seq"`
}

// CourseWithPrerequisites bundles a course and its ordered prerequisite list.
type CourseWithPrerequisites struct {
	Course
	Prerequisites []CoursePrerequisite `json:"prerequisites"`
}
