package models

import "time"

// Student represents a learner registered in the institution.
// Grade imports mutate CGPA and taken hours elsewhere; the enrollment
// pipeline only reads this record.
type Student struct {
	ID               string    `db:"id" json:"id"`
	AcademicID       string    `db:"academic_id" json:"academic_id"`
	FullName         string    `db:"full_name" json:"full_name"`
	CGPA             float64   `db:"cgpa" json:"cgpa"`
	TakenCreditHours int       `db:"taken_credit_hours" json:"taken_credit_hours"`
	ProgramID        string    `db:"program_id" json:"program_id"`
	LevelID          int       `db:"level_id" json:"level_id"`
	IsGraduating     bool      `db:"is_graduating" json:"is_graduating"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
