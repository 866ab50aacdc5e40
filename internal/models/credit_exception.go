package models

import "time"

// CreditHoursException is an admin-granted addition to a student's credit
// hour ceiling for one term. It counts only while the flag is set and the
// validity window covers the current time.
type CreditHoursException struct {
	ID              string    `db:"id" json:"id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	TermID          string    `db:"term_id" json:"term_id"`
	GrantedBy       string    `db:"granted_by" json:"granted_by"`
	AdditionalHours int       `db:"additional_hours" json:"additional_hours"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	ValidFrom       time.Time `db:"valid_from" json:"valid_from"`
	ValidUntil      time.Time `db:"valid_until" json:"valid_until"`
}
