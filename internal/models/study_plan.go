package models

// StudyPlanEntryType distinguishes core courses from elective slots.
type StudyPlanEntryType string

const (
	PlanEntryCore     StudyPlanEntryType = "core"
	PlanEntryElective StudyPlanEntryType = "elective"
)

// StudyPlanEntry is one row of a program's semester plan. Exactly one of
// CourseID / ElectiveGroupID is set.
type StudyPlanEntry struct {
	ID              string             `db:"id" json:"id"`
	ProgramID       string             `db:"program_id" json:"program_id"`
	SemesterNo      int                `db:"semester_no" json:"semester_no"`
	CourseID        *string            `db:"course_id" json:"course_id,omitempty"`
	ElectiveGroupID *string            `db:"elective_group_id" json:"elective_group_id,omitempty"`
	Type            StudyPlanEntryType `db:"type" json:"type"`
}

// ElectiveGroup names one elective requirement slot, e.g. "E1". Several
// plan rows may reference groups that draw from the same pool.
type ElectiveGroup struct {
	ID        string `db:"id" json:"id"`
	ProgramID string `db:"program_id" json:"program_id"`
	Code      string `db:"code" json:"code"`
}

// ElectivePoolCourse is one substitutable course inside the pool feeding an
// elective group.
type ElectivePoolCourse struct {
	ElectiveGroupID string `db:"elective_group_id" json:"elective_group_id"`
	GroupCode       string `db:"group_code" json:"group_code"`
	CourseID        string `db:"course_id" json:"course_id"`
	CourseCode      string `db:"course_code" json:"course_code"`
	CourseTitle     string `db:"course_title" json:"course_title"`
	CreditHours     int    `db:"credit_hours" json:"credit_hours"`
}
