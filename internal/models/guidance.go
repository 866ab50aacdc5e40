package models

// CourseHistoryItem is one classified entry of a student's course history.
type CourseHistoryItem struct {
	CourseID    string  `json:"course_id"`
	CourseCode  string  `json:"course_code"`
	CourseTitle string  `json:"course_title"`
	CreditHours int     `json:"credit_hours"`
	TermID      string  `json:"term_id"`
	Grade       *string `json:"grade,omitempty"`
}

// CoursesHistory buckets a student's enrollments by outcome.
type CoursesHistory struct {
	Passed     []CourseHistoryItem `json:"passed"`
	Failed     []CourseHistoryItem `json:"failed"`
	Incomplete []CourseHistoryItem `json:"incomplete"`
}

// PlanCourse is a plain (non-elective) study-plan course with availability
// flags for the student.
type PlanCourse struct {
	CourseID      string `json:"course_id"`
	CourseCode    string `json:"course_code"`
	CourseTitle   string `json:"course_title"`
	CreditHours   int    `json:"credit_hours"`
	SemesterNo    int    `json:"semester_no"`
	Available     bool   `json:"available"`
	IsPassed      bool   `json:"is_passed"`
	IsIncomplete  bool   `json:"is_incomplete"`
	MissingPrereq string `json:"missing_prerequisite,omitempty"`
}

// ElectiveCourse is one pool choice ranked for presentation.
type ElectiveCourse struct {
	CourseID    string `json:"course_id"`
	CourseCode  string `json:"course_code"`
	CourseTitle string `json:"course_title"`
	CreditHours int    `json:"credit_hours"`
	Available   bool   `json:"available"`
	Retake      bool   `json:"retake"`
}

// ElectiveInfo aggregates elective slots and their resolved pool.
type ElectiveInfo struct {
	Count int              `json:"count"`
	Codes []string         `json:"codes"`
	Pool  []ElectiveCourse `json:"pool"`
}

// StudyPlanCourses is the current semester's plan resolved for a student.
type StudyPlanCourses struct {
	Courses      []PlanCourse `json:"courses"`
	ElectiveInfo ElectiveInfo `json:"elective_info"`
}

// MissingCourses surfaces unmet requirements from earlier semesters.
type MissingCourses struct {
	Core      []PlanCourse `json:"core"`
	Electives ElectiveInfo `json:"electives"`
}

// GuidanceReport is the read-only curriculum guidance result.
type GuidanceReport struct {
	StudentID        string           `json:"student_id"`
	StudentLevel     int              `json:"student_level"`
	SemesterNo       int              `json:"semester_no"`
	CoursesHistory   CoursesHistory   `json:"courses_history"`
	StudyPlanCourses StudyPlanCourses `json:"study_plan_courses"`
	MissingCourses   MissingCourses   `json:"missing_courses"`
}
