package service

import (
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
)

// PrerequisiteCheck is the outcome of validating one course against a
// student's passed set.
type PrerequisiteCheck struct {
	Satisfied   bool
	MissingID   string
	MissingCode string
}

// PassedSet builds a lookup set from passed course IDs.
func PassedSet(courseIDs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(courseIDs))
	for _, id := range courseIDs {
		set[id] = struct{}{}
	}
	return set
}

// CheckPrerequisites reports whether every prerequisite of the course is in
// the passed set. An empty prerequisite list is trivially satisfied. On
// failure the first unmet prerequisite is identified for error messaging;
// being currently enrolled in a prerequisite does not count as passing it.
func CheckPrerequisites(course models.CourseWithPrerequisites, passed map[string]struct{}) PrerequisiteCheck {
	for _, prereq := range course.Prerequisites {
		if _, ok := passed[prereq.PrerequisiteID]; !ok {
			return PrerequisiteCheck{MissingID: prereq.PrerequisiteID, MissingCode: prereq.Code}
		}
	}
	return PrerequisiteCheck{Satisfied: true}
}
