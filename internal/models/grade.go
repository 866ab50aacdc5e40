package models

// passingGrades is the fixed set of letter grades counting as a completed
// course. "D-" and "F" are not in the set; neither is an in-progress (nil)
// grade.
var passingGrades = map[string]struct{}{
	"A+": {}, "A": {}, "A-": {},
	"B+": {}, "B": {}, "B-": {},
	"C+": {}, "C": {}, "C-": {},
	"D+": {}, "D": {}, "P": {},
}

// IsPassingGrade reports whether the letter grade completes a course.
func IsPassingGrade(grade string) bool {
	_, ok := passingGrades[grade]
	return ok
}
