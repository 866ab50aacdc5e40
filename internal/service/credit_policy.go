package service

import (
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
)

// CreditPolicyInput collects everything the credit hour ceiling depends on.
type CreditPolicyInput struct {
	CGPA             float64
	Season           models.Season
	TakenCreditHours int
	IsGraduating     bool
	ExceptionHours   int
}

// BaseCreditHours computes the season/CGPA base of the ceiling. A student
// with no completed hours gets 18 regardless of season or CGPA; summer is a
// fixed 9; otherwise the CGPA bands 14/18/21 apply. Unknown seasons fall
// back to 14.
func BaseCreditHours(season models.Season, cgpa float64, takenCreditHours int) int {
	if takenCreditHours == 0 {
		return 18
	}
	switch season {
	case models.SeasonSummer:
		return 9
	case models.SeasonFall, models.SeasonSpring:
		switch {
		case cgpa < 2.0:
			return 14
		case cgpa < 3.0:
			return 18
		default:
			return 21
		}
	default:
		return 14
	}
}

// ComputeCreditHourCeiling returns the maximum credit hours a student may
// carry in a term: the base, plus 3 for graduating students, plus any active
// admin-granted exception hours.
func ComputeCreditHourCeiling(in CreditPolicyInput) int {
	ceiling := BaseCreditHours(in.Season, in.CGPA, in.TakenCreditHours)
	if in.IsGraduating {
		ceiling += 3
	}
	return ceiling + in.ExceptionHours
}
