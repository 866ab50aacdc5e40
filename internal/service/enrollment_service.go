package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/repository"
	appErrors "github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/errors"
)

type enrollmentRepository interface {
	InTx(ctx context.Context, fn func(tx repository.EnrollmentTx) error) error
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Delete(ctx context.Context, id string) error
	Timetable(ctx context.Context, studentID, termID string) ([]models.TimetableEntry, error)
	ListPassedCourseIDs(ctx context.Context, studentID string) ([]string, error)
}

type offeringReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.OfferingDetail, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type termReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type exceptionReader interface {
	FindActive(ctx context.Context, studentID, termID string) (*models.CreditHoursException, error)
}

type studentAccessPolicy interface {
	CanAccessStudent(ctx context.Context, claims *models.JWTClaims, studentID string) error
}

type guidanceCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// EnrollmentItem is one requested course with optional activity group picks.
type EnrollmentItem struct {
	AvailableCourseID   string   `json:"available_course_id" validate:"required"`
	SelectedScheduleIDs []string `json:"selected_schedule_ids"`
	Grade               *string  `json:"grade,omitempty"`
}

// EnrollStudentRequest is the batch enrollment payload: one student, one
// term, several course/activity selections validated and committed as a unit.
type EnrollStudentRequest struct {
	StudentID      string           `json:"student_id" validate:"required"`
	TermID         string           `json:"term_id" validate:"required"`
	Items          []EnrollmentItem `json:"items" validate:"required,min=1,dive"`
	CreateSchedule bool             `json:"create_schedule"`
}

// EnrollmentResult identifies one created enrollment with its reservations.
type EnrollmentResult struct {
	EnrollmentID string   `json:"enrollment_id"`
	CourseID     string   `json:"course_id"`
	CourseCode   string   `json:"course_code"`
	ScheduleIDs  []string `json:"schedule_ids,omitempty"`
}

// EnrollmentService orchestrates enrollment validation and atomic commit.
type EnrollmentService struct {
	repo       enrollmentRepository
	offerings  offeringReader
	students   studentReader
	terms      termReader
	exceptions exceptionReader
	access     studentAccessPolicy
	cache      guidanceCacheInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, offerings offeringReader, students studentReader, terms termReader, exceptions exceptionReader, access studentAccessPolicy, cache guidanceCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, offerings: offerings, students: students, terms: terms, exceptions: exceptions, access: access, cache: cache, validator: validate, logger: logger}
}

// Enroll validates and commits a batch of course/activity selections for one
// student in one term. The steps run in a fixed order — duplicate check,
// prerequisites, aggregate credit hours, capacity and time conflicts — and
// the first failure aborts the whole batch with nothing persisted.
func (s *EnrollmentService) Enroll(ctx context.Context, claims *models.JWTClaims, req EnrollStudentRequest) ([]EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if err := s.access.CanAccessStudent(ctx, claims, req.StudentID); err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	term, err := s.terms.FindByID(ctx, req.TermID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	offerings := make([]*models.OfferingDetail, 0, len(req.Items))
	requestedHours := 0
	seatRequests := map[string]int{}
	requestedCourses := make(map[string]struct{}, len(req.Items))
	var allSelectedGroups []string
	for _, item := range req.Items {
		offering, err := s.offerings.FindDetailByID(ctx, item.AvailableCourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("offering %s not found", item.AvailableCourseID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
		}
		if offering.TermID != req.TermID {
			return nil, appErrors.Clone(appErrors.ErrInvalidReference, fmt.Sprintf("offering %s does not belong to term %s", offering.ID, term.Code))
		}
		if _, ok := requestedCourses[offering.CourseID]; ok {
			return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, fmt.Sprintf("course %s appears more than once in the request", offering.Course.Code))
		}
		requestedCourses[offering.CourseID] = struct{}{}
		if req.CreateSchedule {
			known := make(map[string]struct{}, len(offering.Groups))
			for _, group := range offering.Groups {
				known[group.ID] = struct{}{}
			}
			for _, scheduleID := range item.SelectedScheduleIDs {
				if _, ok := known[scheduleID]; !ok {
					return nil, appErrors.Clone(appErrors.ErrInvalidReference, fmt.Sprintf("schedule %s does not belong to offering for %s", scheduleID, offering.Course.Code))
				}
				seatRequests[scheduleID]++
				allSelectedGroups = append(allSelectedGroups, scheduleID)
			}
		}
		requestedHours += offering.Course.CreditHours
		offerings = append(offerings, offering)
	}

	passedIDs, err := s.repo.ListPassedCourseIDs(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load passed courses")
	}
	passed := PassedSet(passedIDs)

	exception, err := s.exceptions.FindActive(ctx, req.StudentID, req.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load credit exception")
	}
	exceptionHours := 0
	if exception != nil {
		exceptionHours = exception.AdditionalHours
	}
	ceiling := ComputeCreditHourCeiling(CreditPolicyInput{
		CGPA:             student.CGPA,
		Season:           term.Season,
		TakenCreditHours: student.TakenCreditHours,
		IsGraduating:     student.IsGraduating,
		ExceptionHours:   exceptionHours,
	})

	var results []EnrollmentResult
	err = s.repo.InTx(ctx, func(tx repository.EnrollmentTx) error {
		if err := tx.LockStudent(ctx, req.StudentID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock student")
		}

		for _, offering := range offerings {
			exists, err := tx.HasEnrollment(ctx, req.StudentID, offering.CourseID, req.TermID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
			}
			if exists {
				return appErrors.Clone(appErrors.ErrDuplicateEnrollment, fmt.Sprintf("student already enrolled in %s for term %s", offering.Course.Code, term.Code))
			}
		}

		for _, offering := range offerings {
			if check := CheckPrerequisites(offering.Course, passed); !check.Satisfied {
				return appErrors.Clone(appErrors.ErrPrerequisiteUnmet, fmt.Sprintf("course %s requires %s", offering.Course.Code, check.MissingCode))
			}
		}

		enrolledHours, err := tx.SumActiveCreditHours(ctx, req.StudentID, req.TermID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum enrolled hours")
		}
		if enrolledHours+requestedHours > ceiling {
			remaining := ceiling - enrolledHours
			if remaining < 0 {
				remaining = 0
			}
			return appErrors.Clone(appErrors.ErrCreditHourExceeded, fmt.Sprintf(
				"requested %d hours would exceed the ceiling of %d (cgpa %.2f, season %s); remaining %d",
				requestedHours, ceiling, student.CGPA, term.Season, remaining))
		}

		if req.CreateSchedule && len(allSelectedGroups) > 0 {
			for groupID, requested := range seatRequests {
				capacity, err := tx.LockGroupCapacity(ctx, groupID)
				if err != nil {
					if errors.Is(err, sql.ErrNoRows) {
						return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("activity group %s not found", groupID))
					}
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock activity group")
				}
				if capacity.MaxCapacity == nil {
					continue
				}
				enrolled, err := tx.CountActiveReservations(ctx, groupID)
				if err != nil {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count reservations")
				}
				if enrolled+requested > *capacity.MaxCapacity {
					remaining := *capacity.MaxCapacity - enrolled
					if remaining < 0 {
						remaining = 0
					}
					return appErrors.Clone(appErrors.ErrScheduleCapacityExceeded, fmt.Sprintf(
						"%s group %d is full; remaining seats %d", capacity.ActivityType, capacity.GroupNo, remaining))
				}
			}

			requestedSlots, err := tx.ListGroupSlots(ctx, allSelectedGroups)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requested slots")
			}
			existingSlots, err := tx.ListActiveSlots(ctx, req.StudentID, req.TermID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reserved slots")
			}
			flat := make([]models.ScheduleSlot, len(requestedSlots))
			for i, slot := range requestedSlots {
				flat[i] = slot.ScheduleSlot
			}
			conflict := FindSlotConflict(existingSlots, flat)
			if conflict == nil {
				conflict = FindConflictAmong(requestedSlots)
			}
			if conflict != nil {
				return appErrors.Clone(appErrors.ErrScheduleTimeConflict, fmt.Sprintf(
					"time conflict on %s: requested %s-%s overlaps %s-%s",
					conflict.DayOfWeek, conflict.RequestedStart, conflict.RequestedEnd,
					conflict.ExistingStartTime, conflict.ExistingEndTime))
			}
		}

		for i, offering := range offerings {
			enrollment := &models.Enrollment{
				StudentID: req.StudentID,
				CourseID:  offering.CourseID,
				TermID:    req.TermID,
				Grade:     req.Items[i].Grade,
			}
			if err := tx.InsertEnrollment(ctx, enrollment); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
			}
			result := EnrollmentResult{EnrollmentID: enrollment.ID, CourseID: offering.CourseID, CourseCode: offering.Course.Code}
			if req.CreateSchedule {
				for _, scheduleID := range req.Items[i].SelectedScheduleIDs {
					reservation := &models.EnrollmentSchedule{
						EnrollmentID:              enrollment.ID,
						AvailableCourseScheduleID: scheduleID,
						Status:                    models.ReservationActive,
					}
					if err := tx.InsertEnrollmentSchedule(ctx, reservation); err != nil {
						return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve seat")
					}
					result.ScheduleIDs = append(result.ScheduleIDs, scheduleID)
				}
			}
			results = append(results, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateGuidance(ctx, req.StudentID)
	s.logger.Info("enrollment batch committed",
		zap.String("student_id", req.StudentID),
		zap.String("term_id", req.TermID),
		zap.Int("courses", len(results)))
	return results, nil
}

// List returns enrollments with pagination metadata. Students only see
// their own records; advisors must have access to the filtered student.
func (s *EnrollmentService) List(ctx context.Context, claims *models.JWTClaims, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if claims != nil && claims.Role == models.RoleStudent {
		filter.StudentID = claims.StudentID
	} else if filter.StudentID != "" {
		if err := s.access.CanAccessStudent(ctx, claims, filter.StudentID); err != nil {
			return nil, nil, err
		}
	}
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// Delete removes an enrollment and releases its reserved seats.
func (s *EnrollmentService) Delete(ctx context.Context, claims *models.JWTClaims, id string) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.access.CanAccessStudent(ctx, claims, enrollment.StudentID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	s.invalidateGuidance(ctx, enrollment.StudentID)
	return nil
}

// Timetable returns the student's reserved weekly slots for a term.
func (s *EnrollmentService) Timetable(ctx context.Context, claims *models.JWTClaims, studentID, termID string) ([]models.TimetableEntry, error) {
	if err := s.access.CanAccessStudent(ctx, claims, studentID); err != nil {
		return nil, err
	}
	entries, err := s.repo.Timetable(ctx, studentID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return entries, nil
}

func (s *EnrollmentService) invalidateGuidance(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "guidance:"+studentID+":*"); err != nil {
		s.logger.Warn("failed to invalidate guidance cache", zap.String("student_id", studentID), zap.Error(err))
	}
}
