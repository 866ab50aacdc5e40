package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
	appErrors "github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/errors"
)

type catalogOfferingRepository interface {
	FindByID(ctx context.Context, id string) (*models.AvailableCourse, error)
	ListForTerm(ctx context.Context, termID, programID string, levelID int) ([]models.AvailableCourse, error)
	ListGroupsForOfferings(ctx context.Context, offeringIDs []string) ([]models.AvailableCourseSchedule, error)
	ListSlotsForGroups(ctx context.Context, groupIDs []string) ([]models.GroupSlot, error)
	CountActiveReservations(ctx context.Context, groupIDs []string) (map[string]int, error)
	Delete(ctx context.Context, id string) error
}

type passedCoursesReader interface {
	ListPassedCourseIDs(ctx context.Context, studentID string) ([]string, error)
}

// CatalogService builds the student-facing offering catalogue with live seat
// counts and prerequisite availability, and manages offering removal.
type CatalogService struct {
	offerings catalogOfferingRepository
	courses   courseCatalogReader
	students  studentReader
	terms     termReader
	passed    passedCoursesReader
	access    studentAccessPolicy
	logger    *zap.Logger
}

// NewCatalogService constructs the service.
func NewCatalogService(
	offerings catalogOfferingRepository,
	courses courseCatalogReader,
	students studentReader,
	terms termReader,
	passed passedCoursesReader,
	access studentAccessPolicy,
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{
		offerings: offerings,
		courses:   courses,
		students:  students,
		terms:     terms,
		passed:    passed,
		access:    access,
		logger:    logger,
	}
}

// ListForStudent returns the offerings a student may enroll in for a term.
// Eligibility scoping happens in the query; prerequisite availability is
// computed against the student's passed course history.
func (s *CatalogService) ListForStudent(ctx context.Context, claims *models.JWTClaims, studentID, termID string) ([]models.CatalogEntry, error) {
	if err := s.access.CanAccessStudent(ctx, claims, studentID); err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load student")
	}
	if _, err := s.terms.FindByID(ctx, termID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load term")
	}

	offerings, err := s.offerings.ListForTerm(ctx, termID, student.ProgramID, student.LevelID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list offerings")
	}
	if len(offerings) == 0 {
		return []models.CatalogEntry{}, nil
	}

	offeringIDs := make([]string, len(offerings))
	courseIDs := make([]string, len(offerings))
	for i, offering := range offerings {
		offeringIDs[i] = offering.ID
		courseIDs[i] = offering.CourseID
	}

	courses, err := s.courses.ListByIDs(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load courses")
	}
	courseByID := make(map[string]models.Course, len(courses))
	for _, course := range courses {
		courseByID[course.ID] = course
	}

	prereqRows, err := s.courses.ListPrerequisites(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load prerequisites")
	}
	prereqsByCourse := groupPrerequisites(prereqRows)

	passedIDs, err := s.passed.ListPassedCourseIDs(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load passed courses")
	}
	passed := PassedSet(passedIDs)

	groups, err := s.offerings.ListGroupsForOfferings(ctx, offeringIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load activity groups")
	}
	groupsByOffering := make(map[string][]models.AvailableCourseSchedule)
	groupIDs := make([]string, 0, len(groups))
	for _, group := range groups {
		groupsByOffering[group.AvailableCourseID] = append(groupsByOffering[group.AvailableCourseID], group)
		groupIDs = append(groupIDs, group.ID)
	}

	counts, err := s.offerings.CountActiveReservations(ctx, groupIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "count reservations")
	}
	slots, err := s.offerings.ListSlotsForGroups(ctx, groupIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load group slots")
	}
	slotsByGroup := make(map[string][]models.ScheduleSlot)
	for _, slot := range slots {
		slotsByGroup[slot.AvailableCourseScheduleID] = append(slotsByGroup[slot.AvailableCourseScheduleID], slot.ScheduleSlot)
	}

	entries := make([]models.CatalogEntry, 0, len(offerings))
	for _, offering := range offerings {
		course, ok := courseByID[offering.CourseID]
		if !ok {
			continue
		}
		entry := models.CatalogEntry{
			AvailableCourseID: offering.ID,
			CourseID:          course.ID,
			CourseCode:        course.Code,
			CourseTitle:       course.Title,
			CreditHours:       course.CreditHours,
			Available:         true,
		}
		check := CheckPrerequisites(models.CourseWithPrerequisites{
			Course:        course,
			Prerequisites: prereqsByCourse[course.ID],
		}, passed)
		if !check.Satisfied {
			entry.Available = false
			entry.MissingPrereq = check.MissingCode
		}
		for _, group := range groupsByOffering[offering.ID] {
			catalogGroup := models.CatalogGroup{
				AvailableCourseSchedule: group,
				EnrolledCount:           counts[group.ID],
				Slots:                   slotsByGroup[group.ID],
			}
			if group.MaxCapacity != nil {
				remaining := *group.MaxCapacity - catalogGroup.EnrolledCount
				if remaining < 0 {
					remaining = 0
				}
				catalogGroup.RemainingSeats = &remaining
			}
			entry.Groups = append(entry.Groups, catalogGroup)
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].CourseCode < entries[j].CourseCode })
	return entries, nil
}

// DeleteOffering removes an offering with its groups, eligibility rows and
// slot assignments. Offerings referenced by active seat reservations are
// protected.
func (s *CatalogService) DeleteOffering(ctx context.Context, id string) error {
	if _, err := s.offerings.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load offering")
	}
	if err := s.offerings.Delete(ctx, id); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete offering")
	}
	s.logger.Info("offering deleted", zap.String("available_course_id", id))
	return nil
}
