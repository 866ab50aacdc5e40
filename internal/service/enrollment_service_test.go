package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/repository"
	appErrors "github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/errors"
)

type fakeEnrollmentTx struct {
	enrolled      map[string]bool
	enrolledHours int
	capacities    map[string]*models.ScheduleCapacity
	reservations  map[string]int
	activeSlots   []models.ScheduleSlot
	groupSlots    map[string][]models.ScheduleSlot

	existingTriple *models.Enrollment
	updatedGrades  map[string]*string

	lockedStudent        bool
	insertedEnrollments  []*models.Enrollment
	insertedReservations []*models.EnrollmentSchedule
}

func (f *fakeEnrollmentTx) LockStudent(context.Context, string) error {
	f.lockedStudent = true
	return nil
}

func (f *fakeEnrollmentTx) HasEnrollment(_ context.Context, _, courseID, _ string) (bool, error) {
	return f.enrolled[courseID], nil
}

func (f *fakeEnrollmentTx) FindByTriple(context.Context, string, string, string) (*models.Enrollment, error) {
	if f.existingTriple != nil {
		return f.existingTriple, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollmentTx) SumActiveCreditHours(context.Context, string, string) (int, error) {
	return f.enrolledHours, nil
}

func (f *fakeEnrollmentTx) LockGroupCapacity(_ context.Context, groupID string) (*models.ScheduleCapacity, error) {
	capacity, ok := f.capacities[groupID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return capacity, nil
}

func (f *fakeEnrollmentTx) CountActiveReservations(_ context.Context, groupID string) (int, error) {
	return f.reservations[groupID], nil
}

func (f *fakeEnrollmentTx) ListActiveSlots(context.Context, string, string) ([]models.ScheduleSlot, error) {
	return f.activeSlots, nil
}

func (f *fakeEnrollmentTx) ListGroupSlots(_ context.Context, groupIDs []string) ([]models.GroupSlot, error) {
	var out []models.GroupSlot
	for _, id := range groupIDs {
		for _, s := range f.groupSlots[id] {
			out = append(out, models.GroupSlot{AvailableCourseScheduleID: id, ScheduleSlot: s})
		}
	}
	return out, nil
}

func (f *fakeEnrollmentTx) InsertEnrollment(_ context.Context, enrollment *models.Enrollment) error {
	enrollment.ID = fmt.Sprintf("enr-%d", len(f.insertedEnrollments)+1)
	f.insertedEnrollments = append(f.insertedEnrollments, enrollment)
	return nil
}

func (f *fakeEnrollmentTx) InsertEnrollmentSchedule(_ context.Context, reservation *models.EnrollmentSchedule) error {
	f.insertedReservations = append(f.insertedReservations, reservation)
	return nil
}

func (f *fakeEnrollmentTx) UpdateGrade(_ context.Context, enrollmentID string, grade *string) error {
	if f.updatedGrades == nil {
		f.updatedGrades = map[string]*string{}
	}
	f.updatedGrades[enrollmentID] = grade
	return nil
}

type fakeEnrollmentRepo struct {
	tx        *fakeEnrollmentTx
	committed bool
	passedIDs []string
}

func (f *fakeEnrollmentRepo) InTx(_ context.Context, fn func(tx repository.EnrollmentTx) error) error {
	if err := fn(f.tx); err != nil {
		// rollback: nothing written by the batch survives
		f.tx.insertedEnrollments = nil
		f.tx.insertedReservations = nil
		return err
	}
	f.committed = true
	return nil
}

func (f *fakeEnrollmentRepo) List(context.Context, models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeEnrollmentRepo) FindByID(context.Context, string) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollmentRepo) Delete(context.Context, string) error { return nil }

func (f *fakeEnrollmentRepo) Timetable(context.Context, string, string) ([]models.TimetableEntry, error) {
	return nil, nil
}

func (f *fakeEnrollmentRepo) ListPassedCourseIDs(context.Context, string) ([]string, error) {
	return f.passedIDs, nil
}

type fakeOfferings struct {
	byID map[string]*models.OfferingDetail
}

func (f *fakeOfferings) FindDetailByID(_ context.Context, id string) (*models.OfferingDetail, error) {
	offering, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return offering, nil
}

type fakeStudents struct{ student *models.Student }

func (f *fakeStudents) FindByID(context.Context, string) (*models.Student, error) {
	if f.student == nil {
		return nil, sql.ErrNoRows
	}
	return f.student, nil
}

type fakeTerms struct{ term *models.Term }

func (f *fakeTerms) FindByID(context.Context, string) (*models.Term, error) {
	if f.term == nil {
		return nil, sql.ErrNoRows
	}
	return f.term, nil
}

type fakeExceptions struct{ exception *models.CreditHoursException }

func (f *fakeExceptions) FindActive(context.Context, string, string) (*models.CreditHoursException, error) {
	return f.exception, nil
}

type allowAccess struct{}

func (allowAccess) CanAccessStudent(context.Context, *models.JWTClaims, string) error { return nil }

type denyAccess struct{}

func (denyAccess) CanAccessStudent(context.Context, *models.JWTClaims, string) error {
	return appErrors.ErrAccessDenied
}

type fakeInvalidator struct{ patterns []string }

func (f *fakeInvalidator) DeleteByPattern(_ context.Context, pattern string) error {
	f.patterns = append(f.patterns, pattern)
	return nil
}

type enrollmentFixture struct {
	svc         *EnrollmentService
	repo        *fakeEnrollmentRepo
	tx          *fakeEnrollmentTx
	offerings   *fakeOfferings
	invalidator *fakeInvalidator
}

func intPtr(v int) *int { return &v }

func newEnrollmentFixture() *enrollmentFixture {
	tx := &fakeEnrollmentTx{
		enrolled:     map[string]bool{},
		capacities:   map[string]*models.ScheduleCapacity{},
		reservations: map[string]int{},
		groupSlots:   map[string][]models.ScheduleSlot{},
	}
	repo := &fakeEnrollmentRepo{tx: tx}
	offerings := &fakeOfferings{byID: map[string]*models.OfferingDetail{}}
	invalidator := &fakeInvalidator{}
	students := &fakeStudents{student: &models.Student{
		ID: "stu-1", CGPA: 2.5, TakenCreditHours: 60, ProgramID: "prog-1", LevelID: 2,
	}}
	terms := &fakeTerms{term: &models.Term{ID: "term-1", Code: "2026F", Season: models.SeasonFall}}
	svc := NewEnrollmentService(repo, offerings, students, terms, &fakeExceptions{}, allowAccess{}, invalidator, validator.New(), zap.NewNop())
	return &enrollmentFixture{svc: svc, repo: repo, tx: tx, offerings: offerings, invalidator: invalidator}
}

func (f *enrollmentFixture) addOffering(id, courseID, code string, hours int, prereqs ...models.CoursePrerequisite) *models.OfferingDetail {
	offering := &models.OfferingDetail{
		AvailableCourse: models.AvailableCourse{ID: id, CourseID: courseID, TermID: "term-1"},
		Course: models.CourseWithPrerequisites{
			Course:        models.Course{ID: courseID, Code: code, CreditHours: hours},
			Prerequisites: prereqs,
		},
	}
	f.offerings.byID[id] = offering
	return offering
}

func (f *enrollmentFixture) addGroup(offering *models.OfferingDetail, groupID string, maxCapacity *int, slots ...models.ScheduleSlot) {
	offering.Groups = append(offering.Groups, models.AvailableCourseSchedule{
		ID: groupID, AvailableCourseID: offering.ID, ActivityType: models.ActivityLecture, GroupNo: len(offering.Groups) + 1, MaxCapacity: maxCapacity,
	})
	f.tx.capacities[groupID] = &models.ScheduleCapacity{ID: groupID, ActivityType: models.ActivityLecture, GroupNo: len(offering.Groups), MaxCapacity: maxCapacity}
	f.tx.groupSlots[groupID] = slots
}

func TestEnrollCommitsBatchWithReservations(t *testing.T) {
	f := newEnrollmentFixture()
	first := f.addOffering("off-1", "c1", "CS101", 3)
	f.addGroup(first, "g1", intPtr(30), slot("monday", "10:00", "11:00"))
	second := f.addOffering("off-2", "c2", "MA101", 3)
	f.addGroup(second, "g2", intPtr(30), slot("monday", "11:00", "12:00"))

	results, err := f.svc.Enroll(context.Background(), nil, EnrollStudentRequest{
		StudentID: "stu-1", TermID: "term-1", CreateSchedule: true,
		Items: []EnrollmentItem{
			{AvailableCourseID: "off-1", SelectedScheduleIDs: []string{"g1"}},
			{AvailableCourseID: "off-2", SelectedScheduleIDs: []string{"g2"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "CS101", results[0].CourseCode)
	assert.Equal(t, []string{"g1"}, results[0].ScheduleIDs)
	assert.True(t, f.repo.committed)
	assert.True(t, f.tx.lockedStudent)
	assert.Len(t, f.tx.insertedReservations, 2)
	assert.Equal(t, []string{"guidance:stu-1:*"}, f.invalidator.patterns)
}

func TestEnrollRejectsDuplicate(t *testing.T) {
	f := newEnrollmentFixture()
	f.addOffering("off-1", "c1", "CS101", 3)
	f.tx.enrolled["c1"] = true

	_, err := f.svc.Enroll(context.Background(), nil, EnrollStudentRequest{
		StudentID: "stu-1", TermID: "term-1",
		Items: []EnrollmentItem{{AvailableCourseID: "off-1"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateEnrollment.Code, appErrors.FromError(err).Code)
	assert.False(t, f.repo.committed)
	assert.Empty(t, f.tx.insertedEnrollments)
}

func TestEnrollRejectsCourseRepeatedInBatch(t *testing.T) {
	f := newEnrollmentFixture()
	f.addOffering("off-1", "c1", "CS101", 3)

	_, err := f.svc.Enroll(context.Background(), nil, EnrollStudentRequest{
		StudentID: "stu-1", TermID: "term-1",
		Items: []EnrollmentItem{
			{AvailableCourseID: "off-1"},
			{AvailableCourseID: "off-1"},
		},
	})
	require.Error(t, err, "same course twice in one batch must be rejected")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicateEnrollment.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "CS101")
	assert.False(t, f.repo.committed)
	assert.Empty(t, f.tx.insertedEnrollments)
}

func TestEnrollRejectsUnmetPrerequisite(t *testing.T) {
	f := newEnrollmentFixture()
	f.addOffering("off-1", "c2", "CS201", 3, models.CoursePrerequisite{CourseID: "c2", PrerequisiteID: "c1", Code: "CS101"})

	_, err := f.svc.Enroll(context.Background(), nil, EnrollStudentRequest{
		StudentID: "stu-1", TermID: "term-1",
		Items: []EnrollmentItem{{AvailableCourseID: "off-1"}},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPrerequisiteUnmet.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "CS101")
}

func TestEnrollPrerequisiteSatisfiedByHistory(t *testing.T) {
	f := newEnrollmentFixture()
	f.repo.passedIDs = []string{"c1"}
	f.addOffering("off-1", "c2", "CS201", 3, models.CoursePrerequisite{CourseID: "c2", PrerequisiteID: "c1", Code: "CS101"})

	_, err := f.svc.Enroll(context.Background(), nil, EnrollStudentRequest{
		StudentID: "stu-1", TermID: "term-1",
		Items: []EnrollmentItem{{AvailableCourseID: "off-1"}},
	})
	require.NoError(t, err)
}

func TestEnrollRejectsCreditHourOverflow(t *testing.T) {
	f := newEnrollmentFixture()
	// cgpa 2.5 in fall gives an 18 hour ceiling; 16 already enrolled.
	f.tx.enrolledHours = 16
	f.addOffering("off-1", "c1", "CS101", 3)

	_, err := f.svc.Enroll(context.Background(), nil, EnrollStudentRequest{
		StudentID: "stu-1", TermID: "term-1",
		Items: []EnrollmentItem{{AvailableCourseID: "off-1"}},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrCreditHourExceeded.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "remaining 2")
	assert.False(t, f.repo.committed)
}

func TestEnrollExceptionRaisesCeiling(t *testing.T) {
	f := newEnrollmentFixture()
	f.tx.enrolledHours = 16
	f.addOffering("off-1", "c1", "CS101", 3)
	f.svc.exceptions = &fakeExceptions{exception: &models.CreditHoursException{AdditionalHours: 3, IsActive: true}}

	_, err := f.svc.Enroll(context.Background(), nil, EnrollStudentRequest{
		StudentID: "stu-1", TermID: "term-1",
		Items: []EnrollmentItem{{AvailableCourseID: "off-1"}},
	})
	require.NoError(t, err)
	assert.True(t, f.repo.committed)
}

func TestEnrollRejectsFullGroup(t *testing.T) {
	f := newEnrollmentFixture()
	offering := f.addOffering("off-1", "c1", "CS101", 3)
	f.addGroup(offering, "g1", intPtr(30), slot("monday", "10:00", "11:00"))
	f.tx.reservations["g1"] = 30

	_, err := f.svc.Enroll(context.Background(), nil, EnrollStudentRequest{
		StudentID: "stu-1", TermID: "term-1", CreateSchedule: true,
		Items: []EnrollmentItem{{AvailableCourseID: "off-1", SelectedScheduleIDs: []string{"g1"}}},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrScheduleCapacityExceeded.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "remaining seats 0")
	assert.Empty(t, f.tx.insertedReservations)
}

func TestEnrollUnlimitedCapacityGroup(t *testing.T) {
	f := newEnrollmentFixture()
	offering := f.addOffering("off-1", "c1", "CS101", 3)
	f.addGroup(offering, "g1", nil, slot("monday", "10:00", "11:00"))
	f.tx.reservations["g1"] = 500

	_, err := f.svc.Enroll(context.Background(), nil, EnrollStudentRequest{
		StudentID: "stu-1", TermID: "term-1", CreateSchedule: true,
		Items: []EnrollmentItem{{AvailableCourseID: "off-1", SelectedScheduleIDs: []string{"g1"}}},
	})
	require.NoError(t, err)
}

func TestEnrollRejectsTimeConflictWithReservedSlots(t *testing.T) {
	f := newEnrollmentFixture()
	offering := f.addOffering("off-1", "c1", "CS101", 3)
	f.addGroup(offering, "g1", intPtr(30), slot("monday", "10:00", "11:00"))
	f.tx.activeSlots = []models.ScheduleSlot{slot("monday", "10:30", "11:30")}

	_, err := f.svc.Enroll(context.Background(), nil, EnrollStudentRequest{
		StudentID: "stu-1", TermID: "term-1", CreateSchedule: true,
		Items: []EnrollmentItem{{AvailableCourseID: "off-1", SelectedScheduleIDs: []string{"g1"}}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScheduleTimeConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollRejectsConflictWithinBatch(t *testing.T) {
	f := newEnrollmentFixture()
	first := f.addOffering("off-1", "c1", "CS101", 3)
	f.addGroup(first, "g1", intPtr(30), slot("monday", "10:00", "11:00"))
	second := f.addOffering("off-2", "c2", "MA101", 3)
	f.addGroup(second, "g2", intPtr(30), slot("monday", "10:30", "11:30"))

	_, err := f.svc.Enroll(context.Background(), nil, EnrollStudentRequest{
		StudentID: "stu-1", TermID: "term-1", CreateSchedule: true,
		Items: []EnrollmentItem{
			{AvailableCourseID: "off-1", SelectedScheduleIDs: []string{"g1"}},
			{AvailableCourseID: "off-2", SelectedScheduleIDs: []string{"g2"}},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScheduleTimeConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.tx.insertedEnrollments, "nothing from the batch is persisted")
}

func TestEnrollRejectsForeignScheduleID(t *testing.T) {
	f := newEnrollmentFixture()
	offering := f.addOffering("off-1", "c1", "CS101", 3)
	f.addGroup(offering, "g1", intPtr(30))

	_, err := f.svc.Enroll(context.Background(), nil, EnrollStudentRequest{
		StudentID: "stu-1", TermID: "term-1", CreateSchedule: true,
		Items: []EnrollmentItem{{AvailableCourseID: "off-1", SelectedScheduleIDs: []string{"g-other"}}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidReference.Code, appErrors.FromError(err).Code)
}

func TestEnrollRejectsOfferingFromAnotherTerm(t *testing.T) {
	f := newEnrollmentFixture()
	offering := f.addOffering("off-1", "c1", "CS101", 3)
	offering.TermID = "term-2"

	_, err := f.svc.Enroll(context.Background(), nil, EnrollStudentRequest{
		StudentID: "stu-1", TermID: "term-1",
		Items: []EnrollmentItem{{AvailableCourseID: "off-1"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidReference.Code, appErrors.FromError(err).Code)
}

func TestEnrollAccessDenied(t *testing.T) {
	f := newEnrollmentFixture()
	f.addOffering("off-1", "c1", "CS101", 3)
	f.svc.access = denyAccess{}

	_, err := f.svc.Enroll(context.Background(), nil, EnrollStudentRequest{
		StudentID: "stu-1", TermID: "term-1",
		Items: []EnrollmentItem{{AvailableCourseID: "off-1"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrAccessDenied) || appErrors.FromError(err).Code == appErrors.ErrAccessDenied.Code)
}

func TestEnrollValidatesPayload(t *testing.T) {
	f := newEnrollmentFixture()
	_, err := f.svc.Enroll(context.Background(), nil, EnrollStudentRequest{StudentID: "stu-1", TermID: "term-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestListForcesOwnRecordsForStudents(t *testing.T) {
	f := newEnrollmentFixture()
	claims := &models.JWTClaims{Role: models.RoleStudent, StudentID: "stu-1"}
	_, pagination, err := f.svc.List(context.Background(), claims, models.EnrollmentFilter{StudentID: "stu-2"})
	require.NoError(t, err)
	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.Page)
}
