package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
)

type fakeStudentCodes struct{ byAcademicID map[string]*models.Student }

func (f *fakeStudentCodes) FindByAcademicID(_ context.Context, academicID string) (*models.Student, error) {
	student, ok := f.byAcademicID[academicID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

type fakeCourseCodes struct{ byCode map[string]*models.Course }

func (f *fakeCourseCodes) FindByCode(_ context.Context, code string) (*models.Course, error) {
	course, ok := f.byCode[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

type fakeTermCodes struct{ byCode map[string]*models.Term }

func (f *fakeTermCodes) FindByCode(_ context.Context, code string) (*models.Term, error) {
	term, ok := f.byCode[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return term, nil
}

type fakeOfferingResolver struct {
	offering *models.AvailableCourse
	group    *models.AvailableCourseSchedule
}

func (f *fakeOfferingResolver) FindByCourseAndTerm(context.Context, string, string) (*models.AvailableCourse, error) {
	if f.offering == nil {
		return nil, sql.ErrNoRows
	}
	return f.offering, nil
}

func (f *fakeOfferingResolver) FindGroupByNumber(context.Context, string, int) (*models.AvailableCourseSchedule, error) {
	if f.group == nil {
		return nil, sql.ErrNoRows
	}
	return f.group, nil
}

type importFixture struct {
	svc  *ImportService
	repo *fakeEnrollmentRepo
	tx   *fakeEnrollmentTx
}

func newImportFixture() *importFixture {
	tx := &fakeEnrollmentTx{
		enrolled:     map[string]bool{},
		capacities:   map[string]*models.ScheduleCapacity{},
		reservations: map[string]int{},
		groupSlots:   map[string][]models.ScheduleSlot{},
	}
	repo := &fakeEnrollmentRepo{tx: tx}
	students := &fakeStudentCodes{byAcademicID: map[string]*models.Student{
		"20230001": {ID: "stu-1", AcademicID: "20230001"},
	}}
	courses := &fakeCourseCodes{byCode: map[string]*models.Course{
		"CS101": {ID: "c1", Code: "CS101", CreditHours: 3},
	}}
	terms := &fakeTermCodes{byCode: map[string]*models.Term{
		"2025F": {ID: "term-1", Code: "2025F", Season: models.SeasonFall},
	}}
	offerings := &fakeOfferingResolver{
		offering: &models.AvailableCourse{ID: "off-1", CourseID: "c1", TermID: "term-1"},
		group:    &models.AvailableCourseSchedule{ID: "g1", AvailableCourseID: "off-1", GroupNo: 1},
	}
	invalidator := &fakeInvalidator{}
	svc := NewImportService(repo, students, courses, terms, offerings, invalidator, 100, validator.New(), zap.NewNop())
	return &importFixture{svc: svc, repo: repo, tx: tx}
}

func TestImportCreatesEnrollmentWithGroup(t *testing.T) {
	f := newImportFixture()
	group := 1
	grade := "a-"

	summary, err := f.svc.Import(context.Background(), ImportRequest{Rows: []ImportRow{
		{StudentAcademicID: "20230001", CourseCode: "CS101", TermCode: "2025F", Group: &group, Grade: &grade},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, f.tx.insertedEnrollments, 1)
	require.NotNil(t, f.tx.insertedEnrollments[0].Grade)
	assert.Equal(t, "A-", *f.tx.insertedEnrollments[0].Grade, "grades are normalised to upper case")
	require.Len(t, f.tx.insertedReservations, 1)
	assert.Equal(t, "g1", f.tx.insertedReservations[0].AvailableCourseScheduleID)
}

func TestImportUpdatesExistingGrade(t *testing.T) {
	f := newImportFixture()
	f.tx.existingTriple = &models.Enrollment{ID: "enr-9", StudentID: "stu-1", CourseID: "c1", TermID: "term-1"}
	grade := "B+"

	summary, err := f.svc.Import(context.Background(), ImportRequest{Rows: []ImportRow{
		{StudentAcademicID: "20230001", CourseCode: "CS101", TermCode: "2025F", Grade: &grade},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	require.Contains(t, f.tx.updatedGrades, "enr-9")
	assert.Equal(t, "B+", *f.tx.updatedGrades["enr-9"])
	assert.Empty(t, f.tx.insertedEnrollments)
}

func TestImportFailedRowDoesNotAbortBatch(t *testing.T) {
	f := newImportFixture()

	summary, err := f.svc.Import(context.Background(), ImportRequest{Rows: []ImportRow{
		{StudentAcademicID: "unknown", CourseCode: "CS101", TermCode: "2025F"},
		{StudentAcademicID: "20230001", CourseCode: "NOPE", TermCode: "2025F"},
		{StudentAcademicID: "20230001", CourseCode: "CS101", TermCode: "2025F"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 2, summary.Failed)
	require.Len(t, summary.Results, 3)
	assert.Equal(t, ImportStatusFailed, summary.Results[0].Status)
	assert.Contains(t, summary.Results[0].Message, "not found")
	assert.Equal(t, 1, summary.Results[0].Row)
	assert.Equal(t, ImportStatusCreated, summary.Results[2].Status)
}

func TestImportEnforcesRowLimit(t *testing.T) {
	f := newImportFixture()
	rows := make([]ImportRow, 101)
	for i := range rows {
		rows[i] = ImportRow{StudentAcademicID: "20230001", CourseCode: "CS101", TermCode: "2025F"}
	}
	_, err := f.svc.Import(context.Background(), ImportRequest{Rows: rows})
	require.Error(t, err)
}

func TestImportRejectsEmptyPayload(t *testing.T) {
	f := newImportFixture()
	_, err := f.svc.Import(context.Background(), ImportRequest{})
	require.Error(t, err)
}
