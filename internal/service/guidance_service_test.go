package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
	appErrors "github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/errors"
)

func strPtr(v string) *string { return &v }

type fakeHistory struct{ records []models.HistoryRecord }

func (f *fakeHistory) ListHistoryByStudent(context.Context, string) ([]models.HistoryRecord, error) {
	return f.records, nil
}

type fakePlans struct {
	current []models.StudyPlanEntry
	earlier []models.StudyPlanEntry
	groups  []models.ElectiveGroup
	pool    []models.ElectivePoolCourse
}

func (f *fakePlans) ListBySemester(context.Context, string, int) ([]models.StudyPlanEntry, error) {
	return f.current, nil
}

func (f *fakePlans) ListBeforeSemester(context.Context, string, int) ([]models.StudyPlanEntry, error) {
	return f.earlier, nil
}

func (f *fakePlans) GroupsByIDs(_ context.Context, ids []string) ([]models.ElectiveGroup, error) {
	wanted := map[string]struct{}{}
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var out []models.ElectiveGroup
	for _, group := range f.groups {
		if _, ok := wanted[group.ID]; ok {
			out = append(out, group)
		}
	}
	return out, nil
}

func (f *fakePlans) PoolByGroupIDs(_ context.Context, ids []string) ([]models.ElectivePoolCourse, error) {
	wanted := map[string]struct{}{}
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var out []models.ElectivePoolCourse
	for _, course := range f.pool {
		if _, ok := wanted[course.ElectiveGroupID]; ok {
			out = append(out, course)
		}
	}
	return out, nil
}

type fakeCourses struct {
	courses []models.Course
	prereqs []models.CoursePrerequisite
}

func (f *fakeCourses) ListByIDs(_ context.Context, ids []string) ([]models.Course, error) {
	wanted := map[string]struct{}{}
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var out []models.Course
	for _, course := range f.courses {
		if _, ok := wanted[course.ID]; ok {
			out = append(out, course)
		}
	}
	return out, nil
}

func (f *fakeCourses) ListPrerequisites(_ context.Context, courseIDs []string) ([]models.CoursePrerequisite, error) {
	wanted := map[string]struct{}{}
	for _, id := range courseIDs {
		wanted[id] = struct{}{}
	}
	var out []models.CoursePrerequisite
	for _, prereq := range f.prereqs {
		if _, ok := wanted[prereq.CourseID]; ok {
			out = append(out, prereq)
		}
	}
	return out, nil
}

type fakeGuidanceCache struct {
	store map[string][]byte
	gets  int
	sets  int
}

func (f *fakeGuidanceCache) Get(_ context.Context, key string, dest interface{}) error {
	f.gets++
	if _, ok := f.store[key]; ok {
		return nil
	}
	return appErrors.ErrCacheMiss
}

func (f *fakeGuidanceCache) Set(_ context.Context, key string, _ interface{}, _ time.Duration) error {
	f.sets++
	f.store[key] = []byte("cached")
	return nil
}

func TestSemesterNumber(t *testing.T) {
	fall := &models.Term{Season: models.SeasonFall}
	spring := &models.Term{Season: models.SeasonSpring}
	summer := &models.Term{Season: models.SeasonSummer}

	assert.Equal(t, 3, SemesterNumber(2, fall))
	assert.Equal(t, 4, SemesterNumber(2, spring))
	assert.Equal(t, 4, SemesterNumber(2, summer))
	assert.Equal(t, 4, SemesterNumber(2, nil))
	assert.Equal(t, 1, SemesterNumber(1, fall))
}

func TestBucketHistoryPassingWins(t *testing.T) {
	records := []models.HistoryRecord{
		{CourseID: "c1", CourseCode: "CS101", Grade: strPtr("F")},
		{CourseID: "c1", CourseCode: "CS101", Grade: strPtr("B")},
		{CourseID: "c2", CourseCode: "MA101", Grade: nil},
		{CourseID: "c3", CourseCode: "PH101", Grade: strPtr("D-")},
	}
	buckets := bucketHistory(records)

	_, passed := buckets.passed["c1"]
	assert.True(t, passed, "a later passing attempt supersedes the failed one")
	_, incomplete := buckets.incomplete["c2"]
	assert.True(t, incomplete)
	_, failed := buckets.failed["c3"]
	assert.True(t, failed, "D- does not pass")

	history := buckets.toHistory()
	assert.Len(t, history.Passed, 1)
	assert.Len(t, history.Failed, 2, "every attempt appears in the flat history")
	assert.Len(t, history.Incomplete, 1)
}

func newGuidanceFixture(history *fakeHistory, plans *fakePlans, courses *fakeCourses, cache *fakeGuidanceCache) *GuidanceService {
	students := &fakeStudents{student: &models.Student{ID: "stu-1", ProgramID: "prog-1", LevelID: 2}}
	terms := &fakeTerms{term: &models.Term{ID: "term-1", Season: models.SeasonFall}}
	var c guidanceCache
	if cache != nil {
		c = cache
	}
	return NewGuidanceService(students, terms, history, plans, courses, allowAccess{}, c, time.Minute, zap.NewNop())
}

func TestReportResolvesPlanAndMissing(t *testing.T) {
	history := &fakeHistory{records: []models.HistoryRecord{
		{CourseID: "c1", CourseCode: "CS101", Grade: strPtr("A")},
	}}
	plans := &fakePlans{
		// semester 3 plan: one core course with a satisfied prerequisite,
		// one elective slot.
		current: []models.StudyPlanEntry{
			{ProgramID: "prog-1", SemesterNo: 3, CourseID: strPtr("c3")},
			{ProgramID: "prog-1", SemesterNo: 3, ElectiveGroupID: strPtr("eg1")},
		},
		// semesters 1-2: c1 passed, c2 never taken.
		earlier: []models.StudyPlanEntry{
			{ProgramID: "prog-1", SemesterNo: 1, CourseID: strPtr("c1")},
			{ProgramID: "prog-1", SemesterNo: 2, CourseID: strPtr("c2")},
		},
		groups: []models.ElectiveGroup{{ID: "eg1", ProgramID: "prog-1", Code: "E1"}},
		pool: []models.ElectivePoolCourse{
			{ElectiveGroupID: "eg1", GroupCode: "E1", CourseID: "e1", CourseCode: "EL101"},
			{ElectiveGroupID: "eg1", GroupCode: "E1", CourseID: "e2", CourseCode: "EL102"},
		},
	}
	courses := &fakeCourses{
		courses: []models.Course{
			{ID: "c1", Code: "CS101", CreditHours: 3},
			{ID: "c2", Code: "MA102", CreditHours: 3},
			{ID: "c3", Code: "CS301", CreditHours: 3},
		},
		prereqs: []models.CoursePrerequisite{
			{CourseID: "c3", PrerequisiteID: "c1", Code: "CS101"},
			{CourseID: "e2", PrerequisiteID: "c9", Code: "XX900"},
		},
	}

	svc := newGuidanceFixture(history, plans, courses, nil)
	report, err := svc.Report(context.Background(), nil, "stu-1", "term-1")
	require.NoError(t, err)

	assert.Equal(t, 3, report.SemesterNo, "level 2 fall maps to semester 3")
	require.Len(t, report.StudyPlanCourses.Courses, 1)
	plan := report.StudyPlanCourses.Courses[0]
	assert.Equal(t, "CS301", plan.CourseCode)
	assert.True(t, plan.Available, "prerequisite CS101 is passed")

	electives := report.StudyPlanCourses.ElectiveInfo
	assert.Equal(t, 1, electives.Count)
	assert.Equal(t, []string{"E1"}, electives.Codes)
	require.Len(t, electives.Pool, 2)
	assert.Equal(t, "EL101", electives.Pool[0].CourseCode, "available choices rank before blocked ones")
	assert.True(t, electives.Pool[0].Available)
	assert.False(t, electives.Pool[1].Available)

	require.Len(t, report.MissingCourses.Core, 1)
	assert.Equal(t, "MA102", report.MissingCourses.Core[0].CourseCode, "passed courses drop out of missing")
}

func TestReportElectiveShortfall(t *testing.T) {
	history := &fakeHistory{records: []models.HistoryRecord{
		{CourseID: "e1", CourseCode: "EL101", Grade: strPtr("B")},
	}}
	plans := &fakePlans{
		// Two elective slots of the same group required before semester 5;
		// only one pool course is passed.
		earlier: []models.StudyPlanEntry{
			{ProgramID: "prog-1", SemesterNo: 2, ElectiveGroupID: strPtr("eg1")},
			{ProgramID: "prog-1", SemesterNo: 3, ElectiveGroupID: strPtr("eg1")},
		},
		groups: []models.ElectiveGroup{{ID: "eg1", ProgramID: "prog-1", Code: "E1"}},
		pool: []models.ElectivePoolCourse{
			{ElectiveGroupID: "eg1", GroupCode: "E1", CourseID: "e1", CourseCode: "EL101"},
			{ElectiveGroupID: "eg1", GroupCode: "E1", CourseID: "e2", CourseCode: "EL102"},
			{ElectiveGroupID: "eg1", GroupCode: "E1", CourseID: "e3", CourseCode: "EL103"},
		},
	}
	courses := &fakeCourses{}

	svc := newGuidanceFixture(history, plans, courses, nil)
	report, err := svc.Report(context.Background(), nil, "stu-1", "")
	require.NoError(t, err)

	missing := report.MissingCourses.Electives
	assert.Equal(t, 1, missing.Count, "two slots required, one pool course passed")
	assert.Equal(t, []string{"E1"}, missing.Codes)
	require.Len(t, missing.Pool, 2, "the passed pool course is excluded")
	assert.Equal(t, "EL102", missing.Pool[0].CourseCode)
}

func TestReportUsesCache(t *testing.T) {
	history := &fakeHistory{}
	plans := &fakePlans{}
	courses := &fakeCourses{}
	cache := &fakeGuidanceCache{store: map[string][]byte{}}

	svc := newGuidanceFixture(history, plans, courses, cache)

	_, err := svc.Report(context.Background(), nil, "stu-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets, "first call stores the report")

	_, err = svc.Report(context.Background(), nil, "stu-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets, "second call is served from cache")
	assert.Equal(t, 2, cache.gets)
}

func TestReportAccessDenied(t *testing.T) {
	svc := newGuidanceFixture(&fakeHistory{}, &fakePlans{}, &fakeCourses{}, nil)
	svc.access = denyAccess{}
	_, err := svc.Report(context.Background(), nil, "stu-1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccessDenied.Code, appErrors.FromError(err).Code)
}
