package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
	appErrors "github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/errors"
)

type historyReader interface {
	ListHistoryByStudent(ctx context.Context, studentID string) ([]models.HistoryRecord, error)
}

type studyPlanReader interface {
	ListBySemester(ctx context.Context, programID string, semesterNo int) ([]models.StudyPlanEntry, error)
	ListBeforeSemester(ctx context.Context, programID string, semesterNo int) ([]models.StudyPlanEntry, error)
	GroupsByIDs(ctx context.Context, ids []string) ([]models.ElectiveGroup, error)
	PoolByGroupIDs(ctx context.Context, ids []string) ([]models.ElectivePoolCourse, error)
}

type courseCatalogReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Course, error)
	ListPrerequisites(ctx context.Context, courseIDs []string) ([]models.CoursePrerequisite, error)
}

type guidanceCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// GuidanceService is the curriculum guidance engine: it classifies a
// student's course history against the program study plan and resolves
// elective pools. It is read-only.
type GuidanceService struct {
	students students
	terms    termReader
	history  historyReader
	plans    studyPlanReader
	courses  courseCatalogReader
	access   studentAccessPolicy
	cache    guidanceCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

type students interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// NewGuidanceService constructs GuidanceService. A nil cache disables
// report caching.
func NewGuidanceService(students students, terms termReader, history historyReader, plans studyPlanReader, courses courseCatalogReader, access studentAccessPolicy, cache guidanceCache, cacheTTL time.Duration, logger *zap.Logger) *GuidanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuidanceService{students: students, terms: terms, history: history, plans: plans, courses: courses, access: access, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// SemesterNumber derives the study-plan semester from the student level and
// the term season: fall is the odd semester of the level, spring the even
// one; summer or an absent term defaults to the even semester.
func SemesterNumber(level int, term *models.Term) int {
	if term != nil && term.Season == models.SeasonFall {
		return level*2 - 1
	}
	return level * 2
}

// Report computes the guidance report for a student, optionally against a
// specific term (otherwise the level's default semester applies).
func (s *GuidanceService) Report(ctx context.Context, claims *models.JWTClaims, studentID, termID string) (*models.GuidanceReport, error) {
	if err := s.access.CanAccessStudent(ctx, claims, studentID); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("guidance:%s:%s", studentID, termKeyPart(termID))
	if s.cache != nil {
		var cached models.GuidanceReport
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	var term *models.Term
	if termID != "" {
		term, err = s.terms.FindByID(ctx, termID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
		}
	}

	history, err := s.history.ListHistoryByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}

	report := &models.GuidanceReport{
		StudentID:    studentID,
		StudentLevel: student.LevelID,
		SemesterNo:   SemesterNumber(student.LevelID, term),
	}

	buckets := bucketHistory(history)
	report.CoursesHistory = buckets.toHistory()

	current, err := s.resolveSemester(ctx, student.ProgramID, report.SemesterNo, buckets)
	if err != nil {
		return nil, err
	}
	report.StudyPlanCourses = models.StudyPlanCourses{Courses: current.courses, ElectiveInfo: current.electives}

	missing, err := s.resolveMissing(ctx, student.ProgramID, report.SemesterNo, buckets)
	if err != nil {
		return nil, err
	}
	report.MissingCourses = *missing

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache guidance report", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return report, nil
}

func termKeyPart(termID string) string {
	if termID == "" {
		return "default"
	}
	return termID
}

type historyBuckets struct {
	passed     map[string]models.HistoryRecord
	failed     map[string]models.HistoryRecord
	incomplete map[string]models.HistoryRecord
	order      []models.HistoryRecord
}

// bucketHistory classifies every enrollment: a passing grade wins over any
// other attempt of the same course; a nil grade marks it in progress.
func bucketHistory(history []models.HistoryRecord) historyBuckets {
	buckets := historyBuckets{
		passed:     map[string]models.HistoryRecord{},
		failed:     map[string]models.HistoryRecord{},
		incomplete: map[string]models.HistoryRecord{},
		order:      history,
	}
	for _, record := range history {
		switch {
		case record.Grade == nil:
			buckets.incomplete[record.CourseID] = record
		case models.IsPassingGrade(*record.Grade):
			buckets.passed[record.CourseID] = record
		default:
			buckets.failed[record.CourseID] = record
		}
	}
	return buckets
}

func (b historyBuckets) toHistory() models.CoursesHistory {
	out := models.CoursesHistory{
		Passed:     []models.CourseHistoryItem{},
		Failed:     []models.CourseHistoryItem{},
		Incomplete: []models.CourseHistoryItem{},
	}
	for _, record := range b.order {
		item := models.CourseHistoryItem{
			CourseID:    record.CourseID,
			CourseCode:  record.CourseCode,
			CourseTitle: record.CourseTitle,
			CreditHours: record.CreditHours,
			TermID:      record.TermID,
			Grade:       record.Grade,
		}
		switch {
		case record.Grade == nil:
			out.Incomplete = append(out.Incomplete, item)
		case models.IsPassingGrade(*record.Grade):
			out.Passed = append(out.Passed, item)
		default:
			out.Failed = append(out.Failed, item)
		}
	}
	return out
}

func (b historyBuckets) passedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(b.passed))
	for id := range b.passed {
		set[id] = struct{}{}
	}
	return set
}

type semesterResolution struct {
	courses   []models.PlanCourse
	electives models.ElectiveInfo
}

// resolveSemester marks every plain plan course with availability and
// progress flags and resolves the semester's elective pools.
func (s *GuidanceService) resolveSemester(ctx context.Context, programID string, semesterNo int, buckets historyBuckets) (*semesterResolution, error) {
	entries, err := s.plans.ListBySemester(ctx, programID, semesterNo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study plan")
	}

	courseRows, groupIDs := splitPlanEntries(entries)
	courses, err := s.buildPlanCourses(ctx, courseRows, semesterNo, buckets)
	if err != nil {
		return nil, err
	}

	electives, err := s.resolveElectives(ctx, groupIDs, buckets, false)
	if err != nil {
		return nil, err
	}
	electives.Count = countElectiveSlots(entries)

	return &semesterResolution{courses: courses, electives: *electives}, nil
}

// resolveMissing runs the earlier-semester pass: unpassed core courses plus
// elective groups whose requirement shortfall is positive.
func (s *GuidanceService) resolveMissing(ctx context.Context, programID string, semesterNo int, buckets historyBuckets) (*models.MissingCourses, error) {
	entries, err := s.plans.ListBeforeSemester(ctx, programID, semesterNo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load earlier study plan")
	}

	courseRows, groupIDs := splitPlanEntries(entries)
	unpassed := courseRows[:0]
	for _, entry := range courseRows {
		if _, ok := buckets.passed[*entry.CourseID]; !ok {
			unpassed = append(unpassed, entry)
		}
	}
	core, err := s.buildPlanCourses(ctx, unpassed, 0, buckets)
	if err != nil {
		return nil, err
	}
	if core == nil {
		core = []models.PlanCourse{}
	}

	requiredPerGroup := map[string]int{}
	for _, entry := range entries {
		if entry.ElectiveGroupID != nil {
			requiredPerGroup[*entry.ElectiveGroupID]++
		}
	}

	electives := &models.ElectiveInfo{Codes: []string{}, Pool: []models.ElectiveCourse{}}
	if len(groupIDs) > 0 {
		pool, err := s.plans.PoolByGroupIDs(ctx, groupIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load elective pools")
		}

		passedPerGroup := map[string]int{}
		seenPerGroup := map[string]map[string]struct{}{}
		for _, course := range pool {
			if seenPerGroup[course.ElectiveGroupID] == nil {
				seenPerGroup[course.ElectiveGroupID] = map[string]struct{}{}
			}
			if _, dup := seenPerGroup[course.ElectiveGroupID][course.CourseID]; dup {
				continue
			}
			seenPerGroup[course.ElectiveGroupID][course.CourseID] = struct{}{}
			if _, ok := buckets.passed[course.CourseID]; ok {
				passedPerGroup[course.ElectiveGroupID]++
			}
		}

		shortfallGroups := map[string]struct{}{}
		totalShortfall := 0
		groups, err := s.plans.GroupsByIDs(ctx, groupIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load elective groups")
		}
		for _, group := range groups {
			shortfall := requiredPerGroup[group.ID] - passedPerGroup[group.ID]
			if shortfall > 0 {
				shortfallGroups[group.ID] = struct{}{}
				totalShortfall += shortfall
				electives.Codes = append(electives.Codes, group.Code)
			}
		}
		electives.Count = totalShortfall

		if len(shortfallGroups) > 0 {
			var remaining []string
			for id := range shortfallGroups {
				remaining = append(remaining, id)
			}
			sort.Strings(remaining)
			resolved, err := s.resolveElectives(ctx, remaining, buckets, true)
			if err != nil {
				return nil, err
			}
			electives.Pool = resolved.Pool
		}
	}

	return &models.MissingCourses{Core: core, Electives: *electives}, nil
}

func splitPlanEntries(entries []models.StudyPlanEntry) ([]models.StudyPlanEntry, []string) {
	var courseRows []models.StudyPlanEntry
	groupSeen := map[string]struct{}{}
	var groupIDs []string
	for _, entry := range entries {
		switch {
		case entry.CourseID != nil:
			courseRows = append(courseRows, entry)
		case entry.ElectiveGroupID != nil:
			if _, ok := groupSeen[*entry.ElectiveGroupID]; !ok {
				groupSeen[*entry.ElectiveGroupID] = struct{}{}
				groupIDs = append(groupIDs, *entry.ElectiveGroupID)
			}
		}
	}
	return courseRows, groupIDs
}

func countElectiveSlots(entries []models.StudyPlanEntry) int {
	count := 0
	for _, entry := range entries {
		if entry.ElectiveGroupID != nil {
			count++
		}
	}
	return count
}

func (s *GuidanceService) buildPlanCourses(ctx context.Context, entries []models.StudyPlanEntry, semesterNo int, buckets historyBuckets) ([]models.PlanCourse, error) {
	if len(entries) == 0 {
		return []models.PlanCourse{}, nil
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, *entry.CourseID)
	}
	courses, err := s.courses.ListByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan courses")
	}
	prereqs, err := s.courses.ListPrerequisites(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan prerequisites")
	}
	prereqsByCourse := groupPrerequisites(prereqs)
	courseByID := map[string]models.Course{}
	for _, course := range courses {
		courseByID[course.ID] = course
	}
	passed := buckets.passedSet()

	result := make([]models.PlanCourse, 0, len(entries))
	for _, entry := range entries {
		course, ok := courseByID[*entry.CourseID]
		if !ok {
			continue
		}
		check := CheckPrerequisites(models.CourseWithPrerequisites{Course: course, Prerequisites: prereqsByCourse[course.ID]}, passed)
		sem := semesterNo
		if sem == 0 {
			sem = entry.SemesterNo
		}
		_, isPassed := buckets.passed[course.ID]
		_, isIncomplete := buckets.incomplete[course.ID]
		result = append(result, models.PlanCourse{
			CourseID:      course.ID,
			CourseCode:    course.Code,
			CourseTitle:   course.Title,
			CreditHours:   course.CreditHours,
			SemesterNo:    sem,
			Available:     check.Satisfied,
			IsPassed:      isPassed,
			IsIncomplete:  isIncomplete,
			MissingPrereq: check.MissingCode,
		})
	}
	return result, nil
}

// resolveElectives builds the deduplicated, ranked pool for a set of
// elective groups. Passed courses are excluded from the presented pool;
// retake candidates (taken but incomplete or failed) rank after available
// untaken choices and before prerequisite-blocked ones.
func (s *GuidanceService) resolveElectives(ctx context.Context, groupIDs []string, buckets historyBuckets, skipCodes bool) (*models.ElectiveInfo, error) {
	info := &models.ElectiveInfo{Codes: []string{}, Pool: []models.ElectiveCourse{}}
	if len(groupIDs) == 0 {
		return info, nil
	}

	if !skipCodes {
		groups, err := s.plans.GroupsByIDs(ctx, groupIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load elective groups")
		}
		for _, group := range groups {
			info.Codes = append(info.Codes, group.Code)
		}
	}

	pool, err := s.plans.PoolByGroupIDs(ctx, groupIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load elective pools")
	}

	// Dedup across pools feeding the same semester by course ID.
	seen := map[string]struct{}{}
	var unique []models.ElectivePoolCourse
	var courseIDs []string
	for _, course := range pool {
		if _, ok := seen[course.CourseID]; ok {
			continue
		}
		seen[course.CourseID] = struct{}{}
		unique = append(unique, course)
		courseIDs = append(courseIDs, course.CourseID)
	}

	prereqs, err := s.courses.ListPrerequisites(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pool prerequisites")
	}
	prereqsByCourse := groupPrerequisites(prereqs)
	passed := buckets.passedSet()

	type ranked struct {
		course models.ElectiveCourse
		class  int
	}
	var rankedPool []ranked
	for _, candidate := range unique {
		if _, ok := buckets.passed[candidate.CourseID]; ok {
			continue
		}
		check := CheckPrerequisites(models.CourseWithPrerequisites{
			Course:        models.Course{ID: candidate.CourseID},
			Prerequisites: prereqsByCourse[candidate.CourseID],
		}, passed)
		_, wasIncomplete := buckets.incomplete[candidate.CourseID]
		_, wasFailed := buckets.failed[candidate.CourseID]
		retake := wasIncomplete || wasFailed

		class := 2
		switch {
		case check.Satisfied && !retake:
			class = 0
		case retake:
			class = 1
		}
		rankedPool = append(rankedPool, ranked{
			course: models.ElectiveCourse{
				CourseID:    candidate.CourseID,
				CourseCode:  candidate.CourseCode,
				CourseTitle: candidate.CourseTitle,
				CreditHours: candidate.CreditHours,
				Available:   check.Satisfied,
				Retake:      retake,
			},
			class: class,
		})
	}
	sort.SliceStable(rankedPool, func(i, j int) bool {
		if rankedPool[i].class != rankedPool[j].class {
			return rankedPool[i].class < rankedPool[j].class
		}
		return rankedPool[i].course.CourseCode < rankedPool[j].course.CourseCode
	})
	for _, entry := range rankedPool {
		info.Pool = append(info.Pool, entry.course)
	}
	return info, nil
}

func groupPrerequisites(prereqs []models.CoursePrerequisite) map[string][]models.CoursePrerequisite {
	grouped := map[string][]models.CoursePrerequisite{}
	for _, prereq := range prereqs {
		grouped[prereq.CourseID] = append(grouped[prereq.CourseID], prereq)
	}
	return grouped
}
