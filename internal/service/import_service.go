package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/repository"
	appErrors "github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/errors"
)

type importTxRunner interface {
	InTx(ctx context.Context, fn func(tx repository.EnrollmentTx) error) error
}

type studentCodeResolver interface {
	FindByAcademicID(ctx context.Context, academicID string) (*models.Student, error)
}

type courseCodeResolver interface {
	FindByCode(ctx context.Context, code string) (*models.Course, error)
}

type termCodeResolver interface {
	FindByCode(ctx context.Context, code string) (*models.Term, error)
}

type offeringResolver interface {
	FindByCourseAndTerm(ctx context.Context, courseID, termID string) (*models.AvailableCourse, error)
	FindGroupByNumber(ctx context.Context, offeringID string, groupNo int) (*models.AvailableCourseSchedule, error)
}

// ImportRow is one spreadsheet line of the bulk enrollment import. Codes are
// used instead of IDs because the source files come from the registrar office.
type ImportRow struct {
	StudentAcademicID string  `json:"student_academic_id" validate:"required"`
	CourseCode        string  `json:"course_code" validate:"required"`
	TermCode          string  `json:"term_code" validate:"required"`
	Group             *int    `json:"group,omitempty" validate:"omitempty,min=1"`
	Grade             *string `json:"grade,omitempty"`
}

// ImportRequest is the bulk import payload.
type ImportRequest struct {
	Rows []ImportRow `json:"rows" validate:"required,min=1,dive"`
}

// Row statuses of the import report.
const (
	ImportStatusCreated = "created"
	ImportStatusUpdated = "updated"
	ImportStatusFailed  = "failed"
)

// ImportRowResult reports the outcome of a single row.
type ImportRowResult struct {
	Row          int    `json:"row"`
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	EnrollmentID string `json:"enrollment_id,omitempty"`
}

// ImportSummary aggregates the per-row report.
type ImportSummary struct {
	Created int               `json:"created"`
	Updated int               `json:"updated"`
	Failed  int               `json:"failed"`
	Results []ImportRowResult `json:"results"`
}

// ImportService backfills historical enrollments from registrar spreadsheets.
// Rows upsert: an existing (student, course, term) enrollment has its grade
// updated instead of being rejected as a duplicate. Capacity and ceiling
// checks are intentionally not applied to historical data.
type ImportService struct {
	enrollments importTxRunner
	students    studentCodeResolver
	courses     courseCodeResolver
	terms       termCodeResolver
	offerings   offeringResolver
	cache       guidanceCacheInvalidator
	maxRows     int
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewImportService constructs the service.
func NewImportService(
	enrollments importTxRunner,
	students studentCodeResolver,
	courses courseCodeResolver,
	terms termCodeResolver,
	offerings offeringResolver,
	cache guidanceCacheInvalidator,
	maxRows int,
	validate *validator.Validate,
	logger *zap.Logger,
) *ImportService {
	if maxRows <= 0 {
		maxRows = 5000
	}
	return &ImportService{
		enrollments: enrollments,
		students:    students,
		courses:     courses,
		terms:       terms,
		offerings:   offerings,
		cache:       cache,
		maxRows:     maxRows,
		validate:    validate,
		logger:      logger,
	}
}

// Import processes the rows one by one; a failed row never aborts the batch.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*ImportSummary, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid import payload")
	}
	if len(req.Rows) > s.maxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("import exceeds the %d row limit", s.maxRows))
	}

	summary := &ImportSummary{Results: make([]ImportRowResult, 0, len(req.Rows))}
	touchedStudents := make(map[string]struct{})

	for i, row := range req.Rows {
		result := s.processRow(ctx, row, touchedStudents)
		result.Row = i + 1
		switch result.Status {
		case ImportStatusCreated:
			summary.Created++
		case ImportStatusUpdated:
			summary.Updated++
		default:
			summary.Failed++
		}
		summary.Results = append(summary.Results, result)
	}

	for studentID := range touchedStudents {
		s.invalidateGuidance(ctx, studentID)
	}

	s.logger.Info("enrollment import finished",
		zap.Int("rows", len(req.Rows)),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

func (s *ImportService) processRow(ctx context.Context, row ImportRow, touched map[string]struct{}) ImportRowResult {
	student, err := s.students.FindByAcademicID(ctx, strings.TrimSpace(row.StudentAcademicID))
	if err != nil {
		return failedRow(resolveMessage("student", row.StudentAcademicID, err))
	}
	course, err := s.courses.FindByCode(ctx, strings.TrimSpace(row.CourseCode))
	if err != nil {
		return failedRow(resolveMessage("course", row.CourseCode, err))
	}
	term, err := s.terms.FindByCode(ctx, strings.TrimSpace(row.TermCode))
	if err != nil {
		return failedRow(resolveMessage("term", row.TermCode, err))
	}

	var group *models.AvailableCourseSchedule
	if row.Group != nil {
		offering, err := s.offerings.FindByCourseAndTerm(ctx, course.ID, term.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return failedRow(fmt.Sprintf("course %s is not offered in term %s", course.Code, term.Code))
			}
			return failedRow(fmt.Sprintf("resolve offering: %v", err))
		}
		group, err = s.offerings.FindGroupByNumber(ctx, offering.ID, *row.Group)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return failedRow(fmt.Sprintf("group %d not found for course %s", *row.Group, course.Code))
			}
			return failedRow(fmt.Sprintf("resolve group: %v", err))
		}
	}

	var grade *string
	if row.Grade != nil {
		normalized := strings.ToUpper(strings.TrimSpace(*row.Grade))
		if normalized == "" {
			return failedRow("grade must not be blank when provided")
		}
		grade = &normalized
	}

	result := ImportRowResult{}
	err = s.enrollments.InTx(ctx, func(tx repository.EnrollmentTx) error {
		existing, err := tx.FindByTriple(ctx, student.ID, course.ID, term.ID)
		switch {
		case err == nil:
			if err := tx.UpdateGrade(ctx, existing.ID, grade); err != nil {
				return err
			}
			result.Status = ImportStatusUpdated
			result.EnrollmentID = existing.ID
			return nil
		case errors.Is(err, sql.ErrNoRows):
			enrollment := &models.Enrollment{
				StudentID: student.ID,
				CourseID:  course.ID,
				TermID:    term.ID,
				Grade:     grade,
			}
			if err := tx.InsertEnrollment(ctx, enrollment); err != nil {
				return err
			}
			if group != nil {
				reservation := &models.EnrollmentSchedule{
					EnrollmentID:              enrollment.ID,
					AvailableCourseScheduleID: group.ID,
				}
				if err := tx.InsertEnrollmentSchedule(ctx, reservation); err != nil {
					return err
				}
			}
			result.Status = ImportStatusCreated
			result.EnrollmentID = enrollment.ID
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return failedRow(fmt.Sprintf("persist enrollment: %v", err))
	}

	touched[student.ID] = struct{}{}
	return result
}

func (s *ImportService) invalidateGuidance(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "guidance:"+studentID+":*"); err != nil {
		s.logger.Warn("failed to invalidate guidance cache",
			zap.String("student_id", studentID), zap.Error(err))
	}
}

func failedRow(message string) ImportRowResult {
	return ImportRowResult{Status: ImportStatusFailed, Message: message}
}

func resolveMessage(entity, key string, err error) string {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Sprintf("%s %q not found", entity, key)
	}
	return fmt.Sprintf("resolve %s %q: %v", entity, key, err)
}
