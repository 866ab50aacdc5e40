package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/service"
	appErrors "github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/errors"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/export"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/response"
)

type enrollmentOutcomeObserver interface {
	ObserveEnrollment(outcome string)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	metrics     enrollmentOutcomeObserver
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
}

// NewEnrollmentHandler constructs the handler. Metrics may be nil.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, metrics enrollmentOutcomeObserver, csv *export.CSVExporter, pdf *export.PDFExporter) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, metrics: metrics, csv: csv, pdf: pdf}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param courseId query string false "Filter by course"
// @Param termId query string false "Filter by term"
// @Param graded query bool false "Filter by graded state"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter := models.EnrollmentFilter{
		StudentID: c.Query("studentId"),
		CourseID:  c.Query("courseId"),
		TermID:    c.Query("termId"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if raw := c.Query("graded"); raw != "" {
		graded, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "graded must be a boolean"))
			return
		}
		filter.Graded = &graded
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Create godoc
// @Summary Enroll a student into a batch of courses
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollStudentRequest true "Enrollment batch"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req service.EnrollStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	results, err := h.enrollments.Enroll(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		h.observe(appErrors.FromError(err).Code)
		response.Error(c, err)
		return
	}
	h.observe("committed")
	response.Created(c, results)
}

// Delete godoc
// @Summary Delete an enrollment and release its seats
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 204
// @Security BearerAuth
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.enrollments.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Timetable godoc
// @Summary Get a student's weekly timetable for a term
// @Tags Enrollments
// @Produce json
// @Param studentId path string true "Student ID"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{studentId}/timetable [get]
func (h *EnrollmentHandler) Timetable(c *gin.Context) {
	termID := c.Query("termId")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId is required"))
		return
	}
	entries, err := h.enrollments.Timetable(c.Request.Context(), claimsFromContext(c), c.Param("studentId"), termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ExportTimetable godoc
// @Summary Export a student's timetable as CSV or PDF
// @Tags Enrollments
// @Produce octet-stream
// @Param studentId path string true "Student ID"
// @Param termId query string true "Term ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /students/{studentId}/timetable/export [get]
func (h *EnrollmentHandler) ExportTimetable(c *gin.Context) {
	termID := c.Query("termId")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId is required"))
		return
	}
	studentID := c.Param("studentId")
	entries, err := h.enrollments.Timetable(c.Request.Context(), claimsFromContext(c), studentID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}

	data := timetableDataset(entries)
	filename := fmt.Sprintf("timetable-%s-%s", studentID, time.Now().UTC().Format("20060102"))

	switch strings.ToLower(c.DefaultQuery("format", "csv")) {
	case "csv":
		payload, err := h.csv.Render(data)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render csv"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		c.Data(http.StatusOK, "text/csv", payload)
	case "pdf":
		payload, err := h.pdf.Render(data, "Weekly Timetable")
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render pdf"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", filename))
		c.Data(http.StatusOK, "application/pdf", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}

func timetableDataset(entries []models.TimetableEntry) export.Dataset {
	data := export.Dataset{
		Headers: []string{"Day", "Start", "End", "Course", "Title", "Activity", "Group", "Location"},
	}
	for _, entry := range entries {
		location := ""
		if entry.Location != nil {
			location = *entry.Location
		}
		data.Rows = append(data.Rows, map[string]string{
			"Day":      entry.DayOfWeek,
			"Start":    entry.StartTime,
			"End":      entry.EndTime,
			"Course":   entry.CourseCode,
			"Title":    entry.CourseTitle,
			"Activity": string(entry.ActivityType),
			"Group":    strconv.Itoa(entry.GroupNo),
			"Location": location,
		})
	}
	return data
}

func (h *EnrollmentHandler) observe(outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveEnrollment(outcome)
	}
}
