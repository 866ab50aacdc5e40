package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/service"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/response"
)

// GuidanceHandler exposes the curriculum guidance endpoint.
type GuidanceHandler struct {
	guidance *service.GuidanceService
}

// NewGuidanceHandler constructs the handler.
func NewGuidanceHandler(guidance *service.GuidanceService) *GuidanceHandler {
	return &GuidanceHandler{guidance: guidance}
}

// Report godoc
// @Summary Curriculum guidance report for a student
// @Tags Guidance
// @Produce json
// @Param studentId path string true "Student ID"
// @Param termId query string false "Term ID (defaults to the level's even semester)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{studentId}/guidance [get]
func (h *GuidanceHandler) Report(c *gin.Context) {
	report, err := h.guidance.Report(c.Request.Context(), claimsFromContext(c), c.Param("studentId"), c.Query("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
