package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/service"
	appErrors "github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/errors"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/response"
)

// CatalogHandler exposes the offering catalogue endpoints.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListForStudent godoc
// @Summary List enrollable offerings for a student in a term
// @Tags Catalog
// @Produce json
// @Param studentId path string true "Student ID"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{studentId}/available-courses [get]
func (h *CatalogHandler) ListForStudent(c *gin.Context) {
	termID := c.Query("termId")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId is required"))
		return
	}
	entries, err := h.catalog.ListForStudent(c.Request.Context(), claimsFromContext(c), c.Param("studentId"), termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// DeleteOffering godoc
// @Summary Delete an offering and its activity groups
// @Tags Catalog
// @Produce json
// @Param id path string true "Available course ID"
// @Success 204
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /available-courses/{id} [delete]
func (h *CatalogHandler) DeleteOffering(c *gin.Context) {
	if err := h.catalog.DeleteOffering(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
