package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/service"
	appErrors "github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/errors"
	"github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/response"
)

// ImportHandler exposes the bulk enrollment import endpoint.
type ImportHandler struct {
	imports *service.ImportService
}

// NewImportHandler constructs the handler.
func NewImportHandler(imports *service.ImportService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// Import godoc
// @Summary Bulk import historical enrollments
// @Tags Imports
// @Accept json
// @Produce json
// @Param payload body service.ImportRequest true "Import rows"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/import [post]
func (h *ImportHandler) Import(c *gin.Context) {
	var req service.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	summary, err := h.imports.Import(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
