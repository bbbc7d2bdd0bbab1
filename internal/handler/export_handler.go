package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gizmohq/survey-api/internal/models"
	"github.com/gizmohq/survey-api/internal/service"
	appErrors "github.com/gizmohq/survey-api/pkg/errors"
	"github.com/gizmohq/survey-api/pkg/response"
)

type exportService interface {
	ExportSurveyAnalytics(ctx context.Context, teacherID, surveyID string, format service.ExportFormat, filter models.ResponseFilter) (*service.ExportResult, error)
}

// ExportHandler serves downloadable analytics documents.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Survey godoc
// @Summary Export survey analytics
// @Description Download flattened per-question statistics as CSV or PDF
// @Tags Analytics
// @Produce octet-stream
// @Param id path string true "Survey ID"
// @Param format query string true "Export format (csv or pdf)"
// @Param section_id query string false "Limit to one section"
// @Param date_from query string false "Earliest submission date (YYYY-MM-DD)"
// @Param date_to query string false "Latest submission date (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /surveys/{id}/analytics/export [get]
func (h *ExportHandler) Survey(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	surveyID := strings.TrimSpace(c.Param("id"))
	if surveyID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "survey id is required"))
		return
	}
	format := service.ExportFormat(strings.ToLower(strings.TrimSpace(c.Query("format"))))
	if format == "" {
		format = service.ExportCSV
	}
	filter, err := responseFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.ExportSurveyAnalytics(c.Request.Context(), claims.UserID, surveyID, format, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
