package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gizmohq/survey-api/internal/dto"
	"github.com/gizmohq/survey-api/internal/middleware"
	"github.com/gizmohq/survey-api/internal/models"
	appErrors "github.com/gizmohq/survey-api/pkg/errors"
	"github.com/gizmohq/survey-api/pkg/response"
)

type analyticsService interface {
	SurveyAnalytics(ctx context.Context, teacherID, surveyID string, filter models.ResponseFilter) (*dto.SurveyAnalyticsResponse, bool, error)
}

// AnalyticsHandler exposes per-survey analytics over HTTP.
type AnalyticsHandler struct {
	service analyticsService
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(service analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// Survey godoc
// @Summary Survey analytics
// @Description Per-question aggregation, word clouds and section completion for one survey
// @Tags Analytics
// @Produce json
// @Param id path string true "Survey ID"
// @Param section_id query string false "Limit to one section"
// @Param date_from query string false "Earliest submission date (YYYY-MM-DD)"
// @Param date_to query string false "Latest submission date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /surveys/{id}/analytics [get]
func (h *AnalyticsHandler) Survey(c *gin.Context) {
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
	filter, err := responseFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	start := time.Now()
	payload, cacheHit, err := h.service.SurveyAnalytics(c.Request.Context(), claims.UserID, surveyID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, payload, nil, meta)
}

// responseFilterFromQuery reads the optional section and date narrowing
// shared by the analytics and export endpoints. The section value "all" is
// the same sentinel the dashboard accepts and leaves the filter unset.
func responseFilterFromQuery(c *gin.Context) (models.ResponseFilter, error) {
	filter := models.ResponseFilter{}
	if sectionID := strings.TrimSpace(c.Query("section_id")); sectionID != "" && sectionID != "all" {
		filter.SectionID = sectionID
	}
	if raw := strings.TrimSpace(c.Query("date_from")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return models.ResponseFilter{}, appErrors.Clone(appErrors.ErrInvalidDateFilter, fmt.Sprintf("invalid date_from %q", raw))
		}
		filter.DateFrom = &parsed
	}
	if raw := strings.TrimSpace(c.Query("date_to")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return models.ResponseFilter{}, appErrors.Clone(appErrors.ErrInvalidDateFilter, fmt.Sprintf("invalid date_to %q", raw))
		}
		filter.DateTo = &parsed
	}
	return filter, nil
}
