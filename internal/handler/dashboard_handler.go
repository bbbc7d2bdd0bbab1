package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gizmohq/survey-api/internal/dto"
	"github.com/gizmohq/survey-api/internal/middleware"
	"github.com/gizmohq/survey-api/internal/models"
	appErrors "github.com/gizmohq/survey-api/pkg/errors"
	"github.com/gizmohq/survey-api/pkg/response"
)

type dashboardService interface {
	Dashboard(ctx context.Context, teacherID string, filter models.DashboardFilter) (*dto.DashboardResponse, bool, error)
}

// DashboardHandler wires the dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Analytics godoc
// @Summary Dashboard analytics
// @Description Response trends across the teacher's surveys and sections
// @Tags Dashboard
// @Produce json
// @Param survey_id query string false "Survey ID or 'all'"
// @Param section_id query string false "Section ID or 'all'"
// @Param date_from query string false "Earliest submission date (YYYY-MM-DD)"
// @Param date_to query string false "Latest submission date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /dashboard/analytics [get]
func (h *DashboardHandler) Analytics(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var filter models.DashboardFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dashboard filters"))
		return
	}

	start := time.Now()
	payload, cacheHit, err := h.service.Dashboard(c.Request.Context(), claims.UserID, filter)
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
