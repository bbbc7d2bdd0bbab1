package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gizmohq/survey-api/internal/dto"
	"github.com/gizmohq/survey-api/internal/middleware"
	"github.com/gizmohq/survey-api/internal/models"
	appErrors "github.com/gizmohq/survey-api/pkg/errors"
)

type fakeDashboardSrv struct {
	payload    *dto.DashboardResponse
	hit        bool
	err        error
	lastFilter models.DashboardFilter
}

func (f *fakeDashboardSrv) Dashboard(_ context.Context, _ string, filter models.DashboardFilter) (*dto.DashboardResponse, bool, error) {
	f.lastFilter = filter
	return f.payload, f.hit, f.err
}

func TestDashboardHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeDashboardSrv{
		payload: &dto.DashboardResponse{TotalSurveys: 2, TotalSections: 3},
		hit:     true,
	}
	handler := NewDashboardHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/analytics?survey_id=srv-1&section_id=all&date_from=2024-03-01&date_to=2024-03-15", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1"})

	handler.Analytics(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(2), envelope.Data["total_surveys"])
	assert.Equal(t, true, envelope.Meta["cache_hit"])

	assert.Equal(t, models.DashboardFilter{
		SurveyID:  "srv-1",
		SectionID: "all",
		DateFrom:  "2024-03-01",
		DateTo:    "2024-03-15",
	}, srv.lastFilter)
}

func TestDashboardHandlerRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/analytics", nil)

	handler.Analytics(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardHandlerPropagatesInvalidDateFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{
		err: appErrors.Clone(appErrors.ErrInvalidDateFilter, `invalid date_from "not-a-date"`),
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/analytics?date_from=not-a-date", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1"})

	handler.Analytics(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, appErrors.ErrInvalidDateFilter.Code, envelope.Error["code"])
}
