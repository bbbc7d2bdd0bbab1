package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gizmohq/survey-api/internal/models"
	"github.com/gizmohq/survey-api/internal/service"
)

type staticUserRepo struct {
	user *models.User
}

func (r *staticUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if r.user != nil && r.user.Email == email {
		return r.user, nil
	}
	return nil, sql.ErrNoRows
}

func (r *staticUserRepo) FindByID(context.Context, string) (*models.User, error) {
	return r.user, nil
}

func (r *staticUserRepo) UpdateLastLogin(context.Context, string, time.Time) error {
	return nil
}

func TestJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &staticUserRepo{user: &models.User{
		ID:           "user-1",
		Email:        "t@school.test",
		PasswordHash: string(hash),
		Role:         models.RoleTeacher,
		Active:       true,
	}}
	authSvc := service.NewAuthService(repo, nil, zap.NewNop(), service.AuthConfig{Secret: "s3cret", Expiration: time.Hour})

	login, err := authSvc.Login(context.Background(), models.LoginRequest{Email: "t@school.test", Password: "pw"})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/protected", JWT(authSvc), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})

	t.Run("valid token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+login.AccessToken)
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer nope")
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(role models.UserRole) *gin.Engine {
		r := gin.New()
		r.GET("/teacher", func(c *gin.Context) {
			c.Set(ContextUserKey, &models.JWTClaims{UserID: "u1", Role: role})
		}, RequireRoles(models.RoleTeacher), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return r
	}

	rec := httptest.NewRecorder()
	newRouter(models.RoleStudent).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teacher", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	newRouter(models.RoleTeacher).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teacher", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
