package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/warehouse/config"
	"example.com/warehouse/internal/metrics"
	"example.com/warehouse/internal/models"
	"example.com/warehouse/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	claims *services.Claims
	err    error
}

func (s *stubAuth) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	return "", nil, nil
}

func (s *stubAuth) Register(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	return nil, nil
}

func (s *stubAuth) VerifyToken(tokenString string) (*services.Claims, error) {
	return s.claims, s.err
}

func setupRouter(auth services.AuthService, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/api")
	group.Use(Authenticate(auth))
	group.POST("/approve", RequireRole(role), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func staffClaims() *services.Claims {
	return &services.Claims{
		Username: "clerk",
		Role:     models.RoleStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	router := setupRouter(&stubAuth{claims: staffClaims()}, models.RoleStaff)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/approve", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	router := setupRouter(&stubAuth{err: jwt.ErrTokenExpired}, models.RoleStaff)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/approve", nil)
	req.Header.Set("Authorization", "Bearer expired")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoleForbidsStaffOnAdminRoute(t *testing.T) {
	router := setupRouter(&stubAuth{claims: staffClaims()}, models.RoleAdmin)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/approve", nil)
	req.Header.Set("Authorization", "Bearer token")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRoleAdminPassesEverywhere(t *testing.T) {
	claims := staffClaims()
	claims.Role = models.RoleAdmin
	router := setupRouter(&stubAuth{claims: claims}, models.RoleStaff)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/approve", nil)
	req.Header.Set("Authorization", "Bearer token")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestRealVerifierRejectsGarbageToken(t *testing.T) {
	auth := services.NewAuthService(nil, metrics.NewMetrics(), config.AuthConfig{
		Secret:        "round-trip-secret",
		TokenLifetime: time.Hour,
	})

	router := setupRouter(auth, models.RoleStaff)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/approve", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
