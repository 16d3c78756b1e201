package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/logger"
)

type validatorStub map[string]*models.JWTClaims

func (s validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newProtectedRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/professors/:id/agenda", handlers...)
	return r
}

func doGet(r http.Handler, path, token string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestJWTAndRBAC(t *testing.T) {
	tokens := validatorStub{
		"admin": {UserID: "u-admin", Role: models.RoleAdmin},
		"prof":  {UserID: "prof-1", Role: models.RoleProfessor},
	}
	r := newProtectedRouter(JWT(tokens), RBAC(string(models.RoleAdmin), RoleSelf))

	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/professors/prof-1/agenda", ""))
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/professors/prof-1/agenda", "garbage"))
	assert.Equal(t, http.StatusOK, doGet(r, "/professors/prof-1/agenda", "admin"))
	assert.Equal(t, http.StatusOK, doGet(r, "/professors/prof-1/agenda", "prof"))
	assert.Equal(t, http.StatusForbidden, doGet(r, "/professors/prof-2/agenda", "prof"))
}

func TestJWTRejectsNonBearerScheme(t *testing.T) {
	r := newProtectedRouter(JWT(validatorStub{}))
	req := httptest.NewRequest(http.MethodGet, "/professors/x/agenda", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid authorization header")
}

func TestRateLimit(t *testing.T) {
	r := newProtectedRouter(RateLimit(NewIPRateLimiter(rate.Limit(0.001), 2)))

	assert.Equal(t, http.StatusOK, doGet(r, "/professors/x/agenda", ""))
	assert.Equal(t, http.StatusOK, doGet(r, "/professors/x/agenda", ""))
	assert.Equal(t, http.StatusTooManyRequests, doGet(r, "/professors/x/agenda", ""))

	open := newProtectedRouter(RateLimit(NewIPRateLimiter(0, 1)))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doGet(open, "/professors/x/agenda", ""))
	}
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/", func(c *gin.Context) {
		SetMeta(c, "total_entries", 3)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	doGet(r, "/", "")
	assert.Equal(t, 3, meta["total_entries"])
	assert.Contains(t, meta, "processing_time_ms")
	assert.NotContains(t, meta, "started_at")
}

func TestJWTStoresClaimsAndActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var claims *models.JWTClaims
	var actor string
	r.GET("/me", JWT(validatorStub{"prof": {UserID: "prof-1", Role: models.RoleProfessor}}), func(c *gin.Context) {
		claims = CurrentClaims(c)
		actor = c.GetString(logger.ActorKey)
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, doGet(r, "/me", "prof"))
	require.NotNil(t, claims)
	assert.True(t, claims.HasRole(models.RoleAdmin, models.RoleProfessor))
	assert.False(t, claims.HasRole(models.RoleAdmin))
	assert.Equal(t, "prof-1", actor)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer   ")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRBACWithoutJWT(t *testing.T) {
	r := newProtectedRouter(RBAC(string(models.RoleAdmin)))
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/professors/x/agenda", ""))
}

func TestMetricsSkipsProbeRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/schedules/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	doGet(r, "/health", "")
	doGet(r, "/schedules/42", "")
	doGet(r, "/nowhere", "")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `path="/schedules/:id"`)
	assert.Contains(t, body, `path="unmatched",status="404"`)
	assert.NotContains(t, body, `path="/health"`)
}
