package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/scholarsphere/internal/app/controllers"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/middleware"
	"github.com/yigit/scholarsphere/internal/pkg/auth"
)

// Handlers are built without services: every request below is stopped
// by a guard, a limiter or request binding before a service is called.
func newTestRouter(t *testing.T) (*gin.Engine, *auth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "routes-test-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "scholarsphere.test",
	})
	nop := zerolog.Nop()
	c := Controllers{
		Auth:         controllers.NewAuthController(nil, nop),
		Scholarship:  controllers.NewScholarshipController(nil, nop),
		Application:  controllers.NewApplicationController(nil, 10, nop),
		Review:       controllers.NewReviewController(nil, nop),
		Notification: controllers.NewNotificationController(nil),
		Analytics:    controllers.NewAnalyticsController(nil),
	}

	r := gin.New()
	SetupRouter(r, c, middleware.NewAuthMiddleware(jwtService), RateLimits{
		Limiter:    middleware.NewMemoryLimiter(),
		AuthLimit:  2,
		ApplyLimit: 1,
		Window:     time.Minute,
	})
	return r, jwtService
}

func bearer(t *testing.T, jwtService *auth.JWTService, id int64, role models.RoleType) string {
	t.Helper()
	pair, err := jwtService.GenerateTokenPair(&models.User{ID: id, Email: "user@school.edu.ph", RoleType: role})
	require.NoError(t, err)
	return "Bearer " + pair.AccessToken
}

func TestHealthIsPublic(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	r, _ := newTestRouter(t)
	for _, path := range []string{"/api/v1/profile", "/api/v1/review/queue", "/api/v1/notifications"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRoleGuards(t *testing.T) {
	r, jwtService := newTestRouter(t)

	tests := []struct {
		name   string
		role   models.RoleType
		method string
		path   string
	}{
		{"student cannot review", models.RoleStudent, http.MethodGet, "/api/v1/review/queue"},
		{"student cannot decide", models.RoleStudent, http.MethodPost, "/api/v1/approvals/applications/1/decision"},
		{"osas cannot decide", models.RoleOSAS, http.MethodPost, "/api/v1/approvals/applications/1/decision"},
		{"osas cannot create scholarships", models.RoleOSAS, http.MethodPost, "/api/v1/scholarships"},
		{"admin cannot recommend", models.RoleAdmin, http.MethodPost, "/api/v1/review/applications/1/recommendation"},
		{"admin cannot apply", models.RoleAdmin, http.MethodPost, "/api/v1/scholarships/1/applications"},
		{"osas cannot list own applications", models.RoleOSAS, http.MethodGet, "/api/v1/applications/mine"},
		{"osas cannot see overview", models.RoleOSAS, http.MethodGet, "/api/v1/analytics/overview"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", bearer(t, jwtService, 5, tt.role))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	r, _ := newTestRouter(t)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "10.0.0.7:5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}
