package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
	"github.com/yigit/scholarsphere/internal/app/workflow"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  time.Minute,
		RefreshTokenExp: time.Hour,
		TokenIssuer:     "scholarsphere",
	})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp
}

func TestJWTAuthAndRoles(t *testing.T) {
	jwtSvc := newJWT()
	m := NewAuthMiddleware(jwtSvc)

	r := gin.New()
	r.GET("/admin", m.JWTAuth(), m.RolesRequired(models.RoleAdmin), func(c *gin.Context) {
		id, _ := CurrentUserID(c)
		c.String(http.StatusOK, "%d", id)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	studentPair, err := jwtSvc.GenerateTokenPair(&models.User{ID: 5, Email: "s@x.edu", RoleType: models.RoleStudent})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+studentPair.AccessToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrorCodeForbidden, decodeError(t, w).Error.Code)

	adminPair, err := jwtSvc.GenerateTokenPair(&models.User{ID: 1, Email: "a@x.edu", RoleType: models.RoleAdmin})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminPair.AccessToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Body.String())
}

func TestJWTAuthAcceptsQueryToken(t *testing.T) {
	jwtSvc := newJWT()
	m := NewAuthMiddleware(jwtSvc)
	pair, err := jwtSvc.GenerateTokenPair(&models.User{ID: 2, Email: "o@x.edu", RoleType: models.RoleOSAS})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/ws", m.JWTAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+pair.AccessToken, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   dto.ErrorCode
	}{
		{"no slots", fmt.Errorf("decide: %w", workflow.ErrNoSlotsAvailable), http.StatusConflict, dto.ErrorCodeNoSlots},
		{"locked", workflow.ErrLocked, http.StatusConflict, dto.ErrorCodeReviewLocked},
		{"terminal", workflow.ErrTerminal, http.StatusConflict, dto.ErrorCodeFinalDecision},
		{"invalid transition", workflow.ErrInvalidTransition, http.StatusConflict, dto.ErrorCodeInvalidTransition},
		{"actor", workflow.ErrActorNotAllowed, http.StatusForbidden, dto.ErrorCodeForbidden},
		{"concurrent", apperrors.ErrConcurrentUpdate, http.StatusConflict, dto.ErrorCodeConflict},
		{"not found", apperrors.ErrApplicationNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{"validation", apperrors.NewValidationError("gpa", "GPA must be between 0.00 and 4.00"), http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

			HandleAPIError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Error.Code)
		})
	}
}

func TestHandleAPIErrorKeepsCustomMessage(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	HandleAPIError(c, apperrors.NewValidationError("deadline", "deadline must be in the future"))

	resp := decodeError(t, w)
	assert.Equal(t, "deadline must be in the future", resp.Error.Message)
	assert.Equal(t, "deadline", resp.Error.Field)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimit(NewMemoryLimiter(), ByIP("login"), 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRedisLimiterNilFailsOpen(t *testing.T) {
	l := NewRedisLimiter(nil)
	assert.True(t, l.Allow("k", 1, time.Second))
}

func TestBindErrorUsesJSONFieldNames(t *testing.T) {
	require.NoError(t, RegisterValidators())

	r := gin.New()
	r.POST("/decide", func(c *gin.Context) {
		var req dto.DecisionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			BindError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/decide", strings.NewReader(`{"decision":"maybe"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, dto.ErrorCodeValidationFailed, resp.Error.Code)
	assert.Equal(t, "decision", resp.Error.Field)
}
