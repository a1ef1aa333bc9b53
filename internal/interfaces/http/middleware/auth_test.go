package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/debtdesk/backend/internal/infrastructure/auth"
	"github.com/debtdesk/backend/internal/infrastructure/config"
	"github.com/debtdesk/backend/internal/infrastructure/logger"
	"github.com/debtdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authRouter(t *testing.T) (*gin.Engine, *auth.JWTService) {
	t.Helper()
	svc := auth.NewJWTService(config.AuthConfig{
		Enabled:         true,
		Secret:          "middleware-secret-of-32-characters",
		Issuer:          "debtdesk",
		TokenExpiration: time.Minute,
	})
	r := gin.New()
	r.Use(RequestID(), BearerAuth(svc))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"operator": GetOperatorID(c),
			"from_ctx": logger.GetOperatorID(c.Request.Context()),
		})
	})
	return r, svc
}

func TestBearerAuth_AcceptsValidToken(t *testing.T) {
	r, svc := authRouter(t)
	token, _, err := svc.GenerateToken("operator-7", "Ana")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "operator-7", body["operator"])
	assert.Equal(t, "operator-7", body["from_ctx"])
}

func TestBearerAuth_Rejects(t *testing.T) {
	r, _ := authRouter(t)
	other := auth.NewJWTService(config.AuthConfig{
		Secret:          "a-different-secret-of-32-characters",
		Issuer:          "debtdesk",
		TokenExpiration: time.Minute,
	})
	forged, _, err := other.GenerateToken("operator-7", "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer "},
		{"malformed token", "Bearer abc.def"},
		{"foreign signature", "Bearer " + forged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, dto.ErrCodeUnauthorized, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
		})
	}
}
