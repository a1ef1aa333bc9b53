package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/debtdesk/backend/internal/infrastructure/auth"
	"github.com/debtdesk/backend/internal/infrastructure/logger"
	"github.com/debtdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// OperatorIDKey is the gin context key holding the authenticated operator
	OperatorIDKey = "operator_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator verifies a bearer token and returns its claims
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// BearerAuth rejects requests without a valid operator token with 401.
// On success the operator id is stored in the gin context and in the request logger.
func BearerAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			abortUnauthorized(c, auth.ErrInvalidToken, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(header, BearerPrefix) {
			abortUnauthorized(c, auth.ErrInvalidToken, "Invalid authorization header format")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		if token == "" {
			abortUnauthorized(c, auth.ErrInvalidToken, "Missing token")
			return
		}

		claims, err := validator.ValidateAccessToken(token)
		if err != nil {
			abortUnauthorized(c, err, "Token validation failed")
			return
		}

		c.Set(OperatorIDKey, claims.Subject)
		ctx, _ := logger.WithOperatorID(c.Request.Context(), logger.FromContext(c.Request.Context()), claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetOperatorID returns the operator authenticated by BearerAuth, empty if none
func GetOperatorID(c *gin.Context) string {
	return c.GetString(OperatorIDKey)
}

func abortUnauthorized(c *gin.Context, err error, message string) {
	logger.GetGinLogger(c).Warn("Authentication failed",
		zap.Error(err),
		zap.String("reason", message),
	)

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		message = "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		message = "Token is not yet valid"
	}
	c.Header("WWW-Authenticate", `Bearer realm="debtdesk"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
		dto.ErrCodeUnauthorized,
		message,
		GetRequestID(c),
	))
}
