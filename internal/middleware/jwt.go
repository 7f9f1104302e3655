package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aditpras/civil-registry-api/internal/service"
	appErrors "github.com/aditpras/civil-registry-api/pkg/errors"
	"github.com/aditpras/civil-registry-api/pkg/response"
)

// ContextUserKey is the gin context key storing access-token claims.
const ContextUserKey = "currentUser"

// JWT rejects requests without a valid Bearer access token and stores
// the verified claims for downstream handlers.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or malformed authorization header"))
			return
		}

		claims, err := authService.ValidateAccessToken(token)
		if err != nil {
			abort(c, err)
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

func abort(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}
