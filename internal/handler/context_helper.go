package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/aditpras/civil-registry-api/internal/middleware"
	"github.com/aditpras/civil-registry-api/internal/models"
)

// claimsFromContext returns the authenticated user's claims, or nil on
// routes outside the JWT-protected group.
func claimsFromContext(c *gin.Context) *models.AccessClaims {
	if value, ok := c.Get(middleware.ContextUserKey); ok {
		if claims, isClaims := value.(*models.AccessClaims); isClaims {
			return claims
		}
	}
	return nil
}
