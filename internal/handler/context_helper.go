package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/lemore-app/lemore-api/internal/middleware"
	"github.com/lemore-app/lemore-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// currentUserID returns the authenticated user's id or empty when the
// route was somehow reached without the JWT middleware.
func currentUserID(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	return claims.UserID
}
