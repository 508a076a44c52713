package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-core-api/internal/middleware"
	"github.com/noah-isme/school-core-api/internal/models"
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

// requestContext builds the caller identity forwarded through the service
// layer, including the raw bearer token for directory calls.
func requestContext(c *gin.Context) (models.RequestContext, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.RequestContext{}, false
	}
	return models.RequestContext{
		TenantID: claims.TenantID,
		UserID:   claims.UserID,
		Role:     claims.Role,
		Token:    c.GetString(middleware.ContextTokenKey),
	}, true
}
