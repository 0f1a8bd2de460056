package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-center-api/internal/middleware"
	"github.com/noah-isme/training-center-api/internal/models"
	"github.com/noah-isme/training-center-api/pkg/logger"
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

// actorFromContext returns the acting user id and exposes it to the access log.
func actorFromContext(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		return "", false
	}
	c.Set(logger.ActorKey, claims.UserID)
	return claims.UserID, true
}
