package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/use-agent/gmapreviews/models"
)

// IdentityKey is the gin context key holding the authenticated API key.
const IdentityKey = "api_key"

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ReviewsResponse{
		Success: false,
		Reviews: []models.Review{},
		Error:   &models.ErrorDetail{Code: code, Message: message},
	})
}
