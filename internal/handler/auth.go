package handler

import (
	"net/http"

	"billboard-realtime/internal/auth"
	"billboard-realtime/internal/middleware"

	"github.com/gin-gonic/gin"
)

// DevTokenHandler mints tokens for local development and integration
// testing. It is only mounted when dev tokens are enabled.
type DevTokenHandler struct {
	TokenConfig auth.TokenConfig
	Limiter     *middleware.RateLimiter
}

type devTokenBody struct {
	UserID string `json:"userId" binding:"required,max=64"`
	Role   string `json:"role"`
}

func (h *DevTokenHandler) Issue(c *gin.Context) {
	if h.Limiter != nil && !h.Limiter.Allow("ip:"+c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
		return
	}

	var body devTokenBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if body.Role == "" {
		body.Role = auth.RoleAdvertiser
	}
	if !auth.ValidRole(body.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	token, err := auth.CreateTokenWithRole(body.UserID, body.Role, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token creation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "userId": body.UserID, "role": body.Role})
}
