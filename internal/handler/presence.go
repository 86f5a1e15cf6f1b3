package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type PresenceHandler struct {
	Presence PresenceReader
}

func (h *PresenceHandler) List(c *gin.Context) {
	users := h.Presence.OnlineUsers()
	if users == nil {
		users = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"online": users})
}

func (h *PresenceHandler) Get(c *gin.Context) {
	userID := c.Param("userId")
	c.JSON(http.StatusOK, gin.H{"userId": userID, "online": h.Presence.IsOnline(userID)})
}
