package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatsReader exposes the live counters of the local hub.
type StatsReader interface {
	InstanceID() string
	Connections() []string
	OnlineUsers() []string
}

type VersionHandler struct {
	Version string
	Stats   StatsReader
}

func (h *VersionHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":     h.Version,
		"instance":    h.Stats.InstanceID(),
		"connections": len(h.Stats.Connections()),
		"onlineUsers": len(h.Stats.OnlineUsers()),
	})
}
