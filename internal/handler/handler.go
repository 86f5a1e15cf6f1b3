package handler

import (
	"errors"
	"net/http"
	"strconv"

	"billboard-realtime/internal/hub"
	"billboard-realtime/internal/middleware"
	"billboard-realtime/internal/store"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// ConnectionIDHeader names the socket connection that originated a REST
// write, so the resulting dispatch can skip it.
const ConnectionIDHeader = "X-Connection-ID"

// Dispatcher is the delivery side of the hub that REST writes use after the
// row is persisted.
type Dispatcher interface {
	DispatchToUser(userID string, event hub.Event)
	DispatchToConversation(conversationID string, event hub.Event, excludeConnID string)
	ResolveUser(connID string) (string, bool)
}

type PresenceReader interface {
	IsOnline(userID string) bool
	OnlineUsers() []string
}

var logTags = log.Fields{"module": "handler", "component": "rest"}

func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
	}
	return userID, ok
}

// originConnection returns the X-Connection-ID header when it names a live
// connection of userID, and "" otherwise.
func originConnection(c *gin.Context, d Dispatcher, userID string) string {
	connID := c.GetHeader(ConnectionIDHeader)
	if connID == "" {
		return ""
	}
	if owner, ok := d.ResolveUser(connID); !ok || owner != userID {
		return ""
	}
	return connID
}

func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, store.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.WithError(err).WithFields(logTags).Errorf("%s %s failed", c.Request.Method, c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return limit
}
