package handler

import (
	"net/http"

	"billboard-realtime/internal/model"
	"billboard-realtime/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type NotificationHandler struct {
	Store *store.Store
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	items, err := h.Store.ListNotifications(ctx, userID, c.Query("unread") == "true", queryLimit(c))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	unread, err := h.Store.UnreadNotificationCount(ctx, userID)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": lo.Map(items, func(n model.Notification, _ int) gin.H { return notificationView(n) }),
		"unreadCount":   unread,
	})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.Store.MarkNotificationRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
