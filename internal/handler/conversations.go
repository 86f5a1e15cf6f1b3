package handler

import (
	"fmt"
	"net/http"
	"time"

	"billboard-realtime/internal/hub"
	"billboard-realtime/internal/model"
	"billboard-realtime/internal/store"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const notificationPreviewLen = 140

type ConversationHandler struct {
	Store      *store.Store
	Dispatcher Dispatcher
}

type createConversationBody struct {
	ParticipantIDs []string `json:"participantIds" binding:"required,min=1,dive,required"`
	BillboardID    *string  `json:"billboardId"`
	Subject        string   `json:"subject" binding:"max=200"`
}

func (h *ConversationHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var body createConversationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	conv, created, err := h.Store.GetOrCreateConversation(c.Request.Context(), userID, body.ParticipantIDs, body.BillboardID, body.Subject)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"conversation": conversationView(conv), "created": created})
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	convs, err := h.Store.ListConversations(c.Request.Context(), userID)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": lo.Map(convs, func(conv model.Conversation, _ int) gin.H {
		return conversationView(conv)
	})})
}

func (h *ConversationHandler) Messages(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var after store.MessageCursor
	if raw := c.Query("after"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid after cursor"})
			return
		}
		after = store.MessageCursor{CreatedAt: parsed, ID: c.Query("afterId")}
	}

	msgs, err := h.Store.ListMessages(c.Request.Context(), userID, c.Param("id"), after, queryLimit(c))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	resp := gin.H{"messages": lo.Map(msgs, func(m model.Message, _ int) gin.H {
		return messageView(m)
	})}
	if last, ok := lo.Last(msgs); ok {
		next := store.CursorAfter(last)
		resp["nextCursor"] = gin.H{"after": next.CreatedAt.Format(time.RFC3339Nano), "afterId": next.ID}
	}
	c.JSON(http.StatusOK, resp)
}

type sendMessageBody struct {
	Content string `json:"content" binding:"required,max=5000"`
}

// Send persists a message, pushes it to the conversation room and leaves a
// notification for every other participant.
func (h *ConversationHandler) Send(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var body sendMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()
	conversationID := c.Param("id")
	msg, err := h.Store.AppendMessage(ctx, conversationID, userID, body.Content)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	h.Dispatcher.DispatchToConversation(conversationID, newMessageEvent(msg), originConnection(c, h.Dispatcher, userID))

	participants, err := h.Store.ParticipantIDs(ctx, conversationID)
	if err != nil {
		log.WithError(err).WithFields(logTags).Warnf("No message notifications for %s", conversationID)
	}
	for _, recipient := range lo.Without(participants, userID) {
		n, err := h.Store.CreateNotification(ctx, model.Notification{
			UserID:         recipient,
			Type:           model.NotificationMessage,
			Title:          "New message",
			Body:           lo.Substring(msg.Content, 0, notificationPreviewLen),
			Link:           fmt.Sprintf("/messages/%s", conversationID),
			ConversationID: lo.ToPtr(conversationID),
		})
		if err != nil {
			log.WithError(err).WithFields(logTags).Warnf("Message notification for %s not stored", recipient)
			continue
		}
		h.Dispatcher.DispatchToUser(recipient, notificationEvent(n))
	}

	c.JSON(http.StatusCreated, gin.H{"message": messageView(msg)})
}

type MessageHandler struct {
	Store      *store.Store
	Dispatcher Dispatcher
}

// MarkRead stores a read receipt and tells the rest of the room.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	messageID := c.Param("id")
	conversationID, readAt, err := h.Store.MarkMessageRead(c.Request.Context(), messageID, userID)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	h.Dispatcher.DispatchToConversation(conversationID, hub.MessageRead{
		MessageID:      messageID,
		ConversationID: conversationID,
		ReadBy:         userID,
		ReadAt:         readAt,
	}, originConnection(c, h.Dispatcher, userID))
	c.JSON(http.StatusOK, gin.H{"success": true, "readAt": readAt})
}
