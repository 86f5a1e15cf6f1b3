package handler

import (
	"billboard-realtime/internal/hub"
	"billboard-realtime/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

func conversationView(conv model.Conversation) gin.H {
	return gin.H{
		"id":          conv.ID,
		"billboardId": conv.BillboardID,
		"subject":     conv.Subject,
		"createdAt":   conv.CreatedAt,
		"updatedAt":   conv.UpdatedAt,
		"participantIds": lo.Map(conv.Participants, func(p model.ConversationParticipant, _ int) string {
			return p.UserID
		}),
	}
}

func messageView(msg model.Message) gin.H {
	return gin.H{
		"id":             msg.ID,
		"conversationId": msg.ConversationID,
		"senderId":       msg.SenderID,
		"content":        msg.Content,
		"createdAt":      msg.CreatedAt,
		"reads": lo.Map(msg.Reads, func(r model.MessageRead, _ int) gin.H {
			return gin.H{"userId": r.UserID, "readAt": r.ReadAt}
		}),
	}
}

func notificationView(n model.Notification) gin.H {
	return gin.H{
		"id":             n.ID,
		"type":           n.Type,
		"title":          n.Title,
		"message":        n.Body,
		"link":           n.Link,
		"billboardId":    n.BillboardID,
		"conversationId": n.ConversationID,
		"read":           n.Read,
		"createdAt":      n.CreatedAt,
	}
}

func billboardView(b model.Billboard) gin.H {
	return gin.H{
		"id":        b.ID,
		"ownerId":   b.OwnerID,
		"title":     b.Title,
		"location":  b.Location,
		"status":    b.Status,
		"createdAt": b.CreatedAt,
		"updatedAt": b.UpdatedAt,
	}
}

func newMessageEvent(msg model.Message) hub.NewMessage {
	return hub.NewMessage{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
}

func notificationEvent(n model.Notification) hub.Notification {
	return hub.Notification{
		ID:             n.ID,
		Type:           string(n.Type),
		Title:          n.Title,
		Message:        n.Body,
		Link:           n.Link,
		BillboardID:    lo.FromPtr(n.BillboardID),
		ConversationID: lo.FromPtr(n.ConversationID),
		CreatedAt:      n.CreatedAt,
	}
}
