package socketio

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"billboard-realtime/internal/auth"
	"billboard-realtime/internal/hub"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Inbound client actions.
const (
	actionAuthenticate    = "authenticate"
	actionJoinRoom        = "joinRoom"
	actionLeaveRoom       = "leaveRoom"
	actionTyping          = "typing"
	actionMarkMessageRead = "markMessageRead"
	actionNewMessage      = "newMessage"
	actionPing            = "ping"
)

func gjsonString(raw []byte, path string) string {
	if len(raw) == 0 {
		return ""
	}
	return strings.TrimSpace(gjson.GetBytes(raw, path).String())
}

// stringOrField reads either a bare JSON string or the named object field.
func stringOrField(raw []byte, field string) string {
	if len(raw) == 0 {
		return ""
	}
	r := gjson.ParseBytes(raw)
	if r.Type == gjson.String {
		return strings.TrimSpace(r.String())
	}
	return strings.TrimSpace(r.Get(field).String())
}

func (s *Server) handleEvent(c *conn, pkt eventPacket) {
	switch pkt.Name {
	case actionPing:
		s.ack(c, pkt)
		return
	case actionAuthenticate:
		s.handleAuthenticate(c, pkt)
		return
	}

	// Everything below needs an identity. Unauthenticated actions are
	// ignored.
	userID, ok := s.hub.ResolveUser(c.id)
	if !ok {
		s.ack(c, pkt)
		return
	}

	switch pkt.Name {
	case actionJoinRoom:
		ctx, cancel := context.WithTimeout(context.Background(), oracleTimeout)
		s.hub.JoinConversation(ctx, c.id, stringOrField(pkt.arg(0), "conversationId"))
		cancel()

	case actionLeaveRoom:
		s.hub.LeaveConversation(c.id, stringOrField(pkt.arg(0), "conversationId"))

	case actionTyping:
		conversationID := gjsonString(pkt.arg(0), "conversationId")
		if conversationID == "" || !s.hub.InConversation(c.id, conversationID) {
			break
		}
		s.hub.DispatchToConversation(conversationID, hub.Typing{
			ConversationID: conversationID,
			UserID:         userID,
			IsTyping:       gjson.GetBytes(pkt.arg(0), "isTyping").Bool(),
		}, c.id)

	case actionMarkMessageRead:
		s.handleMarkRead(c, userID, pkt)

	case actionNewMessage:
		s.handleClientMessage(c, userID, pkt)

	default:
		log.WithFields(s.logTags).Debugf("Ignoring unknown action %q from %s", pkt.Name, c.id)
	}
	s.ack(c, pkt)
}

func (s *Server) handleAuthenticate(c *conn, pkt eventPacket) {
	userID, err := s.resolveIdentity(pkt.arg(0))
	if err != nil {
		log.WithError(err).WithFields(s.logTags).Debugf("Rejected authenticate on %s", c.id)
		s.ack(c, pkt, map[string]any{"ok": false})
		return
	}
	s.hub.Authenticate(c.id, userID)
	s.ack(c, pkt, map[string]any{"ok": true, "userId": userID})
}

var (
	errMissingIdentity  = errors.New("missing identity")
	errIdentityMismatch = errors.New("userId does not match token subject")
	errUntrustedClient  = errors.New("token required")
)

// resolveIdentity accepts "<userId>", {userId}, {token} or {userId, token}.
func (s *Server) resolveIdentity(raw []byte) (string, error) {
	userID := stringOrField(raw, "userId")
	token := ""
	if r := gjson.ParseBytes(raw); r.IsObject() {
		token = strings.TrimSpace(r.Get("token").String())
	}

	if token != "" {
		claims, err := auth.VerifyToken(token, s.tokenConfig)
		if err != nil {
			return "", err
		}
		if userID != "" && userID != claims.UserID {
			return "", errIdentityMismatch
		}
		return claims.UserID, nil
	}
	if userID == "" {
		return "", errMissingIdentity
	}
	if !s.opts.TrustClientIdentity {
		return "", errUntrustedClient
	}
	return userID, nil
}

func (s *Server) handleMarkRead(c *conn, userID string, pkt eventPacket) {
	messageID := stringOrField(pkt.arg(0), "messageId")
	if messageID == "" || s.receipts == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), oracleTimeout)
	defer cancel()
	conversationID, readAt, err := s.receipts.MarkMessageRead(ctx, messageID, userID)
	if err != nil {
		log.WithError(err).WithFields(s.logTags).Debugf("Read receipt for %s by %s not stored", messageID, userID)
		return
	}
	s.hub.DispatchToConversation(conversationID, hub.MessageRead{
		MessageID:      messageID,
		ConversationID: conversationID,
		ReadBy:         userID,
		ReadAt:         readAt,
	}, c.id)
}

// handleClientMessage relays a client-originated message to its room. It is
// not persisted.
func (s *Server) handleClientMessage(c *conn, userID string, pkt eventPacket) {
	if !s.opts.AllowClientBroadcast {
		return
	}
	var msg hub.NewMessage
	if err := json.Unmarshal(pkt.arg(0), &msg); err != nil {
		return
	}
	if msg.ConversationID == "" || !s.hub.InConversation(c.id, msg.ConversationID) {
		return
	}
	msg.SenderID = userID
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	s.hub.DispatchToConversation(msg.ConversationID, msg, c.id)
}
