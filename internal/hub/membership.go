package hub

import (
	"context"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/samber/lo"
)

const (
	userChannelPrefix         = "user:"
	conversationChannelPrefix = "conversation:"
)

func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

func ConversationChannel(conversationID string) string {
	return conversationChannelPrefix + conversationID
}

// JoinConversation adds the connection to a conversation room once the
// oracle confirms its user is a participant. Unauthenticated connections,
// non-participants and oracle failures are all silently ignored.
func (h *Hub) JoinConversation(ctx context.Context, connID, conversationID string) {
	if conversationID == "" {
		return
	}
	userID, ok := h.ResolveUser(connID)
	if !ok {
		return
	}
	if h.oracle == nil {
		return
	}

	allowed, err := h.oracle.IsParticipant(ctx, userID, conversationID)
	if err != nil {
		log.WithError(err).WithFields(h.logTags).Debugf(
			"Membership lookup failed for %s in conversation %s", userID, conversationID,
		)
		return
	}
	if !allowed {
		log.WithFields(h.logTags).Debugf(
			"User %s is not a participant of conversation %s", userID, conversationID,
		)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// The connection may have gone away, or switched identity, while the
	// oracle was consulted.
	c, ok := h.conns[connID]
	if !ok || c.userID != userID {
		return
	}
	addToSet(h.rooms, conversationID, connID)
	addToSet(h.joined, connID, conversationID)
}

func (h *Hub) LeaveConversation(connID, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	removeFromSet(h.rooms, conversationID, connID)
	removeFromSet(h.joined, connID, conversationID)
}

func (h *Hub) DropAllMemberships(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropAllMembershipsLocked(connID)
}

func (h *Hub) dropAllMembershipsLocked(connID string) {
	for conversationID := range h.joined[connID] {
		removeFromSet(h.rooms, conversationID, connID)
	}
	delete(h.joined, connID)
}

// InConversation reports whether the connection has joined the room.
func (h *Hub) InConversation(connID, conversationID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[conversationID][connID]
	return ok
}

// MembersOf resolves a channel id to the connections currently in it. A
// user channel always equals ConnectionsFor of that user.
func (h *Hub) MembersOf(channel string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.membersOfLocked(channel)
}

func (h *Hub) membersOfLocked(channel string) []string {
	switch {
	case strings.HasPrefix(channel, userChannelPrefix):
		return h.connectionsForLocked(strings.TrimPrefix(channel, userChannelPrefix))
	case strings.HasPrefix(channel, conversationChannelPrefix):
		ids := lo.Keys(h.rooms[strings.TrimPrefix(channel, conversationChannelPrefix)])
		sort.Strings(ids)
		return ids
	default:
		return nil
	}
}
