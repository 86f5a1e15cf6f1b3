package hub

import (
	"sort"

	"github.com/samber/lo"
)

// attachPresenceLocked reports whether userID just came online.
func (h *Hub) attachPresenceLocked(userID, connID string) bool {
	wasOnline := len(h.presence[userID]) > 0
	addToSet(h.presence, userID, connID)
	return !wasOnline
}

// detachPresenceLocked reports whether userID just went offline. The
// presence entry is deleted together with its last connection.
func (h *Hub) detachPresenceLocked(userID, connID string) bool {
	if _, ok := h.presence[userID][connID]; !ok {
		return false
	}
	return removeFromSet(h.presence, userID, connID)
}

func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.presence[userID]) > 0
}

func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := lo.Keys(h.presence)
	sort.Strings(users)
	return users
}
