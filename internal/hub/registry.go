package hub

import (
	"sort"

	"github.com/apex/log"
	"github.com/samber/lo"
)

// Register records a new, unauthenticated connection.
func (h *Hub) Register(connID string) {
	if connID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.conns[connID]; exists {
		return
	}
	h.conns[connID] = &connection{id: connID, createdAt: h.now()}
	log.WithFields(h.logTags).Debugf("Registered connection %s", connID)
}

// Authenticate attaches userID to the connection. Calling it again with a
// different user replaces the association; memberships granted to the
// previous identity are dropped.
func (h *Hub) Authenticate(connID, userID string) {
	if connID == "" || userID == "" {
		return
	}

	var pending []Event
	h.mu.Lock()
	c, ok := h.conns[connID]
	if !ok || c.userID == userID {
		h.mu.Unlock()
		return
	}
	if c.userID != "" {
		previous := c.userID
		h.dropAllMembershipsLocked(connID)
		if h.detachPresenceLocked(previous, connID) {
			pending = append(pending, UserOffline{UserID: previous})
		}
	}
	c.userID = userID
	if h.attachPresenceLocked(userID, connID) {
		pending = append(pending, UserOnline{UserID: userID})
	}
	log.WithFields(h.logTags).Debugf("Connection %s authenticated as %s", connID, userID)
	h.broadcastAndUnlock(pending, connID, h.mu.Unlock)
}

// Unregister forgets the connection, its presence contribution, and every
// room it joined.
func (h *Hub) Unregister(connID string) {
	var pending []Event
	h.mu.Lock()
	c, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, connID)
	h.dropAllMembershipsLocked(connID)
	if c.userID != "" && h.detachPresenceLocked(c.userID, connID) {
		pending = append(pending, UserOffline{UserID: c.userID})
	}
	log.WithFields(h.logTags).Debugf("Unregistered connection %s", connID)
	h.broadcastAndUnlock(pending, connID, h.mu.Unlock)
}

// ResolveUser returns the user a connection is authenticated as.
func (h *Hub) ResolveUser(connID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.conns[connID]
	if !ok || c.userID == "" {
		return "", false
	}
	return c.userID, true
}

// ConnectionsFor lists the connections authenticated as userID.
func (h *Hub) ConnectionsFor(userID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.connectionsForLocked(userID)
}

func (h *Hub) connectionsForLocked(userID string) []string {
	ids := lo.Keys(h.presence[userID])
	sort.Strings(ids)
	return ids
}

// Connections lists every registered connection, authenticated or not.
func (h *Hub) Connections() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := lo.Keys(h.conns)
	sort.Strings(ids)
	return ids
}
