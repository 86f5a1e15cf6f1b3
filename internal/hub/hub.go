// Package hub delivers persisted domain events to live client connections.
//
// A Hub tracks which connections belong to which user, which conversation
// rooms each connection has joined, and whether a user is online. Delivery is
// best effort: a connection that is not live misses the event and picks up
// the persisted row on its next fetch.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// MembershipOracle answers whether a user participates in a conversation.
// It is consulted only when a connection asks to join a conversation room.
type MembershipOracle interface {
	IsParticipant(ctx context.Context, userID, conversationID string) (bool, error)
}

// Transport pushes one event to one live client session.
type Transport interface {
	Emit(event Event) error
}

// TransportResolver maps a connection id to its live transport handle.
type TransportResolver interface {
	Transport(connID string) (Transport, bool)
}

// Relay forwards dispatches to other instances sharing the same clients.
type Relay interface {
	Publish(env Envelope)
}

type Deps struct {
	Oracle     MembershipOracle
	Transports TransportResolver
	Relay      Relay
	InstanceID string
	Now        func() time.Time
}

type connection struct {
	id        string
	userID    string
	createdAt time.Time
}

type Hub struct {
	oracle     MembershipOracle
	transports TransportResolver
	relay      Relay
	instanceID string
	now        func() time.Time
	logTags    log.Fields

	mu sync.RWMutex
	// connID -> record
	conns map[string]*connection
	// userID -> connIDs
	presence map[string]map[string]struct{}
	// conversationID -> connIDs
	rooms map[string]map[string]struct{}
	// connID -> conversationIDs
	joined map[string]map[string]struct{}

	// presenceMu serializes broadcasts; it is taken before mu is released.
	presenceMu sync.Mutex
}

func New(deps Deps) *Hub {
	instanceID := deps.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Hub{
		oracle:     deps.Oracle,
		transports: deps.Transports,
		relay:      deps.Relay,
		instanceID: instanceID,
		now:        now,
		logTags: log.Fields{
			"module": "hub", "component": "dispatcher", "instance": instanceID,
		},
		conns:    make(map[string]*connection),
		presence: make(map[string]map[string]struct{}),
		rooms:    make(map[string]map[string]struct{}),
		joined:   make(map[string]map[string]struct{}),
	}
}

// InstanceID identifies this hub on the relay.
func (h *Hub) InstanceID() string {
	return h.instanceID
}

func addToSet(sets map[string]map[string]struct{}, key, member string) {
	set, ok := sets[key]
	if !ok {
		set = make(map[string]struct{})
		sets[key] = set
	}
	set[member] = struct{}{}
}

// removeFromSet reports whether the set for key became empty and was deleted.
func removeFromSet(sets map[string]map[string]struct{}, key, member string) bool {
	set, ok := sets[key]
	if !ok {
		return false
	}
	delete(set, member)
	if len(set) == 0 {
		delete(sets, key)
		return true
	}
	return false
}
