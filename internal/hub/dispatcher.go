package hub

import (
	"encoding/json"
	"sort"

	"github.com/apex/log"
	"github.com/samber/lo"
)

const (
	TargetUser         = "user"
	TargetConversation = "conversation"
)

// Envelope carries a dispatch across instances.
type Envelope struct {
	Origin  string          `json:"origin"`
	Target  string          `json:"target"`
	Key     string          `json:"key"`
	Exclude string          `json:"exclude,omitempty"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// DispatchToUser delivers event to every live connection of userID. An
// offline user simply misses it.
func (h *Hub) DispatchToUser(userID string, event Event) {
	if userID == "" || event == nil {
		return
	}
	h.deliver(h.MembersOf(UserChannel(userID)), "", event)
	h.publish(TargetUser, userID, "", event)
}

// DispatchToConversation delivers event to every connection joined to the
// conversation room except excludeConnID.
func (h *Hub) DispatchToConversation(conversationID string, event Event, excludeConnID string) {
	if conversationID == "" || event == nil {
		return
	}
	h.deliver(h.MembersOf(ConversationChannel(conversationID)), excludeConnID, event)
	h.publish(TargetConversation, conversationID, excludeConnID, event)
}

// BroadcastExcept delivers event to every registered connection except
// excludeConnID. It is local to this instance.
func (h *Hub) BroadcastExcept(event Event, excludeConnID string) {
	if event == nil {
		return
	}
	h.mu.RLock()
	h.broadcastAndUnlock([]Event{event}, excludeConnID, h.mu.RUnlock)
}

// broadcastAndUnlock is entered with h.mu held and releases it through
// unlock. Recipients are resolved under h.mu; delivery runs under presenceMu,
// which is acquired before h.mu is released so broadcasts leave in the order
// their state changes were applied.
func (h *Hub) broadcastAndUnlock(events []Event, excludeConnID string, unlock func()) {
	if len(events) == 0 {
		unlock()
		return
	}
	recipients := lo.Without(lo.Keys(h.conns), excludeConnID)
	sort.Strings(recipients)

	h.presenceMu.Lock()
	unlock()
	defer h.presenceMu.Unlock()

	for _, event := range events {
		for _, id := range recipients {
			h.Send(id, event)
		}
	}
}

// Send pushes event to a single connection. A vanished transport or a failed
// write drops the event.
func (h *Hub) Send(connID string, event Event) {
	if h.transports == nil || event == nil {
		return
	}
	t, ok := h.transports.Transport(connID)
	if !ok {
		log.WithFields(h.logTags).Debugf("Dropped %s for gone connection %s", event.EventName(), connID)
		return
	}
	if err := t.Emit(event); err != nil {
		log.WithError(err).WithFields(h.logTags).Debugf("Dropped %s for connection %s", event.EventName(), connID)
	}
}

func (h *Hub) deliver(connIDs []string, excludeConnID string, event Event) {
	for _, id := range lo.Without(connIDs, excludeConnID) {
		h.Send(id, event)
	}
}

func (h *Hub) publish(target, key, exclude string, event Event) {
	if h.relay == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).WithFields(h.logTags).Errorf("Unable to encode %s for relay", event.EventName())
		return
	}
	h.relay.Publish(Envelope{
		Origin:  h.instanceID,
		Target:  target,
		Key:     key,
		Exclude: exclude,
		Name:    event.EventName(),
		Payload: payload,
	})
}

// DeliverRemote hands a relayed dispatch to local connections. Envelopes
// published by this instance are ignored.
func (h *Hub) DeliverRemote(env Envelope) {
	if env.Origin == h.instanceID {
		return
	}
	event, err := DecodeEvent(env.Name, env.Payload)
	if err != nil {
		log.WithError(err).WithFields(h.logTags).Warnf("Discarding relayed envelope from %s", env.Origin)
		return
	}
	switch env.Target {
	case TargetUser:
		h.deliver(h.MembersOf(UserChannel(env.Key)), env.Exclude, event)
	case TargetConversation:
		h.deliver(h.MembersOf(ConversationChannel(env.Key)), env.Exclude, event)
	default:
		log.WithFields(h.logTags).Warnf("Unknown relay target %q", env.Target)
	}
}
