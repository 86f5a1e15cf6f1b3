package hub

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is one of the outbound real-time events. The set is closed: only the
// types declared in this file implement it.
type Event interface {
	EventName() string
	isEvent()
}

const (
	EventNewMessage            = "newMessage"
	EventMessageRead           = "messageRead"
	EventTyping                = "typing"
	EventBillboardStatusUpdate = "billboardStatusUpdate"
	EventNotification          = "notification"
	EventUserOnline            = "userOnline"
	EventUserOffline           = "userOffline"
)

type NewMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

type MessageRead struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	ReadBy         string    `json:"readBy"`
	ReadAt         time.Time `json:"readAt"`
}

type Typing struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
}

type BillboardStatusUpdate struct {
	BillboardID    string    `json:"billboardId"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Notification mirrors a persisted notification row. BillboardID and
// ConversationID are set for notifications about a listing or a chat.
type Notification struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Link           string    `json:"link,omitempty"`
	BillboardID    string    `json:"billboardId,omitempty"`
	ConversationID string    `json:"conversationId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type UserOnline struct {
	UserID string `json:"userId"`
}

type UserOffline struct {
	UserID string `json:"userId"`
}

func (NewMessage) EventName() string            { return EventNewMessage }
func (MessageRead) EventName() string           { return EventMessageRead }
func (Typing) EventName() string                { return EventTyping }
func (BillboardStatusUpdate) EventName() string { return EventBillboardStatusUpdate }
func (Notification) EventName() string          { return EventNotification }
func (UserOnline) EventName() string            { return EventUserOnline }
func (UserOffline) EventName() string           { return EventUserOffline }

func (NewMessage) isEvent()            {}
func (MessageRead) isEvent()           {}
func (Typing) isEvent()                {}
func (BillboardStatusUpdate) isEvent() {}
func (Notification) isEvent()          {}
func (UserOnline) isEvent()            {}
func (UserOffline) isEvent()           {}

// DecodeEvent rebuilds a typed event from its wire name and JSON payload.
func DecodeEvent(name string, payload []byte) (Event, error) {
	var (
		evt Event
		err error
	)
	switch name {
	case EventNewMessage:
		var e NewMessage
		err = json.Unmarshal(payload, &e)
		evt = e
	case EventMessageRead:
		var e MessageRead
		err = json.Unmarshal(payload, &e)
		evt = e
	case EventTyping:
		var e Typing
		err = json.Unmarshal(payload, &e)
		evt = e
	case EventBillboardStatusUpdate:
		var e BillboardStatusUpdate
		err = json.Unmarshal(payload, &e)
		evt = e
	case EventNotification:
		var e Notification
		err = json.Unmarshal(payload, &e)
		evt = e
	case EventUserOnline:
		var e UserOnline
		err = json.Unmarshal(payload, &e)
		evt = e
	case EventUserOffline:
		var e UserOffline
		err = json.Unmarshal(payload, &e)
		evt = e
	default:
		return nil, fmt.Errorf("unknown event %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return evt, nil
}
