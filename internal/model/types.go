package model

import "time"

type BillboardStatus string

const (
	BillboardPending  BillboardStatus = "pending"
	BillboardApproved BillboardStatus = "approved"
	BillboardRejected BillboardStatus = "rejected"
	BillboardActive   BillboardStatus = "active"
	BillboardInactive BillboardStatus = "inactive"
)

func (s BillboardStatus) Valid() bool {
	switch s {
	case BillboardPending, BillboardApproved, BillboardRejected, BillboardActive, BillboardInactive:
		return true
	}
	return false
}

type NotificationType string

const (
	NotificationMessage         NotificationType = "message"
	NotificationBillboardStatus NotificationType = "billboard_status"
	NotificationInquiry         NotificationType = "inquiry"
	NotificationSystem          NotificationType = "system"
)

type Billboard struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	OwnerID   string `gorm:"type:varchar(64);index;not null"`
	Title     string `gorm:"not null"`
	Location  string
	Status    BillboardStatus `gorm:"type:varchar(16);not null;default:pending"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Conversation struct {
	ID           string  `gorm:"primaryKey;type:varchar(36)"`
	BillboardID  *string `gorm:"type:varchar(36);index"`
	Subject      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID"`
}

type ConversationParticipant struct {
	ConversationID string `gorm:"primaryKey;type:varchar(36)"`
	UserID         string `gorm:"primaryKey;type:varchar(64);index"`
	JoinedAt       time.Time
}

type Message struct {
	ID             string        `gorm:"primaryKey;type:varchar(36)"`
	ConversationID string        `gorm:"type:varchar(36);index;not null"`
	SenderID       string        `gorm:"type:varchar(64);not null"`
	Content        string        `gorm:"type:text;not null"`
	CreatedAt      time.Time     `gorm:"index"`
	Reads          []MessageRead `gorm:"foreignKey:MessageID"`
}

// MessageRead is one participant's read receipt for one message.
type MessageRead struct {
	MessageID string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"primaryKey;type:varchar(64)"`
	ReadAt    time.Time
}

type Notification struct {
	ID             string           `gorm:"primaryKey;type:varchar(36)"`
	UserID         string           `gorm:"type:varchar(64);index;not null"`
	Type           NotificationType `gorm:"type:varchar(32);not null"`
	Title          string           `gorm:"not null"`
	Body           string           `gorm:"type:text"`
	Link           string
	BillboardID    *string `gorm:"type:varchar(36)"`
	ConversationID *string `gorm:"type:varchar(36)"`
	Read           bool    `gorm:"not null;default:false"`
	CreatedAt      time.Time
}
