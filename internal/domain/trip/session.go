package trip

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DefaultSessionTitle = "New Chat"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession is the durable header of a requirements conversation.
// Requirements holds the serialized conversation state and is the only input to a rebuild.
type ChatSession struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Title        string         `gorm:"column:title;not null;default:'New Chat'" json:"title"`
	IsShared     bool           `gorm:"column:is_shared;not null;default:false;index" json:"is_shared"`
	Requirements datatypes.JSON `gorm:"type:jsonb;column:requirements_json" json:"requirements,omitempty"`

	ItineraryID *uuid.UUID `gorm:"type:uuid;column:itinerary_id;index" json:"itinerary_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ChatSession) TableName() string { return "chat_session" }

func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ChatMessage rows are append-only. Seq breaks ties between messages written in the same instant.
type ChatMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_message_session_order,priority:1" json:"session_id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Role      string    `gorm:"column:role;not null" json:"role"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	Seq       int64     `gorm:"column:seq;not null;index:idx_chat_message_session_order,priority:3" json:"seq"`
	CreatedAt time.Time `gorm:"not null;index:idx_chat_message_session_order,priority:2" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_message" }

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
