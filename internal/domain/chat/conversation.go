package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationMessage is one post-onboarding chat turn. A user message and
// the assistant reply share MessageID.
type ConversationMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_conversation_user_created,priority:1" json:"user_id"`
	MessageID uuid.UUID `gorm:"type:uuid;not null;index" json:"message_id"`
	Role      string    `gorm:"column:role;not null" json:"role"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	AgentType string    `gorm:"column:agent_type;not null;default:''" json:"agent_type,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index:idx_conversation_user_created,priority:2" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ConversationMessage) TableName() string { return "conversation_message" }

func (m *ConversationMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
