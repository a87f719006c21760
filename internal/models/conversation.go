package models

import "time"

// Conversation mirrors the externally-owned conversation store.
//
// The dashboard aggregator reads these rows by (assistant id set, account
// identity set) and never writes them.
type Conversation struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	AssistantID uint   `gorm:"index;not null" json:"assistant_id"`
	// AccountIdentity is the synthetic identity of the session-provider
	// account that owns the conversation.
	AccountIdentity string    `gorm:"size:255;index;not null" json:"account_identity"`
	Title           string    `gorm:"size:255" json:"title"`
	MessageCount    uint      `gorm:"not null;default:0" json:"message_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ConversationMessage is a single turn inside a conversation transcript.
type ConversationMessage struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"index;not null" json:"conversation_id"`
	Role           string    `gorm:"size:32;not null" json:"role"`
	Content        string    `gorm:"type:text" json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Message roles used by the conversation store.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)
