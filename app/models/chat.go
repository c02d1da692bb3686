package models

import "time"

// ChatRole is the speaker of a chat message.
type ChatRole string

const (
	ChatUser      ChatRole = "user"
	ChatAssistant ChatRole = "assistant"
)

func (r ChatRole) Valid() bool { return r == ChatUser || r == ChatAssistant }

// ChatMessage is one entry of the append-only chat log.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"userId"`
	Role      ChatRole  `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}
