package models

import (
	"time"

	"github.com/google/uuid"
)

type ChatStatus string

const (
	ChatOpen   ChatStatus = "open"
	ChatClosed ChatStatus = "closed"
)

type ChatSession struct {
	ID            uuid.UUID  `json:"id"`
	UserID        string     `json:"userId"`
	ProductID     *uuid.UUID `json:"productId,omitempty"`
	Title         string     `json:"title,omitempty"`
	Status        ChatStatus `json:"status"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type MessageRole string

const (
	MessageUser      MessageRole = "user"
	MessageAssistant MessageRole = "assistant"
	MessageAdmin     MessageRole = "admin"
)

func (r MessageRole) Valid() bool {
	return r == MessageUser || r == MessageAssistant || r == MessageAdmin
}

type Message struct {
	ID        uuid.UUID   `json:"id"`
	SessionID uuid.UUID   `json:"sessionId"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
}
