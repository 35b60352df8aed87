// Package domain defines the core domain models for the assistant gateway.
package domain

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// SuggestedAction is an action the assistant proposes alongside a reply.
type SuggestedAction struct {
	Label    string          `json:"label"`
	ActionID string          `json:"action_id"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// MessageMetadata carries optional assistant-reply annotations.
type MessageMetadata struct {
	ConfidenceScore  int               `json:"confidence_score,omitempty"` // 0..100
	Sources          []string          `json:"sources,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`
}

// Message is a single turn in a conversation. Immutable once created;
// ordered by CreatedAt.
type Message struct {
	MessageID string           `json:"message_id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"created_at"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// InteractionLog is the write-once record of one completed exchange.
type InteractionLog struct {
	LogID      string          `json:"log_id"`
	UserID     string          `json:"user_id"`
	Prompt     string          `json:"prompt"`
	Response   string          `json:"response"`
	Page       string          `json:"page"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	TokensUsed int             `json:"tokens_used"`
	Model      string          `json:"model"`
	CreatedAt  time.Time       `json:"created_at"`
}
