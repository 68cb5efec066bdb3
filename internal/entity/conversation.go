package entity

import "time"

type Conversation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	AssistantID  string    `json:"assistant_id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

type ConversationMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Sequence       int       `json:"sequence"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	ToolCallID     string    `json:"tool_call_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

type ToolCallStatus string

const (
	ToolCallStarted   ToolCallStatus = "started"
	ToolCallSucceeded ToolCallStatus = "succeeded"
	ToolCallFailed    ToolCallStatus = "failed"
)

type ToolCallRecord struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Name           string         `json:"name"`
	Status         ToolCallStatus `json:"status"`
	InputJSON      string         `json:"input_json"`
	ResultJSON     string         `json:"result_json,omitempty"`
	Error          string         `json:"error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}
