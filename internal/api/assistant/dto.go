package assistant

import "VoiceBridge/internal/entity"

type AssistantResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Voice        string  `json:"voice"`
	PlaybackRate float64 `json:"playback_rate"`
	IsActive     bool    `json:"is_active"`
}

type CatalogResponse struct {
	AssistantID string                  `json:"assistant_id"`
	Tools       []entity.ToolDefinition `json:"tools"`
}

type InstructionsResponse struct {
	AssistantID  string `json:"assistant_id"`
	Instructions string `json:"instructions"`
}

type ReloadResponse struct {
	Reloaded  bool `json:"reloaded"`
	RuleCount int  `json:"rule_count,omitempty"`
}
