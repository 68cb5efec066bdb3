package assistant

import "VoiceBridge/pkg/response"

var (
	ErrAssistantNotFound = response.NewError(404, "assistant not found")
	ErrNoActiveAssistant = response.NewError(404, "no active assistant configured")
	ErrToolNotFound      = response.NewError(404, "tool definition not found")
)
