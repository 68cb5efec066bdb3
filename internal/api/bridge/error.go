package bridge

import "VoiceBridge/pkg/response"

var (
	ErrConversationNotFound = response.NewError(404, "conversation not found")
	ErrAssistantNotFound    = response.NewError(404, "assistant not found")
	ErrToolCallNotFound     = response.NewError(404, "tool call not found")
	ErrToolCallCompleted    = response.NewError(409, "tool call already completed")
	ErrUpstreamUnavailable  = response.NewError(502, "speech service unavailable")
)
