package realtime

import "encoding/json"

// Server event type discriminants. The upstream envelope is decoded once by
// type and dispatched; unknown types are passed through untouched.
const (
	EventSessionCreated    = "session.created"
	EventSessionUpdated    = "session.updated"
	EventResponseCreated   = "response.created"
	EventTextDelta         = "response.text.delta"
	EventTextDone          = "response.text.done"
	EventAudioDelta        = "response.audio.delta"
	EventAudioDone         = "response.audio.done"
	EventFunctionCallDelta = "response.function_call_arguments.delta"
	EventFunctionCallDone  = "response.function_call_arguments.done"
	EventResponseDone      = "response.done"
	EventInputCommitted    = "input_audio_buffer.committed"
	EventError             = "error"
)

// Known-benign upstream error codes that are suppressed rather than
// forwarded to the client.
const ErrCodeEmptyCommit = "input_audio_buffer_commit_empty"

type ServerEvent struct {
	Type       string          `json:"type"`
	EventID    string          `json:"event_id,omitempty"`
	ResponseID string          `json:"response_id,omitempty"`
	ItemID     string          `json:"item_id,omitempty"`
	CallID     string          `json:"call_id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Delta      string          `json:"delta,omitempty"`
	Text       string          `json:"text,omitempty"`
	Arguments  string          `json:"arguments,omitempty"`
	Response   *ResponseInfo   `json:"response,omitempty"`
	Error      *ErrorInfo      `json:"error,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

type ResponseInfo struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
}

type ErrorInfo struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// TurnDetection is the upstream VAD configuration.
type TurnDetection struct {
	Type              string  `json:"type,omitempty"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
}

type SessionConfig struct {
	Modalities        []string       `json:"modalities,omitempty"`
	Instructions      string         `json:"instructions,omitempty"`
	Voice             string         `json:"voice,omitempty"`
	InputAudioFormat  string         `json:"input_audio_format,omitempty"`
	OutputAudioFormat string         `json:"output_audio_format,omitempty"`
	TurnDetection     *TurnDetection `json:"turn_detection,omitempty"`
	Tools             []ToolSchema   `json:"tools,omitempty"`
	ToolChoice        string         `json:"tool_choice,omitempty"`
}

type ToolSchema struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type conversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
	Content []contentPart `json:"content,omitempty"`
}

type clientEvent struct {
	Type       string            `json:"type"`
	Session    *SessionConfig    `json:"session,omitempty"`
	Audio      string            `json:"audio,omitempty"`
	Item       *conversationItem `json:"item,omitempty"`
	ResponseID string            `json:"response_id,omitempty"`
}
