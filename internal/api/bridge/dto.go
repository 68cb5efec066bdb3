package bridge

import "time"

// Client→bridge message types.
const (
	ClientMsgUserMessage    = "user_message"
	ClientMsgAudioStart     = "client.audio.start"
	ClientMsgAudioChunk     = "client.audio.chunk"
	ClientMsgAudioStop      = "client.audio.stop"
	ClientMsgResponseCancel = "response.cancel"
)

// ClientMessage is the JSON text frame sent by the browser client. Raw
// binary frames are not part of the client→bridge protocol; audio arrives
// base64-encoded inside chunk messages.
type ClientMessage struct {
	Type           string `json:"type"`
	Text           string `json:"text,omitempty"`
	Scope          string `json:"scope,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	AssistantID    string `json:"assistant_id,omitempty"`
	Audio          string `json:"audio,omitempty"`
	ResponseID     string `json:"response_id,omitempty"`
}

// EventEnvelope is the bridge→client passthrough of upstream events.
type EventEnvelope struct {
	Type       string `json:"type"`
	ResponseID string `json:"response_id,omitempty"`
	Delta      string `json:"delta,omitempty"`
	Text       string `json:"text,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ToolLogMessage notifies the client about a tool call's lifecycle.
type ToolLogMessage struct {
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Args      string    `json:"args,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UICommandMessage instructs the client to perform a session-local action
// (end the call, mute the mic, adjust playback, ...).
type UICommandMessage struct {
	Type      string                 `json:"type"`
	Command   string                 `json:"command"`
	Args      map[string]interface{} `json:"args,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
