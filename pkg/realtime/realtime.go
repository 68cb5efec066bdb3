package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// IConn is one live upstream speech-model connection. Writes are serialized
// internally; ReadEvent must be called from a single goroutine.
type IConn interface {
	ReadEvent() (*ServerEvent, error)
	UpdateSession(cfg SessionConfig) error
	AppendAudio(base64PCM string) error
	CommitAudio() error
	ClearAudio() error
	CreateUserMessage(text string) error
	CreateFunctionOutput(callID, output string) error
	CreateResponse() error
	CancelResponse(responseID string) error
	Close()
}

type IDialer interface {
	Dial() (IConn, error)
}

type dialer struct {
	url     string
	model   string
	apiKey  string
	timeout time.Duration
}

func NewDialer() IDialer {
	url := os.Getenv("REALTIME_WS_URL")
	if url == "" {
		url = "wss://api.openai.com/v1/realtime"
	}

	model := os.Getenv("REALTIME_MODEL")
	if model == "" {
		model = "gpt-4o-realtime-preview"
	}

	return &dialer{
		url:     url,
		model:   model,
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		timeout: 10 * time.Second,
	}
}

// TurnDetectionFromEnv builds the upstream turn-detection configuration.
// Defaults to server-side VAD; REALTIME_TURN_DETECTION=none disables it.
func TurnDetectionFromEnv() *TurnDetection {
	if os.Getenv("REALTIME_TURN_DETECTION") == "none" {
		return nil
	}

	td := &TurnDetection{
		Type:              "server_vad",
		Threshold:         0.5,
		PrefixPaddingMs:   300,
		SilenceDurationMs: 500,
	}

	if v := os.Getenv("REALTIME_TURN_DETECTION"); v != "" {
		td.Type = v
	}
	if v := os.Getenv("REALTIME_TURN_DETECTION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			td.Threshold = f
		}
	}
	if v := os.Getenv("REALTIME_TURN_DETECTION_PREFIX_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			td.PrefixPaddingMs = n
		}
	}
	if v := os.Getenv("REALTIME_TURN_DETECTION_SILENCE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			td.SilenceDurationMs = n
		}
	}

	return td
}

func (d *dialer) Dial() (IConn, error) {
	wsDialer := websocket.Dialer{
		HandshakeTimeout: d.timeout,
	}

	header := http.Header{}
	if d.apiKey != "" {
		header.Set("Authorization", "Bearer "+d.apiKey)
	}
	header.Set("OpenAI-Beta", "realtime=v1")

	url := fmt.Sprintf("%s?model=%s", d.url, d.model)

	ws, _, err := wsDialer.Dial(url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to realtime service: %w", err)
	}

	ws.SetPingHandler(func(appData string) error {
		return ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	return &conn{ws: ws}, nil
}

type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *conn) ReadEvent() (*ServerEvent, error) {
	_, payload, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}

	var event ServerEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("malformed upstream event: %w", err)
	}
	event.Raw = payload

	return &event, nil
}

func (c *conn) send(event clientEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *conn) UpdateSession(cfg SessionConfig) error {
	return c.send(clientEvent{Type: "session.update", Session: &cfg})
}

func (c *conn) AppendAudio(base64PCM string) error {
	return c.send(clientEvent{Type: "input_audio_buffer.append", Audio: base64PCM})
}

func (c *conn) CommitAudio() error {
	return c.send(clientEvent{Type: "input_audio_buffer.commit"})
}

func (c *conn) ClearAudio() error {
	return c.send(clientEvent{Type: "input_audio_buffer.clear"})
}

func (c *conn) CreateUserMessage(text string) error {
	return c.send(clientEvent{
		Type: "conversation.item.create",
		Item: &conversationItem{
			Type: "message",
			Role: "user",
			Content: []contentPart{
				{Type: "input_text", Text: text},
			},
		},
	})
}

func (c *conn) CreateFunctionOutput(callID, output string) error {
	return c.send(clientEvent{
		Type: "conversation.item.create",
		Item: &conversationItem{
			Type:   "function_call_output",
			CallID: callID,
			Output: output,
		},
	})
}

func (c *conn) CreateResponse() error {
	return c.send(clientEvent{Type: "response.create"})
}

func (c *conn) CancelResponse(responseID string) error {
	return c.send(clientEvent{Type: "response.cancel", ResponseID: responseID})
}

func (c *conn) Close() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(2*time.Second))
	c.ws.Close()
}
