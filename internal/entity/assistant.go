package entity

import (
	"encoding/json"
	"time"
)

type Assistant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Voice        string    `json:"voice"`
	PlaybackRate float64   `json:"playback_rate"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InstructionBlock is one named group of system-prompt lines. Blocks with an
// empty AssistantID are global and apply to every assistant.
type InstructionBlock struct {
	ID          string    `json:"id"`
	AssistantID string    `json:"assistant_id,omitempty"`
	Key         string    `json:"key"`
	Lines       []string  `json:"lines"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ToolKind string

const (
	ToolKindBusiness ToolKind = "business"
	ToolKindSession  ToolKind = "session"
)

type ToolRoute struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Kind        ToolKind        `json:"kind"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
	Route       *ToolRoute      `json:"route,omitempty"`
	// UICommand is emitted to the client for session tools (end_call, mute, ...).
	UICommand string `json:"ui_command,omitempty"`
	// SessionParam names the call argument that is patched into the upstream
	// session config (e.g. "voice") when set.
	SessionParam  string    `json:"session_param,omitempty"`
	SimulatedJSON string    `json:"simulated_json,omitempty"`
	IsActive      bool      `json:"is_active"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type SanitizationRule struct {
	ID          string    `json:"id"`
	Pattern     string    `json:"pattern"`
	Flags       string    `json:"flags"`
	Replacement string    `json:"replacement"`
	Direction   string    `json:"direction"`
	IsActive    bool      `json:"is_active"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	SanitizeDirectionIn   = "in"
	SanitizeDirectionOut  = "out"
	SanitizeDirectionBoth = "both"
)
