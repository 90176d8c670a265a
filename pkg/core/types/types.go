// Package types defines the data model shared by the boardroom packages.
package types

import (
	"strings"
	"time"
)

// Voice identifies one of the engine's prebuilt voices.
type Voice string

const (
	VoicePuck   Voice = "Puck"
	VoiceCharon Voice = "Charon"
	VoiceKore   Voice = "Kore"
	VoiceFenrir Voice = "Fenrir"
	VoiceAoede  Voice = "Aoede"
	VoiceLeda   Voice = "Leda"
	VoiceOrus   Voice = "Orus"
	VoiceZephyr Voice = "Zephyr"

	// DefaultVoice is used when a persona's voice is missing or unknown.
	DefaultVoice = VoicePuck
)

// Valid reports whether v is one of the prebuilt voices.
func (v Voice) Valid() bool {
	switch v {
	case VoicePuck, VoiceCharon, VoiceKore, VoiceFenrir, VoiceAoede, VoiceLeda, VoiceOrus, VoiceZephyr:
		return true
	default:
		return false
	}
}

// OrDefault returns v when valid, DefaultVoice otherwise.
func (v Voice) OrDefault() Voice {
	if v.Valid() {
		return v
	}
	return DefaultVoice
}

// SpeechSpeed is a persona's speaking-pace category.
type SpeechSpeed string

const (
	SpeedSlow   SpeechSpeed = "slow"
	SpeedNormal SpeechSpeed = "normal"
	SpeedFast   SpeechSpeed = "fast"
)

// Personality captures a persona's behavioral attributes. Each field is one
// of a small fixed vocabulary; free text belongs in Persona.Description.
type Personality struct {
	Tone      string `json:"tone"`      // professional | friendly | assertive | thoughtful
	Verbosity string `json:"verbosity"` // concise | balanced | detailed
	Style     string `json:"style"`     // direct | analytical | creative | collaborative
}

// String serializes the personality for prompt text.
func (p Personality) String() string {
	parts := make([]string, 0, 3)
	if strings.TrimSpace(p.Tone) != "" {
		parts = append(parts, "tone="+p.Tone)
	}
	if strings.TrimSpace(p.Verbosity) != "" {
		parts = append(parts, "verbosity="+p.Verbosity)
	}
	if strings.TrimSpace(p.Style) != "" {
		parts = append(parts, "style="+p.Style)
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, ", ")
}

// MemoryConfig controls whether a persona remembers prior sessions.
type MemoryConfig struct {
	Enabled      bool `json:"enabled"`
	HistoryLimit int  `json:"history_limit"`
}

// RemoteExecution describes how a remote agent is reached.
type RemoteExecution struct {
	Kind     string         `json:"kind"` // e.g. "http"
	Endpoint string         `json:"endpoint"`
	Config   map[string]any `json:"config,omitempty"`
}

// Persona is a configured AI participant: identity plus behavior. The
// orchestrator only reads it for the lifetime of one session.
type Persona struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Role          string           `json:"role"`
	Description   string           `json:"description"`
	Voice         Voice            `json:"voice"`
	SpeechSpeed   SpeechSpeed      `json:"speech_speed"`
	Personality   Personality      `json:"personality"`
	Memory        MemoryConfig     `json:"memory"`
	KnowledgeBase string           `json:"knowledge_base,omitempty"`
	Capabilities  []string         `json:"capabilities,omitempty"`
	Remote        *RemoteExecution `json:"remote,omitempty"`
}

// TurnRole is the speaker of a finalized transcript turn.
type TurnRole string

const (
	RoleUser  TurnRole = "user"
	RoleModel TurnRole = "model"
)

// TranscriptTurn is one finalized utterance. Turns are append-only within a
// session and only pushed on turn completion, never partially.
type TranscriptTurn struct {
	Role      TurnRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionTranscript is the memory record written once per memory-enabled
// persona at disconnect.
type SessionTranscript struct {
	PersonaID string           `json:"persona_id"`
	Timestamp time.Time        `json:"timestamp"`
	Turns     []TranscriptTurn `json:"turns"`
}

// FileType classifies generated agent files.
type FileType string

const (
	FileDoc   FileType = "doc"
	FileCode  FileType = "code"
	FileImage FileType = "image"
	FileSheet FileType = "sheet"
	FilePDF   FileType = "pdf"
)

// FileVersion is one entry in a file's append-only history.
type FileVersion struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentFile is a file created by a persona during a session. Every edit or
// restore appends a version; history is never rewritten.
type AgentFile struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Type      FileType      `json:"type"`
	Content   string        `json:"content"`
	PersonaID string        `json:"persona_id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Versions  []FileVersion `json:"versions"`
}

// ToolResult is the outcome of one tool call. Exactly one of Data or Error is
// meaningful, selected by Success.
type ToolResult struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// OK builds a successful result.
func OK(data map[string]any) ToolResult {
	return ToolResult{Success: true, Data: data}
}

// Fail builds a failure result.
func Fail(message string) ToolResult {
	return ToolResult{Success: false, Error: message}
}

// AgentCard is the registration metadata of a remote agent.
type AgentCard struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Version      string          `json:"version"`
	Capabilities []string        `json:"capabilities"`
	Execution    RemoteExecution `json:"execution"`
}

// Document is a user-attached context document.
type Document struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
}
