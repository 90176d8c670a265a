package session

import (
	"github.com/boardroomlabs/boardroom/pkg/core/types"
)

// Event is an orchestrator notification published on the session bus.
type Event interface {
	eventType() string
}

// StateChangedEvent reports a state machine transition.
type StateChangedEvent struct {
	State State
}

func (e StateChangedEvent) eventType() string { return "state_changed" }

// ErrorEvent carries a session-level failure. The session may or may not
// survive it; check the accompanying state change.
type ErrorEvent struct {
	Err error
}

func (e ErrorEvent) eventType() string { return "error" }

// MicLevelEvent reports the microphone volume level, in [0, 1].
type MicLevelEvent struct {
	Level float64
}

func (e MicLevelEvent) eventType() string { return "mic_level" }

// TranscriptUpdatedEvent fires when turns are finalized; Turns is the full
// transcript so far.
type TranscriptUpdatedEvent struct {
	Turns []types.TranscriptTurn
}

func (e TranscriptUpdatedEvent) eventType() string { return "transcript_updated" }

// FileCreatedEvent fires when a tool call produced a new session file.
type FileCreatedEvent struct {
	File types.AgentFile
}

func (e FileCreatedEvent) eventType() string { return "file_created" }

// FileUpdatedEvent fires when a tool call revised an existing session file.
type FileUpdatedEvent struct {
	File types.AgentFile
}

func (e FileUpdatedEvent) eventType() string { return "file_updated" }

// FilePresentedEvent fires when a tool call asked for a file to be surfaced
// to the user.
type FilePresentedEvent struct {
	File types.AgentFile
}

func (e FilePresentedEvent) eventType() string { return "file_presented" }

// ToolInvokedEvent reports the outcome of one dispatched tool call.
type ToolInvokedEvent struct {
	Name    string
	Success bool
}

func (e ToolInvokedEvent) eventType() string { return "tool_invoked" }

// PersonaJoinedEvent fires when a persona is announced mid-session.
type PersonaJoinedEvent struct {
	Persona types.Persona
}

func (e PersonaJoinedEvent) eventType() string { return "persona_joined" }

// DocumentAttachedEvent fires when the user attaches a context document.
type DocumentAttachedEvent struct {
	Document types.Document
}

func (e DocumentAttachedEvent) eventType() string { return "document_attached" }

// SessionEndedEvent fires once per session, after teardown completes.
type SessionEndedEvent struct{}

func (e SessionEndedEvent) eventType() string { return "session_ended" }
