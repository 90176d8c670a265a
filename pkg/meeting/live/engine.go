// Package live abstracts the bidirectional speech engine the orchestrator
// talks to. The production engine is Gemini Live; tests use scripted fakes.
package live

import (
	"context"

	"github.com/boardroomlabs/boardroom/pkg/meeting/tools"
)

// ConnectConfig describes one engine stream.
type ConnectConfig struct {
	Model             string
	SystemInstruction string
	VoiceName         string
	Tools             []tools.Declaration

	// Ask the engine to transcribe both directions of the conversation.
	TranscribeInput  bool
	TranscribeOutput bool
}

// ToolCall is one function invocation requested by the model. Calls arrive
// in batches; the orchestrator answers each id exactly once, in order.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResponse answers one ToolCall.
type ToolResponse struct {
	ID     string
	Name   string
	Output map[string]any
}

// ServerMessage is one inbound engine event. Exactly the fields relevant to
// the event are set; a single message may carry audio and transcription
// together.
type ServerMessage struct {
	// Audio is raw pcm_s16le model speech, nil when the message carries none.
	Audio []byte

	// InputTranscription and OutputTranscription are incremental fragments,
	// not cumulative text.
	InputTranscription  string
	OutputTranscription string

	// ToolCalls is a batch of function invocations to execute in order.
	ToolCalls []ToolCall

	// TurnComplete marks the end of a model turn; Interrupted reports that
	// the user barged in over model speech.
	TurnComplete bool
	Interrupted  bool
}

// Session is an open engine stream. Events is closed when the stream ends;
// Err reports the terminal error after that, if any.
type Session interface {
	Events() <-chan ServerMessage
	SendAudio(pcm []byte, mimeType string) error
	SendText(text string, endOfTurn bool) error
	SendToolResponses(responses []ToolResponse) error
	Err() error
	Close() error
}

// Engine opens live sessions.
type Engine interface {
	Connect(ctx context.Context, cfg ConnectConfig) (Session, error)
}
