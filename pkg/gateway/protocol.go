package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boardroomlabs/boardroom/pkg/core/types"
)

// Client frame types.
const (
	FrameSessionStart   = "session_start"
	FrameAudioFrame     = "audio_frame"
	FrameControl        = "control"
	FrameAttachDocument = "attach_document"
	FrameAgentJoin      = "agent_join"
)

// Control ops.
const (
	OpMute   = "mute"
	OpUnmute = "unmute"
	OpEnd    = "end"
)

// ClientSessionStart opens a session. It must be the first frame on the
// socket.
type ClientSessionStart struct {
	Type     string          `json:"type"`
	Model    string          `json:"model,omitempty"`
	Personas []types.Persona `json:"personas"`
}

// ClientAudioFrame carries one base64 pcm_s16le microphone chunk.
type ClientAudioFrame struct {
	Type    string `json:"type"`
	DataB64 string `json:"data_b64"`
}

// ClientControl toggles mute or ends the session.
type ClientControl struct {
	Type string `json:"type"`
	Op   string `json:"op"`
}

// ClientAttachDocument attaches a context document mid-session.
type ClientAttachDocument struct {
	Type     string         `json:"type"`
	Document types.Document `json:"document"`
}

// ClientAgentJoin announces a persona joining mid-session.
type ClientAgentJoin struct {
	Type    string        `json:"type"`
	Persona types.Persona `json:"persona"`
}

// DecodeClientFrame parses one inbound frame into its concrete type.
func DecodeClientFrame(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode frame envelope: %w", err)
	}
	typ := strings.TrimSpace(envelope.Type)

	switch typ {
	case FrameSessionStart:
		var frame ClientSessionStart
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode session_start: %w", err)
		}
		return frame, nil
	case FrameAudioFrame:
		var frame ClientAudioFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode audio_frame: %w", err)
		}
		return frame, nil
	case FrameControl:
		var frame ClientControl
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode control: %w", err)
		}
		return frame, nil
	case FrameAttachDocument:
		var frame ClientAttachDocument
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode attach_document: %w", err)
		}
		return frame, nil
	case FrameAgentJoin:
		var frame ClientAgentJoin
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode agent_join: %w", err)
		}
		return frame, nil
	default:
		return nil, fmt.Errorf("unknown client frame type %q", typ)
	}
}

// ServerSessionAck confirms a started session.
type ServerSessionAck struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// ServerState reports an orchestrator state transition.
type ServerState struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

// ServerError reports a session-level failure.
type ServerError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ServerMicLevel reports the microphone volume level.
type ServerMicLevel struct {
	Type  string  `json:"type"`
	Level float64 `json:"level"`
}

// ServerTranscript carries the full transcript after turn finalization.
type ServerTranscript struct {
	Type  string                 `json:"type"`
	Turns []types.TranscriptTurn `json:"turns"`
}

// ServerFile reports a file lifecycle event; Type distinguishes created,
// updated and presented.
type ServerFile struct {
	Type string          `json:"type"`
	File types.AgentFile `json:"file"`
}

// ServerPersonaJoined confirms a mid-session join.
type ServerPersonaJoined struct {
	Type    string        `json:"type"`
	Persona types.Persona `json:"persona"`
}

// ServerDocumentAttached confirms a document attachment.
type ServerDocumentAttached struct {
	Type     string         `json:"type"`
	Document types.Document `json:"document"`
}

// ServerAudio carries one base64 pcm_s16le synthesized chunk.
type ServerAudio struct {
	Type    string `json:"type"`
	DataB64 string `json:"data_b64"`
}

// ServerSessionEnded is the last frame of a session.
type ServerSessionEnded struct {
	Type string `json:"type"`
}
