// Package session implements the orchestrator that owns one live meeting:
// it opens the engine stream, runs the audio pipeline, dispatches tool
// calls and maintains the transcript.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/boardroomlabs/boardroom/pkg/bus"
	"github.com/boardroomlabs/boardroom/pkg/core"
	"github.com/boardroomlabs/boardroom/pkg/core/types"
	"github.com/boardroomlabs/boardroom/pkg/meeting/audio"
	"github.com/boardroomlabs/boardroom/pkg/meeting/live"
	"github.com/boardroomlabs/boardroom/pkg/meeting/prompt"
	"github.com/boardroomlabs/boardroom/pkg/meeting/store"
	"github.com/boardroomlabs/boardroom/pkg/meeting/tools"
)

// State is the orchestrator's lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// Config wires one orchestrator. Engine, Store, Dispatcher and at least one
// persona are required; the audio devices may be nil for audioless sessions
// (for example transcript-only tests).
type Config struct {
	Engine     live.Engine
	Model      string
	Personas   []types.Persona
	Store      store.Store
	Dispatcher *tools.Dispatcher

	Input            audio.InputDevice
	Output           audio.OutputDevice
	InputSampleRate  int
	OutputSampleRate int

	// MaxPersonas caps the active set, joins included. Zero means no cap.
	MaxPersonas int

	// OnSessionEnd runs once per session, after teardown.
	OnSessionEnd func()

	Logger *slog.Logger
}

// Orchestrator is the top-level session state machine. One orchestrator
// drives at most one live session at a time; after a disconnect it may be
// connected again.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger
	events *bus.Bus[Event]

	mu         sync.Mutex
	state      State
	lastErr    error
	personas   []types.Persona
	transcript []types.TranscriptTurn
	inputAcc   strings.Builder
	outputAcc  strings.Builder
	documents  []types.Document
	files      []types.AgentFile
	stream     live.Session
	pipeline   *audio.Pipeline

	closeOnce sync.Once
}

// New creates a disconnected orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		cfg:      cfg,
		logger:   cfg.Logger,
		events:   bus.New[Event](),
		state:    StateDisconnected,
		personas: append([]types.Persona(nil), cfg.Personas...),
	}
}

// Subscribe registers an event consumer. The returned cancel func must be
// called when the consumer goes away.
func (o *Orchestrator) Subscribe() (<-chan Event, func()) {
	return o.events.Subscribe()
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err returns the failure that moved the orchestrator into the error state,
// if any.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Transcript returns a copy of the finalized turns so far.
func (o *Orchestrator) Transcript() []types.TranscriptTurn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]types.TranscriptTurn(nil), o.transcript...)
}

// Files returns a copy of the session file state.
func (o *Orchestrator) Files() []types.AgentFile {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]types.AgentFile(nil), o.files...)
}

// Personas returns a copy of the active persona set.
func (o *Orchestrator) Personas() []types.Persona {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]types.Persona(nil), o.personas...)
}

// Documents returns a copy of the attached-document list.
func (o *Orchestrator) Documents() []types.Document {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]types.Document(nil), o.documents...)
}

// Connect opens the session: validates preconditions, starts the audio
// pipeline, builds the composite instruction and opens the engine stream.
// Calling it while connecting or connected is a logged no-op.
func (o *Orchestrator) Connect(ctx context.Context) error {
	o.mu.Lock()
	switch o.state {
	case StateConnecting, StateConnected:
		o.mu.Unlock()
		o.logger.Info("connect ignored: session already active", "state", string(o.state))
		return nil
	}

	if err := o.validateLocked(); err != nil {
		o.failLocked(err)
		o.mu.Unlock()
		return err
	}

	o.setStateLocked(StateConnecting)
	personas := append([]types.Persona(nil), o.personas...)
	o.mu.Unlock()

	// The frame callback is wired before the stream opens so no input is
	// dropped; sendMicChunk tolerates a stream that is not connected yet.
	pipeline := audio.NewPipeline(audio.PipelineConfig{
		Input:            o.cfg.Input,
		Output:           o.cfg.Output,
		OutputSampleRate: o.cfg.OutputSampleRate,
		OnChunk:          o.sendMicChunk,
		OnLevel:          func(level float64) { o.events.Publish(MicLevelEvent{Level: level}) },
	})
	if err := pipeline.Start(); err != nil {
		o.mu.Lock()
		o.failLocked(err)
		o.mu.Unlock()
		return err
	}

	files, err := o.loadFiles(ctx, personas)
	if err != nil {
		_ = pipeline.Shutdown()
		o.mu.Lock()
		o.failLocked(err)
		o.mu.Unlock()
		return err
	}
	o.cfg.Dispatcher.UpdateContext(personas, files)

	instruction := prompt.BuildSystemPrompt(personas, true, func(personaID string, limit int) (string, error) {
		return o.cfg.Store.GetAgentMemory(ctx, personaID, limit)
	})

	stream, err := o.cfg.Engine.Connect(ctx, live.ConnectConfig{
		Model:             o.cfg.Model,
		SystemInstruction: instruction,
		VoiceName:         string(personas[0].Voice.OrDefault()),
		Tools:             o.cfg.Dispatcher.Declarations(),
		TranscribeInput:   true,
		TranscribeOutput:  true,
	})
	if err != nil {
		_ = pipeline.Shutdown()
		o.mu.Lock()
		o.failLocked(err)
		o.mu.Unlock()
		return err
	}

	o.mu.Lock()
	o.pipeline = pipeline
	o.stream = stream
	o.files = files
	o.setStateLocked(StateConnected)
	o.mu.Unlock()

	go o.readLoop(stream)
	return nil
}

func (o *Orchestrator) setStateLocked(s State) {
	if o.state == s {
		return
	}
	o.state = s
	o.events.Publish(StateChangedEvent{State: s})
}

func (o *Orchestrator) failLocked(err error) {
	o.lastErr = err
	o.logger.Error("session failed", "err", err)
	o.setStateLocked(StateError)
	o.events.Publish(ErrorEvent{Err: err})
}

func (o *Orchestrator) validateLocked() error {
	if o.cfg.Engine == nil {
		return core.NewConfigError("no streaming engine is configured")
	}
	if o.cfg.Store == nil {
		return core.NewConfigError("no store is configured")
	}
	if o.cfg.Dispatcher == nil {
		return core.NewConfigError("no tool dispatcher is configured")
	}
	if len(o.personas) == 0 {
		return core.NewConfigError("at least one persona is required")
	}
	if o.cfg.MaxPersonas > 0 && len(o.personas) > o.cfg.MaxPersonas {
		return core.NewConfigError(fmt.Sprintf("persona set exceeds the maximum of %d", o.cfg.MaxPersonas))
	}
	return nil
}

func (o *Orchestrator) loadFiles(ctx context.Context, personas []types.Persona) ([]types.AgentFile, error) {
	var out []types.AgentFile
	for _, p := range personas {
		files, err := o.cfg.Store.GetAgentFiles(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

// Disconnect tears the session down: flushes memory transcripts, closes the
// stream, stops the pipeline and fires the session-end callback. Idempotent,
// and safe to call when never connected.
func (o *Orchestrator) Disconnect(ctx context.Context) error {
	o.mu.Lock()
	if o.state == StateDisconnected && o.stream == nil && o.pipeline == nil {
		o.mu.Unlock()
		return nil
	}
	stream := o.stream
	pipeline := o.pipeline
	o.stream = nil
	o.pipeline = nil
	transcript := append([]types.TranscriptTurn(nil), o.transcript...)
	personas := append([]types.Persona(nil), o.personas...)
	o.inputAcc.Reset()
	o.outputAcc.Reset()
	o.setStateLocked(StateDisconnected)
	o.mu.Unlock()

	var firstErr error
	if len(transcript) > 0 {
		for _, p := range personas {
			if !p.Memory.Enabled {
				continue
			}
			if err := o.cfg.Store.SaveSessionTranscript(ctx, p.ID, transcript); err != nil {
				o.logger.Warn("failed to save session transcript", "persona_id", p.ID, "err", err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}

	if stream != nil {
		if err := stream.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if pipeline != nil {
		if err := pipeline.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if o.cfg.OnSessionEnd != nil {
		o.cfg.OnSessionEnd()
	}
	o.events.Publish(SessionEndedEvent{})
	return firstErr
}

// Close disconnects and shuts the event bus down. The orchestrator cannot be
// reused afterwards.
func (o *Orchestrator) Close(ctx context.Context) error {
	err := o.Disconnect(ctx)
	o.closeOnce.Do(o.events.Close)
	return err
}

// NotifyAgentJoined grows the active persona set mid-session and announces
// the newcomer to the engine as a system text message.
func (o *Orchestrator) NotifyAgentJoined(p types.Persona) error {
	o.mu.Lock()
	if o.stream == nil {
		o.mu.Unlock()
		return core.NewConfigError("session is not connected")
	}
	if o.cfg.MaxPersonas > 0 && len(o.personas) >= o.cfg.MaxPersonas {
		o.mu.Unlock()
		return core.NewConfigError(fmt.Sprintf("persona set is at the maximum of %d", o.cfg.MaxPersonas))
	}
	o.personas = append(o.personas, p)
	personas := append([]types.Persona(nil), o.personas...)
	files := append([]types.AgentFile(nil), o.files...)
	stream := o.stream
	o.mu.Unlock()

	o.cfg.Dispatcher.UpdateContext(personas, files)
	if err := stream.SendText(prompt.BuildJoinNotification(p), true); err != nil {
		return err
	}
	o.events.Publish(PersonaJoinedEvent{Persona: p})
	return nil
}

// AttachDocument adds a context document and forwards its content to the
// engine when a stream is open.
func (o *Orchestrator) AttachDocument(doc types.Document) error {
	o.mu.Lock()
	o.documents = append(o.documents, doc)
	stream := o.stream
	o.mu.Unlock()

	o.events.Publish(DocumentAttachedEvent{Document: doc})
	if stream != nil {
		return stream.SendText(prompt.BuildDocumentNotice(doc), true)
	}
	return nil
}

// SetMuted toggles microphone mute. A no-op when no pipeline is running.
func (o *Orchestrator) SetMuted(muted bool) {
	o.mu.Lock()
	pipeline := o.pipeline
	o.mu.Unlock()
	if pipeline != nil {
		pipeline.SetMuted(muted)
	}
}

// Muted reports the microphone mute state.
func (o *Orchestrator) Muted() bool {
	o.mu.Lock()
	pipeline := o.pipeline
	o.mu.Unlock()
	return pipeline != nil && pipeline.Muted()
}

func (o *Orchestrator) sendMicChunk(pcm []byte) {
	o.mu.Lock()
	stream := o.stream
	o.mu.Unlock()
	if stream == nil {
		return
	}
	mime := fmt.Sprintf("audio/pcm;rate=%d", o.cfg.InputSampleRate)
	if err := stream.SendAudio(pcm, mime); err != nil {
		o.logger.Warn("failed to send microphone chunk", "err", err)
	}
}

func (o *Orchestrator) readLoop(stream live.Session) {
	for msg := range stream.Events() {
		o.handleServerMessage(context.Background(), msg)
	}

	if err := stream.Err(); err != nil {
		o.failTransport(stream, err)
		return
	}
	// Clean remote close ends the session like a local disconnect.
	if err := o.Disconnect(context.Background()); err != nil {
		o.logger.Warn("teardown after remote close failed", "err", err)
	}
}

// failTransport handles a broken stream: the session moves to the error
// state and the pipeline is silenced, but the transcript is kept so a later
// Disconnect can still flush memory.
func (o *Orchestrator) failTransport(stream live.Session, err error) {
	o.mu.Lock()
	if o.stream != stream {
		// Disconnect already detached this stream.
		o.mu.Unlock()
		return
	}
	o.stream = nil
	pipeline := o.pipeline
	o.pipeline = nil
	o.failLocked(err)
	o.mu.Unlock()

	if pipeline != nil {
		_ = pipeline.Shutdown()
	}
}

// handleServerMessage processes one inbound engine event. Sections run in a
// fixed order: tool batch, transcription fragments, turn completion, audio,
// interruption.
func (o *Orchestrator) handleServerMessage(ctx context.Context, msg live.ServerMessage) {
	if len(msg.ToolCalls) > 0 {
		o.handleToolBatch(ctx, msg.ToolCalls)
	}

	if msg.InputTranscription != "" || msg.OutputTranscription != "" {
		o.mu.Lock()
		o.inputAcc.WriteString(msg.InputTranscription)
		o.outputAcc.WriteString(msg.OutputTranscription)
		o.mu.Unlock()
	}

	if msg.TurnComplete {
		o.finalizeTurn()
	}

	if len(msg.Audio) > 0 {
		o.mu.Lock()
		pipeline := o.pipeline
		o.mu.Unlock()
		if pipeline != nil {
			if err := pipeline.PlayChunk(msg.Audio); err != nil {
				o.logger.Warn("failed to schedule playback", "err", err)
			}
		}
	}

	if msg.Interrupted {
		o.handleInterruption()
	}
}

// handleToolBatch executes calls strictly in arrival order and answers each
// id exactly once. Later calls observe the side effects of earlier ones.
func (o *Orchestrator) handleToolBatch(ctx context.Context, calls []live.ToolCall) {
	for _, call := range calls {
		result := o.cfg.Dispatcher.Execute(ctx, call.Name, call.Args)
		o.commitToolResult(call, result)

		o.mu.Lock()
		stream := o.stream
		o.mu.Unlock()
		if stream == nil {
			return
		}
		if err := stream.SendToolResponses([]live.ToolResponse{{
			ID:     call.ID,
			Name:   call.Name,
			Output: toolResponseOutput(result),
		}}); err != nil {
			o.logger.Warn("failed to send tool response", "tool", call.Name, "err", err)
		}
	}
}

// commitToolResult applies a successful result's side effects to session
// state: new or revised files are folded into the file list, the dispatcher
// context is refreshed, and file events are published.
func (o *Orchestrator) commitToolResult(call live.ToolCall, result types.ToolResult) {
	o.events.Publish(ToolInvokedEvent{Name: call.Name, Success: result.Success})
	if !result.Success {
		o.logger.Warn("tool call failed", "tool", call.Name, "err", result.Error)
		return
	}

	file, hasFile := result.Data[tools.DataKeyFile].(types.AgentFile)
	if hasFile {
		o.mu.Lock()
		replaced := false
		for i := range o.files {
			if o.files[i].ID == file.ID {
				o.files[i] = file
				replaced = true
				break
			}
		}
		if !replaced {
			o.files = append(o.files, file)
		}
		personas := append([]types.Persona(nil), o.personas...)
		files := append([]types.AgentFile(nil), o.files...)
		o.mu.Unlock()

		o.cfg.Dispatcher.UpdateContext(personas, files)
		if replaced {
			o.events.Publish(FileUpdatedEvent{File: file})
		} else {
			o.events.Publish(FileCreatedEvent{File: file})
		}
	}
	if present, _ := result.Data[tools.DataKeyPresent].(bool); present && hasFile {
		o.events.Publish(FilePresentedEvent{File: file})
	}
}

// toolResponseOutput maps a result onto the wire shape the engine expects:
// success carries {result: message}, failure carries {error: message}.
func toolResponseOutput(result types.ToolResult) map[string]any {
	if !result.Success {
		return map[string]any{"error": result.Error}
	}
	message, _ := result.Data[tools.DataKeyMessage].(string)
	if strings.TrimSpace(message) == "" {
		message = "ok"
	}
	return map[string]any{"result": message}
}

// finalizeTurn flushes the accumulators into transcript turns, user first.
// Empty accumulators append nothing.
func (o *Orchestrator) finalizeTurn() {
	o.mu.Lock()
	input := strings.TrimSpace(o.inputAcc.String())
	output := strings.TrimSpace(o.outputAcc.String())
	o.inputAcc.Reset()
	o.outputAcc.Reset()

	now := time.Now()
	if input != "" {
		o.transcript = append(o.transcript, types.TranscriptTurn{Role: types.RoleUser, Text: input, Timestamp: now})
	}
	if output != "" {
		o.transcript = append(o.transcript, types.TranscriptTurn{Role: types.RoleModel, Text: output, Timestamp: now})
	}
	turns := append([]types.TranscriptTurn(nil), o.transcript...)
	o.mu.Unlock()

	o.events.Publish(TranscriptUpdatedEvent{Turns: turns})
}

// handleInterruption cancels scheduled playback and drops the cut-off model
// utterance. The user's accumulator is untouched.
func (o *Orchestrator) handleInterruption() {
	o.mu.Lock()
	o.outputAcc.Reset()
	pipeline := o.pipeline
	o.mu.Unlock()

	if pipeline != nil {
		pipeline.Interrupt()
	}
}
