package live

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/boardroomlabs/boardroom/pkg/core"
	"github.com/boardroomlabs/boardroom/pkg/meeting/tools"
)

const defaultConnectTimeout = 15 * time.Second

// GeminiEngine drives Gemini Live over the genai SDK.
type GeminiEngine struct {
	client         *genai.Client
	connectTimeout time.Duration
	logger         *slog.Logger
}

// NewGeminiEngine builds a live engine backed by the Gemini API.
func NewGeminiEngine(ctx context.Context, apiKey string, connectTimeout time.Duration, logger *slog.Logger) (*GeminiEngine, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, core.NewConfigError("gemini api key must not be empty")
	}
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, core.NewTransportError("create gemini client", err)
	}
	return &GeminiEngine{client: client, connectTimeout: connectTimeout, logger: logger}, nil
}

// Connect opens a Gemini Live stream and starts its receive loop.
func (e *GeminiEngine) Connect(ctx context.Context, cfg ConnectConfig) (Session, error) {
	if e == nil || e.client == nil {
		return nil, core.NewConfigError("gemini engine is not initialized")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, core.NewConfigError("live model must not be empty")
	}

	connectCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		connectCtx, cancel = context.WithTimeout(ctx, e.connectTimeout)
		defer cancel()
	}

	live, err := e.client.Live.Connect(connectCtx, model, buildLiveConfig(cfg))
	if err != nil {
		return nil, core.NewTransportError("connect gemini live", err)
	}

	sess := &geminiSession{
		live:   live,
		events: make(chan ServerMessage, 256),
		done:   make(chan struct{}),
		logger: e.logger,
	}
	go sess.readLoop()
	return sess, nil
}

func buildLiveConfig(cfg ConnectConfig) *genai.LiveConnectConfig {
	out := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
	}
	if system := strings.TrimSpace(cfg.SystemInstruction); system != "" {
		out.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if voice := strings.TrimSpace(cfg.VoiceName); voice != "" {
		out.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		}
	}
	if len(cfg.Tools) > 0 {
		out.Tools = []*genai.Tool{{FunctionDeclarations: buildFunctionDeclarations(cfg.Tools)}}
	}
	if cfg.TranscribeInput {
		out.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	if cfg.TranscribeOutput {
		out.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	return out
}

func buildFunctionDeclarations(decls []tools.Declaration) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, decl := range decls {
		properties := make(map[string]*genai.Schema, len(decl.Params))
		var required []string
		for _, p := range decl.Params {
			properties[p.Name] = &genai.Schema{
				Type:        schemaType(p.Type),
				Description: p.Description,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        decl.Name,
			Description: decl.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   required,
			},
		})
	}
	return out
}

func schemaType(t string) genai.Type {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}

type geminiSession struct {
	live   *genai.Session
	logger *slog.Logger

	events chan ServerMessage
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

func (s *geminiSession) Events() <-chan ServerMessage { return s.events }

func (s *geminiSession) SendAudio(pcm []byte, mimeType string) error {
	if len(pcm) == 0 {
		return nil
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "audio/pcm;rate=16000"
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.live.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{Data: pcm, MIMEType: mimeType},
	}); err != nil {
		return core.NewTransportError("send audio", err)
	}
	return nil
}

func (s *geminiSession) SendText(text string, endOfTurn bool) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.live.SendClientContent(genai.LiveClientContentInput{
		Turns: []*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: text}},
		}},
		TurnComplete: &endOfTurn,
	}); err != nil {
		return core.NewTransportError("send text", err)
	}
	return nil
}

func (s *geminiSession) SendToolResponses(responses []ToolResponse) error {
	if len(responses) == 0 {
		return nil
	}
	out := make([]*genai.FunctionResponse, 0, len(responses))
	for _, r := range responses {
		out = append(out, &genai.FunctionResponse{
			ID:       r.ID,
			Name:     r.Name,
			Response: r.Output,
		})
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.live.SendToolResponse(genai.LiveToolResponseInput{FunctionResponses: out}); err != nil {
		return core.NewTransportError("send tool responses", err)
	}
	return nil
}

func (s *geminiSession) Err() error {
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *geminiSession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.live.Close()
	})
	<-s.done
	return nil
}

func (s *geminiSession) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *geminiSession) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		msg, err := s.live.Receive()
		if err != nil {
			if err == io.EOF {
				return
			}
			s.setErr(core.NewTransportError("receive live message", err))
			return
		}
		if msg == nil {
			continue
		}
		s.emit(translateServerMessage(msg))
	}
}

// emit never blocks the receive loop; a stalled consumer drops messages
// rather than stalling the engine stream.
func (s *geminiSession) emit(msg ServerMessage) {
	if isEmptyMessage(msg) {
		return
	}
	select {
	case s.events <- msg:
	default:
		s.logger.Warn("dropping live server message: consumer is not keeping up")
	}
}

func isEmptyMessage(msg ServerMessage) bool {
	return len(msg.Audio) == 0 &&
		msg.InputTranscription == "" &&
		msg.OutputTranscription == "" &&
		len(msg.ToolCalls) == 0 &&
		!msg.TurnComplete &&
		!msg.Interrupted
}

func translateServerMessage(msg *genai.LiveServerMessage) ServerMessage {
	var out ServerMessage
	if sc := msg.ServerContent; sc != nil {
		out.TurnComplete = sc.TurnComplete
		out.Interrupted = sc.Interrupted
		if sc.InputTranscription != nil {
			out.InputTranscription = sc.InputTranscription.Text
		}
		if sc.OutputTranscription != nil {
			out.OutputTranscription = sc.OutputTranscription.Text
		}
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
					out.Audio = append(out.Audio, part.InlineData.Data...)
				}
			}
		}
	}
	if tc := msg.ToolCall; tc != nil {
		for _, call := range tc.FunctionCalls {
			if call == nil {
				continue
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:   call.ID,
				Name: call.Name,
				Args: call.Args,
			})
		}
	}
	return out
}
