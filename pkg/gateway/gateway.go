// Package gateway bridges a browser UI onto the session orchestrator over a
// WebSocket: microphone frames flow in, session events and synthesized audio
// flow out.
package gateway

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/boardroomlabs/boardroom/pkg/meeting/audio"
	"github.com/boardroomlabs/boardroom/pkg/meeting/live"
	"github.com/boardroomlabs/boardroom/pkg/meeting/router"
	"github.com/boardroomlabs/boardroom/pkg/meeting/session"
	"github.com/boardroomlabs/boardroom/pkg/meeting/store"
	"github.com/boardroomlabs/boardroom/pkg/meeting/tools"
)

const handshakeTimeout = 5 * time.Second

// Config wires the bridge server's collaborators. Images and Router may be
// nil; the corresponding tools are simply not registered.
type Config struct {
	Engine live.Engine
	Store  store.Store
	Router *router.Router
	Images tools.ImageGenerator

	Model            string
	InputSampleRate  int
	OutputSampleRate int
	MaxPersonas      int

	Logger *slog.Logger
}

// Server serves one orchestrator-backed session per websocket connection.
type Server struct {
	cfg    Config
	logger *slog.Logger
}

// NewServer builds the bridge server.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{cfg: cfg, logger: cfg.Logger}
}

// Handler returns the route mux. The meeting socket lives at /v1/meeting.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/meeting", s.handleMeeting)
	return mux
}

func (s *Server) handleMeeting(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sock := &socket{conn: conn}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	messageType, firstFrame, err := conn.ReadMessage()
	if err != nil || messageType != websocket.TextMessage {
		sock.writeError("first frame must be session_start")
		return
	}
	decoded, err := DecodeClientFrame(firstFrame)
	if err != nil {
		sock.writeError("invalid session_start frame")
		return
	}
	start, ok := decoded.(ClientSessionStart)
	if !ok {
		sock.writeError("first frame must be session_start")
		return
	}
	if len(start.Personas) == 0 {
		sock.writeError("at least one persona is required")
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	model := strings.TrimSpace(start.Model)
	if model == "" {
		model = s.cfg.Model
	}

	input := &socketInput{}
	output := newSocketOutput(s.cfg.OutputSampleRate, func(pcm []byte) {
		sock.writeJSON(ServerAudio{Type: "audio", DataB64: base64.StdEncoding.EncodeToString(pcm)})
	})

	orch := session.New(session.Config{
		Engine:           s.cfg.Engine,
		Model:            model,
		Personas:         start.Personas,
		Store:            s.cfg.Store,
		Dispatcher:       s.newDispatcher(),
		Input:            input,
		Output:           output,
		InputSampleRate:  s.cfg.InputSampleRate,
		OutputSampleRate: s.cfg.OutputSampleRate,
		MaxPersonas:      s.cfg.MaxPersonas,
		Logger:           s.logger,
	})

	events, cancel := orch.Subscribe()
	defer cancel()

	var forward sync.WaitGroup
	forward.Add(1)
	go func() {
		defer forward.Done()
		for event := range events {
			s.forwardEvent(sock, event)
		}
	}()

	ctx := r.Context()
	defer func() {
		_ = orch.Close(context.Background())
		cancel()
		forward.Wait()
	}()

	if err := orch.Connect(ctx); err != nil {
		s.logger.Warn("session connect failed", "err", err)
		return
	}
	sessionID := "m_" + uuid.NewString()
	sock.writeJSON(ServerSessionAck{Type: "session_ack", SessionID: sessionID})

	s.readFrames(ctx, conn, sock, orch, input)
}

func (s *Server) readFrames(ctx context.Context, conn *websocket.Conn, sock *socket, orch *session.Orchestrator, input *socketInput) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		decoded, err := DecodeClientFrame(data)
		if err != nil {
			s.logger.Warn("dropping invalid client frame", "err", err)
			continue
		}

		switch frame := decoded.(type) {
		case ClientAudioFrame:
			pcm, err := base64.StdEncoding.DecodeString(frame.DataB64)
			if err != nil {
				s.logger.Warn("dropping undecodable audio frame", "err", err)
				continue
			}
			input.Feed(audio.DecodePCM16(pcm))
		case ClientControl:
			switch strings.TrimSpace(frame.Op) {
			case OpMute:
				orch.SetMuted(true)
			case OpUnmute:
				orch.SetMuted(false)
			case OpEnd:
				if err := orch.Disconnect(ctx); err != nil {
					s.logger.Warn("disconnect failed", "err", err)
				}
				return
			default:
				s.logger.Warn("dropping unknown control op", "op", frame.Op)
			}
		case ClientAttachDocument:
			if err := orch.AttachDocument(frame.Document); err != nil {
				s.logger.Warn("attach document failed", "err", err)
			}
		case ClientAgentJoin:
			if err := orch.NotifyAgentJoined(frame.Persona); err != nil {
				sock.writeError(err.Error())
			}
		case ClientSessionStart:
			s.logger.Warn("dropping duplicate session_start frame")
		}
	}
}

func (s *Server) newDispatcher() *tools.Dispatcher {
	d := tools.NewDispatcher(s.logger)
	d.Register(tools.NewCreateFileTool(s.cfg.Store))
	d.Register(tools.NewUpdateFileTool(s.cfg.Store))
	d.Register(tools.NewPresentFileTool())
	if s.cfg.Images != nil {
		d.Register(tools.NewGenerateImageTool(s.cfg.Store, s.cfg.Images))
	}
	if s.cfg.Router != nil {
		d.Register(tools.NewDelegateTaskTool(s.cfg.Router))
	}
	return d
}

func (s *Server) forwardEvent(sock *socket, event session.Event) {
	switch e := event.(type) {
	case session.StateChangedEvent:
		sock.writeJSON(ServerState{Type: "state", State: string(e.State)})
	case session.ErrorEvent:
		message := "session error"
		if e.Err != nil {
			message = e.Err.Error()
		}
		sock.writeJSON(ServerError{Type: "error", Message: message})
	case session.MicLevelEvent:
		sock.writeJSON(ServerMicLevel{Type: "mic_level", Level: e.Level})
	case session.TranscriptUpdatedEvent:
		sock.writeJSON(ServerTranscript{Type: "transcript", Turns: e.Turns})
	case session.FileCreatedEvent:
		sock.writeJSON(ServerFile{Type: "file_created", File: e.File})
	case session.FileUpdatedEvent:
		sock.writeJSON(ServerFile{Type: "file_updated", File: e.File})
	case session.FilePresentedEvent:
		sock.writeJSON(ServerFile{Type: "file_presented", File: e.File})
	case session.PersonaJoinedEvent:
		sock.writeJSON(ServerPersonaJoined{Type: "persona_joined", Persona: e.Persona})
	case session.DocumentAttachedEvent:
		sock.writeJSON(ServerDocumentAttached{Type: "document_attached", Document: e.Document})
	case session.SessionEndedEvent:
		sock.writeJSON(ServerSessionEnded{Type: "session_ended"})
	}
}

// socket serializes websocket writes; gorilla connections allow only one
// concurrent writer.
type socket struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

func (s *socket) writeJSON(v any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.WriteJSON(v)
}

func (s *socket) writeError(message string) {
	s.writeJSON(ServerError{Type: "error", Message: message})
}
