package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/boardroomlabs/boardroom/pkg/core/types"
)

// TaskExecutor runs one delegated task hosted by this process.
type TaskExecutor func(ctx context.Context, targetID, task string, input map[string]any) (map[string]any, error)

// Server exposes the registry over HTTP so one boardroom process can host
// remote agents for another:
//
//	GET  /v1/agents    list registered cards
//	POST /v1/agents    register a card
//	POST /v1/dispatch  execute a delegated task
type Server struct {
	router *Router
	exec   TaskExecutor
	logger *slog.Logger
}

// NewServer builds the registry HTTP surface. exec may be nil, in which case
// dispatch requests are rejected.
func NewServer(r *Router, exec TaskExecutor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{router: r, exec: exec, logger: logger}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/agents", s.handleList)
	mux.HandleFunc("POST /v1/agents", s.handleRegister)
	mux.HandleFunc("POST /v1/dispatch", s.handleDispatch)
	return mux
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.router.List()})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var card types.AgentCard
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid agent card payload"})
		return
	}
	if err := s.router.Register(card); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, DispatchResponse{Status: "error", Error: "invalid dispatch payload"})
		return
	}
	if s.exec == nil {
		writeJSON(w, http.StatusNotImplemented, DispatchResponse{Status: "error", Error: "this registry does not execute tasks"})
		return
	}
	if _, ok := s.router.Get(req.TargetAgentID); !ok {
		writeJSON(w, http.StatusNotFound, DispatchResponse{
			Status: "error",
			Error:  "agent " + strings.TrimSpace(req.TargetAgentID) + " is not registered",
		})
		return
	}

	result, err := s.exec(r.Context(), req.TargetAgentID, req.Task, req.Input)
	if err != nil {
		s.logger.Warn("dispatch execution failed", "agent_id", req.TargetAgentID, "task", req.Task, "err", err)
		writeJSON(w, http.StatusOK, DispatchResponse{Status: "error", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, DispatchResponse{Status: "success", Result: result})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
