// Package router maintains the registry of known remote agents and forwards
// delegated tasks to them over request/response HTTP calls.
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/boardroomlabs/boardroom/pkg/core"
	"github.com/boardroomlabs/boardroom/pkg/core/types"
)

const defaultDispatchTimeout = 30 * time.Second

// DispatchRequest is the wire shape of one delegated task.
type DispatchRequest struct {
	TargetAgentID string         `json:"target_agent_id"`
	Task          string         `json:"task"`
	Input         map[string]any `json:"input,omitempty"`
}

// DispatchResponse is the wire shape of a remote agent's answer. Status is
// "success" or "error"; exactly one of Result or Error is meaningful.
type DispatchResponse struct {
	Status string         `json:"status"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Router is a last-write-wins card registry plus a dispatch client. It
// performs no retries; a single failed call is reported to the caller as-is.
type Router struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	cards map[string]types.AgentCard
}

// New creates a router. A nil client gets a transport with sane dial
// timeouts; request lifetimes are bounded per call, not per client, because a
// shared client may also serve long-lived requests.
func New(client *http.Client, timeout time.Duration, logger *slog.Logger) *Router {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		client:  client,
		timeout: timeout,
		logger:  logger,
		cards:   make(map[string]types.AgentCard),
	}
}

// Register adds or replaces a card, keyed by id.
func (r *Router) Register(card types.AgentCard) error {
	if strings.TrimSpace(card.ID) == "" {
		return core.NewConfigError("agent card id must not be empty")
	}
	r.mu.Lock()
	r.cards[card.ID] = card
	r.mu.Unlock()
	r.logger.Info("registered agent card", "agent_id", card.ID, "name", card.Name)
	return nil
}

// Unregister removes a card. Unknown ids are a no-op.
func (r *Router) Unregister(agentID string) {
	r.mu.Lock()
	delete(r.cards, agentID)
	r.mu.Unlock()
}

// Get looks up one card.
func (r *Router) Get(agentID string) (types.AgentCard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	card, ok := r.cards[agentID]
	return card, ok
}

// List returns all cards ordered by id.
func (r *Router) List() []types.AgentCard {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.AgentCard, 0, len(r.cards))
	for _, card := range r.cards {
		out = append(out, card)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindCapableAgents returns the cards declaring the given capability.
func (r *Router) FindCapableAgents(capability string) []types.AgentCard {
	capability = strings.TrimSpace(capability)
	var out []types.AgentCard
	for _, card := range r.List() {
		for _, c := range card.Capabilities {
			if c == capability {
				out = append(out, card)
				break
			}
		}
	}
	return out
}

// Route forwards a task to the target agent's execution endpoint. An unknown
// target fails before any network call is made.
func (r *Router) Route(ctx context.Context, targetID, task string, payload map[string]any) (map[string]any, error) {
	card, ok := r.Get(targetID)
	if !ok {
		return nil, core.NewNotFoundError(fmt.Sprintf("agent %q is not registered", targetID))
	}
	endpoint := strings.TrimSpace(card.Execution.Endpoint)
	if endpoint == "" {
		return nil, core.NewConfigError(fmt.Sprintf("agent %q has no execution endpoint", targetID))
	}

	body, err := json.Marshal(DispatchRequest{TargetAgentID: targetID, Task: task, Input: payload})
	if err != nil {
		return nil, core.NewDelegationError("encode dispatch request", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, core.NewDelegationError("build dispatch request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, core.NewDelegationError(fmt.Sprintf("dispatch to %q failed", targetID), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, core.NewDelegationError("read dispatch response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, core.NewDelegationError(
			fmt.Sprintf("agent %q returned status %d", targetID, resp.StatusCode), nil)
	}

	var decoded DispatchResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, core.NewDelegationError("decode dispatch response", err)
	}
	if !strings.EqualFold(strings.TrimSpace(decoded.Status), "success") {
		msg := strings.TrimSpace(decoded.Error)
		if msg == "" {
			msg = fmt.Sprintf("agent %q reported status %q", targetID, decoded.Status)
		}
		return nil, core.NewDelegationError(msg, nil)
	}
	return decoded.Result, nil
}
