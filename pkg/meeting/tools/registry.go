// Package tools implements the name→handler registry the orchestrator
// dispatches model-issued tool calls through, plus the built-in handlers.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/boardroomlabs/boardroom/pkg/core/types"
)

// Param describes one tool parameter for the engine's tool declaration.
type Param struct {
	Name        string
	Type        string // "string" | "number" | "boolean" | "object"
	Description string
	Required    bool
}

// Declaration is the engine-neutral description of a callable tool.
type Declaration struct {
	Name        string
	Description string
	Params      []Param
}

// Context is the shared state visible to handlers: the active persona set,
// the session's file list, and lookup helpers. Handlers read it; only the
// orchestrator mutates it, via Dispatcher.UpdateContext.
type Context struct {
	Personas []types.Persona
	Files    []types.AgentFile
}

// FileByName finds a session file by exact name.
func (c *Context) FileByName(name string) (types.AgentFile, bool) {
	if c == nil {
		return types.AgentFile{}, false
	}
	for _, f := range c.Files {
		if f.Name == name {
			return f, true
		}
	}
	return types.AgentFile{}, false
}

// PersonaByID finds an active persona by id.
func (c *Context) PersonaByID(id string) (types.Persona, bool) {
	if c == nil {
		return types.Persona{}, false
	}
	for _, p := range c.Personas {
		if p.ID == id {
			return p, true
		}
	}
	return types.Persona{}, false
}

// Handler executes one tool call. Handlers are side-effecting only through
// their return value; committing results to session state is the
// orchestrator's job.
type Handler func(ctx context.Context, args map[string]any, tc *Context) (types.ToolResult, error)

// Dispatcher routes tool calls by name. Execute never panics and never
// returns an error; every failure becomes a failure ToolResult.
type Dispatcher struct {
	logger *slog.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	decls    map[string]Declaration
	shared   Context
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger:   logger,
		handlers: make(map[string]Handler),
		decls:    make(map[string]Declaration),
	}
}

// Register adds a handler under its declaration's name, replacing any
// previous registration.
func (d *Dispatcher) Register(decl Declaration, h Handler) {
	name := strings.TrimSpace(decl.Name)
	if name == "" || h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
	d.decls[name] = decl
}

// Declarations returns the registered tool declarations ordered by name.
func (d *Dispatcher) Declarations() []Declaration {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Declaration, 0, len(d.decls))
	for _, decl := range d.decls {
		out = append(out, decl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Has reports whether a handler is registered under name.
func (d *Dispatcher) Has(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.handlers[strings.TrimSpace(name)]
	return ok
}

// UpdateContext refreshes the shared state handlers see. Call after any
// persona or file-list mutation.
func (d *Dispatcher) UpdateContext(personas []types.Persona, files []types.AgentFile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shared = Context{
		Personas: append([]types.Persona(nil), personas...),
		Files:    append([]types.AgentFile(nil), files...),
	}
}

// Execute runs the named tool. Unknown names and handler errors (including
// panics) come back as failure results, never as thrown errors.
func (d *Dispatcher) Execute(ctx context.Context, name string, args map[string]any) (result types.ToolResult) {
	name = strings.TrimSpace(name)

	d.mu.Lock()
	handler, ok := d.handlers[name]
	shared := d.shared
	d.mu.Unlock()

	if !ok {
		return types.Fail(fmt.Sprintf("tool %q is not registered", name))
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool handler panicked", "tool", name, "panic", r)
			result = types.Fail(fmt.Sprintf("tool %q panicked: %v", name, r))
		}
	}()

	res, err := handler(ctx, args, &shared)
	if err != nil {
		return types.Fail(err.Error())
	}
	return res
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func mapArg(args map[string]any, key string) map[string]any {
	if v, ok := args[key].(map[string]any); ok {
		return v
	}
	return nil
}
