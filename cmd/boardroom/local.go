package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boardroomlabs/boardroom/pkg/core/types"
	"github.com/boardroomlabs/boardroom/pkg/meeting/config"
	"github.com/boardroomlabs/boardroom/pkg/meeting/live"
	"github.com/boardroomlabs/boardroom/pkg/meeting/router"
	"github.com/boardroomlabs/boardroom/pkg/meeting/session"
	"github.com/boardroomlabs/boardroom/pkg/meeting/store"
	"github.com/boardroomlabs/boardroom/pkg/meeting/tools"
)

// runLocal drives one session from the terminal: ffmpeg captures the mic,
// ffplay renders playback, and slash commands control the session.
func runLocal(
	ctx context.Context,
	cfg config.Config,
	engine *live.GeminiEngine,
	st store.Store,
	rt *router.Router,
	logger *slog.Logger,
	personasPath string,
) error {
	personas, err := loadPersonas(personasPath)
	if err != nil {
		return err
	}

	output, err := newFFplayOutput(cfg.OutputSampleRate)
	if err != nil {
		return err
	}

	dispatcher := tools.NewDispatcher(logger)
	dispatcher.Register(tools.NewCreateFileTool(st))
	dispatcher.Register(tools.NewUpdateFileTool(st))
	dispatcher.Register(tools.NewPresentFileTool())
	dispatcher.Register(tools.NewGenerateImageTool(st, engine.ImageGenerator(cfg.ImageModel)))
	dispatcher.Register(tools.NewDelegateTaskTool(rt))

	orch := session.New(session.Config{
		Engine:           engine,
		Model:            cfg.Model,
		Personas:         personas,
		Store:            st,
		Dispatcher:       dispatcher,
		Input:            newFFmpegInput(cfg.InputSampleRate),
		Output:           output,
		InputSampleRate:  cfg.InputSampleRate,
		OutputSampleRate: cfg.OutputSampleRate,
		MaxPersonas:      cfg.MaxPersonas,
		Logger:           logger,
	})
	defer orch.Close(context.Background())

	events, cancel := orch.Subscribe()
	defer cancel()
	go printEvents(events)

	if err := orch.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := orch.Disconnect(context.Background()); err != nil {
			logger.Warn("disconnect failed", "err", err)
		}
	}()

	if cfg.MaxSessionDuration > 0 {
		timer := time.AfterFunc(cfg.MaxSessionDuration, func() {
			fmt.Println("\nsession duration limit reached, disconnecting")
			_ = orch.Disconnect(context.Background())
		})
		defer timer.Stop()
	}

	fmt.Printf("connected with %d persona(s); commands: /mute /unmute /doc <path> /join <path> /end\n", len(personas))
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/mute":
			orch.SetMuted(true)
		case line == "/unmute":
			orch.SetMuted(false)
		case strings.HasPrefix(line, "/doc "):
			if err := attachDocument(orch, strings.TrimSpace(strings.TrimPrefix(line, "/doc "))); err != nil {
				fmt.Fprintln(os.Stderr, "attach failed:", err)
			}
		case strings.HasPrefix(line, "/join "):
			if err := joinPersona(orch, strings.TrimSpace(strings.TrimPrefix(line, "/join "))); err != nil {
				fmt.Fprintln(os.Stderr, "join failed:", err)
			}
		case line == "/end", line == "/exit", line == "/quit":
			return nil
		default:
			fmt.Println("commands: /mute /unmute /doc <path> /join <path> /end")
		}
	}
}

func loadPersonas(path string) ([]types.Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personas file: %w", err)
	}
	var personas []types.Persona
	if err := json.Unmarshal(data, &personas); err != nil {
		return nil, fmt.Errorf("parse personas file: %w", err)
	}
	if len(personas) == 0 {
		return nil, fmt.Errorf("personas file %q defines no personas", path)
	}
	return personas, nil
}

func attachDocument(orch *session.Orchestrator, path string) error {
	if path == "" {
		return fmt.Errorf("usage: /doc <path>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return orch.AttachDocument(types.Document{
		Name:    filepath.Base(path),
		Type:    strings.TrimPrefix(filepath.Ext(path), "."),
		Content: string(data),
	})
}

func joinPersona(orch *session.Orchestrator, path string) error {
	if path == "" {
		return fmt.Errorf("usage: /join <path>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var persona types.Persona
	if err := json.Unmarshal(data, &persona); err != nil {
		return fmt.Errorf("parse persona file: %w", err)
	}
	return orch.NotifyAgentJoined(persona)
}

func printEvents(events <-chan session.Event) {
	for event := range events {
		switch e := event.(type) {
		case session.StateChangedEvent:
			fmt.Printf("\n[session] %s\n", e.State)
		case session.ErrorEvent:
			fmt.Fprintf(os.Stderr, "\n[error] %v\n", e.Err)
		case session.TranscriptUpdatedEvent:
			if len(e.Turns) > 0 {
				last := e.Turns[len(e.Turns)-1]
				fmt.Printf("\n[%s] %s\n", last.Role, last.Text)
			}
		case session.FileCreatedEvent:
			fmt.Printf("\n[file created] %s (%s)\n", e.File.Name, e.File.Type)
		case session.FileUpdatedEvent:
			fmt.Printf("\n[file updated] %s (version %d)\n", e.File.Name, len(e.File.Versions))
		case session.FilePresentedEvent:
			fmt.Printf("\n[file presented] %s\n", e.File.Name)
		case session.ToolInvokedEvent:
			fmt.Printf("\n[tool] %s ok=%t\n", e.Name, e.Success)
		case session.PersonaJoinedEvent:
			fmt.Printf("\n[joined] %s (%s)\n", e.Persona.Name, e.Persona.Role)
		case session.DocumentAttachedEvent:
			fmt.Printf("\n[document] %s\n", e.Document.Name)
		}
	}
}
