// Command boardroom runs the meeting backend: the WebSocket gateway for a
// browser UI plus the remote-agent registry. With -local it instead runs a
// terminal session against the default microphone and speakers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/boardroomlabs/boardroom/internal/dotenv"
	"github.com/boardroomlabs/boardroom/pkg/gateway"
	"github.com/boardroomlabs/boardroom/pkg/meeting/config"
	"github.com/boardroomlabs/boardroom/pkg/meeting/live"
	"github.com/boardroomlabs/boardroom/pkg/meeting/router"
	"github.com/boardroomlabs/boardroom/pkg/meeting/store"
)

func main() {
	local := flag.Bool("local", false, "run a terminal session instead of the server")
	personasPath := flag.String("personas", "personas.json", "persona definitions for -local mode")
	flag.Parse()

	dotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(context.Background(), logger, *local, *personasPath); err != nil {
		fmt.Fprintln(os.Stderr, "boardroom:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, local bool, personasPath string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	engine, err := live.NewGeminiEngine(ctx, cfg.GeminiAPIKey, cfg.ConnectTimeout, logger)
	if err != nil {
		return err
	}

	st, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	rt := router.New(nil, cfg.DispatchTimeout, logger)

	if local {
		return runLocal(ctx, cfg, engine, st, rt, logger, personasPath)
	}

	registry := router.NewServer(rt, nil, logger)
	bridge := gateway.NewServer(gateway.Config{
		Engine:           engine,
		Store:            st,
		Router:           rt,
		Images:           engine.ImageGenerator(cfg.ImageModel),
		Model:            cfg.Model,
		InputSampleRate:  cfg.InputSampleRate,
		OutputSampleRate: cfg.OutputSampleRate,
		MaxPersonas:      cfg.MaxPersonas,
		Logger:           logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/v1/meeting", bridge.Handler())
	mux.Handle("/v1/agents", registry.Handler())
	mux.Handle("/v1/dispatch", registry.Handler())

	logger.Info("boardroom listening", "addr", cfg.Addr, "model", cfg.Model)
	return http.ListenAndServe(cfg.Addr, mux)
}

func newStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		return store.NewPostgresStore(ctx, cfg.DatabaseURL)
	}
	return store.NewMemoryStore(), nil
}
