// Package config loads boardroom configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/boardroomlabs/boardroom/pkg/core"
)

// Config holds every tunable the meeting packages read.
type Config struct {
	// GeminiAPIKey authenticates the live engine and image generation.
	GeminiAPIKey string

	// Model is the live conversational model.
	Model string

	// ImageModel backs the generate_image tool.
	ImageModel string

	// Audio formats are fixed by the engine contract: 16 kHz PCM in,
	// 24 kHz PCM out, 16-bit mono.
	InputSampleRate  int
	OutputSampleRate int

	// Addr is the gateway listen address.
	Addr string

	// DatabaseURL enables the Postgres store when non-empty; the in-memory
	// store is used otherwise.
	DatabaseURL string

	// ConnectTimeout bounds the engine connect handshake when the caller's
	// context has no deadline.
	ConnectTimeout time.Duration

	// DispatchTimeout bounds one remote delegation call.
	DispatchTimeout time.Duration

	MaxPersonas        int
	MaxSessionDuration time.Duration
}

// LoadFromEnv reads BOARDROOM_* variables, applying defaults for anything
// unset.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		GeminiAPIKey:       firstEnv("BOARDROOM_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"),
		Model:              envOr("BOARDROOM_MODEL", "gemini-2.0-flash-exp"),
		ImageModel:         envOr("BOARDROOM_IMAGE_MODEL", "imagen-3.0-generate-002"),
		InputSampleRate:    envIntOr("BOARDROOM_INPUT_SAMPLE_RATE", 16000),
		OutputSampleRate:   envIntOr("BOARDROOM_OUTPUT_SAMPLE_RATE", 24000),
		Addr:               envOr("BOARDROOM_ADDR", ":8000"),
		DatabaseURL:        firstEnv("BOARDROOM_DATABASE_URL", "DATABASE_URL"),
		ConnectTimeout:     envDurationOr("BOARDROOM_CONNECT_TIMEOUT", 15*time.Second),
		DispatchTimeout:    envDurationOr("BOARDROOM_DISPATCH_TIMEOUT", 30*time.Second),
		MaxPersonas:        envIntOr("BOARDROOM_MAX_PERSONAS", 10),
		MaxSessionDuration: envDurationOr("BOARDROOM_MAX_SESSION_DURATION", time.Hour),
	}

	if cfg.InputSampleRate <= 0 || cfg.OutputSampleRate <= 0 {
		return Config{}, core.NewConfigError("sample rates must be positive")
	}
	if cfg.MaxPersonas <= 0 {
		return Config{}, core.NewConfigError("BOARDROOM_MAX_PERSONAS must be positive")
	}
	return cfg, nil
}

// RequireAPIKey fails when no engine credential is configured.
func (c Config) RequireAPIKey() error {
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		return core.NewConfigError("missing Gemini API key (set BOARDROOM_GEMINI_API_KEY or GEMINI_API_KEY)")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func envIntOr(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
