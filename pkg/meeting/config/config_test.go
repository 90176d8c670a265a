package config

import (
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"BOARDROOM_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"BOARDROOM_MODEL", "BOARDROOM_IMAGE_MODEL",
		"BOARDROOM_INPUT_SAMPLE_RATE", "BOARDROOM_OUTPUT_SAMPLE_RATE",
		"BOARDROOM_ADDR", "BOARDROOM_DATABASE_URL", "DATABASE_URL",
		"BOARDROOM_CONNECT_TIMEOUT", "BOARDROOM_DISPATCH_TIMEOUT",
		"BOARDROOM_MAX_PERSONAS", "BOARDROOM_MAX_SESSION_DURATION",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Model != "gemini-2.0-flash-exp" {
		t.Fatalf("Model = %q", cfg.Model)
	}
	if cfg.InputSampleRate != 16000 || cfg.OutputSampleRate != 24000 {
		t.Fatalf("sample rates = %d/%d", cfg.InputSampleRate, cfg.OutputSampleRate)
	}
	if cfg.Addr != ":8000" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.ConnectTimeout != 15*time.Second {
		t.Fatalf("ConnectTimeout = %v", cfg.ConnectTimeout)
	}
	if cfg.DispatchTimeout != 30*time.Second {
		t.Fatalf("DispatchTimeout = %v", cfg.DispatchTimeout)
	}
	if cfg.MaxPersonas != 10 {
		t.Fatalf("MaxPersonas = %d", cfg.MaxPersonas)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("BOARDROOM_MODEL", "gemini-2.5-flash")
	t.Setenv("BOARDROOM_ADDR", ":9999")
	t.Setenv("BOARDROOM_DISPATCH_TIMEOUT", "5s")
	t.Setenv("BOARDROOM_MAX_PERSONAS", "3")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Model != "gemini-2.5-flash" {
		t.Fatalf("Model = %q", cfg.Model)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.DispatchTimeout != 5*time.Second {
		t.Fatalf("DispatchTimeout = %v", cfg.DispatchTimeout)
	}
	if cfg.MaxPersonas != 3 {
		t.Fatalf("MaxPersonas = %d", cfg.MaxPersonas)
	}
}

func TestAPIKeyFallbackChain(t *testing.T) {
	t.Setenv("BOARDROOM_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "from-gemini")
	t.Setenv("GOOGLE_API_KEY", "from-google")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.GeminiAPIKey != "from-gemini" {
		t.Fatalf("GeminiAPIKey = %q, want from-gemini", cfg.GeminiAPIKey)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		t.Fatalf("RequireAPIKey: %v", err)
	}
}

func TestRequireAPIKeyFailsWhenUnset(t *testing.T) {
	t.Setenv("BOARDROOM_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if err := cfg.RequireAPIKey(); err == nil {
		t.Fatal("expected RequireAPIKey to fail")
	}
}

func TestInvalidNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("BOARDROOM_INPUT_SAMPLE_RATE", "not-a-number")
	t.Setenv("BOARDROOM_CONNECT_TIMEOUT", "soon")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.InputSampleRate != 16000 {
		t.Fatalf("InputSampleRate = %d", cfg.InputSampleRate)
	}
	if cfg.ConnectTimeout != 15*time.Second {
		t.Fatalf("ConnectTimeout = %v", cfg.ConnectTimeout)
	}
}
