package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want :8080", cfg.BindAddr)
	}
	if cfg.SynthesisTimeout != 90*time.Second {
		t.Fatalf("SynthesisTimeout = %v, want 90s", cfg.SynthesisTimeout)
	}
	if cfg.ElevenLabsBaseURL != "https://api.elevenlabs.io" {
		t.Fatalf("ElevenLabsBaseURL = %q", cfg.ElevenLabsBaseURL)
	}
	if cfg.AudioFallbackRoot == "" {
		t.Fatalf("AudioFallbackRoot should default to a temp dir")
	}
}

func TestLoadRejectsShortSynthesisTimeout(t *testing.T) {
	t.Setenv("SYNTHESIS_TIMEOUT", "1s")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() succeeded with a 1s synthesis timeout, want error")
	}
}

func TestLoadRejectsBadBool(t *testing.T) {
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "maybe")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() succeeded with an invalid bool, want error")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_BIND_ADDR", ":9999")
	t.Setenv("SYNTHESIS_TIMEOUT", "45s")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9999" {
		t.Fatalf("BindAddr = %q, want :9999", cfg.BindAddr)
	}
	if cfg.SynthesisTimeout != 45*time.Second {
		t.Fatalf("SynthesisTimeout = %v, want 45s", cfg.SynthesisTimeout)
	}
	if !cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin = false, want true")
	}
}
