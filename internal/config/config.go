package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the meditation service. It is
// built once in Load and passed by reference; nothing reads the environment
// after startup.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	PublicBaseURL    string
	AllowAnyOrigin   bool

	ElevenLabsAPIKey  string
	ElevenLabsBaseURL string
	ElevenLabsModelID string
	SynthesisTimeout  time.Duration

	AudioPrimaryRoot  string
	AudioFallbackRoot string

	DatabaseURL string

	PlaybackInactivityTimeout time.Duration
}

// Load reads environment variables and applies safe defaults. A local .env
// file is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "stillpoint"),
		PublicBaseURL:     envOrDefault("APP_PUBLIC_BASE_URL", "http://localhost:8080"),
		AllowAnyOrigin:    false,
		ElevenLabsAPIKey:  trimmedEnv("ELEVENLABS_API_KEY"),
		ElevenLabsBaseURL: envOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		ElevenLabsModelID: envOrDefault("ELEVENLABS_TTS_MODEL_ID", "eleven_multilingual_v2"),
		// Meditation scripts are long; provider synthesis regularly takes
		// tens of seconds.
		SynthesisTimeout:          90 * time.Second,
		AudioPrimaryRoot:          envOrDefault("AUDIO_PRIMARY_ROOT", "/var/lib/stillpoint/audio"),
		AudioFallbackRoot:         envOrDefault("AUDIO_FALLBACK_ROOT", filepath.Join(os.TempDir(), "stillpoint-audio")),
		DatabaseURL:               trimmedEnv("DATABASE_URL"),
		ShutdownTimeout:           15 * time.Second,
		PlaybackInactivityTimeout: 30 * time.Minute,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SynthesisTimeout, err = durationFromEnv("SYNTHESIS_TIMEOUT", cfg.SynthesisTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.PlaybackInactivityTimeout, err = durationFromEnv("PLAYBACK_INACTIVITY_TIMEOUT", cfg.PlaybackInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SynthesisTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("SYNTHESIS_TIMEOUT must be at least 5s")
	}
	if cfg.PlaybackInactivityTimeout < time.Minute {
		return Config{}, fmt.Errorf("PLAYBACK_INACTIVITY_TIMEOUT must be at least 1m")
	}
	if strings.TrimSpace(cfg.AudioPrimaryRoot) == "" || strings.TrimSpace(cfg.AudioFallbackRoot) == "" {
		return Config{}, fmt.Errorf("audio roots must not be empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
