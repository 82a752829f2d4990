package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the chat service and console.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	KnowledgeBasePath string
	DatabaseURL       string

	PersonaPath        string
	PromptExampleCount int

	ChatMaxTurns      int
	ChatMinReplyRunes int

	GeneratorMode     string
	GeneratorHTTPURL  string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAITemperature float64
	OpenAITimeout     time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "zinger"),
		AllowAnyOrigin:    false,
		KnowledgeBasePath: envOrDefault("KNOWLEDGE_BASE_PATH", "data/knowledge_base.json"),
		DatabaseURL:       stringsTrimSpace("DATABASE_URL"),
		PersonaPath:       stringsTrimSpace("PERSONA_PATH"),
		// Few-shot examples are taken from the front of the knowledge base.
		PromptExampleCount: 5,
		ChatMaxTurns:       5,
		ChatMinReplyRunes:  20,
		GeneratorMode:      strings.ToLower(envOrDefault("GENERATOR_MODE", "auto")),
		GeneratorHTTPURL:   stringsTrimSpace("GENERATOR_HTTP_URL"),
		OpenAIAPIKey:       stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:      stringsTrimSpace("OPENAI_BASE_URL"),
		OpenAIModel:        envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITemperature:  0.7,
		OpenAITimeout:      60 * time.Second,

		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAITimeout, err = durationFromEnv("OPENAI_TIMEOUT", cfg.OpenAITimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.PromptExampleCount, err = intFromEnv("PROMPT_EXAMPLE_COUNT", cfg.PromptExampleCount)
	if err != nil {
		return Config{}, err
	}
	cfg.ChatMaxTurns, err = intFromEnv("CHAT_MAX_TURNS", cfg.ChatMaxTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.ChatMinReplyRunes, err = intFromEnv("CHAT_MIN_REPLY_RUNES", cfg.ChatMinReplyRunes)
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAITemperature, err = floatFromEnv("OPENAI_TEMPERATURE", cfg.OpenAITemperature)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.PromptExampleCount < 0 {
		return Config{}, fmt.Errorf("PROMPT_EXAMPLE_COUNT must be >= 0")
	}
	if cfg.ChatMaxTurns <= 0 {
		return Config{}, fmt.Errorf("CHAT_MAX_TURNS must be positive")
	}
	if cfg.ChatMinReplyRunes <= 0 {
		return Config{}, fmt.Errorf("CHAT_MIN_REPLY_RUNES must be positive")
	}
	if cfg.OpenAITemperature < 0 || cfg.OpenAITemperature > 2 {
		return Config{}, fmt.Errorf("OPENAI_TEMPERATURE must be within [0, 2]")
	}
	switch cfg.GeneratorMode {
	case "auto", "openai", "http", "mock":
	default:
		return Config{}, fmt.Errorf("GENERATOR_MODE must be one of auto, openai, http, mock")
	}
	if cfg.GeneratorMode == "openai" && cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("GENERATOR_MODE=openai requires OPENAI_API_KEY")
	}
	if cfg.GeneratorMode == "http" && cfg.GeneratorHTTPURL == "" {
		return Config{}, fmt.Errorf("GENERATOR_MODE=http requires GENERATOR_HTTP_URL")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
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
