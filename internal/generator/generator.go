package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role names a prompt message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of an assembled prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is the structured prompt sent to a text-generation service.
type Request struct {
	Messages []Message `json:"messages"`
}

// LastUserText returns the content of the final user message, if any.
func (r Request) LastUserText() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Completion is the generated reply.
type Completion struct {
	Text     string `json:"text"`
	Model    string `json:"model,omitempty"`
	Provider string `json:"provider"`
}

// Generator turns a structured prompt into text. Every failure it returns is a
// *GenerationError so callers can inspect the kind without string matching.
type Generator interface {
	Generate(ctx context.Context, req Request) (Completion, error)
}

// Config controls generator construction.
type Config struct {
	Mode        string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	HTTPURL     string
}

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.7
)

// New resolves the configured mode. In auto mode OpenAI is used when an API
// key is present, otherwise the deterministic mock.
func New(cfg Config) (Generator, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewOpenAI(cfg)
		}
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPGenerator(cfg.HTTPURL, cfg.Timeout), nil
		}
		return NewMock(), nil
	case "openai":
		return NewOpenAI(cfg)
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("generator HTTP url is required for http mode")
		}
		return NewHTTPGenerator(cfg.HTTPURL, cfg.Timeout), nil
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unsupported generator mode %q", cfg.Mode)
	}
}

// ProviderName reports which backend a generator talks to.
func ProviderName(g Generator) string {
	switch g.(type) {
	case *OpenAI:
		return ProviderOpenAI
	case *HTTPGenerator:
		return ProviderHTTP
	case *Mock:
		return ProviderMock
	default:
		return "custom"
	}
}
