package httpapi

import (
	"fmt"
	"net/http"
)

// StatusInfo describes how the service was assembled at startup.
type StatusInfo struct {
	GeneratorProvider string `json:"generator_provider"`
	GeneratorModel    string `json:"generator_model,omitempty"`
	KnowledgeSource   string `json:"knowledge_source"`
	KnowledgeEntries  int    `json:"knowledge_entries"`
	ExampleCount      int    `json:"example_count"`
	CustomPersona     bool   `json:"custom_persona"`
	MaxTurns          int    `json:"max_turns"`
	MinReplyRunes     int    `json:"min_reply_runes"`
}

type statusCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok|warn|error
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

type statusResponse struct {
	StatusInfo
	ActiveSessions int           `json:"active_sessions"`
	Checks         []statusCheck `json:"checks"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, statusResponse{
		StatusInfo:     s.info,
		ActiveSessions: s.sessions.ActiveCount(),
		Checks:         s.statusChecks(),
	})
}

func (s *Server) statusChecks() []statusCheck {
	info := s.info
	checks := make([]statusCheck, 0, 4)

	switch info.GeneratorProvider {
	case "":
		checks = append(checks, statusCheck{
			ID:     "generator",
			Status: "error",
			Label:  "Reply generator",
			Detail: "not configured",
		})
	case "mock":
		checks = append(checks, statusCheck{
			ID:     "generator",
			Status: "warn",
			Label:  "Reply generator",
			Detail: "mock replies only",
			Fix:    "Set OPENAI_API_KEY or GENERATOR_HTTP_URL to use a real model.",
		})
	default:
		detail := info.GeneratorProvider
		if info.GeneratorModel != "" {
			detail = fmt.Sprintf("%s (%s)", info.GeneratorProvider, info.GeneratorModel)
		}
		checks = append(checks, statusCheck{
			ID:     "generator",
			Status: "ok",
			Label:  "Reply generator",
			Detail: detail,
		})
	}

	kb := statusCheck{
		ID:     "knowledge_base",
		Status: "ok",
		Label:  "FAQ knowledge base",
		Detail: fmt.Sprintf("%d entries from %s", info.KnowledgeEntries, info.KnowledgeSource),
	}
	if info.KnowledgeEntries == 0 {
		kb.Status = "error"
		kb.Fix = "Check KNOWLEDGE_BASE_PATH or DATABASE_URL."
	}
	checks = append(checks, kb)

	if info.ExampleCount == 0 && info.KnowledgeEntries > 0 {
		checks = append(checks, statusCheck{
			ID:     "prompt_examples",
			Status: "warn",
			Label:  "Prompt examples",
			Detail: "no worked examples in the prompt",
			Fix:    "Set PROMPT_EXAMPLE_COUNT above zero.",
		})
	}

	persona := "built-in"
	if info.CustomPersona {
		persona = "custom file"
	}
	checks = append(checks, statusCheck{
		ID:     "persona",
		Status: "ok",
		Label:  "Persona block",
		Detail: persona,
	})
	return checks
}
