package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/antoniostano/zinger/internal/config"
	"github.com/antoniostano/zinger/internal/generator"
	"github.com/antoniostano/zinger/internal/knowledge"
)

func testConfig(t *testing.T, kbBody string) config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.json")
	if err := os.WriteFile(path, []byte(kbBody), 0o600); err != nil {
		t.Fatalf("write kb: %v", err)
	}
	return config.Config{
		BindAddr:                 ":0",
		SessionInactivityTimeout: time.Minute,
		MetricsNamespace:         "test_app",
		KnowledgeBasePath:        path,
		PromptExampleCount:       5,
		ChatMaxTurns:             5,
		ChatMinReplyRunes:        20,
		GeneratorMode:            "mock",
	}
}

func TestBuildWiresMockGenerator(t *testing.T) {
	cfg := testConfig(t, `{"faqs":[{"question":"Koliko traje kurs?","answer":"30 dana."}]}`)

	res, err := Build(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if res.Status.GeneratorProvider != generator.ProviderMock {
		t.Fatalf("GeneratorProvider = %q, want %q", res.Status.GeneratorProvider, generator.ProviderMock)
	}
	if res.Status.KnowledgeEntries != 1 || res.Status.ExampleCount != 1 {
		t.Fatalf("status = %+v", res.Status)
	}

	state := res.Controller.NewState()
	next, turn, err := res.Controller.Respond(context.Background(), state, "Zdravo")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if turn.Text == "" || next.ConversationTurns() != 2 {
		t.Fatalf("unexpected turn %+v", turn)
	}
}

func TestBuildFailsOnMalformedKnowledgeBase(t *testing.T) {
	cfg := testConfig(t, `{"faqs":[{"question":"","answer":"x"}]}`)

	_, err := Build(context.Background(), cfg, zaptest.NewLogger(t))
	var loadErr *knowledge.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Build() error = %v, want *knowledge.LoadError", err)
	}
}

func TestBuildFailsOnMissingPersonaFile(t *testing.T) {
	cfg := testConfig(t, `[{"question":"q","answer":"a"}]`)
	cfg.PersonaPath = filepath.Join(t.TempDir(), "missing.md")

	if _, err := Build(context.Background(), cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("Build() should fail when the persona file is missing")
	}
}
