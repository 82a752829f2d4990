package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/antoniostano/zinger/internal/config"
	"github.com/antoniostano/zinger/internal/conversation"
	"github.com/antoniostano/zinger/internal/httpapi"
	"github.com/antoniostano/zinger/internal/knowledge"
	"github.com/antoniostano/zinger/internal/observability"
	"github.com/antoniostano/zinger/internal/prompt"
	"github.com/antoniostano/zinger/internal/session"
)

type BuildResult struct {
	Config     config.Config
	Knowledge  *knowledge.Base
	Controller *conversation.Controller
	Sessions   *session.Manager
	API        *httpapi.Server
	Metrics    *observability.Metrics
	Status     httpapi.StatusInfo
}

// BuildController loads the knowledge base and persona and wires the
// conversation controller. A knowledge base failure is returned as a
// *knowledge.LoadError.
func BuildController(ctx context.Context, cfg config.Config, logger *zap.Logger, metrics *observability.Metrics) (*conversation.Controller, *knowledge.Base, httpapi.StatusInfo, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	kb, err := knowledge.NewSource(ctx, cfg.KnowledgeBasePath, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, httpapi.StatusInfo{}, err
	}
	source := cfg.KnowledgeBasePath
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		source = "postgres"
	}
	logger.Info("knowledge base loaded", zap.String("source", source), zap.Int("entries", kb.Len()))

	persona, err := prompt.LoadPersona(cfg.PersonaPath)
	if err != nil {
		return nil, nil, httpapi.StatusInfo{}, fmt.Errorf("persona init failed: %w", err)
	}
	assembler := prompt.FromBase(persona, kb, cfg.PromptExampleCount)

	gen, err := resolveGenerator(cfg, logger)
	if err != nil {
		return nil, nil, httpapi.StatusInfo{}, err
	}

	controller := conversation.NewController(assembler, gen.generator, kb, conversation.Config{
		MaxTurns:      cfg.ChatMaxTurns,
		MinReplyRunes: cfg.ChatMinReplyRunes,
	}, logger, metrics)

	info := httpapi.StatusInfo{
		GeneratorProvider: gen.provider,
		GeneratorModel:    gen.model,
		KnowledgeSource:   source,
		KnowledgeEntries:  kb.Len(),
		ExampleCount:      assembler.ExampleCount(),
		CustomPersona:     strings.TrimSpace(cfg.PersonaPath) != "",
		MaxTurns:          controller.Config().MaxTurns,
		MinReplyRunes:     controller.Config().MinReplyRunes,
	}
	return controller, kb, info, nil
}

// Build wires everything the HTTP chat service needs.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	controller, kb, info, err := BuildController(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(s *session.Session) {
		metrics.SessionEvent("expired")
		metrics.SetActiveSessions(sessions.ActiveCount())
		logger.Debug("session expired", zap.String("session_id", s.ID), zap.Int("turns", s.TurnCount))
	})

	api := httpapi.New(cfg, sessions, controller, metrics, logger)
	api.SetStatusInfo(info)

	return &BuildResult{
		Config:     cfg,
		Knowledge:  kb,
		Controller: controller,
		Sessions:   sessions,
		API:        api,
		Metrics:    metrics,
		Status:     info,
	}, nil
}
