package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/antoniostano/zinger/internal/config"
	"github.com/antoniostano/zinger/internal/generator"
)

type generatorSetup struct {
	generator generator.Generator
	provider  string
	model     string
}

func resolveGenerator(cfg config.Config, logger *zap.Logger) (generatorSetup, error) {
	gen, err := generator.New(generator.Config{
		Mode:        cfg.GeneratorMode,
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.OpenAITemperature,
		Timeout:     cfg.OpenAITimeout,
		HTTPURL:     cfg.GeneratorHTTPURL,
	})
	if err != nil {
		return generatorSetup{}, fmt.Errorf("generator init failed: %w", err)
	}

	setup := generatorSetup{generator: gen, provider: generator.ProviderName(gen)}
	switch setup.provider {
	case generator.ProviderOpenAI:
		setup.model = cfg.OpenAIModel
		logger.Info("generator: openai", zap.String("model", cfg.OpenAIModel), zap.Float64("temperature", cfg.OpenAITemperature))
	case generator.ProviderHTTP:
		logger.Info("generator: http gateway", zap.String("url", cfg.GeneratorHTTPURL))
	case generator.ProviderMock:
		if cfg.GeneratorMode == "auto" {
			logger.Warn("generator: mock (no OPENAI_API_KEY or GENERATOR_HTTP_URL set)")
		} else {
			logger.Info("generator: mock")
		}
	}
	return setup, nil
}
