package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/careerpath-ai/internal/ai"
	"github.com/spigell/careerpath-ai/internal/ai/gemini"
	"github.com/spigell/careerpath-ai/internal/ai/mock"
	"github.com/spigell/careerpath-ai/internal/ai/ollama"
	"github.com/spigell/careerpath-ai/internal/ai/prompt"
	"github.com/spigell/careerpath-ai/internal/logger"
	"github.com/spigell/careerpath-ai/internal/matching"
	"github.com/spigell/careerpath-ai/internal/secrets"
)

const (
	providerOllama = "ollama"
	providerGemini = "gemini"
	providerMock   = "mock"
)

type prober interface {
	IsAvailable(ctx context.Context) bool
}

// aiRuntime is the matcher selected at start-up together with what it talks to.
type aiRuntime struct {
	matcher  ai.Matcher
	prober   prober
	provider string
	model    string
}

func newAIRuntime(ctx context.Context, cfg *AIConfig, l *zap.Logger) (*aiRuntime, error) {
	if cfg.Mock {
		var responses MockResponsesConfig
		if cfg.MockResponses != nil {
			responses = *cfg.MockResponses
		}
		matcher, err := mock.NewMatcher(responses.CoverLetter, responses.Analysis)
		if err != nil {
			return nil, err
		}
		return &aiRuntime{matcher: matcher, prober: matcher, provider: providerMock}, nil
	}

	gateway, model, err := newGateway(ctx, cfg, l)
	if err != nil {
		return nil, err
	}
	provider := normalizeProvider(cfg.Provider)

	builder, err := prompt.NewBuilder(cfg.Locale, cfg.CoverLetterMaxWords)
	if err != nil {
		return nil, err
	}

	service := matching.NewService(gateway, builder, matching.Config{
		Timeout:          time.Duration(cfg.TimeoutMS) * time.Millisecond,
		BoundStrictRetry: cfg.BoundStrictRetry,
		MaxLogLength:     cfg.MaxLogLength,
	}, logger.WithCommonFields(l, provider, model))

	return &aiRuntime{matcher: service, prober: gateway, provider: provider, model: model}, nil
}

func newGateway(ctx context.Context, cfg *AIConfig, l *zap.Logger) (ai.Gateway, string, error) {
	switch provider := normalizeProvider(cfg.Provider); provider {
	case providerOllama:
		var oc OllamaConfig
		if cfg.Ollama != nil {
			oc = *cfg.Ollama
		}
		client := ollama.New(oc.URL, oc.Model, logger.WithCommonFields(l, provider, oc.Model))
		return client, client.Model(), nil

	case providerGemini:
		var gc GeminiConfig
		if cfg.Gemini != nil {
			gc = *cfg.Gemini
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: gc.APIKey,
			File:  gc.APIKeyFile,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, "", fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
		}
		generator, err := gemini.NewGenerator(ctx, apiKey, gc.Model, logger.WithCommonFields(l, provider, gc.Model))
		if err != nil {
			return nil, "", err
		}
		return generator, generator.Model(), nil

	default:
		return nil, "", fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return providerOllama
	}
	return provider
}
