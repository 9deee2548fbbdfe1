package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
)

// Service implements interfaces.LLMService on top of the provider
// factory, adding a client-side rate limiter and per-call timeout.
type Service struct {
	factory  *ProviderFactory
	provider ProviderType
	model    string
	timeout  time.Duration
	limiter  *rate.Limiter
	logger   arbor.ILogger
}

// NewService creates an LLM service for the configured default provider
func NewService(config *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *Service {
	factory := NewProviderFactory(&config.Gemini, &config.Claude, &config.LLM, kvStorage, logger)

	provider := ProviderType(config.LLM.DefaultProvider)
	var model string
	var timeout, interval time.Duration

	switch provider {
	case ProviderClaude:
		model = config.Claude.Model
		timeout = common.ParseDurationOr(config.Claude.Timeout, 5*time.Minute)
		interval = common.ParseDurationOr(config.Claude.RateLimit, time.Second)
	default:
		provider = ProviderGemini
		model = config.Gemini.Model
		timeout = common.ParseDurationOr(config.Gemini.Timeout, 5*time.Minute)
		interval = common.ParseDurationOr(config.Gemini.RateLimit, 4*time.Second)
	}

	return &Service{
		factory:  factory,
		provider: provider,
		model:    model,
		timeout:  timeout,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		logger:   logger,
	}
}

// Chat generates a completion for the conversation history
func (s *Service) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return s.generate(ctx, messages, nil)
}

// ChatStructured generates a completion constrained to the given schema
func (s *Service) ChatStructured(ctx context.Context, messages []interfaces.Message, schema *interfaces.ResponseSchema) (string, error) {
	return s.generate(ctx, messages, schema)
}

func (s *Service) generate(ctx context.Context, messages []interfaces.Message, schema *interfaces.ResponseSchema) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.factory.GenerateContent(callCtx, &ContentRequest{
		Messages:     messages,
		Model:        s.model,
		OutputSchema: schema,
	})
	if err != nil {
		return "", err
	}

	return resp.Text, nil
}

// ProviderName returns the provider identifier
func (s *Service) ProviderName() string {
	return string(s.provider)
}

// Close releases provider resources
func (s *Service) Close() error {
	return s.factory.Close()
}
