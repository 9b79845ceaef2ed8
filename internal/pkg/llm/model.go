// Package llm adapts chat model backends to the conversation types used by
// the itinerary orchestrator.
package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Usage is the token accounting reported by a backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is one assistant turn.
type Completion struct {
	Message models.Message
	Usage   Usage
	Model   string
}

// Model completes a conversation, optionally requesting tool calls.
type Model interface {
	Complete(ctx context.Context, msgs []models.Message, tools []models.ToolSpec) (Completion, error)
	Provider() string
	ModelName() string
}

// Config selects and configures a backend.
type Config struct {
	Provider     string
	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string
}

// New builds the configured backend wrapped with interaction logging.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Model, error) {
	var (
		m   Model
		err error
	)
	switch cfg.Provider {
	case "", ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for provider %q", ProviderOpenAI)
		}
		m = NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for provider %q", ProviderGemini)
		}
		m, err = NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
	return WithLogging(m, logger), nil
}
