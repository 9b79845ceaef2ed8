package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
	"github.com/FACorreiaa/go-travel-planner/internal/app/observability/metrics"
)

// Pricing in USD per 1M tokens.
var modelPricing = map[string]struct {
	InputPer1M  float64
	OutputPer1M float64
}{
	"gpt-4o-mini":      {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4o":           {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gemini-1.5-flash": {InputPer1M: 0.075, OutputPer1M: 0.30},
	"gemini-2.0-flash": {InputPer1M: 0.10, OutputPer1M: 0.40},
}

// CalculateCost estimates the cost in USD of one call. The longest matching
// pricing key wins so "gpt-4o-mini" is not billed as "gpt-4o".
func CalculateCost(modelName string, promptTokens, completionTokens int) float64 {
	normalized := strings.ToLower(modelName)
	best := ""
	for key := range modelPricing {
		if strings.Contains(normalized, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return 0
	}
	p := modelPricing[best]
	return float64(promptTokens)/1_000_000*p.InputPer1M + float64(completionTokens)/1_000_000*p.OutputPer1M
}

// HashPrompt creates a SHA256 hash of the prompt for anonymized tracking
func HashPrompt(prompt string) string {
	hash := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(hash[:])
}

type loggingModel struct {
	next   Model
	logger *zap.Logger
}

// WithLogging records latency, token usage and requested tools of every call.
// Prompts are logged only as hashes.
func WithLogging(next Model, logger *zap.Logger) Model {
	return &loggingModel{next: next, logger: logger}
}

func (m *loggingModel) Provider() string  { return m.next.Provider() }
func (m *loggingModel) ModelName() string { return m.next.ModelName() }

func (m *loggingModel) Complete(ctx context.Context, msgs []models.Message, tools []models.ToolSpec) (Completion, error) {
	l := m.logger.With(
		zap.String("method", "Complete"),
		zap.String("provider", m.next.Provider()),
		zap.String("model", m.next.ModelName()),
	)

	start := time.Now()
	c, err := m.next.Complete(ctx, msgs, tools)
	latency := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.Get().ModelCallDuration.Record(ctx, latency.Seconds(), metric.WithAttributes(
		attribute.String("provider", m.next.Provider()),
		attribute.String("status", status),
	))

	if err != nil {
		l.Error("LLM call failed",
			zap.Int("messages", len(msgs)),
			zap.Duration("latency", latency),
			zap.Error(err))
		return c, err
	}

	names := lo.Map(c.Message.ToolCalls, func(tc models.ToolCall, _ int) string { return tc.Name })
	l.Info("LLM call completed",
		zap.String("prompt_hash", HashPrompt(systemPrompt(msgs))),
		zap.Int("messages", len(msgs)),
		zap.Duration("latency", latency),
		zap.Int("prompt_tokens", c.Usage.PromptTokens),
		zap.Int("completion_tokens", c.Usage.CompletionTokens),
		zap.Float64("cost_estimate_usd", CalculateCost(c.Model, c.Usage.PromptTokens, c.Usage.CompletionTokens)),
		zap.Strings("tool_calls", names),
	)
	return c, nil
}

func systemPrompt(msgs []models.Message) string {
	for _, msg := range msgs {
		if msg.Role == models.RoleSystem {
			return msg.Content
		}
	}
	return ""
}
