package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIModel talks to the Chat Completions API with function tools.
type OpenAIModel struct {
	client openai.Client
	model  string
}

// NewOpenAI creates a Chat Completions backend.
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) *OpenAIModel {
	if model == "" {
		model = defaultOpenAIModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIModel{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (m *OpenAIModel) Provider() string  { return ProviderOpenAI }
func (m *OpenAIModel) ModelName() string { return m.model }

// Complete sends the whole history and returns the assistant turn.
func (m *OpenAIModel) Complete(ctx context.Context, msgs []models.Message, tools []models.ToolSpec) (Completion, error) {
	ctx, span := otel.Tracer("OpenAIModel").Start(ctx, "Complete", trace.WithAttributes(
		attribute.String("llm.model", m.model),
		attribute.Int("llm.messages", len(msgs)),
	))
	defer span.End()

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(m.model),
		Messages: toOpenAIMessages(msgs),
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		return Completion{}, fmt.Errorf("%w: openai: %w", models.ErrModel, err)
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("%w: openai returned no choices", models.ErrModel)
		span.RecordError(err)
		span.SetStatus(codes.Error, "empty completion")
		return Completion{}, err
	}

	choice := resp.Choices[0].Message
	out := models.Message{Role: models.RoleAssistant, Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: rawArguments(tc.Function.Arguments),
		})
	}

	span.SetAttributes(attribute.Int("llm.tool_calls", len(out.ToolCalls)))
	span.SetStatus(codes.Ok, "completion received")
	return Completion{
		Message: out,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func toOpenAIMessages(msgs []models.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case models.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case models.RoleHuman:
			out = append(out, openai.UserMessage(msg.Content))
		case models.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		case models.RoleAssistant:
			if !msg.HasToolCalls() {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: argumentString(tc.Arguments),
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		}
	}
	return out
}

func toOpenAITools(tools []models.ToolSpec) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters.Map()),
			},
		})
	}
	return out
}

// rawArguments keeps valid JSON as-is and quotes anything else, so a
// malformed argument string reaches the tool layer as a decode error.
func rawArguments(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("{}")
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	quoted, _ := json.Marshal(s)
	return quoted
}

func argumentString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
