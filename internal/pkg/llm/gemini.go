package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"
	geminiRoleUser     = "user"
	geminiRoleModel    = "model"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiModel talks to the Gemini API with function declarations.
type GeminiModel struct {
	models contentGenerator
	model  string
}

// NewGemini creates a Gemini backend.
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	ctx, span := otel.Tracer("GeminiModel").Start(ctx, "NewGemini")
	defer span.End()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create Gemini client")
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiModel{models: client.Models, model: model}, nil
}

func (m *GeminiModel) Provider() string  { return ProviderGemini }
func (m *GeminiModel) ModelName() string { return m.model }

// Complete sends the history and collects text and function calls from the
// first candidate.
func (m *GeminiModel) Complete(ctx context.Context, msgs []models.Message, tools []models.ToolSpec) (Completion, error) {
	ctx, span := otel.Tracer("GeminiModel").Start(ctx, "Complete", trace.WithAttributes(
		attribute.String("llm.model", m.model),
		attribute.Int("llm.messages", len(msgs)),
	))
	defer span.End()

	system, contents := toGeminiContents(msgs)
	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if len(tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: toGeminiDeclarations(tools)}}
	}

	resp, err := m.models.GenerateContent(ctx, m.model, contents, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate content")
		return Completion{}, fmt.Errorf("%w: gemini: %w", models.ErrModel, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		err := fmt.Errorf("%w: gemini returned no candidates", models.ErrModel)
		span.RecordError(err)
		span.SetStatus(codes.Error, "empty response")
		return Completion{}, err
	}

	out := fromGeminiContent(resp.Candidates[0].Content)
	c := Completion{Message: out, Model: m.model}
	if resp.ModelVersion != "" {
		c.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		c.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	span.SetAttributes(attribute.Int("llm.tool_calls", len(out.ToolCalls)))
	span.SetStatus(codes.Ok, "Content generated successfully")
	return c, nil
}

// toGeminiContents folds system messages into the system instruction and
// groups consecutive tool results into one user turn.
func toGeminiContents(msgs []models.Message) (*genai.Content, []*genai.Content) {
	var (
		systemParts []*genai.Part
		contents    []*genai.Content
	)
	for _, msg := range msgs {
		switch msg.Role {
		case models.RoleSystem:
			systemParts = append(systemParts, &genai.Part{Text: msg.Content})
		case models.RoleHuman:
			contents = append(contents, &genai.Content{
				Role:  geminiRoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case models.RoleAssistant:
			c := &genai.Content{Role: geminiRoleModel}
			if msg.Content != "" {
				c.Parts = append(c.Parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				c.Parts = append(c.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: argumentMap(tc.Arguments),
				}})
			}
			if len(c.Parts) > 0 {
				contents = append(contents, c)
			}
		case models.RoleTool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     msg.Name,
				Response: map[string]any{"output": toolOutput(msg.Content)},
			}}
			if n := len(contents); n > 0 && contents[n-1].Role == geminiRoleUser && isFunctionResponseTurn(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: geminiRoleUser, Parts: []*genai.Part{part}})
		}
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = &genai.Content{Parts: systemParts}
	}
	return system, contents
}

func isFunctionResponseTurn(c *genai.Content) bool {
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return len(c.Parts) > 0
}

func fromGeminiContent(c *genai.Content) models.Message {
	out := models.Message{Role: models.RoleAssistant}
	var text strings.Builder
	for _, p := range c.Parts {
		if p == nil {
			continue
		}
		if p.Text != "" && !p.Thought {
			text.WriteString(p.Text)
		}
		if fc := p.FunctionCall; fc != nil {
			id := fc.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			args, err := json.Marshal(fc.Args)
			if err != nil || fc.Args == nil {
				args = json.RawMessage("{}")
			}
			out.ToolCalls = append(out.ToolCalls, models.ToolCall{ID: id, Name: fc.Name, Arguments: args})
		}
	}
	out.Content = text.String()
	return out
}

func toGeminiDeclarations(tools []models.ToolSpec) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		out = append(out, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toGeminiSchema(t.Parameters),
		})
	}
	return out
}

var geminiTypes = map[string]genai.Type{
	"object":  genai.TypeObject,
	"string":  genai.TypeString,
	"integer": genai.TypeInteger,
	"number":  genai.TypeNumber,
	"array":   genai.TypeArray,
	"boolean": genai.TypeBoolean,
}

func toGeminiSchema(s *models.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        geminiTypes[s.Type],
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       toGeminiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGeminiSchema(p)
		}
	}
	return out
}

func argumentMap(raw json.RawMessage) map[string]any {
	args := map[string]any{}
	if len(raw) == 0 {
		return args
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{}
	}
	return args
}

// toolOutput passes structured tool results through as JSON values.
func toolOutput(content string) any {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err == nil {
		return v
	}
	return content
}
