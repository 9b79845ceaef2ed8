package itinerary

import (
	"context"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
	"github.com/FACorreiaa/go-travel-planner/internal/pkg/llm"
)

// Capabilities are the two effects the orchestrator needs.
type Capabilities interface {
	CompleteConversation(ctx context.Context, msgs []models.Message) (models.Message, error)
	InvokeTool(ctx context.Context, call models.ToolCall) (string, error)
}

// Agent binds a language model to the toolbox.
type Agent struct {
	model llm.Model
	tools *Toolbox
}

// NewAgent creates an Agent.
func NewAgent(model llm.Model, tools *Toolbox) *Agent {
	return &Agent{model: model, tools: tools}
}

// CompleteConversation asks the model for the next assistant turn with the
// toolbox bound.
func (a *Agent) CompleteConversation(ctx context.Context, msgs []models.Message) (models.Message, error) {
	c, err := a.model.Complete(ctx, msgs, a.tools.Specs())
	if err != nil {
		return models.Message{}, err
	}
	c.Message.Role = models.RoleAssistant
	return c.Message, nil
}

// InvokeTool runs one requested tool.
func (a *Agent) InvokeTool(ctx context.Context, call models.ToolCall) (string, error) {
	return a.tools.Invoke(ctx, call.Name, call.Arguments)
}
