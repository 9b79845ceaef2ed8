package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
	"github.com/FACorreiaa/go-travel-planner/internal/app/observability/metrics"
)

// State is the orchestrator's position in the model/tool loop.
type State string

const (
	StateAwaitingModel State = "AWAITING_MODEL"
	StateAwaitingTool  State = "AWAITING_TOOL"
	StateDone          State = "DONE"
)

// Node names reported in steps.
const (
	NodeAssistant = "assistant"
	NodeTools     = "tools"
)

const (
	DefaultMaxRounds = 12
	DefaultTimeout   = 3 * time.Minute
)

var errFinished = errors.New("orchestration already finished")

// Step is emitted after every transition.
type Step struct {
	Node           string           `json:"node"`
	State          State            `json:"state"`
	Round          int              `json:"round"`
	ConversationID string           `json:"conversation_id"`
	Messages       []models.Message `json:"messages"`
	Itinerary      json.RawMessage  `json:"itinerary,omitempty"`
}

// DecodeItinerary parses the final answer into the documented schema.
func (s Step) DecodeItinerary() (*models.Itinerary, error) {
	if len(s.Itinerary) == 0 {
		return nil, errors.New("step carries no itinerary")
	}
	var it models.Itinerary
	if err := json.Unmarshal(s.Itinerary, &it); err != nil {
		return nil, fmt.Errorf("decode itinerary: %w", err)
	}
	return &it, nil
}

// Run is the mutable state of one orchestration.
type Run struct {
	State        State
	Round        int
	Params       models.TripParameters
	Conversation *models.Conversation
}

// NewRun seeds a conversation with the system prompt and the opening message.
func NewRun(params models.TripParameters, opening string) *Run {
	conv := models.NewConversation(uuid.NewString(),
		models.SystemMessage(BuildSystemPrompt(params)),
		models.HumanMessage(opening),
	)
	return &Run{State: StateAwaitingModel, Params: params, Conversation: conv}
}

// Orchestrator drives the model/tool loop.
type Orchestrator struct {
	caps      Capabilities
	maxRounds int
	timeout   time.Duration
	logger    *zap.Logger
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMaxRounds bounds the number of model calls per run.
func WithMaxRounds(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRounds = n
		}
	}
}

// WithTimeout bounds the wall-clock time of a run.
func WithTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(caps Capabilities, logger *zap.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		caps:      caps,
		maxRounds: DefaultMaxRounds,
		timeout:   DefaultTimeout,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Transition performs exactly one state change and reports it as a Step.
func (o *Orchestrator) Transition(ctx context.Context, r *Run) (Step, error) {
	switch r.State {
	case StateAwaitingModel:
		return o.callModel(ctx, r)
	case StateAwaitingTool:
		return o.callTools(ctx, r)
	case StateDone:
		return Step{}, errFinished
	default:
		return Step{}, fmt.Errorf("unknown orchestration state %q", r.State)
	}
}

func (o *Orchestrator) callModel(ctx context.Context, r *Run) (Step, error) {
	if r.Round >= o.maxRounds {
		return Step{}, fmt.Errorf("%w: %d", models.ErrMaxRoundsExceeded, o.maxRounds)
	}
	r.Round++

	msg, err := o.caps.CompleteConversation(ctx, r.Conversation.Messages())
	if err != nil {
		return Step{}, fmt.Errorf("model round %d: %w", r.Round, err)
	}
	msg.Role = models.RoleAssistant
	r.Conversation.Append(msg)
	msg, _ = r.Conversation.Last()

	step := Step{Node: NodeAssistant, Round: r.Round, ConversationID: r.Conversation.ID, Messages: []models.Message{msg}}
	if msg.HasToolCalls() {
		r.State = StateAwaitingTool
	} else {
		r.State = StateDone
		if it := extractItinerary(msg.Content); it != nil {
			r.Params.Itinerary = it
			step.Itinerary = it
		}
	}
	step.State = r.State
	return step, nil
}

// callTools runs sibling tool calls concurrently; results are appended in
// the order the model requested them.
func (o *Orchestrator) callTools(ctx context.Context, r *Run) (Step, error) {
	last, ok := r.Conversation.Last()
	if !ok || !last.HasToolCalls() {
		return Step{}, errors.New("no pending tool calls")
	}

	results := make([]models.Message, len(last.ToolCalls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range last.ToolCalls {
		g.Go(func() error {
			content, err := o.invoke(gctx, r.Conversation.ID, call)
			if err != nil {
				return err
			}
			results[i] = models.ToolResultMessage(call, content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Step{}, err
	}

	r.Conversation.Append(results...)
	msgs := r.Conversation.Messages()
	r.State = StateAwaitingModel
	return Step{
		Node:           NodeTools,
		State:          r.State,
		Round:          r.Round,
		ConversationID: r.Conversation.ID,
		Messages:       msgs[len(msgs)-len(results):],
	}, nil
}

func (o *Orchestrator) invoke(ctx context.Context, conversationID string, call models.ToolCall) (string, error) {
	l := o.logger.With(
		zap.String("method", "invoke"),
		zap.String("conversation_id", conversationID),
		zap.String("tool", call.Name),
		zap.String("tool_call_id", call.ID),
	)

	start := time.Now()
	content, err := o.caps.InvokeTool(ctx, call)
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, models.ErrUnknownTool), errors.Is(err, models.ErrInvalidToolArguments):
		status = "rejected"
		l.Warn("Tool call rejected, reporting back to model", zap.Error(err))
		content = toolError(err)
		err = nil
	default:
		status = "error"
		l.Error("Tool call failed", zap.Error(err))
	}
	metrics.Get().ToolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", call.Name),
		attribute.String("status", status),
	))
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", call.Name, err)
	}
	l.Debug("Tool call completed", zap.Duration("duration", time.Since(start)))
	return content, nil
}

// Run drives a fresh orchestration to DONE, calling emit after every
// transition. It returns the final step.
func (o *Orchestrator) Run(ctx context.Context, params models.TripParameters, opening string, emit func(Step) error) (Step, error) {
	r := NewRun(params, opening)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	ctx, span := otel.Tracer("ItineraryOrchestrator").Start(ctx, "Run", trace.WithAttributes(
		attribute.String("conversation.id", r.Conversation.ID),
		attribute.StringSlice("trip.cities", params.Cities),
		attribute.Int("trip.days", params.Days),
	))
	defer span.End()

	l := o.logger.With(zap.String("method", "Run"), zap.String("conversation_id", r.Conversation.ID))
	l.Info("Starting itinerary orchestration", zap.Strings("cities", params.Cities), zap.Int("days", params.Days))

	var last Step
	for r.State != StateDone {
		step, err := o.Transition(ctx, r)
		if err != nil {
			if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
				err = fmt.Errorf("orchestration timed out after %s: %w", o.timeout, err)
			}
			l.Error("Orchestration failed", zap.Int("round", r.Round), zap.String("state", string(r.State)), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "orchestration failed")
			return Step{}, err
		}
		last = step
		if emit != nil {
			if err := emit(step); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "emit failed")
				return Step{}, fmt.Errorf("emit step: %w", err)
			}
		}
	}

	metrics.Get().ItineraryRounds.Record(ctx, int64(r.Round))
	l.Info("Itinerary orchestration finished",
		zap.Int("rounds", r.Round),
		zap.Int("messages", r.Conversation.Len()),
		zap.Bool("itinerary_json", len(last.Itinerary) > 0))
	span.SetAttributes(attribute.Int("orchestration.rounds", r.Round))
	span.SetStatus(codes.Ok, "itinerary generated")
	return last, nil
}

// extractItinerary returns the final answer as JSON when it is an object,
// tolerating a fenced code block around it.
func extractItinerary(content string) json.RawMessage {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if !strings.HasPrefix(s, "{") || !json.Valid([]byte(s)) {
		return nil
	}
	return json.RawMessage(s)
}

func toolError(err error) string {
	out, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(out)
}
