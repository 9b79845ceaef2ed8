package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
	"github.com/FACorreiaa/go-travel-planner/internal/pkg/llm"
)

const finalItinerary = `{
  "trip_details": {"destination": "Hunza", "duration": 3, "travel_date": "2025-06-01", "companions": 2, "budget": 100000, "interests": ["hiking"]},
  "destination_images": [{"url": "https://upload.wikimedia.org/hunza.jpg"}],
  "hotel_images": [{"url": "https://images.unsplash.com/hotel.jpg"}],
  "daily_itinerary": [
    {"day": 1, "date": "2025-06-01", "day_title": "Arrival Day", "description": "Settle in",
     "hotel": {"name": "Eagle's Nest", "price": 15000, "rating": 4.5, "reviews": 300, "booking_url": "https://www.booking.com/x", "hotel_image": "https://images.unsplash.com/hotel.jpg"},
     "transportation": {"type": "Jeep", "cost": 5000},
     "meals": [{"type": "Dinner", "venue": "Cafe de Hunza", "cost": 2000}],
     "activities": [{"name": "Baltit Fort", "description": "Tour", "cost": 1500}]}
  ],
  "total_cost": 70000,
  "remaining_budget": 30000
}`

// scriptedModel replays canned assistant turns and records how many
// messages it was shown on each call.
type scriptedModel struct {
	mu    sync.Mutex
	turns []models.Message
	seen  []int
}

func (m *scriptedModel) Complete(_ context.Context, msgs []models.Message, tools []models.ToolSpec) (llm.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, len(msgs))
	if len(m.turns) == 0 {
		return llm.Completion{}, errors.New("script exhausted")
	}
	next := m.turns[0]
	m.turns = m.turns[1:]
	return llm.Completion{Message: next, Model: "scripted"}, nil
}

func (m *scriptedModel) Provider() string  { return "scripted" }
func (m *scriptedModel) ModelName() string { return "scripted" }

type MockCapabilities struct {
	mock.Mock
}

func (m *MockCapabilities) CompleteConversation(ctx context.Context, msgs []models.Message) (models.Message, error) {
	args := m.Called(ctx, msgs)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MockCapabilities) InvokeTool(ctx context.Context, call models.ToolCall) (string, error) {
	args := m.Called(ctx, call)
	return args.String(0), args.Error(1)
}

func toolCall(id, name, args string) models.ToolCall {
	return models.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func hunzaTrip() models.TripParameters {
	return models.TripParameters{
		Budget:     100000,
		Interests:  []string{"hiking"},
		Companions: 2,
		Cities:     []string{"Hunza"},
		Days:       3,
		TravelDate: "2025-06-01",
	}
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	hotels := new(MockHotelFinder)
	images := new(MockImageFinder)
	hotels.On("FindHotels", mock.Anything, mock.MatchedBy(func(q models.HotelQuery) bool { return q.Q == "Hunza" })).
		Return([]models.NormalizedHotel{{Name: "Eagle's Nest", Price: 15000, Rating: 4.5, Reviews: 300}}, nil)
	images.On("FindImages", mock.Anything, mock.Anything).
		Return([]models.ReliableImage{{URL: "https://upload.wikimedia.org/hunza.jpg"}}, nil)

	model := &scriptedModel{turns: []models.Message{
		{ToolCalls: []models.ToolCall{
			toolCall("c1", ToolHotelsFinder, `{"params":{"q":"Hunza","check_in_date":"2025-06-01","check_out_date":"2025-06-04"}}`),
			toolCall("c2", ToolImageFinder, `{"q":"Hunza Pakistan tourism photos"}`),
			toolCall("c3", ToolImageFinder, `{"q":"Hunza Pakistan hotels interior rooms"}`),
		}},
		{Content: "```json\n" + finalItinerary + "\n```"},
	}}

	o := NewOrchestrator(NewAgent(model, NewToolbox(hotels, images, zap.NewNop())), zap.NewNop())
	r := NewRun(hunzaTrip(), models.DefaultInitialMessage)

	var steps []Step
	lengths := []int{r.Conversation.Len()}
	for r.State != StateDone {
		step, err := o.Transition(context.Background(), r)
		require.NoError(t, err)
		steps = append(steps, step)
		lengths = append(lengths, r.Conversation.Len())
	}

	require.Len(t, steps, 3)
	assert.Equal(t, []State{StateAwaitingTool, StateAwaitingModel, StateDone},
		[]State{steps[0].State, steps[1].State, steps[2].State})
	assert.Equal(t, []string{NodeAssistant, NodeTools, NodeAssistant},
		[]string{steps[0].Node, steps[1].Node, steps[2].Node})

	for i := 1; i < len(lengths); i++ {
		assert.Greater(t, lengths[i], lengths[i-1], "conversation must grow on every transition")
	}
	assert.Equal(t, []int{2, 6}, model.seen)

	// Tool results follow the requested order.
	toolStep := steps[1]
	require.Len(t, toolStep.Messages, 3)
	for i, id := range []string{"c1", "c2", "c3"} {
		assert.Equal(t, models.RoleTool, toolStep.Messages[i].Role)
		assert.Equal(t, id, toolStep.Messages[i].ToolCallID)
	}

	it, err := steps[2].DecodeItinerary()
	require.NoError(t, err)
	assert.Equal(t, 3, it.TripDetails.Duration)
	assert.Equal(t, 30000.0, it.RemainingBudget)
	assert.JSONEq(t, finalItinerary, string(r.Params.Itinerary))

	_, err = o.Transition(context.Background(), r)
	assert.ErrorIs(t, err, errFinished)

	hotels.AssertNumberOfCalls(t, "FindHotels", 1)
	images.AssertNumberOfCalls(t, "FindImages", 2)
}

func TestOrchestrator_Run(t *testing.T) {
	caps := new(MockCapabilities)
	call := toolCall("c1", ToolImageFinder, `{"q":"Lahore"}`)

	caps.On("CompleteConversation", mock.Anything, mock.MatchedBy(func(m []models.Message) bool { return len(m) == 2 })).
		Return(models.Message{ToolCalls: []models.ToolCall{call}}, nil).Once()
	caps.On("InvokeTool", mock.Anything, call).Return(`[]`, nil).Once()
	caps.On("CompleteConversation", mock.Anything, mock.MatchedBy(func(m []models.Message) bool { return len(m) == 4 })).
		Return(models.Message{Content: "Here is your plan."}, nil).Once()

	o := NewOrchestrator(caps, zap.NewNop())

	var emitted []Step
	last, err := o.Run(context.Background(), hunzaTrip(), "Plan my trip", func(s Step) error {
		emitted = append(emitted, s)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, emitted, 3)
	assert.Equal(t, emitted[2], last)
	assert.Equal(t, StateDone, last.State)
	assert.Equal(t, 2, last.Round)
	assert.Empty(t, last.Itinerary)
	assert.NotEmpty(t, last.ConversationID)
	for _, s := range emitted {
		assert.Equal(t, last.ConversationID, s.ConversationID)
	}
	caps.AssertExpectations(t)
}

func TestOrchestrator_RejectedToolCallsGoBackToModel(t *testing.T) {
	caps := new(MockCapabilities)
	bad := toolCall("c1", "flight_finder", `{}`)

	caps.On("CompleteConversation", mock.Anything, mock.MatchedBy(func(m []models.Message) bool { return len(m) == 2 })).
		Return(models.Message{ToolCalls: []models.ToolCall{bad}}, nil).Once()
	caps.On("InvokeTool", mock.Anything, bad).Return("", errors.Join(models.ErrUnknownTool, errors.New(`"flight_finder"`))).Once()
	caps.On("CompleteConversation", mock.Anything, mock.MatchedBy(func(m []models.Message) bool {
		return len(m) == 4 && m[3].Role == models.RoleTool && m[3].Content != ""
	})).Return(models.Message{Content: "{}"}, nil).Once()

	o := NewOrchestrator(caps, zap.NewNop())
	last, err := o.Run(context.Background(), hunzaTrip(), "go", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(last.Itinerary))
	caps.AssertExpectations(t)
}

func TestOrchestrator_Failures(t *testing.T) {
	loop := models.Message{ToolCalls: []models.ToolCall{toolCall("c", ToolImageFinder, `{"q":"x"}`)}}

	tests := []struct {
		name    string
		setup   func(caps *MockCapabilities)
		opts    []OrchestratorOption
		wantErr error
	}{
		{
			name: "model failure aborts",
			setup: func(caps *MockCapabilities) {
				caps.On("CompleteConversation", mock.Anything, mock.Anything).Return(models.Message{}, models.ErrModel)
			},
			wantErr: models.ErrModel,
		},
		{
			name: "provider failure aborts",
			setup: func(caps *MockCapabilities) {
				caps.On("CompleteConversation", mock.Anything, mock.Anything).Return(loop, nil)
				caps.On("InvokeTool", mock.Anything, mock.Anything).Return("", models.ErrProvider)
			},
			wantErr: models.ErrProvider,
		},
		{
			name: "endless tool loop hits round limit",
			setup: func(caps *MockCapabilities) {
				caps.On("CompleteConversation", mock.Anything, mock.Anything).Return(loop, nil)
				caps.On("InvokeTool", mock.Anything, mock.Anything).Return("[]", nil)
			},
			opts:    []OrchestratorOption{WithMaxRounds(3)},
			wantErr: models.ErrMaxRoundsExceeded,
		},
		{
			name: "hanging model hits timeout",
			setup: func(caps *MockCapabilities) {
				caps.On("CompleteConversation", mock.Anything, mock.Anything).
					Run(func(args mock.Arguments) {
						<-args.Get(0).(context.Context).Done()
					}).
					Return(models.Message{}, context.DeadlineExceeded)
			},
			opts:    []OrchestratorOption{WithTimeout(20 * time.Millisecond)},
			wantErr: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := new(MockCapabilities)
			tt.setup(caps)
			o := NewOrchestrator(caps, zap.NewNop(), tt.opts...)

			_, err := o.Run(context.Background(), hunzaTrip(), "go", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExtractItinerary(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "bare object", content: ` {"total_cost": 1} `, want: `{"total_cost": 1}`},
		{name: "fenced json", content: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "plain fence", content: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose", content: "Here is your plan", want: ""},
		{name: "array", content: `[1,2]`, want: ""},
		{name: "broken json", content: `{"a":`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(extractItinerary(tt.content)))
		})
	}
}
