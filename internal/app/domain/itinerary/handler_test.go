package itinerary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, params models.TripParameters, opening string, emit func(Step) error) (Step, error) {
	args := m.Called(ctx, params, opening, emit)
	if fn, ok := args.Get(0).(func(func(Step) error) (Step, error)); ok {
		return fn(emit)
	}
	return args.Get(0).(Step), args.Error(1)
}

func newTestRouter(runner Runner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(runner, zap.NewNop())
	r := gin.New()
	r.POST("/create_itinerary", h.CreateItinerary)
	r.POST("/create_itinerary/stream", h.CreateItineraryStream)
	return r
}

const validBody = `{"budget":100000,"interests":["hiking"],"companions":2,"city":"Hunza","days":3,"travel_date":"2025-06-01"}`

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_CreateItineraryAcceptsZeroBudgetAndCompanions(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, mock.MatchedBy(func(p models.TripParameters) bool {
		return p.Budget == 0 && p.Companions == 0 && len(p.Interests) == 0
	}), mock.Anything, mock.Anything).Return(Step{State: StateDone}, nil)

	body := `{"budget":0,"interests":[],"companions":0,"city":"Murree","days":1,"travel_date":"2025-06-01"}`
	w := post(newTestRouter(runner), "/create_itinerary", body)

	assert.Equal(t, http.StatusOK, w.Code)
	runner.AssertExpectations(t)
}

func TestHandler_CreateItinerary(t *testing.T) {
	runner := new(MockRunner)
	final := Step{
		Node:           NodeAssistant,
		State:          StateDone,
		Round:          2,
		ConversationID: "conv-1",
		Messages:       []models.Message{{Role: models.RoleAssistant, Content: finalItinerary}},
		Itinerary:      json.RawMessage(finalItinerary),
	}
	runner.On("Run", mock.Anything, mock.MatchedBy(func(p models.TripParameters) bool {
		return len(p.Cities) == 1 && p.Cities[0] == "Hunza" && p.Days == 3
	}), models.DefaultInitialMessage, mock.Anything).Return(final, nil)

	w := post(newTestRouter(runner), "/create_itinerary", validBody)

	require.Equal(t, http.StatusOK, w.Code)
	var got Step
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, StateDone, got.State)
	assert.Equal(t, "conv-1", got.ConversationID)
	assert.JSONEq(t, finalItinerary, string(got.Itinerary))
	runner.AssertExpectations(t)
}

func TestHandler_CreateItineraryErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		runErr     error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "malformed body",
			body:       `{"budget":"lots"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "validation failed",
		},
		{
			name:       "missing budget",
			body:       `{"interests":["hiking"],"companions":2,"city":"Hunza","days":3,"travel_date":"2025-06-01"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "'Budget'",
		},
		{
			name:       "missing interests",
			body:       `{"budget":100000,"companions":2,"city":"Hunza","days":3,"travel_date":"2025-06-01"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "'Interests'",
		},
		{
			name:       "missing companions",
			body:       `{"budget":100000,"interests":["hiking"],"city":"Hunza","days":3,"travel_date":"2025-06-01"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "'Companions'",
		},
		{
			name:       "missing city",
			body:       `{"budget":100000,"interests":["hiking"],"companions":2,"days":3,"travel_date":"2025-06-01"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "'City'",
		},
		{
			name:       "missing days",
			body:       `{"budget":100000,"interests":["hiking"],"companions":2,"city":"Hunza","travel_date":"2025-06-01"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "'Days'",
		},
		{
			name:       "missing travel date",
			body:       `{"budget":100000,"interests":["hiking"],"companions":2,"city":"Hunza","days":3}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "'TravelDate'",
		},
		{
			name:       "negative budget",
			body:       `{"budget":-1,"interests":["hiking"],"companions":2,"city":"Hunza","days":3,"travel_date":"2025-06-01"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "'gte'",
		},
		{
			name:       "negative companions",
			body:       `{"budget":100000,"interests":["hiking"],"companions":-1,"city":"Hunza","days":3,"travel_date":"2025-06-01"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "'gte'",
		},
		{
			name:       "zero days",
			body:       `{"budget":100000,"interests":["hiking"],"companions":2,"city":"Hunza","days":0,"travel_date":"2025-06-01"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "'gt'",
		},
		{
			name:       "city without destinations",
			body:       `{"budget":100000,"interests":["hiking"],"companions":2,"city":" , ","days":3,"travel_date":"2025-06-01"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "city must name at least one destination",
		},
		{
			name:       "orchestration failure",
			body:       validBody,
			runErr:     errors.Join(models.ErrProvider, errors.New("status 401")),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Error generating itinerary: search provider request failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(MockRunner)
			runner.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(Step{}, tt.runErr)

			w := post(newTestRouter(runner), "/create_itinerary", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Contains(t, resp["detail"], tt.wantDetail)
			if tt.runErr == nil {
				runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestHandler_CreateItineraryStream(t *testing.T) {
	runner := new(MockRunner)
	steps := []Step{
		{Node: NodeAssistant, State: StateAwaitingTool, Round: 1, ConversationID: "c"},
		{Node: NodeTools, State: StateAwaitingModel, Round: 1, ConversationID: "c"},
		{Node: NodeAssistant, State: StateDone, Round: 2, ConversationID: "c", Itinerary: json.RawMessage(`{"total_cost":1}`)},
	}
	runner.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(
		func(emit func(Step) error) (Step, error) {
			for _, s := range steps {
				if err := emit(s); err != nil {
					return Step{}, err
				}
			}
			return steps[len(steps)-1], nil
		}, nil)

	w := post(newTestRouter(runner), "/create_itinerary/stream", validBody)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Equal(t, 3, strings.Count(body, "event:step"))
	assert.Equal(t, 1, strings.Count(body, "event:done"))
	assert.Contains(t, body, `"state":"AWAITING_TOOL"`)
	assert.Less(t, strings.LastIndex(body, "event:step"), strings.Index(body, "event:done"))
}

func TestHandler_CreateItineraryStreamError(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(Step{}, models.ErrModel)

	w := post(newTestRouter(runner), "/create_itinerary/stream", validBody)

	body := w.Body.String()
	assert.Contains(t, body, "event:error")
	assert.Contains(t, body, "Error generating itinerary: language model request failed")
	assert.NotContains(t, body, "event:done")
}
