package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
	"github.com/FACorreiaa/go-travel-planner/internal/pkg/config"
	"github.com/FACorreiaa/go-travel-planner/internal/pkg/llm"
)

// twoRoundModel asks for one image search, then answers with JSON.
type twoRoundModel struct {
	calls atomic.Int32
}

func (m *twoRoundModel) Complete(_ context.Context, msgs []models.Message, _ []models.ToolSpec) (llm.Completion, error) {
	if m.calls.Add(1) == 1 {
		return llm.Completion{Message: models.Message{ToolCalls: []models.ToolCall{{
			ID: "c1", Name: "image_finder", Arguments: json.RawMessage(`{"q":"Hunza Pakistan tourism photos"}`),
		}}}}, nil
	}
	last := msgs[len(msgs)-1]
	return llm.Completion{Message: models.Message{Content: `{"destination_images":` + last.Content + `,"total_cost":0}`}}, nil
}

func (m *twoRoundModel) Provider() string  { return "test" }
func (m *twoRoundModel) ModelName() string { return "test" }

func TestSetup_WiresItineraryEndpoint(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "google_images", r.URL.Query().Get("engine"))
		_, _ = w.Write([]byte(`{"images_results":[
			{"original":"https://upload.wikimedia.org/a.jpg"},
			{"original":"https://upload.wikimedia.org/b.jpg"},
			{"original":"https://upload.wikimedia.org/c.jpg"},
			{"original":"https://upload.wikimedia.org/d.jpg"},
			{"original":"https://upload.wikimedia.org/e.jpg"}
		]}`))
	}))
	defer provider.Close()

	cfg := &config.Config{
		SerpAPI:      config.SerpAPIConfig{APIKey: "k", BaseURL: provider.URL, Timeout: 5 * time.Second},
		Orchestrator: config.OrchestratorConfig{MaxRounds: 4, Timeout: 10 * time.Second},
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	Setup(r, cfg, &twoRoundModel{}, zap.NewNop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	body := `{"budget":50000,"interests":["lakes"],"companions":1,"city":"Hunza","days":3,"travel_date":"2025-06-01"}`
	req := httptest.NewRequest(http.MethodPost, "/create_itinerary", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var step struct {
		State     string `json:"state"`
		Itinerary struct {
			DestinationImages []models.ReliableImage `json:"destination_images"`
		} `json:"itinerary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &step))
	assert.Equal(t, "DONE", step.State)
	assert.Len(t, step.Itinerary.DestinationImages, 5)
}
