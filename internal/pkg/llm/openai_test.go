package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travel-planner/internal/app/models"
)

const toolCallCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "gpt-4o-mini-2024-07-18",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": null,
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "hotels_finder", "arguments": "{\"q\":\"Hunza hotels\"}"}
      }]
    }
  }],
  "usage": {"prompt_tokens": 120, "completion_tokens": 18, "total_tokens": 138}
}`

func TestOpenAIModel_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(toolCallCompletion))
	}))
	defer srv.Close()

	m := NewOpenAI("test-key", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	c, err := m.Complete(context.Background(), []models.Message{
		models.SystemMessage("plan trips"),
		models.HumanMessage("Plan my trip to Pakistan"),
	}, []models.ToolSpec{{
		Name:        "hotels_finder",
		Description: "find hotels",
		Parameters:  &models.Schema{Type: "object", Properties: map[string]*models.Schema{"q": {Type: "string"}}},
	}})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Len(t, body["messages"], 2)
	assert.Len(t, body["tools"], 1)

	require.Len(t, c.Message.ToolCalls, 1)
	assert.Equal(t, models.RoleAssistant, c.Message.Role)
	assert.Equal(t, "call_1", c.Message.ToolCalls[0].ID)
	assert.Equal(t, "hotels_finder", c.Message.ToolCalls[0].Name)
	assert.JSONEq(t, `{"q":"Hunza hotels"}`, string(c.Message.ToolCalls[0].Arguments))
	assert.Equal(t, 138, c.Usage.TotalTokens)
}

func TestOpenAIModel_CompleteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	m := NewOpenAI("bad", "gpt-4o", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	_, err := m.Complete(context.Background(), []models.Message{models.HumanMessage("hi")}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrModel)
}

func TestToOpenAIMessages(t *testing.T) {
	call := models.ToolCall{ID: "call_9", Name: "image_finder", Arguments: json.RawMessage(`{"q":"Skardu"}`)}
	msgs := []models.Message{
		models.SystemMessage("sys"),
		models.HumanMessage("hi"),
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{call}},
		models.ToolResultMessage(call, `[{"url":"https://x"}]`),
		{Role: models.RoleAssistant, Content: "done"},
	}

	out := toOpenAIMessages(msgs)
	require.Len(t, out, 5)

	assert.NotNil(t, out[0].OfSystem)
	assert.NotNil(t, out[1].OfUser)
	require.NotNil(t, out[2].OfAssistant)
	require.Len(t, out[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "call_9", out[2].OfAssistant.ToolCalls[0].ID)
	assert.Equal(t, `{"q":"Skardu"}`, out[2].OfAssistant.ToolCalls[0].Function.Arguments)
	require.NotNil(t, out[3].OfTool)
	assert.Equal(t, "call_9", out[3].OfTool.ToolCallID)
	assert.NotNil(t, out[4].OfAssistant)
}

func TestRawArguments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "valid object", in: `{"q":"a"}`, want: `{"q":"a"}`},
		{name: "empty", in: "", want: `{}`},
		{name: "malformed is quoted", in: `{"q":`, want: `"{\"q\":"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rawArguments(tt.in)
			assert.Equal(t, tt.want, string(got))
			if tt.in != "" {
				assert.Equal(t, tt.in, argumentString(got))
			}
		})
	}
}
