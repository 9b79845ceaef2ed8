package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_AppendOnly(t *testing.T) {
	c := NewConversation("conv-1", SystemMessage("sys"), HumanMessage("hi"))
	require.Equal(t, 2, c.Len())

	msgs := c.Messages()
	msgs[0].Content = "tampered"

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "sys", c.Messages()[0].Content)
	for _, m := range c.Messages() {
		assert.False(t, m.Timestamp.IsZero())
	}

	call := ToolCall{ID: "call_1", Name: "image_finder"}
	c.Append(Message{Role: RoleAssistant, ToolCalls: []ToolCall{call}})
	c.Append(ToolResultMessage(call, "[]"))

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, RoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Equal(t, "image_finder", last.Name)
	assert.Equal(t, 4, c.Len())
}

func TestConversation_LastEmpty(t *testing.T) {
	_, ok := NewConversation("empty").Last()
	assert.False(t, ok)
}

func TestSchema_Map(t *testing.T) {
	s := &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"q": {Type: "string", Description: "query"},
		},
		Required: []string{"q"},
	}

	m := s.Map()
	assert.Equal(t, "object", m["type"])
	assert.Equal(t, []string{"q"}, m["required"])
	props := m["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string", "description": "query"}, props["q"])

	var nilSchema *Schema
	assert.Nil(t, nilSchema.Map())
}
