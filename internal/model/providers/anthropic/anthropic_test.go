package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harunnryd/kotoba/internal/model/contract"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messageResponse = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-test",
  "content": [
    {"type": "text", "text": "Let me check."},
    {"type": "tool_use", "id": "toolu_1", "name": "current_time", "input": {"utc_offset": "+07:00"}}
  ],
  "stop_reason": "tool_use",
  "usage": {"input_tokens": 10, "output_tokens": 5}
}`

type captured struct {
	apiKey string
	body   map[string]any
}

func newTestProvider(t *testing.T, got *captured) *Provider {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got.body)
		got.apiKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, messageResponse)
	}))
	t.Cleanup(ts.Close)

	return &Provider{
		client: anthropic.NewClient(option.WithBaseURL(ts.URL), option.WithMaxRetries(0)),
		model:  "claude-test",
	}
}

func TestGenerate_MapsMessagesAndToolUse(t *testing.T) {
	got := &captured{}
	p := newTestProvider(t, got)

	resp, err := p.Generate(context.Background(), contract.CompletionRequest{
		Messages: []contract.Message{
			{Role: contract.RoleSystem, Content: "be brief"},
			{Role: contract.RoleUser, Content: "time?"},
			{Role: contract.RoleAssistant, ToolCalls: []*contract.ToolCall{{ID: "toolu_0", Name: "current_time", Input: "{}"}}},
			{Role: contract.RoleTool, ToolCallID: "toolu_0", Content: "12:00"},
		},
		Tools:  []contract.ToolDef{{Name: "current_time", Description: "Current time"}},
		APIKey: "session-token",
	})
	require.NoError(t, err)

	assert.Equal(t, "Let me check.", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"utc_offset":"+07:00"}`, resp.ToolCalls[0].Input)

	assert.Equal(t, "session-token", got.apiKey)
	assert.Equal(t, "claude-test", got.body["model"])

	system := got.body["system"].([]any)
	assert.Equal(t, "be brief", system[0].(map[string]any)["text"])

	messages := got.body["messages"].([]any)
	require.Len(t, messages, 3)
	assert.Equal(t, "assistant", messages[1].(map[string]any)["role"])
	result := messages[2].(map[string]any)["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "tool_result", result["type"])
	assert.Equal(t, "toolu_0", result["tool_use_id"])
}

func TestGenerate_NoKey(t *testing.T) {
	p := &Provider{client: anthropic.NewClient(option.WithBaseURL("http://127.0.0.1:0")), model: "claude-test"}
	_, err := p.Generate(context.Background(), contract.CompletionRequest{})
	assert.ErrorContains(t, err, "no API key")
}
