package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/harunnryd/kotoba/internal/model/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Auth string
	Body map[string]any
}

// fakeServer answers /chat/completions with the next canned body.
type fakeServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	bodies   []string
	stream   bool
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	s.mu.Lock()
	s.requests = append(s.requests, recordedRequest{Auth: r.Header.Get("Authorization"), Body: body})
	next := `{"choices":[{"message":{"role":"assistant","content":"done"}}]}`
	if len(s.bodies) > 0 {
		next = s.bodies[0]
		s.bodies = s.bodies[1:]
	}
	s.mu.Unlock()

	if s.stream {
		w.Header().Set("Content-Type", "text/event-stream")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	fmt.Fprint(w, next)
}

func newTestProvider(t *testing.T, srv *fakeServer, apiKey string) *Provider {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return New(apiKey, ts.URL, "gpt-test")
}

func TestGenerate_UsesRequestKeyWhenUnconfigured(t *testing.T) {
	srv := &fakeServer{}
	p := newTestProvider(t, srv, "")

	resp, err := p.Generate(context.Background(), contract.CompletionRequest{
		Messages: []contract.Message{{Role: contract.RoleUser, Content: "hi"}},
		APIKey:   "session-token",
	})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)

	require.Len(t, srv.requests, 1)
	assert.Equal(t, "Bearer session-token", srv.requests[0].Auth)
	assert.Equal(t, "gpt-test", srv.requests[0].Body["model"])
}

func TestGenerate_ConfiguredKeyWins(t *testing.T) {
	srv := &fakeServer{}
	p := newTestProvider(t, srv, "sk-configured")

	_, err := p.Generate(context.Background(), contract.CompletionRequest{
		Messages: []contract.Message{{Role: contract.RoleUser, Content: "hi"}},
		APIKey:   "session-token",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-configured", srv.requests[0].Auth)
}

func TestGenerate_NoKey(t *testing.T) {
	p := New("", "http://127.0.0.1:0", "gpt-test")
	_, err := p.Generate(context.Background(), contract.CompletionRequest{})
	assert.Error(t, err)
}

func TestToolCallRoundTrip(t *testing.T) {
	srv := &fakeServer{bodies: []string{
		`{"choices":[{"message":{"role":"assistant","content":"","tool_calls":[{"id":"call_1","type":"function","function":{"name":"current_time","arguments":"{}"}}]}}]}`,
	}}
	p := newTestProvider(t, srv, "sk")

	tools := []contract.ToolDef{{Name: "current_time", Description: "Current time"}}
	messages := []contract.Message{
		{Role: contract.RoleSystem, Content: "be brief"},
		{Role: contract.RoleUser, Content: "time?"},
	}

	resp, err := p.Generate(context.Background(), contract.CompletionRequest{Messages: messages, Tools: tools})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "current_time", resp.ToolCalls[0].Name)

	messages = append(messages,
		contract.Message{Role: contract.RoleAssistant, ToolCalls: resp.ToolCalls},
		contract.Message{Role: contract.RoleTool, Name: "current_time", ToolCallID: "call_1", Content: "12:00"},
	)
	resp, err = p.Generate(context.Background(), contract.CompletionRequest{Messages: messages, Tools: tools})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)

	require.Len(t, srv.requests, 2)
	first := srv.requests[0].Body
	sent := first["tools"].([]any)[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "current_time", sent["name"])
	assert.Equal(t, "object", sent["parameters"].(map[string]any)["type"])

	second := srv.requests[1].Body["messages"].([]any)
	require.Len(t, second, 4)
	assert.Equal(t, "system", second[0].(map[string]any)["role"])
	toolMsg := second[3].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_1", toolMsg["tool_call_id"])
}

func TestStream_ForwardsDeltasAndAssemblesToolCalls(t *testing.T) {
	srv := &fakeServer{stream: true, bodies: []string{
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
			"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"lo\"}}]}\n\n" +
			"data: {\"choices\":[{\"index\":0,\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"call_9\",\"type\":\"function\",\"function\":{\"name\":\"lookup\",\"arguments\":\"{\\\"q\\\":\"}}]}}]}\n\n" +
			"data: {\"choices\":[{\"index\":0,\"delta\":{\"tool_calls\":[{\"index\":0,\"function\":{\"arguments\":\"\\\"x\\\"}\"}}]}}]}\n\n" +
			"data: [DONE]\n\n",
	}}
	p := newTestProvider(t, srv, "sk")

	var deltas []string
	resp, err := p.Stream(context.Background(), contract.CompletionRequest{
		Messages: []contract.Message{{Role: contract.RoleUser, Content: "hi"}},
	}, func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)

	assert.Equal(t, []string{"Hel", "lo"}, deltas)
	assert.Equal(t, "Hello", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_9", resp.ToolCalls[0].ID)
	assert.Equal(t, "lookup", resp.ToolCalls[0].Name)
	assert.Equal(t, `{"q":"x"}`, resp.ToolCalls[0].Input)
	assert.Equal(t, true, srv.requests[0].Body["stream"])
}
