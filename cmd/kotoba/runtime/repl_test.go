package runtime

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/model/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestREPL(t *testing.T, p *scriptedProvider, input string) (*REPL, *RuntimeComponents, *bytes.Buffer) {
	t.Helper()
	cfg := testConfig()
	var out bytes.Buffer

	c, err := NewRuntimeBuilder().
		WithConfig(cfg).
		WithRouter(testRouter(cfg, p)).
		WithOutput(&out).
		Build()
	require.NoError(t, err)
	t.Cleanup(c.Stop)

	repl := NewREPL(c, strings.NewReader(input))
	require.NoError(t, c.StartSession(repl.OnUpdate))
	return repl, c, &out
}

func TestREPL_Ask(t *testing.T) {
	p := &scriptedProvider{replies: []*contract.CompletionResponse{{Content: "Hello, alice."}}}
	repl, c, out := newTestREPL(t, p, "")

	require.NoError(t, repl.Ask(context.Background(), "hi"))

	assert.Contains(t, out.String(), "Hello, alice.\n")
	visible := c.Session.VisibleMessages()
	require.Len(t, visible, 2)
	assert.Equal(t, "hi", visible[0].Content)

	reqs := p.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "tok-test", reqs[0].APIKey)
	assert.Equal(t, contract.RoleSystem, reqs[0].Messages[0].Role)
}

func TestREPL_AskWithFunctionCall(t *testing.T) {
	p := &scriptedProvider{replies: []*contract.CompletionResponse{
		{ToolCalls: []*contract.ToolCall{{ID: "call-1", Name: "current_time", Input: `{"utc_offset":"+00:00"}`}}},
		{Content: "It is late."},
	}}
	repl, c, out := newTestREPL(t, p, "")

	require.NoError(t, repl.Ask(context.Background(), "what time is it?"))

	assert.Contains(t, out.String(), "[function] current_time")
	assert.Contains(t, out.String(), "It is late.")

	transcript := c.Session.Transcript()
	require.Len(t, transcript, 5)
	assert.Equal(t, chat.RoleFunction, transcript[3].Role)
	assert.Equal(t, "call-1", transcript[3].FunctionCallID)
}

func TestREPL_Start(t *testing.T) {
	p := &scriptedProvider{replies: []*contract.CompletionResponse{{Content: "pong"}}}
	repl, _, out := newTestREPL(t, p, "ping\n\n/history json\n/exit\nnever sent\n")

	require.NoError(t, repl.Start(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Kotoba chat session:")
	assert.Contains(t, text, "pong")
	assert.Contains(t, text, `"content": "ping"`)
	assert.Len(t, p.Requests(), 1)
}

func TestREPL_StartEOF(t *testing.T) {
	repl, _, _ := newTestREPL(t, &scriptedProvider{}, "")
	assert.NoError(t, repl.Start(context.Background()))
}

func TestREPL_StartCancelled(t *testing.T) {
	repl, _, _ := newTestREPL(t, &scriptedProvider{}, "")
	repl.reader.Reset(blockingReader{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, repl.Start(ctx))
}

func TestREPL_Interrupt(t *testing.T) {
	p := &scriptedProvider{block: make(chan struct{})}
	repl, c, _ := newTestREPL(t, p, "")

	assert.False(t, repl.Interrupt(), "nothing loading")

	done := make(chan error, 1)
	go func() { done <- repl.Ask(context.Background(), "slow question") }()

	require.Eventually(t, c.Session.IsLoading, 2*time.Second, 5*time.Millisecond)
	assert.True(t, repl.Interrupt())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Ask did not return after Interrupt")
	}
	assert.False(t, c.Session.IsLoading())
	assert.False(t, repl.Interrupt())
}

func TestREPL_StopCommandDuringReply(t *testing.T) {
	p := &scriptedProvider{block: make(chan struct{})}
	repl, c, out := newTestREPL(t, p, "")
	pr, pw := io.Pipe()
	repl.reader.Reset(pr)

	done := make(chan error, 1)
	go func() { done <- repl.Start(context.Background()) }()

	_, err := io.WriteString(pw, "slow question\n")
	require.NoError(t, err)
	require.Eventually(t, c.Session.IsLoading, 2*time.Second, 5*time.Millisecond)

	_, err = io.WriteString(pw, "another question\n")
	require.NoError(t, err)
	_, err = io.WriteString(pw, "/stop\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return !c.Session.IsLoading() }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, pw.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after EOF")
	}

	text := out.String()
	assert.Contains(t, text, "Still replying.")
	assert.Contains(t, text, "Stopped.")
	assert.Empty(t, p.Requests())
	assert.Len(t, c.Session.VisibleMessages(), 1)
}

type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}
