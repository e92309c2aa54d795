package session

import (
	"context"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/engine"
)

// fakeEngine records the options it was started with and echoes appends.
type fakeEngine struct {
	opts     engine.Options
	messages []chat.Message
	loading  bool
	stops    int
	input    string
}

func (f *fakeEngine) Messages() []chat.Message { return chat.CloneMessages(f.messages) }

func (f *fakeEngine) Append(ctx context.Context, msg chat.Message, opts ...engine.RequestOption) (*chat.Message, error) {
	f.messages = append(f.messages, msg)
	reply := chat.Message{ID: "r" + msg.ID, Role: chat.RoleAssistant, Content: "echo: " + msg.Content}
	f.messages = append(f.messages, reply)
	return &reply, nil
}

func (f *fakeEngine) Reload(ctx context.Context, opts ...engine.RequestOption) (*chat.Message, error) {
	return nil, nil
}

func (f *fakeEngine) Stop() {
	f.stops++
	f.loading = false
}

func (f *fakeEngine) IsLoading() bool   { return f.loading }
func (f *fakeEngine) Input() string     { return f.input }
func (f *fakeEngine) SetInput(s string) { f.input = s }

type fakeFactory struct {
	started []*fakeEngine
}

func (f *fakeFactory) factory(opts engine.Options) (engine.ChatEngine, error) {
	e := &fakeEngine{opts: opts, messages: chat.CloneMessages(opts.InitialMessages)}
	f.started = append(f.started, e)
	return e, nil
}

func (f *fakeFactory) last() *fakeEngine {
	return f.started[len(f.started)-1]
}
