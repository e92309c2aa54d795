package runtime

import (
	"context"
	"sync"

	"github.com/harunnryd/kotoba/internal/config"
	"github.com/harunnryd/kotoba/internal/model"
	"github.com/harunnryd/kotoba/internal/model/contract"
)

const testModel = "test-model"

// scriptedProvider replays canned responses, then answers "done".
type scriptedProvider struct {
	mu       sync.Mutex
	replies  []*contract.CompletionResponse
	requests []contract.CompletionRequest
	block    chan struct{}
}

func (p *scriptedProvider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if len(p.replies) == 0 {
		return &contract.CompletionResponse{Content: "done"}, nil
	}
	resp := p.replies[0]
	p.replies = p.replies[1:]
	return resp, nil
}

func (p *scriptedProvider) Name() string                 { return testModel }
func (p *scriptedProvider) Type() string                 { return "test" }
func (p *scriptedProvider) Health(context.Context) error { return nil }

func (p *scriptedProvider) Requests() []contract.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]contract.CompletionRequest(nil), p.requests...)
}

func testConfig() *config.Config {
	return &config.Config{
		Log: config.LogConfig{Level: "info"},
		Models: config.ModelsConfig{
			Default:             testModel,
			MaxFallbackAttempts: 1,
		},
		Chat: config.ChatConfig{
			AuthToken:        "tok-test",
			MaxFunctionTurns: 3,
			Stream:           true,
			RequestTimeout:   "5s",
		},
		Context: config.ContextConfig{Builtins: true},
	}
}

func testRouter(cfg *config.Config, p *scriptedProvider) model.ModelRouter {
	return model.NewModelRouterWithProviders(cfg.Models, p)
}
