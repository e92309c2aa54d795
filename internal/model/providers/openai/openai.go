package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/harunnryd/kotoba/internal/model/contract"

	"github.com/sashabaranov/go-openai"
)

// Provider talks to OpenAI-compatible chat endpoints (OpenAI, Ollama).
type Provider struct {
	baseURL string
	model   string
	client  *openai.Client

	mu      sync.Mutex
	clients map[string]*openai.Client
}

// New builds a provider. An empty apiKey defers the credential to each
// request's APIKey.
func New(apiKey, baseURL, model string) *Provider {
	p := &Provider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		clients: make(map[string]*openai.Client),
	}
	if apiKey != "" {
		p.client = p.newClient(apiKey)
	}
	return p
}

func (p *Provider) Name() string {
	return "openai"
}

func (p *Provider) newClient(apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if p.baseURL != "" {
		cfg.BaseURL = p.baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func (p *Provider) clientFor(req contract.CompletionRequest) (*openai.Client, error) {
	if p.client != nil {
		return p.client, nil
	}
	if req.APIKey == "" {
		return nil, fmt.Errorf("openai: no API key configured and none supplied with the request")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[req.APIKey]; ok {
		return c, nil
	}
	c := p.newClient(req.APIKey)
	p.clients[req.APIKey] = c
	return c, nil
}

func (p *Provider) buildRequest(req contract.CompletionRequest) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	for _, m := range req.Messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if m.Role == contract.RoleTool {
			msg.Name = m.Name
		}

		if len(m.ToolCalls) > 0 {
			var tcs []openai.ToolCall
			for _, tc := range m.ToolCalls {
				tcs = append(tcs, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Input,
					},
				})
			}
			msg.ToolCalls = tcs
		}

		messages = append(messages, msg)
	}

	var tools []openai.Tool
	for _, t := range req.Tools {
		params := t.Parameters
		if params == nil {
			params = map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			}
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	return openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Tools:    tools,
	}
}

func (p *Provider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	client, err := p.clientFor(req)
	if err != nil {
		return nil, err
	}

	resp, err := client.CreateChatCompletion(ctx, p.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	choice := resp.Choices[0]
	result := &contract.CompletionResponse{Content: choice.Message.Content}

	for _, tc := range choice.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", len(result.ToolCalls)+1)
		}
		result.ToolCalls = append(result.ToolCalls, &contract.ToolCall{
			ID:    id,
			Name:  tc.Function.Name,
			Input: tc.Function.Arguments,
		})
	}

	return result, nil
}

// Stream sends the request with streaming enabled, forwarding content deltas
// and assembling tool call fragments by index.
func (p *Provider) Stream(ctx context.Context, req contract.CompletionRequest, onDelta contract.DeltaFunc) (*contract.CompletionResponse, error) {
	client, err := p.clientFor(req)
	if err != nil {
		return nil, err
	}

	chatReq := p.buildRequest(req)
	chatReq.Stream = true

	stream, err := client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai stream failed: %w", err)
	}
	defer stream.Close()

	var content strings.Builder
	calls := make(map[int]*contract.ToolCall)

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &contract.CompletionResponse{Content: content.String()}, fmt.Errorf("openai stream failed: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			content.WriteString(delta.Content)
			if onDelta != nil {
				onDelta(delta.Content)
			}
		}

		for i, tc := range delta.ToolCalls {
			idx := i
			if tc.Index != nil {
				idx = *tc.Index
			}
			call, ok := calls[idx]
			if !ok {
				call = &contract.ToolCall{}
				calls[idx] = call
			}
			if tc.ID != "" {
				call.ID = tc.ID
			}
			if tc.Function.Name != "" {
				call.Name = tc.Function.Name
			}
			call.Input += tc.Function.Arguments
		}
	}

	result := &contract.CompletionResponse{Content: content.String()}

	indexes := make([]int, 0, len(calls))
	for idx := range calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		call := calls[idx]
		if call.ID == "" {
			call.ID = fmt.Sprintf("call_%d", idx+1)
		}
		result.ToolCalls = append(result.ToolCalls, call)
	}

	return result, nil
}
