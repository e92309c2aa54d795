package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/harunnryd/kotoba/internal/model/contract"

	"google.golang.org/genai"
)

type Provider struct {
	apiKey string
	model  string

	mu      sync.Mutex
	clients map[string]*genai.Client
}

// New builds a provider. An empty apiKey defers the credential to each
// request's APIKey. Clients are created lazily per credential.
func New(apiKey, model string) *Provider {
	return &Provider{
		apiKey:  apiKey,
		model:   model,
		clients: make(map[string]*genai.Client),
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) clientFor(ctx context.Context, req contract.CompletionRequest) (*genai.Client, error) {
	key := p.apiKey
	if key == "" {
		key = req.APIKey
	}
	if key == "" {
		return nil, fmt.Errorf("gemini: no API key configured and none supplied with the request")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[key]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	p.clients[key] = c
	return c, nil
}

func (p *Provider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	client, err := p.clientFor(ctx, req)
	if err != nil {
		return nil, err
	}

	system, contents := toContents(req.Messages)
	tools := toTools(req.Tools)

	model := req.Model
	if model == "" {
		model = p.model
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		SystemInstruction: system,
		Tools:             tools,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	return fromResponse(resp), nil
}

// toContents splits messages into the system instruction and the turn list.
// Tool results become user FunctionResponse parts; assistant tool calls become
// model FunctionCall parts.
func toContents(messages []contract.Message) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case contract.RoleSystem:
			system = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
		case contract.RoleTool:
			var obj map[string]any
			if err := json.Unmarshal([]byte(m.Content), &obj); err != nil {
				obj = map[string]any{"result": m.Content}
			}
			name := m.Name
			if name == "" {
				name = m.ToolCallID
			}
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{ID: m.ToolCallID, Name: name, Response: obj}}}})
		case contract.RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal([]byte(tc.Input), &args)
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args}})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	return system, contents
}

func toTools(defs []contract.ToolDef) []*genai.Tool {
	if len(defs) == 0 {
		return nil
	}
	var decls []*genai.FunctionDeclaration
	for _, t := range defs {
		decl := &genai.FunctionDeclaration{Name: t.Name, Description: t.Description}
		if t.Parameters != nil {
			b, _ := json.Marshal(t.Parameters)
			var schema genai.Schema
			if err := json.Unmarshal(b, &schema); err == nil {
				decl.Parameters = &schema
			}
		}
		decls = append(decls, decl)
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func fromResponse(resp *genai.GenerateContentResponse) *contract.CompletionResponse {
	out := &contract.CompletionResponse{}
	if resp == nil {
		return out
	}

	for _, fc := range resp.FunctionCalls() {
		argsJSON, _ := json.Marshal(fc.Args)
		id := fc.ID
		if id == "" {
			id = fc.Name
		}
		out.ToolCalls = append(out.ToolCalls, &contract.ToolCall{ID: id, Name: fc.Name, Input: string(argsJSON)})
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				out.Content += part.Text
			}
		}
	}

	return out
}
