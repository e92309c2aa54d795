package model

import (
	"context"

	"github.com/harunnryd/kotoba/internal/model/contract"
)

type generator interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
}

type streamer interface {
	Stream(ctx context.Context, req contract.CompletionRequest, onDelta contract.DeltaFunc) (*contract.CompletionResponse, error)
}

// ProviderAdapter wraps provider-specific implementations to satisfy StreamProvider.
// Providers without native streaming deliver their whole reply as one delta.
type ProviderAdapter struct {
	provider     generator
	name         string
	providerType string
}

// NewProviderAdapter wraps p under the given model name and provider type.
func NewProviderAdapter(p generator, name, providerType string) *ProviderAdapter {
	return &ProviderAdapter{provider: p, name: name, providerType: providerType}
}

func (a *ProviderAdapter) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	return a.provider.Generate(ctx, req)
}

func (a *ProviderAdapter) Stream(ctx context.Context, req contract.CompletionRequest, onDelta contract.DeltaFunc) (*contract.CompletionResponse, error) {
	if s, ok := a.provider.(streamer); ok {
		return s.Stream(ctx, req, onDelta)
	}

	resp, err := a.provider.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Content != "" && onDelta != nil {
		onDelta(resp.Content)
	}
	return resp, nil
}

func (a *ProviderAdapter) Name() string {
	return a.name
}

func (a *ProviderAdapter) Type() string {
	return a.providerType
}

func (a *ProviderAdapter) Health(ctx context.Context) error {
	return nil
}
