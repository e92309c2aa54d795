package model

import (
	"context"

	"github.com/harunnryd/kotoba/internal/model/contract"
)

type ModelRouter interface {
	Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	RouteStream(ctx context.Context, model string, req contract.CompletionRequest, onDelta contract.DeltaFunc) (*contract.CompletionResponse, error)
	ListModels() []string
	Health(ctx context.Context) error
}

type Provider interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	Name() string
	Type() string
	Health(ctx context.Context) error
}

// StreamProvider is implemented by providers that can emit content deltas.
// The returned response carries the full content and any tool calls.
type StreamProvider interface {
	Provider
	Stream(ctx context.Context, req contract.CompletionRequest, onDelta contract.DeltaFunc) (*contract.CompletionResponse, error)
}
