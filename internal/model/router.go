package model

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/harunnryd/kotoba/internal/config"
	kotobaErrors "github.com/harunnryd/kotoba/internal/errors"
	"github.com/harunnryd/kotoba/internal/logger"
	"github.com/harunnryd/kotoba/internal/model/contract"
	anthropicProvider "github.com/harunnryd/kotoba/internal/model/providers/anthropic"
	geminiProvider "github.com/harunnryd/kotoba/internal/model/providers/gemini"
	openaiProvider "github.com/harunnryd/kotoba/internal/model/providers/openai"
)

// DefaultModelRouter implements ModelRouter interface
type DefaultModelRouter struct {
	cfg       config.ModelsConfig
	providers map[string]Provider
	mapper    kotobaErrors.ErrorMapper
	mu        sync.RWMutex
}

// NewModelRouter creates a new model router
func NewModelRouter(cfg config.ModelsConfig) (*DefaultModelRouter, error) {
	router := newRouter(cfg)

	if err := router.initProviders(); err != nil {
		return nil, err
	}

	return router, nil
}

// NewModelRouterWithProviders builds a router over already constructed providers.
func NewModelRouterWithProviders(cfg config.ModelsConfig, providers ...Provider) *DefaultModelRouter {
	router := newRouter(cfg)
	for _, p := range providers {
		router.providers[p.Name()] = p
	}
	return router
}

func newRouter(cfg config.ModelsConfig) *DefaultModelRouter {
	return &DefaultModelRouter{
		cfg:       cfg,
		providers: make(map[string]Provider),
		mapper:    kotobaErrors.NewDefaultErrorMapper(),
	}
}

// Route routes a completion request to the appropriate provider
func (r *DefaultModelRouter) Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	return r.route(ctx, model, req, nil, false)
}

// RouteStream routes a completion request and forwards content deltas.
// Fallback is only attempted while nothing has been streamed yet.
func (r *DefaultModelRouter) RouteStream(ctx context.Context, model string, req contract.CompletionRequest, onDelta contract.DeltaFunc) (*contract.CompletionResponse, error) {
	return r.route(ctx, model, req, onDelta, true)
}

func (r *DefaultModelRouter) route(ctx context.Context, model string, req contract.CompletionRequest, onDelta contract.DeltaFunc, stream bool) (*contract.CompletionResponse, error) {
	log := logger.FromContext(ctx)
	log.Debug("Routing completion request", "model", model, "stream", stream)

	provider, resolved, err := r.resolveProvider(ctx, model)
	if err != nil {
		return nil, err
	}

	return r.executeWithFallback(ctx, resolved, provider, req, onDelta, stream)
}

// ListModels returns all registered model names, sorted
func (r *DefaultModelRouter) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.providers))
	for name := range r.providers {
		models = append(models, name)
	}
	sort.Strings(models)

	return models
}

// ProviderType reports the provider type serving model.
func (r *DefaultModelRouter) ProviderType(model string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[model]
	if !ok {
		return "", false
	}
	return p.Type(), true
}

// Health checks the health of the router and its providers
func (r *DefaultModelRouter) Health(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, provider := range r.providers {
		if err := provider.Health(ctx); err != nil {
			slog.Warn("Provider unhealthy", "provider", name, "error", err)
			return kotobaErrors.Transient(fmt.Sprintf("provider %s unhealthy", name))
		}
	}

	return nil
}

// initProviders initializes all providers from configuration
func (r *DefaultModelRouter) initProviders() error {
	for _, entry := range r.cfg.Registry {
		provider, err := r.createProvider(entry)
		if err != nil {
			slog.Warn("Failed to create provider", "provider", entry.Provider, "model", entry.Name, "error", err)
			continue
		}

		r.providers[entry.Name] = provider
		slog.Debug("Provider initialized", "name", entry.Name, "type", entry.Provider)
	}

	if len(r.providers) == 0 && len(r.cfg.Registry) > 0 {
		return kotobaErrors.Internal("no providers initialized")
	}

	return nil
}

// resolveProvider resolves a provider by model name with fallback
func (r *DefaultModelRouter) resolveProvider(ctx context.Context, model string) (Provider, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", kotobaErrors.Wrap(ctx.Err(), "provider resolution cancelled")
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if provider, exists := r.providers[model]; exists {
		return provider, model, nil
	}

	slog.Warn("Model not found", "model", model)

	if r.cfg.Fallback != "" && model != r.cfg.Fallback {
		if fallbackProvider, ok := r.providers[r.cfg.Fallback]; ok {
			slog.Info("Trying fallback model", "model", model, "fallback", r.cfg.Fallback)
			return fallbackProvider, r.cfg.Fallback, nil
		}
	}

	return nil, "", kotobaErrors.NotFound(fmt.Sprintf("model %s not found", model))
}

// executeWithFallback executes a request with fallback logic
func (r *DefaultModelRouter) executeWithFallback(ctx context.Context, model string, provider Provider, req contract.CompletionRequest, onDelta contract.DeltaFunc, stream bool) (*contract.CompletionResponse, error) {
	log := logger.FromContext(ctx)

	maxAttempts := r.cfg.MaxFallbackAttempts
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultModelMaxFallbackAttempts
	}

	currentModel := model
	currentProvider := provider
	streamed := false
	forward := func(delta string) {
		streamed = true
		if onDelta != nil {
			onDelta(delta)
		}
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, kotobaErrors.Wrap(ctx.Err(), "request execution cancelled")
		default:
		}

		req.Model = currentModel

		var resp *contract.CompletionResponse
		var err error
		if sp, ok := currentProvider.(StreamProvider); ok && stream {
			resp, err = sp.Stream(ctx, req, forward)
		} else {
			resp, err = currentProvider.Generate(ctx, req)
			if err == nil && stream && resp.Content != "" {
				forward(resp.Content)
			}
		}
		if err == nil {
			log.Debug("Request completed", "model", currentModel, "attempt", attempt+1)
			return resp, nil
		}

		if ctx.Err() != nil {
			return resp, kotobaErrors.Wrap(ctx.Err(), "request execution cancelled")
		}

		mapped := r.mapper.MapError(err)
		log.Error("Provider request failed", "model", currentModel, "attempt", attempt+1, "category", r.mapper.Category(mapped), "error", err)

		if streamed || r.cfg.Fallback == "" || currentModel == r.cfg.Fallback {
			return resp, kotobaErrors.Wrap(mapped, "provider request failed")
		}

		r.mu.RLock()
		fallbackProvider, exists := r.providers[r.cfg.Fallback]
		r.mu.RUnlock()
		if !exists {
			return nil, kotobaErrors.NotFound(fmt.Sprintf("fallback model %s not found", r.cfg.Fallback))
		}

		log.Info("Attempting fallback", "from", currentModel, "to", r.cfg.Fallback)
		currentModel = r.cfg.Fallback
		currentProvider = fallbackProvider
	}

	return nil, kotobaErrors.Transient("fallback exhausted")
}

// createProvider creates a provider instance based on registry entry.
// Missing API keys are allowed; requests then carry the session credential.
func (r *DefaultModelRouter) createProvider(entry config.ModelRegistry) (Provider, error) {
	switch entry.Provider {
	case "openai":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOpenAIBaseURL
		}
		return NewProviderAdapter(openaiProvider.New(entry.APIKey, baseURL, entry.Name), entry.Name, "openai"), nil

	case "ollama":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOllamaBaseURL
		}

		apiKey := entry.APIKey
		if apiKey == "" {
			apiKey = config.DefaultOllamaAPIKey
		}
		return NewProviderAdapter(openaiProvider.New(apiKey, baseURL, entry.Name), entry.Name, "ollama"), nil

	case "anthropic":
		return NewProviderAdapter(anthropicProvider.New(entry.APIKey, entry.Name), entry.Name, "anthropic"), nil

	case "gemini":
		return NewProviderAdapter(geminiProvider.New(entry.APIKey, entry.Name), entry.Name, "gemini"), nil

	default:
		return nil, kotobaErrors.InvalidInput(fmt.Sprintf("unknown provider type: %s", entry.Provider))
	}
}
