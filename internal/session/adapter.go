package session

import (
	"strings"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/engine"
	"github.com/harunnryd/kotoba/internal/errors"
)

var ErrMissingAuthToken = errors.Config("chat auth token is empty")

// Adapter packages a composed session into engine options and starts the
// engine. It adds no behaviour of its own.
type Adapter struct {
	factory   engine.Factory
	authToken string
}

func NewAdapter(factory engine.Factory, authToken string) *Adapter {
	return &Adapter{factory: factory, authToken: authToken}
}

// Start hands cfg.InitialMessages, the function hook and the advertised
// functions to the engine factory unchanged.
func (a *Adapter) Start(cfg Config, handler chat.FunctionCallHandler, functions []chat.FunctionDefinition) (engine.ChatEngine, error) {
	if strings.TrimSpace(a.authToken) == "" {
		return nil, ErrMissingAuthToken
	}
	if a.factory == nil {
		return nil, errors.Internal("session adapter has no engine factory")
	}

	return a.factory(engine.Options{
		ID:              cfg.ID,
		InitialMessages: cfg.InitialMessages,
		OnFunctionCall:  handler,
		Body: engine.Body{
			ID:           cfg.ID,
			PreviewToken: a.authToken,
			Functions:    functions,
		},
	})
}
