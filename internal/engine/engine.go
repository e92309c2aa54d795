// Package engine defines the chat engine a session hands its transcript to,
// together with a reference implementation backed by the model router.
package engine

import (
	"context"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/errors"
)

// Status is the request state of an engine.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

var (
	ErrBusy             = errors.Conflict("a request is already in flight")
	ErrMaxFunctionTurns = errors.InvalidModelOutput("function call limit reached")
)

// Body is the per-request payload sent alongside the transcript.
type Body struct {
	ID           string                    `json:"id"`
	PreviewToken string                    `json:"previewToken"`
	Functions    []chat.FunctionDefinition `json:"functions,omitempty"`
}

// Options configures a new engine instance for one session.
type Options struct {
	ID              string
	InitialMessages []chat.Message
	OnFunctionCall  chat.FunctionCallHandler
	Body            Body
}

// RequestOptions tweaks a single Append or Reload.
type RequestOptions struct {
	Model     string
	Functions []chat.FunctionDefinition
	functions bool
}

type RequestOption func(*RequestOptions)

// WithModel routes one request to a different model.
func WithModel(model string) RequestOption {
	return func(o *RequestOptions) {
		o.Model = model
	}
}

// WithFunctions overrides the advertised functions for one request.
func WithFunctions(defs []chat.FunctionDefinition) RequestOption {
	return func(o *RequestOptions) {
		o.Functions = defs
		o.functions = true
	}
}

// ChatEngine owns a transcript and talks to the model on its behalf.
// Append and Reload block until the turn completes. They return (nil, nil)
// when the request was stopped or there was nothing to reload.
type ChatEngine interface {
	Messages() []chat.Message
	Append(ctx context.Context, msg chat.Message, opts ...RequestOption) (*chat.Message, error)
	Reload(ctx context.Context, opts ...RequestOption) (*chat.Message, error)
	Stop()
	IsLoading() bool
	Input() string
	SetInput(string)
}

// Factory constructs an engine from session options.
type Factory func(opts Options) (ChatEngine, error)
