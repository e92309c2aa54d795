// Package contextsource provides the ambient application context a chat
// session is composed from: readable context entries and callable functions.
package contextsource

import (
	"context"
	"encoding/json"

	"github.com/harunnryd/kotoba/internal/chat"
)

// ContextSource is the read side the session composer and function bridge
// consume. Implementations must be safe to call from any goroutine.
type ContextSource interface {
	// ContextString renders the current ambient context. It may be empty.
	ContextString() string
	// AvailableFunctions lists the functions the assistant may call.
	AvailableFunctions() []chat.FunctionDefinition
	// FunctionCallHandler resolves calls to the functions listed above.
	FunctionCallHandler() chat.FunctionCallHandler
}

// Handler runs a registered function with validated JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)
