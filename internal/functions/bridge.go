// Package functions snapshots the functions a session advertises to the
// assistant.
package functions

import (
	"context"
	"log/slog"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/contextsource"
	"github.com/harunnryd/kotoba/internal/errors"
)

// Snapshot deep-copies the source's current function list. An absent or
// failing source yields an empty, non-nil list.
func Snapshot(source contextsource.ContextSource) (defs []chat.FunctionDefinition) {
	defs = []chat.FunctionDefinition{}
	if source == nil {
		return defs
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Function source unavailable, advertising no functions", "panic", r)
			defs = []chat.FunctionDefinition{}
		}
	}()

	return chat.CloneDefinitions(source.AvailableFunctions())
}

// Handler returns the source's call handler. Without a source every call
// fails with ErrNotFound.
func Handler(source contextsource.ContextSource) (h chat.FunctionCallHandler) {
	if source != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Warn("Function source unavailable, calls will fail", "panic", r)
				}
			}()
			h = source.FunctionCallHandler()
		}()
	}
	if h != nil {
		return h
	}
	return func(ctx context.Context, call chat.FunctionCall) (string, error) {
		return "", errors.NotFound("function " + call.Name)
	}
}
