// Package chat holds the message and function types shared by the session
// composer, the function bridge and the chat engine.
package chat

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleFunction:
		return true
	}
	return false
}

// FunctionCall is a request from the assistant to run a named function.
// Arguments is raw JSON text as produced by the model.
type FunctionCall struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string `json:"name" yaml:"name"`
	Arguments string `json:"arguments" yaml:"arguments"`
}

// Message is one transcript entry.
type Message struct {
	ID             string        `json:"id" yaml:"id"`
	Role           Role          `json:"role" yaml:"role"`
	Content        string        `json:"content" yaml:"content"`
	Name           string        `json:"name,omitempty" yaml:"name,omitempty"`
	FunctionCall   *FunctionCall `json:"function_call,omitempty" yaml:"function_call,omitempty"`
	FunctionCallID string        `json:"function_call_id,omitempty" yaml:"function_call_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at,omitzero" yaml:"created_at,omitempty"`
}

// Clone returns a copy that shares no pointers with m.
func (m Message) Clone() Message {
	if m.FunctionCall != nil {
		fc := *m.FunctionCall
		m.FunctionCall = &fc
	}
	return m
}

// CloneMessages copies a message slice. The result is never nil.
func CloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}

// NewID returns a fresh message identifier.
func NewID() string {
	return ulid.Make().String()
}

// NewUserMessage builds a user message with a fresh id.
func NewUserMessage(content string) Message {
	return Message{
		ID:        NewID(),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// FunctionDefinition describes a function the assistant may call.
// Parameters is a JSON schema object.
type FunctionDefinition struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// FunctionCallHandler resolves a function call into a result string.
type FunctionCallHandler func(ctx context.Context, call FunctionCall) (string, error)
