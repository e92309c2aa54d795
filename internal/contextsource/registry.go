package contextsource

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/errors"
	"github.com/harunnryd/kotoba/internal/logger"

	"github.com/oklog/ulid/v2"
)

var (
	ErrEmptyName     = errors.InvalidInput("function name is required")
	ErrAlreadyExists = errors.Conflict("function already registered")
)

type entry struct {
	id       string
	value    string
	parentID string
	children []string
}

type registeredFunction struct {
	def     chat.FunctionDefinition
	handler Handler
}

// Registry is an in-process ContextSource. Application code adds context
// entries and functions; sessions read them.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	roots     []string
	functions map[string]registeredFunction
}

var _ ContextSource = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		entries:   make(map[string]*entry),
		functions: make(map[string]registeredFunction),
	}
}

// AddContext records a readable context entry and returns its id. A non-empty
// parentID nests the entry under an existing one.
func (r *Registry) AddContext(value, parentID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := ulid.Make().String()
	e := &entry{id: id, value: value, parentID: parentID}

	if parentID == "" {
		r.roots = append(r.roots, id)
	} else {
		parent, ok := r.entries[parentID]
		if !ok {
			return "", errors.NotFound(fmt.Sprintf("context entry %s", parentID))
		}
		parent.children = append(parent.children, id)
	}

	r.entries[id] = e
	return id, nil
}

// UpdateContext replaces the value of an existing entry.
func (r *Registry) UpdateContext(id, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return errors.NotFound(fmt.Sprintf("context entry %s", id))
	}
	e.value = value
	return nil
}

// RemoveContext removes an entry together with its descendants.
func (r *Registry) RemoveContext(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return errors.NotFound(fmt.Sprintf("context entry %s", id))
	}

	if e.parentID == "" {
		r.roots = removeID(r.roots, id)
	} else if parent, ok := r.entries[e.parentID]; ok {
		parent.children = removeID(parent.children, id)
	}

	var drop func(string)
	drop = func(id string) {
		if child, ok := r.entries[id]; ok {
			for _, c := range child.children {
				drop(c)
			}
			delete(r.entries, id)
		}
	}
	drop(id)
	return nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

// ContextString renders entries as a numbered outline in insertion order.
func (r *Registry) ContextString() string {
	if r == nil {
		return ""
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	var walk func(ids []string, prefix string, depth int)
	walk = func(ids []string, prefix string, depth int) {
		for i, id := range ids {
			e := r.entries[id]
			label := fmt.Sprintf("%s%d.", prefix, i+1)
			b.WriteString(strings.Repeat("   ", depth))
			b.WriteString(label)
			b.WriteString(" ")
			b.WriteString(e.value)
			b.WriteString("\n")
			walk(e.children, label, depth+1)
		}
	}
	walk(r.roots, "", 0)

	return strings.TrimSuffix(b.String(), "\n")
}

// RegisterFunction makes a function available to the assistant.
func (r *Registry) RegisterFunction(def chat.FunctionDefinition, handler Handler) error {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return ErrEmptyName
	}
	if handler == nil {
		return errors.InvalidInput(fmt.Sprintf("function %s has no handler", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("%s: %w", name, ErrAlreadyExists)
	}

	def = chat.CloneDefinition(def)
	def.Name = name
	r.functions[name] = registeredFunction{def: def, handler: handler}
	return nil
}

// RemoveFunction unregisters a function. It reports whether it existed.
func (r *Registry) RemoveFunction(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = strings.TrimSpace(name)
	if _, ok := r.functions[name]; !ok {
		return false
	}
	delete(r.functions, name)
	return true
}

// AvailableFunctions lists registered definitions sorted by name.
func (r *Registry) AvailableFunctions() []chat.FunctionDefinition {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]chat.FunctionDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.functions[name].def)
	}
	return defs
}

// FunctionCallHandler returns a handler bound to this registry.
func (r *Registry) FunctionCallHandler() chat.FunctionCallHandler {
	if r == nil {
		return nil
	}
	return r.Call
}

// Call validates and runs a function call.
func (r *Registry) Call(ctx context.Context, call chat.FunctionCall) (string, error) {
	name := strings.TrimSpace(call.Name)

	r.mu.RLock()
	fn, ok := r.functions[name]
	r.mu.RUnlock()
	if !ok {
		return "", errors.NotFound(fmt.Sprintf("function %s", name))
	}

	args := json.RawMessage(strings.TrimSpace(call.Arguments))
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if err := ValidateArguments(fn.def.Parameters, args); err != nil {
		return "", errors.WrapWithCategory(err, fmt.Sprintf("function %s arguments", name), errors.ErrInvalidInput)
	}

	log := logger.FromContext(ctx)
	log.Debug("Calling function", "function", name, "call_id", call.ID)

	result, err := fn.handler(ctx, args)
	if err != nil {
		log.Warn("Function failed", "function", name, "error", err)
		return "", fmt.Errorf("function %s failed: %w", name, err)
	}

	log.Debug("Function completed", "function", name, "bytes", len(result))
	return result, nil
}
