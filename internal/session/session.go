// Package session composes a chat session from ambient context and exposes
// the surface a chat UI drives.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/composer"
	"github.com/harunnryd/kotoba/internal/contextsource"
	"github.com/harunnryd/kotoba/internal/engine"
	"github.com/harunnryd/kotoba/internal/errors"
	"github.com/harunnryd/kotoba/internal/functions"

	"github.com/oklog/ulid/v2"
)

// Config describes one session. InitialMessages are the prior messages
// before composition and the composed list when handed to the adapter.
type Config struct {
	ID                  string
	InitialMessages     []chat.Message
	SystemMessagePolicy composer.SystemMessagePolicy
}

// Session is the produced surface: a filtered transcript view plus the
// engine's controls.
type Session struct {
	id       string
	source   contextsource.ContextSource
	composer *composer.Composer
	adapter  *Adapter
	prior    []chat.Message

	mu        sync.RWMutex
	engine    engine.ChatEngine
	functions []chat.FunctionDefinition
	system    chat.Message
}

// New composes the initial message list, snapshots the functions and starts
// the engine through adapter.
func New(source contextsource.ContextSource, adapter *Adapter, cfg Config) (*Session, error) {
	return NewWithComposer(source, composer.New(source, cfg.SystemMessagePolicy), adapter, cfg)
}

// NewWithComposer is New with a caller-configured composer, for custom templates.
func NewWithComposer(source contextsource.ContextSource, c *composer.Composer, adapter *Adapter, cfg Config) (*Session, error) {
	if adapter == nil {
		return nil, errors.Internal("session requires an adapter")
	}

	s := &Session{
		id:       cfg.ID,
		source:   source,
		composer: c,
		adapter:  adapter,
		prior:    chat.CloneMessages(cfg.InitialMessages),
	}
	if s.id == "" {
		s.id = ulid.Make().String()
	}
	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) start() error {
	initial := s.composer.Compose(s.prior)
	fns := functions.Snapshot(s.source)

	eng, err := s.adapter.Start(Config{ID: s.id, InitialMessages: initial}, functions.Handler(s.source), fns)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.engine = eng
	s.functions = fns
	s.system = initial[0]
	s.mu.Unlock()

	slog.Debug("Session composed", "session_id", s.id, "messages", len(initial), "functions", len(fns))
	return nil
}

func (s *Session) current() engine.ChatEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

func (s *Session) ID() string {
	return s.id
}

// VisibleMessages filters the engine transcript on every call.
func (s *Session) VisibleMessages() []chat.Message {
	return Visible(s.current().Messages())
}

// Transcript returns the unfiltered engine transcript.
func (s *Session) Transcript() []chat.Message {
	return s.current().Messages()
}

func (s *Session) Append(ctx context.Context, msg chat.Message, opts ...engine.RequestOption) (*chat.Message, error) {
	return s.current().Append(ctx, msg, opts...)
}

func (s *Session) Reload(ctx context.Context, opts ...engine.RequestOption) (*chat.Message, error) {
	return s.current().Reload(ctx, opts...)
}

func (s *Session) Stop() {
	s.current().Stop()
}

func (s *Session) IsLoading() bool {
	return s.current().IsLoading()
}

func (s *Session) Input() string {
	return s.current().Input()
}

func (s *Session) SetInput(v string) {
	s.current().SetInput(v)
}

// Status reports the engine state when the engine exposes one.
func (s *Session) Status() engine.Status {
	eng := s.current()
	if st, ok := eng.(interface{ Status() engine.Status }); ok {
		return st.Status()
	}
	if eng.IsLoading() {
		return engine.StatusLoading
	}
	return engine.StatusIdle
}

// SystemMessage returns the system message the running engine was started
// with. Context changes made since then show up after Reset.
func (s *Session) SystemMessage() chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.system.Clone()
}

// Functions returns the function snapshot advertised by the running engine.
func (s *Session) Functions() []chat.FunctionDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chat.CloneDefinitions(s.functions)
}

// Reset recomposes the session from the current context and starts a fresh
// engine with the original prior messages. It stops any in-flight request.
func (s *Session) Reset() error {
	s.current().Stop()
	return s.start()
}
