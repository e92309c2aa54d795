package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/errors"
	"github.com/harunnryd/kotoba/internal/logger"
	"github.com/harunnryd/kotoba/internal/model/contract"

	"github.com/oklog/ulid/v2"
)

const defaultMaxFunctionTurns = 5

// Completer is the model transport the engine sends requests through.
type Completer interface {
	Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	RouteStream(ctx context.Context, model string, req contract.CompletionRequest, onDelta contract.DeltaFunc) (*contract.CompletionResponse, error)
}

// Settings are shared by every engine a factory builds.
type Settings struct {
	Model            string
	MaxFunctionTurns int
	Stream           bool
	RequestTimeout   time.Duration
	// OnUpdate observes every transcript change, including streamed deltas.
	OnUpdate func(msg chat.Message)
}

// NewFactory returns a Factory producing Engines over completer.
func NewFactory(completer Completer, settings Settings) Factory {
	return func(opts Options) (ChatEngine, error) {
		return New(completer, settings, opts)
	}
}

// Engine is the reference ChatEngine. It keeps the transcript in memory,
// streams assistant replies into a partial entry and resolves function calls
// through Options.OnFunctionCall.
type Engine struct {
	id             string
	completer      Completer
	settings       Settings
	onFunctionCall chat.FunctionCallHandler
	body           Body

	mu        sync.Mutex
	messages  []chat.Message
	status    Status
	lastErr   error
	input     string
	requestID uint64
	cancel    context.CancelFunc
	pendingID string
	// pendingCall is the function call being resolved by the handler.
	pendingCall *chat.FunctionCall
}

var _ ChatEngine = (*Engine)(nil)

func New(completer Completer, settings Settings, opts Options) (*Engine, error) {
	if completer == nil {
		return nil, errors.InvalidInput("engine requires a completer")
	}
	if settings.MaxFunctionTurns <= 0 {
		settings.MaxFunctionTurns = defaultMaxFunctionTurns
	}

	return &Engine{
		id:             opts.ID,
		completer:      completer,
		settings:       settings,
		onFunctionCall: opts.OnFunctionCall,
		body:           opts.Body,
		messages:       chat.CloneMessages(opts.InitialMessages),
	}, nil
}

func (e *Engine) Messages() []chat.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return chat.CloneMessages(e.messages)
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Err returns the failure that moved the engine into StatusError.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) IsLoading() bool {
	return e.Status() == StatusLoading
}

func (e *Engine) Input() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.input
}

func (e *Engine) SetInput(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.input = s
}

// Append adds msg to the transcript and asks the model for a reply.
func (e *Engine) Append(ctx context.Context, msg chat.Message, opts ...RequestOption) (*chat.Message, error) {
	if !msg.Role.Valid() {
		return nil, errors.InvalidInput(fmt.Sprintf("unknown role %q", msg.Role))
	}
	if msg.ID == "" {
		msg.ID = chat.NewID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	e.mu.Lock()
	if e.status == StatusLoading {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	e.messages = append(e.messages, msg.Clone())
	reqCtx, reqID := e.beginLocked(ctx)
	e.mu.Unlock()

	e.notify(msg)
	return e.run(reqCtx, reqID, opts)
}

// Reload drops everything after the last user message and asks again.
func (e *Engine) Reload(ctx context.Context, opts ...RequestOption) (*chat.Message, error) {
	e.mu.Lock()
	if e.status == StatusLoading {
		e.mu.Unlock()
		return nil, ErrBusy
	}

	last := -1
	for i := len(e.messages) - 1; i >= 0; i-- {
		if e.messages[i].Role == chat.RoleUser {
			last = i
			break
		}
	}
	if last < 0 {
		e.mu.Unlock()
		return nil, nil
	}
	e.messages = e.messages[:last+1]
	reqCtx, reqID := e.beginLocked(ctx)
	e.mu.Unlock()

	return e.run(reqCtx, reqID, opts)
}

// Stop cancels the in-flight request. The partial assistant entry is kept
// unless it is still empty, and a function call awaiting its handler is
// answered as cancelled. Calling Stop while idle does nothing.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.status != StatusLoading {
		e.mu.Unlock()
		return
	}

	e.requestID++
	answer := e.endLocked(callCancelled)
	e.status = StatusIdle
	e.mu.Unlock()

	slog.Debug("Request stopped", "session_id", e.id)
	e.notifyAnswer(answer)
}

func (e *Engine) beginLocked(ctx context.Context) (context.Context, uint64) {
	ctx = logger.WithSessionID(ctx, e.id)
	ctx = logger.WithTraceID(ctx, ulid.Make().String())

	var cancel context.CancelFunc
	if e.settings.RequestTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.settings.RequestTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	e.requestID++
	e.cancel = cancel
	e.status = StatusLoading
	e.lastErr = nil
	return ctx, e.requestID
}

const callCancelled = "function call cancelled"

// endLocked releases the request context and drops an empty placeholder.
// A function call still awaiting its result is answered with outcome so the
// transcript never holds an unanswered call.
func (e *Engine) endLocked(outcome string) *chat.Message {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}

	var answer *chat.Message
	if e.pendingCall != nil {
		msg := functionResult(*e.pendingCall, outcome)
		e.messages = append(e.messages, msg)
		e.pendingCall = nil
		answer = &msg
	}

	if e.pendingID == "" {
		return answer
	}
	n := len(e.messages)
	if n > 0 {
		last := e.messages[n-1]
		if last.ID == e.pendingID && last.Content == "" && last.FunctionCall == nil {
			e.messages = e.messages[:n-1]
		}
	}
	e.pendingID = ""
	return answer
}

func (e *Engine) notifyAnswer(answer *chat.Message) {
	if answer != nil {
		e.notify(*answer)
	}
}

func functionResult(call chat.FunctionCall, content string) chat.Message {
	return chat.Message{
		ID:             chat.NewID(),
		Role:           chat.RoleFunction,
		Name:           call.Name,
		Content:        content,
		FunctionCallID: call.ID,
		CreatedAt:      time.Now(),
	}
}

func (e *Engine) finish(reqID uint64) {
	e.mu.Lock()
	if reqID != e.requestID {
		e.mu.Unlock()
		return
	}
	answer := e.endLocked(callCancelled)
	e.status = StatusIdle
	e.mu.Unlock()
	e.notifyAnswer(answer)
}

func (e *Engine) fail(reqID uint64, err error) {
	e.mu.Lock()
	if reqID != e.requestID {
		e.mu.Unlock()
		return
	}
	answer := e.endLocked("function call failed: " + err.Error())
	e.status = StatusError
	e.lastErr = err
	e.mu.Unlock()
	e.notifyAnswer(answer)
}

func (e *Engine) current(reqID uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return reqID == e.requestID
}

// appendCurrent appends msg if reqID is still the active request.
func (e *Engine) appendCurrent(reqID uint64, msg chat.Message, pending bool) bool {
	e.mu.Lock()
	if reqID != e.requestID {
		e.mu.Unlock()
		return false
	}
	e.messages = append(e.messages, msg.Clone())
	if pending {
		e.pendingID = msg.ID
	}
	e.mu.Unlock()

	e.notify(msg)
	return true
}

// beginCall marks call as awaiting a result for the active request.
func (e *Engine) beginCall(reqID uint64, call chat.FunctionCall) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if reqID != e.requestID {
		return false
	}
	e.pendingCall = &call
	return true
}

// answerCall records the handler result for the pending call.
func (e *Engine) answerCall(reqID uint64, call chat.FunctionCall, result string) bool {
	e.mu.Lock()
	if reqID != e.requestID {
		e.mu.Unlock()
		return false
	}
	msg := functionResult(call, result)
	e.messages = append(e.messages, msg)
	e.pendingCall = nil
	e.mu.Unlock()

	e.notify(msg)
	return true
}

// updatePending rewrites the placeholder entry in place.
func (e *Engine) updatePending(reqID uint64, id string, fn func(*chat.Message)) (chat.Message, bool) {
	e.mu.Lock()
	if reqID != e.requestID {
		e.mu.Unlock()
		return chat.Message{}, false
	}
	for i := len(e.messages) - 1; i >= 0; i-- {
		if e.messages[i].ID == id {
			fn(&e.messages[i])
			updated := e.messages[i].Clone()
			e.mu.Unlock()
			e.notify(updated)
			return updated, true
		}
	}
	e.mu.Unlock()
	return chat.Message{}, false
}

func (e *Engine) notify(msg chat.Message) {
	if e.settings.OnUpdate != nil {
		e.settings.OnUpdate(msg.Clone())
	}
}

func (e *Engine) run(ctx context.Context, reqID uint64, opts []RequestOption) (*chat.Message, error) {
	o := RequestOptions{Model: e.settings.Model}
	for _, opt := range opts {
		opt(&o)
	}
	functions := e.body.Functions
	if o.functions {
		functions = o.Functions
	}

	log := logger.FromContext(ctx)
	log.Debug("Chat request started", "model", o.Model, "functions", len(functions))

	for turn := 0; turn < e.settings.MaxFunctionTurns; turn++ {
		req := contract.CompletionRequest{
			Model:    o.Model,
			Messages: toContractMessages(e.Messages()),
			Tools:    toToolDefs(functions),
			APIKey:   e.body.PreviewToken,
		}

		placeholder := chat.Message{ID: chat.NewID(), Role: chat.RoleAssistant, CreatedAt: time.Now()}
		if !e.appendCurrent(reqID, placeholder, true) {
			return nil, nil
		}

		resp, err := e.complete(ctx, o.Model, req, func(delta string) {
			e.updatePending(reqID, placeholder.ID, func(m *chat.Message) {
				m.Content += delta
			})
		})
		if !e.current(reqID) {
			log.Debug("Chat request stopped", "turn", turn+1)
			return nil, nil
		}
		if err != nil {
			if resp != nil && resp.Content != "" {
				e.updatePending(reqID, placeholder.ID, func(m *chat.Message) {
					if m.Content == "" {
						m.Content = resp.Content
					}
				})
			}
			log.Error("Chat request failed", "turn", turn+1, "error", err)
			e.fail(reqID, err)
			return nil, err
		}

		reply, ok := e.updatePending(reqID, placeholder.ID, func(m *chat.Message) {
			m.Content = resp.Content
			if len(resp.ToolCalls) > 0 {
				tc := resp.ToolCalls[0]
				m.FunctionCall = &chat.FunctionCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Input}
			}
		})
		if !ok {
			return nil, nil
		}
		if len(resp.ToolCalls) > 1 {
			log.Warn("Model requested several function calls, running the first", "count", len(resp.ToolCalls))
		}

		if reply.FunctionCall == nil || e.onFunctionCall == nil {
			e.finish(reqID)
			log.Debug("Chat request completed", "turns", turn+1)
			return &reply, nil
		}

		call := *reply.FunctionCall
		if !e.beginCall(reqID, call) {
			return nil, nil
		}
		result, err := e.onFunctionCall(ctx, call)
		if !e.current(reqID) {
			return nil, nil
		}
		if err != nil {
			err = errors.Wrap(err, "function call "+call.Name)
			log.Error("Function call failed", "function", call.Name, "error", err)
			e.fail(reqID, err)
			return nil, err
		}

		if !e.answerCall(reqID, call, result) {
			return nil, nil
		}
	}

	err := fmt.Errorf("%w after %d turns", ErrMaxFunctionTurns, e.settings.MaxFunctionTurns)
	log.Error("Chat request failed", "error", err)
	e.fail(reqID, err)
	return nil, err
}

func (e *Engine) complete(ctx context.Context, model string, req contract.CompletionRequest, onDelta contract.DeltaFunc) (*contract.CompletionResponse, error) {
	var resp *contract.CompletionResponse
	var err error
	if e.settings.Stream {
		resp, err = e.completer.RouteStream(ctx, model, req, onDelta)
	} else {
		resp, err = e.completer.Route(ctx, model, req)
	}
	if err == nil && resp == nil {
		return nil, errors.InvalidModelOutput("empty completion response")
	}
	return resp, err
}
