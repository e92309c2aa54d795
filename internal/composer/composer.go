// Package composer builds the initial message list of a chat session: one
// system message derived from ambient context, followed by prior messages.
package composer

import (
	"log/slog"
	"sync"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/contextsource"
)

// SystemMessageID is the fixed id of the composed system message.
const SystemMessageID = "system"

// Compose returns [system] + prior. A nil policy uses DefaultSystemMessage.
// System entries in prior are dropped so the composed list holds exactly
// one. The result never aliases prior.
func Compose(contextString string, policy SystemMessagePolicy, prior []chat.Message) []chat.Message {
	return prepend(systemMessage(contextString, policy), prior)
}

func systemMessage(contextString string, policy SystemMessagePolicy) chat.Message {
	if policy == nil {
		policy = DefaultSystemMessage
	}
	return chat.Message{
		ID:      SystemMessageID,
		Role:    chat.RoleSystem,
		Content: policy(contextString),
	}
}

func prepend(system chat.Message, prior []chat.Message) []chat.Message {
	out := make([]chat.Message, 0, len(prior)+1)
	out = append(out, system)
	for _, m := range prior {
		if m.Role == chat.RoleSystem {
			slog.Warn("Dropping prior system message", "id", m.ID)
			continue
		}
		out = append(out, m.Clone())
	}
	return out
}

type cacheKey struct {
	contextString string
	generation    uint64
}

// Composer memoizes the system message for one session. The message is
// re-rendered only when the context string or the policy changes.
type Composer struct {
	source contextsource.ContextSource

	mu         sync.Mutex
	policy     SystemMessagePolicy
	template   string
	generation uint64
	cached     *chat.Message
	key        cacheKey
	recomputes int
}

// New creates a composer reading from source. Both arguments may be nil.
func New(source contextsource.ContextSource, policy SystemMessagePolicy) *Composer {
	return &Composer{source: source, policy: policy}
}

// SetPolicy installs a new policy. Function values are not comparable, so
// every call invalidates the cached message.
func (c *Composer) SetPolicy(policy SystemMessagePolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.policy = policy
	c.template = ""
	c.generation++
}

// SetTemplate installs a TemplatePolicy. The cache is kept when text equals
// the template already in use.
func (c *Composer) SetTemplate(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.template != "" && c.template == text {
		return nil
	}

	policy, err := TemplatePolicy(text)
	if err != nil {
		return err
	}
	c.policy = policy
	c.template = text
	c.generation++
	return nil
}

// SystemMessage returns the memoized system message. Repeated calls with an
// unchanged context string return the same pointer.
func (c *Composer) SystemMessage() *chat.Message {
	contextString := readContext(c.source)

	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{contextString: contextString, generation: c.generation}
	if c.cached != nil && c.key == key {
		return c.cached
	}

	msg := systemMessage(contextString, c.policy)
	c.cached = &msg
	c.key = key
	c.recomputes++
	slog.Debug("System message recomputed", "recomputes", c.recomputes, "context_bytes", len(contextString))

	return c.cached
}

// Compose returns [SystemMessage()] + prior.
func (c *Composer) Compose(prior []chat.Message) []chat.Message {
	return prepend(*c.SystemMessage(), prior)
}

// Recomputes reports how many times the system message was rendered.
func (c *Composer) Recomputes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recomputes
}

func readContext(source contextsource.ContextSource) (s string) {
	if source == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Context source panicked, composing with empty context", "panic", r)
			s = ""
		}
	}()
	return source.ContextString()
}
