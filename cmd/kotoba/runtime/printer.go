package runtime

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/harunnryd/kotoba/internal/chat"

	"charm.land/lipgloss/v2"
)

var (
	functionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// streamPrinter writes assistant replies as they grow. Engine updates carry
// the whole message, so it tracks how much of each reply is already printed.
type streamPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	id      string
	printed int
	called  bool
	dirty   bool
}

func newStreamPrinter(out io.Writer) *streamPrinter {
	return &streamPrinter{out: out}
}

func (p *streamPrinter) Update(msg chat.Message) {
	if msg.Role != chat.RoleAssistant {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if msg.ID != p.id {
		p.breakLineLocked()
		p.id = msg.ID
		p.printed = 0
		p.called = false
	}

	if len(msg.Content) > p.printed {
		fmt.Fprint(p.out, msg.Content[p.printed:])
		p.printed = len(msg.Content)
		p.dirty = !strings.HasSuffix(msg.Content, "\n")
	}

	if msg.FunctionCall != nil && !p.called {
		p.breakLineLocked()
		fmt.Fprintln(p.out, functionStyle.Render(fmt.Sprintf("[function] %s(%s)", msg.FunctionCall.Name, msg.FunctionCall.Arguments)))
		p.called = true
	}
}

// Finish ends the current reply and resets tracking for the next one.
func (p *streamPrinter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakLineLocked()
	p.id = ""
	p.printed = 0
	p.called = false
}

// Notice prints a status line without splitting a reply mid-line.
func (p *streamPrinter) Notice(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakLineLocked()
	fmt.Fprintln(p.out, noticeStyle.Render(text))
}

func (p *streamPrinter) breakLineLocked() {
	if p.dirty {
		fmt.Fprintln(p.out)
		p.dirty = false
	}
}
