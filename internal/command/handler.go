// Package command implements the slash commands of the interactive chat.
package command

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/config"
	"github.com/harunnryd/kotoba/internal/contextsource"
	"github.com/harunnryd/kotoba/internal/engine"
	"github.com/harunnryd/kotoba/internal/errors"
	"github.com/harunnryd/kotoba/internal/formatter"
	"github.com/harunnryd/kotoba/internal/logger"

	"github.com/google/shlex"
	"github.com/natefinch/atomic"
)

// Session is the part of session.Session the commands drive.
type Session interface {
	VisibleMessages() []chat.Message
	Transcript() []chat.Message
	Reload(ctx context.Context, opts ...engine.RequestOption) (*chat.Message, error)
	Stop()
	IsLoading() bool
	Reset() error
	SystemMessage() chat.Message
	Functions() []chat.FunctionDefinition
}

type Handler struct {
	session Session
	source  contextsource.ContextSource
	out     io.Writer
}

func NewHandler(s Session, source contextsource.ContextSource, out io.Writer) *Handler {
	return &Handler{
		session: s,
		source:  source,
		out:     out,
	}
}

func (h *Handler) CanHandle(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// Execute runs one slash command and writes its output. Command failures are
// reported to the output; only write failures are returned.
func (h *Handler) Execute(ctx context.Context, input string) error {
	parts, parseErr := shlex.Split(input)
	if parseErr != nil {
		parts = strings.Fields(input)
	}
	if len(parts) == 0 {
		return nil
	}
	cmd := parts[0]
	args := parts[1:]

	log := logger.FromContext(ctx)
	log.Debug("Executing slash command", "cmd", cmd)

	var msg string
	var err error

	switch cmd {
	case "/help":
		msg = helpText
	case "/stop":
		msg = h.handleStop()
	case "/reload":
		msg, err = h.handleReload(ctx)
	case "/reset":
		msg, err = h.handleReset()
	case "/system":
		msg = h.session.SystemMessage().Content
	case "/context":
		msg = h.handleContext()
	case "/functions":
		msg, err = h.handleFunctions(args)
	case "/history":
		msg, err = h.handleHistory(args)
	case "/save":
		msg, err = h.handleSave(args)
	default:
		msg = fmt.Sprintf("Unknown command: %s (try /help)", cmd)
	}

	if err != nil {
		msg = fmt.Sprintf("Command failed: %v", err)
		log.Error("Command execution failed", "cmd", cmd, "error", err)
	}

	if _, err := fmt.Fprintln(h.out, msg); err != nil {
		return fmt.Errorf("write command output: %w", err)
	}
	return nil
}

const helpText = `Available commands:
  /help                      show this help
  /stop                      stop the response in progress
  /reload                    regenerate the last reply
  /reset                     start over with the current context
  /system                    print the system message
  /context                   print the ambient context
  /functions [format]        list advertised functions (table, json, yaml)
  /history [format]          print the visible conversation
  /save <path> [format]      write the full transcript to a file (default json)
  /exit                      quit`

func (h *Handler) handleStop() string {
	if !h.session.IsLoading() {
		return "Nothing to stop."
	}
	h.session.Stop()
	return "Stopped."
}

func (h *Handler) handleReload(ctx context.Context) (string, error) {
	reply, err := h.session.Reload(ctx)
	if err != nil {
		return "", err
	}
	if reply == nil {
		return "Nothing to reload.", nil
	}
	return "Reloaded.", nil
}

func (h *Handler) handleReset() (string, error) {
	if err := h.session.Reset(); err != nil {
		return "", err
	}
	return "Session reset.", nil
}

func (h *Handler) handleContext() string {
	if h.source == nil {
		return "No context."
	}
	text := h.source.ContextString()
	if strings.TrimSpace(text) == "" {
		return "No context."
	}
	return text
}

func (h *Handler) handleFunctions(args []string) (string, error) {
	f, err := formatter.Parse(optionalArg(args, 0))
	if err != nil {
		return "", err
	}
	return f.FormatFunctions(h.session.Functions())
}

func (h *Handler) handleHistory(args []string) (string, error) {
	f, err := formatter.Parse(optionalArg(args, 0))
	if err != nil {
		return "", err
	}
	return f.FormatMessages(h.session.VisibleMessages())
}

func (h *Handler) handleSave(args []string) (string, error) {
	if len(args) < 1 {
		return "Usage: /save <path> [json|yaml]", nil
	}
	format := formatter.OutputFormatJSON
	if raw := optionalArg(args, 1); raw != "" {
		parsed, err := formatter.ParseOutputFormat(raw)
		if err != nil {
			return "", err
		}
		if parsed == formatter.OutputFormatTable {
			return "", errors.InvalidInput("transcripts are saved as json or yaml")
		}
		format = parsed
	}

	path, err := config.ExpandPath(args[0])
	if err != nil {
		return "", err
	}
	f, err := formatter.New(format)
	if err != nil {
		return "", err
	}
	transcript := h.session.Transcript()
	data, err := f.FormatMessages(transcript)
	if err != nil {
		return "", err
	}
	if err := atomic.WriteFile(path, strings.NewReader(data+"\n")); err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}
	return fmt.Sprintf("Saved %d messages to %s", len(transcript), path), nil
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
