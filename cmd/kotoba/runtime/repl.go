package runtime

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/concurrency"
	"github.com/harunnryd/kotoba/internal/errors"
)

type REPL struct {
	components *RuntimeComponents
	reader     *bufio.Reader
	out        io.Writer
	printer    *streamPrinter

	// lines carries input read while a turn is running. Nil outside Start.
	lines <-chan string
}

func NewREPL(components *RuntimeComponents, in io.Reader) *REPL {
	return &REPL{
		components: components,
		reader:     bufio.NewReader(in),
		out:        components.Out,
		printer:    newStreamPrinter(components.Out),
	}
}

// OnUpdate is the transcript observer to pass to StartSession.
func (r *REPL) OnUpdate(msg chat.Message) {
	r.printer.Update(msg)
}

// Interrupt stops the reply in progress. It reports false when nothing was
// loading, so the caller can treat the interrupt as a request to exit.
func (r *REPL) Interrupt() bool {
	sess := r.components.Session
	if sess == nil || !sess.IsLoading() {
		return false
	}
	sess.Stop()
	return true
}

// Start reads lines until EOF, /exit or ctx is cancelled.
func (r *REPL) Start(ctx context.Context) error {
	if r.components.Session == nil {
		return errors.Internal("repl started without a session")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintf(r.out, "Kotoba chat session: %s\n", r.components.Session.ID())
	fmt.Fprintln(r.out, noticeStyle.Render("Type /help for commands, /exit to quit."))

	lines := make(chan string)
	r.lines = lines
	defer func() { r.lines = nil }()
	readErr := make(chan error, 1)
	concurrency.SafeGo(func() {
		for {
			text, err := r.reader.ReadString('\n')
			if text != "" {
				select {
				case lines <- text:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}, nil)

	for {
		fmt.Fprint(r.out, "> ")

		var text string
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err == io.EOF {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		case text = <-lines:
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if text == "/exit" {
			return nil
		}

		if err := r.handleLine(ctx, text); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(r.out, errorStyle.Render("error: "+err.Error()))
		}
	}
}

// Ask sends one user message and prints the reply.
func (r *REPL) Ask(ctx context.Context, prompt string) error {
	if r.components.Session == nil {
		return errors.Internal("ask without a session")
	}
	return r.wait(ctx, func(ctx context.Context) error {
		_, err := r.components.Session.Append(ctx, chat.NewUserMessage(prompt))
		return err
	})
}

func (r *REPL) handleLine(ctx context.Context, text string) error {
	if r.components.Commands != nil && r.components.Commands.CanHandle(text) {
		return r.wait(ctx, func(ctx context.Context) error {
			return r.components.Commands.Execute(ctx, text)
		})
	}
	return r.Ask(ctx, text)
}

// wait runs fn in the background so that a cancelled ctx returns at once
// instead of waiting for the model. Lines typed meanwhile are handled by
// whileBusy.
func (r *REPL) wait(ctx context.Context, fn func(context.Context) error) error {
	done := concurrency.Go(func() error { return fn(ctx) })
	defer r.printer.Finish()

	for {
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			r.components.Session.Stop()
			return ctx.Err()
		case text := <-r.lines:
			r.whileBusy(strings.TrimSpace(text))
		}
	}
}

// whileBusy accepts /stop during a turn and turns away everything else.
func (r *REPL) whileBusy(text string) {
	switch text {
	case "":
	case "/stop":
		if r.Interrupt() {
			r.printer.Notice("Stopped.")
		} else {
			r.printer.Notice("Nothing to stop.")
		}
	default:
		r.printer.Notice("Still replying. Type /stop or press Ctrl-C to stop it.")
	}
}
