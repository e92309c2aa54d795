package runtime

import (
	"context"
	"io"
	"log/slog"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/command"
	"github.com/harunnryd/kotoba/internal/composer"
	"github.com/harunnryd/kotoba/internal/config"
	"github.com/harunnryd/kotoba/internal/contextsource"
	"github.com/harunnryd/kotoba/internal/engine"
	"github.com/harunnryd/kotoba/internal/errors"
	"github.com/harunnryd/kotoba/internal/functions"
	"github.com/harunnryd/kotoba/internal/model"
	"github.com/harunnryd/kotoba/internal/session"
)

// RuntimeComponents holds everything a CLI command needs. Session and
// Commands stay nil until StartSession is called.
type RuntimeComponents struct {
	Ctx      context.Context
	Config   *config.Config
	Registry *contextsource.Registry
	Composer *composer.Composer
	Router   model.ModelRouter
	Session  *session.Session
	Commands *command.Handler
	Out      io.Writer

	cancel context.CancelFunc
}

func NewRuntimeComponents(ctx context.Context, cfg *config.Config, router model.ModelRouter, out io.Writer) (*RuntimeComponents, error) {
	registry, err := initRegistry(cfg.Context)
	if err != nil {
		return nil, err
	}

	comp := composer.New(registry, nil)
	if cfg.Chat.SystemTemplate != "" {
		if err := comp.SetTemplate(cfg.Chat.SystemTemplate); err != nil {
			return nil, errors.WrapWithCategory(err, "chat.system_template", errors.ErrConfig)
		}
	}

	if router == nil {
		r, err := model.NewModelRouter(cfg.Models)
		if err != nil {
			return nil, errors.Wrap(err, "init model router")
		}
		router = r
	}

	ctx, cancel := context.WithCancel(ctx)
	return &RuntimeComponents{
		Ctx:      ctx,
		Config:   cfg,
		Registry: registry,
		Composer: comp,
		Router:   router,
		Out:      out,
		cancel:   cancel,
	}, nil
}

func initRegistry(cfg config.ContextConfig) (*contextsource.Registry, error) {
	registry := contextsource.NewRegistry()

	if cfg.Builtins {
		if err := contextsource.RegisterBuiltins(registry); err != nil {
			return nil, errors.Wrap(err, "register builtin functions")
		}
	}

	if cfg.File != "" {
		n, err := contextsource.LoadFile(registry, cfg.File)
		if err != nil {
			return nil, err
		}
		slog.Debug("Context file loaded", "path", cfg.File, "entries", n)
	}

	return registry, nil
}

// Functions returns the function snapshot the next session would advertise.
func (c *RuntimeComponents) Functions() []chat.FunctionDefinition {
	return functions.Snapshot(c.Registry)
}

// StartSession validates the chat settings and starts a session. onUpdate
// observes every transcript change and may be nil.
func (c *RuntimeComponents) StartSession(onUpdate func(chat.Message)) error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	timeout, err := config.DurationOrDefault(c.Config.Chat.RequestTimeout, config.DefaultChatRequestTimeout)
	if err != nil {
		return errors.WrapWithCategory(err, "chat.request_timeout", errors.ErrConfig)
	}

	factory := engine.NewFactory(c.Router, engine.Settings{
		Model:            c.Config.Models.Default,
		MaxFunctionTurns: c.Config.Chat.MaxFunctionTurns,
		Stream:           c.Config.Chat.Stream,
		RequestTimeout:   timeout,
		OnUpdate:         onUpdate,
	})
	adapter := session.NewAdapter(factory, c.Config.Chat.AuthToken)

	sess, err := session.NewWithComposer(c.Registry, c.Composer, adapter, session.Config{
		ID: c.Config.Chat.SessionID,
	})
	if err != nil {
		return err
	}

	c.Session = sess
	c.Commands = command.NewHandler(sess, c.Registry, c.Out)
	slog.Info("Chat session started", "session_id", sess.ID(), "model", c.Config.Models.Default)
	return nil
}

func (c *RuntimeComponents) Stop() {
	if c.Session != nil {
		c.Session.Stop()
	}
	if c.cancel != nil {
		c.cancel()
	}
}
