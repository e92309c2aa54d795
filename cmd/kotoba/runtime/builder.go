package runtime

import (
	"context"
	"io"
	"os"

	"github.com/harunnryd/kotoba/internal/config"
	"github.com/harunnryd/kotoba/internal/errors"
	"github.com/harunnryd/kotoba/internal/model"
)

type RuntimeBuilder interface {
	WithContext(ctx context.Context) RuntimeBuilder
	WithConfig(cfg *config.Config) RuntimeBuilder
	WithRouter(router model.ModelRouter) RuntimeBuilder
	WithOutput(w io.Writer) RuntimeBuilder
	Build() (*RuntimeComponents, error)
}

type DefaultRuntimeBuilder struct {
	ctx    context.Context
	cfg    *config.Config
	router model.ModelRouter
	out    io.Writer
}

func NewRuntimeBuilder() RuntimeBuilder {
	return &DefaultRuntimeBuilder{}
}

func (b *DefaultRuntimeBuilder) WithContext(ctx context.Context) RuntimeBuilder {
	b.ctx = ctx
	return b
}

func (b *DefaultRuntimeBuilder) WithConfig(cfg *config.Config) RuntimeBuilder {
	b.cfg = cfg
	return b
}

// WithRouter replaces the router built from cfg.Models.
func (b *DefaultRuntimeBuilder) WithRouter(router model.ModelRouter) RuntimeBuilder {
	b.router = router
	return b
}

func (b *DefaultRuntimeBuilder) WithOutput(w io.Writer) RuntimeBuilder {
	b.out = w
	return b
}

func (b *DefaultRuntimeBuilder) Build() (*RuntimeComponents, error) {
	if b.ctx == nil {
		b.ctx = context.Background()
	}

	if b.cfg == nil {
		return nil, errors.Config("config is required")
	}

	if b.out == nil {
		b.out = os.Stdout
	}

	return NewRuntimeComponents(b.ctx, b.cfg, b.router, b.out)
}
