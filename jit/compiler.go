package jit

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/tierup/method"
)

// Compiler owns the collaborators, configuration and counters shared by all
// tasks. It is safe for concurrent use.
type Compiler struct {
	settings atomic.Pointer[settings]
	emitter  Emitter
	loader   Loader
	logger   *zap.Logger
	counts   Counts
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger diagnostics are written to instead of the
// package logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCompiler creates a compiler. A nil cfg means DefaultConfig.
func NewCompiler(cfg *Config, emitter Emitter, loader Loader, opts ...Option) *Compiler {
	c := &Compiler{
		emitter: emitter,
		loader:  loader,
		logger:  Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.settings.Store(newSettings(cfg))
	return c
}

// Counts returns the compiler's outcome counters.
func (c *Compiler) Counts() *Counts {
	return &c.counts
}

// Config returns a copy of the current configuration.
func (c *Compiler) Config() Config {
	cfg := c.snapshot().cfg
	cfg.Exclude = append([]string(nil), cfg.Exclude...)
	return cfg
}

// Roster returns the current exclusion roster.
func (c *Compiler) Roster() *Roster {
	return c.snapshot().roster
}

// Reconfigure publishes a new configuration. Running tasks keep the
// snapshot they started with.
func (c *Compiler) Reconfigure(cfg *Config) {
	c.settings.Store(newSettings(cfg))
	c.logger.Debug("compiler reconfigured",
		zap.Int("excluded", c.Roster().Len()),
		zap.Bool("logging", cfg != nil && cfg.Logging),
	)
}

// Compile runs one task for m synchronously and returns its result.
func (c *Compiler) Compile(ctx context.Context, m *method.Method, className string) Result {
	return NewTask(c, m, className).Exec(ctx)
}

func (c *Compiler) snapshot() *settings {
	return c.settings.Load()
}
