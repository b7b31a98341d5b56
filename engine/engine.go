package engine

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/tierup/errors"
	"github.com/wippyai/tierup/ir"
	"github.com/wippyai/tierup/jit"
)

// Config holds configuration for engine creation
type Config struct {
	// MaxSpecificArity is the largest parameter count for which a
	// fixed-arity entry is exported. Negative disables fixed-arity entries.
	MaxSpecificArity int `yaml:"max_specific_arity"`

	// MemoryLimitPages caps the memory of every artifact in 64KB pages.
	// 0 means the wazero default.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`
}

// DefaultConfig exports fixed-arity entries for up to three arguments.
func DefaultConfig() *Config {
	return &Config{MaxSpecificArity: 3}
}

// Engine is a jit.Emitter and jit.Loader backed by a wazero runtime. Each
// compiled method becomes one WebAssembly module, named after its artifact
// name and shared by every method with the same content.
type Engine struct {
	runtime   wazero.Runtime
	logger    *zap.Logger
	artifacts map[string]*Artifact
	loads     singleflight.Group
	cfg       Config
	mu        sync.Mutex
	closed    atomic.Bool
}

var (
	_ jit.Emitter = (*Engine)(nil)
	_ jit.Loader  = (*Engine)(nil)
)

// New creates an engine. A nil cfg means DefaultConfig.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	return &Engine{
		runtime:   wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		logger:    Logger(),
		artifacts: make(map[string]*Artifact),
		cfg:       *cfg,
	}, nil
}

// Emit lowers the method body to a WebAssembly module. The generic entry is
// always exported; a fixed-arity entry is exported when the method takes at
// most MaxSpecificArity arguments.
func (e *Engine) Emit(ctx context.Context, req jit.EmitRequest) (*jit.Descriptor, error) {
	if req.Unit == nil || req.Unit.Scope() == nil {
		return nil, errors.InvalidInput(errors.PhaseGenerate, "emit request without a method body")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindCanceled, err, "emit")
	}

	in, err := req.Unit.Scope().EnsureInstrsReady()
	if err != nil {
		return nil, err
	}

	withFixed := in.Params <= e.cfg.MaxSpecificArity
	code, err := encodeModule(in, withFixed)
	if err != nil {
		return nil, err
	}

	desc, err := describe(code)
	if err != nil {
		return nil, err
	}
	desc.Name = req.ArtifactName
	desc.Key = req.Key

	e.logger.Debug("emitted",
		zap.String("artifact", desc.Name),
		zap.Int("bytes", len(code)),
		zap.Bool("fixed", withFixed),
	)
	return desc, nil
}

// Load compiles and instantiates the code unit under its artifact name.
//
// An artifact already loaded with identical code is reused. Load returns no
// artifact, and no error, when the engine is closed or the name is taken by
// different code. Loading runs to completion even if ctx ends meanwhile.
func (e *Engine) Load(ctx context.Context, desc *jit.Descriptor, in *ir.Instructions) (jit.Artifact, error) {
	if desc == nil || in == nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "load without descriptor or instructions")
	}
	if e.closed.Load() {
		return nil, nil
	}

	// Callers share one load, so no single caller's cancellation may end it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := e.loads.Do(desc.Name, func() (any, error) {
		return e.load(shared, desc, in)
	})
	if err != nil {
		return nil, err
	}
	art, _ := v.(*Artifact)
	if art == nil || !bytes.Equal(art.code, desc.Code) {
		return nil, nil
	}
	return art, nil
}

func (e *Engine) load(ctx context.Context, desc *jit.Descriptor, in *ir.Instructions) (*Artifact, error) {
	e.mu.Lock()
	existing := e.artifacts[desc.Name]
	e.mu.Unlock()

	if existing != nil {
		if !bytes.Equal(existing.code, desc.Code) {
			e.logger.Debug("artifact name taken by different code", zap.String("artifact", desc.Name))
			return nil, nil
		}
		e.logger.Debug("artifact reused", zap.String("artifact", desc.Name))
		return existing, nil
	}

	compiled, err := e.runtime.CompileModule(ctx, desc.Code)
	if err != nil {
		if e.closed.Load() {
			return nil, nil
		}
		return nil, errors.Load("compile "+desc.Name, err)
	}

	art := &Artifact{
		engine:   e,
		compiled: compiled,
		name:     desc.Name,
		method:   in.Name,
		code:     append([]byte(nil), desc.Code...),
		params:   in.Params,
	}

	art.mu.Lock()
	_, err = art.instance(ctx)
	art.mu.Unlock()
	if err != nil {
		_ = compiled.Close(ctx)
		if e.closed.Load() {
			return nil, nil
		}
		return nil, errors.Load("instantiate "+desc.Name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed.Load() {
		_ = art.close(ctx)
		return nil, nil
	}
	e.artifacts[desc.Name] = art
	e.logger.Debug("artifact loaded", zap.String("artifact", desc.Name), zap.Int("params", in.Params))
	return art, nil
}

// Artifact returns the loaded artifact with the given name.
func (e *Engine) Artifact(name string) (*Artifact, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.artifacts[name]
	return a, ok
}

// Len returns the number of loaded artifacts.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.artifacts)
}

// Close releases every artifact and the runtime. Entries resolved from the
// engine fail with a closed error afterwards.
func (e *Engine) Close(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.mu.Lock()
	arts := e.artifacts
	e.artifacts = make(map[string]*Artifact)
	e.mu.Unlock()

	var err error
	for _, a := range arts {
		err = multierr.Append(err, a.close(ctx))
	}
	return multierr.Append(err, e.runtime.Close(ctx))
}
