package engine

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/tierup"
	"github.com/wippyai/tierup/errors"
	"github.com/wippyai/tierup/jit"
)

// Artifact is a compiled method module loaded into the engine's runtime.
//
// Calls into one artifact are serialized: a wazero module instance and its
// argument memory belong to one caller at a time. An instance closed by a
// canceled call is re-instantiated on the next call.
type Artifact struct {
	engine   *Engine
	compiled wazero.CompiledModule
	mod      api.Module
	name     string
	method   string
	code     []byte
	params   int
	mu       sync.Mutex
}

// Name returns the artifact's module name.
func (a *Artifact) Name() string { return a.name }

// Params returns the number of arguments the method takes.
func (a *Artifact) Params() int { return a.params }

// Lookup resolves sig to an entry point. The generic entry accepts any
// argument count and fails with an arity error on mismatch; a fixed-arity
// entry is only valid for exactly sig.Arity arguments.
func (a *Artifact) Lookup(sig jit.Signature) (tierup.Entry, error) {
	if _, ok := a.compiled.ExportedFunctions()[sig.Name]; !ok {
		return nil, errors.NotFound(errors.PhaseResolve, "export", sig.Name)
	}

	if sig.Name == GenericExport {
		return a.generic, nil
	}
	if sig.Arity != a.params {
		return nil, errors.New(errors.PhaseResolve, errors.KindArity).
			Path(sig.Name).
			Detail("export takes %d arguments, signature says %d", a.params, sig.Arity).
			Build()
	}
	name := sig.Name
	return func(ctx context.Context, args []int64) (int64, error) {
		return a.fixed(ctx, name, args)
	}, nil
}

func (a *Artifact) generic(ctx context.Context, args []int64) (int64, error) {
	if len(args) != a.params {
		return 0, errors.Arity(errors.PhaseInvoke, a.params, len(args))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	mod, err := a.instance(ctx)
	if err != nil {
		return 0, err
	}

	mem := mod.Memory()
	for i, v := range args {
		if !mem.WriteUint64Le(uint32(i*8), uint64(v)) {
			return 0, errors.New(errors.PhaseInvoke, errors.KindInvalidData).
				Method(a.method).
				Detail("argument %d out of memory bounds", i).
				Build()
		}
	}

	res, err := mod.ExportedFunction(GenericExport).Call(ctx, 0, uint64(len(args)))
	if err != nil {
		return 0, a.callError(ctx, err)
	}
	return int64(res[0]), nil
}

func (a *Artifact) fixed(ctx context.Context, name string, args []int64) (int64, error) {
	if len(args) != a.params {
		return 0, errors.Arity(errors.PhaseInvoke, a.params, len(args))
	}

	params := make([]uint64, len(args))
	for i, v := range args {
		params[i] = uint64(v)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	mod, err := a.instance(ctx)
	if err != nil {
		return 0, err
	}

	res, err := mod.ExportedFunction(name).Call(ctx, params...)
	if err != nil {
		return 0, a.callError(ctx, err)
	}
	return int64(res[0]), nil
}

// instance returns the live module instance, instantiating it again when a
// previous call closed it. Must be called with a.mu held.
func (a *Artifact) instance(ctx context.Context) (api.Module, error) {
	if a.mod != nil && !a.mod.IsClosed() {
		return a.mod, nil
	}
	if a.engine.closed.Load() {
		return nil, errors.Closed(errors.PhaseInvoke, "engine")
	}

	mod, err := a.engine.runtime.InstantiateModule(ctx, a.compiled, wazero.NewModuleConfig().WithName(a.name))
	if err != nil {
		return nil, errors.New(errors.PhaseInvoke, errors.KindInvalidData).
			Method(a.method).
			Detail("instantiate %s", a.name).
			Cause(err).
			Build()
	}
	a.mod = mod
	a.engine.logger.Debug("artifact instantiated", zap.String("artifact", a.name))
	return mod, nil
}

// callError maps a failed wazero call onto the error the interpreter would
// have returned for the same input.
func (a *Artifact) callError(ctx context.Context, err error) error {
	var exit *sys.ExitError
	if stderrors.As(err, &exit) {
		switch exit.ExitCode() {
		case sys.ExitCodeContextCanceled, sys.ExitCodeDeadlineExceeded:
			cause := ctx.Err()
			if cause == nil {
				cause = err
			}
			return errors.Wrap(errors.PhaseInvoke, errors.KindCanceled, cause, "compiled code interrupted")
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "integer divide by zero"):
		e := errors.DivideByZero(errors.PhaseInvoke, nil)
		e.Method = a.method
		e.Cause = err
		return e
	case strings.Contains(msg, "integer overflow"):
		e := errors.Overflow(errors.PhaseInvoke, nil, "div")
		e.Method = a.method
		e.Cause = err
		return e
	}
	return errors.Trap(errors.PhaseInvoke, a.method, err)
}

func (a *Artifact) close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var err error
	if a.mod != nil {
		err = a.mod.Close(ctx)
		a.mod = nil
	}
	return multierr.Append(err, a.compiled.Close(ctx))
}
