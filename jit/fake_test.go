package jit_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wippyai/tierup"
	"github.com/wippyai/tierup/errors"
	"github.com/wippyai/tierup/ir"
	"github.com/wippyai/tierup/ir/irtest"
	"github.com/wippyai/tierup/jit"
	"github.com/wippyai/tierup/method"
)

// backend is an Emitter and Loader whose entries run the interpreter, with
// switches to inject faults at each stage.
type backend struct {
	emitErr    error
	emitPanic  any
	loadErr    error
	lookupErr  error
	arities    []int
	noArtifact bool
	// interruptAt names the stage ("emit" or "load") that fails with the
	// context's error once the context is done.
	interruptAt string

	emits  atomic.Int64
	loads  atomic.Int64
	mu     sync.Mutex
	looked []string
}

func (b *backend) Emit(ctx context.Context, req jit.EmitRequest) (*jit.Descriptor, error) {
	b.emits.Add(1)
	if b.interruptAt == "emit" && ctx.Err() != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindCanceled, ctx.Err(), "emit")
	}
	if b.emitPanic != nil {
		panic(b.emitPanic)
	}
	if b.emitErr != nil {
		return nil, b.emitErr
	}

	d := &jit.Descriptor{
		Name:    req.ArtifactName,
		Key:     req.Key,
		Generic: jit.Signature{Name: "generic", Arity: tierup.NoArity},
	}
	if len(b.arities) > 0 {
		d.Specific = make(map[int]jit.Signature, len(b.arities))
		for _, a := range b.arities {
			d.Specific[a] = jit.Signature{Name: fmt.Sprintf("fixed%d", a), Arity: a}
		}
	}
	return d, nil
}

func (b *backend) Load(ctx context.Context, _ *jit.Descriptor, instrs *ir.Instructions) (jit.Artifact, error) {
	b.loads.Add(1)
	if b.interruptAt == "load" && ctx.Err() != nil {
		return nil, fmt.Errorf("instantiate: %w", ctx.Err())
	}
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	if b.noArtifact {
		return nil, nil
	}
	return &artifact{backend: b, instrs: instrs}, nil
}

func (b *backend) lookups() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.looked...)
}

type artifact struct {
	backend *backend
	instrs  *ir.Instructions
}

func (a *artifact) Lookup(sig jit.Signature) (tierup.Entry, error) {
	a.backend.mu.Lock()
	a.backend.looked = append(a.backend.looked, sig.Name)
	a.backend.mu.Unlock()

	if a.backend.lookupErr != nil {
		return nil, a.backend.lookupErr
	}
	return func(ctx context.Context, args []int64) (int64, error) {
		return ir.Interpret(ctx, a.instrs, args)
	}, nil
}

func newMethod(p irtest.Program) *method.Method {
	return method.New(p.Name, method.NewModule("Calc"), p.Scope(), method.WithLocation("calc.rb", 7))
}
