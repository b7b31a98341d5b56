package method

import (
	"context"

	"github.com/wippyai/tierup"
	"github.com/wippyai/tierup/ir"
)

// Tier tells how an implementation executes.
type Tier uint8

const (
	Interpreted Tier = iota
	Compiled
)

func (t Tier) String() string {
	if t == Compiled {
		return "compiled"
	}
	return "interpreted"
}

// Implementation is an immutable, fully wired method implementation.
type Implementation struct {
	generic    tierup.Entry
	fixed      tierup.Entry
	scope      *ir.Scope
	owner      *Module
	arity      int
	visibility Visibility
	tier       Tier
}

// NewInterpreted wraps scope in an implementation that runs the interpreter.
func NewInterpreted(scope *ir.Scope, visibility Visibility, owner *Module) *Implementation {
	return &Implementation{
		generic: func(ctx context.Context, args []int64) (int64, error) {
			in, err := scope.EnsureInstrsReady()
			if err != nil {
				return 0, err
			}
			return ir.Interpret(ctx, in, args)
		},
		scope:      scope,
		owner:      owner,
		arity:      tierup.NoArity,
		visibility: visibility,
		tier:       Interpreted,
	}
}

// NewCompiled creates a compiled implementation with only a generic entry.
func NewCompiled(generic tierup.Entry, scope *ir.Scope, visibility Visibility, owner *Module) *Implementation {
	return &Implementation{
		generic:    generic,
		scope:      scope,
		owner:      owner,
		arity:      tierup.NoArity,
		visibility: visibility,
		tier:       Compiled,
	}
}

// NewCompiledWithArity creates a compiled implementation that also carries a
// fixed-arity entry taking exactly arity arguments.
func NewCompiledWithArity(generic, fixed tierup.Entry, arity int, scope *ir.Scope, visibility Visibility, owner *Module) *Implementation {
	impl := NewCompiled(generic, scope, visibility, owner)
	impl.fixed = fixed
	impl.arity = arity
	return impl
}

func (i *Implementation) Tier() Tier { return i.tier }

func (i *Implementation) Generic() tierup.Entry { return i.generic }

// Fixed returns the fixed-arity entry and its arity, if there is one.
func (i *Implementation) Fixed() (tierup.Entry, int, bool) {
	if i.fixed == nil {
		return nil, tierup.NoArity, false
	}
	return i.fixed, i.arity, true
}

// Scope returns the interpreted representation backing the implementation.
func (i *Implementation) Scope() *ir.Scope { return i.scope }

func (i *Implementation) Visibility() Visibility { return i.visibility }

func (i *Implementation) Owner() *Module { return i.owner }

// Call dispatches to the fixed-arity entry when the argument count matches
// it and to the generic entry otherwise.
func (i *Implementation) Call(ctx context.Context, args []int64) (int64, error) {
	if i.fixed != nil && len(args) == i.arity {
		return i.fixed(ctx, args)
	}
	return i.generic(ctx, args)
}
