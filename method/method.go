package method

import (
	"context"
	"sync/atomic"

	"github.com/wippyai/tierup/errors"
	"github.com/wippyai/tierup/ir"
)

// CompileDisabled is the call count sentinel of a method that must never be
// compiled.
const CompileDisabled int64 = -1

// Method is a live method: the unit the tier-up pipeline compiles.
type Method struct {
	impl       atomic.Pointer[Implementation]
	callCount  atomic.Int64
	scope      *ir.Scope
	owner      *Module
	name       string
	file       string
	line       int
	visibility Visibility
}

// Option configures a Method.
type Option func(*Method)

// WithLocation sets the source location of the method definition.
func WithLocation(file string, line int) Option {
	return func(m *Method) {
		m.file = file
		m.line = line
	}
}

// WithVisibility sets the method visibility.
func WithVisibility(v Visibility) Option {
	return func(m *Method) {
		m.visibility = v
	}
}

// New defines an interpreted method.
func New(name string, owner *Module, scope *ir.Scope, opts ...Option) *Method {
	m := &Method{
		name:  name,
		owner: owner,
		scope: scope,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.impl.Store(NewInterpreted(scope, m.visibility, owner))
	return m
}

func (m *Method) Name() string { return m.name }

// Owner is the implementation owner the method is defined in.
func (m *Method) Owner() *Module { return m.owner }

func (m *Method) File() string { return m.file }

func (m *Method) Line() int { return m.line }

func (m *Method) Visibility() Visibility { return m.visibility }

// Scope is the interpreted representation of the method body.
func (m *Method) Scope() *ir.Scope { return m.scope }

// QualifiedName returns "Owner#name".
func (m *Method) QualifiedName() string {
	if m.owner == nil {
		return m.name
	}
	return m.owner.Name() + "#" + m.name
}

// Implementation returns the currently published implementation.
func (m *Method) Implementation() *Implementation {
	return m.impl.Load()
}

// Install publishes impl as the method's live implementation, replacing
// whatever was there.
func (m *Method) Install(impl *Implementation) error {
	if impl == nil || impl.generic == nil {
		return errors.New(errors.PhaseInstall, errors.KindInvalidInput).
			Method(m.QualifiedName()).
			Detail("implementation without generic entry").
			Build()
	}
	m.impl.Store(impl)
	return nil
}

// Call invokes the method through its current implementation. The
// implementation is loaded once, so a concurrent install affects only later
// calls.
func (m *Method) Call(ctx context.Context, args ...int64) (int64, error) {
	return m.impl.Load().Call(ctx, args)
}

// CallCount returns the number of counted calls, or CompileDisabled.
func (m *Method) CallCount() int64 {
	return m.callCount.Load()
}

// Tick counts one call and returns the new count. A disabled method stays
// at CompileDisabled.
func (m *Method) Tick() int64 {
	for {
		n := m.callCount.Load()
		if n < 0 {
			return n
		}
		if m.callCount.CompareAndSwap(n, n+1) {
			return n + 1
		}
	}
}

// DisableCompile permanently excludes the method from compilation.
func (m *Method) DisableCompile() {
	m.callCount.Store(CompileDisabled)
}

// IsCompileDisabled reports whether DisableCompile has been called.
func (m *Method) IsCompileDisabled() bool {
	return m.callCount.Load() == CompileDisabled
}
