package jit

import "github.com/wippyai/tierup/method"

// install publishes the resolved entries as m's implementation. The
// implementation is fully built before the single atomic store in
// Method.Install makes it visible.
func install(m *method.Method, r Resolved) error {
	var impl *method.Implementation
	if r.Fixed == nil {
		impl = method.NewCompiled(r.Generic, m.Scope(), m.Visibility(), m.Owner())
	} else {
		impl = method.NewCompiledWithArity(r.Generic, r.Fixed, r.Arity, m.Scope(), m.Visibility(), m.Owner())
	}
	return m.Install(impl)
}
