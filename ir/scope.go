package ir

import (
	"sync"

	"github.com/wippyai/tierup/errors"
)

// Scope is the interpreted representation of one method body.
//
// Instructions may be rewritten by passes until the scope is materialized;
// after EnsureInstrsReady the scope is sealed and read-only.
type Scope struct {
	ready    *Instructions
	readyErr error
	name     string
	instrs   []Instr
	passes   []string
	params   int
	locals   int
	mu       sync.Mutex
	once     sync.Once
	sealed   bool
}

// NewScope creates a scope. The instruction slice is copied.
func NewScope(name string, params, locals int, instrs []Instr) *Scope {
	code := make([]Instr, len(instrs))
	copy(code, instrs)
	return &Scope{
		name:   name,
		params: params,
		locals: locals,
		instrs: code,
	}
}

func (s *Scope) Name() string { return s.name }

// Params is the exact number of arguments the method takes.
func (s *Scope) Params() int { return s.params }

// Locals is the number of int64 locals besides the arguments.
func (s *Scope) Locals() int { return s.locals }

// Instrs returns a copy of the current instructions.
func (s *Scope) Instrs() []Instr {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Instr, len(s.instrs))
	copy(out, s.instrs)
	return out
}

// ExecutedPasses returns the names of passes run on this scope, in order.
func (s *Scope) ExecutedPasses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.passes))
	copy(out, s.passes)
	return out
}

// Sealed reports whether the scope has been materialized.
func (s *Scope) Sealed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sealed
}

// RunPass rewrites the instructions with p and records it.
func (s *Scope) RunPass(p Pass) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return errors.New(errors.PhaseValidate, errors.KindUnsupported).
			Method(s.name).
			Detail("pass %s after materialization", p.Name()).
			Build()
	}

	out, err := p.Run(s.instrs)
	if err != nil {
		return errors.New(errors.PhaseValidate, errors.KindInvalidData).
			Method(s.name).
			Detail("pass %s", p.Name()).
			Cause(err).
			Build()
	}
	s.instrs = out
	s.passes = append(s.passes, p.Name())
	return nil
}

// EnsureInstrsReady materializes the scope on first use and returns the
// shared immutable result. A scope that fails validation keeps failing.
func (s *Scope) EnsureInstrsReady() (*Instructions, error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.sealed = true
		code := s.instrs
		s.mu.Unlock()

		s.ready, s.readyErr = materialize(s.name, s.params, s.locals, code)
	})
	return s.ready, s.readyErr
}
