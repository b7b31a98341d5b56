package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEligibility Phase = "eligibility" // exclusion roster check
	PhaseGenerate    Phase = "generate"    // IR to code unit
	PhaseLoad        Phase = "load"        // code unit to artifact
	PhaseResolve     Phase = "resolve"     // entry point lookup
	PhaseInstall     Phase = "install"     // publish into the method
	PhaseInvoke      Phase = "invoke"      // calling an implementation
	PhaseValidate    Phase = "validate"    // IR materialization
	PhaseParse       Phase = "parse"       // IR assembly parsing
	PhaseConfig      Phase = "config"      // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidData    Kind = "invalid_data"
	KindInvalidInput   Kind = "invalid_input"
	KindUnsupported    Kind = "unsupported"
	KindNotFound       Kind = "not_found"
	KindNotInitialized Kind = "not_initialized"
	KindArity          Kind = "arity"
	KindTrap           Kind = "trap"
	KindDivideByZero   Kind = "divide_by_zero"
	KindOverflow       Kind = "overflow"
	KindStack          Kind = "stack"
	KindPanic          Kind = "panic"
	KindClosed         Kind = "closed"
	KindCanceled       Kind = "canceled"
)

// Error is the structured error type used throughout the pipeline
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Method string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Method != "" {
		b.WriteString(" in ")
		b.WriteString(e.Method)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Format supports %+v, which prints the whole cause chain one per line.
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprint(s, e.Error())
			for cause := e.Cause; cause != nil; {
				fmt.Fprintf(s, "\n\tcause: %T: %s", cause, cause.Error())
				u, ok := cause.(interface{ Unwrap() error })
				if !ok {
					break
				}
				cause = u.Unwrap()
			}
			if stack, ok := e.Value.(Stack); ok {
				fmt.Fprintf(s, "\n%s", stack)
			}
			return
		}
		fmt.Fprint(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	default:
		fmt.Fprint(s, e.Error())
	}
}

// Stack is a captured goroutine stack attached to recovered panics.
type Stack []byte

func (s Stack) String() string {
	return string(s)
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Method sets the qualified method name
func (b *Builder) Method(name string) *Builder {
	b.err.Method = name
	return b
}

// Path sets the location inside the interpreted representation
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// NotInitialized creates a not-initialized error for a missing collaborator
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Arity creates a wrong-argument-count error
func Arity(phase Phase, want, got int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindArity,
		Detail: fmt.Sprintf("wrong number of arguments (given %d, expected %d)", got, want),
		Value:  got,
	}
}

// DivideByZero creates a division by zero error
func DivideByZero(phase Phase, path []string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDivideByZero,
		Path:   path,
		Detail: "divided by 0",
	}
}

// Overflow creates an integer overflow error
func Overflow(phase Phase, path []string, value any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Detail: fmt.Sprintf("integer overflow at %v", value),
		Value:  value,
	}
}

// Trap creates an error for a trap raised by compiled code
func Trap(phase Phase, method string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTrap,
		Method: method,
		Detail: "compiled code trapped",
		Cause:  cause,
	}
}

// Panic creates an error from a recovered panic value and its stack
func Panic(phase Phase, method string, value any, stack []byte) *Error {
	err := &Error{
		Phase:  phase,
		Kind:   KindPanic,
		Method: method,
		Detail: fmt.Sprintf("panic: %v", value),
		Value:  Stack(stack),
	}
	if cause, ok := value.(error); ok {
		err.Cause = cause
	}
	return err
}

// Closed creates an error for use of a closed resource
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// Load creates an artifact loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, line int, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Path:   []string{fmt.Sprintf("line %d", line)},
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// PhaseOf returns the phase of the first *Error in err's chain, or "".
func PhaseOf(err error) Phase {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Phase
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// HasKind reports whether any *Error in err's chain has the given kind.
func HasKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
