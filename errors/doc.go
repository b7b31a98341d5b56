// Package errors provides structured error types for the tier-up pipeline.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the method it concerns, an optional path into the
// interpreted representation, the offending value and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindNotFound).
//		Method("Calc#add").
//		Detail("export %q missing", name).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Arity(errors.PhaseInvoke, 2, 3)
//	err := errors.Trap(errors.PhaseInvoke, "Calc#div", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
