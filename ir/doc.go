// Package ir defines the interpreted representation of a method body.
//
// A method body is a structured stack machine over int64 values. Control
// flow is block structured (block, loop, if/else, end with relative branch
// depths) so that it maps one to one onto WebAssembly control instructions.
//
// A Scope is built from instructions, optionally optimized by passes, and
// materialized exactly once by EnsureInstrsReady. Materialization validates
// stack discipline and resolves branch targets; the resulting Instructions
// are immutable and shared by the interpreter and the compiler backends.
//
// # Assembly
//
// Parse reads a line oriented assembly form, one instruction per line:
//
//	arg 0
//	arg 1
//	lt
//	if
//	  arg 0
//	  return
//	end
//	arg 1
//
// Text after ';' is a comment.
package ir
