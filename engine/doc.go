// Package engine compiles methods to WebAssembly and runs them on wazero.
//
// Engine implements both collaborators of the jit package: as a jit.Emitter
// it lowers a validated method body to a module, as a jit.Loader it
// compiles and instantiates that module and hands out entry points.
//
// # Module Layout
//
// Every method becomes one module with three exports:
//
//	memory      argument slots, 8 bytes per argument
//	invoke      generic entry  (i32 argv, i32 argc) -> i64
//	invoke_N    fixed entry    (i64 x N) -> i64, only when N <= MaxSpecificArity
//
// Method values are i64 throughout. Comparison results are widened back to
// i64 so the module keeps the interpreter's single value type; conditions
// are narrowed to i32 only where wasm control flow needs them.
//
// The generic entry traps when argc does not match the method's parameter
// count. The host side checks the count first and reports the same arity
// error the interpreter does, so the trap is never reached through Lookup.
//
// # Traps
//
// Division traps are reported with the error kinds the interpreter uses
// (divide_by_zero, overflow). A call interrupted by its context fails with
// kind canceled; the instance it ran on is closed by wazero and a fresh one
// is instantiated on the next call.
//
// # Artifact Reuse
//
// Artifacts are keyed by name, and names embed the content key of the
// method body. Loading identical code under a known name returns the loaded
// artifact; concurrent loads of one name are collapsed into one compile.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Calls into one artifact are serialized.
package engine
