// Package tierup provides the single-method tier-up compilation pipeline of
// a small dynamic-language runtime.
//
// Methods start out interpreted. Once a method becomes hot, a compilation
// task turns its interpreted representation into a WebAssembly module,
// loads it through wazero, resolves its entry points and atomically swaps
// the compiled implementation into the method's live call target. A failed
// compilation never reaches the caller: the method simply keeps running in
// the interpreter.
//
// # Architecture Overview
//
//	tierup/             Root package with the shared Entry calling convention
//	├── ir/             Interpreted representation, interpreter, content key
//	├── method/         Live method registry and atomic implementation publish
//	├── jit/            Compilation task orchestrator (the core)
//	├── engine/         wazero backed emitter and loader
//	├── hotspot/        Call counting and the background compile pool
//	├── config/         YAML configuration and exclusion roster reload
//	├── errors/         Structured error types
//	└── cmd/tierup/     CLI for running IR programs through tier-up
//
// # Quick Start
//
//	scope, _ := ir.Parse("add", 2, 0, "arg 0\narg 1\nadd")
//	m := method.New("add", method.NewModule("Calc"), scope)
//
//	eng, _ := engine.New(ctx, nil)
//	defer eng.Close(ctx)
//
//	compiler := jit.NewCompiler(jit.DefaultConfig(), eng, eng)
//	res := compiler.Compile(ctx, m, "Calc")
//	fmt.Println(res.Outcome) // compiled
//
//	v, _ := m.Call(ctx, 2, 3) // runs the compiled entry
//
// # Calling Conventions
//
// A compiled method has a generic entry that accepts any argument count and
// checks it at run time, and optionally one fixed-arity entry that takes its
// arguments directly. Method.Call picks the fixed-arity entry whenever the
// argument count matches.
//
// # Thread Safety
//
// Compiler, Method and Registry are safe for concurrent use. Installing a
// compiled implementation is a single pointer swap; callers observe either
// the old or the new implementation.
package tierup
