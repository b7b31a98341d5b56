// Package jit is the compilation task orchestrator of the tier-up pipeline.
//
// A Task compiles one hot method:
//
//  1. Eligibility: the method is checked against the exclusion roster.
//     Excluded methods are permanently disabled and never compiled.
//  2. Generate: the Emitter turns the interpreted representation into a
//     code unit named after the method's content key.
//  3. Load: the Loader turns the code unit into an Artifact. No artifact
//     means the task silently gives up.
//  4. Resolve: the generic entry and at most one fixed-arity entry are
//     looked up in the artifact.
//  5. Install: the compiled implementation is published into the method
//     with a single atomic store.
//  6. Account: success and failure counters are updated and diagnostic
//     lines are logged.
//
// Exec never panics and never returns an error to its caller. Every fault
// from generation to install is caught, logged, counted and reported in
// the Result; the method keeps its previous implementation.
//
// # Known Limitations
//
// Only one fixed-arity entry is installed per method even when the emitter
// produces several; the lowest arity wins and the others are dropped.
// Installing several fixed-arity fast paths side by side is future work.
package jit
