// Package method is the live method registry of the runtime.
//
// A Method owns its interpreted representation and exactly one active
// Implementation. The implementation is an immutable value published with
// a single atomic pointer store, so a concurrent caller either runs the old
// implementation or the new one and never a partially wired mix of the two.
//
// Each method also carries a call counter used to detect hot methods. The
// counter value CompileDisabled is a permanent sentinel: once a method is
// disabled it is never submitted for compilation again.
package method
