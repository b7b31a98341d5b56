package jit

import (
	"context"

	"github.com/wippyai/tierup"
	"github.com/wippyai/tierup/ir"
	"github.com/wippyai/tierup/method"
)

// Signature names one entry point inside an artifact.
type Signature struct {
	Name  string
	Arity int
}

// Descriptor is the emitter's output: a code unit plus the signatures of
// the entry points it defines.
type Descriptor struct {
	// Specific maps a fixed arity to its entry signature. May be empty.
	Specific map[int]Signature
	Name     string
	Key      string
	Code     []byte
	Generic  Signature
}

// EmitRequest is what the Emitter is asked to compile.
type EmitRequest struct {
	Unit         *method.Method
	ArtifactName string
	MethodName   string
	Key          string
}

// Emitter turns an interpreted method into a code unit.
type Emitter interface {
	Emit(ctx context.Context, req EmitRequest) (*Descriptor, error)
}

// Loader turns a code unit into a loaded artifact. A nil Artifact with a nil
// error means the artifact could not be loaded for reasons outside the
// task's control; the task gives up silently.
type Loader interface {
	Load(ctx context.Context, desc *Descriptor, instrs *ir.Instructions) (Artifact, error)
}

// Artifact is a loaded code unit whose entry points can be resolved.
type Artifact interface {
	Lookup(sig Signature) (tierup.Entry, error)
}
