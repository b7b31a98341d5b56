package jit

import (
	"context"

	"github.com/wippyai/tierup/errors"
)

// load materializes the method's instructions and hands them to the loader
// together with the code unit. A nil Artifact without error is a silent
// abort.
func (t *Task) load(ctx context.Context, loader Loader, desc *Descriptor) (Artifact, error) {
	if loader == nil {
		return nil, errors.NotInitialized(errors.PhaseLoad, "loader")
	}

	instrs, err := t.method.Scope().EnsureInstrsReady()
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
			Method(t.qualified()).
			Detail("instructions not ready").
			Cause(err).
			Build()
	}

	art, err := loader.Load(ctx, desc, instrs)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
			Method(t.qualified()).
			Detail("load %s", desc.Name).
			Cause(err).
			Build()
	}
	return art, nil
}
