package jit

import (
	"maps"
	"slices"

	"github.com/wippyai/tierup"
	"github.com/wippyai/tierup/errors"
)

// Resolved is a generic entry optionally paired with one fixed-arity entry.
type Resolved struct {
	Generic tierup.Entry
	Fixed   tierup.Entry
	Arity   int
}

func resolve(art Artifact, desc *Descriptor) (Resolved, error) {
	generic, err := lookup(art, desc.Generic)
	if err != nil {
		return Resolved{}, err
	}

	r := Resolved{Generic: generic, Arity: tierup.NoArity}
	if len(desc.Specific) == 0 {
		return r, nil
	}

	arity := selectArity(desc.Specific)
	fixed, err := lookup(art, desc.Specific[arity])
	if err != nil {
		return Resolved{}, err
	}
	r.Fixed = fixed
	r.Arity = arity
	return r, nil
}

// selectArity picks the single fixed-arity entry to install: the lowest
// arity. Only one fixed-arity entry per method is supported.
func selectArity(specific map[int]Signature) int {
	return slices.Min(slices.Collect(maps.Keys(specific)))
}

func lookup(art Artifact, sig Signature) (tierup.Entry, error) {
	entry, err := art.Lookup(sig)
	if err != nil {
		return nil, errors.New(errors.PhaseResolve, errors.KindNotFound).
			Path(sig.Name).
			Detail("resolve entry for arity %d", sig.Arity).
			Cause(err).
			Build()
	}
	if entry == nil {
		return nil, errors.NotFound(errors.PhaseResolve, "entry", sig.Name)
	}
	return entry, nil
}
