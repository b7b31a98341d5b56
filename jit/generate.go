package jit

import (
	"context"
	"fmt"
	"strings"

	"github.com/wippyai/tierup/errors"
	"github.com/wippyai/tierup/ir"
)

// ArtifactName builds the content-addressed name of a method's code unit.
func ArtifactName(className, methodName, key string) string {
	return className + "$$" + MangleMethodName(methodName) + "_" + key
}

var operatorNames = map[string]string{
	"+": "op_plus", "-": "op_minus", "*": "op_times", "/": "op_div",
	"%": "op_mod", "**": "op_pow", "==": "op_equal", "===": "op_eqq",
	"<": "op_lt", ">": "op_gt", "<=": "op_le", ">=": "op_ge", "<=>": "op_cmp",
	"[]": "op_aref", "[]=": "op_aset", "<<": "op_lshift", ">>": "op_rshift",
	"!": "op_not", "=~": "op_match", "-@": "op_uminus", "+@": "op_uplus",
}

// MangleMethodName turns a method name into a symbol-safe identifier.
func MangleMethodName(name string) string {
	if op, ok := operatorNames[name]; ok {
		return op
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '?':
			b.WriteString("_p")
		case r == '!':
			b.WriteString("_b")
		case r == '=':
			b.WriteString("_set")
		default:
			fmt.Fprintf(&b, "$%x", r)
		}
	}
	return b.String()
}

func (t *Task) generate(ctx context.Context, emitter Emitter) (*Descriptor, error) {
	if emitter == nil {
		return nil, errors.NotInitialized(errors.PhaseGenerate, "emitter")
	}

	key := ir.Key(t.method.Scope())
	req := EmitRequest{
		Unit:         t.method,
		ArtifactName: ArtifactName(t.className, t.methodName, key),
		MethodName:   t.methodName,
		Key:          key,
	}

	desc, err := emitter.Emit(ctx, req)
	if err != nil {
		return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidData).
			Method(t.qualified()).
			Detail("emit %s", req.ArtifactName).
			Cause(err).
			Build()
	}
	if desc == nil || desc.Generic.Name == "" {
		return nil, errors.New(errors.PhaseGenerate, errors.KindInvalidData).
			Method(t.qualified()).
			Detail("emitter returned no generic entry").
			Build()
	}
	if desc.Name == "" {
		desc.Name = req.ArtifactName
	}
	if desc.Key == "" {
		desc.Key = key
	}
	return desc, nil
}
