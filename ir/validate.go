package ir

import (
	"fmt"

	"github.com/wippyai/tierup/errors"
)

// Instructions is a validated, immutable method body with resolved branch
// targets.
type Instructions struct {
	Name     string
	Code     []Instr
	jump     []int
	Params   int
	Locals   int
	MaxStack int
}

// Target returns the resolved continuation for the control instruction at pc:
// for if the pc after its else (or end), for else the pc after its end, for
// br and br_if the pc execution continues at when the branch is taken.
func (in *Instructions) Target(pc int) int {
	return in.jump[pc]
}

type frame struct {
	op     Opcode
	start  int
	height int
	elsePC int
}

type validator struct {
	name     string
	code     []Instr
	jump     []int
	frames   []frame
	pending  map[int][]int
	height   int
	maxStack int
	dead     bool
}

func materialize(name string, params, locals int, code []Instr) (*Instructions, error) {
	if params < 0 || locals < 0 {
		return nil, errors.InvalidInput(errors.PhaseValidate, "negative params or locals")
	}
	if len(code) == 0 {
		return nil, errors.InvalidData(errors.PhaseValidate, nil, "empty method body")
	}

	v := &validator{
		name:    name,
		code:    code,
		jump:    make([]int, len(code)),
		pending: make(map[int][]int),
	}

	for pc, ins := range code {
		if err := v.step(pc, ins, params, locals); err != nil {
			return nil, err
		}
	}

	if len(v.frames) > 0 {
		f := v.frames[len(v.frames)-1]
		return nil, v.fail(f.start, "unterminated %s", f.op)
	}
	if !v.dead && v.height != 1 {
		return nil, v.fail(len(code)-1, "method must leave exactly one value, stack height %d", v.height)
	}

	out := make([]Instr, len(code))
	copy(out, code)
	return &Instructions{
		Name:     name,
		Code:     out,
		jump:     v.jump,
		Params:   params,
		Locals:   locals,
		MaxStack: v.maxStack,
	}, nil
}

func (v *validator) fail(pc int, format string, args ...any) error {
	return errors.New(errors.PhaseValidate, errors.KindStack).
		Method(v.name).
		Path(fmt.Sprintf("pc %d", pc)).
		Detail(format, args...).
		Build()
}

func (v *validator) base() int {
	if len(v.frames) == 0 {
		return 0
	}
	return v.frames[len(v.frames)-1].height
}

func (v *validator) pop(pc, n int) error {
	if v.height-n < v.base() {
		return v.fail(pc, "%s needs %d operands, stack height %d", v.code[pc].Op, n, v.height-v.base())
	}
	v.height -= n
	return nil
}

func (v *validator) push(n int) {
	v.height += n
	if v.height > v.maxStack {
		v.maxStack = v.height
	}
}

// label resolves a relative branch depth to the frame it targets.
func (v *validator) label(pc int, depth int64) (int, error) {
	if depth < 0 || depth >= int64(len(v.frames)) {
		return 0, v.fail(pc, "branch depth %d out of range (%d open blocks)", depth, len(v.frames))
	}
	return len(v.frames) - 1 - int(depth), nil
}

func (v *validator) branch(pc int, depth int64) error {
	idx, err := v.label(pc, depth)
	if err != nil {
		return err
	}
	f := v.frames[idx]
	if v.height != f.height {
		return v.fail(pc, "branch with stack height %d, label expects %d", v.height, f.height)
	}
	if f.op == OpLoop {
		v.jump[pc] = f.start + 1
		return nil
	}
	// forward branch, patched when the frame ends
	v.pending[idx] = append(v.pending[idx], pc)
	return nil
}

func (v *validator) terminates(pc int) error {
	if pc+1 < len(v.code) {
		next := v.code[pc+1].Op
		if next != OpEnd && next != OpElse {
			return v.fail(pc, "%s must be followed by end or else", v.code[pc].Op)
		}
	}
	v.dead = true
	return nil
}

func (v *validator) step(pc int, ins Instr, params, locals int) error {
	switch ins.Op {
	case OpNop:
	case OpConst:
		v.push(1)
	case OpArg:
		if ins.Imm < 0 || ins.Imm >= int64(params) {
			return v.fail(pc, "arg %d out of range (%d params)", ins.Imm, params)
		}
		v.push(1)
	case OpLocalGet, OpLocalSet:
		if ins.Imm < 0 || ins.Imm >= int64(locals) {
			return v.fail(pc, "local %d out of range (%d locals)", ins.Imm, locals)
		}
		if ins.Op == OpLocalGet {
			v.push(1)
			return nil
		}
		return v.pop(pc, 1)
	case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpAnd, OpOr, OpXor, OpShl, OpShr,
		OpEq, OpNe, OpLt, OpGt, OpLe, OpGe:
		if err := v.pop(pc, 2); err != nil {
			return err
		}
		v.push(1)
	case OpEqz:
		if err := v.pop(pc, 1); err != nil {
			return err
		}
		v.push(1)
	case OpDrop:
		return v.pop(pc, 1)
	case OpBlock, OpLoop:
		v.frames = append(v.frames, frame{op: ins.Op, start: pc, height: v.height, elsePC: -1})
	case OpIf:
		if err := v.pop(pc, 1); err != nil {
			return err
		}
		v.frames = append(v.frames, frame{op: OpIf, start: pc, height: v.height, elsePC: -1})
	case OpElse:
		if len(v.frames) == 0 || v.frames[len(v.frames)-1].op != OpIf || v.frames[len(v.frames)-1].elsePC >= 0 {
			return v.fail(pc, "else without if")
		}
		f := &v.frames[len(v.frames)-1]
		if !v.dead && v.height != f.height {
			return v.fail(pc, "then branch leaves %d values", v.height-f.height)
		}
		f.elsePC = pc
		v.jump[f.start] = pc + 1
		v.height = f.height
		v.dead = false
	case OpEnd:
		if len(v.frames) == 0 {
			return v.fail(pc, "end without block")
		}
		idx := len(v.frames) - 1
		f := v.frames[idx]
		if !v.dead && v.height != f.height {
			return v.fail(pc, "%s leaves %d values", f.op, v.height-f.height)
		}
		switch {
		case f.op == OpIf && f.elsePC >= 0:
			v.jump[f.elsePC] = pc + 1
		case f.op == OpIf:
			v.jump[f.start] = pc + 1
		}
		for _, br := range v.pending[idx] {
			v.jump[br] = pc + 1
		}
		delete(v.pending, idx)
		v.frames = v.frames[:idx]
		v.height = f.height
		v.dead = false
	case OpBr:
		if err := v.branch(pc, ins.Imm); err != nil {
			return err
		}
		return v.terminates(pc)
	case OpBrIf:
		if err := v.pop(pc, 1); err != nil {
			return err
		}
		return v.branch(pc, ins.Imm)
	case OpReturn:
		if err := v.pop(pc, 1); err != nil {
			return err
		}
		return v.terminates(pc)
	default:
		return v.fail(pc, "unknown opcode %s", ins.Op)
	}
	return nil
}
