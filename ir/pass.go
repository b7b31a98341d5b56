package ir

import "math"

// Pass rewrites a method body before materialization.
type Pass interface {
	Name() string
	Run(code []Instr) ([]Instr, error)
}

// DefaultPasses is the pass pipeline Optimize runs when none is given.
func DefaultPasses() []Pass {
	return []Pass{DeadCode{}, ConstantFold{}}
}

// Optimize runs passes on s in order, DefaultPasses when passes is empty.
func Optimize(s *Scope, passes ...Pass) error {
	if len(passes) == 0 {
		passes = DefaultPasses()
	}
	for _, p := range passes {
		if err := s.RunPass(p); err != nil {
			return err
		}
	}
	return nil
}

// ConstantFold folds operations whose operands are constants. Operations
// that would fail at run time are left alone so the failure still happens.
type ConstantFold struct{}

func (ConstantFold) Name() string { return "ConstantFold" }

func (ConstantFold) Run(code []Instr) ([]Instr, error) {
	out := make([]Instr, 0, len(code))
	for _, ins := range code {
		n := len(out)
		switch {
		case ins.Op.IsBinary() && n >= 2 && out[n-2].Op == OpConst && out[n-1].Op == OpConst:
			a, b := out[n-2].Imm, out[n-1].Imm
			if !foldable(ins.Op, a, b) {
				break
			}
			v, err := Binary(ins.Op, a, b)
			if err != nil {
				break
			}
			out = append(out[:n-2], Instr{Op: OpConst, Imm: v})
			continue
		case ins.Op == OpEqz && n >= 1 && out[n-1].Op == OpConst:
			out[n-1].Imm = bool64(out[n-1].Imm == 0)
			continue
		case ins.Op == OpDrop && n >= 1 && out[n-1].Op == OpConst:
			out = out[:n-1]
			continue
		case ins.Op == OpNop:
			continue
		}
		out = append(out, ins)
	}
	return out, nil
}

func foldable(op Opcode, a, b int64) bool {
	switch op {
	case OpDiv:
		return b != 0 && !(a == math.MinInt64 && b == -1)
	case OpRem:
		return b != 0
	}
	return true
}

// DeadCode removes instructions that follow an unconditional br or return
// up to the end of the enclosing block.
type DeadCode struct{}

func (DeadCode) Name() string { return "DeadCode" }

func (DeadCode) Run(code []Instr) ([]Instr, error) {
	out := make([]Instr, 0, len(code))
	for i := 0; i < len(code); i++ {
		ins := code[i]
		out = append(out, ins)
		if ins.Op != OpBr && ins.Op != OpReturn {
			continue
		}
		depth := 0
		for i+1 < len(code) {
			next := code[i+1].Op
			if depth == 0 && (next == OpEnd || next == OpElse) {
				break
			}
			switch next {
			case OpBlock, OpLoop, OpIf:
				depth++
			case OpEnd:
				depth--
			}
			i++
		}
	}
	return out, nil
}
