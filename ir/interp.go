package ir

import (
	"context"
	"fmt"
	"math"

	"github.com/wippyai/tierup/errors"
)

// checkEvery is how many backward branches run between context checks.
const checkEvery = 1 << 12

// Interpret runs a materialized method body.
//
// Division traps mirror WebAssembly: a zero divisor and MinInt64 / -1 fail,
// MinInt64 % -1 is 0. Shift counts are taken modulo 64.
func Interpret(ctx context.Context, in *Instructions, args []int64) (int64, error) {
	if len(args) != in.Params {
		return 0, errors.Arity(errors.PhaseInvoke, in.Params, len(args))
	}

	locals := make([]int64, in.Locals)
	stack := make([]int64, 0, in.MaxStack)
	code := in.Code
	backEdges := 0

	pop := func() int64 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for pc := 0; pc < len(code); {
		ins := code[pc]
		switch ins.Op {
		case OpNop, OpBlock, OpLoop, OpEnd:
		case OpConst:
			stack = append(stack, ins.Imm)
		case OpArg:
			stack = append(stack, args[ins.Imm])
		case OpLocalGet:
			stack = append(stack, locals[ins.Imm])
		case OpLocalSet:
			locals[ins.Imm] = pop()
		case OpEqz:
			stack[len(stack)-1] = bool64(stack[len(stack)-1] == 0)
		case OpDrop:
			pop()
		case OpIf:
			if pop() == 0 {
				pc = in.jump[pc]
				continue
			}
		case OpElse:
			pc = in.jump[pc]
			continue
		case OpBr:
			target := in.jump[pc]
			if target <= pc {
				if err := tick(ctx, &backEdges); err != nil {
					return 0, err
				}
			}
			pc = target
			continue
		case OpBrIf:
			if pop() != 0 {
				target := in.jump[pc]
				if target <= pc {
					if err := tick(ctx, &backEdges); err != nil {
						return 0, err
					}
				}
				pc = target
				continue
			}
		case OpReturn:
			return pop(), nil
		default:
			if !ins.Op.IsBinary() {
				return 0, errors.Unsupported(errors.PhaseInvoke, fmt.Sprintf("opcode %s", ins.Op))
			}
			b := pop()
			a := stack[len(stack)-1]
			v, err := Binary(ins.Op, a, b)
			if err != nil {
				if e, ok := err.(*errors.Error); ok {
					e.Method = in.Name
					e.Path = []string{fmt.Sprintf("pc %d", pc)}
				}
				return 0, err
			}
			stack[len(stack)-1] = v
		}
		pc++
	}

	return stack[len(stack)-1], nil
}

func tick(ctx context.Context, n *int) error {
	*n++
	if *n%checkEvery != 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.PhaseInvoke, errors.KindCanceled, err, "interpreter interrupted")
	}
	return nil
}

// Binary applies a binary opcode to a and b.
func Binary(op Opcode, a, b int64) (int64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return 0, errors.DivideByZero(errors.PhaseInvoke, nil)
		}
		if a == math.MinInt64 && b == -1 {
			return 0, errors.Overflow(errors.PhaseInvoke, nil, "div")
		}
		return a / b, nil
	case OpRem:
		if b == 0 {
			return 0, errors.DivideByZero(errors.PhaseInvoke, nil)
		}
		return a % b, nil
	case OpAnd:
		return a & b, nil
	case OpOr:
		return a | b, nil
	case OpXor:
		return a ^ b, nil
	case OpShl:
		return a << (uint64(b) & 63), nil
	case OpShr:
		return a >> (uint64(b) & 63), nil
	case OpEq:
		return bool64(a == b), nil
	case OpNe:
		return bool64(a != b), nil
	case OpLt:
		return bool64(a < b), nil
	case OpGt:
		return bool64(a > b), nil
	case OpLe:
		return bool64(a <= b), nil
	case OpGe:
		return bool64(a >= b), nil
	}
	return 0, errors.Unsupported(errors.PhaseInvoke, fmt.Sprintf("binary opcode %s", op))
}

func bool64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
