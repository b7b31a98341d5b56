package ir

import "fmt"

// Opcode identifies an IR instruction.
type Opcode byte

const (
	OpNop Opcode = iota
	OpConst
	OpArg
	OpLocalGet
	OpLocalSet
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpEqz
	OpDrop
	OpBlock
	OpLoop
	OpIf
	OpElse
	OpEnd
	OpBr
	OpBrIf
	OpReturn
	opCount
)

var opNames = [opCount]string{
	OpNop:      "nop",
	OpConst:    "const",
	OpArg:      "arg",
	OpLocalGet: "local.get",
	OpLocalSet: "local.set",
	OpAdd:      "add",
	OpSub:      "sub",
	OpMul:      "mul",
	OpDiv:      "div",
	OpRem:      "rem",
	OpAnd:      "and",
	OpOr:       "or",
	OpXor:      "xor",
	OpShl:      "shl",
	OpShr:      "shr",
	OpEq:       "eq",
	OpNe:       "ne",
	OpLt:       "lt",
	OpGt:       "gt",
	OpLe:       "le",
	OpGe:       "ge",
	OpEqz:      "eqz",
	OpDrop:     "drop",
	OpBlock:    "block",
	OpLoop:     "loop",
	OpIf:       "if",
	OpElse:     "else",
	OpEnd:      "end",
	OpBr:       "br",
	OpBrIf:     "br_if",
	OpReturn:   "return",
}

var opByName = func() map[string]Opcode {
	m := make(map[string]Opcode, opCount)
	for op, name := range opNames {
		m[name] = Opcode(op)
	}
	return m
}()

func (op Opcode) String() string {
	if op < opCount {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", byte(op))
}

// HasImmediate reports whether the opcode carries an immediate operand.
func (op Opcode) HasImmediate() bool {
	switch op {
	case OpConst, OpArg, OpLocalGet, OpLocalSet, OpBr, OpBrIf:
		return true
	}
	return false
}

// IsBinary reports whether the opcode pops two operands and pushes one.
func (op Opcode) IsBinary() bool {
	return op >= OpAdd && op <= OpGe
}

// Instr is a single IR instruction.
type Instr struct {
	Op  Opcode
	Imm int64
}

func (i Instr) String() string {
	if i.Op.HasImmediate() {
		return fmt.Sprintf("%s %d", i.Op, i.Imm)
	}
	return i.Op.String()
}
