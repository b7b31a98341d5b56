package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/tierup"
	"github.com/wippyai/tierup/engine/internal/binary"
	"github.com/wippyai/tierup/errors"
	"github.com/wippyai/tierup/ir"
	"github.com/wippyai/tierup/jit"
)

const (
	// GenericExport is the export name of the generic entry.
	GenericExport = "invoke"
	// MemoryExport is the export name of the argument memory.
	MemoryExport = "memory"

	pageSize = 1 << 16

	bodyFunc    = 0
	genericFunc = 1
)

// FixedExport is the export name of the fixed-arity entry for arity n.
func FixedExport(n int) string {
	return fmt.Sprintf("invoke_%d", n)
}

// module layout:
//
//	func 0  body     (i64 x params) -> i64
//	func 1  generic  (i32 argv, i32 argc) -> i64
//	memory 0         argv slots, 8 bytes per argument
func encodeModule(in *ir.Instructions, withFixed bool) ([]byte, error) {
	body, err := encodeBody(in)
	if err != nil {
		return nil, err
	}

	w := binary.NewWriter()
	w.Header()

	w.Section(binary.SectionType, func(s *binary.Writer) {
		s.WriteU32(2)
		s.Byte(binary.FuncType)
		s.WriteU32(uint32(in.Params))
		for i := 0; i < in.Params; i++ {
			s.Byte(binary.ValI64)
		}
		s.WriteU32(1)
		s.Byte(binary.ValI64)

		s.Byte(binary.FuncType)
		s.WriteU32(2)
		s.Byte(binary.ValI32, binary.ValI32)
		s.WriteU32(1)
		s.Byte(binary.ValI64)
	})

	w.Section(binary.SectionFunction, func(s *binary.Writer) {
		s.WriteU32(2)
		s.WriteU32(bodyFunc)
		s.WriteU32(genericFunc)
	})

	w.Section(binary.SectionMemory, func(s *binary.Writer) {
		s.WriteU32(1)
		s.Byte(0x00) // min only
		s.WriteU32(memoryPages(in.Params))
	})

	w.Section(binary.SectionExport, func(s *binary.Writer) {
		n := uint32(2)
		if withFixed {
			n++
		}
		s.WriteU32(n)
		s.WriteName(MemoryExport)
		s.Byte(binary.KindMemory)
		s.WriteU32(0)
		s.WriteName(GenericExport)
		s.Byte(binary.KindFunc)
		s.WriteU32(genericFunc)
		if withFixed {
			s.WriteName(FixedExport(in.Params))
			s.Byte(binary.KindFunc)
			s.WriteU32(bodyFunc)
		}
	})

	w.Section(binary.SectionCode, func(s *binary.Writer) {
		s.WriteU32(2)
		s.Sized(func(f *binary.Writer) {
			if in.Locals > 0 {
				f.WriteU32(1)
				f.WriteU32(uint32(in.Locals))
				f.Byte(binary.ValI64)
			} else {
				f.WriteU32(0)
			}
			f.Byte(body...)
		})
		s.Sized(func(f *binary.Writer) {
			f.WriteU32(0)
			encodeGeneric(f, in.Params)
		})
	})

	return w.Bytes(), nil
}

func memoryPages(params int) uint32 {
	pages := (params*8 + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	return uint32(pages)
}

// encodeGeneric traps unless argc matches, loads the arguments from argv and
// calls the body.
func encodeGeneric(f *binary.Writer, params int) {
	f.Byte(binary.OpLocalGet)
	f.WriteU32(1)
	f.Byte(binary.OpI32Const)
	f.WriteS32(int32(params))
	f.Byte(binary.OpI32Ne, binary.OpIf, binary.BlockVoid, binary.OpUnreachable, binary.OpEnd)

	for i := 0; i < params; i++ {
		f.Byte(binary.OpLocalGet)
		f.WriteU32(0)
		f.Byte(binary.OpI64Load)
		f.WriteU32(3) // align 2^3
		f.WriteU32(uint32(i * 8))
	}
	f.Byte(binary.OpCall)
	f.WriteU32(bodyFunc)
	f.Byte(binary.OpEnd)
}

var binaryOps = map[ir.Opcode][]byte{
	ir.OpAdd: {binary.OpI64Add},
	ir.OpSub: {binary.OpI64Sub},
	ir.OpMul: {binary.OpI64Mul},
	ir.OpDiv: {binary.OpI64DivS},
	ir.OpRem: {binary.OpI64RemS},
	ir.OpAnd: {binary.OpI64And},
	ir.OpOr:  {binary.OpI64Or},
	ir.OpXor: {binary.OpI64Xor},
	ir.OpShl: {binary.OpI64Shl},
	ir.OpShr: {binary.OpI64ShrS},
	ir.OpEq:  {binary.OpI64Eq, binary.OpI64ExtendI32U},
	ir.OpNe:  {binary.OpI64Ne, binary.OpI64ExtendI32U},
	ir.OpLt:  {binary.OpI64LtS, binary.OpI64ExtendI32U},
	ir.OpGt:  {binary.OpI64GtS, binary.OpI64ExtendI32U},
	ir.OpLe:  {binary.OpI64LeS, binary.OpI64ExtendI32U},
	ir.OpGe:  {binary.OpI64GeS, binary.OpI64ExtendI32U},
}

// encodeBody translates a validated method body instruction by instruction.
// Values are i64 throughout; conditions are narrowed to i32 where wasm
// needs them.
func encodeBody(in *ir.Instructions) ([]byte, error) {
	f := binary.NewWriter()
	args := uint32(in.Params)

	for pc, ins := range in.Code {
		switch ins.Op {
		case ir.OpNop:
		case ir.OpConst:
			f.Byte(binary.OpI64Const)
			f.WriteS64(ins.Imm)
		case ir.OpArg:
			f.Byte(binary.OpLocalGet)
			f.WriteU32(uint32(ins.Imm))
		case ir.OpLocalGet:
			f.Byte(binary.OpLocalGet)
			f.WriteU32(args + uint32(ins.Imm))
		case ir.OpLocalSet:
			f.Byte(binary.OpLocalSet)
			f.WriteU32(args + uint32(ins.Imm))
		case ir.OpEqz:
			f.Byte(binary.OpI64Eqz, binary.OpI64ExtendI32U)
		case ir.OpDrop:
			f.Byte(binary.OpDrop)
		case ir.OpBlock:
			f.Byte(binary.OpBlock, binary.BlockVoid)
		case ir.OpLoop:
			f.Byte(binary.OpLoop, binary.BlockVoid)
		case ir.OpIf:
			f.Byte(binary.OpI64Eqz, binary.OpI32Eqz, binary.OpIf, binary.BlockVoid)
		case ir.OpElse:
			f.Byte(binary.OpElse)
		case ir.OpEnd:
			f.Byte(binary.OpEnd)
		case ir.OpBr:
			f.Byte(binary.OpBr)
			f.WriteU32(uint32(ins.Imm))
		case ir.OpBrIf:
			f.Byte(binary.OpI64Eqz, binary.OpI32Eqz, binary.OpBrIf)
			f.WriteU32(uint32(ins.Imm))
		case ir.OpReturn:
			f.Byte(binary.OpReturn)
		default:
			ops, ok := binaryOps[ins.Op]
			if !ok {
				return nil, errors.New(errors.PhaseGenerate, errors.KindUnsupported).
					Method(in.Name).
					Path(fmt.Sprintf("pc %d", pc)).
					Detail("no wasm lowering for %s", ins.Op).
					Build()
			}
			f.Byte(ops...)
		}
	}
	f.Byte(binary.OpEnd)
	return f.Bytes(), nil
}

// describe reads the entry points of an encoded module back from its export
// section.
func describe(code []byte) (*jit.Descriptor, error) {
	exports, err := binary.Exports(code)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, err, "read exports")
	}

	desc := &jit.Descriptor{Code: code}
	generic := false
	for _, exp := range exports {
		if exp.Kind != binary.KindFunc {
			continue
		}
		if exp.Name == GenericExport {
			desc.Generic = jit.Signature{Name: exp.Name, Arity: tierup.NoArity}
			generic = true
			continue
		}
		suffix, ok := strings.CutPrefix(exp.Name, GenericExport+"_")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if desc.Specific == nil {
			desc.Specific = make(map[int]jit.Signature)
		}
		desc.Specific[n] = jit.Signature{Name: exp.Name, Arity: n}
	}
	if !generic {
		return nil, errors.NotFound(errors.PhaseGenerate, "export", GenericExport)
	}
	return desc, nil
}
