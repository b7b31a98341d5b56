package ir

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/tierup/errors"
)

// Parse builds a scope from assembly text.
func Parse(name string, params, locals int, text string) (*Scope, error) {
	code, err := ParseInstrs(text)
	if err != nil {
		return nil, err
	}
	return NewScope(name, params, locals, code), nil
}

// ParseInstrs parses assembly text into instructions.
func ParseInstrs(text string) ([]Instr, error) {
	var code []Instr
	sc := bufio.NewScanner(strings.NewReader(text))
	line := 0
	for sc.Scan() {
		line++
		src := sc.Text()
		if i := strings.IndexByte(src, ';'); i >= 0 {
			src = src[:i]
		}
		fields := strings.Fields(src)
		if len(fields) == 0 {
			continue
		}

		op, ok := opByName[fields[0]]
		if !ok {
			return nil, errors.ParseFailed("instruction", line, fmt.Errorf("unknown mnemonic %q", fields[0]))
		}

		ins := Instr{Op: op}
		switch {
		case op.HasImmediate() && len(fields) != 2:
			return nil, errors.ParseFailed("instruction", line, fmt.Errorf("%s takes one operand", op))
		case !op.HasImmediate() && len(fields) != 1:
			return nil, errors.ParseFailed("instruction", line, fmt.Errorf("%s takes no operand", op))
		case op.HasImmediate():
			imm, err := strconv.ParseInt(fields[1], 0, 64)
			if err != nil {
				return nil, errors.ParseFailed("operand", line, err)
			}
			ins.Imm = imm
		}
		code = append(code, ins)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.ParseFailed("assembly", line, err)
	}
	return code, nil
}

// Format renders instructions back to assembly, indenting nested blocks.
func Format(code []Instr) string {
	var b strings.Builder
	depth := 0
	for _, ins := range code {
		if ins.Op == OpEnd || ins.Op == OpElse {
			depth--
		}
		b.WriteString(strings.Repeat("  ", max(depth, 0)))
		b.WriteString(ins.String())
		b.WriteByte('\n')
		if ins.Op == OpBlock || ins.Op == OpLoop || ins.Op == OpIf || ins.Op == OpElse {
			depth++
		}
	}
	return b.String()
}
