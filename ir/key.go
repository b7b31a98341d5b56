package ir

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
)

// Canonical renders the structural form of a scope as an s-expression.
// Source location and owner are not part of it, so structurally identical
// methods share a form.
func Canonical(s *Scope) string {
	var b strings.Builder
	b.WriteString("(method ")
	b.WriteString(strconv.Quote(s.Name()))
	b.WriteString(" (params ")
	b.WriteString(strconv.Itoa(s.Params()))
	b.WriteString(") (locals ")
	b.WriteString(strconv.Itoa(s.Locals()))
	b.WriteString(") (code")
	for _, ins := range s.Instrs() {
		b.WriteString(" (")
		b.WriteString(ins.Op.String())
		if ins.Op.HasImmediate() {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatInt(ins.Imm, 10))
		}
		b.WriteByte(')')
	}
	b.WriteString("))")
	return b.String()
}

// Key returns the hex SHA-1 digest of the canonical form.
func Key(s *Scope) string {
	sum := sha1.Sum([]byte(Canonical(s)))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
