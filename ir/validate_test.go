package ir

import (
	"errors"
	"testing"

	tuerrors "github.com/wippyai/tierup/errors"
)

func TestMaterialize_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		params int
		locals int
	}{
		{name: "empty", text: ""},
		{name: "underflow", text: "add"},
		{name: "two results", text: "const 1\nconst 2"},
		{name: "no result", text: "const 1\ndrop"},
		{name: "arg out of range", text: "arg 0"},
		{name: "local out of range", text: "local.get 0", params: 1},
		{name: "unterminated block", text: "block\nconst 1"},
		{name: "end without block", text: "const 1\nend"},
		{name: "else without if", text: "block\nelse\nend\nconst 1"},
		{name: "block leaks value", text: "block\nconst 1\nend\nconst 1"},
		{name: "block reads outer stack", text: "const 1\nblock\ndrop\nend\nconst 1"},
		{name: "branch depth", text: "block\nbr 1\nend\nconst 1"},
		{name: "branch height", text: "block\nconst 1\nbr 0\nend\nconst 1"},
		{name: "code after return", text: "const 1\nreturn\nconst 2"},
		{name: "then leaks value", text: "const 1\nif\nconst 2\nelse\nend\nconst 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(tt.name, tt.params, tt.locals, tt.text)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			_, err = s.EnsureInstrsReady()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, &tuerrors.Error{Phase: tuerrors.PhaseValidate, Kind: tuerrors.KindStack}) &&
				!errors.Is(err, &tuerrors.Error{Phase: tuerrors.PhaseValidate, Kind: tuerrors.KindInvalidData}) {
				t.Errorf("unexpected error class: %v", err)
			}
		})
	}
}

func TestMaterialize_Targets(t *testing.T) {
	// 0 arg 0
	// 1 if
	// 2   const 1
	// 3   local.set 0
	// 4 else
	// 5   block
	// 6     const 2
	// 7     local.set 0
	// 8     br 0
	// 9   end
	// 10 end
	// 11 loop
	// 12   local.get 0
	// 13   br_if 0
	// 14 end
	// 15 local.get 0
	text := `arg 0
if
const 1
local.set 0
else
block
const 2
local.set 0
br 0
end
end
loop
local.get 0
br_if 0
end
local.get 0`
	s, err := Parse("targets", 1, 1, text)
	if err != nil {
		t.Fatal(err)
	}
	in, err := s.EnsureInstrsReady()
	if err != nil {
		t.Fatal(err)
	}

	want := map[int]int{1: 5, 4: 11, 8: 10, 13: 12}
	for pc, target := range want {
		if got := in.Target(pc); got != target {
			t.Errorf("Target(%d) = %d, want %d", pc, got, target)
		}
	}
	if in.MaxStack != 1 {
		t.Errorf("MaxStack = %d, want 1", in.MaxStack)
	}
}

func TestEnsureInstrsReady_Once(t *testing.T) {
	s := NewScope("answer", 0, 0, []Instr{{Op: OpConst, Imm: 42}})

	a, err := s.EnsureInstrsReady()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := s.EnsureInstrsReady()
	if a != b {
		t.Error("EnsureInstrsReady should return the same materialization")
	}
	if !s.Sealed() {
		t.Error("scope should be sealed after materialization")
	}

	if err := s.RunPass(ConstantFold{}); err == nil {
		t.Error("RunPass after materialization should fail")
	}
}
