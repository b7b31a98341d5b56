// Package irtest holds IR programs shared by tests across packages.
package irtest

import (
	"github.com/wippyai/tierup/errors"
	"github.com/wippyai/tierup/ir"
)

// Case is one call of a program and its expected outcome.
type Case struct {
	Args    []int64
	Want    int64
	WantErr errors.Kind
}

// Program is an IR method body with known results.
type Program struct {
	Name   string
	Text   string
	Cases  []Case
	Params int
	Locals int
}

// Scope parses the program into a fresh scope.
func (p Program) Scope() *ir.Scope {
	s, err := ir.Parse(p.Name, p.Params, p.Locals, p.Text)
	if err != nil {
		panic(err)
	}
	return s
}

var Answer = Program{
	Name: "answer",
	Text: "const 42",
	Cases: []Case{
		{Args: nil, Want: 42},
		{Args: []int64{1}, WantErr: errors.KindArity},
	},
}

var Add = Program{
	Name:   "add",
	Params: 2,
	Text: `
arg 0
arg 1
add`,
	Cases: []Case{
		{Args: []int64{2, 3}, Want: 5},
		{Args: []int64{-7, 7}, Want: 0},
		{Args: []int64{1}, WantErr: errors.KindArity},
	},
}

var Max = Program{
	Name:   "max",
	Params: 2,
	Text: `
arg 0
arg 1
gt
if
  arg 0
  return
end
arg 1`,
	Cases: []Case{
		{Args: []int64{9, 4}, Want: 9},
		{Args: []int64{4, 9}, Want: 9},
		{Args: []int64{-1, -1}, Want: -1},
	},
}

var Abs = Program{
	Name:   "abs",
	Params: 1,
	Locals: 1,
	Text: `
arg 0
const 0
lt
if
  const 0
  arg 0
  sub
  local.set 0
else
  arg 0
  local.set 0
end
local.get 0`,
	Cases: []Case{
		{Args: []int64{-12}, Want: 12},
		{Args: []int64{12}, Want: 12},
		{Args: []int64{0}, Want: 0},
	},
}

var Factorial = Program{
	Name:   "fact",
	Params: 1,
	Locals: 2,
	Text: `
const 1
local.set 0      ; acc
arg 0
local.set 1      ; i
block
  loop
    local.get 1
    const 1
    le
    br_if 1
    local.get 0
    local.get 1
    mul
    local.set 0
    local.get 1
    const 1
    sub
    local.set 1
    br 0
  end
end
local.get 0`,
	Cases: []Case{
		{Args: []int64{0}, Want: 1},
		{Args: []int64{1}, Want: 1},
		{Args: []int64{5}, Want: 120},
		{Args: []int64{20}, Want: 2432902008176640000},
	},
}

var Fib = Program{
	Name:   "fib",
	Params: 1,
	Locals: 3,
	Text: `
const 0
local.set 0      ; a
const 1
local.set 1      ; b
block
  loop
    arg 0
    local.get 2
    le
    br_if 1
    local.get 0
    local.get 1
    add
    local.get 1
    local.set 0
    local.set 1
    local.get 2
    const 1
    add
    local.set 2
    br 0
  end
end
local.get 0`,
	Cases: []Case{
		{Args: []int64{0}, Want: 0},
		{Args: []int64{1}, Want: 1},
		{Args: []int64{10}, Want: 55},
		{Args: []int64{50}, Want: 12586269025},
	},
}

var Divide = Program{
	Name:   "divide",
	Params: 2,
	Text: `
arg 0
arg 1
div`,
	Cases: []Case{
		{Args: []int64{84, 2}, Want: 42},
		{Args: []int64{-7, 2}, Want: -3},
		{Args: []int64{1, 0}, WantErr: errors.KindDivideByZero},
		{Args: []int64{-9223372036854775808, -1}, WantErr: errors.KindOverflow},
	},
}

var Bits = Program{
	Name:   "bits",
	Params: 3,
	Text: `
arg 0
arg 1
shl
arg 2
shr
const 255
and
const 256
or
arg 0
xor`,
	Cases: []Case{
		{Args: []int64{1, 4, 2}, Want: ((1<<4)>>2)&255 | 256 ^ 1},
		{Args: []int64{-1, 65, 1}, Want: ((-1<<1)>>1)&255 | 256 ^ -1},
	},
}

var Sum5 = Program{
	Name:   "sum5",
	Params: 5,
	Text: `
arg 0
arg 1
add
arg 2
add
arg 3
add
arg 4
add`,
	Cases: []Case{
		{Args: []int64{1, 2, 3, 4, 5}, Want: 15},
		{Args: []int64{1, 2}, WantErr: errors.KindArity},
	},
}

// Spin never returns; it exists to exercise cancellation.
var Spin = Program{
	Name: "spin",
	Text: `
loop
  br 0
end
const 0`,
}

// All lists the terminating programs.
var All = []Program{Answer, Add, Max, Abs, Factorial, Fib, Divide, Bits, Sum5}
