package tierup

import "context"

// Entry is a callable method body. Every implementation a method can have,
// interpreted or compiled, is reduced to this calling convention.
type Entry func(ctx context.Context, args []int64) (int64, error)

// NoArity marks an implementation without a fixed-arity entry.
const NoArity = -1
