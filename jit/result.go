package jit

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is how a task ended.
type Outcome uint8

const (
	// OutcomeFailed means a fault was caught; Result.Err says where.
	OutcomeFailed Outcome = iota
	// OutcomeCompiled means a compiled implementation was installed.
	OutcomeCompiled
	// OutcomeExcluded means the roster matched and compilation is now
	// permanently disabled for the method.
	OutcomeExcluded
	// OutcomeAborted means the loader produced no artifact. Not an error.
	OutcomeAborted
	// OutcomeCanceled means the context ended before install; nothing was
	// published or counted.
	OutcomeCanceled
)

var outcomeNames = [...]string{
	OutcomeFailed:   "failed",
	OutcomeCompiled: "compiled",
	OutcomeExcluded: "excluded",
	OutcomeAborted:  "aborted",
	OutcomeCanceled: "canceled",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Result describes one executed task.
type Result struct {
	Err        error
	Method     string
	ExcludedBy string
	Key        string
	Artifact   string
	Duration   time.Duration
	Arity      int
	ID         uuid.UUID
	Outcome    Outcome
}

// Installed reports whether the task published a new implementation.
func (r Result) Installed() bool {
	return r.Outcome == OutcomeCompiled
}
