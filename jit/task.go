package jit

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/tierup"
	"github.com/wippyai/tierup/errors"
	"github.com/wippyai/tierup/method"
)

// Task compiles a single method once. A task is not reusable; submitting
// the same method again needs a new task.
type Task struct {
	compiler   *Compiler
	method     *method.Method
	className  string
	methodName string
	phase      errors.Phase
	id         uuid.UUID
}

// NewTask creates a task compiling m on behalf of c. className is the
// qualified name of the type the method was found on; it defaults to the
// method owner's name.
func NewTask(c *Compiler, m *method.Method, className string) *Task {
	if className == "" && m.Owner() != nil {
		className = m.Owner().Name()
	}
	return &Task{
		compiler:   c,
		method:     m,
		className:  className,
		methodName: m.Name(),
		id:         uuid.New(),
	}
}

// ID is the correlation id carried in the task's log lines and result.
func (t *Task) ID() uuid.UUID { return t.id }

func (t *Task) qualified() string {
	return t.className + "#" + t.methodName
}

func (t *Task) fields() []zap.Field {
	return []zap.Field{
		zap.Stringer("task", t.id),
		zap.String("owner", t.className),
		zap.String("file", t.method.File()),
		zap.Int("line", t.method.Line()),
		zap.String("method", t.methodName),
	}
}

// attempt is what the guarded part of a task produced.
type attempt struct {
	desc     *Descriptor
	resolved Resolved
	outcome  Outcome
}

// Exec runs the task. It never panics and never returns an error: faults
// are caught, logged, counted and reported in the Result, and the method
// keeps its previous implementation.
func (t *Task) Exec(ctx context.Context) (res Result) {
	start := time.Now()
	st := t.compiler.snapshot()
	log := t.compiler.logger

	res = Result{
		ID:     t.id,
		Method: t.qualified(),
		Arity:  tierup.NoArity,
	}
	defer func() { res.Duration = time.Since(start) }()

	if scope := checkExcluded(st.roster, t.className, t.methodName, t.method.Owner()); scope != "" {
		t.method.DisableCompile()
		if st.cfg.Logging {
			log.Info("skipping method in "+scope, t.fields()...)
		}
		res.Outcome = OutcomeExcluded
		res.ExcludedBy = scope
		return res
	}

	a, err := t.run(ctx)
	if a.desc != nil {
		res.Key = a.desc.Key
		res.Artifact = a.desc.Name
	}
	if err != nil && interrupted(ctx, err) {
		res.Outcome = OutcomeCanceled
		return res
	}
	if err != nil {
		t.failed(st, err)
		res.Outcome = OutcomeFailed
		res.Err = err
		return res
	}

	res.Outcome = a.outcome
	if a.outcome != OutcomeCompiled {
		return res
	}
	res.Arity = a.resolved.Arity

	n := t.compiler.counts.succeed()
	if every := st.cfg.LogEvery; every > 0 && n%every == 0 {
		log.Info(fmt.Sprintf("live compiled methods: %d", n))
	}
	if st.cfg.LoggingVerbose {
		log.Info("done jitting", t.fields()...)
	}
	return res
}

// run is the failure boundary around generate, load, resolve and install.
func (t *Task) run(ctx context.Context) (a attempt, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = errors.Panic(t.phase, t.qualified(), v, debug.Stack())
		}
	}()

	t.phase = errors.PhaseGenerate
	a.desc, err = t.generate(ctx, t.compiler.emitter)
	if err != nil {
		return a, err
	}

	t.phase = errors.PhaseLoad
	art, err := t.load(ctx, t.compiler.loader, a.desc)
	if err != nil {
		return a, err
	}
	if art == nil {
		a.outcome = OutcomeAborted
		return a, nil
	}

	t.phase = errors.PhaseResolve
	a.resolved, err = resolve(art, a.desc)
	if err != nil {
		return a, withMethod(err, t.qualified())
	}

	if ctx.Err() != nil {
		a.outcome = OutcomeCanceled
		return a, nil
	}

	t.phase = errors.PhaseInstall
	if err = install(t.method, a.resolved); err != nil {
		return a, err
	}
	a.outcome = OutcomeCompiled
	return a, nil
}

func (t *Task) failed(st *settings, err error) {
	t.compiler.counts.fail()
	if !st.cfg.Logging {
		return
	}

	log := t.compiler.logger
	fields := append(t.fields(), zap.String("reason", err.Error()))
	if st.cfg.LoggingVerbose {
		fields = append(fields, zap.String("trace", fmt.Sprintf("%+v", err)))
	}
	var passes []string
	if scope := t.method.Scope(); scope != nil {
		passes = scope.ExecutedPasses()
	}
	log.Info(fmt.Sprintf("could not compile; passes run: %v", passes), fields...)
}

// interrupted reports whether err is the task's own context ending rather
// than a compile fault.
func interrupted(ctx context.Context, err error) bool {
	if ctx.Err() == nil {
		return false
	}
	return errors.HasKind(err, errors.KindCanceled) ||
		stderrors.Is(err, context.Canceled) ||
		stderrors.Is(err, context.DeadlineExceeded)
}

func withMethod(err error, name string) error {
	if e, ok := err.(*errors.Error); ok && e.Method == "" {
		e.Method = name
	}
	return err
}
