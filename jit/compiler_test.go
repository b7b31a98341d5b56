package jit_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/tierup/errors"
	"github.com/wippyai/tierup/ir"
	"github.com/wippyai/tierup/ir/irtest"
	"github.com/wippyai/tierup/jit"
	"github.com/wippyai/tierup/method"
)

func observed(level zap.AtomicLevel) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

func TestCompile_GenericOnly(t *testing.T) {
	b := &backend{}
	c := jit.NewCompiler(nil, b, b)

	for _, p := range irtest.All {
		t.Run(p.Name, func(t *testing.T) {
			m := newMethod(p)
			before := c.Counts().Successes()

			res := c.Compile(context.Background(), m, "Calc")
			if res.Outcome != jit.OutcomeCompiled || res.Err != nil {
				t.Fatalf("Compile = %v (%v)", res.Outcome, res.Err)
			}
			if got := c.Counts().Successes(); got != before+1 {
				t.Errorf("successes = %d, want %d", got, before+1)
			}
			if res.Key != ir.Key(m.Scope()) {
				t.Errorf("Key = %q", res.Key)
			}
			if res.Artifact != jit.ArtifactName("Calc", p.Name, res.Key) {
				t.Errorf("Artifact = %q", res.Artifact)
			}

			impl := m.Implementation()
			if impl.Tier() != method.Compiled {
				t.Fatalf("Tier = %v", impl.Tier())
			}
			if _, _, ok := impl.Fixed(); ok {
				t.Error("no fixed-arity entry was generated")
			}

			interp := method.NewInterpreted(p.Scope(), m.Visibility(), m.Owner())
			for _, tc := range p.Cases {
				want, wantErr := interp.Call(context.Background(), tc.Args)
				got, err := m.Call(context.Background(), tc.Args...)
				if got != want || (err == nil) != (wantErr == nil) {
					t.Errorf("Call(%v) = (%d, %v), interpreted (%d, %v)", tc.Args, got, err, want, wantErr)
				}
			}
		})
	}

	if c.Counts().Failures() != 0 {
		t.Errorf("failures = %d", c.Counts().Failures())
	}
}

func TestCompile_FixedArity(t *testing.T) {
	b := &backend{arities: []int{2}}
	c := jit.NewCompiler(nil, b, b)
	m := newMethod(irtest.Max)

	res := c.Compile(context.Background(), m, "Calc")
	if res.Outcome != jit.OutcomeCompiled || res.Arity != 2 {
		t.Fatalf("Compile = %v arity %d (%v)", res.Outcome, res.Arity, res.Err)
	}

	impl := m.Implementation()
	fixed, arity, ok := impl.Fixed()
	if !ok || arity != 2 {
		t.Fatalf("Fixed = arity %d, ok %v", arity, ok)
	}

	ctx := context.Background()
	for _, tc := range irtest.Max.Cases {
		viaFixed, err1 := fixed(ctx, tc.Args)
		viaGeneric, err2 := impl.Generic()(ctx, tc.Args)
		if err1 != nil || err2 != nil || viaFixed != tc.Want || viaGeneric != tc.Want {
			t.Errorf("%v: fixed (%d, %v), generic (%d, %v), want %d", tc.Args, viaFixed, err1, viaGeneric, err2, tc.Want)
		}
	}
}

func TestCompile_SelectsLowestArity(t *testing.T) {
	b := &backend{arities: []int{3, 1, 2}}
	c := jit.NewCompiler(nil, b, b)

	res := c.Compile(context.Background(), newMethod(irtest.Abs), "Calc")
	if res.Arity != 1 {
		t.Errorf("Arity = %d, want 1", res.Arity)
	}

	got := b.lookups()
	want := []string{"generic", "fixed1"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("lookups = %v, want %v", got, want)
	}
}

func TestCompile_Excluded(t *testing.T) {
	calc := method.NewModule("Calc")
	meta := method.NewSingleton(calc)

	tests := []struct {
		name    string
		exclude string
		owner   *method.Module
		class   string
		scope   string
	}{
		{"owner", "Calc", calc, "Calc", "Calc"},
		{"owner and method", "Calc#add", calc, "Calc", "Calc"},
		{"bare method", "add", calc, "Calc", "Calc"},
		{"singleton owner", "Meta:Calc", meta, meta.Name(), "Meta:Calc"},
		{"singleton method", "Meta:Calc#add", meta, meta.Name(), "Meta:Calc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := observed(zap.NewAtomicLevelAt(zap.InfoLevel))
			b := &backend{}
			cfg := &jit.Config{Exclude: []string{tt.exclude}, Logging: true}
			c := jit.NewCompiler(cfg, b, b, jit.WithLogger(logger))
			m := method.New("add", tt.owner, irtest.Add.Scope())
			prev := m.Implementation()

			for i := 0; i < 2; i++ {
				res := c.Compile(context.Background(), m, tt.class)
				if res.Outcome != jit.OutcomeExcluded || res.ExcludedBy != tt.scope {
					t.Fatalf("Compile = %v by %q, want excluded by %q", res.Outcome, res.ExcludedBy, tt.scope)
				}
			}

			if b.emits.Load() != 0 {
				t.Error("excluded method reached the emitter")
			}
			if !m.IsCompileDisabled() || m.Tick() != method.CompileDisabled {
				t.Error("excluded method should stay compile-disabled")
			}
			if m.Implementation() != prev {
				t.Error("excluded method implementation changed")
			}
			if c.Counts().Successes() != 0 || c.Counts().Failures() != 0 {
				t.Error("exclusion must not be counted")
			}
			if n := logs.FilterMessage("skipping method in " + tt.scope).Len(); n != 2 {
				t.Errorf("skip lines = %d, want 2", n)
			}
		})
	}
}

func TestCompile_UnrelatedRosterIsTransparent(t *testing.T) {
	for _, exclude := range [][]string{nil, {}, {"Other", "Calc#sub", "Meta:Calc", "  "}} {
		b := &backend{}
		c := jit.NewCompiler(&jit.Config{Exclude: exclude}, b, b)
		m := newMethod(irtest.Add)

		res := c.Compile(context.Background(), m, "Calc")
		if res.Outcome != jit.OutcomeCompiled {
			t.Errorf("roster %q: outcome %v", exclude, res.Outcome)
		}
		if m.IsCompileDisabled() {
			t.Errorf("roster %q: method disabled", exclude)
		}
	}
}

func TestCompile_Faults(t *testing.T) {
	boom := stderrors.New("boom")

	tests := []struct {
		name    string
		backend *backend
		program irtest.Program
		phase   errors.Phase
		kind    errors.Kind
	}{
		{"emit error", &backend{emitErr: boom}, irtest.Add, errors.PhaseGenerate, errors.KindInvalidData},
		{"emit panic", &backend{emitPanic: "emitter bug"}, irtest.Add, errors.PhaseGenerate, errors.KindPanic},
		{"emit panic with error", &backend{emitPanic: boom}, irtest.Add, errors.PhaseGenerate, errors.KindPanic},
		{"load error", &backend{loadErr: boom}, irtest.Add, errors.PhaseLoad, errors.KindInvalidData},
		{"lookup error", &backend{lookupErr: boom}, irtest.Add, errors.PhaseResolve, errors.KindNotFound},
		{"invalid body", &backend{}, irtest.Program{Name: "bad", Text: "add"}, errors.PhaseLoad, errors.KindInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := jit.NewCompiler(nil, tt.backend, tt.backend)
			m := newMethod(tt.program)
			prev := m.Implementation()

			res := c.Compile(context.Background(), m, "Calc")
			if res.Outcome != jit.OutcomeFailed || res.Err == nil {
				t.Fatalf("Compile = %v (%v), want failure", res.Outcome, res.Err)
			}
			if !stderrors.Is(res.Err, &errors.Error{Phase: tt.phase, Kind: tt.kind}) {
				t.Errorf("Err = %v, want %s/%s", res.Err, tt.phase, tt.kind)
			}
			if c.Counts().Failures() != 1 || c.Counts().Successes() != 0 {
				t.Errorf("counters = %d/%d, want 0/1", c.Counts().Successes(), c.Counts().Failures())
			}
			if m.Implementation() != prev {
				t.Error("failed task must keep the previous implementation")
			}
			if m.IsCompileDisabled() {
				t.Error("failure must not disable compilation")
			}
		})
	}
}

func TestCompile_FaultKeepsMethodCallable(t *testing.T) {
	c := jit.NewCompiler(nil, &backend{emitPanic: "bug"}, &backend{})
	m := newMethod(irtest.Add)

	c.Compile(context.Background(), m, "Calc")
	got, err := m.Call(context.Background(), 2, 3)
	if err != nil || got != 5 {
		t.Errorf("Call = (%d, %v), want 5", got, err)
	}
}

func TestCompile_MissingCollaborators(t *testing.T) {
	c := jit.NewCompiler(nil, nil, nil)
	res := c.Compile(context.Background(), newMethod(irtest.Add), "Calc")
	if !stderrors.Is(res.Err, &errors.Error{Phase: errors.PhaseGenerate, Kind: errors.KindNotInitialized}) {
		t.Errorf("Err = %v", res.Err)
	}
}

func TestCompile_NoArtifact(t *testing.T) {
	logger, logs := observed(zap.NewAtomicLevelAt(zap.DebugLevel))
	b := &backend{noArtifact: true}
	cfg := &jit.Config{Logging: true, LoggingVerbose: true, LogEvery: 1}
	c := jit.NewCompiler(cfg, b, b, jit.WithLogger(logger))
	m := newMethod(irtest.Add)
	prev := m.Implementation()

	res := c.Compile(context.Background(), m, "Calc")
	if res.Outcome != jit.OutcomeAborted || res.Err != nil {
		t.Fatalf("Compile = %v (%v), want aborted", res.Outcome, res.Err)
	}
	if c.Counts().Successes() != 0 || c.Counts().Failures() != 0 {
		t.Error("silent abort must not be counted")
	}
	if m.Implementation() != prev || m.IsCompileDisabled() {
		t.Error("silent abort must leave the method unchanged")
	}
	if logs.Len() != 0 {
		t.Errorf("silent abort logged %d lines", logs.Len())
	}
}

func TestCompile_Canceled(t *testing.T) {
	b := &backend{arities: []int{2}}
	c := jit.NewCompiler(nil, b, b)
	m := newMethod(irtest.Add)
	prev := m.Implementation()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := c.Compile(ctx, m, "Calc")
	if res.Outcome != jit.OutcomeCanceled {
		t.Fatalf("Compile = %v, want canceled", res.Outcome)
	}
	if b.emits.Load() != 1 || b.loads.Load() != 1 {
		t.Error("generation and loading run to completion")
	}
	if m.Implementation() != prev {
		t.Error("canceled task must not install")
	}
	if c.Counts().Successes() != 0 || c.Counts().Failures() != 0 {
		t.Error("canceled task must not be counted")
	}
}

func TestCompile_InterruptedCollaborator(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()

	tests := []struct {
		ctx  context.Context
		name string
		at   string
	}{
		{name: "emit canceled", ctx: canceled, at: "emit"},
		{name: "load canceled", ctx: canceled, at: "load"},
		{name: "load deadline", ctx: expired, at: "load"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := observed(zap.NewAtomicLevelAt(zap.DebugLevel))
			b := &backend{interruptAt: tt.at}
			c := jit.NewCompiler(&jit.Config{Logging: true, LoggingVerbose: true}, b, b, jit.WithLogger(logger))
			m := newMethod(irtest.Add)

			res := c.Compile(tt.ctx, m, "Calc")
			if res.Outcome != jit.OutcomeCanceled || res.Err != nil {
				t.Fatalf("Compile = %v (%v), want canceled", res.Outcome, res.Err)
			}
			if c.Counts().Successes() != 0 || c.Counts().Failures() != 0 {
				t.Error("interrupted task must not be counted")
			}
			if logs.Len() != 0 {
				t.Errorf("interrupted task logged %d lines", logs.Len())
			}
			if m.IsCompileDisabled() || m.Implementation().Tier() != method.Interpreted {
				t.Error("method must stay interpreted and eligible")
			}
		})
	}
}

func TestCompile_CancellationErrorWithLiveContextFails(t *testing.T) {
	b := &backend{emitErr: fmt.Errorf("upstream: %w", context.Canceled)}
	c := jit.NewCompiler(nil, b, b)

	res := c.Compile(context.Background(), newMethod(irtest.Add), "Calc")
	if res.Outcome != jit.OutcomeFailed {
		t.Fatalf("Compile = %v, want failed", res.Outcome)
	}
	if c.Counts().Failures() != 1 {
		t.Errorf("failures = %d", c.Counts().Failures())
	}
}

func TestCompile_Resubmit(t *testing.T) {
	b := &backend{}
	c := jit.NewCompiler(nil, b, b)
	m := newMethod(irtest.Fib)

	first := c.Compile(context.Background(), m, "Calc")
	impl := m.Implementation()
	second := c.Compile(context.Background(), m, "Calc")

	if first.Outcome != jit.OutcomeCompiled || second.Outcome != jit.OutcomeCompiled {
		t.Fatalf("outcomes = %v, %v", first.Outcome, second.Outcome)
	}
	if first.Key != second.Key || first.ID == second.ID {
		t.Error("resubmission keeps the key and gets a new task id")
	}
	if m.Implementation() == impl {
		t.Error("recompiling overwrites the installed implementation")
	}
	if c.Counts().Successes() != 2 {
		t.Errorf("successes = %d", c.Counts().Successes())
	}
}

func TestCompile_PeriodicLog(t *testing.T) {
	tests := []struct {
		every int64
		n     int
		want  []string
	}{
		{every: 3, n: 10, want: []string{"3", "6", "9"}},
		{every: 1, n: 3, want: []string{"1", "2", "3"}},
		{every: 5, n: 4, want: nil},
		{every: 0, n: 4, want: nil},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("every %d of %d", tt.every, tt.n), func(t *testing.T) {
			logger, logs := observed(zap.NewAtomicLevelAt(zap.InfoLevel))
			b := &backend{}
			c := jit.NewCompiler(&jit.Config{LogEvery: tt.every}, b, b, jit.WithLogger(logger))

			for i := 0; i < tt.n; i++ {
				c.Compile(context.Background(), newMethod(irtest.Add), "Calc")
			}

			var got []string
			for _, e := range logs.FilterMessageSnippet("live compiled methods").All() {
				got = append(got, strings.TrimPrefix(e.Message, "live compiled methods: "))
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("periodic lines at %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompile_Diagnostics(t *testing.T) {
	tests := []struct {
		name     string
		cfg      jit.Config
		fail     bool
		messages map[string]int
		trace    bool
	}{
		{"quiet success", jit.Config{}, false, map[string]int{"done jitting": 0}, false},
		{"verbose success", jit.Config{LoggingVerbose: true}, false, map[string]int{"done jitting": 1}, false},
		{"quiet failure", jit.Config{}, true, map[string]int{"could not compile": 0}, false},
		{"logged failure", jit.Config{Logging: true}, true, map[string]int{"could not compile": 1}, false},
		{"verbose failure", jit.Config{Logging: true, LoggingVerbose: true}, true, map[string]int{"could not compile": 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := observed(zap.NewAtomicLevelAt(zap.InfoLevel))
			b := &backend{}
			if tt.fail {
				b.emitPanic = "emitter bug"
			}
			c := jit.NewCompiler(&tt.cfg, b, b, jit.WithLogger(logger))
			m := newMethod(irtest.Add)
			if err := ir.Optimize(m.Scope(), ir.DefaultPasses()...); err != nil {
				t.Fatal(err)
			}

			c.Compile(context.Background(), m, "Calc")

			for msg, want := range tt.messages {
				entries := logs.FilterMessageSnippet(msg).All()
				if len(entries) != want {
					t.Fatalf("%q lines = %d, want %d", msg, len(entries), want)
				}
				for _, e := range entries {
					fields := e.ContextMap()
					if fields["owner"] != "Calc" || fields["method"] != "add" || fields["file"] != "calc.rb" || fields["line"] != int64(7) {
						t.Errorf("fields = %v", fields)
					}
					if !tt.fail {
						continue
					}
					if !strings.Contains(e.Message, "DeadCode") {
						t.Errorf("message %q should list passes run", e.Message)
					}
					if reason, _ := fields["reason"].(string); !strings.Contains(reason, "emitter bug") {
						t.Errorf("reason = %v", fields["reason"])
					}
					trace, ok := fields["trace"].(string)
					if ok != tt.trace {
						t.Errorf("trace present = %v, want %v", ok, tt.trace)
					}
					if ok && !strings.Contains(trace, "goroutine") {
						t.Errorf("trace should carry the stack: %q", trace)
					}
				}
			}
		})
	}
}

func TestCompile_ConcurrentInstalls(t *testing.T) {
	b := &backend{arities: []int{1}}
	c := jit.NewCompiler(nil, b, b)

	const n = 64
	methods := make([]*method.Method, n)
	for i := range methods {
		methods[i] = newMethod(irtest.Fib)
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	for _, m := range methods {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if res := c.Compile(ctx, m, "Calc"); res.Outcome != jit.OutcomeCompiled {
				t.Errorf("Compile = %v (%v)", res.Outcome, res.Err)
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if got, err := m.Call(ctx, 10); err != nil || got != 55 {
					t.Errorf("Call during install = (%d, %v)", got, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := c.Counts().Successes(); got != n {
		t.Errorf("successes = %d, want %d", got, n)
	}
	for _, m := range methods {
		if m.Implementation().Tier() != method.Compiled {
			t.Errorf("%s not compiled", m.QualifiedName())
		}
	}
}

func TestReconfigure(t *testing.T) {
	b := &backend{}
	c := jit.NewCompiler(nil, b, b)

	first := newMethod(irtest.Add)
	if res := c.Compile(context.Background(), first, "Calc"); res.Outcome != jit.OutcomeCompiled {
		t.Fatalf("Compile = %v", res.Outcome)
	}

	c.Reconfigure(&jit.Config{Exclude: []string{"add"}, LogEvery: 10})
	if got := c.Config(); got.LogEvery != 10 || c.Roster().Len() != 1 {
		t.Errorf("Config = %+v", got)
	}

	second := newMethod(irtest.Add)
	if res := c.Compile(context.Background(), second, "Calc"); res.Outcome != jit.OutcomeExcluded {
		t.Errorf("Compile after reconfigure = %v", res.Outcome)
	}

	c.Reconfigure(nil)
	if c.Roster().Len() != 0 {
		t.Error("nil config clears the roster")
	}
}
