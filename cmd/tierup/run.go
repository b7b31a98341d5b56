package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/tierup/config"
	"github.com/wippyai/tierup/engine"
	"github.com/wippyai/tierup/hotspot"
	"github.com/wippyai/tierup/jit"
	"github.com/wippyai/tierup/method"
)

// session wires a program to an engine, a compiler and a dispatcher.
type session struct {
	engine     *engine.Engine
	compiler   *jit.Compiler
	dispatcher *hotspot.Dispatcher
	watcher    *config.Watcher
	results    *resultLog
	targets    []target
}

func newSession(ctx context.Context, cfg *config.Config, prog *Program, log *zap.Logger) (*session, error) {
	targets, err := prog.define(method.NewRegistry())
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(ctx, &cfg.Engine)
	if err != nil {
		return nil, err
	}

	s := &session{
		engine:   eng,
		compiler: jit.NewCompiler(&cfg.JIT, eng, eng, jit.WithLogger(log)),
		results:  newResultLog(),
		targets:  targets,
	}
	s.dispatcher = hotspot.New(ctx, s.compiler, &cfg.Hotspot,
		hotspot.WithResultHandler(s.results.record),
		hotspot.WithLogger(log),
	)
	return s, nil
}

// watch reloads the jit section of the config file into the compiler.
func (s *session) watch(ctx context.Context, path string, log *zap.Logger) error {
	w, err := config.NewWatcher(path, config.ReconfigureCompiler(s.compiler), config.WithWatcherLogger(log))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	s.watcher = w
	return nil
}

// round makes every call of every method once and waits for the compiles
// it triggered.
func (s *session) round(ctx context.Context) {
	for _, t := range s.targets {
		for _, args := range t.calls {
			_, _ = s.dispatcher.Invoke(ctx, t.method, t.class, args...)
		}
	}
	s.dispatcher.Wait()
}

func (s *session) close(ctx context.Context) error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.dispatcher.Close()
	return s.engine.Close(ctx)
}

// row is one line of the report.
type row struct {
	name    string
	tier    string
	outcome string
	calls   int64
	arity   string
	checks  string
}

// rows describes every target. With check set each call is replayed against
// the interpreter.
func (s *session) rows(ctx context.Context, check bool) []row {
	out := make([]row, 0, len(s.targets))
	for _, t := range s.targets {
		m := t.method
		impl := m.Implementation()

		r := row{
			name:    t.class + "#" + m.Name(),
			tier:    impl.Tier().String(),
			outcome: "-",
			calls:   m.CallCount(),
			arity:   "-",
			checks:  "-",
		}
		if check {
			r.checks = verify(ctx, t)
		}
		if res, ok := s.results.last(m); ok {
			r.outcome = res.Outcome.String()
		}
		if _, n, ok := impl.Fixed(); ok {
			r.arity = fmt.Sprint(n)
		}
		if m.IsCompileDisabled() && r.outcome == "-" {
			r.outcome = "disabled"
		}
		out = append(out, r)
	}
	return out
}

// verify compares the live implementation with the interpreter on every
// call of the target.
func verify(ctx context.Context, t target) string {
	m := t.method
	interp := method.NewInterpreted(m.Scope(), m.Visibility(), m.Owner())

	mismatches := 0
	for _, args := range t.calls {
		want, wantErr := interp.Call(ctx, args)
		got, err := m.Call(ctx, args...)
		if got != want || (err == nil) != (wantErr == nil) {
			mismatches++
		}
	}
	if mismatches > 0 {
		return fmt.Sprintf("%d mismatch", mismatches)
	}
	return "ok"
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

func (s *session) report(ctx context.Context, w io.Writer, styled bool) {
	render := func(st lipgloss.Style, v string) string {
		if !styled {
			return v
		}
		return st.Render(v)
	}

	fmt.Fprintln(w, render(headerStyle, fmt.Sprintf("%-28s %-12s %-10s %8s %6s  %s", "METHOD", "TIER", "OUTCOME", "CALLS", "ARITY", "CHECK")))
	for _, r := range s.rows(ctx, true) {
		check := render(okStyle, r.checks)
		if r.checks != "ok" {
			check = render(badStyle, r.checks)
		}
		fmt.Fprintf(w, "%-28s %-12s %-10s %8d %6s  %s\n", r.name, r.tier, r.outcome, r.calls, r.arity, check)
	}

	counts := s.compiler.Counts()
	stats := s.dispatcher.Stats()
	fmt.Fprintf(w, "\ncompiled: %d  failed: %d  submitted: %d  dropped: %d  artifacts: %d\n",
		counts.Successes(), counts.Failures(), stats.Submitted, stats.Dropped, s.engine.Len())

	if errs := s.results.errors(); len(errs) > 0 {
		fmt.Fprintln(w, render(badStyle, "\nfailures:"))
		for _, e := range errs {
			fmt.Fprintln(w, "  "+strings.ReplaceAll(e, "\n", "\n  "))
		}
	}
}
