package method

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/wippyai/tierup"
	tuerrors "github.com/wippyai/tierup/errors"
	"github.com/wippyai/tierup/ir/irtest"
)

func TestNew_Interpreted(t *testing.T) {
	m := New("add", NewModule("Calc"), irtest.Add.Scope(), WithLocation("calc.rb", 3), WithVisibility(Private))

	if m.QualifiedName() != "Calc#add" {
		t.Errorf("QualifiedName = %q", m.QualifiedName())
	}
	if m.File() != "calc.rb" || m.Line() != 3 {
		t.Errorf("location = %s:%d", m.File(), m.Line())
	}

	impl := m.Implementation()
	if impl.Tier() != Interpreted {
		t.Errorf("Tier = %v, want interpreted", impl.Tier())
	}
	if impl.Visibility() != Private || impl.Owner() != m.Owner() || impl.Scope() != m.Scope() {
		t.Error("interpreted implementation should carry visibility, owner and scope")
	}
	if _, _, ok := impl.Fixed(); ok {
		t.Error("interpreted implementation has no fixed-arity entry")
	}

	got, err := m.Call(context.Background(), 2, 3)
	if err != nil || got != 5 {
		t.Errorf("Call = (%d, %v), want 5", got, err)
	}
}

func TestInstall(t *testing.T) {
	m := New("add", NewModule("Calc"), irtest.Add.Scope())

	t.Run("rejects incomplete", func(t *testing.T) {
		err := m.Install(nil)
		if !errors.Is(err, &tuerrors.Error{Phase: tuerrors.PhaseInstall, Kind: tuerrors.KindInvalidInput}) {
			t.Errorf("Install(nil) = %v", err)
		}
		if m.Implementation().Tier() != Interpreted {
			t.Error("failed install must not change the implementation")
		}
	})

	t.Run("dispatch by arity", func(t *testing.T) {
		var genericCalls, fixedCalls atomic.Int32
		generic := func(ctx context.Context, args []int64) (int64, error) {
			genericCalls.Add(1)
			return args[0] + args[1], nil
		}
		fixed := func(ctx context.Context, args []int64) (int64, error) {
			fixedCalls.Add(1)
			return args[0] + args[1], nil
		}

		impl := NewCompiledWithArity(generic, fixed, 2, m.Scope(), m.Visibility(), m.Owner())
		if err := m.Install(impl); err != nil {
			t.Fatal(err)
		}

		if v, err := m.Call(context.Background(), 4, 5); err != nil || v != 9 {
			t.Fatalf("Call = (%d, %v)", v, err)
		}
		if v, err := m.Implementation().Generic()(context.Background(), []int64{4, 5}); err != nil || v != 9 {
			t.Fatalf("generic = (%d, %v)", v, err)
		}
		if fixedCalls.Load() != 1 || genericCalls.Load() != 1 {
			t.Errorf("fixed=%d generic=%d, want 1 and 1", fixedCalls.Load(), genericCalls.Load())
		}

		_, arity, ok := m.Implementation().Fixed()
		if !ok || arity != 2 {
			t.Errorf("Fixed arity = %d, %v", arity, ok)
		}
	})
}

func TestInstall_ConcurrentCallers(t *testing.T) {
	m := New("answer", NewModule("Q"), irtest.Answer.Scope())

	compiled := NewCompiledWithArity(
		func(context.Context, []int64) (int64, error) { return 42, nil },
		func(context.Context, []int64) (int64, error) { return 42, nil },
		0, m.Scope(), m.Visibility(), m.Owner(),
	)

	var wg sync.WaitGroup
	var wrong atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				impl := m.Implementation()
				if impl.Tier() == Compiled {
					if _, arity, ok := impl.Fixed(); !ok || arity != 0 {
						wrong.Add(1)
					}
				}
				if v, err := m.Call(context.Background()); err != nil || v != 42 {
					wrong.Add(1)
				}
			}
		}()
	}

	if err := m.Install(compiled); err != nil {
		t.Fatal(err)
	}
	wg.Wait()

	if wrong.Load() != 0 {
		t.Errorf("%d calls observed an inconsistent implementation", wrong.Load())
	}
	if m.Implementation() != compiled {
		t.Error("installed implementation not visible")
	}
}

func TestTickAndDisable(t *testing.T) {
	m := New("add", NewModule("Calc"), irtest.Add.Scope())

	for i := int64(1); i <= 3; i++ {
		if n := m.Tick(); n != i {
			t.Fatalf("Tick = %d, want %d", n, i)
		}
	}

	m.DisableCompile()
	if !m.IsCompileDisabled() {
		t.Fatal("method should be disabled")
	}
	if n := m.Tick(); n != CompileDisabled {
		t.Errorf("Tick after disable = %d, want sentinel", n)
	}
	if m.CallCount() != CompileDisabled {
		t.Errorf("CallCount = %d, want sentinel", m.CallCount())
	}
}

func TestTick_Concurrent(t *testing.T) {
	m := New("add", NewModule("Calc"), irtest.Add.Scope())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Tick()
			}
		}()
	}
	wg.Wait()

	if m.CallCount() != 1000 {
		t.Errorf("CallCount = %d, want 1000", m.CallCount())
	}
}

func TestImplementation_NoArityConstant(t *testing.T) {
	impl := NewCompiled(func(context.Context, []int64) (int64, error) { return 0, nil }, nil, Public, nil)
	if _, arity, ok := impl.Fixed(); ok || arity != tierup.NoArity {
		t.Errorf("Fixed = %d, %v", arity, ok)
	}
	if impl.Tier().String() != "compiled" {
		t.Errorf("Tier = %s", impl.Tier())
	}
}
