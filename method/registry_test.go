package method

import (
	"testing"

	"github.com/wippyai/tierup/ir/irtest"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	calc := NewModule("Calc")

	add := New("add", calc, irtest.Add.Scope())
	maxFn := New("max", calc, irtest.Max.Scope())

	if prev := r.Define(add); prev != nil {
		t.Error("first definition should not replace anything")
	}
	r.Define(maxFn)

	add2 := New("add", calc, irtest.Add.Scope())
	if prev := r.Define(add2); prev != add {
		t.Error("redefinition should return the replaced method")
	}

	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}

	got, ok := r.Lookup("Calc", "add")
	if !ok || got != add2 {
		t.Error("Lookup should find the latest definition")
	}
	if _, ok := r.Lookup("Calc", "missing"); ok {
		t.Error("Lookup of unknown method should fail")
	}

	methods := r.Methods()
	if len(methods) != 2 || methods[0] != add2 || methods[1] != maxFn {
		t.Errorf("Methods order wrong: %v", methods)
	}
}

func TestModule(t *testing.T) {
	foo := NewModule("Foo")
	meta := NewSingleton(foo)

	if !meta.IsSingleton() || meta.Attached() != foo {
		t.Error("singleton should be attached to Foo")
	}
	if meta.Name() != "#<Class:Foo>" {
		t.Errorf("Name = %q", meta.Name())
	}
	if foo.IsSingleton() || foo.Attached() != nil {
		t.Error("plain module is not a singleton")
	}

	obj := NewSingleton(42)
	if obj.Name() != "#<Class:?>" {
		t.Errorf("singleton of non-module Name = %q", obj.Name())
	}
}

func TestVisibility(t *testing.T) {
	for _, v := range []Visibility{Public, Protected, Private, ModuleFunction} {
		got, err := ParseVisibility(v.String())
		if err != nil || got != v {
			t.Errorf("ParseVisibility(%q) = %v, %v", v.String(), got, err)
		}
	}
	if _, err := ParseVisibility("secret"); err == nil {
		t.Error("unknown visibility should fail")
	}
}
