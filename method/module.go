package method

import "fmt"

// Visibility is the call visibility of a method.
type Visibility uint8

const (
	Public Visibility = iota
	Protected
	Private
	ModuleFunction
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	case ModuleFunction:
		return "module_function"
	}
	return fmt.Sprintf("visibility(%d)", uint8(v))
}

// ParseVisibility parses the String form of a visibility.
func ParseVisibility(s string) (Visibility, error) {
	switch s {
	case "", "public":
		return Public, nil
	case "protected":
		return Protected, nil
	case "private":
		return Private, nil
	case "module_function":
		return ModuleFunction, nil
	}
	return Public, fmt.Errorf("unknown visibility %q", s)
}

// Module is a method owner: a named module or class, or the singleton
// (meta) scope attached to some other entity.
type Module struct {
	attached  any
	name      string
	singleton bool
}

// NewModule creates a named module.
func NewModule(name string) *Module {
	return &Module{name: name}
}

// NewSingleton creates the singleton scope of attached. attached is usually
// a *Module but may be any runtime object.
func NewSingleton(attached any) *Module {
	name := "#<Class:?>"
	switch a := attached.(type) {
	case *Module:
		name = "#<Class:" + a.Name() + ">"
	case fmt.Stringer:
		name = "#<Class:" + a.String() + ">"
	}
	return &Module{name: name, attached: attached, singleton: true}
}

func (m *Module) Name() string { return m.name }

func (m *Module) IsSingleton() bool { return m.singleton }

// Attached returns the entity a singleton is attached to, nil otherwise.
func (m *Module) Attached() any { return m.attached }

func (m *Module) String() string { return m.name }
