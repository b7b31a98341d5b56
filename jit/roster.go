package jit

import (
	"sort"
	"strings"

	"github.com/wippyai/tierup/method"
)

// MetaPrefix marks the display name of a singleton scope in the roster.
const MetaPrefix = "Meta:"

// Roster is the set of names excluded from compilation.
type Roster struct {
	names map[string]struct{}
}

// NewRoster builds a roster, ignoring blank names.
func NewRoster(names ...string) *Roster {
	r := &Roster{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			r.names[n] = struct{}{}
		}
	}
	return r
}

// Len returns the number of names; a nil roster is empty.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Contains reports whether name is excluded; a nil roster contains nothing.
func (r *Roster) Contains(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.names[name]
	return ok
}

// Names returns the roster sorted.
func (r *Roster) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// checkExcluded returns the scope name under which the method is excluded,
// or "" when it may be compiled.
func checkExcluded(r *Roster, className, methodName string, owner *method.Module) string {
	if r.Len() == 0 {
		return ""
	}

	scope := className
	if owner != nil && owner.IsSingleton() {
		if attached, ok := owner.Attached().(*method.Module); ok {
			scope = MetaPrefix + attached.Name()
		}
	}

	if r.Contains(scope) || r.Contains(scope+"#"+methodName) || r.Contains(methodName) {
		return scope
	}
	return ""
}
