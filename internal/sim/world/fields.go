package world

import (
	"fmt"
	"strings"
)

type FieldScope int

const (
	ScopeType FieldScope = iota
	ScopeActor
)

// FieldSpec declares an extra integer field on every type or actor. Name is
// also the setter verb, so it carries the TT_ or T_ prefix of its scope.
type FieldSpec struct {
	Name    string
	Scope   FieldScope
	Min     int
	Max     int
	Default int
}

// RegisterField adds an extra field. Existing templates and actors receive
// the default.
func (w *World) RegisterField(f FieldSpec) error {
	prefix := "TT_"
	if f.Scope == ScopeActor {
		prefix = "T_"
	}
	if !strings.HasPrefix(f.Name, prefix) {
		return fmt.Errorf("field %s: name must start with %s", f.Name, prefix)
	}
	if f.Min > f.Max || f.Default < f.Min || f.Default > f.Max {
		return fmt.Errorf("field %s: default %d outside %d..%d", f.Name, f.Default, f.Min, f.Max)
	}
	for _, g := range w.fields {
		if g.Name == f.Name {
			return fmt.Errorf("field %s: already registered", f.Name)
		}
	}
	w.fields = append(w.fields, f)
	if f.Scope == ScopeType {
		for _, t := range w.types {
			t.Extra[f.Name] = f.Default
		}
	} else {
		for _, a := range w.actors {
			a.Extra[f.Name] = f.Default
		}
	}
	return nil
}

// Field looks up a registered field by name.
func (w *World) Field(name string) (FieldSpec, bool) {
	for _, f := range w.fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

func (w *World) fieldDefaults(scope FieldScope) map[string]int {
	m := map[string]int{}
	for _, f := range w.fields {
		if f.Scope == scope {
			m[f.Name] = f.Default
		}
	}
	return m
}
