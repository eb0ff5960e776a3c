package tools

import (
	"fmt"

	"github.com/interfaces-to/interfaces-to/errors"
)

// Set is a named collection of tool functions built from one registration
// table. Functions in a set share whatever credential or state their
// handlers close over.
type Set struct {
	name      string
	functions []*Function
	byName    map[string]*Function
}

type setOptions struct {
	only    []string
	lenient bool
}

// SetOption configures NewSet.
type SetOption func(*setOptions)

// Only restricts the set to the named functions, in the given order.
func Only(names ...string) SetOption {
	return func(o *setOptions) { o.only = names }
}

// Lenient skips the declaration checks. It is meant for schemas supplied by
// remote servers rather than written in this module.
func Lenient() SetOption {
	return func(o *setOptions) { o.lenient = true }
}

// NewSet builds every function of specs, or the subset selected with Only.
// Declaration problems and unknown names in Only are reported here, at
// construction time.
func NewSet(name string, specs []Spec, opts ...SetOption) (*Set, error) {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	table := make(map[string]Spec, len(specs))
	order := make([]string, 0, len(specs))
	for _, spec := range specs {
		if _, dup := table[spec.Name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate function %q", errors.ErrInvalidSchema, name, spec.Name)
		}
		table[spec.Name] = spec
		order = append(order, spec.Name)
	}
	if len(o.only) > 0 {
		order = o.only
	}

	s := &Set{name: name, byName: make(map[string]*Function, len(order))}
	for _, fname := range order {
		spec, ok := table[fname]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no function %q", errors.ErrUnknownTool, name, fname)
		}
		if spec.Handler == nil {
			return nil, fmt.Errorf("%w: %s: function %q has no handler", errors.ErrInvalidSchema, name, fname)
		}
		fn, err := newFunction(spec, !o.lenient)
		if err != nil {
			return nil, err
		}
		s.functions = append(s.functions, fn)
		s.byName[fname] = fn
	}
	return s, nil
}

func (s *Set) Name() string { return s.name }

// Tools returns the functions of the set in declaration order.
func (s *Set) Tools() []Tool {
	out := make([]Tool, 0, len(s.functions))
	for _, fn := range s.functions {
		out = append(out, fn)
	}
	return out
}

func (s *Set) Lookup(name string) (Tool, bool) {
	fn, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return fn, true
}

// Flatten lists the tools of every set in order.
func Flatten(sets ...*Set) []Tool {
	var out []Tool
	for _, s := range sets {
		out = append(out, s.Tools()...)
	}
	return out
}

// Index maps function names to tools across sets. A later set wins when two
// sets expose the same name.
func Index(sets ...*Set) map[string]Tool {
	index := make(map[string]Tool)
	for _, t := range Flatten(sets...) {
		index[t.Name()] = t
	}
	return index
}
