package object

import (
	"sort"
)

// Environment maps names to values. An evaluator has exactly one current
// environment; scoping is emulated by cloning the whole mapping.
type Environment struct {
	store map[string]Object
}

func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]Object)}
}

// Get returns the bound value and whether the name was bound at all.
func (e *Environment) Get(name string) (Object, bool) {
	obj, ok := e.store[name]
	return obj, ok
}

// Set binds name to val, replacing any previous binding.
func (e *Environment) Set(name string, val Object) Object {
	e.store[name] = val
	return val
}

// Clone returns an independent copy of the mapping. Values are shared;
// they are immutable.
func (e *Environment) Clone() *Environment {
	store := make(map[string]Object, len(e.store))
	for k, v := range e.store {
		store[k] = v
	}
	return &Environment{store: store}
}

func (e *Environment) Len() int {
	return len(e.store)
}

// Names returns the bound names in sorted order.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.store))
	for name := range e.store {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
