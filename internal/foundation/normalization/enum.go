// Package normalization maps loosely written configuration strings onto typed enums.
package normalization

import (
	"fmt"
	"slices"
	"strings"
)

// Enum resolves raw strings to values of T after trimming and lower-casing them.
type Enum[T comparable] struct {
	name   string
	values map[string]T
	keys   []string
	def    T
}

// NewEnum builds an Enum named name (used in error messages). def is returned by Normalize
// for empty or unknown input.
func NewEnum[T comparable](name string, values map[string]T, def T) *Enum[T] {
	e := &Enum[T]{name: name, values: make(map[string]T, len(values)), def: def}
	for k, v := range values {
		key := clean(k)
		e.values[key] = v
		e.keys = append(e.keys, key)
	}
	slices.Sort(e.keys)
	return e
}

// Normalize returns the value for raw, or the default.
func (e *Enum[T]) Normalize(raw string) T {
	if v, ok := e.values[clean(raw)]; ok {
		return v
	}
	return e.def
}

// Parse returns the value for raw. Empty input yields the default; unknown input is an error.
func (e *Enum[T]) Parse(raw string) (T, error) {
	key := clean(raw)
	if key == "" {
		return e.def, nil
	}
	if v, ok := e.values[key]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q, valid options: %s", e.name, raw, strings.Join(e.keys, ", "))
}

// Valid reports whether v is one of the registered values.
func (e *Enum[T]) Valid(v T) bool {
	for _, known := range e.values {
		if known == v {
			return true
		}
	}
	return false
}

// Keys returns the accepted spellings in sorted order.
func (e *Enum[T]) Keys() []string {
	return slices.Clone(e.keys)
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
