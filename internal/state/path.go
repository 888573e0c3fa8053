package state

import (
	"strings"
	"unicode"
)

// Separator divides a Path into segments.
const Separator = "."

// Path is a validated, dot-delimited state key such as "ui.theme" or "test.counter".
// Paths are compared and stored as whole strings; segments carry no merge semantics.
type Path struct {
	s string
}

// ParsePath validates raw and returns it as a Path. A valid path is non-empty and
// every segment between separators is non-empty and free of whitespace.
func ParsePath(raw string) (Path, error) {
	if raw == "" {
		return Path{}, ErrInvalidPath.WithContext("reason", "empty")
	}
	for i, seg := range strings.Split(raw, Separator) {
		if seg == "" {
			return Path{}, ErrInvalidPath.
				WithContext("path", raw).
				WithContext("reason", "empty segment").
				WithContext("segment", i)
		}
		if strings.IndexFunc(seg, unicode.IsSpace) >= 0 {
			return Path{}, ErrInvalidPath.
				WithContext("path", raw).
				WithContext("reason", "whitespace in segment").
				WithContext("segment", i)
		}
	}
	return Path{s: raw}, nil
}

// MustPath is ParsePath for literals; it panics on invalid input.
func MustPath(raw string) Path {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string { return p.s }

// IsZero reports whether p is the zero Path, which no store operation accepts.
func (p Path) IsZero() bool { return p.s == "" }

// Segments returns the separator-delimited parts of p.
func (p Path) Segments() []string {
	if p.s == "" {
		return nil
	}
	return strings.Split(p.s, Separator)
}

// Parent returns the path without its last segment. ok is false for single-segment paths.
func (p Path) Parent() (Path, bool) {
	i := strings.LastIndex(p.s, Separator)
	if i <= 0 {
		return Path{}, false
	}
	return Path{s: p.s[:i]}, true
}

// MarshalText encodes the path as its string form.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.s), nil
}

// UnmarshalText validates and decodes a path.
func (p *Path) UnmarshalText(b []byte) error {
	parsed, err := ParsePath(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
