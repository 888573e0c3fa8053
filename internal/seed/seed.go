// Package seed loads initial state values from a YAML file and applies them
// through the store's public write path.
//
// A seed file maps paths to values:
//
//	values:
//	  ui.theme: dark
//	  ui.chart.zoom: 1.5
//	  files.recent: []
package seed

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/fitstate/internal/foundation/errors"
	"git.home.luguber.info/inful/fitstate/internal/state"
)

// Entry is one seeded value.
type Entry struct {
	Path  state.Path
	Value any
}

// Seed is a validated seed file with entries sorted by path.
type Seed struct {
	Entries []Entry
}

type fileFormat struct {
	Values map[string]any `yaml:"values"`
}

// Target is the part of a store a seed is applied to.
type Target interface {
	Get(p state.Path) (any, bool)
	Set(ctx context.Context, p state.Path, value any) error
}

// Load reads and validates the seed file at path.
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileSystemError("failed to read seed file").
			WithCause(err).
			WithContext("file", path).
			Build()
	}
	s, err := Parse(data)
	if err != nil {
		if c, ok := errors.AsClassified(err); ok {
			return nil, c.WithContext("file", path)
		}
		return nil, err
	}
	return s, nil
}

// Parse validates seed YAML. Every key must be a valid state path.
func Parse(data []byte) (*Seed, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.ValidationError("invalid seed file").WithCause(err).Build()
	}

	var invalid []string
	s := &Seed{Entries: make([]Entry, 0, len(f.Values))}
	for raw, v := range f.Values {
		p, err := state.ParsePath(raw)
		if err != nil {
			invalid = append(invalid, fmt.Sprintf("%q", raw))
			continue
		}
		s.Entries = append(s.Entries, Entry{Path: p, Value: v})
	}
	if len(invalid) > 0 {
		slices.Sort(invalid)
		return nil, errors.ValidationError("invalid seed paths").
			WithContext("paths", strings.Join(invalid, ", ")).
			Build()
	}

	slices.SortFunc(s.Entries, func(a, b Entry) int {
		return strings.Compare(a.Path.String(), b.Path.String())
	})
	return s, nil
}

// Apply writes every entry whose value differs from the target's current value,
// in path order, and returns how many were written. A listener failure does not
// stop the remaining writes; the first one is returned once all entries are applied.
func Apply(ctx context.Context, target Target, s *Seed) (int, error) {
	if s == nil {
		return 0, nil
	}
	applied := 0
	var listenerErr error
	for _, e := range s.Entries {
		if current, ok := target.Get(e.Path); ok && reflect.DeepEqual(current, e.Value) {
			continue
		}
		if err := target.Set(ctx, e.Path, e.Value); err != nil {
			if !errors.HasCategory(err, errors.CategoryListener) {
				return applied, err
			}
			if listenerErr == nil {
				listenerErr = err
			}
		}
		applied++
	}
	return applied, listenerErr
}
