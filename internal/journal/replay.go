package journal

import (
	"encoding/json"
)

// Replay folds records in order into the tree they produced: set records assign
// their value, reset records clear everything before them.
func Replay(records []Record) (map[string]any, error) {
	tree := make(map[string]any)
	for _, rec := range records {
		switch rec.Kind {
		case KindReset:
			clear(tree)
		case KindSet:
			var v any
			if len(rec.Value) > 0 {
				if err := json.Unmarshal(rec.Value, &v); err != nil {
					return nil, ErrDecodeFailed.WithCause(err).
						WithContext("path", rec.Path).
						WithContext("id", rec.ID)
				}
			}
			tree[rec.Path] = v
		}
	}
	return tree, nil
}
