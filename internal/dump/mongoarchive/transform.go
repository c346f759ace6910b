package mongoarchive

import (
	"fmt"

	"gopkg.in/mgo.v2/bson"
)

// RewriteDocument decodes raw, applies fn to the field(s) named by the
// dotted path (with "$[]" segments fanning out over arrays, matching
// transform.MongoAddress), and re-marshals the result. A path that
// doesn't exist in this document is a no-op: not every document in a
// collection need have every transformed field.
func RewriteDocument(raw []byte, path []string, fn func(any) (any, error)) ([]byte, error) {
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("mongoarchive: decode document for transform: %w", err)
	}
	rewritten, err := applyPath(bson.M(doc), path, fn)
	if err != nil {
		return nil, fmt.Errorf("mongoarchive: apply transform: %w", err)
	}
	out, err := bson.Marshal(rewritten)
	if err != nil {
		return nil, fmt.Errorf("mongoarchive: re-marshal transformed document: %w", err)
	}
	return out, nil
}

func applyPath(v any, path []string, fn func(any) (any, error)) (any, error) {
	if len(path) == 0 {
		return fn(v)
	}

	seg := path[0]
	if seg == "$[]" {
		arr, ok := v.([]any)
		if !ok {
			return v, nil
		}
		out := make([]any, len(arr))
		for i, elem := range arr {
			rewritten, err := applyPath(elem, path[1:], fn)
			if err != nil {
				return nil, err
			}
			out[i] = rewritten
		}
		return out, nil
	}

	m, ok := asMap(v)
	if !ok {
		return v, nil
	}
	child, exists := m[seg]
	if !exists {
		return v, nil
	}
	rewritten, err := applyPath(child, path[1:], fn)
	if err != nil {
		return nil, err
	}
	m[seg] = rewritten
	return m, nil
}

func asMap(v any) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]any:
		return bson.M(m), true
	default:
		return nil, false
	}
}
