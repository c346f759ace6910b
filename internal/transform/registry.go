package transform

import (
	"context"
	"fmt"
	"sort"
)

// Transformer is a pure function from an addressed value to its
// replacement, per spec.md §4.2. NULL values always pass through
// unchanged: every built-in below is expected to respect that convention
// at the call site (Apply in this package enforces it).
type Transformer interface {
	Name() string
	Transform(ctx context.Context, v Value) (Value, error)
}

// Options carries the per-column `transformer_options` map from config.
type Options map[string]any

// Factory builds a Transformer from its configured Options.
type Factory func(opts Options) (Transformer, error)

var registry = map[string]Factory{
	"transient":       func(Options) (Transformer, error) { return identityTransformer{}, nil },
	"random":          func(Options) (Transformer, error) { return randomTransformer{}, nil },
	"first-name":      newFirstName,
	"email":           func(Options) (Transformer, error) { return emailTransformer{}, nil },
	"phone-number":    func(Options) (Transformer, error) { return phoneTransformer{}, nil },
	"credit-card":     func(Options) (Transformer, error) { return creditCardTransformer{}, nil },
	"keep-first-char": func(Options) (Transformer, error) { return keepFirstCharTransformer{}, nil },
	"redacted":        newRedacted,
	"random-date":     newRandomDate,
	"custom-wasm":     newCustom,
}

// New constructs the named transformer with the given options.
// spec.md §7 ("Configuration: unknown transformer") — an unregistered name
// is a configuration error.
func New(name string, opts Options) (Transformer, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown transformer %q", name)
	}
	return factory(opts)
}

// List returns every registered transformer id in sorted order, backing
// the `transformer list` command surface (spec.md §6).
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply runs t over v, passing NULL through untouched regardless of what
// the transformer itself would otherwise produce — length preservation and
// redaction invariants are defined over non-null values only.
func Apply(ctx context.Context, t Transformer, v Value) (Value, error) {
	if v.Kind == KindNull {
		return v, nil
	}
	return t.Transform(ctx, v)
}
