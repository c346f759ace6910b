package transform

import (
	"context"
	"fmt"
	"math/rand"
)

// firstNames is a small built-in name dictionary; spec.md §4.2 only
// requires "draw from a built-in name dictionary", not a specific corpus.
var firstNames = []string{
	"Alex", "Jordan", "Taylor", "Morgan", "Casey", "Riley", "Avery", "Quinn",
	"Peyton", "Rowan", "Dakota", "Skyler", "Emerson", "Finley", "Hayden",
	"Jules", "Kai", "Logan", "Micah", "Nico", "Oakley", "Parker", "Reese",
	"Sage", "Tatum", "Blair", "Charlie", "Drew", "Ellis", "Frankie",
}

type firstNameTransformer struct {
	rng *rand.Rand
}

// newFirstName builds a first-name transformer. An optional integer
// "seed" option makes draws reproducible per configured column, per
// spec.md §4.2 ("seeded deterministically per column if configured").
func newFirstName(opts Options) (Transformer, error) {
	rng := rand.New(rand.NewSource(globalSeed()))
	if raw, ok := opts["seed"]; ok {
		seed, err := toInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("first-name: invalid seed option: %w", err)
		}
		rng = rand.New(rand.NewSource(seed))
	}
	return &firstNameTransformer{rng: rng}, nil
}

func (firstNameTransformer) Name() string { return "first-name" }

func (t *firstNameTransformer) Transform(_ context.Context, v Value) (Value, error) {
	if v.Kind != KindString {
		return v, nil
	}
	name := firstNames[t.rng.Intn(len(firstNames))]
	return Value{Kind: KindString, Unquoted: name}, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

// globalSeed is a process-wide fallback seed for transformers invoked
// without an explicit seed option; it varies per process so two unrelated
// unseeded columns don't draw identical sequences by coincidence.
func globalSeed() int64 {
	return rand.Int63()
}
