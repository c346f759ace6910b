package transform

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// randomDateTransformer implements "random-date": a random date within a
// configurable range, preserving whether the original literal was a plain
// date or a timestamp (spec.md §4.2).
type randomDateTransformer struct {
	from time.Time
	to   time.Time
}

func newRandomDate(opts Options) (Transformer, error) {
	t := randomDateTransformer{
		from: time.Now().AddDate(-10, 0, 0),
		to:   time.Now(),
	}
	if raw, ok := opts["from"]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("random-date: invalid from option %v", raw)
		}
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("random-date: invalid from date %q: %w", s, err)
		}
		t.from = parsed
	}
	if raw, ok := opts["to"]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("random-date: invalid to option %v", raw)
		}
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("random-date: invalid to date %q: %w", s, err)
		}
		t.to = parsed
	}
	if t.to.Before(t.from) {
		return nil, fmt.Errorf("random-date: to (%s) is before from (%s)", t.to, t.from)
	}
	return &t, nil
}

func (randomDateTransformer) Name() string { return "random-date" }

func (t *randomDateTransformer) Transform(_ context.Context, v Value) (Value, error) {
	if v.Kind != KindString {
		return v, nil
	}
	isTimestamp := strings.Contains(v.Unquoted, " ") || strings.Contains(v.Unquoted, "T")

	span := t.to.Sub(t.from)
	offset := time.Duration(rand.Int63n(int64(span) + 1))
	drawn := t.from.Add(offset)

	if isTimestamp {
		return Value{Kind: KindString, Unquoted: drawn.Format(timestampLayout)}, nil
	}
	return Value{Kind: KindString, Unquoted: drawn.Format(dateLayout)}, nil
}
