package transform

import (
	"context"
	"fmt"
	"strings"
)

const (
	defaultRedactKeep = 3
	defaultRedactFill = '*'
)

// redactedTransformer implements "redacted": keep the first Keep
// characters, replace the rest with Fill, and pad/extend to at least
// Width characters total (spec.md §8: "output length equals
// max(|input|, W)").
type redactedTransformer struct {
	keep  int
	fill  rune
	width int
}

func newRedacted(opts Options) (Transformer, error) {
	t := redactedTransformer{keep: defaultRedactKeep, fill: defaultRedactFill}
	if raw, ok := opts["character"]; ok {
		s, ok := raw.(string)
		if !ok || len(s) == 0 {
			return nil, fmt.Errorf("redacted: invalid character option %v", raw)
		}
		t.fill = []rune(s)[0]
	}
	if raw, ok := opts["width"]; ok {
		w, err := toInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("redacted: invalid width option: %w", err)
		}
		t.width = int(w)
	}
	if raw, ok := opts["keep"]; ok {
		k, err := toInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("redacted: invalid keep option: %w", err)
		}
		t.keep = int(k)
	}
	return &t, nil
}

func (redactedTransformer) Name() string { return "redacted" }

func (t *redactedTransformer) Transform(_ context.Context, v Value) (Value, error) {
	content := v.Raw
	if v.Kind == KindString {
		content = v.Unquoted
	}
	out := t.redact(content)
	if v.Kind == KindString {
		return Value{Kind: KindString, Unquoted: out}, nil
	}
	return Value{Kind: v.Kind, Raw: out}, nil
}

func (t *redactedTransformer) redact(content string) string {
	runes := []rune(content)
	total := len(runes)
	if t.width > total {
		total = t.width
	}
	keep := t.keep
	if keep > len(runes) {
		keep = len(runes)
	}
	if keep < 0 {
		keep = 0
	}

	var sb strings.Builder
	sb.Grow(total)
	for i := 0; i < keep; i++ {
		sb.WriteRune(runes[i])
	}
	for i := keep; i < total; i++ {
		sb.WriteRune(t.fill)
	}
	return sb.String()
}
