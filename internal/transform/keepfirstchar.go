package transform

import "context"

// keepFirstCharTransformer implements "keep-first-char": truncate strings
// to their first character, numbers to their first digit.
type keepFirstCharTransformer struct{}

func (keepFirstCharTransformer) Name() string { return "keep-first-char" }

func (keepFirstCharTransformer) Transform(_ context.Context, v Value) (Value, error) {
	switch v.Kind {
	case KindString:
		if v.Unquoted == "" {
			return v, nil
		}
		r := []rune(v.Unquoted)
		return Value{Kind: KindString, Unquoted: string(r[0])}, nil
	case KindNumber:
		for _, c := range v.Raw {
			if c >= '0' && c <= '9' {
				return Value{Kind: KindNumber, Raw: string(c)}, nil
			}
		}
		return v, nil
	default:
		return v, nil
	}
}
