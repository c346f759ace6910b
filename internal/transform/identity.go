package transform

import "context"

// identityTransformer implements the "transient" id: pass the value
// through unchanged.
type identityTransformer struct{}

func (identityTransformer) Name() string { return "transient" }

func (identityTransformer) Transform(_ context.Context, v Value) (Value, error) {
	return v, nil
}
