package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomPreservesLength(t *testing.T) {
	tr := randomTransformer{}

	in := Value{Kind: KindString, Unquoted: "hello world"}
	out, err := tr.Transform(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, out.Unquoted, len(in.Unquoted))

	num := Value{Kind: KindNumber, Raw: "-48213"}
	out, err = tr.Transform(context.Background(), num)
	require.NoError(t, err)
	assert.Equal(t, digitCount(num.Raw), digitCount(out.Raw))
	assert.True(t, out.Raw[0] == '-')
}

func TestRedactedInvariants(t *testing.T) {
	tr, err := newRedacted(Options{"width": 19})
	require.NoError(t, err)

	in := Value{Kind: KindString, Unquoted: "4111111111111111"}
	out, err := tr.Transform(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 19, len(out.Unquoted))
	assert.Equal(t, "411", out.Unquoted[:3])
	for _, c := range out.Unquoted[3:] {
		assert.Equal(t, byte('*'), byte(c))
	}
}

func TestRedactedCustomKeepAndFill(t *testing.T) {
	tr, err := newRedacted(Options{"keep": 1, "character": "#"})
	require.NoError(t, err)

	out, err := tr.Transform(context.Background(), Value{Kind: KindString, Unquoted: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "s#####", out.Unquoted)
}

func TestCreditCardProducesLuhnValidNumber(t *testing.T) {
	tr := creditCardTransformer{}
	for i := 0; i < 20; i++ {
		out, err := tr.Transform(context.Background(), Value{Kind: KindString, Unquoted: "4111111111111111"})
		require.NoError(t, err)
		require.Len(t, out.Unquoted, 16)
		assert.True(t, LuhnValid(out.Unquoted), "generated number %q failed Luhn check", out.Unquoted)
	}
}

func TestKeepFirstCharString(t *testing.T) {
	tr := keepFirstCharTransformer{}
	out, err := tr.Transform(context.Background(), Value{Kind: KindString, Unquoted: "Jonathan"})
	require.NoError(t, err)
	assert.Equal(t, "J", out.Unquoted)
}

func TestKeepFirstCharNumber(t *testing.T) {
	tr := keepFirstCharTransformer{}
	out, err := tr.Transform(context.Background(), Value{Kind: KindNumber, Raw: "-48213"})
	require.NoError(t, err)
	assert.Equal(t, "4", out.Raw)
}

func TestIdentityPassesValueThrough(t *testing.T) {
	tr := identityTransformer{}
	v := Value{Kind: KindString, Unquoted: "unchanged"}
	out, err := tr.Transform(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, v, out)
}

func TestApplyPassesNullThroughRegardlessOfTransformer(t *testing.T) {
	null := Value{Kind: KindNull, Raw: "NULL"}
	out, err := Apply(context.Background(), randomTransformer{}, null)
	require.NoError(t, err)
	assert.Equal(t, null, out)
}

func TestRegistryNewRejectsUnknownTransformer(t *testing.T) {
	_, err := New("does-not-exist", nil)
	require.Error(t, err)
}

func TestRegistryListIsSortedAndComplete(t *testing.T) {
	names := List()
	want := []string{
		"credit-card", "custom-wasm", "email", "first-name", "keep-first-char",
		"phone-number", "random", "random-date", "redacted", "transient",
	}
	assert.Equal(t, want, names)
}

func TestCustomTransformerRoundTripsThroughSubprocess(t *testing.T) {
	tr, err := newCustom(Options{"command": "cat"})
	require.NoError(t, err)
	defer tr.(*customTransformer).Close()

	out, err := tr.Transform(context.Background(), Value{Kind: KindString, Unquoted: "payload"})
	require.NoError(t, err)
	assert.Equal(t, "payload", out.Unquoted)
}

func TestMongoAddressWildcardDetection(t *testing.T) {
	addr := MongoAddress("shop", "orders", "items.$[].sku")
	assert.True(t, addr.HasArrayWildcard())
	assert.Equal(t, "orders.items.$[].sku", addr.String())

	flat := SQLAddress("shop", "customers", "email")
	assert.False(t, flat.HasArrayWildcard())
	assert.Equal(t, "shop.customers.email", flat.String())
}

func TestAddressMatchesRule(t *testing.T) {
	addr := SQLAddress("shop", "customers", "email")
	assert.True(t, addr.Matches(SQLAddress("", "customers", "email")))
	assert.False(t, addr.Matches(SQLAddress("", "customers", "phone")))
}
