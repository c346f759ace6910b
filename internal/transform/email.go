package transform

import (
	"context"
	"fmt"
	"math/rand"
)

const maxEmailLocalLen = 16

var emailDomains = []string{"example.com", "example.org", "example.net"}

// emailTransformer implements "email": a syntactically valid email of
// bounded length.
type emailTransformer struct{}

func (emailTransformer) Name() string { return "email" }

func (emailTransformer) Transform(_ context.Context, v Value) (Value, error) {
	if v.Kind != KindString {
		return v, nil
	}
	localLen := 6 + rand.Intn(6)
	if localLen > maxEmailLocalLen {
		localLen = maxEmailLocalLen
	}
	local := randomLowerAlnum(localLen)
	domain := emailDomains[rand.Intn(len(emailDomains))]
	return Value{Kind: KindString, Unquoted: fmt.Sprintf("%s@%s", local, domain)}, nil
}

func randomLowerAlnum(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}
