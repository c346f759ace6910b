package subset

import (
	"math"
	"math/rand"
)

// Strategy selects which of n root-table rows seed the subset, returning
// distinct indices into the caller's ordered root-row slice. It mirrors the
// transform package's Factory-keyed registry: today RandomPercent is the
// only implementation, but new strategies slot in without touching the
// planner (spec.md §4.3: "strategy ∈ {RandomPercent(p)}").
type Strategy interface {
	Select(rng *rand.Rand, n int) []int
}

// RandomPercent samples uniformly without replacement at rate p, rounding
// the count up so the lower-bound testable property
// (|kept(T)| ≥ floor(|T|·p)) always holds even when p·n isn't an integer.
type RandomPercent float64

func (p RandomPercent) Select(rng *rand.Rand, n int) []int {
	if n <= 0 {
		return nil
	}
	k := int(math.Ceil(float64(p) * float64(n)))
	if k > n {
		k = n
	}
	if k < 0 {
		k = 0
	}
	perm := rng.Perm(n)
	return perm[:k]
}
