package rank

import (
	"math/rand/v2"
	"sort"
)

// Sample returns n items chosen uniformly at random, keeping their input
// order. The same seed always yields the same subset. When n is at least
// len(items) a copy of all items is returned.
func Sample[T any](items []T, n int, seed uint64) []T {
	if n <= 0 {
		return nil
	}
	if n >= len(items) {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}

	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	idx := r.Perm(len(items))[:n]
	sort.Ints(idx)

	out := make([]T, n)
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}
