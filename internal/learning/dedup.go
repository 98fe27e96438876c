package learning

import (
	"cmp"
	"slices"
)

// Dedup keeps the most recent swap per (customer term, matched product code).
// Ties on CreatedAt are broken by offer number so the result does not depend
// on input order. The output is sorted by key.
func Dedup(swaps []ProductSwap) []ProductSwap {
	latest := make(map[string]ProductSwap, len(swaps))
	for _, s := range swaps {
		k := s.Key()
		if cur, ok := latest[k]; !ok || newer(s, cur) {
			latest[k] = s
		}
	}

	out := make([]ProductSwap, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b ProductSwap) int { return cmp.Compare(a.Key(), b.Key()) })
	return out
}

func newer(a, b ProductSwap) bool {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c > 0
	}
	return a.OfferNumber > b.OfferNumber
}
