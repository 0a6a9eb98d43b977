package gen

import "cmp"

func Clamp[T cmp.Ordered](v, min, max T) T {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Span returns (min, max) of the values produced by f over items.
// Returns zero values when items is empty.
func Span[S any, T cmp.Ordered](items []S, f func(S) T) (lo, hi T) {
	for i, it := range items {
		v := f(it)
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	return
}
