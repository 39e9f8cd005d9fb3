package formation

import "iter"

// Compositions enumerates every way to cut a word of n letters into k >= 2
// contiguous non-empty blocks. Each composition is yielded as its ascending
// cut offsets, drawn from the n-1 internal gaps 1..n-1.
//
// The order is fixed: compositions with fewer cuts come first, and
// compositions with the same number of cuts follow in lexicographic order of
// their cut offsets. Formation numbering depends on this order.
//
// The yielded slice is reused between iterations; callers that retain it must
// copy it. For n <= 1 nothing is yielded.
func Compositions(n int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		gaps := n - 1
		for k := 1; k <= gaps; k++ {
			cuts := make([]int, k)
			for i := range cuts {
				cuts[i] = i + 1
			}
			for {
				if !yield(cuts) {
					return
				}
				// Advance to the next k-combination of 1..gaps.
				i := k - 1
				for i >= 0 && cuts[i] == gaps-(k-1-i) {
					i--
				}
				if i < 0 {
					break
				}
				cuts[i]++
				for j := i + 1; j < k; j++ {
					cuts[j] = cuts[j-1] + 1
				}
			}
		}
	}
}

// CompositionCount returns the number of compositions Compositions(n) yields:
// 2^(n-1) - 1, or 0 for n <= 1.
func CompositionCount(n int) int {
	if n <= 1 {
		return 0
	}
	return 1<<(n-1) - 1
}
