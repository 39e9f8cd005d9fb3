package corpus

import (
	"iter"

	"github.com/FocuswithJustin/formations/core/lexicon"
)

// Seed is one generated letter sequence. Length and Index (1-based within
// its length) locate it in the seed book as chapter and verse.
type Seed struct {
	Length  int
	Index   int
	Letters string
}

// Permutations yields every sequence of 1..maxLen alphabet letters, shorter
// sequences first and each length in alphabet-rank lexicographic order.
// With the 27-letter Hebrew alphabet and maxLen 3 that is 20439 sequences.
func Permutations(alphabet *lexicon.Alphabet, maxLen int) iter.Seq[Seed] {
	letters := alphabet.Letters()
	return func(yield func(Seed) bool) {
		if len(letters) == 0 {
			return
		}
		for length := 1; length <= maxLen; length++ {
			digits := make([]int, length)
			buf := make([]rune, length)
			for index := 1; ; index++ {
				for i, d := range digits {
					buf[i] = letters[d]
				}
				if !yield(Seed{Length: length, Index: index, Letters: string(buf)}) {
					return
				}
				// odometer increment, last position fastest
				i := length - 1
				for ; i >= 0; i-- {
					digits[i]++
					if digits[i] < len(letters) {
						break
					}
					digits[i] = 0
				}
				if i < 0 {
					break
				}
			}
		}
	}
}
