// Package corpus reads the source text and reduces every word to letters of
// the consonant alphabet.
//
// Books are OSIS XML files in the Westminster Leningrad Codex layout used by
// the Open Scriptures Hebrew Bible: div[@type='book']/chapter/verse/w, with a
// Strong's lemma on each w. Points, accents, maqaf and morpheme separators
// are dropped by the normalizer.
package corpus

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/FocuswithJustin/formations/core/lexicon"
)

// Normalizer strips everything but alphabet letters from words.
type Normalizer struct {
	alphabet *lexicon.Alphabet
}

// NewNormalizer creates a normalizer for alphabet.
func NewNormalizer(alphabet *lexicon.Alphabet) *Normalizer {
	return &Normalizer{alphabet: alphabet}
}

// Normalize decomposes s (NFD) so that precomposed letters such as U+FB2A
// shin-with-shin-dot split into base letter and mark, then keeps only
// alphabet letters. The result may be empty.
func (n *Normalizer) Normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if n.alphabet.Contains(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// StrongKey derives the Strong's lookup key from an OSHB lemma attribute:
// spaces are removed and the last '/'-separated part is kept, so prefixed
// forms like "b/7225" key on "7225" and "1254 a" on "1254a".
func StrongKey(lemma string) string {
	lemma = strings.ReplaceAll(lemma, " ", "")
	if i := strings.LastIndexByte(lemma, '/'); i >= 0 {
		lemma = lemma[i+1:]
	}
	return lemma
}
