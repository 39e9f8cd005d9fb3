package lexicon

import (
	"fmt"

	"github.com/FocuswithJustin/formations/core/errors"
)

// Hebrew is the consonant alphabet of the Masoretic text, final forms included,
// in the rank order used for gematria.
const Hebrew = "אבגדהוזחטיךכלםמןנסעףפץצקרשת"

// Alphabet is a fixed, ordered set of letters. A letter's rank is its 1-based
// position in the alphabet.
type Alphabet struct {
	letters []rune
	rank    map[rune]int
}

// NewAlphabet builds an Alphabet from letters in rank order.
func NewAlphabet(letters string) (*Alphabet, error) {
	if letters == "" {
		return nil, errors.NewValidation("alphabet", "must not be empty")
	}
	a := &Alphabet{rank: make(map[rune]int)}
	for _, r := range letters {
		if _, dup := a.rank[r]; dup {
			return nil, errors.NewValidation("alphabet", fmt.Sprintf("duplicate letter %q", r))
		}
		a.letters = append(a.letters, r)
		a.rank[r] = len(a.letters)
	}
	return a, nil
}

// MustAlphabet is like NewAlphabet but panics on error. Intended for
// package-level values and tests.
func MustAlphabet(letters string) *Alphabet {
	a, err := NewAlphabet(letters)
	if err != nil {
		panic(err)
	}
	return a
}

// Rank returns the 1-based rank of r, or false if r is not a letter.
func (a *Alphabet) Rank(r rune) (int, bool) {
	n, ok := a.rank[r]
	return n, ok
}

// Contains reports whether r is a letter of the alphabet.
func (a *Alphabet) Contains(r rune) bool {
	_, ok := a.rank[r]
	return ok
}

// Size returns the number of letters.
func (a *Alphabet) Size() int {
	return len(a.letters)
}

// Letters returns the letters in rank order.
func (a *Alphabet) Letters() []rune {
	out := make([]rune, len(a.letters))
	copy(out, a.letters)
	return out
}

func (a *Alphabet) String() string {
	return string(a.letters)
}

// Validate returns a ValidationError if s contains a rune outside the alphabet.
// The empty string is valid.
func (a *Alphabet) Validate(s string) error {
	for i, r := range []rune(s) {
		if !a.Contains(r) {
			return &errors.ValidationError{
				Field:   "letters",
				Value:   s,
				Message: fmt.Sprintf("rune %q at offset %d is not in the alphabet", r, i),
			}
		}
	}
	return nil
}

// Gematria sums the ranks of the letters of s and reduces the total modulo 9
// and modulo 7. A zero remainder is reported as 9 (resp. 7), so neither code
// is ever 0. Runes outside the alphabet contribute nothing.
func (a *Alphabet) Gematria(s string) (mod9, mod7 int) {
	total := 0
	for _, r := range s {
		total += a.rank[r]
	}
	mod9 = total % 9
	if mod9 == 0 {
		mod9 = 9
	}
	mod7 = total % 7
	if mod7 == 0 {
		mod7 = 7
	}
	return mod9, mod7
}
