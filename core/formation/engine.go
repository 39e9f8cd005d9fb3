package formation

import (
	"errors"
	"fmt"

	"github.com/FocuswithJustin/formations/core/lexicon"
)

// DefaultMaxLength is the default cap on base word length. Enumeration is
// exponential in word length.
const DefaultMaxLength = 16

// ErrTooLong is returned by Decompose for words longer than the engine's cap.
var ErrTooLong = errors.New("word exceeds decomposition length cap")

// Lexicon is the read-only view of the word registry the engine resolves
// candidate blocks against. *lexicon.Snapshot implements it.
type Lexicon interface {
	Lookup(letters string) (lexicon.WordID, bool)
	Alphabet() *lexicon.Alphabet
}

// Engine decomposes words against a closed lexicon. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	lex       Lexicon
	maxLength int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxLength sets the longest word the engine will enumerate. Zero or
// negative disables the cap.
func WithMaxLength(n int) Option {
	return func(e *Engine) {
		e.maxLength = n
	}
}

// NewEngine creates an engine over lex. The lexicon must be fully populated
// and must not change while the engine is in use.
func NewEngine(lex Lexicon, opts ...Option) *Engine {
	e := &Engine{lex: lex, maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decompose returns every formation of w, numbered from 1 in enumeration
// order. For each composition the linear test runs first; three-block
// compositions are then also tested as nested formations.
//
// Words of zero or one letter, and words with letters outside the alphabet,
// have no formations. A word longer than the length cap yields ErrTooLong.
func (e *Engine) Decompose(w lexicon.Word) ([]Formation, error) {
	letters := []rune(w.Letters)
	n := len(letters)
	if n <= 1 {
		return nil, nil
	}
	if e.maxLength > 0 && n > e.maxLength {
		return nil, fmt.Errorf("%q has %d letters, cap is %d: %w", w.Letters, n, e.maxLength, ErrTooLong)
	}
	if e.lex.Alphabet().Validate(w.Letters) != nil {
		return nil, nil
	}

	var out []Formation
	emit := func(segs []Segment) {
		out = append(out, Formation{Base: w.ID, Number: len(out) + 1, Segments: segs})
	}

	for cuts := range Compositions(n) {
		if segs, ok := e.linear(letters, cuts); ok {
			emit(segs)
		}
		if len(cuts) == 2 {
			if segs, ok := e.nested(letters, cuts[0], cuts[1]); ok {
				emit(segs)
			}
		}
	}
	return out, nil
}

// linear resolves every block of the composition, or reports false on the
// first block that is not a known word.
func (e *Engine) linear(letters []rune, cuts []int) ([]Segment, bool) {
	segs := make([]Segment, 0, len(cuts)+1)
	start := 0
	for i := 0; i <= len(cuts); i++ {
		end := len(letters)
		if i < len(cuts) {
			end = cuts[i]
		}
		id, ok := e.lex.Lookup(string(letters[start:end]))
		if !ok {
			return nil, false
		}
		segs = append(segs, Segment{Position: start, WordID: id})
		start = end
	}
	return segs, true
}

// nested tests the three-block composition first|middle|last as the outer
// word first+last with middle infixed at len(first).
func (e *Engine) nested(letters []rune, cut1, cut2 int) ([]Segment, bool) {
	outer := string(letters[:cut1]) + string(letters[cut2:])
	outerID, ok := e.lex.Lookup(outer)
	if !ok {
		return nil, false
	}
	innerID, ok := e.lex.Lookup(string(letters[cut1:cut2]))
	if !ok {
		return nil, false
	}
	return []Segment{
		{Position: 0, WordID: outerID},
		{Position: cut1, Inner: true, WordID: innerID},
	}, true
}
