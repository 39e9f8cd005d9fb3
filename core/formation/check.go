package formation

import (
	"errors"
	"fmt"
	"slices"

	"github.com/FocuswithJustin/formations/core/lexicon"
)

// ErrMalformed is returned by Check for a formation that does not reproduce
// its base word.
var ErrMalformed = errors.New("malformed formation")

// Check verifies that f is a faithful decomposition of base. A linear
// formation must cover base exactly with at least two segments, each starting
// where the previous one ended. A nested formation must have exactly one
// outer segment at offset 0 and one inner segment whose letters, spliced into
// the outer word at its offset, give back base.
//
// letters resolves sub-word ids; an unresolvable id fails the check.
func Check(base string, f Formation, letters func(lexicon.WordID) (string, bool)) error {
	segs := slices.Clone(f.Segments)
	SortSegments(segs)

	resolve := func(s Segment) ([]rune, error) {
		l, ok := letters(s.WordID)
		if !ok {
			return nil, fmt.Errorf("%w: formation %d: unknown sub-word %d", ErrMalformed, f.Number, s.WordID)
		}
		return []rune(l), nil
	}

	if !f.Nested() {
		if len(segs) < 2 {
			return fmt.Errorf("%w: formation %d: linear formation needs 2 or more segments, has %d",
				ErrMalformed, f.Number, len(segs))
		}
		var built []rune
		for _, s := range segs {
			if s.Position != len(built) {
				return fmt.Errorf("%w: formation %d: segment at %d, expected %d",
					ErrMalformed, f.Number, s.Position, len(built))
			}
			l, err := resolve(s)
			if err != nil {
				return err
			}
			built = append(built, l...)
		}
		if string(built) != base {
			return fmt.Errorf("%w: formation %d: segments spell %q, not %q",
				ErrMalformed, f.Number, string(built), base)
		}
		return nil
	}

	if len(segs) != 2 || segs[0].Inner || !segs[1].Inner || segs[0].Position != 0 {
		return fmt.Errorf("%w: formation %d: nested formation must be one outer segment at 0 and one inner segment",
			ErrMalformed, f.Number)
	}
	outer, err := resolve(segs[0])
	if err != nil {
		return err
	}
	inner, err := resolve(segs[1])
	if err != nil {
		return err
	}
	pos := segs[1].Position
	if pos <= 0 || pos >= len(outer) {
		return fmt.Errorf("%w: formation %d: inner offset %d outside outer word of %d letters",
			ErrMalformed, f.Number, pos, len(outer))
	}
	spliced := slices.Concat(outer[:pos], inner, outer[pos:])
	if string(spliced) != base {
		return fmt.Errorf("%w: formation %d: splice spells %q, not %q",
			ErrMalformed, f.Number, string(spliced), base)
	}
	return nil
}
