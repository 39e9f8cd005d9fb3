// Package render rebuilds the annotated display string of stored formations.
//
// Outer segments are joined with '-' in position order. The inner segment of
// a nested formation is spliced, wrapped in parentheses, into the text already
// built at its stored offset, so the formation A|B|C stored as outer "AC" with
// inner "B" at offset 1 renders as "A(B)C".
package render

import (
	"context"
	"fmt"
	"slices"

	"github.com/FocuswithJustin/formations/core/cache"
	"github.com/FocuswithJustin/formations/core/errors"
	"github.com/FocuswithJustin/formations/core/formation"
)

// Separator joins the outer segments of a linear formation.
const Separator = '-'

// Display renders one stored formation of word.
func Display(word string, f formation.Resolved) (string, error) {
	segs := slices.Clone(f.Segments)
	formation.SortSegments(segs)

	var built []rune
	outer := 0
	spliced := false
	for _, s := range segs {
		if !s.Inner {
			if outer > 0 {
				built = append(built, Separator)
			}
			built = append(built, []rune(s.Letters)...)
			outer++
			continue
		}

		corrupt := func(reason string) error {
			return &errors.CorruptRenderError{
				Word:            word,
				FormationNumber: f.Number,
				Position:        s.Position,
				Reason:          reason,
			}
		}
		switch {
		case spliced:
			return "", corrupt("more than one inner segment")
		case len(built) == 0:
			return "", corrupt("inner segment precedes any outer text")
		case s.Position <= 0 || s.Position >= len(built):
			return "", corrupt(fmt.Sprintf("offset outside outer text of %d letters", len(built)))
		}
		inner := make([]rune, 0, len([]rune(s.Letters))+2)
		inner = append(inner, '(')
		inner = append(inner, []rune(s.Letters)...)
		inner = append(inner, ')')
		built = slices.Insert(built, s.Position, inner...)
		spliced = true
	}
	return string(built), nil
}

// Rendered is one display string of a word, in formation-number order.
type Rendered struct {
	Number  int    `json:"number"`
	Display string `json:"display"`
	Nested  bool   `json:"nested"`
}

// Source supplies the stored formations of a word, ordered by formation
// number with segments ordered by position. An unknown word yields no
// formations and no error.
type Source interface {
	FormationsOf(ctx context.Context, word string) ([]formation.Resolved, error)
}

// Service renders words read from a Source. It is stateless apart from an
// optional result cache and is safe for concurrent use.
type Service struct {
	src   Source
	cache cache.Cache[string, []Rendered]
}

// Option configures a Service.
type Option func(*Service)

// WithCache memoizes rendered results. Only valid while the source is not
// being written to.
func WithCache(c cache.Cache[string, []Rendered]) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// NewService creates a render service over src.
func NewService(src Source, opts ...Option) *Service {
	s := &Service{src: src}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ordered renders every stored formation of word, ascending by formation
// number. A word with no stored formations yields an empty slice.
func (s *Service) Ordered(ctx context.Context, word string) ([]Rendered, error) {
	if s.cache != nil {
		if out, ok := s.cache.Get(word); ok {
			return out, nil
		}
	}

	stored, err := s.src.FormationsOf(ctx, word)
	if err != nil {
		return nil, fmt.Errorf("load formations of %q: %w", word, err)
	}
	out := make([]Rendered, 0, len(stored))
	for _, f := range stored {
		text, err := Display(word, f)
		if err != nil {
			return nil, err
		}
		out = append(out, Rendered{Number: f.Number, Display: text, Nested: f.Nested()})
	}
	slices.SortFunc(out, func(a, b Rendered) int { return a.Number - b.Number })

	if s.cache != nil {
		s.cache.Put(word, out)
	}
	return out, nil
}

// Render maps each formation number of word to its display string.
func (s *Service) Render(ctx context.Context, word string) (map[int]string, error) {
	ordered, err := s.Ordered(ctx, word)
	if err != nil {
		return nil, err
	}
	out := make(map[int]string, len(ordered))
	for _, r := range ordered {
		out[r.Number] = r.Display
	}
	return out, nil
}
