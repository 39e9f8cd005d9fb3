// Package formation discovers word formations: the ways a word can be read as
// a concatenation of other known words (linear formations), or as a known
// word with another known word infixed into it (nested formations).
package formation

import (
	"cmp"
	"slices"

	"github.com/FocuswithJustin/formations/core/lexicon"
)

// Segment is one sub-word reference within a formation.
type Segment struct {
	// Position is the 0-based character offset within the base word.
	Position int `json:"position"`
	// Inner marks the infixed word of a nested formation.
	Inner bool `json:"inner"`
	// WordID identifies the sub-word.
	WordID lexicon.WordID `json:"word_id"`
}

// Formation is one decomposition of a base word.
type Formation struct {
	Base lexicon.WordID `json:"base"`
	// Number is 1-based and dense per base word, in discovery order.
	Number   int       `json:"number"`
	Segments []Segment `json:"segments"`
}

// Nested reports whether the formation has an inner segment.
func (f Formation) Nested() bool {
	for _, s := range f.Segments {
		if s.Inner {
			return true
		}
	}
	return false
}

// Resolved is a stored formation with the letters of each sub-word attached,
// as read back for rendering.
type Resolved struct {
	Number   int               `json:"number"`
	Segments []ResolvedSegment `json:"segments"`
}

// ResolvedSegment is a Segment together with its sub-word's letters.
type ResolvedSegment struct {
	Segment
	Letters string `json:"letters"`
}

// Nested reports whether the formation has an inner segment.
func (r Resolved) Nested() bool {
	for _, s := range r.Segments {
		if s.Inner {
			return true
		}
	}
	return false
}

// SortSegments orders segments by position.
func SortSegments[S ~[]E, E interface{ position() int }](segs S) {
	slices.SortStableFunc(segs, func(a, b E) int {
		return cmp.Compare(a.position(), b.position())
	})
}

func (s Segment) position() int { return s.Position }
