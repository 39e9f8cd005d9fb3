package corpus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/formations/core/errors"
)

// Ref locates a verse: the osisID "1Sam.3.10" is {1Sam 3 10}.
type Ref struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Verse   int    `json:"verse"`
}

//nolint:govet // participle grammar tags
type verseID struct {
	Book    string `@Book`
	Chapter int    `"." @Number`
	Verse   int    `"." @Number`
}

var osisIDLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Book", Pattern: `[1-4]?[A-Z][A-Za-z]*`},
	{Name: "Number", Pattern: `[1-9][0-9]*`},
	{Name: "Dot", Pattern: `\.`},
})

var verseIDParser = participle.MustBuild[verseID](
	participle.Lexer(osisIDLexer),
)

// ParseRef parses a verse osisID. Book or chapter ids are rejected: every
// word must sit in a verse.
func ParseRef(id string) (Ref, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Ref{}, errors.NewParse("reference", "", "empty osisID")
	}
	v, err := verseIDParser.ParseString("", id)
	if err != nil {
		pe := errors.NewParse("reference", "", fmt.Sprintf("%q is not Book.Chapter.Verse", id))
		pe.Err = err
		return Ref{}, pe
	}
	return Ref{Book: v.Book, Chapter: v.Chapter, Verse: v.Verse}, nil
}

func (r Ref) String() string {
	return r.Book + "." + strconv.Itoa(r.Chapter) + "." + strconv.Itoa(r.Verse)
}
