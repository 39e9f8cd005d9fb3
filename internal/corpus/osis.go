package corpus

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/formations/core/errors"
)

// OSIS documents use a default namespace; local-name() matches regardless
// of whether the file declares it.
var (
	bookExpr    = xpath.MustCompile(`//*[local-name()='div' and @type='book']`)
	chapterExpr = xpath.MustCompile(`*[local-name()='chapter']`)
	verseExpr   = xpath.MustCompile(`*[local-name()='verse']`)
	wordExpr    = xpath.MustCompile(`*[local-name()='w']`)
)

// Token is one word occurrence of a verse.
type Token struct {
	Ref      Ref
	Position int // 1-based within the verse
	Text     string
	Letters  string
	Lemma    string
	Strong   string
}

// BookText is the tokenized text of one book.
type BookText struct {
	OSIS   string
	Tokens []Token
}

// ReadBook parses one OSIS book and normalizes every word. Only w elements
// directly under a verse are read, so marginal readings inside notes are
// skipped.
func ReadBook(r io.Reader, n *Normalizer) (*BookText, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, errors.NewParse("OSIS", "", err.Error())
	}
	book := xmlquery.QuerySelector(doc, bookExpr)
	if book == nil {
		return nil, errors.NewParse("OSIS", "", "no div[@type='book'] element")
	}
	out := &BookText{OSIS: book.SelectAttr("osisID")}
	if out.OSIS == "" {
		return nil, errors.NewParse("OSIS", "", "book div has no osisID")
	}

	for _, chapter := range xmlquery.QuerySelectorAll(book, chapterExpr) {
		for _, verse := range xmlquery.QuerySelectorAll(chapter, verseExpr) {
			id := verse.SelectAttr("osisID")
			ref, err := ParseRef(id)
			if err != nil {
				pe := errors.NewParse("OSIS", out.OSIS, "bad verse osisID")
				pe.Err = err
				return nil, pe
			}
			if ref.Book != out.OSIS {
				return nil, errors.NewParse("OSIS", out.OSIS, fmt.Sprintf("verse %q outside book %s", id, out.OSIS))
			}
			for i, w := range xmlquery.QuerySelectorAll(verse, wordExpr) {
				text := strings.TrimSpace(w.InnerText())
				lemma := strings.ReplaceAll(w.SelectAttr("lemma"), " ", "")
				out.Tokens = append(out.Tokens, Token{
					Ref:      ref,
					Position: i + 1,
					Text:     text,
					Letters:  n.Normalize(text),
					Lemma:    lemma,
					Strong:   StrongKey(lemma),
				})
			}
		}
	}
	return out, nil
}
