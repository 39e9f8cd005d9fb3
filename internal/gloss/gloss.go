// Package gloss imports the Open Scriptures LexicalIndex, a Strong's-keyed
// table of transliterations, parts of speech and short definitions that the
// query path joins to corpus occurrences.
package gloss

import (
	"context"
	"io"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/formations/core/errors"
	"github.com/FocuswithJustin/formations/internal/fileutil"
	"github.com/FocuswithJustin/formations/internal/logging"
	"github.com/FocuswithJustin/formations/internal/store"
)

var (
	entryExpr = xpath.MustCompile(`/*/*[local-name()='part']/*[local-name()='entry']`)
	xrefExpr  = xpath.MustCompile(`*[local-name()='xref']`)
	wExpr     = xpath.MustCompile(`*[local-name()='w']`)
	posExpr   = xpath.MustCompile(`*[local-name()='pos']`)
	defExpr   = xpath.MustCompile(`*[local-name()='def']`)
)

// Parse reads LexicalIndex entries. Entries whose xref carries no Strong's
// number are skipped; an aug letter is appended to the number ("1254" +
// "a"), matching the keys corpus.StrongKey derives from lemmas.
func Parse(r io.Reader) ([]store.Gloss, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, errors.NewParse("LexicalIndex", "", err.Error())
	}

	var out []store.Gloss
	for _, entry := range xmlquery.QuerySelectorAll(doc, entryExpr) {
		xref := xmlquery.QuerySelector(entry, xrefExpr)
		if xref == nil {
			continue
		}
		strong := xref.SelectAttr("strong")
		if strong == "" {
			continue
		}
		g := store.Gloss{
			EntryID: entry.SelectAttr("id"),
			Strong:  strong + xref.SelectAttr("aug"),
		}
		if w := xmlquery.QuerySelector(entry, wExpr); w != nil {
			g.Xlit = w.SelectAttr("xlit")
		}
		g.POS = text(xmlquery.QuerySelector(entry, posExpr))
		g.Def = text(xmlquery.QuerySelector(entry, defExpr))
		out = append(out, g)
	}
	return out, nil
}

func text(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return n.InnerText()
}

// Import loads the LexicalIndex at path (optionally .xz) into the store,
// replacing any previous import, and returns the number of glosses stored.
func Import(ctx context.Context, s *store.Store, path string) (int, error) {
	f, err := fileutil.Open(path)
	if err != nil {
		return 0, errors.NewIO("open", path, err)
	}
	defer f.Close()

	gs, err := Parse(f)
	if err != nil {
		return 0, err
	}
	if err := s.ReplaceGlosses(ctx, gs); err != nil {
		return 0, err
	}
	logging.InfoContext(ctx, "glosses imported", "path", path, "entries", len(gs))
	return len(gs), nil
}
