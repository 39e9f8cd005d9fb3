package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/formations/core/errors"
	"github.com/FocuswithJustin/formations/core/lexicon"
	"github.com/FocuswithJustin/formations/internal/corpus"
	"github.com/FocuswithJustin/formations/internal/fileutil"
	"github.com/FocuswithJustin/formations/internal/logging"
	"github.com/FocuswithJustin/formations/internal/store"
)

// IngestOptions configures corpus ingestion.
type IngestOptions struct {
	// Dir holds one <osis>.xml (or .xml.xz) file per book.
	Dir string
	// Books to read, in canonical order.
	Books []corpus.Book
	// SeedLength is the longest seeded letter permutation; 0 disables seeding.
	SeedLength int
	// Parallel bounds how many books are parsed at once (NumCPU if not positive).
	Parallel int
}

// IngestReport summarizes an ingest.
type IngestReport struct {
	Seeded   int           `json:"seeded"`
	Books    int           `json:"books"`
	Tokens   int           `json:"tokens"`
	NewWords int           `json:"new_words"`
	Words    int           `json:"words"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Ingest interns the seed permutations and every word of the selected books
// into reg and persists words, books and verses. Books are parsed in
// parallel but interned one at a time in canonical order, so word ids do
// not depend on scheduling.
func Ingest(ctx context.Context, st *store.Store, reg *lexicon.Registry, opts IngestOptions) (*IngestReport, error) {
	start := time.Now()
	report := &IngestReport{}
	before := reg.Len()
	logging.BatchPhase(ctx, "ingest", "start", "books", len(opts.Books), "seed_length", opts.SeedLength, "dir", opts.Dir)

	if opts.SeedLength > 0 {
		n, err := seed(ctx, st, reg, opts.SeedLength)
		if err != nil {
			return nil, err
		}
		report.Seeded = n
	}

	texts, err := readBooks(ctx, reg.Alphabet(), opts)
	if err != nil {
		return nil, err
	}

	for i, b := range opts.Books {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := internBook(ctx, st, reg, b, texts[i])
		if err != nil {
			return nil, err
		}
		texts[i] = nil
		report.Books++
		report.Tokens += n
	}

	report.Words = reg.Len()
	report.NewWords = report.Words - before
	report.Elapsed = time.Since(start)
	logging.BatchPhase(ctx, "ingest", "done", "books", report.Books, "tokens", report.Tokens,
		"seeded", report.Seeded, "new_words", report.NewWords, "elapsed_ms", report.Elapsed.Milliseconds())
	return report, nil
}

// seed records every permutation of up to maxLen letters as a one-word
// verse of book 0: chapter is the length, verse the index within it.
func seed(ctx context.Context, st *store.Store, reg *lexicon.Registry, maxLen int) (int, error) {
	last := lexicon.WordID(reg.Len())
	var occs []store.Occurrence
	for s := range corpus.Permutations(reg.Alphabet(), maxLen) {
		id, err := reg.Intern(s.Letters)
		if err != nil {
			return 0, fmt.Errorf("seed %q: %w", s.Letters, err)
		}
		occs = append(occs, store.Occurrence{
			BookID:   corpus.SeedBook.ID,
			Chapter:  s.Length,
			Verse:    s.Index,
			Position: 1,
			WordID:   id,
		})
	}
	if err := save(ctx, st, reg, last, corpus.SeedBook, occs); err != nil {
		return 0, err
	}
	logging.BatchPhase(ctx, "seed", "done", "sequences", len(occs), "max_length", maxLen)
	return len(occs), nil
}

func readBooks(ctx context.Context, alphabet *lexicon.Alphabet, opts IngestOptions) ([]*corpus.BookText, error) {
	texts := make([]*corpus.BookText, len(opts.Books))
	norm := corpus.NewNormalizer(alphabet)

	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Parallel
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g.SetLimit(limit)
	for i, b := range opts.Books {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := readBook(filepath.Join(opts.Dir, b.OSIS+".xml"), norm)
			if err != nil {
				return err
			}
			if text.OSIS != b.OSIS {
				return errors.NewParse("OSIS", b.OSIS, fmt.Sprintf("file holds book %s", text.OSIS))
			}
			texts[i] = text
			logging.DebugContext(ctx, "book parsed", "book", b.OSIS, "tokens", len(text.Tokens))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}

func readBook(path string, norm *corpus.Normalizer) (*corpus.BookText, error) {
	found, err := fileutil.Locate(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	f, err := fileutil.Open(found)
	if err != nil {
		return nil, errors.NewIO("open", found, err)
	}
	defer f.Close()

	text, err := corpus.ReadBook(f, norm)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = found
		}
		return nil, err
	}
	return text, nil
}

func internBook(ctx context.Context, st *store.Store, reg *lexicon.Registry, b corpus.Book, text *corpus.BookText) (int, error) {
	last := lexicon.WordID(reg.Len())
	occs := make([]store.Occurrence, 0, len(text.Tokens))
	for _, tok := range text.Tokens {
		id, err := reg.Intern(tok.Letters)
		if err != nil {
			return 0, fmt.Errorf("%s position %d: %w", tok.Ref, tok.Position, err)
		}
		occs = append(occs, store.Occurrence{
			BookID:   b.ID,
			Chapter:  tok.Ref.Chapter,
			Verse:    tok.Ref.Verse,
			Position: tok.Position,
			WordID:   id,
			Lemma:    tok.Lemma,
			Strong:   tok.Strong,
		})
	}
	if err := save(ctx, st, reg, last, b, occs); err != nil {
		return 0, err
	}
	logging.InfoContext(ctx, "book ingested", "book", b.OSIS, "tokens", len(occs),
		"new_words", reg.Len()-int(last))
	return len(occs), nil
}

func save(ctx context.Context, st *store.Store, reg *lexicon.Registry, last lexicon.WordID, b corpus.Book, occs []store.Occurrence) error {
	if err := st.SaveWords(ctx, reg.Since(last)); err != nil {
		return err
	}
	if err := st.SaveBook(ctx, store.Book{ID: b.ID, OSIS: b.OSIS, Title: b.Title}); err != nil {
		return err
	}
	return st.SaveOccurrences(ctx, b.ID, occs)
}
