// Package batch runs the phase-ordered offline pipeline: ingest the corpus
// into the word registry, seal it, decompose every word in parallel, and
// write each word's formations through a single writer.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/formations/core/formation"
	"github.com/FocuswithJustin/formations/core/lexicon"
	"github.com/FocuswithJustin/formations/internal/logging"
	"github.com/FocuswithJustin/formations/internal/store"
)

// Options configures a decomposition pass.
type Options struct {
	// Workers is the number of decomposing goroutines (NumCPU if not positive).
	Workers int
	// MaxLength caps the base word length (formation.DefaultMaxLength if not
	// positive). Longer words are skipped and lose any formations an
	// earlier pass stored for them.
	MaxLength int
	// Progress, if set, is called by the writer after every stored word.
	Progress func(done, total int)
}

// Failure is one word the pass could not decompose or store.
type Failure struct {
	WordID lexicon.WordID `json:"word_id"`
	Word   string         `json:"word"`
	Op     string         `json:"op"`
	Err    error          `json:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %q: %v", f.Op, f.Word, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Report summarizes a decomposition pass.
type Report struct {
	RunID      string        `json:"run_id"`
	Digest     string        `json:"lexicon_digest"`
	Words      int           `json:"words"`
	Decomposed int           `json:"decomposed"`
	Formations int           `json:"formations"`
	Nested     int           `json:"nested"`
	Skipped    int           `json:"skipped"`
	Failures   []Failure     `json:"failures,omitempty"`
	Status     string        `json:"status"`
	Elapsed    time.Duration `json:"elapsed"`
}

// FailureError joins the failures into one error, or returns nil.
func (r *Report) FailureError() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

type decomposed struct {
	word       lexicon.Word
	formations []formation.Formation
	err        error
}

// Decompose runs one pass over every word of snap and stores the result.
// Each word's stored formations are replaced atomically, so a pass can be
// repeated and a failed word retried on its own. Failures are collected in
// the report and never stop the pass; only cancelling ctx does.
func Decompose(ctx context.Context, st *store.Store, snap *lexicon.Snapshot, opts Options) (*Report, error) {
	start := time.Now()
	run, err := st.CreateRun(ctx, snap.Digest())
	if err != nil {
		return nil, err
	}
	ctx = logging.WithRunID(ctx, run.ID)
	words := snap.Words()
	report := &Report{RunID: run.ID, Digest: run.LexiconDigest, Words: len(words)}

	if opts.MaxLength <= 0 {
		opts.MaxLength = formation.DefaultMaxLength
	}
	engine := formation.NewEngine(snap, formation.WithMaxLength(opts.MaxLength))
	pool := NewPool[lexicon.Word, decomposed](opts.Workers, 4*max(opts.Workers, 1))
	logging.BatchPhase(ctx, "decompose", "start", "words", len(words), "workers", pool.Workers(),
		"max_length", opts.MaxLength, "lexicon_digest", run.LexiconDigest)

	pool.Start(ctx, func(ctx context.Context, w lexicon.Word) decomposed {
		if err := ctx.Err(); err != nil {
			return decomposed{word: w, err: err}
		}
		fs, err := engine.Decompose(w)
		if err != nil {
			return decomposed{word: w, err: err}
		}
		for _, f := range fs {
			if err := formation.Check(w.Letters, f, letters(snap)); err != nil {
				return decomposed{word: w, err: err}
			}
		}
		return decomposed{word: w, formations: fs}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer pool.Close()
		for _, w := range words {
			if err := pool.Submit(gctx, w); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		done := 0
		// drain every result even after cancellation so no worker blocks
		for r := range pool.Results() {
			done++
			report.record(ctx, st, r)
			if opts.Progress != nil {
				opts.Progress(done, len(words))
			}
		}
		return nil
	})
	waitErr := g.Wait()

	switch {
	case ctx.Err() != nil:
		report.Status = string(store.RunStatusFailed)
		run.Error = ctx.Err().Error()
	case len(report.Failures) > 0:
		report.Status = string(store.RunStatusPartial)
	default:
		report.Status = string(store.RunStatusCompleted)
	}
	report.Elapsed = time.Since(start)

	run.Words = report.Decomposed
	run.Formations = report.Formations
	run.Skipped = report.Skipped
	run.Failures = len(report.Failures)
	run.Status = store.RunStatus(report.Status)
	if err := st.CompleteRun(context.WithoutCancel(ctx), run); err != nil {
		return report, err
	}

	logging.BatchPhase(ctx, "decompose", "done", "status", report.Status, "decomposed", report.Decomposed,
		"formations", report.Formations, "nested", report.Nested, "skipped", report.Skipped,
		"failures", len(report.Failures), "elapsed_ms", report.Elapsed.Milliseconds())

	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	return report, waitErr
}

// record stores one word's result. It runs only on the writer goroutine.
func (r *Report) record(ctx context.Context, st *store.Store, d decomposed) {
	switch {
	case errors.Is(d.err, formation.ErrTooLong):
		if ctx.Err() != nil {
			return
		}
		// a shorter cap than an earlier pass must not leave stale rows behind
		if err := st.ReplaceFormations(ctx, d.word.ID, nil); err != nil {
			r.fail(ctx, d.word, "clear", err)
			return
		}
		r.Skipped++
		logging.DebugContext(ctx, "word skipped", "word", d.word.Letters, "length", d.word.Len())
		return
	case d.err != nil:
		if ctx.Err() == nil {
			r.fail(ctx, d.word, "decompose", d.err)
		}
		return
	case ctx.Err() != nil:
		return
	}

	if err := st.ReplaceFormations(ctx, d.word.ID, d.formations); err != nil {
		r.fail(ctx, d.word, "record", err)
		return
	}
	r.Decomposed++
	r.Formations += len(d.formations)
	for _, f := range d.formations {
		if f.Nested() {
			r.Nested++
		}
	}
}

func (r *Report) fail(ctx context.Context, w lexicon.Word, op string, err error) {
	r.Failures = append(r.Failures, Failure{WordID: w.ID, Word: w.Letters, Op: op, Err: err})
	logging.WordFailure(ctx, w.Letters, op, err, "word_id", int64(w.ID))
}

func letters(snap *lexicon.Snapshot) func(lexicon.WordID) (string, bool) {
	return func(id lexicon.WordID) (string, bool) {
		w, ok := snap.Word(id)
		return w.Letters, ok
	}
}
