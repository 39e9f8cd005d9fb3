package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/FocuswithJustin/formations/core/errors"
	"github.com/FocuswithJustin/formations/core/render"
	"github.com/FocuswithJustin/formations/core/sqlite"
	"github.com/FocuswithJustin/formations/internal/api"
	"github.com/FocuswithJustin/formations/internal/batch"
	"github.com/FocuswithJustin/formations/internal/config"
	"github.com/FocuswithJustin/formations/internal/corpus"
	"github.com/FocuswithJustin/formations/internal/gloss"
	"github.com/FocuswithJustin/formations/internal/logging"
	"github.com/FocuswithJustin/formations/internal/store"
	"github.com/FocuswithJustin/formations/internal/validation"
)

// maxListedFailures bounds the failures printed after a decompose.
const maxListedFailures = 10

// openStore opens the database for writing, applying pending migrations.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// IngestCmd seeds letter permutations and reads corpus books into the
// registry.
type IngestCmd struct {
	Dir        string   `help:"Corpus directory holding <osis>.xml[.xz] books" type:"path"`
	Books      []string `name:"book" help:"OSIS ids of the books to read (default all)"`
	SeedLength *int     `name:"seed-length" help:"Longest seeded letter permutation, 0 to disable"`
	Parallel   int      `help:"Books parsed at once"`
}

func (c *IngestCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	over := map[string]any{}
	if c.Dir != "" {
		over["corpus.dir"] = c.Dir
	}
	if len(c.Books) > 0 {
		over["corpus.books"] = c.Books
	}
	if c.SeedLength != nil {
		over["corpus.seed_length"] = *c.SeedLength
	}
	if c.Parallel > 0 {
		over["corpus.parallel"] = c.Parallel
	}
	cfg, err := g.load(over)
	if err != nil {
		return err
	}
	alphabet, err := cfg.Alphabet()
	if err != nil {
		return err
	}
	books, err := corpus.SelectBooks(cfg.Corpus.Books)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	reg, err := st.LoadRegistry(ctx, alphabet)
	if err != nil {
		return err
	}
	rep, err := batch.Ingest(ctx, st, reg, batch.IngestOptions{
		Dir:        cfg.Corpus.Dir,
		Books:      books,
		SeedLength: cfg.Corpus.SeedLength,
		Parallel:   cfg.Corpus.Parallel,
	})
	if err != nil {
		return err
	}

	if rep.Seeded > 0 {
		fmt.Fprintf(out, "seeded %s permutations\n", humanize.Comma(int64(rep.Seeded)))
	}
	fmt.Fprintf(out, "ingested %d books, %s tokens: %s new words, %s total (%s)\n",
		rep.Books, humanize.Comma(int64(rep.Tokens)), humanize.Comma(int64(rep.NewWords)),
		humanize.Comma(int64(rep.Words)), rep.Elapsed.Round(time.Millisecond))
	return nil
}

// GlossCmd imports a LexicalIndex XML file.
type GlossCmd struct {
	Path string `arg:"" optional:"" help:"LexicalIndex XML, optionally .xz (default lexicon.path)" type:"path"`
}

func (c *GlossCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	over := map[string]any{}
	if c.Path != "" {
		over["lexicon.path"] = c.Path
	}
	cfg, err := g.load(over)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := gloss.Import(ctx, st, cfg.Lexicon.Path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %s glosses from %s\n", humanize.Comma(int64(n)), cfg.Lexicon.Path)
	return nil
}

// DecomposeCmd runs a decomposition pass over every registered word.
type DecomposeCmd struct {
	Workers   int `short:"w" help:"Decomposing goroutines"`
	MaxLength int `name:"max-length" help:"Skip words longer than this"`
}

func (c *DecomposeCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	over := map[string]any{}
	if c.Workers > 0 {
		over["decompose.workers"] = c.Workers
	}
	if c.MaxLength > 0 {
		over["decompose.max_length"] = c.MaxLength
	}
	cfg, err := g.load(over)
	if err != nil {
		return err
	}
	alphabet, err := cfg.Alphabet()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	reg, err := st.LoadRegistry(ctx, alphabet)
	if err != nil {
		return err
	}
	if reg.Len() == 0 {
		return fmt.Errorf("no words registered in %s: run ingest first", cfg.DB.Path)
	}

	rep, err := batch.Decompose(ctx, st, reg.Seal(), batch.Options{
		Workers:   cfg.Decompose.Workers,
		MaxLength: cfg.Decompose.MaxLength,
		Progress:  progressLogger(ctx),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "run %s %s: %s of %s words decomposed into %s formations (%s nested), %s skipped (%s)\n",
		rep.RunID, rep.Status,
		humanize.Comma(int64(rep.Decomposed)), humanize.Comma(int64(rep.Words)),
		humanize.Comma(int64(rep.Formations)), humanize.Comma(int64(rep.Nested)),
		humanize.Comma(int64(rep.Skipped)), rep.Elapsed.Round(time.Millisecond))
	if len(rep.Failures) == 0 {
		return nil
	}
	for i, f := range rep.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(out, "  ... and %d more\n", len(rep.Failures)-i)
			break
		}
		fmt.Fprintf(out, "  %v\n", f)
	}
	return fmt.Errorf("%d words failed", len(rep.Failures))
}

// QueryCmd renders the stored formations of each word.
type QueryCmd struct {
	Words []string `arg:"" help:"Words to render; pointed text is normalized first"`
	JSON  bool     `help:"Print {word: {number: display}} as JSON"`
}

func (c *QueryCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	cfg, err := g.load(nil)
	if err != nil {
		return err
	}
	alphabet, err := cfg.Alphabet()
	if err != nil {
		return err
	}
	st, err := store.OpenReadOnly(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, w := range c.Words {
		if err := validation.ValidateWord(w); err != nil {
			return fmt.Errorf("word %q: %w", w, err)
		}
	}
	norm := corpus.NewNormalizer(alphabet)
	svc := render.NewService(st)

	if c.JSON {
		all := make(map[string]map[int]string, len(c.Words))
		for _, w := range c.Words {
			word := norm.Normalize(w)
			m, err := svc.Render(ctx, word)
			if err != nil {
				return err
			}
			all[word] = m
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(all)
	}

	for _, w := range c.Words {
		word := norm.Normalize(w)
		rendered, err := svc.Ordered(ctx, word)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, word)
		if len(rendered) == 0 {
			fmt.Fprintln(out, "  (no formations)")
		}
		for _, r := range rendered {
			fmt.Fprintf(out, "  %d  %s\n", r.Number, r.Display)
		}
	}
	return nil
}

// InfoCmd describes one registered word.
type InfoCmd struct {
	Word string `arg:"" help:"Word to describe"`
	JSON bool   `help:"Print the description as JSON"`
}

func (c *InfoCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	cfg, err := g.load(nil)
	if err != nil {
		return err
	}
	alphabet, err := cfg.Alphabet()
	if err != nil {
		return err
	}
	st, err := store.OpenReadOnly(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	info, err := st.WordInfo(ctx, corpus.NewNormalizer(alphabet).Normalize(c.Word))
	if err != nil {
		return err
	}
	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(out, "%s (id %d)\n", info.Letters, info.ID)
	fmt.Fprintf(out, "  gematria    mod 9 = %d, mod 7 = %d\n", info.GematriaMod9, info.GematriaMod7)
	fmt.Fprintf(out, "  occurrences %s\n", humanize.Comma(int64(info.Occurrences)))
	fmt.Fprintf(out, "  formations  %d\n", info.Formations)
	for _, gl := range info.Glosses {
		fmt.Fprintf(out, "  H%s %s: %s\n", gl.Strong, gl.Xlit, gl.Def)
	}
	return nil
}

// ServeCmd starts the read-only query API.
type ServeCmd struct {
	Port      int      `short:"p" help:"HTTP server port"`
	Origins   []string `name:"origin" help:"Allowed CORS origins"`
	CacheSize int      `name:"cache-size" help:"Rendered words kept in memory"`
}

func (c *ServeCmd) Run(ctx context.Context, g *Globals) error {
	over := map[string]any{}
	if c.Port > 0 {
		over["server.port"] = c.Port
	}
	if len(c.Origins) > 0 {
		over["server.allowed_origins"] = c.Origins
	}
	if c.CacheSize > 0 {
		over["server.cache_size"] = c.CacheSize
	}
	cfg, err := g.load(over)
	if err != nil {
		return err
	}
	alphabet, err := cfg.Alphabet()
	if err != nil {
		return err
	}
	st, err := store.OpenReadOnly(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	apiCfg := api.DefaultConfig()
	apiCfg.Port = cfg.Server.Port
	apiCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	apiCfg.CacheSize = cfg.Server.CacheSize
	apiCfg.Version = version
	return api.New(apiCfg, st, alphabet).ListenAndServe(ctx)
}

// ExportCmd writes every stored formation as word, number and display.
type ExportCmd struct {
	Out string `short:"o" required:"" help:"Output file; a .xz suffix compresses" type:"path"`
}

func (c *ExportCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	if err := validation.ValidatePath(c.Out); err != nil {
		return fmt.Errorf("--out: %w", err)
	}
	cfg, err := g.load(nil)
	if err != nil {
		return err
	}
	st, err := store.OpenReadOnly(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := batch.ExportFile(ctx, st, c.Out)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "exported %s formations to %s\n", humanize.Comma(int64(n)), c.Out)
	return nil
}

// StatsCmd summarizes the database.
type StatsCmd struct {
	JSON bool `help:"Print the counts as JSON"`
}

func (c *StatsCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	cfg, err := g.load(nil)
	if err != nil {
		return err
	}
	st, err := store.OpenReadOnly(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}
	run, err := st.LatestRun(ctx)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			store.Stats
			LastRun *store.Run `json:"last_run,omitempty"`
		}{stats, run})
	}

	rows := []struct {
		label string
		n     int64
	}{
		{"Words", stats.Words},
		{"Base words", stats.BaseWords},
		{"Formations", stats.Formations},
		{"Nested", stats.Nested},
		{"Segments", stats.Segments},
		{"Books", stats.Books},
		{"Verses", stats.Verses},
		{"Glosses", stats.Glosses},
		{"Runs", stats.Runs},
	}
	fmt.Fprintf(out, "%-12s %s\n", "Database:", cfg.DB.Path)
	for _, r := range rows {
		fmt.Fprintf(out, "%-12s %s\n", r.label+":", humanize.Comma(r.n))
	}
	if run != nil {
		fmt.Fprintf(out, "%-12s %s %s, started %s\n", "Last run:", run.ID, run.Status, humanize.Time(run.StartedAt))
	}
	return nil
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run(out io.Writer) error {
	fmt.Fprintf(out, "formations version %s\n", version)
	fmt.Fprintf(out, "sqlite: %s\n", sqlite.GetInfo())
	return nil
}

// progressLogger logs decomposition progress about every tenth of the pass.
func progressLogger(ctx context.Context) func(done, total int) {
	return func(done, total int) {
		step := max(total/10, 1)
		if done%step == 0 || done == total {
			logging.InfoContext(ctx, "decompose progress", "done", done, "total", total)
		}
	}
}
