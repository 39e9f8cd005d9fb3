// Command formations builds and queries the word-formation database.
//
// A typical session ingests a corpus, decomposes every word, then serves
// or exports the results:
//
//	formations ingest --dir wlc
//	formations decompose
//	formations query בראשית
//	formations serve --port 8000
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/formations/internal/config"
	"github.com/FocuswithJustin/formations/internal/logging"
	"github.com/FocuswithJustin/formations/internal/validation"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Globals are the flags every command accepts. Flags left unset fall back
// to the environment, then the config file, then the defaults.
type Globals struct {
	Config    string `short:"c" help:"Config file (default formations.yaml)" type:"path"`
	DB        string `name:"db" help:"Database path" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Log format (text, json)"`
}

// CLI defines the command-line interface for formations.
type CLI struct {
	Globals

	Ingest    IngestCmd    `cmd:"" help:"Seed permutations and ingest corpus books"`
	Gloss     GlossCmd     `cmd:"" help:"Import a lexical index of glosses"`
	Decompose DecomposeCmd `cmd:"" help:"Decompose every registered word"`
	Query     QueryCmd     `cmd:"" help:"Render the formations of words"`
	Info      InfoCmd      `cmd:"" help:"Show a word's codes, frequency and glosses"`
	Serve     ServeCmd     `cmd:"" help:"Start the query API server"`
	Export    ExportCmd    `cmd:"" help:"Export every formation as TSV"`
	Stats     StatsCmd     `cmd:"" help:"Summarize the database"`
	Version   VersionCmd   `cmd:"" help:"Print version information"`
}

// load resolves the configuration with overrides set on top of the global
// flags, and configures logging from it.
func (g *Globals) load(overrides map[string]any) (*config.Config, error) {
	flags := make(map[string]any, len(overrides)+3)
	if g.DB != "" {
		flags["db.path"] = g.DB
	}
	if g.LogLevel != "" {
		flags["log.level"] = g.LogLevel
	}
	if g.LogFormat != "" {
		flags["log.format"] = g.LogFormat
	}
	for k, v := range overrides {
		flags[k] = v
	}

	cfg, err := config.Load(g.Config, flags)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePath(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("db.path: %w", err)
	}
	// Validate has already accepted both
	level, _ := logging.ParseLevel(cfg.Log.Level)
	format, _ := logging.ParseFormat(cfg.Log.Format)
	logging.InitLogger(level, format)
	if cfg.File != "" {
		logging.Debug("config loaded", "file", cfg.File)
	}
	return cfg, nil
}

func newParser(cli *CLI, ctx context.Context, out io.Writer, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("formations"),
		kong.Description("Word-formation decomposition over a normalized corpus lexicon"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(out, (*io.Writer)(nil)),
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	parser, err := newParser(&cli, ctx, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	err = kctx.Run(&cli.Globals)
	kctx.FatalIfErrorf(err)
}
