// Package store persists the word registry, formations, corpus occurrences,
// lexical glosses and batch runs in SQLite.
//
// The schema is versioned with goose; migrations are embedded and applied by
// Migrate. Every multi-row write happens in one transaction so readers never
// observe part of a formation.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/FocuswithJustin/formations/core/sqlite"
	"github.com/FocuswithJustin/formations/internal/logging"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its base FS, dialect and logger in package state.
var gooseMu sync.Mutex

// Store is a formation database handle. It is safe for concurrent use;
// writes are serialized by the single underlying connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path. Use ":memory:" for
// an in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// OpenReadOnly opens an existing database for the query path.
func OpenReadOnly(ctx context.Context, path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open formation database: %w", err)
	}
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// New wraps an already opened database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Version returns the current schema version.
func (s *Store) Version(ctx context.Context) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := setupGoose(); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, s.db)
}

func setupGoose() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return nil
}

// gooseLogger routes migration chatter to the debug log.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	logging.Debug("migration", "detail", fmt.Sprintf(format, v...))
}

func (gooseLogger) Fatalf(format string, v ...any) {
	logging.Error("migration_failed", "detail", fmt.Sprintf(format, v...))
	os.Exit(1)
}

// inTx runs fn in a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Stats summarizes the database contents.
type Stats struct {
	Words      int64 `json:"words"`
	BaseWords  int64 `json:"base_words"`
	Formations int64 `json:"formations"`
	Nested     int64 `json:"nested"`
	Segments   int64 `json:"segments"`
	Books      int64 `json:"books"`
	Verses     int64 `json:"verses"`
	Glosses    int64 `json:"glosses"`
	Runs       int64 `json:"runs"`
}

// Stats counts rows across the schema.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	queries := []struct {
		dst   *int64
		query string
	}{
		{&st.Words, `SELECT COUNT(*) FROM words`},
		{&st.BaseWords, `SELECT COUNT(DISTINCT base_word_id) FROM formations`},
		{&st.Formations, `SELECT COUNT(*) FROM (SELECT DISTINCT base_word_id, formation_number FROM formations)`},
		{&st.Nested, `SELECT COUNT(*) FROM formations WHERE is_inner = 1`},
		{&st.Segments, `SELECT COUNT(*) FROM formations`},
		{&st.Books, `SELECT COUNT(*) FROM books`},
		{&st.Verses, `SELECT COUNT(*) FROM verses`},
		{&st.Glosses, `SELECT COUNT(*) FROM lexicon`},
		{&st.Runs, `SELECT COUNT(*) FROM runs`},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dst); err != nil {
			return Stats{}, fmt.Errorf("stats: %w", err)
		}
	}
	return st, nil
}
