package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FocuswithJustin/formations/core/lexicon"
)

// Book is one corpus book. ID is its canonical ordinal; book 0 holds the
// seeded letter permutations, one per verse.
type Book struct {
	ID    int    `json:"id"`
	OSIS  string `json:"osis"`
	Title string `json:"title"`
}

// Occurrence is one word at one position of one verse.
type Occurrence struct {
	BookID   int
	Chapter  int
	Verse    int
	Position int
	WordID   lexicon.WordID
	Lemma    string
	Strong   string
}

// SaveBook inserts or updates a book.
func (s *Store) SaveBook(ctx context.Context, b Book) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO books (id, osis, title) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET osis = excluded.osis, title = excluded.title`,
		b.ID, b.OSIS, b.Title)
	if err != nil {
		return fmt.Errorf("save book %s: %w", b.OSIS, err)
	}
	return nil
}

// Books lists stored books in canonical order.
func (s *Store) Books(ctx context.Context) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, osis, title FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.OSIS, &b.Title); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SaveOccurrences replaces the verses of one book with occs. The referenced
// words must already be stored.
func (s *Store) SaveOccurrences(ctx context.Context, bookID int, occs []Occurrence) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM verses WHERE book_id = ?`, bookID); err != nil {
			return fmt.Errorf("clear verses of book %d: %w", bookID, err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO verses (book_id, chapter, verse, position, word_id, lemma, strong)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare verse insert: %w", err)
		}
		defer stmt.Close()

		for _, o := range occs {
			if o.BookID != bookID {
				return fmt.Errorf("occurrence of book %d saved with book %d", o.BookID, bookID)
			}
			if _, err := stmt.ExecContext(ctx, o.BookID, o.Chapter, o.Verse, o.Position,
				int64(o.WordID), o.Lemma, o.Strong); err != nil {
				return fmt.Errorf("insert verse %d:%d.%d#%d: %w", o.BookID, o.Chapter, o.Verse, o.Position, err)
			}
		}
		return nil
	})
}

// Occurrences counts how often a word appears in the corpus.
func (s *Store) Occurrences(ctx context.Context, id lexicon.WordID) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM verses WHERE word_id = ?`, int64(id)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count occurrences of word %d: %w", id, err)
	}
	return n, nil
}
