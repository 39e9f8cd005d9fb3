package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FocuswithJustin/formations/core/errors"
	"github.com/FocuswithJustin/formations/core/lexicon"
	"github.com/FocuswithJustin/formations/core/sqlite"
)

// SaveWords persists registry words. Words already stored under the same id
// are left alone; letters stored under a different id are a conflict.
func (s *Store) SaveWords(ctx context.Context, words []lexicon.Word) error {
	if len(words) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO words (id, letters, gematria_mod9, gematria_mod7) VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare word insert: %w", err)
		}
		defer stmt.Close()

		for _, w := range words {
			if _, err := stmt.ExecContext(ctx, int64(w.ID), w.Letters, w.GematriaMod9, w.GematriaMod7); err != nil {
				if sqlite.IsUniqueViolation(err) {
					return fmt.Errorf("word %q (id %d) already stored under another id: %w", w.Letters, w.ID, err)
				}
				return fmt.Errorf("insert word %q: %w", w.Letters, err)
			}
		}
		return nil
	})
}

// LoadRegistry rebuilds an open registry from the stored words.
func (s *Store) LoadRegistry(ctx context.Context, alphabet *lexicon.Alphabet) (*lexicon.Registry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, letters, gematria_mod9, gematria_mod7 FROM words ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load words: %w", err)
	}
	defer rows.Close()

	reg := lexicon.NewRegistry(alphabet)
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, err
		}
		if err := reg.Restore(w); err != nil {
			return nil, fmt.Errorf("load words: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load words: %w", err)
	}
	return reg, nil
}

// WordByLetters looks a word up by its letters.
func (s *Store) WordByLetters(ctx context.Context, letters string) (lexicon.Word, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, letters, gematria_mod9, gematria_mod7 FROM words WHERE letters = ?`, letters)
	w, err := scanWord(row)
	if err == sql.ErrNoRows {
		return lexicon.Word{}, errors.NewNotFound("word", letters)
	}
	return w, err
}

// WordByID looks a word up by id.
func (s *Store) WordByID(ctx context.Context, id lexicon.WordID) (lexicon.Word, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, letters, gematria_mod9, gematria_mod7 FROM words WHERE id = ?`, int64(id))
	w, err := scanWord(row)
	if err == sql.ErrNoRows {
		return lexicon.Word{}, errors.NewNotFound("word", fmt.Sprint(id))
	}
	return w, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWord(sc scanner) (lexicon.Word, error) {
	var (
		w  lexicon.Word
		id int64
	)
	if err := sc.Scan(&id, &w.Letters, &w.GematriaMod9, &w.GematriaMod7); err != nil {
		if err == sql.ErrNoRows {
			return w, err
		}
		return w, fmt.Errorf("scan word: %w", err)
	}
	w.ID = lexicon.WordID(id)
	return w, nil
}
