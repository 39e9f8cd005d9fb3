package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FocuswithJustin/formations/core/errors"
	"github.com/FocuswithJustin/formations/core/formation"
	"github.com/FocuswithJustin/formations/core/lexicon"
	"github.com/FocuswithJustin/formations/core/sqlite"
)

const insertSegment = `INSERT INTO formations (base_word_id, formation_number, position, is_inner, sub_word_id)
	VALUES (?, ?, ?, ?, ?)`

// Record stores one formation of base under the next free formation number
// and returns that number. The formation and all of its segments commit
// together.
func (s *Store) Record(ctx context.Context, base lexicon.WordID, segs []formation.Segment) (int, error) {
	var number int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		n, err := nextNumber(ctx, tx, base)
		if err != nil {
			return err
		}
		number = n
		return insertSegments(ctx, tx, base, n, segs)
	})
	if err != nil {
		return 0, err
	}
	return number, nil
}

// ReplaceFormations atomically replaces every stored formation of base with
// fs. Each formation is allocated its number the same way Record does, and
// that number must equal the one the engine assigned; a mismatch means the
// numbering is broken and is reported as a storage conflict.
func (s *Store) ReplaceFormations(ctx context.Context, base lexicon.WordID, fs []formation.Formation) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM formations WHERE base_word_id = ?`, int64(base)); err != nil {
			return fmt.Errorf("clear formations of word %d: %w", base, err)
		}
		for _, f := range fs {
			n, err := nextNumber(ctx, tx, base)
			if err != nil {
				return err
			}
			if n != f.Number {
				return &errors.StorageConflictError{
					BaseWordID:      int64(base),
					FormationNumber: f.Number,
					Err:             fmt.Errorf("store allocated number %d", n),
				}
			}
			if err := insertSegments(ctx, tx, base, n, f.Segments); err != nil {
				return err
			}
		}
		return nil
	})
}

func nextNumber(ctx context.Context, tx *sql.Tx, base lexicon.WordID) (int, error) {
	var max int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(formation_number), 0) FROM formations WHERE base_word_id = ?`,
		int64(base)).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("allocate formation number for word %d: %w", base, err)
	}
	return max + 1, nil
}

func insertSegments(ctx context.Context, tx *sql.Tx, base lexicon.WordID, number int, segs []formation.Segment) error {
	for _, seg := range segs {
		_, err := tx.ExecContext(ctx, insertSegment, int64(base), number, seg.Position, seg.Inner, int64(seg.WordID))
		switch {
		case err == nil:
		case sqlite.IsUniqueViolation(err):
			return &errors.StorageConflictError{
				BaseWordID:      int64(base),
				FormationNumber: number,
				Position:        seg.Position,
				Err:             err,
			}
		case sqlite.IsForeignKeyViolation(err):
			return fmt.Errorf("insert segment %d/%d@%d: %w",
				base, number, seg.Position, &errors.NotFoundError{Resource: "word", ID: fmt.Sprint(seg.WordID), Err: err})
		default:
			return fmt.Errorf("insert segment %d/%d@%d: %w", base, number, seg.Position, err)
		}
	}
	return nil
}

// FormationsOf returns the stored formations of the word spelled letters,
// ascending by formation number with segments ascending by position. An
// unknown word, or one with no formations, yields no formations and no error.
func (s *Store) FormationsOf(ctx context.Context, letters string) ([]formation.Resolved, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.formation_number, f.position, f.is_inner, f.sub_word_id, sub.letters
		FROM formations f
		JOIN words base ON base.id = f.base_word_id
		JOIN words sub ON sub.id = f.sub_word_id
		WHERE base.letters = ?
		ORDER BY f.formation_number, f.position`, letters)
	if err != nil {
		return nil, fmt.Errorf("query formations of %q: %w", letters, err)
	}
	defer rows.Close()

	var out []formation.Resolved
	for rows.Next() {
		var (
			number int
			seg    formation.ResolvedSegment
			sub    int64
		)
		if err := rows.Scan(&number, &seg.Position, &seg.Inner, &sub, &seg.Letters); err != nil {
			return nil, fmt.Errorf("scan formation of %q: %w", letters, err)
		}
		seg.WordID = lexicon.WordID(sub)
		if len(out) == 0 || out[len(out)-1].Number != number {
			out = append(out, formation.Resolved{Number: number})
		}
		last := &out[len(out)-1]
		last.Segments = append(last.Segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read formations of %q: %w", letters, err)
	}
	return out, nil
}

// EachFormation calls fn for every stored formation, in base word id then
// formation number order. Iteration stops at the first error fn returns.
// fn must not call back into the store: the query holds the connection.
func (s *Store) EachFormation(ctx context.Context, fn func(base lexicon.Word, f formation.Resolved) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT base.id, base.letters, base.gematria_mod9, base.gematria_mod7,
		       f.formation_number, f.position, f.is_inner, f.sub_word_id, sub.letters
		FROM formations f
		JOIN words base ON base.id = f.base_word_id
		JOIN words sub ON sub.id = f.sub_word_id
		ORDER BY f.base_word_id, f.formation_number, f.position`)
	if err != nil {
		return fmt.Errorf("query formations: %w", err)
	}
	defer rows.Close()

	var (
		cur     lexicon.Word
		pending *formation.Resolved
	)
	flush := func() error {
		if pending == nil {
			return nil
		}
		err := fn(cur, *pending)
		pending = nil
		return err
	}

	for rows.Next() {
		var (
			base   lexicon.Word
			baseID int64
			number int
			seg    formation.ResolvedSegment
			sub    int64
		)
		if err := rows.Scan(&baseID, &base.Letters, &base.GematriaMod9, &base.GematriaMod7,
			&number, &seg.Position, &seg.Inner, &sub, &seg.Letters); err != nil {
			return fmt.Errorf("scan formation: %w", err)
		}
		base.ID = lexicon.WordID(baseID)
		seg.WordID = lexicon.WordID(sub)

		if pending == nil || base.ID != cur.ID || number != pending.Number {
			if err := flush(); err != nil {
				return err
			}
			cur = base
			pending = &formation.Resolved{Number: number}
		}
		pending.Segments = append(pending.Segments, seg)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read formations: %w", err)
	}
	return flush()
}

// FormationCount returns how many formations are stored for base.
func (s *Store) FormationCount(ctx context.Context, base lexicon.WordID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(formation_number), 0) FROM formations WHERE base_word_id = ?`,
		int64(base)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count formations of word %d: %w", base, err)
	}
	return n, nil
}
