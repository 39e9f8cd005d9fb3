package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FocuswithJustin/formations/core/lexicon"
)

// Gloss is one entry of the external lexical index, keyed by Strong's number.
type Gloss struct {
	EntryID string `json:"entry_id,omitempty"`
	Strong  string `json:"strong"`
	Xlit    string `json:"xlit,omitempty"`
	POS     string `json:"pos,omitempty"`
	Def     string `json:"def,omitempty"`
}

// ReplaceGlosses swaps the whole gloss table for gs.
func (s *Store) ReplaceGlosses(ctx context.Context, gs []Gloss) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lexicon`); err != nil {
			return fmt.Errorf("clear lexicon: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO lexicon (entry_id, strong, xlit, pos, def) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare gloss insert: %w", err)
		}
		defer stmt.Close()

		for _, g := range gs {
			if _, err := stmt.ExecContext(ctx, g.EntryID, g.Strong, g.Xlit, g.POS, g.Def); err != nil {
				return fmt.Errorf("insert gloss %s: %w", g.Strong, err)
			}
		}
		return nil
	})
}

// WordInfo describes one registered word for the query path.
type WordInfo struct {
	lexicon.Word
	Occurrences int     `json:"occurrences"`
	Formations  int     `json:"formations"`
	Glosses     []Gloss `json:"glosses"`
}

// WordInfo gathers a word's codes, corpus frequency, formation count and
// the glosses of every Strong's number it occurs under.
func (s *Store) WordInfo(ctx context.Context, letters string) (WordInfo, error) {
	w, err := s.WordByLetters(ctx, letters)
	if err != nil {
		return WordInfo{}, err
	}
	info := WordInfo{Word: w, Glosses: []Gloss{}}

	if info.Occurrences, err = s.Occurrences(ctx, w.ID); err != nil {
		return WordInfo{}, err
	}
	if info.Formations, err = s.FormationCount(ctx, w.ID); err != nil {
		return WordInfo{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT l.entry_id, l.strong, l.xlit, l.pos, l.def
		FROM lexicon l
		WHERE l.strong IN (SELECT DISTINCT strong FROM verses WHERE word_id = ? AND strong <> '')
		ORDER BY l.strong, l.idx`, int64(w.ID))
	if err != nil {
		return WordInfo{}, fmt.Errorf("query glosses of %q: %w", letters, err)
	}
	defer rows.Close()

	for rows.Next() {
		var g Gloss
		if err := rows.Scan(&g.EntryID, &g.Strong, &g.Xlit, &g.POS, &g.Def); err != nil {
			return WordInfo{}, fmt.Errorf("scan gloss: %w", err)
		}
		info.Glosses = append(info.Glosses, g)
	}
	return info, rows.Err()
}
