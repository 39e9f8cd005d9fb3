package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/formations/core/errors"
)

// timeLayout is fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunStatus is the state of a decomposition run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// Run records one decomposition pass over the registry.
type Run struct {
	ID            string     `json:"id"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	LexiconDigest string     `json:"lexicon_digest"`
	Words         int        `json:"words"`
	Formations    int        `json:"formations"`
	Skipped       int        `json:"skipped"`
	Failures      int        `json:"failures"`
	Status        RunStatus  `json:"status"`
	Error         string     `json:"error,omitempty"`
}

// CreateRun starts a run against the registry with the given digest.
func (s *Store) CreateRun(ctx context.Context, digest string) (*Run, error) {
	run := &Run{
		ID:            uuid.New().String(),
		StartedAt:     time.Now().UTC(),
		LexiconDigest: digest,
		Status:        RunStatusRunning,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, lexicon_digest, status) VALUES (?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(timeLayout), run.LexiconDigest, string(run.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun stores the final counters and status of run.
func (s *Store) CompleteRun(ctx context.Context, run *Run) error {
	now := time.Now().UTC()
	run.CompletedAt = &now
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET completed_at = ?, words = ?, formations = ?, skipped = ?, failures = ?, status = ?, error = ?
		 WHERE id = ?`,
		now.Format(timeLayout), run.Words, run.Formations, run.Skipped, run.Failures,
		string(run.Status), run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("failed to complete run %s: %w", run.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFound("run", run.ID)
	}
	return nil
}

const runColumns = `id, started_at, completed_at, lexicon_digest, words, formations, skipped, failures, status, error`

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("run", id)
	}
	return run, err
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT 1`))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("run", "latest")
	}
	return run, err
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run       Run
		started   string
		completed sql.NullString
		status    string
	)
	err := sc.Scan(&run.ID, &started, &completed, &run.LexiconDigest, &run.Words, &run.Formations,
		&run.Skipped, &run.Failures, &status, &run.Error)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.Status = RunStatus(status)
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("run %s: bad started_at: %w", run.ID, err)
	}
	if completed.Valid {
		t, err := time.Parse(timeLayout, completed.String)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad completed_at: %w", run.ID, err)
		}
		run.CompletedAt = &t
	}
	return &run, nil
}
