package store

import (
	"context"
	"fmt"
)

// Status is the state of a run.
type Status string

const (
	StatusRunning Status = "running"
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
)

// Run is one evaluation of a pipeline over a list of inputs.
type Run struct {
	ID          string
	Pipeline    string
	Fingerprint string
	Seq         int64
	Status      Status
	Error       string
}

// Result is one value emitted for an input of a run.
type Result struct {
	RunID string
	Input int
	Seq   int
	Value string
}

// BeginRun records a new running run and returns it.
// The seq of the run is one more than the largest recorded seq.
func (s *Store) BeginRun(ctx context.Context, pipeline, fingerprint string) (Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	run := Run{ID: s.newID(), Pipeline: pipeline, Fingerprint: fingerprint, Status: StatusRunning}
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("begin run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, pipeline, fingerprint, seq, status)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Pipeline, run.Fingerprint, run.Seq, string(run.Status))
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("begin run: commit: %w", err)
	}
	return run, nil
}

// WriteInput records the results of one input of a run in a single
// transaction. Values are stored as canonical JSON in emission order.
//
// Writing the same input twice fails on the primary key.
func (s *Store) WriteInput(ctx context.Context, runID string, input int, source string, values []any) error {
	encoded := make([]string, len(values))
	for i, v := range values {
		text, err := marshalValue(v)
		if err != nil {
			return fmt.Errorf("write input %d: value %d: %w", input, i, err)
		}
		encoded[i] = text
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write input: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO inputs (run_id, idx, source) VALUES (?, ?, ?)
	`, runID, input, source); err != nil {
		return fmt.Errorf("write input %d: %w", input, err)
	}

	for seq, text := range encoded {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO results (run_id, input, seq, value) VALUES (?, ?, ?, ?)
		`, runID, input, seq, text); err != nil {
			return fmt.Errorf("write input %d: result %d: %w", input, seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write input: commit: %w", err)
	}
	return nil
}

// FinishRun marks a run as done. A nil runErr marks it ok, anything else
// marks it failed with the error text.
func (s *Store) FinishRun(ctx context.Context, runID string, runErr error) error {
	status, msg := StatusOK, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ? WHERE id = ? AND status = ?
	`, string(status), msg, runID, string(StatusRunning))
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNotRunning)
	}
	return nil
}
