package store

import (
	"context"
	"fmt"
)

// WriteRun appends a run and its findings to the log and returns the run
// as stored.
//
// The run's seq is one past the highest seq in the log and is assigned in
// the same transaction as the inserts, so concurrent writers never share a
// seq. Findings are numbered 1..n in the given order. An empty run ID is
// filled from the store's IDGenerator.
func (s *Store) WriteRun(ctx context.Context, run Run, findings []Finding) (Run, error) {
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}

	details := make([]string, len(findings))
	for i, f := range findings {
		d, err := marshalDetails(f.Details)
		if err != nil {
			return Run{}, fmt.Errorf("write run: %w", err)
		}
		details[i] = d
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, source, fingerprint, opset, functions)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Source,
		run.Fingerprint,
		run.Opset,
		run.Functions,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	for i, f := range findings {
		short := f.ShortCode
		if short == "" {
			short = f.Code.Short()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO findings
			(run_id, seq, code, short_code, function, op, message, details)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			int64(i+1),
			string(f.Code),
			short,
			f.Function,
			f.Op,
			f.Message,
			details[i],
		)
		if err != nil {
			return Run{}, fmt.Errorf("write finding %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}

	run.Findings = len(findings)
	return run, nil
}
