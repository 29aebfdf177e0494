package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/milir/internal/diag"
)

const runColumns = `
	r.id, r.seq, r.source, r.fingerprint, r.opset, r.functions,
	(SELECT COUNT(*) FROM findings f WHERE f.run_id = r.id)
`

// ReadRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run.
//
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ReadRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs r ORDER BY r.seq DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns the run with the given ID, or ErrRunNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %q: %w", id, ErrRunNotFound)
	}
	return run, err
}

// LatestRun returns the newest run recorded for source, or ErrRunNotFound.
func (s *Store) LatestRun(ctx context.Context, source string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs r
		WHERE r.source = ?
		ORDER BY r.seq DESC
		LIMIT 1
	`, source)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("source %q: %w", source, ErrRunNotFound)
	}
	return run, err
}

// ReadFindings returns the findings of a run in detection order.
//
// Returns an empty slice (not nil) if the run has no findings.
func (s *Store) ReadFindings(ctx context.Context, runID string) ([]Finding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, code, short_code, function, op, message, details
		FROM findings
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	findings := []Finding{}
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate findings: %w", err)
	}
	return findings, nil
}

// CountByCode returns how many findings of each code the log holds.
func (s *Store) CountByCode(ctx context.Context) (map[diag.Code]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, COUNT(*)
		FROM findings
		GROUP BY code
		ORDER BY code COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query finding counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[diag.Code]int)
	for rows.Next() {
		var (
			code string
			n    int
		)
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scan finding count: %w", err)
		}
		counts[diag.Code(code)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate finding counts: %w", err)
	}
	return counts, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	err := sc.Scan(&run.ID, &run.Seq, &run.Source, &run.Fingerprint, &run.Opset, &run.Functions, &run.Findings)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

// scanFinding reads a row of run_id, seq, code, short_code, function, op,
// message, details.
func scanFinding(sc scanner) (Finding, error) {
	var (
		f       Finding
		code    string
		details string
	)
	if err := sc.Scan(&f.RunID, &f.Seq, &code, &f.ShortCode, &f.Function, &f.Op, &f.Message, &details); err != nil {
		return Finding{}, fmt.Errorf("scan finding: %w", err)
	}
	f.Code = diag.Code(code)
	var err error
	if f.Details, err = unmarshalDetails(details); err != nil {
		return Finding{}, err
	}
	return f, nil
}
