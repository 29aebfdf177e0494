package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/milir/internal/diag"
)

// FindingFilter selects findings across runs. Zero-valued fields match
// everything.
type FindingFilter struct {
	Code     diag.Code
	Function string
	Op       string
	Source   string // source of the run the finding belongs to
	Limit    int    // zero or less returns every match
}

// compile renders the filter as a parameterized query. Values are never
// interpolated, and the ORDER BY is total: newest run first, then
// detection order within a run.
func (f FindingFilter) compile() (string, []any) {
	var (
		preds  []string
		params []any
	)
	add := func(column string, value string) {
		if value == "" {
			return
		}
		preds = append(preds, column+" = ?")
		params = append(params, value)
	}
	add("f.code", string(f.Code))
	add("f.function", f.Function)
	add("f.op", f.Op)
	add("r.source", f.Source)

	var sb strings.Builder
	sb.WriteString(`SELECT f.run_id, f.seq, f.code, f.short_code, f.function, f.op, f.message, f.details
		FROM findings f JOIN runs r ON r.id = f.run_id`)
	if len(preds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(preds, " AND "))
	}
	sb.WriteString(" ORDER BY r.seq DESC, f.seq ASC")
	if f.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		params = append(params, f.Limit)
	}
	return sb.String(), params
}

// QueryFindings returns the findings matching filter.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) QueryFindings(ctx context.Context, filter FindingFilter) ([]Finding, error) {
	query, params := filter.compile()
	rows, err := s.db.QueryContext(ctx, query, params...)
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
