package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/milir/internal/program"
	"github.com/roach88/milir/internal/store"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	DB string // record the run in this SQLite database
}

// CheckResult is the outcome of checking one description directory.
type CheckResult struct {
	Source      string          `json:"source"`
	Valid       bool            `json:"valid"`
	Opset       string          `json:"opset,omitempty"`
	Functions   []string        `json:"functions,omitempty"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Findings    []store.Finding `json:"findings,omitempty"`

	// Set when the run was recorded.
	RunID string `json:"run_id,omitempty"`
	Seq   int64  `json:"seq,omitempty"`

	// PreviousFingerprint is the fingerprint of the last recorded run of
	// the same source, if any.
	PreviousFingerprint string `json:"previous_fingerprint,omitempty"`
}

// Changed reports whether the program differs from the previous recorded run.
func (r CheckResult) Changed() bool {
	return r.PreviousFingerprint != "" && r.PreviousFingerprint != r.Fingerprint
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <specs-dir>",
		Short: "Compile a program and run every consistency check",
		Long: `Compile a CUE program description and check it for deployment.

Compilation resolves and reconciles opset versions across functions.
The program is then validated (def/use order in every function) and
checked against the target's limits: tensor rank and const inputs.
Every check fails fast; the first violation is reported as a finding.

Exit codes:
  0 - Program is valid
  1 - Findings reported
  2 - Command error (invalid paths, database errors, etc.)

Examples:
  milc check ./model
  milc check ./model --db runs.db
  milc check ./model --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "record the run in this SQLite database")

	return cmd
}

func runCheck(opts *CheckOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	c, err := compileDir(specsDir, formatter)
	if err != nil {
		return loadFailure(formatter, err)
	}

	result := CheckResult{Source: specsDir, Findings: c.Findings}
	if p := c.Program; p != nil {
		result.Opset = p.OpsetVersion().String()
		result.Functions = p.Functions()
		result.Fingerprint = p.Fingerprint()
		if err := checkProgram(p); err != nil {
			result.Findings = append(result.Findings, findingFromError(err))
		}
	}
	result.Valid = len(result.Findings) == 0

	if opts.DB != "" {
		if err := recordCheck(cmd.Context(), opts.DB, &result); err != nil {
			return formatter.commandError(ErrCodeStore, err.Error())
		}
		formatter.VerboseLog("Recorded run %s (seq %d) in %s", result.RunID, result.Seq, opts.DB)
	}

	if formatter.Format == "json" {
		if result.Valid {
			return formatter.Success(result)
		}
		first := result.Findings[0]
		if err := formatter.Failure(result, first.ShortCode, first.Message); err != nil {
			return err
		}
	} else {
		writeCheckText(formatter.Writer, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("check failed with %d finding(s)", len(result.Findings)))
	}
	return nil
}

// checkProgram runs the post-compilation checks in order.
func checkProgram(p *program.Program) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return p.CheckInvalidProgram()
}

// recordCheck writes the result to the run log and fills in the run's
// identity and the fingerprint of the previous run of the same source.
func recordCheck(ctx context.Context, path string, result *CheckResult) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	source := result.Source
	if abs, err := filepath.Abs(source); err == nil {
		source = abs
	}

	prev, err := st.LatestRun(ctx, source)
	switch {
	case err == nil:
		result.PreviousFingerprint = prev.Fingerprint
	case !errors.Is(err, store.ErrRunNotFound):
		return err
	}

	run, err := st.WriteRun(ctx, store.Run{
		Source:      source,
		Fingerprint: result.Fingerprint,
		Opset:       result.Opset,
		Functions:   len(result.Functions),
	}, result.Findings)
	if err != nil {
		return err
	}
	result.RunID = run.ID
	result.Seq = run.Seq
	return nil
}

func writeCheckText(w io.Writer, result CheckResult) {
	if result.Valid {
		fmt.Fprintf(w, "✓ %s: %d function(s) at %s\n", result.Source, len(result.Functions), result.Opset)
	} else {
		fmt.Fprintf(w, "✗ %s: %d finding(s)\n", result.Source, len(result.Findings))
		for _, f := range result.Findings {
			fmt.Fprintf(w, "  %s\n", formatFinding(f))
		}
	}
	if result.Fingerprint != "" {
		fmt.Fprintf(w, "  fingerprint %s\n", result.Fingerprint)
	}
	if result.RunID != "" {
		fmt.Fprintf(w, "  recorded run %s (seq %d)\n", result.RunID, result.Seq)
	}
	if result.Changed() {
		fmt.Fprintf(w, "  program changed since last run (was %s)\n", shortFingerprint(result.PreviousFingerprint))
	}
}

// formatFinding renders a finding as "E206 RANK_UNSUPPORTED [main/big]: message".
func formatFinding(f store.Finding) string {
	s := f.ShortCode
	if f.Code != "" {
		s += " " + string(f.Code)
	}
	if f.Function != "" || f.Op != "" {
		s += fmt.Sprintf(" [%s/%s]", f.Function, f.Op)
	}
	return s + ": " + f.Message
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
