package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/milir/internal/diag"
	"github.com/roach88/milir/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB      string
	Limit   int
	RunID   string
	Summary bool

	// Code and Function select findings across runs.
	Code     string
	Function string
}

// RunDetail is one recorded run with its findings.
type RunDetail struct {
	Run      store.Run       `json:"run"`
	Findings []store.Finding `json:"findings"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show checks recorded with check --db",
		Long: `List the check runs recorded in a run database, newest first.

With --run the findings of a single run are shown. With --summary the
findings of every run are counted by diagnostic code. With --code or
--function the matching findings of all runs are listed, newest first.

Examples:
  milc history --db runs.db
  milc history --db runs.db --limit 5
  milc history --db runs.db --run 01928c7e-...
  milc history --db runs.db --summary --format json
  milc history --db runs.db --code RANK_UNSUPPORTED`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to the run database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the findings of this run")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "count findings by code")
	cmd.Flags().StringVar(&opts.Code, "code", "", "list findings with this diagnostic code")
	cmd.Flags().StringVar(&opts.Function, "function", "", "list findings in this function")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(opts.DB); os.IsNotExist(err) {
		return formatter.commandError(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.DB))
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		return formatter.commandError(ErrCodeStore, err.Error())
	}
	defer st.Close()

	ctx := cmd.Context()
	switch {
	case opts.RunID != "":
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrRunNotFound) {
			return formatter.commandError(ErrCodeNotFound, err.Error())
		}
		if err != nil {
			return formatter.commandError(ErrCodeStore, err.Error())
		}
		findings, err := st.ReadFindings(ctx, run.ID)
		if err != nil {
			return formatter.commandError(ErrCodeStore, err.Error())
		}
		return outputRunDetail(formatter, RunDetail{Run: run, Findings: findings})

	case opts.Code != "" || opts.Function != "":
		findings, err := st.QueryFindings(ctx, store.FindingFilter{
			Code:     diag.Code(opts.Code),
			Function: opts.Function,
			Limit:    opts.Limit,
		})
		if err != nil {
			return formatter.commandError(ErrCodeStore, err.Error())
		}
		return outputFindings(formatter, findings)

	case opts.Summary:
		counts, err := st.CountByCode(ctx)
		if err != nil {
			return formatter.commandError(ErrCodeStore, err.Error())
		}
		return outputSummary(formatter, counts)

	default:
		runs, err := st.ReadRuns(ctx, opts.Limit)
		if err != nil {
			return formatter.commandError(ErrCodeStore, err.Error())
		}
		return outputRuns(formatter, runs)
	}
}

func outputRuns(f *OutputFormatter, runs []store.Run) error {
	if f.Format == "json" {
		return f.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No runs recorded.")
		return nil
	}
	for _, run := range runs {
		status := "✓"
		if !run.Clean() {
			status = "✗"
		}
		fmt.Fprintf(f.Writer, "%s #%d %s %s", status, run.Seq, run.ID, run.Source)
		if run.Opset != "" {
			fmt.Fprintf(f.Writer, " %s %s", run.Opset, shortFingerprint(run.Fingerprint))
		}
		fmt.Fprintf(f.Writer, " (%d finding(s))\n", run.Findings)
	}
	return nil
}

func outputRunDetail(f *OutputFormatter, detail RunDetail) error {
	if f.Format == "json" {
		return f.Success(detail)
	}
	run := detail.Run
	fmt.Fprintf(f.Writer, "Run %s (seq %d)\n", run.ID, run.Seq)
	fmt.Fprintf(f.Writer, "  source: %s\n", run.Source)
	if run.Opset != "" {
		fmt.Fprintf(f.Writer, "  opset: %s, %d function(s)\n", run.Opset, run.Functions)
		fmt.Fprintf(f.Writer, "  fingerprint: %s\n", run.Fingerprint)
	}
	if len(detail.Findings) == 0 {
		fmt.Fprintln(f.Writer, "  no findings")
		return nil
	}
	for _, finding := range detail.Findings {
		fmt.Fprintf(f.Writer, "  %d. %s\n", finding.Seq, formatFinding(finding))
	}
	return nil
}

func outputFindings(f *OutputFormatter, findings []store.Finding) error {
	if f.Format == "json" {
		return f.Success(findings)
	}
	if len(findings) == 0 {
		fmt.Fprintln(f.Writer, "No matching findings.")
		return nil
	}
	for _, finding := range findings {
		fmt.Fprintf(f.Writer, "%s  %s\n", finding.RunID, formatFinding(finding))
	}
	return nil
}

func outputSummary(f *OutputFormatter, counts map[diag.Code]int) error {
	if f.Format == "json" {
		return f.Success(counts)
	}
	if len(counts) == 0 {
		fmt.Fprintln(f.Writer, "No findings recorded.")
		return nil
	}
	codes := make([]diag.Code, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		label := string(code)
		if code == "" {
			label = "(lint)"
		}
		fmt.Fprintf(f.Writer, "%-22s %s %d\n", label, code.Short(), counts[code])
	}
	return nil
}
