package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/milir/internal/compiler"
	"github.com/roach88/milir/internal/opset"
)

// LintResult holds lint results.
type LintResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewLintCommand creates the lint command.
func NewLintCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lint <specs-dir>",
		Short: "Check a program description without compiling it",
		Long: `Check a CUE program description against the description schema and
the operator catalog without building the IR.

Reports every problem found (unknown opsets, dtypes and operators,
duplicate op names, malformed sections) rather than stopping at the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(rootOpts, args[0], cmd)
		},
	}
}

func runLint(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadSpecs(specsDir)
	if err != nil {
		return loadFailure(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, specsDir)

	errs := compiler.Lint(loaded.Value, opset.Default())
	if len(errs) == 0 {
		if formatter.Format == "json" {
			return formatter.Success(LintResult{Valid: true})
		}
		fmt.Fprintln(formatter.Writer, "✓ Program description valid")
		return nil
	}

	if formatter.Format == "json" {
		if err := formatter.Failure(LintResult{Errors: errs}, errs[0].Code, errs[0].Message); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Lint failed")
		fmt.Fprintln(formatter.Writer)
		for _, e := range errs {
			if e.Line > 0 {
				fmt.Fprintf(formatter.Writer, "line %d\n", e.Line)
			}
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", e.Code, e.Field, e.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("lint failed with %d error(s)", len(errs)))
}
