package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/milir/internal/program"
	"github.com/roach88/milir/internal/store"
)

// FindOptions holds flags for the find command.
type FindOptions struct {
	*RootOptions
	Prefix     string
	OpType     string
	ExactlyOne bool
}

// FoundOp describes one matching operation.
type FoundOp struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Version string   `json:"version,omitempty"`
	Def     string   `json:"def"`
	Outputs []string `json:"outputs,omitempty"`
}

// FindResult lists the operations matching a query.
type FindResult struct {
	Ops []FoundOp `json:"ops"`
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find <specs-dir>",
		Short: "Find operations by name prefix and type",
		Long: `Compile a CUE program description and list the operations whose name
starts with --prefix and whose type is --type, across all functions and
nested blocks. With neither flag every operation is listed.

With --exactly-one the query fails unless exactly one operation matches.

Examples:
  milc find ./model --type scaled_dot_product_attention
  milc find ./model --prefix attn_ --exactly-one`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "operation name prefix")
	cmd.Flags().StringVar(&opts.OpType, "type", "", "operation type")
	cmd.Flags().BoolVar(&opts.ExactlyOne, "exactly-one", false, "fail unless exactly one operation matches")

	return cmd
}

func runFind(opts *FindOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	c, err := compileDir(specsDir, formatter)
	if err != nil {
		return loadFailure(formatter, err)
	}
	if c.Program == nil {
		return compileFailure(formatter, c.Findings)
	}

	ops, err := c.Program.FindOps(program.FindQuery{
		Prefix:     opts.Prefix,
		OpType:     opts.OpType,
		ExactlyOne: opts.ExactlyOne,
	})
	if err != nil {
		finding := store.FindingFromError(err)
		if formatter.Format == "json" {
			if err := formatter.Failure(finding, finding.ShortCode, finding.Message); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %s\n", formatFinding(finding))
		}
		return WrapExitError(ExitFailure, "query failed", err)
	}

	result := FindResult{Ops: make([]FoundOp, len(ops))}
	for i, op := range ops {
		found := FoundOp{
			Name: op.Name(),
			Type: op.OpType(),
			Def:  op.Def().String(),
		}
		if op.IsVersioned() {
			found.Version = op.Version().String()
		}
		for _, out := range op.Outputs() {
			found.Outputs = append(found.Outputs, out.String())
		}
		result.Ops[i] = found
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if len(result.Ops) == 0 {
		fmt.Fprintln(formatter.Writer, "No matching ops.")
		return nil
	}
	for _, op := range result.Ops {
		fmt.Fprintf(formatter.Writer, "%s\t%s\n", op.Name, op.Def)
	}
	return nil
}
