package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/milir/internal/store"
)

// PrintOptions holds flags for the print command.
type PrintOptions struct {
	*RootOptions
	Function string // print only this function
}

// PrintResult holds the textual form of a compiled program.
type PrintResult struct {
	Opset       string   `json:"opset"`
	Fingerprint string   `json:"fingerprint"`
	Functions   []string `json:"functions"`
	Rendering   string   `json:"rendering"`
}

// NewPrintCommand creates the print command.
func NewPrintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PrintOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "print <specs-dir>",
		Short: "Print the textual form of a compiled program",
		Long: `Compile a CUE program description and print every function in
insertion order, with the reconciled opset and the program fingerprint.

The fingerprint is stable across runs and changes whenever the rendering
changes, so it can be compared between checkouts.

Examples:
  milc print ./model
  milc print ./model --function encoder
  milc print ./model --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrint(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Function, "function", "", "print only the named function")

	return cmd
}

func runPrint(opts *PrintOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	c, err := compileDir(specsDir, formatter)
	if err != nil {
		return loadFailure(formatter, err)
	}
	if c.Program == nil {
		return compileFailure(formatter, c.Findings)
	}
	p := c.Program

	result := PrintResult{
		Opset:       p.OpsetVersion().String(),
		Fingerprint: p.Fingerprint(),
		Functions:   p.Functions(),
		Rendering:   p.String(),
	}
	if opts.Function != "" {
		fn, err := p.Function(opts.Function)
		if err != nil {
			return compileFailure(formatter, []store.Finding{store.FindingFromError(err)})
		}
		result.Functions = []string{opts.Function}
		result.Rendering = fn.Render(opts.Function)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "# opset: %s\n", result.Opset)
	fmt.Fprintf(formatter.Writer, "# fingerprint: %s\n", result.Fingerprint)
	fmt.Fprint(formatter.Writer, result.Rendering)
	return nil
}
