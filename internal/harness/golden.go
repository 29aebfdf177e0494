package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders the parts of a result that golden files pin down:
//
//	# opset: iOS16
//	# fingerprint: 3f2a...
//	function main[iOS16](%x: tensor<fp32, [1, H]>) {
//	  ...
//	} -> (%y)
//	# findings: none
//
// Findings are listed one per line as "<short code> <code> [function/op]: message".
func Snapshot(result *Result) []byte {
	var sb strings.Builder
	if result.Opset != "" {
		fmt.Fprintf(&sb, "# opset: %s\n", result.Opset)
		fmt.Fprintf(&sb, "# fingerprint: %s\n", result.Fingerprint)
	}
	sb.WriteString(result.Rendering)

	if len(result.Findings) == 0 {
		sb.WriteString("# findings: none\n")
		return []byte(sb.String())
	}
	sb.WriteString("# findings:\n")
	for _, f := range result.Findings {
		fmt.Fprintf(&sb, "%s", f.ShortCode)
		if f.Code != "" {
			fmt.Fprintf(&sb, " %s", f.Code)
		}
		if f.Function != "" || f.Op != "" {
			fmt.Fprintf(&sb, " [%s/%s]", f.Function, f.Op)
		}
		fmt.Fprintf(&sb, ": %s\n", f.Message)
	}
	return []byte(sb.String())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the snapshot of an existing result against the
// golden file named name.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(result))
}
