package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/milir/internal/diag"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

// =============================================================================
// Conformance scenarios
// =============================================================================

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestGoldenSnapshots(t *testing.T) {
	for _, name := range []string{"attention", "rank"} {
		t.Run(name, func(t *testing.T) {
			_, err := RunWithGolden(t, loadTestScenario(t, name))
			require.NoError(t, err)
		})
	}
}

// =============================================================================
// Results
// =============================================================================

func TestRunValidProgram(t *testing.T) {
	result, err := Run(loadTestScenario(t, "attention"))
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Code)
	assert.Equal(t, "iOS18", result.Opset)
	assert.Equal(t, []string{"main"}, result.Functions)
	assert.Len(t, result.Fingerprint, 64)
	assert.Contains(t, result.Rendering, "scaled_dot_product_attention@iOS18(")
	assert.Empty(t, result.Findings)
}

func TestRunRecordsFindings(t *testing.T) {
	result, err := Run(loadTestScenario(t, "runtime_shape"))
	require.NoError(t, err)

	assert.False(t, result.Valid)
	require.Len(t, result.Findings, 1)
	f := result.Findings[0]
	assert.Equal(t, "runtime_shape-1", f.RunID)
	assert.Equal(t, diag.CodeConstViolation, f.Code)
	assert.Equal(t, "r", f.Op)
	assert.Equal(t, map[string]string{"slot": "shape", "var": "s", "producer": "graph input"}, f.Details)
}

func TestRunLintFailure(t *testing.T) {
	result, err := Run(loadTestScenario(t, "unknown_op"))
	require.NoError(t, err)

	assert.Equal(t, "E122", result.Code)
	assert.Empty(t, result.Opset, "lint failures stop before compiling")
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "E122", result.Findings[0].ShortCode)
}

func TestRunCompileErrorWithoutDiagnosticCode(t *testing.T) {
	dir := t.TempDir()
	spec := filepath.Join(dir, "p.cue")
	require.NoError(t, os.WriteFile(spec, []byte(`function: main: {
	inputs: x: {shape: [1]}
	outputs: ["nope"]
}`), 0o644))

	result, err := Run(&Scenario{
		Name:   "undefined_output",
		Specs:  []string{spec},
		Expect: Expect{Code: CodeCompile},
	})
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Contains(t, result.Message, `"nope" is not defined in scope`)
}

func TestRunReportsUnmetExpectations(t *testing.T) {
	scenario := loadTestScenario(t, "attention")
	scenario.Expect.Opset = "iOS16"
	scenario.Expect.Functions = []string{"main", "other"}
	scenario.Assertions = append(scenario.Assertions,
		Assertion{Type: AssertFindOps, OpType: "relu", Count: 2},
		Assertion{Type: AssertOpVersion, Op: "missing", Version: "iOS18"},
		Assertion{Type: AssertFunctionOpset, Function: "other", Version: "iOS18"},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "Assertion failed: opset")
	assert.Contains(t, result.Errors[1], "Assertion failed: functions")
	assert.Contains(t, result.Errors[2], "1 op(s) [q]")
	assert.Contains(t, result.Errors[3], "op not found")
	assert.Contains(t, result.Errors[4], "NOT_FOUND")
}

func TestRunAssertionsNeedAProgram(t *testing.T) {
	scenario := loadTestScenario(t, "too_low")
	scenario.Assertions = []Assertion{{Type: AssertFindOps, Prefix: "g", Count: 1}}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "compilation failed")
}

func TestRunMissingSpec(t *testing.T) {
	_, err := Run(&Scenario{Name: "x", Specs: []string{filepath.Join(t.TempDir(), "missing.cue")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load specs")
}

func TestSnapshotListsFindings(t *testing.T) {
	result, err := Run(loadTestScenario(t, "unknown_op"))
	require.NoError(t, err)

	got := string(Snapshot(result))
	assert.NotContains(t, got, "# opset:")
	assert.Contains(t, got, "# findings:\nE122: [E122] line ")
}
