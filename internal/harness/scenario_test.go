package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenarioResolvesSpecPaths(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "multi_function.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "multi_function", s.Name)
	assert.Equal(t, []string{
		filepath.Join("testdata", "programs", "encoder.cue"),
		filepath.Join("testdata", "programs", "main.cue"),
	}, s.Specs)
	assert.True(t, s.Expect.Valid)
	assert.Equal(t, []string{"encoder", "main"}, s.Expect.Functions)
	require.Len(t, s.Assertions, 2)
	assert.Equal(t, AssertFunctionOpset, s.Assertions[0].Type)
}

func TestLoadScenarioErrors(t *testing.T) {
	dir := t.TempDir()
	spec := filepath.Join(dir, "p.cue")
	require.NoError(t, os.WriteFile(spec, []byte(`function: main: {}`), 0o644))

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "unknown field",
			content: "name: a\ndescription: d\nspecs: [p.cue]\nexpect: {valid: true}\nexpectations: {}\n",
			want:    "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "description: d\nspecs: [p.cue]\nexpect: {valid: true}\n",
			want:    "name is required",
		},
		{
			name:    "missing description",
			content: "name: a\nspecs: [p.cue]\nexpect: {valid: true}\n",
			want:    "description is required",
		},
		{
			name:    "no specs",
			content: "name: a\ndescription: d\nexpect: {valid: true}\n",
			want:    "specs list is required",
		},
		{
			name:    "missing spec file",
			content: "name: a\ndescription: d\nspecs: [nope.cue]\nexpect: {valid: true}\n",
			want:    "spec file not found",
		},
		{
			name:    "invalid without code",
			content: "name: a\ndescription: d\nspecs: [p.cue]\nexpect: {valid: false}\n",
			want:    "code is required when valid is false",
		},
		{
			name:    "valid with code",
			content: "name: a\ndescription: d\nspecs: [p.cue]\nexpect: {valid: true, code: E122}\n",
			want:    "code must be empty when valid is true",
		},
		{
			name:    "unknown assertion type",
			content: "name: a\ndescription: d\nspecs: [p.cue]\nexpect: {valid: true}\nassertions: [{type: trace_order}]\n",
			want:    `unknown assertion type "trace_order"`,
		},
		{
			name:    "find_ops without query",
			content: "name: a\ndescription: d\nspecs: [p.cue]\nexpect: {valid: true}\nassertions: [{type: find_ops, count: 1}]\n",
			want:    "prefix or op_type is required",
		},
		{
			name:    "op_version without version",
			content: "name: a\ndescription: d\nspecs: [p.cue]\nexpect: {valid: true}\nassertions: [{type: op_version, op: x}]\n",
			want:    "op and version are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, dir, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
