package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns what it wrote to
// stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func programDir(name string) string {
	return filepath.Join("testdata", name)
}

func TestLoadSpecs(t *testing.T) {
	result, err := LoadSpecs(programDir("attention"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.FileCount)
	assert.True(t, result.Value.LookupPath(cue.ParsePath("function.main")).Exists())
}

func TestLoadSpecsErrors(t *testing.T) {
	notDir := filepath.Join(t.TempDir(), "file.cue")
	require.NoError(t, os.WriteFile(notDir, []byte("package program"), 0o644))

	broken := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(broken, "a.cue"), []byte("package program\nx: {\n"), 0o644))

	tests := []struct {
		name string
		dir  string
		code string
	}{
		{"missing", "/nonexistent/directory/path", ErrCodeNotFound},
		{"not a directory", notDir, ErrCodeNotFound},
		{"empty", t.TempDir(), ErrCodeNoFiles},
		{"syntax error", broken, ErrCodeLoadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSpecs(tt.dir)
			require.Error(t, err)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.code, loadErr.Code)
		})
	}
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.cue"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue"), filepath.Join(dir, "sub", "b.cue")}, files)
}

func TestCompileDir(t *testing.T) {
	f := &OutputFormatter{Format: "text", Writer: &bytes.Buffer{}}

	c, err := compileDir(programDir("multi"), f)
	require.NoError(t, err)
	require.NotNil(t, c.Program)
	assert.Empty(t, c.Findings)
	assert.Equal(t, []string{"encoder", "main"}, c.Program.Functions())
	assert.Equal(t, "iOS17", c.Program.OpsetVersion().String())
}

func TestCompileDirLintFindings(t *testing.T) {
	f := &OutputFormatter{Format: "text", Writer: &bytes.Buffer{}}

	c, err := compileDir(programDir("lint"), f)
	require.NoError(t, err)
	assert.Nil(t, c.Program)
	require.Len(t, c.Findings, 2)
	assert.Equal(t, "E121", c.Findings[0].ShortCode)
	assert.Equal(t, "E122", c.Findings[1].ShortCode)
	assert.Empty(t, c.Findings[0].Code)
}

func TestCompileDirKeepsSourcePosition(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p.cue"), []byte(`package program

function: main: {
	inputs: x: {shape: [1]}
	outputs: ["nope"]
}
`), 0o644))
	f := &OutputFormatter{Format: "text", Writer: &bytes.Buffer{}}

	c, err := compileDir(dir, f)
	require.NoError(t, err)
	assert.Nil(t, c.Program)
	require.Len(t, c.Findings, 1)
	assert.Contains(t, c.Findings[0].Message, "p.cue:")
	assert.Contains(t, c.Findings[0].Message, `"nope" is not defined in scope`)
}

func TestVerboseLogsToStderr(t *testing.T) {
	cmd := NewRootCommand()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{"--verbose", "--format", "json", "print", programDir("attention")})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, errOut.String(), "Found 1 CUE file(s)")
	assert.Contains(t, errOut.String(), "opset resolved")
	assert.NotContains(t, out.String(), "Found 1 CUE file(s)")
}
