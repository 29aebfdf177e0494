package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"opset": "iOS16"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"opset": "iOS16"}, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("E205", "opset of op too low", map[string]string{"op": "g"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E205", resp.Error.Code)
	assert.Equal(t, "opset of op too low", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_JSONFailureCarriesData(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Failure([]string{"f1"}, "E206", "rank too high"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, []any{"f1"}, resp.Data)
	assert.Equal(t, "E206", resp.Error.Code)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, formatter.Error("E005", "specs directory not found", map[string]string{"dir": "x"}))
			assert.Contains(t, buf.String(), "Error [E005]: specs directory not found")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details:")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_VerboseLogGoesToErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	formatter.VerboseLog("Found %d CUE file(s)", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "Found 2 CUE file(s)\n", errOut.String())

	formatter.Verbose = false
	formatter.VerboseLog("hidden")
	assert.NotContains(t, errOut.String(), "hidden")
}

func TestOutputFormatter_LoggerLevel(t *testing.T) {
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{Writer: &bytes.Buffer{}, ErrWriter: errOut}

	formatter.Logger().Debug("opset resolved")
	formatter.Logger().Warn("symbol name already occupied, renaming")
	assert.NotContains(t, errOut.String(), "opset resolved")
	assert.Contains(t, errOut.String(), "symbol name already occupied")

	formatter.Verbose = true
	formatter.Logger().Debug("opset resolved")
	assert.Contains(t, errOut.String(), "opset resolved")
}

func TestCommandErrorExitCode(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.commandError(ErrCodeNotFound, "specs directory not found: x")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "E005: specs directory not found: x", err.Error())
	assert.Contains(t, buf.String(), "Error [E005]")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "x"))))

	wrapped := WrapExitError(ExitFailure, "check failed", errors.New("rank"))
	assert.Equal(t, "check failed: rank", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "rank")
}
