package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/milir/internal/compiler"
	"github.com/roach88/milir/internal/ir"
	"github.com/roach88/milir/internal/opset"
	"github.com/roach88/milir/internal/program"
	"github.com/roach88/milir/internal/store"
)

// LoadResult contains the CUE value built from a description directory.
type LoadResult struct {
	Value     cue.Value
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred while loading a directory.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants for command-level failures. Program findings use
// the E12x lint codes and the E2xx diagnostic codes instead.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Run database error
	ErrCodeScenario    = "E009" // Conformance scenarios failed
)

// LoadSpecs loads the CUE package in dir and builds its value.
func LoadSpecs(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	return &LoadResult{Value: value, FileCount: len(cueFiles)}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// compiled is the outcome of linting and compiling a directory. Program
// is nil when the description failed lint or compilation; the failure is
// then the only finding.
type compiled struct {
	Program   *program.Program
	Findings  []store.Finding
	FileCount int
}

// compileDir loads, lints and compiles the description in dir. The
// returned error is a *LoadError; program failures become findings.
func compileDir(dir string, f *OutputFormatter) (*compiled, error) {
	loaded, err := LoadSpecs(dir)
	if err != nil {
		return nil, err
	}
	f.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	out := &compiled{FileCount: loaded.FileCount}
	cat := opset.Default()
	if lintErrs := compiler.Lint(loaded.Value, cat); len(lintErrs) > 0 {
		out.Findings = lintFindings(lintErrs)
		return out, nil
	}

	logger := f.Logger()
	sess := ir.NewSession(ir.WithSessionLogger(logger))
	p, err := compiler.CompileProgram(loaded.Value, sess, cat, program.WithLogger(logger))
	if err != nil {
		out.Findings = []store.Finding{findingFromError(err)}
		return out, nil
	}
	f.VerboseLog("Compiled %d function(s) at %s", len(p.Functions()), p.OpsetVersion())
	out.Program = p
	return out, nil
}

func lintFindings(errs []compiler.ValidationError) []store.Finding {
	findings := make([]store.Finding, len(errs))
	for i, le := range errs {
		findings[i] = store.Finding{ShortCode: le.Code, Message: le.Error()}
	}
	return findings
}

// findingFromError keeps the source position of compile errors in the
// finding's message.
func findingFromError(err error) store.Finding {
	finding := store.FindingFromError(err)
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		finding.Message = ce.Error()
	}
	return finding
}

// loadFailure reports a LoadSpecs error as a command error.
func loadFailure(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return f.commandError(loadErr.Code, loadErr.Message)
	}
	return f.commandError(ErrCodeGeneric, err.Error())
}

// compileFailure reports the findings of a description that did not
// compile, for commands that need a program to answer.
func compileFailure(f *OutputFormatter, findings []store.Finding) error {
	first := findings[0]
	if f.Format == "json" {
		if err := f.Failure(findings, first.ShortCode, first.Message); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(f.Writer, "✗ Compilation failed")
		for _, finding := range findings {
			fmt.Fprintf(f.Writer, "  %s\n", formatFinding(finding))
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("compilation failed with %d finding(s)", len(findings)))
}
