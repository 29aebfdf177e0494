package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/milir/internal/compiler"
	"github.com/roach88/milir/internal/diag"
	"github.com/roach88/milir/internal/ir"
	"github.com/roach88/milir/internal/opset"
	"github.com/roach88/milir/internal/program"
	"github.com/roach88/milir/internal/store"
	"github.com/roach88/milir/internal/testutil"
)

// CodeCompile is the result code of a compile error that carries no
// diagnostic code, such as a reference to an undefined var.
const CodeCompile = "COMPILE"

// Harness runs scenarios in isolation: a fresh symbol session, a fresh
// operator catalog and an in-memory store per scenario.
type Harness struct {
	store   *store.Store
	session *ir.Session
	catalog *opset.Catalog
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load and unify the CUE specs
// 2. Lint the description; lint errors end the run
// 3. Compile the program (opset reconciliation happens here)
// 4. Validate every function, then CheckInvalidProgram
// 5. Record the run and its findings in the store, then read them back
// 6. Evaluate expectations and assertions
//
// The returned error reports harness failures (unreadable specs, store
// errors); program failures are part of the result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequentialIDGenerator(scenario.Name)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		store:   st,
		session: ir.NewSession(ir.WithSessionLogger(logger)),
		catalog: opset.Default(),
		logger:  logger,
	}

	v, err := loadSpecs(scenario.Specs)
	if err != nil {
		return nil, fmt.Errorf("failed to load specs: %w", err)
	}

	ctx := context.Background()
	result := NewResult()
	p, findings := h.check(v, result)
	if err := h.record(ctx, scenario.Name, p, findings, result); err != nil {
		return nil, err
	}

	for _, msg := range evaluateExpect(result, scenario.Expect) {
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(p, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// check lints, compiles and checks v. The program is nil when it did not
// compile.
func (h *Harness) check(v cue.Value, result *Result) (*program.Program, []store.Finding) {
	if lintErrs := compiler.Lint(v, h.catalog); len(lintErrs) > 0 {
		findings := make([]store.Finding, len(lintErrs))
		for i, le := range lintErrs {
			findings[i] = store.Finding{ShortCode: le.Code, Message: le.Error()}
		}
		result.Code = lintErrs[0].Code
		result.Message = lintErrs[0].Error()
		return nil, findings
	}

	p, err := compiler.CompileProgram(v, h.session, h.catalog, program.WithLogger(h.logger))
	if err != nil {
		result.Code = failureCode(err)
		result.Message = err.Error()
		return nil, []store.Finding{store.FindingFromError(err)}
	}

	result.Opset = p.OpsetVersion().String()
	result.Functions = p.Functions()
	result.Rendering = p.String()
	result.Fingerprint = p.Fingerprint()

	for _, check := range []func() error{p.Validate, p.CheckInvalidProgram} {
		if err := check(); err != nil {
			result.Code = failureCode(err)
			result.Message = err.Error()
			return p, []store.Finding{store.FindingFromError(err)}
		}
	}
	result.Valid = true
	return p, nil
}

func (h *Harness) record(ctx context.Context, source string, p *program.Program, findings []store.Finding, result *Result) error {
	run := store.Run{Source: source}
	if p != nil {
		run.Fingerprint = result.Fingerprint
		run.Opset = result.Opset
		run.Functions = len(result.Functions)
	}
	written, err := h.store.WriteRun(ctx, run, findings)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	result.Findings, err = h.store.ReadFindings(ctx, written.ID)
	if err != nil {
		return fmt.Errorf("failed to read findings: %w", err)
	}
	return nil
}

func failureCode(err error) string {
	if code := diag.CodeOf(err); code != "" {
		return string(code)
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return CodeCompile
	}
	return diag.Code("").Short()
}

// loadSpecs compiles each file and unifies the results.
func loadSpecs(paths []string) (cue.Value, error) {
	if len(paths) == 0 {
		return cue.Value{}, errors.New("no spec files")
	}
	ctx := cuecontext.New()
	var out cue.Value
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, fmt.Errorf("read %s: %w", path, err)
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return cue.Value{}, fmt.Errorf("compile %s: %w", path, err)
		}
		if i == 0 {
			out = v
			continue
		}
		out = out.Unify(v)
	}
	if err := out.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("unify specs: %w", err)
	}
	return out, nil
}
