package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/milir/internal/program"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// evaluateExpect compares the observed outcome with expect.
func evaluateExpect(result *Result, expect Expect) []string {
	var errs []string

	if result.Valid != expect.Valid {
		actual := "valid"
		if !result.Valid {
			actual = fmt.Sprintf("invalid (%s: %s)", result.Code, result.Message)
		}
		errs = append(errs, (&AssertionError{
			Type:     "valid",
			Expected: fmt.Sprintf("valid=%t", expect.Valid),
			Actual:   actual,
		}).Error())
	}

	if expect.Code != "" && result.Code != expect.Code {
		errs = append(errs, (&AssertionError{
			Type:     "code",
			Expected: expect.Code,
			Actual:   fmt.Sprintf("%q", result.Code),
		}).Error())
	}

	if expect.Opset != "" && result.Opset != expect.Opset {
		errs = append(errs, (&AssertionError{
			Type:     "opset",
			Expected: expect.Opset,
			Actual:   fmt.Sprintf("%q", result.Opset),
		}).Error())
	}

	if expect.Functions != nil && !slices.Equal(result.Functions, expect.Functions) {
		errs = append(errs, (&AssertionError{
			Type:     "functions",
			Expected: fmt.Sprintf("%v", expect.Functions),
			Actual:   fmt.Sprintf("%v", result.Functions),
		}).Error())
	}

	return errs
}

// EvaluateAssertions checks each assertion against p and returns the
// failure messages. Every assertion fails when p is nil.
func EvaluateAssertions(p *program.Program, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		if p == nil {
			err = &AssertionError{Type: a.Type, Expected: "a compiled program", Actual: "compilation failed"}
		} else {
			err = evaluateAssertion(p, a)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluateAssertion(p *program.Program, a Assertion) error {
	switch a.Type {
	case AssertFindOps:
		return assertFindOps(p, a)
	case AssertOpVersion:
		return assertOpVersion(p, a)
	case AssertFunctionOpset:
		return assertFunctionOpset(p, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertFindOps checks the number of ops matching a prefix and/or type
// across all functions.
func assertFindOps(p *program.Program, a Assertion) error {
	ops, err := p.FindOps(program.FindQuery{Prefix: a.Prefix, OpType: a.OpType})
	if err != nil {
		return err
	}
	if len(ops) == a.Count {
		return nil
	}
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Name()
	}
	return &AssertionError{
		Type:     AssertFindOps,
		Expected: fmt.Sprintf("%d op(s) with prefix %q and type %q", a.Count, a.Prefix, a.OpType),
		Actual:   fmt.Sprintf("%d op(s) %v", len(ops), names),
	}
}

// assertOpVersion checks the variant the named op resolved to.
func assertOpVersion(p *program.Program, a Assertion) error {
	ops, err := p.FindOps(program.FindQuery{Prefix: a.Op})
	if err != nil {
		return err
	}
	for _, op := range ops {
		if op.Name() != a.Op {
			continue
		}
		if op.Version().String() == a.Version {
			return nil
		}
		return &AssertionError{
			Type:     AssertOpVersion,
			Expected: fmt.Sprintf("op %s at %s", a.Op, a.Version),
			Actual:   op.Def().String(),
		}
	}
	return &AssertionError{
		Type:     AssertOpVersion,
		Expected: fmt.Sprintf("op %s at %s", a.Op, a.Version),
		Actual:   "op not found",
	}
}

// assertFunctionOpset checks the opset a function is pinned to.
func assertFunctionOpset(p *program.Program, a Assertion) error {
	fn, err := p.Function(a.Function)
	if err != nil {
		return &AssertionError{
			Type:     AssertFunctionOpset,
			Expected: fmt.Sprintf("function %s at %s", a.Function, a.Version),
			Actual:   err.Error(),
		}
	}
	if got := fn.OpsetVersion().String(); got != a.Version {
		return &AssertionError{
			Type:     AssertFunctionOpset,
			Expected: fmt.Sprintf("function %s at %s", a.Function, a.Version),
			Actual:   got,
		}
	}
	return nil
}
