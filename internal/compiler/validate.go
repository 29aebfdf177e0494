package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/milir/internal/ir"
	"github.com/roach88/milir/internal/opset"
	"github.com/roach88/milir/internal/types"
)

// Lint error codes (E120-E129)
const (
	ErrNoFunctions      = "E120" // at least one function required
	ErrUnknownOpset     = "E121" // opset name not recognised
	ErrUnknownOpType    = "E122" // operator not in the catalog
	ErrDuplicateOpName  = "E123" // op name used twice in one function
	ErrUnknownDType     = "E124" // dtype name not recognised
	ErrMissingOpField   = "E125" // op without name or type
	ErrConstWithoutVal  = "E126" // const op without value
	ErrMalformedSection = "E127" // section has the wrong CUE kind
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Lint checks a CUE program description against the schema and the
// operator catalog before compilation.
// Returns all errors found (does not fail-fast).
func Lint(v cue.Value, cat *opset.Catalog) []ValidationError {
	l := &linter{cat: cat}

	if ov := v.LookupPath(cue.ParsePath("opset_version")); ov.Exists() {
		l.opset(ov, "opset_version")
	}

	fnsVal := v.LookupPath(cue.ParsePath("function"))
	iter, err := fnsVal.Fields()
	if !fnsVal.Exists() || err != nil {
		l.add(v, "function", ErrNoFunctions, "at least one function is required")
		return l.errs
	}

	count := 0
	for iter.Next() {
		count++
		name := iter.Label()
		fv := iter.Value()
		field := "function." + name

		if ov := fv.LookupPath(cue.ParsePath("opset")); ov.Exists() {
			l.opset(ov, field+".opset")
		}
		if inVal := fv.LookupPath(cue.ParsePath("inputs")); inVal.Exists() {
			if inIter, err := inVal.Fields(); err == nil {
				for inIter.Next() {
					l.dtype(inIter.Value(), field+".inputs."+inIter.Label())
				}
			}
		}
		l.ops(fv, field, make(map[string]bool))
	}
	if count == 0 {
		l.add(fnsVal, "function", ErrNoFunctions, "at least one function is required")
	}
	return l.errs
}

type linter struct {
	cat  *opset.Catalog
	errs []ValidationError
}

func (l *linter) add(v cue.Value, field, code, msg string) {
	e := ValidationError{Field: field, Message: msg, Code: code}
	if pos := v.Pos(); pos.IsValid() {
		e.Line = pos.Line()
	}
	l.errs = append(l.errs, e)
}

func (l *linter) opset(v cue.Value, field string) {
	s, err := v.String()
	if err != nil {
		l.add(v, field, ErrUnknownOpset, "opset must be a string such as \"iOS16\"")
		return
	}
	if _, err := ir.ParseOpsetVersion(s); err != nil {
		l.add(v, field, ErrUnknownOpset, fmt.Sprintf("unknown opset %q", s))
	}
}

func (l *linter) dtype(v cue.Value, field string) {
	dv := v.LookupPath(cue.ParsePath("dtype"))
	if !dv.Exists() {
		return
	}
	s, err := dv.String()
	if err != nil {
		l.add(dv, field+".dtype", ErrUnknownDType, "dtype must be a string such as \"fp32\"")
		return
	}
	if _, err := types.ParseDType(s); err != nil {
		l.add(dv, field+".dtype", ErrUnknownDType, fmt.Sprintf("unknown dtype %q", s))
	}
}

// ops lints the ops of a function or block, recursing into nested blocks.
// seen holds op names across the whole function.
func (l *linter) ops(v cue.Value, field string, seen map[string]bool) {
	opsVal := v.LookupPath(cue.ParsePath("ops"))
	if !opsVal.Exists() {
		return
	}
	iter, err := opsVal.List()
	if err != nil {
		l.add(opsVal, field+".ops", ErrMalformedSection, "ops must be a list")
		return
	}

	for i := 0; iter.Next(); i++ {
		ov := iter.Value()
		opField := fmt.Sprintf("%s.ops[%d]", field, i)

		name, nameErr := ov.LookupPath(cue.ParsePath("name")).String()
		opType, typeErr := ov.LookupPath(cue.ParsePath("type")).String()
		if nameErr != nil || name == "" {
			l.add(ov, opField+".name", ErrMissingOpField, "op name is required")
		} else {
			if seen[name] {
				l.add(ov, opField+".name", ErrDuplicateOpName, fmt.Sprintf("duplicate op name: %q", name))
			}
			seen[name] = true
		}

		if typeErr != nil || opType == "" {
			l.add(ov, opField+".type", ErrMissingOpField, "op type is required")
		} else if _, err := l.cat.Resolve(opType, ir.LatestOpset); err != nil {
			l.add(ov, opField+".type", ErrUnknownOpType, fmt.Sprintf("unknown operator %q", opType))
		}

		if vv := ov.LookupPath(cue.ParsePath("version")); vv.Exists() {
			l.opset(vv, opField+".version")
		}
		if opType == "const" && !ov.LookupPath(cue.ParsePath("value")).Exists() {
			l.add(ov, opField+".value", ErrConstWithoutVal, "const requires a value")
		}

		if out := ov.LookupPath(cue.ParsePath("output")); out.Exists() {
			l.dtype(out, opField+".output")
		}
		if outs := ov.LookupPath(cue.ParsePath("outputs")); outs.Exists() {
			if outIter, err := outs.List(); err == nil {
				for j := 0; outIter.Next(); j++ {
					l.dtype(outIter.Value(), fmt.Sprintf("%s.outputs[%d]", opField, j))
				}
			}
		}

		if blocks := ov.LookupPath(cue.ParsePath("blocks")); blocks.Exists() {
			bIter, err := blocks.List()
			if err != nil {
				l.add(blocks, opField+".blocks", ErrMalformedSection, "blocks must be a list")
				continue
			}
			for j := 0; bIter.Next(); j++ {
				l.ops(bIter.Value(), fmt.Sprintf("%s.blocks[%d]", opField, j), seen)
			}
		}
	}
}
