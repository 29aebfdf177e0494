// Package diag defines the structured error type shared by the IR, symbol
// registry and program layers.
//
// Every check in this module fails fast: the first violation found is
// returned as a *Error carrying a Code, the offending entity and enough
// context (function, operation, expected vs. actual) to locate it.
package diag

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code categorizes an error.
type Code string

const (
	// CodeInvalidArgument indicates a wrong or malformed argument (nil function,
	// nil type descriptor, unknown input slot).
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeVersionMismatch indicates an operation whose variant disagrees with
	// the variant the resolved opset selects.
	CodeVersionMismatch Code = "VERSION_MISMATCH"

	// CodeVersionTooLow indicates a function pinned below the resolved opset.
	CodeVersionTooLow Code = "VERSION_TOO_LOW"

	// CodeVersionInconsistent indicates two functions pinned to different opsets.
	CodeVersionInconsistent Code = "VERSION_INCONSISTENT"

	// CodeShapeElement indicates a malformed placeholder shape.
	CodeShapeElement Code = "SHAPE_ELEMENT"

	// CodeRankUnsupported indicates a tensor of unknown rank or rank >= MaxRank.
	CodeRankUnsupported Code = "RANK_UNSUPPORTED"

	// CodeConstViolation indicates a must-be-const input bound to a runtime value.
	CodeConstViolation Code = "CONST_VIOLATION"

	// CodeNotFound indicates an unknown function or symbol name.
	CodeNotFound Code = "NOT_FOUND"

	// CodeCardinality indicates an exactly-one query that matched 0 or >1 ops.
	CodeCardinality Code = "CARDINALITY"

	// CodeSymbolCollision indicates a strict symbol definition of a used name.
	CodeSymbolCollision Code = "SYMBOL_COLLISION"

	// CodeMalformedSymbolName indicates a symbol name not starting with a
	// letter or the variadic marker.
	CodeMalformedSymbolName Code = "MALFORMED_SYMBOL_NAME"

	// CodeUnimplemented indicates a capability this program does not provide.
	CodeUnimplemented Code = "UNIMPLEMENTED"

	// CodeInvalidFunction indicates a def/use violation inside a function.
	CodeInvalidFunction Code = "INVALID_FUNCTION"
)

// cliCodes maps each Code to the stable short code printed by the CLI.
var cliCodes = map[Code]string{
	CodeInvalidArgument:     "E201",
	CodeVersionMismatch:     "E202",
	CodeVersionTooLow:       "E203",
	CodeVersionInconsistent: "E204",
	CodeShapeElement:        "E205",
	CodeRankUnsupported:     "E206",
	CodeConstViolation:      "E207",
	CodeNotFound:            "E208",
	CodeCardinality:         "E209",
	CodeSymbolCollision:     "E210",
	CodeMalformedSymbolName: "E211",
	CodeUnimplemented:       "E212",
	CodeInvalidFunction:     "E213",
}

// Short returns the CLI code for c, or "E200" for unknown codes.
func (c Code) Short() string {
	if s, ok := cliCodes[c]; ok {
		return s
	}
	return "E200"
}

// Error is a structured, fail-fast diagnostic.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Function names the function the violation was found in, if any.
	Function string

	// Op names the offending operation, if any.
	Op string

	// Details holds expected/actual values and other context.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)

	var ctx []string
	if e.Function != "" {
		ctx = append(ctx, "function="+e.Function)
	}
	if e.Op != "" {
		ctx = append(ctx, "op="+e.Op)
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ctx, ", "))
	}
	return b.String()
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithFunction sets the function context and returns e.
func (e *Error) WithFunction(name string) *Error {
	e.Function = name
	return e
}

// WithOp sets the operation context and returns e.
func (e *Error) WithOp(name string) *Error {
	e.Op = name
	return e
}

// WithDetail records a key/value detail and returns e.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// DetailKeys returns the detail keys in sorted order.
func (e *Error) DetailKeys() []string {
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Is reports whether err (or any error it wraps) is a *Error with the given code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
