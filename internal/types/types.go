// Package types defines the element types, dimensions and value types that
// flow along graph edges, plus the input/output type descriptors a caller
// declares for a program's entry function.
package types

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/roach88/milir/internal/diag"
	"github.com/roach88/milir/internal/symbolic"
)

// DType is a scalar element type.
type DType uint8

// Supported element types. FP32 is the default for placeholders.
const (
	InvalidDType DType = iota
	FP16
	FP32
	FP64
	BF16
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	Bool
	String
)

var dtypeNames = map[DType]string{
	FP16:   "fp16",
	FP32:   "fp32",
	FP64:   "fp64",
	BF16:   "bf16",
	Int8:   "int8",
	Int16:  "int16",
	Int32:  "int32",
	Int64:  "int64",
	UInt8:  "uint8",
	UInt16: "uint16",
	UInt32: "uint32",
	Bool:   "bool",
	String: "string",
}

func (d DType) String() string {
	if s, ok := dtypeNames[d]; ok {
		return s
	}
	return "invalid"
}

// ParseDType parses a dtype name such as "fp32" or "int8".
func ParseDType(s string) (DType, error) {
	for d, name := range dtypeNames {
		if name == s {
			return d, nil
		}
	}
	return InvalidDType, diag.New(diag.CodeInvalidArgument, "unknown dtype %q", s)
}

// Dim is one dimension entry: a concrete non-negative size or a symbol.
type Dim struct {
	size int
	sym  *symbolic.Symbol
}

// Size returns a concrete dimension.
func Size(n int) Dim { return Dim{size: n} }

// Sym returns a symbolic dimension.
func Sym(s *symbolic.Symbol) Dim { return Dim{sym: s} }

// IsSymbolic reports whether d is a symbol.
func (d Dim) IsSymbolic() bool { return d.sym != nil }

// Value returns the concrete size and true, or 0 and false for symbols.
func (d Dim) Value() (int, bool) {
	if d.sym != nil {
		return 0, false
	}
	return d.size, true
}

// Symbol returns the symbol, or nil for concrete dims.
func (d Dim) Symbol() *symbolic.Symbol { return d.sym }

func (d Dim) String() string {
	if d.sym != nil {
		return d.sym.Name()
	}
	return strconv.Itoa(d.size)
}

// DimOf converts a shape entry to a Dim.
//
// Accepted entries are Go integer kinds (non-negative), Dim and
// *symbolic.Symbol. Anything else fails with SHAPE_ELEMENT.
func DimOf(v any) (Dim, error) {
	switch d := v.(type) {
	case Dim:
		if d.sym == nil && d.size < 0 {
			return Dim{}, diag.New(diag.CodeShapeElement, "negative dimension %d", d.size)
		}
		return d, nil
	case *symbolic.Symbol:
		if d == nil {
			return Dim{}, diag.New(diag.CodeShapeElement, "nil symbol in shape")
		}
		return Sym(d), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		if n < 0 {
			return Dim{}, diag.New(diag.CodeShapeElement, "negative dimension %d", n)
		}
		return Size(int(n)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Size(int(rv.Uint())), nil
	}
	return Dim{}, diag.New(diag.CodeShapeElement, "dimension %v (%T) is not an integer or symbol", v, v)
}

// Shape converts a sequence of entries to dims. The sequence may be any
// slice or array; see DimOf for the accepted entries.
func Shape(seq any) ([]Dim, error) {
	rv := reflect.ValueOf(seq)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, diag.New(diag.CodeShapeElement, "illegal shape %v (%T): not a sequence", seq, seq)
	}
	dims := make([]Dim, rv.Len())
	for i := range dims {
		d, err := DimOf(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("dim %d in %v: %w", i, seq, err)
		}
		dims[i] = d
	}
	return dims, nil
}

// FormatShape renders dims as "[1, 3, H]".
func FormatShape(dims []Dim) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Type is the type of a value flowing along a graph edge.
// Only Scalar, Tensor and List implement it.
type Type interface {
	fmt.Stringer
	isType()
}

// Scalar is a rank-0 value of one element type.
type Scalar struct {
	DType DType
}

func (Scalar) isType() {}

func (s Scalar) String() string { return s.DType.String() }

// Tensor is an n-dimensional value.
type Tensor struct {
	DType DType
	Shape []Dim

	// Unranked marks a tensor whose rank is not known.
	Unranked bool
}

func (Tensor) isType() {}

// Rank returns the number of dims, or -1 when the rank is unknown because
// the tensor is unranked or its shape holds a variadic symbol.
func (t Tensor) Rank() int {
	if t.Unranked {
		return -1
	}
	for _, d := range t.Shape {
		if d.sym != nil && d.sym.IsVariadic() {
			return -1
		}
	}
	return len(t.Shape)
}

func (t Tensor) String() string {
	if t.Unranked {
		return fmt.Sprintf("tensor<%s, *>", t.DType)
	}
	return fmt.Sprintf("tensor<%s, %s>", t.DType, FormatShape(t.Shape))
}

// List is a list of values of one element type.
type List struct {
	Elem Type

	// Length is -1 when unknown.
	Length int
}

func (List) isType() {}

func (l List) String() string {
	elem := "?"
	if l.Elem != nil {
		elem = l.Elem.String()
	}
	if l.Length < 0 {
		return fmt.Sprintf("list<%s, ?>", elem)
	}
	return fmt.Sprintf("list<%s, %d>", elem, l.Length)
}

// Rank returns the rank of t: 0 for scalars, Tensor.Rank for tensors and -1
// for lists and nil.
func Rank(t Type) int {
	switch tt := t.(type) {
	case Scalar:
		return 0
	case Tensor:
		return tt.Rank()
	default:
		return -1
	}
}

// IsList reports whether t is a list type.
func IsList(t Type) bool {
	_, ok := t.(List)
	return ok
}

// Infer returns the type of a value with the given element type and shape:
// a scalar for rank 0, a tensor otherwise.
func Infer(dtype DType, shape []Dim) Type {
	if len(shape) == 0 {
		return Scalar{DType: dtype}
	}
	return Tensor{DType: dtype, Shape: shape}
}
