package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/milir/internal/symbolic"
	"github.com/roach88/milir/internal/types"
)

// parseShape converts a CUE list of ints and symbol names to dims.
// A name is looked up in the registry and defined on first use, so equal
// names denote the same dimension. "*" alone is a fresh variadic symbol;
// "*name" is a named variadic symbol.
func parseShape(v cue.Value, field string, reg *symbolic.Registry) ([]types.Dim, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var dims []types.Dim
	for i := 0; iter.Next(); i++ {
		entry := iter.Value()
		switch entry.Kind() {
		case cue.IntKind:
			n, err := entry.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			d, err := types.DimOf(n)
			if err != nil {
				return nil, wrapIR(fmt.Sprintf("%s[%d]", field, i), entry.Pos(), err)
			}
			dims = append(dims, d)
		case cue.StringKind:
			name, _ := entry.String()
			var sym *symbolic.Symbol
			if name == string(symbolic.VariadicMarker) {
				sym, err = reg.NewVariadicSymbol()
			} else {
				sym, err = reg.LookupOrDefine(name)
			}
			if err != nil {
				return nil, wrapIR(fmt.Sprintf("%s[%d]", field, i), entry.Pos(), err)
			}
			dims = append(dims, types.Sym(sym))
		default:
			return nil, &CompileError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: fmt.Sprintf("dimension must be an int or a symbol name, got %v", entry.Kind()),
				Pos:     entry.Pos(),
			}
		}
	}
	return dims, nil
}

// parseDType reads an optional dtype field, defaulting to fp32.
func parseDType(v cue.Value, field string) (types.DType, error) {
	dv := v.LookupPath(cue.ParsePath("dtype"))
	if !dv.Exists() {
		return types.FP32, nil
	}
	s, err := dv.String()
	if err != nil {
		return types.InvalidDType, formatCUEError(err)
	}
	d, err := types.ParseDType(s)
	if err != nil {
		return types.InvalidDType, wrapIR(field+".dtype", dv.Pos(), err)
	}
	return d, nil
}

// parseType converts a value type description:
//
//	{shape: [1, "H"], dtype: "fp16"}   tensor (scalar when shape is empty)
//	{dtype: "int32"}                   scalar
//	{unranked: true}                   tensor of unknown rank
//	{list: true, shape: [2]}           list of the described element
func parseType(v cue.Value, field string, reg *symbolic.Registry) (types.Type, error) {
	dtype, err := parseDType(v, field)
	if err != nil {
		return nil, err
	}

	var elem types.Type
	if flag(v, "unranked") {
		elem = types.Tensor{DType: dtype, Unranked: true}
	} else {
		var dims []types.Dim
		if sv := v.LookupPath(cue.ParsePath("shape")); sv.Exists() {
			dims, err = parseShape(sv, field+".shape", reg)
			if err != nil {
				return nil, err
			}
		}
		elem = types.Infer(dtype, dims)
	}

	if flag(v, "list") {
		length := -1
		if lv := v.LookupPath(cue.ParsePath("length")); lv.Exists() {
			n, err := lv.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			length = int(n)
		}
		return types.List{Elem: elem, Length: length}, nil
	}
	return elem, nil
}

func flag(v cue.Value, name string) bool {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return false
	}
	b, err := fv.Bool()
	return err == nil && b
}

// stringField reads a required string field.
func stringField(v cue.Value, name, context string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   context + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	if strings.TrimSpace(s) == "" {
		return "", &CompileError{
			Field:   context + "." + name,
			Message: name + " must be non-empty",
			Pos:     fv.Pos(),
		}
	}
	return s, nil
}
