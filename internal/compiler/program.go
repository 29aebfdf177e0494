package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/milir/internal/ir"
	"github.com/roach88/milir/internal/opset"
	"github.com/roach88/milir/internal/program"
	"github.com/roach88/milir/internal/types"
)

// MainFunction is the entry function whose inputs become the program's
// main input types.
const MainFunction = "main"

// CompileProgram builds a Program from a CUE program description.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value is the root of the description:
//
//	opset_version: "iOS15"
//	function: main: {
//		opset: "iOS16"
//		inputs: x: {shape: [1, "H"], dtype: "fp32"}
//		ops: [{name: "y", type: "relu", inputs: {x: "x"}, output: {shape: [1, "H"]}}]
//		outputs: ["y"]
//	}
//
// Functions are added in declaration order, so opset reconciliation errors
// surface as they would for hand-built programs. Symbols are created in
// sess; operator definitions come from cat.
func CompileProgram(v cue.Value, sess *ir.Session, cat *opset.Catalog, opts ...program.Option) (*program.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	c := &compiler{sess: sess, cat: cat, target: ir.BaselineOpset}
	if ov := v.LookupPath(cue.ParsePath("opset_version")); ov.Exists() {
		target, err := parseOpset(ov, "opset_version")
		if err != nil {
			return nil, err
		}
		c.target = target
	}

	fnsVal := v.LookupPath(cue.ParsePath("function"))
	if !fnsVal.Exists() {
		return nil, &CompileError{
			Field:   "function",
			Message: "at least one function is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := fnsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	p := program.New(opts...)
	for iter.Next() {
		name := iter.Label()
		fn, err := c.function(name, iter.Value())
		if err != nil {
			return nil, err
		}
		if err := p.AddFunction(name, fn); err != nil {
			return nil, err
		}
		if name == MainFunction {
			specs := make([]types.InputType, 0, len(fn.Placeholders()))
			for _, ph := range fn.Placeholders() {
				specs = append(specs, ph.Spec())
			}
			if err := p.SetMainInputTypes(specs); err != nil {
				return nil, err
			}
		}
	}
	if len(p.Functions()) == 0 {
		return nil, &CompileError{
			Field:   "function",
			Message: "at least one function is required",
			Pos:     fnsVal.Pos(),
		}
	}
	return p, nil
}

type compiler struct {
	sess   *ir.Session
	cat    *opset.Catalog
	target ir.OpsetVersion
}

// scope maps var names visible at a point of the graph.
type scope map[string]*ir.Var

func (s scope) child() scope {
	out := make(scope, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (c *compiler) function(name string, v cue.Value) (*ir.Function, error) {
	field := "function." + name

	placeholders, err := c.inputs(v, field)
	if err != nil {
		return nil, err
	}
	fn, err := ir.NewFunction(name, placeholders)
	if err != nil {
		return nil, wrapIR(field, v.Pos(), err)
	}

	target := c.target
	if ov := v.LookupPath(cue.ParsePath("opset")); ov.Exists() {
		pinned, err := parseOpset(ov, field+".opset")
		if err != nil {
			return nil, err
		}
		fn.SetOpsetVersion(pinned)
		target = pinned
	}

	sc := make(scope)
	for _, ph := range placeholders {
		sc[ph.Name()] = ph.Output()
	}
	if err := c.block(&fn.Block, v, field, sc, target); err != nil {
		return nil, err
	}
	return fn, nil
}

func (c *compiler) inputs(v cue.Value, field string) ([]*ir.Placeholder, error) {
	inVal := v.LookupPath(cue.ParsePath("inputs"))
	if !inVal.Exists() {
		return nil, nil
	}
	iter, err := inVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []*ir.Placeholder
	for iter.Next() {
		name := iter.Label()
		iv := iter.Value()
		inField := field + ".inputs." + name

		shapeVal := iv.LookupPath(cue.ParsePath("shape"))
		if !shapeVal.Exists() {
			return nil, &CompileError{Field: inField + ".shape", Message: "shape is required", Pos: iv.Pos()}
		}
		dims, err := parseShape(shapeVal, inField+".shape", c.sess.Symbols())
		if err != nil {
			return nil, err
		}
		dtype, err := parseDType(iv, inField)
		if err != nil {
			return nil, err
		}

		opts := []ir.PlaceholderOption{ir.WithName(name), ir.WithDType(dtype)}
		if flag(iv, "allow_rank0") {
			opts = append(opts, ir.AllowRank0())
		}
		ph, err := ir.NewPlaceholder(c.sess, dims, opts...)
		if err != nil {
			return nil, wrapIR(inField, iv.Pos(), err)
		}
		out = append(out, ph)
	}
	return out, nil
}

// block compiles ops and outputs of v into b. Names defined in b are added
// to sc.
func (c *compiler) block(b *ir.Block, v cue.Value, field string, sc scope, target ir.OpsetVersion) error {
	if opsVal := v.LookupPath(cue.ParsePath("ops")); opsVal.Exists() {
		iter, err := opsVal.List()
		if err != nil {
			return formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			op, err := c.op(iter.Value(), fmt.Sprintf("%s.ops[%d]", field, i), sc, target)
			if err != nil {
				return err
			}
			b.Append(op)
			for _, out := range op.Outputs() {
				sc[out.Name] = out
			}
		}
	}

	outs, err := refs(v, "outputs", field, sc)
	if err != nil {
		return err
	}
	b.SetOutputs(outs...)
	return nil
}

func (c *compiler) op(v cue.Value, field string, sc scope, target ir.OpsetVersion) (*ir.Operation, error) {
	name, err := stringField(v, "name", field)
	if err != nil {
		return nil, err
	}
	opType, err := stringField(v, "type", field)
	if err != nil {
		return nil, err
	}
	field = field + "(" + name + ")"

	def, err := c.resolve(v, opType, field, target)
	if err != nil {
		return nil, err
	}

	outTypes, err := c.outputs(v, field)
	if err != nil {
		return nil, err
	}

	if def == ir.ConstDef {
		return c.constOp(v, name, field, outTypes)
	}

	inputs := make(map[string]*ir.Var)
	if inVal := v.LookupPath(cue.ParsePath("inputs")); inVal.Exists() {
		iter, err := inVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			ref, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			bound, ok := sc[ref]
			if !ok {
				return nil, &CompileError{
					Field:   field + ".inputs." + iter.Label(),
					Message: fmt.Sprintf("%q is not defined in scope", ref),
					Pos:     iter.Value().Pos(),
				}
			}
			inputs[iter.Label()] = bound
		}
	}

	op, err := ir.NewOperation(name, def, inputs, outTypes...)
	if err != nil {
		return nil, wrapIR(field, v.Pos(), err)
	}

	if blocksVal := v.LookupPath(cue.ParsePath("blocks")); blocksVal.Exists() {
		iter, err := blocksVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			bv := iter.Value()
			bField := fmt.Sprintf("%s.blocks[%d]", field, i)
			inner := sc.child()

			blockName := ""
			if nv := bv.LookupPath(cue.ParsePath("name")); nv.Exists() {
				blockName, _ = nv.String()
			}
			nested := ir.NewBlock(blockName)
			if inVal := bv.LookupPath(cue.ParsePath("inputs")); inVal.Exists() {
				inIter, err := inVal.Fields()
				if err != nil {
					return nil, formatCUEError(err)
				}
				for inIter.Next() {
					typ, err := parseType(inIter.Value(), bField+".inputs."+inIter.Label(), c.sess.Symbols())
					if err != nil {
						return nil, err
					}
					in := ir.NewVar(inIter.Label(), typ)
					nested.Inputs = append(nested.Inputs, in)
					inner[in.Name] = in
				}
			}
			if err := c.block(nested, bv, bField, inner, target); err != nil {
				return nil, err
			}
			op.AddBlock(nested)
		}
	}
	return op, nil
}

// resolve picks the operator definition: the exact variant when the op
// pins a version, otherwise the variant the target selects.
func (c *compiler) resolve(v cue.Value, opType, field string, target ir.OpsetVersion) (*ir.OpDef, error) {
	if vv := v.LookupPath(cue.ParsePath("version")); vv.Exists() {
		version, err := parseOpset(vv, field+".version")
		if err != nil {
			return nil, err
		}
		def, err := c.cat.Exact(opType, version)
		if err != nil {
			return nil, wrapIR(field+".version", vv.Pos(), err)
		}
		return def, nil
	}
	def, err := c.cat.Resolve(opType, target)
	if err != nil {
		return nil, wrapIR(field+".type", v.Pos(), err)
	}
	return def, nil
}

func (c *compiler) outputs(v cue.Value, field string) ([]types.Type, error) {
	if ov := v.LookupPath(cue.ParsePath("output")); ov.Exists() {
		t, err := parseType(ov, field+".output", c.sess.Symbols())
		if err != nil {
			return nil, err
		}
		return []types.Type{t}, nil
	}

	ov := v.LookupPath(cue.ParsePath("outputs"))
	if !ov.Exists() {
		return nil, nil
	}
	iter, err := ov.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []types.Type
	for i := 0; iter.Next(); i++ {
		t, err := parseType(iter.Value(), fmt.Sprintf("%s.outputs[%d]", field, i), c.sess.Symbols())
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *compiler) constOp(v cue.Value, name, field string, outTypes []types.Type) (*ir.Operation, error) {
	valVal := v.LookupPath(cue.ParsePath("value"))
	if !valVal.Exists() {
		return nil, &CompileError{Field: field + ".value", Message: "const requires a value", Pos: v.Pos()}
	}
	var val any
	if err := valVal.Decode(&val); err != nil {
		return nil, formatCUEError(err)
	}
	if len(outTypes) != 1 {
		return nil, &CompileError{Field: field + ".output", Message: "const requires exactly one output", Pos: v.Pos()}
	}
	op, err := ir.NewConst(name, val, outTypes[0])
	if err != nil {
		return nil, wrapIR(field, v.Pos(), err)
	}
	return op, nil
}

// refs resolves a list of var names against sc.
func refs(v cue.Value, name, field string, sc scope) ([]*ir.Var, error) {
	lv := v.LookupPath(cue.ParsePath(name))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []*ir.Var
	for i := 0; iter.Next(); i++ {
		ref, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		bound, ok := sc[ref]
		if !ok {
			return nil, &CompileError{
				Field:   fmt.Sprintf("%s.%s[%d]", field, name, i),
				Message: fmt.Sprintf("%q is not defined in scope", ref),
				Pos:     iter.Value().Pos(),
			}
		}
		out = append(out, bound)
	}
	return out, nil
}

func parseOpset(v cue.Value, field string) (ir.OpsetVersion, error) {
	s, err := v.String()
	if err != nil {
		return ir.OpsetUnset, formatCUEError(err)
	}
	version, err := ir.ParseOpsetVersion(s)
	if err != nil {
		return ir.OpsetUnset, wrapIR(field, v.Pos(), err)
	}
	return version, nil
}
