package ir

import (
	"github.com/roach88/milir/internal/diag"
)

// Function is one named computation graph: a top-level block whose inputs
// come from placeholders, plus the opset version it targets.
type Function struct {
	Block

	name         string
	placeholders []*Placeholder
	opset        OpsetVersion
}

// NewFunction creates a function over the given inputs. Input names must be
// unique.
func NewFunction(name string, inputs []*Placeholder) (*Function, error) {
	f := &Function{name: name}
	f.Block.Name = name
	seen := make(map[string]bool, len(inputs))
	for _, p := range inputs {
		if p == nil {
			return nil, diag.New(diag.CodeInvalidArgument, "nil input").WithFunction(name)
		}
		if seen[p.Name()] {
			return nil, diag.New(diag.CodeInvalidArgument, "duplicate input %q", p.Name()).WithFunction(name)
		}
		seen[p.Name()] = true
		f.placeholders = append(f.placeholders, p)
		f.Block.Inputs = append(f.Block.Inputs, p.Output())
	}
	return f, nil
}

// Name returns the function's own name.
func (f *Function) Name() string { return f.name }

// Placeholders returns the declared inputs in order.
func (f *Function) Placeholders() []*Placeholder { return f.placeholders }

// OpsetVersion returns the pinned opset, or OpsetUnset.
func (f *Function) OpsetVersion() OpsetVersion { return f.opset }

// SetOpsetVersion pins the function to v. OpsetUnset clears the pin.
func (f *Function) SetOpsetVersion(v OpsetVersion) { f.opset = v }

// Validate checks def/use well-formedness: every operation input and every
// block output refers to a var visible in its scope, and var names are
// unique within the function. It fails with INVALID_FUNCTION on the first
// violation.
func (f *Function) Validate() error {
	v := &defUseValidator{fn: f.name, names: make(map[string]bool)}

	scope := make(map[*Var]bool)
	for _, in := range f.Block.Inputs {
		if err := v.define(scope, in, ""); err != nil {
			return err
		}
	}
	return v.block(&f.Block, scope)
}

type defUseValidator struct {
	fn    string
	names map[string]bool
}

func (v *defUseValidator) block(b *Block, scope map[*Var]bool) error {
	for _, op := range b.Operations {
		for _, in := range op.inputs {
			if !scope[in.Var] {
				return diag.New(diag.CodeInvalidFunction,
					"input %q uses %%%s which is not defined in scope", in.Slot.Name, in.Var.Name).
					WithFunction(v.fn).WithOp(op.name)
			}
		}
		for _, nested := range op.blocks {
			inner := make(map[*Var]bool, len(scope)+len(nested.Inputs))
			for k := range scope {
				inner[k] = true
			}
			for _, in := range nested.Inputs {
				if err := v.define(inner, in, op.name); err != nil {
					return err
				}
			}
			if err := v.block(nested, inner); err != nil {
				return err
			}
		}
		for _, out := range op.outputs {
			if err := v.define(scope, out, op.name); err != nil {
				return err
			}
		}
	}
	for _, out := range b.Outputs {
		if out == nil || !scope[out] {
			name := "<nil>"
			if out != nil {
				name = out.Name
			}
			return diag.New(diag.CodeInvalidFunction,
				"output %%%s of block %q is not defined in scope", name, b.Name).WithFunction(v.fn)
		}
	}
	return nil
}

func (v *defUseValidator) define(scope map[*Var]bool, x *Var, op string) error {
	if v.names[x.Name] {
		return diag.New(diag.CodeInvalidFunction, "var %%%s is defined twice", x.Name).
			WithFunction(v.fn).WithOp(op)
	}
	v.names[x.Name] = true
	scope[x] = true
	return nil
}
