package ir

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/milir/internal/diag"
	"github.com/roach88/milir/internal/types"
)

// ConstExprPrefix is the naming convention for operations that produce
// compile-time constants. NewOpDef turns it into the ConstExpr capability.
const ConstExprPrefix = "constexpr_"

// InputSlot declares one named input of an operation.
type InputSlot struct {
	Name string

	// Const requires the bound value to be provably constant.
	Const bool

	// Optional slots may stay unbound.
	Optional bool

	// Internal marks slots synthesized by the builder; they are exempt from
	// the const-input rule.
	Internal bool
}

// OpDef describes one variant of an operator: its type name, the opset it
// was introduced in and its input slots.
type OpDef struct {
	Type    string
	Version OpsetVersion
	Inputs  []InputSlot

	// ConstExpr marks producers whose outputs count as constants wherever a
	// const input is required.
	ConstExpr bool

	// Family groups the versioned variants of Type. Nil for unversioned ops.
	Family *OpFamily
}

// NewOpDef creates an unversioned operator definition. Types named with the
// ConstExprPrefix get the ConstExpr capability.
func NewOpDef(opType string, version OpsetVersion, inputs ...InputSlot) *OpDef {
	return &OpDef{
		Type:      opType,
		Version:   version,
		Inputs:    inputs,
		ConstExpr: strings.HasPrefix(opType, ConstExprPrefix),
	}
}

// Slot returns the input slot named name.
func (d *OpDef) Slot(name string) (InputSlot, bool) {
	for _, s := range d.Inputs {
		if s.Name == name {
			return s, true
		}
	}
	return InputSlot{}, false
}

func (d *OpDef) String() string {
	if d.Family == nil {
		return d.Type
	}
	return fmt.Sprintf("%s@%s", d.Type, d.Version)
}

// OpFamily is the set of versioned variants of one operator type.
type OpFamily struct {
	Type     string
	variants []*OpDef // sorted by Version
}

// NewOpFamily creates a family and registers the given variants.
func NewOpFamily(opType string, variants ...*OpDef) (*OpFamily, error) {
	f := &OpFamily{Type: opType}
	for _, v := range variants {
		if err := f.Add(v); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Add registers a variant. Variant types must match the family and each
// version may appear once.
func (f *OpFamily) Add(def *OpDef) error {
	if def.Type != f.Type {
		return diag.New(diag.CodeInvalidArgument, "variant %q added to family %q", def.Type, f.Type)
	}
	if !def.Version.IsSet() {
		return diag.New(diag.CodeInvalidArgument, "variant of %q has no opset version", f.Type)
	}
	for _, v := range f.variants {
		if v.Version == def.Version {
			return diag.New(diag.CodeInvalidArgument, "duplicate %s variant of %q", def.Version, f.Type)
		}
	}
	def.Family = f
	f.variants = append(f.variants, def)
	sort.Slice(f.variants, func(i, j int) bool { return f.variants[i].Version < f.variants[j].Version })
	return nil
}

// VariantFor returns the variant a target version selects: the one with the
// greatest version not above target. Nil if the op does not exist at target.
func (f *OpFamily) VariantFor(target OpsetVersion) *OpDef {
	var best *OpDef
	for _, v := range f.variants {
		if v.Version > target {
			break
		}
		best = v
	}
	return best
}

// Variants returns the variants in version order.
func (f *OpFamily) Variants() []*OpDef {
	out := make([]*OpDef, len(f.variants))
	copy(out, f.variants)
	return out
}

// Var is a typed value node: a graph input, a block input or an operation
// output.
type Var struct {
	Name string
	Type types.Type

	// Producer is the operation that outputs this var; nil for inputs.
	Producer *Operation

	// Val is the statically known payload; nil when not known.
	Val any
}

// NewVar creates an unproduced var such as a block input.
func NewVar(name string, typ types.Type) *Var {
	return &Var{Name: name, Type: typ}
}

// IsConst reports whether v has a known payload or comes from a ConstExpr
// producer.
func (v *Var) IsConst() bool {
	if v.Val != nil {
		return true
	}
	return v.Producer != nil && v.Producer.def.ConstExpr
}

// IsList reports whether v carries a list value.
func (v *Var) IsList() bool { return types.IsList(v.Type) }

func (v *Var) String() string {
	return fmt.Sprintf("%%%s: %s", v.Name, v.Type)
}

// Binding is one bound input slot of an operation.
type Binding struct {
	Slot InputSlot
	Var  *Var
}

// Operation is a node in a block: an instance of one OpDef, possibly
// holding nested blocks for control flow.
type Operation struct {
	name    string
	def     *OpDef
	inputs  []Binding
	outputs []*Var
	blocks  []*Block
}

// NewOperation creates an operation bound to inputs in slot order.
//
// Unknown slot names, nil vars and missing required slots fail with
// INVALID_ARGUMENT. One output var is created per output type; a single
// output is named after the operation, several are suffixed "_<i>".
func NewOperation(name string, def *OpDef, inputs map[string]*Var, outputs ...types.Type) (*Operation, error) {
	if name == "" {
		return nil, diag.New(diag.CodeInvalidArgument, "operation name must be non-empty")
	}
	if def == nil {
		return nil, diag.New(diag.CodeInvalidArgument, "operation %q has no definition", name)
	}
	for slot, v := range inputs {
		if _, ok := def.Slot(slot); !ok {
			return nil, diag.New(diag.CodeInvalidArgument, "%s has no input %q", def.Type, slot).WithOp(name)
		}
		if v == nil {
			return nil, diag.New(diag.CodeInvalidArgument, "input %q bound to nil", slot).WithOp(name)
		}
	}

	op := &Operation{name: name, def: def}
	for _, slot := range def.Inputs {
		v, ok := inputs[slot.Name]
		if !ok {
			if !slot.Optional {
				return nil, diag.New(diag.CodeInvalidArgument, "%s requires input %q", def.Type, slot.Name).WithOp(name)
			}
			continue
		}
		op.inputs = append(op.inputs, Binding{Slot: slot, Var: v})
	}

	for i, t := range outputs {
		if t == nil {
			return nil, diag.New(diag.CodeInvalidArgument, "output %d has no type", i).WithOp(name)
		}
		outName := name
		if len(outputs) > 1 {
			outName = fmt.Sprintf("%s_%d", name, i)
		}
		op.outputs = append(op.outputs, &Var{Name: outName, Type: t, Producer: op})
	}
	return op, nil
}

// ConstDef is the definition used by NewConst.
var ConstDef = NewOpDef("const", BaselineOpset)

// NewConst creates a const operation whose single output carries val.
func NewConst(name string, val any, typ types.Type) (*Operation, error) {
	if val == nil {
		return nil, diag.New(diag.CodeInvalidArgument, "const %q has no value", name)
	}
	op, err := NewOperation(name, ConstDef, nil, typ)
	if err != nil {
		return nil, err
	}
	op.outputs[0].Val = val
	return op, nil
}

// Name returns the operation name.
func (op *Operation) Name() string { return op.name }

// OpType returns the operator type name.
func (op *Operation) OpType() string { return op.def.Type }

// Def returns the variant this operation instantiates.
func (op *Operation) Def() *OpDef { return op.def }

// Version returns the declared opset version of the variant.
func (op *Operation) Version() OpsetVersion { return op.def.Version }

// IsVersioned reports whether the operator has versioned variants.
func (op *Operation) IsVersioned() bool { return op.def.Family != nil }

// Inputs returns the bound inputs in slot order.
func (op *Operation) Inputs() []Binding { return op.inputs }

// Input returns the var bound to slot, or nil.
func (op *Operation) Input(slot string) *Var {
	for _, b := range op.inputs {
		if b.Slot.Name == slot {
			return b.Var
		}
	}
	return nil
}

// Outputs returns the output vars.
func (op *Operation) Outputs() []*Var { return op.outputs }

// Output returns the first output, or nil.
func (op *Operation) Output() *Var {
	if len(op.outputs) == 0 {
		return nil
	}
	return op.outputs[0]
}

// Blocks returns the nested blocks.
func (op *Operation) Blocks() []*Block { return op.blocks }

// AddBlock attaches a nested block and returns it.
func (op *Operation) AddBlock(b *Block) *Block {
	op.blocks = append(op.blocks, b)
	return b
}

func (op *Operation) String() string {
	return fmt.Sprintf("%s(%s)", op.def.Type, op.name)
}
