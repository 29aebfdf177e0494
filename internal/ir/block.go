package ir

import "strings"

// Block is an ordered sequence of operations with optional inputs (for
// control-flow bodies) and outputs.
type Block struct {
	Name       string
	Inputs     []*Var
	Operations []*Operation
	Outputs    []*Var
}

// NewBlock creates an empty block with the given inputs.
func NewBlock(name string, inputs ...*Var) *Block {
	return &Block{Name: name, Inputs: inputs}
}

// Append adds operations to the end of the block.
func (b *Block) Append(ops ...*Operation) {
	b.Operations = append(b.Operations, ops...)
}

// SetOutputs sets the block outputs.
func (b *Block) SetOutputs(vars ...*Var) {
	b.Outputs = vars
}

// Walk calls visit for every operation reachable from b, including those in
// nested blocks at any depth. An operation's nested blocks are visited
// before the operation itself; operations are visited in block order.
// Walk stops at the first error visit returns.
func (b *Block) Walk(visit func(*Operation) error) error {
	for _, op := range b.Operations {
		for _, nested := range op.blocks {
			if err := nested.Walk(visit); err != nil {
				return err
			}
		}
		if err := visit(op); err != nil {
			return err
		}
	}
	return nil
}

// FindOps returns every operation reachable from b whose name starts with
// prefix (when non-empty) and whose type equals opType (when non-empty).
func (b *Block) FindOps(prefix, opType string) []*Operation {
	var found []*Operation
	_ = b.Walk(func(op *Operation) error {
		if prefix != "" && !strings.HasPrefix(op.name, prefix) {
			return nil
		}
		if opType != "" && op.def.Type != opType {
			return nil
		}
		found = append(found, op)
		return nil
	})
	return found
}
