package program

import (
	"strconv"

	"github.com/roach88/milir/internal/diag"
	"github.com/roach88/milir/internal/ir"
	"github.com/roach88/milir/internal/types"
)

// CheckInvalidProgram catches graphs the deployment format cannot express.
// It first checks the rank of every non-list output in every function,
// then that every const input slot is bound to a provably constant value.
// The first violation is returned.
func (p *Program) CheckInvalidProgram() error {
	for _, name := range p.order {
		if err := p.functions[name].Walk(rankVisitor(name)); err != nil {
			return err
		}
	}
	for _, name := range p.order {
		if err := p.functions[name].Walk(constVisitor(name)); err != nil {
			return err
		}
	}
	return nil
}

// rankVisitor rejects outputs of unknown rank and outputs of rank MaxRank
// or higher.
func rankVisitor(fn string) func(*ir.Operation) error {
	return func(op *ir.Operation) error {
		for _, out := range op.Outputs() {
			if out.IsList() {
				continue
			}
			rank := types.Rank(out.Type)
			if rank >= 0 && rank < ir.MaxRank {
				continue
			}
			return diag.New(diag.CodeRankUnsupported,
				"only tensors with rank <= %d are supported, %s %q outputs %%%s of rank %d",
				ir.MaxRank-1, op.OpType(), op.Name(), out.Name, rank).
				WithFunction(fn).
				WithOp(op.Name()).
				WithDetail("var", out.Name).
				WithDetail("rank", strconv.Itoa(rank)).
				WithDetail("max_rank", strconv.Itoa(ir.MaxRank-1))
		}
		return nil
	}
}

// constVisitor rejects const slots bound to values that are neither known
// payloads nor ConstExpr outputs. Internal slots are exempt.
func constVisitor(fn string) func(*ir.Operation) error {
	return func(op *ir.Operation) error {
		for _, in := range op.Inputs() {
			if !in.Slot.Const || in.Slot.Internal || in.Var.IsConst() {
				continue
			}
			producer := "graph input"
			if in.Var.Producer != nil {
				producer = in.Var.Producer.OpType()
			}
			return diag.New(diag.CodeConstViolation,
				"in op %s, input %s (%s) must be const or produced by a constexpr op",
				op.Name(), in.Slot.Name, in.Var.Name).
				WithFunction(fn).
				WithOp(op.Name()).
				WithDetail("slot", in.Slot.Name).
				WithDetail("var", in.Var.Name).
				WithDetail("producer", producer)
		}
		return nil
	}
}
