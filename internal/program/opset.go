package program

import (
	"github.com/roach88/milir/internal/diag"
	"github.com/roach88/milir/internal/ir"
)

// ResolveOpset returns the greatest declared version of any versioned
// operation reachable from any function, never below the baseline, plus
// the first operation that declared it. witness is nil when no versioned
// operation exceeds the baseline.
func (p *Program) ResolveOpset() (target ir.OpsetVersion, witness *ir.Operation) {
	target = ir.BaselineOpset
	for _, name := range p.order {
		_ = p.functions[name].Walk(func(op *ir.Operation) error {
			if !op.IsVersioned() {
				return nil
			}
			if op.Version() > target {
				target = op.Version()
				witness = op
			}
			return nil
		})
	}
	return target, witness
}

// reconcile resolves the opset, checks every versioned operation is the
// variant the opset selects, pins unpinned functions and requires all
// functions to agree.
func (p *Program) reconcile() error {
	target, witness := p.ResolveOpset()

	if err := p.checkOpVersions(target); err != nil {
		return err
	}
	if err := p.pinFunctions(target); err != nil {
		return err
	}

	if len(p.order) > 0 {
		p.opset = p.functions[p.order[0]].OpsetVersion()
	} else {
		p.opset = target
	}

	witnessName := ""
	if witness != nil {
		witnessName = witness.Name()
	}
	p.logger.Debug("opset resolved",
		"opset", target.String(),
		"pinned", p.opset.String(),
		"witness", witnessName,
		"functions", len(p.order),
	)
	return nil
}

func (p *Program) checkOpVersions(target ir.OpsetVersion) error {
	for _, name := range p.order {
		err := p.functions[name].Walk(func(op *ir.Operation) error {
			if !op.IsVersioned() {
				return nil
			}
			want := op.Def().Family.VariantFor(target)
			if want == op.Def() {
				return nil
			}
			required := "none"
			if want != nil {
				required = want.Version.String()
			}
			return diag.New(diag.CodeVersionMismatch,
				"op %s with an out of date version %s is detected, rebuild it for opset %s",
				op.OpType(), op.Version(), target).
				WithFunction(name).
				WithOp(op.Name()).
				WithDetail("declared", op.Version().String()).
				WithDetail("required", required).
				WithDetail("opset", target.String())
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Program) pinFunctions(target ir.OpsetVersion) error {
	for _, name := range p.order {
		fn := p.functions[name]
		switch v := fn.OpsetVersion(); {
		case !v.IsSet():
			fn.SetOpsetVersion(target)
		case v < target:
			return diag.New(diag.CodeVersionTooLow,
				"function should have at least opset %s, got %s", target, v).
				WithFunction(name).
				WithDetail("declared", v.String()).
				WithDetail("required", target.String())
		}
	}

	if len(p.order) == 0 {
		return nil
	}
	ref := p.order[0]
	refVersion := p.functions[ref].OpsetVersion()
	for _, name := range p.order[1:] {
		if v := p.functions[name].OpsetVersion(); v != refVersion {
			return diag.New(diag.CodeVersionInconsistent,
				"all functions must have the same opset, got %s and %s (function %q)", v, refVersion, ref).
				WithFunction(name).
				WithDetail("declared", v.String()).
				WithDetail("reference", refVersion.String()).
				WithDetail("reference_function", ref)
		}
	}
	return nil
}
