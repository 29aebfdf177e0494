package program

import (
	"strconv"
	"strings"

	"github.com/roach88/milir/internal/diag"
	"github.com/roach88/milir/internal/ir"
)

// FindQuery selects operations across all functions. Callers set at least
// one of Prefix and OpType; an empty query matches every operation.
type FindQuery struct {
	Prefix     string
	OpType     string
	ExactlyOne bool
}

// FindOps returns the operations matching q, function by function in
// insertion order. With ExactlyOne set, any count other than one fails
// with CARDINALITY.
func (p *Program) FindOps(q FindQuery) ([]*ir.Operation, error) {
	var found []*ir.Operation
	for _, name := range p.order {
		found = append(found, p.functions[name].FindOps(q.Prefix, q.OpType)...)
	}
	if q.ExactlyOne && len(found) != 1 {
		names := make([]string, len(found))
		for i, op := range found {
			names[i] = op.Name()
		}
		return nil, diag.New(diag.CodeCardinality,
			"found matching ops not exactly one, found %d: [%s]", len(found), strings.Join(names, ", ")).
			WithDetail("prefix", q.Prefix).
			WithDetail("op_type", q.OpType).
			WithDetail("count", strconv.Itoa(len(found)))
	}
	return found, nil
}
