package program

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/milir/internal/ir"
	"github.com/roach88/milir/internal/opset"
	"github.com/roach88/milir/internal/types"
)

// fixture builds functions against the default catalog in one session.
type fixture struct {
	t    *testing.T
	sess *ir.Session
	cat  *opset.Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		t:    t,
		sess: ir.NewSession(ir.WithSessionLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))),
		cat:  opset.Default(),
	}
}

func newTestProgram() *Program {
	return New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func newDebugProgram(buf *bytes.Buffer) *Program {
	return New(WithLogger(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))
}

func tensor(dims ...int) types.Type {
	shape := make([]types.Dim, len(dims))
	for i, d := range dims {
		shape[i] = types.Size(d)
	}
	return types.Infer(types.FP32, shape)
}

func (f *fixture) input(name string, dims ...int) *ir.Placeholder {
	f.t.Helper()
	p, err := ir.NewPlaceholder(f.sess, dims, ir.WithName(name))
	require.NoError(f.t, err)
	return p
}

// op instantiates opType. For versioned operators version selects the
// exact variant; unversioned operators ignore it.
func (f *fixture) op(name, opType string, version ir.OpsetVersion, inputs map[string]*ir.Var, outs ...types.Type) *ir.Operation {
	f.t.Helper()
	def, err := f.cat.Exact(opType, version)
	require.NoError(f.t, err)
	op, err := ir.NewOperation(name, def, inputs, outs...)
	require.NoError(f.t, err)
	return op
}

func (f *fixture) constant(name string, val any, typ types.Type) *ir.Operation {
	f.t.Helper()
	op, err := ir.NewConst(name, val, typ)
	require.NoError(f.t, err)
	return op
}

// function wraps ops into a function over a single [1, 4] input named
// "<name>_x". The last op's first output becomes the function output.
// build receives the input var and returns the ops.
func (f *fixture) function(name string, build func(x *ir.Var) []*ir.Operation) *ir.Function {
	f.t.Helper()
	in := f.input(name+"_x", 1, 4)
	fn, err := ir.NewFunction(name, []*ir.Placeholder{in})
	require.NoError(f.t, err)
	ops := build(in.Output())
	fn.Append(ops...)
	if len(ops) > 0 && ops[len(ops)-1].Output() != nil {
		fn.SetOutputs(ops[len(ops)-1].Output())
	} else {
		fn.SetOutputs(in.Output())
	}
	return fn
}

// versioned returns a function holding one gather of the given variant.
func (f *fixture) versioned(name string, gather ir.OpsetVersion) *ir.Function {
	return f.function(name, func(x *ir.Var) []*ir.Operation {
		idx := f.constant(name+"_idx", []int32{0}, types.Infer(types.Int32, []types.Dim{types.Size(1)}))
		g := f.op(name+"_gather", "gather", gather, map[string]*ir.Var{"x": x, "indices": idx.Output()}, tensor(1, 1))
		return []*ir.Operation{idx, g}
	})
}

// plain returns a function with only unversioned operations.
func (f *fixture) plain(name string) *ir.Function {
	return f.function(name, func(x *ir.Var) []*ir.Operation {
		return []*ir.Operation{f.op(name+"_relu", "relu", ir.OpsetUnset, map[string]*ir.Var{"x": x}, tensor(1, 4))}
	})
}
