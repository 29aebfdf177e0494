package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/milir/internal/diag"
	"github.com/roach88/milir/internal/types"
)

var (
	reluDef = NewOpDef("relu", BaselineOpset, InputSlot{Name: "x"})
	addDef  = NewOpDef("add", BaselineOpset, InputSlot{Name: "x"}, InputSlot{Name: "y"})
	condDef = NewOpDef("cond", BaselineOpset, InputSlot{Name: "pred"})

	splitDef = NewOpDef("split", BaselineOpset,
		InputSlot{Name: "x"},
		InputSlot{Name: "axis", Const: true},
		InputSlot{Name: "num_splits", Const: true, Optional: true},
	)
)

func fp32(dims ...int) types.Type {
	shape := make([]types.Dim, len(dims))
	for i, d := range dims {
		shape[i] = types.Size(d)
	}
	return types.Infer(types.FP32, shape)
}

func TestNewOpDefConstExprFromPrefix(t *testing.T) {
	assert.True(t, NewOpDef("constexpr_lut_to_dense", IOS16).ConstExpr)
	assert.False(t, NewOpDef("lut_to_dense", IOS16).ConstExpr)
	assert.False(t, NewOpDef("const", BaselineOpset).ConstExpr, "const carries its payload instead")
}

func TestOpFamilyVariantFor(t *testing.T) {
	g13 := NewOpDef("gather", IOS13)
	g16 := NewOpDef("gather", IOS16)
	g17 := NewOpDef("gather", IOS17)
	fam, err := NewOpFamily("gather", g17, g13, g16)
	require.NoError(t, err)

	tests := []struct {
		target OpsetVersion
		want   *OpDef
	}{
		{IOS13, g13},
		{IOS14, g13},
		{IOS15, g13},
		{IOS16, g16},
		{IOS17, g17},
		{IOS18, g17},
	}
	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			assert.Same(t, tt.want, fam.VariantFor(tt.target))
		})
	}

	assert.Equal(t, []*OpDef{g13, g16, g17}, fam.Variants())
	assert.Same(t, fam, g16.Family)
	assert.Equal(t, "gather@iOS16", g16.String())
}

func TestOpFamilyVariantForBeforeIntroduction(t *testing.T) {
	sdpa := NewOpDef("scaled_dot_product_attention", IOS18)
	fam, err := NewOpFamily(sdpa.Type, sdpa)
	require.NoError(t, err)

	assert.Nil(t, fam.VariantFor(IOS17))
	assert.Same(t, sdpa, fam.VariantFor(IOS18))
}

func TestOpFamilyAddRejects(t *testing.T) {
	fam, err := NewOpFamily("add", NewOpDef("add", IOS13))
	require.NoError(t, err)

	err = fam.Add(NewOpDef("mul", IOS17))
	assert.True(t, diag.Is(err, diag.CodeInvalidArgument), "type mismatch")

	err = fam.Add(NewOpDef("add", IOS13))
	assert.True(t, diag.Is(err, diag.CodeInvalidArgument), "duplicate version")

	err = fam.Add(NewOpDef("add", OpsetUnset))
	assert.True(t, diag.Is(err, diag.CodeInvalidArgument), "unset version")
}

func TestNewOperationBindsInSlotOrder(t *testing.T) {
	x := NewVar("x", fp32(4))
	axis := NewVar("axis", types.Scalar{DType: types.Int32})

	op, err := NewOperation("s", splitDef, map[string]*Var{"axis": axis, "x": x}, fp32(2), fp32(2))
	require.NoError(t, err)

	require.Len(t, op.Inputs(), 2)
	assert.Equal(t, "x", op.Inputs()[0].Slot.Name)
	assert.Equal(t, "axis", op.Inputs()[1].Slot.Name)
	assert.True(t, op.Inputs()[1].Slot.Const)
	assert.Same(t, axis, op.Input("axis"))
	assert.Nil(t, op.Input("num_splits"))

	require.Len(t, op.Outputs(), 2)
	assert.Equal(t, "s_0", op.Outputs()[0].Name)
	assert.Equal(t, "s_1", op.Outputs()[1].Name)
	assert.Same(t, op, op.Outputs()[1].Producer)
	assert.Same(t, op.Outputs()[0], op.Output())
	assert.Equal(t, "split", op.OpType())
	assert.False(t, op.IsVersioned())
}

func TestNewOperationErrors(t *testing.T) {
	x := NewVar("x", fp32(1))

	tests := []struct {
		name   string
		opName string
		def    *OpDef
		inputs map[string]*Var
		out    []types.Type
	}{
		{"empty name", "", reluDef, map[string]*Var{"x": x}, nil},
		{"nil def", "r", nil, nil, nil},
		{"unknown slot", "r", reluDef, map[string]*Var{"x": x, "alpha": x}, nil},
		{"nil var", "r", reluDef, map[string]*Var{"x": nil}, nil},
		{"missing required", "a", addDef, map[string]*Var{"x": x}, nil},
		{"nil output type", "r", reluDef, map[string]*Var{"x": x}, []types.Type{nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOperation(tt.opName, tt.def, tt.inputs, tt.out...)
			require.Error(t, err)
			assert.Equal(t, diag.CodeInvalidArgument, diag.CodeOf(err))
		})
	}
}

func TestVarIsConst(t *testing.T) {
	c, err := NewConst("c", []float32{1, 2}, fp32(2))
	require.NoError(t, err)
	assert.True(t, c.Output().IsConst(), "const payload")

	lut := NewOpDef("constexpr_lut_to_dense", IOS16, InputSlot{Name: "indices"})
	dense, err := NewOperation("w", lut, map[string]*Var{"indices": c.Output()}, fp32(2))
	require.NoError(t, err)
	assert.True(t, dense.Output().IsConst(), "constexpr producer")

	r, err := NewOperation("r", reluDef, map[string]*Var{"x": c.Output()}, fp32(2))
	require.NoError(t, err)
	assert.False(t, r.Output().IsConst(), "ordinary producer")

	assert.False(t, NewVar("in", fp32(1)).IsConst(), "graph input")
}

func TestNewConstRequiresValue(t *testing.T) {
	_, err := NewConst("c", nil, fp32(1))
	assert.True(t, diag.Is(err, diag.CodeInvalidArgument))
}

func TestVarIsList(t *testing.T) {
	assert.True(t, NewVar("l", types.List{Elem: fp32(1), Length: -1}).IsList())
	assert.False(t, NewVar("t", fp32(1)).IsList())
}
