package opset

import "github.com/roach88/milir/internal/ir"

func in(name string) ir.InputSlot { return ir.InputSlot{Name: name} }

func constIn(name string) ir.InputSlot { return ir.InputSlot{Name: name, Const: true} }

func optIn(name string) ir.InputSlot { return ir.InputSlot{Name: name, Optional: true} }

func optConstIn(name string) ir.InputSlot {
	return ir.InputSlot{Name: name, Const: true, Optional: true}
}

// existingBlocks is synthesized by control-flow builders to carry the
// bodies; it is exempt from the const-input rule.
var existingBlocks = ir.InputSlot{Name: "_existing_blocks", Const: true, Optional: true, Internal: true}

// Default returns a fresh catalog of the built-in operators. Every call
// builds new definitions, so catalogs never share families.
func Default() *Catalog {
	c := NewCatalog()

	mustRegister(c.Register(ir.ConstDef))
	mustRegister(c.Register(ir.NewOpDef("identity", ir.BaselineOpset, in("x"))))
	mustRegister(c.Register(ir.NewOpDef("relu", ir.BaselineOpset, in("x"))))
	mustRegister(c.Register(ir.NewOpDef("softmax", ir.BaselineOpset, in("x"), optConstIn("axis"))))

	mustRegister(c.Register(ir.NewOpDef("cond", ir.BaselineOpset, in("pred"), existingBlocks)))
	mustRegister(c.Register(ir.NewOpDef("while_loop", ir.BaselineOpset, in("loop_vars"), existingBlocks)))

	mustRegister(c.RegisterFamily("add",
		ir.NewOpDef("add", ir.IOS13, in("x"), in("y")),
		ir.NewOpDef("add", ir.IOS17, in("x"), in("y")),
	))
	mustRegister(c.RegisterFamily("matmul",
		ir.NewOpDef("matmul", ir.IOS13, in("x"), in("y"), optConstIn("transpose_x"), optConstIn("transpose_y")),
		ir.NewOpDef("matmul", ir.IOS17, in("x"), in("y"), optConstIn("transpose_x"), optConstIn("transpose_y")),
	))
	mustRegister(c.RegisterFamily("reshape",
		ir.NewOpDef("reshape", ir.IOS13, in("x"), constIn("shape")),
		ir.NewOpDef("reshape", ir.IOS17, in("x"), in("shape")),
	))
	mustRegister(c.RegisterFamily("gather",
		ir.NewOpDef("gather", ir.IOS13, in("x"), in("indices"), optConstIn("axis")),
		ir.NewOpDef("gather", ir.IOS16, in("x"), in("indices"), optConstIn("axis"), optConstIn("batch_dims")),
		ir.NewOpDef("gather", ir.IOS17, in("x"), in("indices"), optConstIn("axis"), optConstIn("batch_dims"),
			optConstIn("validate_indices")),
	))
	convSlots := []ir.InputSlot{
		in("x"), in("weight"), optIn("bias"),
		optConstIn("strides"), optConstIn("pad_type"), optConstIn("pad"),
		optConstIn("dilations"), optConstIn("groups"),
	}
	mustRegister(c.RegisterFamily("conv",
		ir.NewOpDef("conv", ir.IOS13, convSlots...),
		ir.NewOpDef("conv", ir.IOS17, convSlots...),
	))

	mustRegister(c.RegisterFamily("constexpr_affine_dequantize",
		ir.NewOpDef("constexpr_affine_dequantize", ir.IOS16,
			constIn("quantized_data"), constIn("zero_point"), constIn("scale"), constIn("axis")),
	))
	mustRegister(c.RegisterFamily("constexpr_lut_to_dense",
		ir.NewOpDef("constexpr_lut_to_dense", ir.IOS16, constIn("lut"), constIn("indices"), constIn("shape")),
		ir.NewOpDef("constexpr_lut_to_dense", ir.IOS18, constIn("indices"), constIn("lut"), optConstIn("vector_axis")),
	))
	mustRegister(c.RegisterFamily("constexpr_sparse_to_dense",
		ir.NewOpDef("constexpr_sparse_to_dense", ir.IOS16, constIn("nonzero_data"), constIn("mask"), constIn("shape")),
	))
	mustRegister(c.RegisterFamily("scaled_dot_product_attention",
		ir.NewOpDef("scaled_dot_product_attention", ir.IOS18, in("query"), in("key"), in("value"), optIn("attn_mask")),
	))

	return c
}

func mustRegister(err error) {
	if err != nil {
		panic(err)
	}
}
