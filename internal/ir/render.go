package ir

import (
	"fmt"
	"strings"
)

const renderIndent = "  "

// Render returns the textual form of the function under name:
//
//	function main[iOS16](%x: tensor<fp32, [1, H]>) {
//	  %y: tensor<fp32, [1, H]> = relu(x=%x)
//	} -> (%y)
//
// The output is deterministic for a given function.
func (f *Function) Render(name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "function %s[%s](%s) {\n", name, f.opset, renderVars(f.Block.Inputs))
	renderOps(&sb, f.Block.Operations, 1)
	fmt.Fprintf(&sb, "} -> (%s)\n", renderRefs(f.Block.Outputs))
	return sb.String()
}

func renderOps(sb *strings.Builder, ops []*Operation, depth int) {
	indent := strings.Repeat(renderIndent, depth)
	for _, op := range ops {
		sb.WriteString(indent)
		if len(op.outputs) > 0 {
			sb.WriteString(renderVars(op.outputs))
			sb.WriteString(" = ")
		}
		sb.WriteString(op.def.String())
		sb.WriteByte('(')
		for i, b := range op.inputs {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "%s=%%%s", b.Slot.Name, b.Var.Name)
		}
		sb.WriteByte(')')
		if len(op.outputs) == 0 {
			fmt.Fprintf(sb, " [name=%s]", op.name)
		}
		if len(op.blocks) == 0 {
			sb.WriteByte('\n')
			continue
		}
		sb.WriteString(" {\n")
		for i, b := range op.blocks {
			name := b.Name
			if name == "" {
				name = fmt.Sprintf("block%d", i)
			}
			fmt.Fprintf(sb, "%s%s%s(%s) {\n", indent, renderIndent, name, renderVars(b.Inputs))
			renderOps(sb, b.Operations, depth+2)
			fmt.Fprintf(sb, "%s%s} -> (%s)\n", indent, renderIndent, renderRefs(b.Outputs))
		}
		sb.WriteString(indent)
		sb.WriteString("}\n")
	}
}

func renderVars(vars []*Var) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func renderRefs(vars []*Var) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		if v == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = "%" + v.Name
	}
	return strings.Join(parts, ", ")
}
