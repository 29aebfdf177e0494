// Package ir provides the graph intermediate representation: opset
// versions, operator definitions and their versioned families, vars,
// operations, blocks, functions and placeholders.
//
// ir depends only on diag, symbolic and types. Program-level policy
// (opset resolution, structural checks) lives in package program.
//
// Key constraints:
//   - Every operation reachable from a block is visited through Block.Walk
//   - Symbols and placeholder names are unique per Session, never globally
//   - Constness of a producer is the OpDef.ConstExpr capability
package ir
