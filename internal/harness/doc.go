// Package harness provides conformance testing for milir programs.
//
// A scenario names CUE program descriptions and the outcome checking them
// must produce: whether the program is valid, the error code of the first
// failure, the reconciled opset and the functions it holds. Assertions
// query individual properties of the compiled program.
//
// # Scenario Format
//
//	name: attention_ios18
//	description: "An iOS18-only operator lifts the whole program to iOS18"
//	specs:
//	  - ../programs/attention.cue
//	expect:
//	  valid: true
//	  opset: iOS18
//	  functions: [main]
//	assertions:
//	  - type: find_ops
//	    op_type: scaled_dot_product_attention
//	    count: 1
//	  - type: op_version
//	    op: attn
//	    version: iOS18
//	  - type: function_opset
//	    function: main
//	    version: iOS18
//
// # Assertion Types
//
//   - find_ops: counts ops matching a name prefix and/or op type
//   - op_version: checks the opset variant an op resolved to
//   - function_opset: checks the opset a function is pinned to
//
// # Deterministic Testing
//
// Every scenario runs with a fresh symbol session, a fresh operator
// catalog and an in-memory SQLite store whose run IDs come from
// testutil.SequentialIDGenerator. Rendering and findings are therefore
// identical across runs, which golden snapshots rely on.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/attention.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
