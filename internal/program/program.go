// Package program provides the top-level IR container. A Program
// aggregates named functions, reconciles their operator versions into one
// target opset and runs the structural checks that must pass before the
// graph is lowered.
package program

import (
	"log/slog"
	"strings"

	"github.com/roach88/milir/internal/diag"
	"github.com/roach88/milir/internal/ir"
	"github.com/roach88/milir/internal/types"
)

// Capability names an optional Program feature that callers can probe with
// Supports before relying on it.
type Capability string

// CapParameters is the named constant binding feature (AddParameters).
const CapParameters Capability = "parameters"

// Program owns the functions of one conversion plus the entry function's
// declared input and output types.
type Program struct {
	functions map[string]*ir.Function
	order     []string

	mainInputs  []types.InputType
	mainOutputs []types.InputType

	opset  ir.OpsetVersion
	logger *slog.Logger
}

// Option configures a Program.
type Option func(*Program)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Program) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates an empty program. An empty program targets the baseline
// opset.
func New(opts ...Option) *Program {
	p := &Program{
		functions: make(map[string]*ir.Function),
		opset:     ir.BaselineOpset,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddFunction registers fn under name, then re-resolves the opset across
// every function and reconciles them against it. Adding under an existing
// name replaces that function in place.
//
// On failure the program is left exactly as it was before the call,
// including the opsets pinned on already registered functions.
func (p *Program) AddFunction(name string, fn *ir.Function) error {
	if fn == nil {
		return diag.New(diag.CodeInvalidArgument, "only functions can be added to a program").WithFunction(name)
	}
	if name == "" {
		return diag.New(diag.CodeInvalidArgument, "function name must be non-empty")
	}

	snap := p.snapshot(fn)
	if _, exists := p.functions[name]; !exists {
		p.order = append(p.order, name)
	}
	p.functions[name] = fn

	if err := p.reconcile(); err != nil {
		p.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	functions map[string]*ir.Function
	order     []string
	opsets    map[*ir.Function]ir.OpsetVersion
	opset     ir.OpsetVersion
}

func (p *Program) snapshot(incoming *ir.Function) snapshot {
	s := snapshot{
		functions: make(map[string]*ir.Function, len(p.functions)),
		order:     append([]string(nil), p.order...),
		opsets:    make(map[*ir.Function]ir.OpsetVersion, len(p.functions)+1),
		opset:     p.opset,
	}
	for name, fn := range p.functions {
		s.functions[name] = fn
		s.opsets[fn] = fn.OpsetVersion()
	}
	s.opsets[incoming] = incoming.OpsetVersion()
	return s
}

func (p *Program) restore(s snapshot) {
	p.functions = s.functions
	p.order = s.order
	p.opset = s.opset
	for fn, v := range s.opsets {
		fn.SetOpsetVersion(v)
	}
}

// OpsetVersion returns the opset every function agrees on after the last
// successful AddFunction, or the baseline for an empty program.
func (p *Program) OpsetVersion() ir.OpsetVersion { return p.opset }

// Functions returns the function names in insertion order.
func (p *Program) Functions() []string {
	return append([]string(nil), p.order...)
}

// Function returns the function registered under name.
func (p *Program) Function(name string) (*ir.Function, error) {
	fn, ok := p.functions[name]
	if !ok {
		return nil, diag.New(diag.CodeNotFound, "function %q not found among functions [%s]",
			name, strings.Join(p.order, ", "))
	}
	return fn, nil
}

// SetMainInputTypes declares the entry function's input types.
func (p *Program) SetMainInputTypes(inputs []types.InputType) error {
	for i, in := range inputs {
		if in == nil {
			return diag.New(diag.CodeInvalidArgument, "main input %d is not a tensor or image type", i)
		}
	}
	p.mainInputs = append([]types.InputType(nil), inputs...)
	return nil
}

// MainInputTypes returns the declared entry input types.
func (p *Program) MainInputTypes() []types.InputType { return p.mainInputs }

// SetMainOutputTypes declares the entry function's output types. A nil
// slice means the outputs are inferred.
func (p *Program) SetMainOutputTypes(outputs []types.InputType) error {
	for i, out := range outputs {
		if out == nil {
			return diag.New(diag.CodeInvalidArgument, "main output %d is not a tensor or image type", i)
		}
	}
	if outputs == nil {
		p.mainOutputs = nil
		return nil
	}
	p.mainOutputs = append([]types.InputType{}, outputs...)
	return nil
}

// MainOutputTypes returns the declared entry output types; nil means
// infer.
func (p *Program) MainOutputTypes() []types.InputType { return p.mainOutputs }

// Supports reports whether the program implements an optional capability.
func (p *Program) Supports(c Capability) bool {
	return capabilities[c]
}

var capabilities = map[Capability]bool{
	CapParameters: false,
}

// AddParameters binds a named constant at program scope. Not implemented;
// check Supports(CapParameters) first.
func (p *Program) AddParameters(name string, v *ir.Var) error {
	return diag.New(diag.CodeUnimplemented, "program parameters are not supported (parameter %q)", name)
}

// Validate runs each function's own def/use validation in insertion order
// and stops at the first failure.
func (p *Program) Validate() error {
	for _, name := range p.order {
		if err := p.functions[name].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// String concatenates each function's rendering in insertion order.
func (p *Program) String() string {
	var sb strings.Builder
	for _, name := range p.order {
		sb.WriteString(p.functions[name].Render(name))
	}
	return sb.String()
}

// Fingerprint returns a content hash of the program's rendering.
func (p *Program) Fingerprint() string {
	return ir.HashWithDomain(ir.DomainProgram, p.String())
}
