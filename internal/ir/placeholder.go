package ir

import (
	"github.com/roach88/milir/internal/diag"
	"github.com/roach88/milir/internal/types"
)

// Placeholder declares one graph input. It owns a symbolic shape, an element
// type and the single var that represents the input inside the function.
type Placeholder struct {
	name   string
	shape  []types.Dim
	dtype  types.DType
	output *Var
}

type placeholderConfig struct {
	dtype      types.DType
	name       string
	allowRank0 bool
}

// PlaceholderOption configures NewPlaceholder.
type PlaceholderOption func(*placeholderConfig)

// WithDType sets the element type (default fp32).
func WithDType(d types.DType) PlaceholderOption {
	return func(c *placeholderConfig) { c.dtype = d }
}

// WithName sets the input name (default "placeholder_<n>" from the session).
func WithName(name string) PlaceholderOption {
	return func(c *placeholderConfig) { c.name = name }
}

// AllowRank0 permits an empty shape. The deployment target does not support
// rank-0 inputs, so a warning is logged.
func AllowRank0() PlaceholderOption {
	return func(c *placeholderConfig) { c.allowRank0 = true }
}

// NewPlaceholder declares a graph input.
//
// shape must be a slice or array whose entries are non-negative integers or
// symbols (see types.DimOf). An empty shape fails with SHAPE_ELEMENT unless
// AllowRank0 is given.
func NewPlaceholder(sess *Session, shape any, opts ...PlaceholderOption) (*Placeholder, error) {
	if sess == nil {
		return nil, diag.New(diag.CodeInvalidArgument, "placeholder requires a session")
	}
	cfg := placeholderConfig{dtype: types.FP32}
	for _, opt := range opts {
		opt(&cfg)
	}

	dims, err := types.Shape(shape)
	if err != nil {
		return nil, err
	}
	if len(dims) == 0 {
		if !cfg.allowRank0 {
			return nil, diag.New(diag.CodeShapeElement, "rank-0 input %q is unsupported", cfg.name)
		}
		sess.logger.Warn("rank-0 placeholder is unsupported by the deployment target",
			"input", cfg.name,
		)
	}
	if cfg.dtype == types.InvalidDType {
		return nil, diag.New(diag.CodeInvalidArgument, "placeholder %q has an invalid dtype", cfg.name)
	}

	p := &Placeholder{shape: dims, dtype: cfg.dtype}
	name := cfg.name
	if name == "" {
		name = sess.nextPlaceholderName()
	}
	p.name = name
	p.output = &Var{Name: name, Type: p.TypeInference()}
	return p, nil
}

// TypeInference returns the input type: a scalar for rank 0, otherwise a
// tensor over the dtype and shape.
func (p *Placeholder) TypeInference() types.Type {
	return types.Infer(p.dtype, p.shape)
}

// Name returns the input name.
func (p *Placeholder) Name() string { return p.name }

// SetName renames the placeholder and its output together.
func (p *Placeholder) SetName(name string) {
	p.name = name
	p.output.Name = name
}

// Shape returns the declared dims.
func (p *Placeholder) Shape() []types.Dim { return p.shape }

// DType returns the element type.
func (p *Placeholder) DType() types.DType { return p.dtype }

// Output returns the var representing this input.
func (p *Placeholder) Output() *Var { return p.output }

// Outputs returns the single output, for symmetry with operations.
func (p *Placeholder) Outputs() []*Var { return []*Var{p.output} }

// Spec returns a tensor descriptor for this input.
func (p *Placeholder) Spec() types.TensorSpec {
	return types.TensorSpec{Name: p.name, Shape: p.shape, DType: p.dtype}
}

func (p *Placeholder) String() string { return p.output.String() }
