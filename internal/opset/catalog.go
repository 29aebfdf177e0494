// Package opset is the operator set: the versioned operator families a
// program may instantiate, and the lookup that picks a variant for a
// deployment target.
package opset

import (
	"sort"

	"github.com/roach88/milir/internal/diag"
	"github.com/roach88/milir/internal/ir"
)

// Catalog maps operator types to their definitions. An entry is either a
// single unversioned definition or a family of versioned variants.
type Catalog struct {
	families    map[string]*ir.OpFamily
	unversioned map[string]*ir.OpDef
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		families:    make(map[string]*ir.OpFamily),
		unversioned: make(map[string]*ir.OpDef),
	}
}

// Register adds an unversioned operator.
func (c *Catalog) Register(def *ir.OpDef) error {
	if c.known(def.Type) {
		return diag.New(diag.CodeInvalidArgument, "operator %q is already registered", def.Type)
	}
	c.unversioned[def.Type] = def
	return nil
}

// RegisterFamily adds a versioned operator with its variants.
func (c *Catalog) RegisterFamily(opType string, variants ...*ir.OpDef) error {
	if c.known(opType) {
		return diag.New(diag.CodeInvalidArgument, "operator %q is already registered", opType)
	}
	fam, err := ir.NewOpFamily(opType, variants...)
	if err != nil {
		return err
	}
	c.families[opType] = fam
	return nil
}

func (c *Catalog) known(opType string) bool {
	_, f := c.families[opType]
	_, u := c.unversioned[opType]
	return f || u
}

// Family returns the versioned family of opType, or nil.
func (c *Catalog) Family(opType string) *ir.OpFamily {
	return c.families[opType]
}

// Resolve returns the definition opType selects at target. Unversioned
// operators resolve to their single definition at every target. An
// unknown operator fails with NOT_FOUND; a versioned operator introduced
// after target fails with VERSION_MISMATCH.
func (c *Catalog) Resolve(opType string, target ir.OpsetVersion) (*ir.OpDef, error) {
	if def, ok := c.unversioned[opType]; ok {
		return def, nil
	}
	fam, ok := c.families[opType]
	if !ok {
		return nil, diag.New(diag.CodeNotFound, "unknown operator %q", opType)
	}
	def := fam.VariantFor(target)
	if def == nil {
		first := fam.Variants()[0].Version
		return nil, diag.New(diag.CodeVersionMismatch,
			"operator %q does not exist at %s, introduced in %s", opType, target, first).
			WithDetail("declared", target.String()).
			WithDetail("required", first.String())
	}
	return def, nil
}

// Exact returns the variant of opType declared for exactly version, or
// NOT_FOUND.
func (c *Catalog) Exact(opType string, version ir.OpsetVersion) (*ir.OpDef, error) {
	fam, ok := c.families[opType]
	if !ok {
		if def, ok := c.unversioned[opType]; ok {
			return def, nil
		}
		return nil, diag.New(diag.CodeNotFound, "unknown operator %q", opType)
	}
	for _, v := range fam.Variants() {
		if v.Version == version {
			return v, nil
		}
	}
	return nil, diag.New(diag.CodeNotFound, "operator %q has no %s variant", opType, version)
}

// Types returns every registered operator type, sorted.
func (c *Catalog) Types() []string {
	out := make([]string, 0, len(c.families)+len(c.unversioned))
	for t := range c.families {
		out = append(out, t)
	}
	for t := range c.unversioned {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
