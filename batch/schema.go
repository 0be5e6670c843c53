package batch

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// rasterBlock is one `raster <name>` block. Exactly one of Path and Expr
// must be set: Path opens a raster file, Expr derives a raster from earlier
// pipeline steps.
type rasterBlock struct {
	Name string         `hcl:"name,label"`
	Path *string        `hcl:"path,optional"`
	Expr hcl.Expression `hcl:"expr,optional"`
}

// outputBlock is one `output <name>` block saving a raster to a file.
type outputBlock struct {
	Name   string         `hcl:"name,label"`
	Raster hcl.Expression `hcl:"raster"`
	Path   string         `hcl:"path"`
}

// pipelineFile is the top-level structure of a pipeline file.
type pipelineFile struct {
	Rasters []*rasterBlock `hcl:"raster,block"`
	Outputs []*outputBlock `hcl:"output,block"`
}

// validate checks block-level constraints that do not need evaluation:
// unique names and the path/expr choice.
func (p *pipelineFile) validate() error {
	seen := make(map[string]bool, len(p.Rasters))
	for _, rb := range p.Rasters {
		if seen[rb.Name] {
			return fmt.Errorf("batch: duplicate raster name %q", rb.Name)
		}
		seen[rb.Name] = true
		hasPath := rb.Path != nil
		hasExpr := exprSet(rb.Expr)
		if hasPath == hasExpr {
			return fmt.Errorf("batch: raster %q must set exactly one of path and expr", rb.Name)
		}
	}
	outs := make(map[string]bool, len(p.Outputs))
	for _, ob := range p.Outputs {
		if outs[ob.Name] {
			return fmt.Errorf("batch: duplicate output name %q", ob.Name)
		}
		outs[ob.Name] = true
		if ob.Path == "" {
			return fmt.Errorf("batch: output %q has an empty path", ob.Name)
		}
	}
	return nil
}

// exprSet reports whether an optional expression attribute was present in
// the source. gohcl substitutes a static null expression for an absent
// attribute, so a nil check is not enough.
func exprSet(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	if len(expr.Variables()) > 0 {
		return true
	}
	v, diags := expr.Value(nil)
	return diags.HasErrors() || !v.IsNull()
}

// rasterRefs extracts the raster names an expression references. Every
// variable traversal must be rooted at `raster` and name a known raster;
// anything else is reported as a diagnostic carrying the source range.
func rasterRefs(expr hcl.Expression, known map[string]bool) ([]string, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	seen := make(map[string]bool)
	var refs []string
	for _, tr := range expr.Variables() {
		root := tr.RootName()
		if root != "raster" {
			rng := tr.SourceRange()
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unknown reference",
				Detail:   fmt.Sprintf("Only raster.<name> references are allowed; %q is not recognized.", root),
				Subject:  &rng,
			})
			continue
		}
		if len(tr) < 2 {
			rng := tr.SourceRange()
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Incomplete raster reference",
				Detail:   "A raster reference has the form raster.<name>.",
				Subject:  &rng,
			})
			continue
		}
		attr, ok := tr[1].(hcl.TraverseAttr)
		if !ok {
			rng := tr.SourceRange()
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid raster reference",
				Detail:   "A raster reference has the form raster.<name>.",
				Subject:  &rng,
			})
			continue
		}
		if !known[attr.Name] {
			rng := tr.SourceRange()
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Reference to undeclared raster",
				Detail:   fmt.Sprintf("No raster block named %q is declared in this pipeline.", attr.Name),
				Subject:  &rng,
			})
			continue
		}
		if !seen[attr.Name] {
			seen[attr.Name] = true
			refs = append(refs, attr.Name)
		}
	}
	return refs, diags
}
