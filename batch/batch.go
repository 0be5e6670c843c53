package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/rasterkit/rasterkit"
	"github.com/rasterkit/rasterkit/internal/graph"
)

// RunOption configures a pipeline run.
type RunOption func(*runConfig)

type runConfig struct {
	workers int
	baseDir string
}

// WithWorkers caps the number of pipeline steps evaluating at once. The
// default is runtime.NumCPU().
func WithWorkers(n int) RunOption {
	return func(c *runConfig) { c.workers = n }
}

// WithBaseDir resolves relative paths in the pipeline against dir instead
// of the pipeline file's directory.
func WithBaseDir(dir string) RunOption {
	return func(c *runConfig) { c.baseDir = dir }
}

// Result holds the rasters a pipeline evaluated, keyed by their block
// names. Close releases any file-backed rasters the pipeline opened.
type Result struct {
	rasters map[string]*rasterkit.Raster
	opened  []*rasterkit.Raster
}

// Raster returns the evaluated raster with the given name.
func (res *Result) Raster(name string) (*rasterkit.Raster, bool) {
	r, ok := res.rasters[name]
	return r, ok
}

// Names returns the sorted names of all evaluated rasters.
func (res *Result) Names() []string {
	names := make([]string, 0, len(res.rasters))
	for name := range res.rasters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases the files backing rasters the pipeline opened from disk.
func (res *Result) Close() error {
	var first error
	for _, r := range res.opened {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	res.opened = nil
	return first
}

// Run parses and executes the pipeline file at path. Independent steps run
// concurrently; the first failure cancels the rest and is returned as the
// root cause.
func Run(ctx context.Context, path string, opts ...RunOption) (*Result, error) {
	cfg := buildConfig(opts)
	if cfg.baseDir == "" {
		cfg.baseDir = filepath.Dir(path)
	}
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("batch: parse %s: %w", path, diags)
	}
	return run(ctx, file, cfg)
}

// RunBytes executes a pipeline held in memory. filename labels diagnostics.
func RunBytes(ctx context.Context, src []byte, filename string, opts ...RunOption) (*Result, error) {
	cfg := buildConfig(opts)
	if cfg.baseDir == "" {
		cfg.baseDir = "."
	}
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("batch: parse %s: %w", filename, diags)
	}
	return run(ctx, file, cfg)
}

func buildConfig(opts []RunOption) runConfig {
	cfg := runConfig{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}
	return cfg
}

// runState shares evaluated rasters between pipeline steps.
type runState struct {
	mu      sync.Mutex
	rasters map[string]*rasterkit.Raster
	opened  []*rasterkit.Raster
}

func (st *runState) set(name string, r *rasterkit.Raster, fromFile bool) {
	st.mu.Lock()
	st.rasters[name] = r
	if fromFile {
		st.opened = append(st.opened, r)
	}
	st.mu.Unlock()
}

// evalContext snapshots the rasters evaluated so far into an HCL evaluation
// context. Dependency edges guarantee every raster an expression references
// is already present.
func (st *runState) evalContext(ctx context.Context) *hcl.EvalContext {
	st.mu.Lock()
	vals := make(map[string]cty.Value, len(st.rasters))
	for name, r := range st.rasters {
		vals[name] = rasterVal(r)
	}
	st.mu.Unlock()
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"raster": cty.ObjectVal(vals)},
		Functions: pipelineFunctions(ctx),
	}
}

func run(ctx context.Context, file *hcl.File, cfg runConfig) (*Result, error) {
	var root pipelineFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("batch: decode pipeline: %w", diags)
	}
	if err := root.validate(); err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(root.Rasters))
	for _, rb := range root.Rasters {
		known[rb.Name] = true
	}

	st := &runState{rasters: make(map[string]*rasterkit.Raster, len(root.Rasters))}
	g := graph.New()

	var refDiags hcl.Diagnostics
	for _, rb := range root.Rasters {
		g.AddNode("raster."+rb.Name, rasterStep(st, cfg, rb))
	}
	for _, ob := range root.Outputs {
		g.AddNode("output."+ob.Name, outputStep(st, cfg, ob))
	}
	for _, rb := range root.Rasters {
		if rb.Expr == nil {
			continue
		}
		refs, diags := rasterRefs(rb.Expr, known)
		refDiags = append(refDiags, diags...)
		for _, ref := range refs {
			if ref == rb.Name {
				refDiags = append(refDiags, selfReference(rb.Name, rb.Expr))
				continue
			}
			if err := g.AddEdge("raster."+ref, "raster."+rb.Name); err != nil {
				return nil, err
			}
		}
	}
	for _, ob := range root.Outputs {
		refs, diags := rasterRefs(ob.Raster, known)
		refDiags = append(refDiags, diags...)
		for _, ref := range refs {
			if err := g.AddEdge("raster."+ref, "output."+ob.Name); err != nil {
				return nil, err
			}
		}
	}
	if refDiags.HasErrors() {
		return nil, fmt.Errorf("batch: invalid pipeline: %w", refDiags)
	}
	if err := g.DetectCycles(); err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}

	if err := graph.NewExecutor(g, cfg.workers).Run(ctx); err != nil {
		for _, r := range st.opened {
			r.Close()
		}
		return nil, fmt.Errorf("batch: pipeline failed: %w", err)
	}
	return &Result{rasters: st.rasters, opened: st.opened}, nil
}

func selfReference(name string, expr hcl.Expression) *hcl.Diagnostic {
	rng := expr.Range()
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Self-referential raster",
		Detail:   fmt.Sprintf("Raster %q references itself.", name),
		Subject:  &rng,
	}
}

// rasterStep evaluates one raster block: open its file or evaluate its
// expression against the rasters computed so far.
func rasterStep(st *runState, cfg runConfig, rb *rasterBlock) graph.RunFunc {
	return func(ctx context.Context) error {
		if rb.Path != nil {
			path := resolvePath(cfg.baseDir, *rb.Path)
			r, err := rasterkit.Open(path)
			if err != nil {
				return fmt.Errorf("raster %q: %w", rb.Name, err)
			}
			st.set(rb.Name, r, true)
			rasterkit.Logger().Info("pipeline raster opened", "raster", rb.Name, "path", path)
			return nil
		}
		v, diags := rb.Expr.Value(st.evalContext(ctx))
		if diags.HasErrors() {
			return fmt.Errorf("raster %q: %w", rb.Name, diags)
		}
		if !v.Type().Equals(rasterType) {
			return fmt.Errorf("raster %q: expression produced %s, want a raster",
				rb.Name, v.Type().FriendlyName())
		}
		st.set(rb.Name, v.EncapsulatedValue().(*rasterkit.Raster), false)
		rasterkit.Logger().Info("pipeline raster ready", "raster", rb.Name)
		return nil
	}
}

// outputStep saves a raster once everything it references has evaluated.
func outputStep(st *runState, cfg runConfig, ob *outputBlock) graph.RunFunc {
	return func(ctx context.Context) error {
		v, diags := ob.Raster.Value(st.evalContext(ctx))
		if diags.HasErrors() {
			return fmt.Errorf("output %q: %w", ob.Name, diags)
		}
		if !v.Type().Equals(rasterType) {
			return fmt.Errorf("output %q: raster attribute produced %s, want a raster",
				ob.Name, v.Type().FriendlyName())
		}
		r := v.EncapsulatedValue().(*rasterkit.Raster)
		path := resolvePath(cfg.baseDir, ob.Path)
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("output %q: %w", ob.Name, err)
			}
		}
		if err := r.Save(ctx, path); err != nil {
			return fmt.Errorf("output %q: %w", ob.Name, err)
		}
		rasterkit.Logger().Info("pipeline output saved", "output", ob.Name, "path", path)
		return nil
	}
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
