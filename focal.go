package rasterkit

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rasterkit/rasterkit/internal/focal"
	"github.com/rasterkit/rasterkit/internal/grid"
)

// Window is a boolean neighborhood footprint for focal statistics. The
// anchor cell sits at ((Rows-1)/2, (Cols-1)/2); even dimensions reach one
// cell further down and right than up and left.
type Window = focal.Window

// RectWindow returns a fully active width x height window.
func RectWindow(width, height int) (Window, error) { return focal.Rect(height, width) }

// CircleWindow returns a circular window of the given radius. The window is
// square with side 2*radius-1.
func CircleWindow(radius int) (Window, error) { return focal.Circle(radius) }

// AnnulusWindow returns a ring window: the circle of the outer radius minus
// the centered circle of the inner radius. Requires 1 <= inner < outer.
func AnnulusWindow(inner, outer int) (Window, error) { return focal.Annulus(inner, outer) }

// FocalStat identifies a windowed statistic.
type FocalStat = focal.Stat

const (
	FocalASM     = focal.StatASM
	FocalEntropy = focal.StatEntropy
	FocalMax     = focal.StatMax
	FocalMean    = focal.StatMean
	FocalMedian  = focal.StatMedian
	FocalMode    = focal.StatMode
	FocalMin     = focal.StatMin
	FocalStd     = focal.StatStd
	FocalSum     = focal.StatSum
	FocalUnique  = focal.StatUnique
	FocalVar     = focal.StatVar
)

// ParseFocalStat interprets a focal statistic name such as "mean" or "std".
func ParseFocalStat(name string) (FocalStat, error) { return focal.ParseStat(name) }

// BoundaryMode selects how kernel operations extend values past the raster
// edge.
type BoundaryMode = focal.Boundary

const (
	BoundaryConstant = focal.BoundaryConstant
	BoundaryReflect  = focal.BoundaryReflect
	BoundaryNearest  = focal.BoundaryNearest
	BoundaryWrap     = focal.BoundaryWrap
)

// ParseBoundary interprets a boundary mode name such as "reflect".
func ParseBoundary(name string) (BoundaryMode, error) { return focal.ParseBoundary(name) }

// Kernel holds cross-correlation weights in row-major order.
type Kernel struct {
	Rows, Cols int
	Weights    []float64
}

// NewKernel builds a kernel from a rectangular weight matrix. The matrix
// must be non-empty and non-ragged and may not contain NaN.
func NewKernel(weights [][]float64) (Kernel, error) {
	if len(weights) == 0 || len(weights[0]) == 0 {
		return Kernel{}, fmt.Errorf("rasterkit: NewKernel: empty kernel")
	}
	cols := len(weights[0])
	k := Kernel{Rows: len(weights), Cols: cols, Weights: make([]float64, 0, len(weights)*cols)}
	for i, row := range weights {
		if len(row) != cols {
			return Kernel{}, fmt.Errorf("rasterkit: NewKernel: row %d has %d values, want %d", i, len(row), cols)
		}
		for _, v := range row {
			if math.IsNaN(v) {
				return Kernel{}, fmt.Errorf("rasterkit: NewKernel: kernel may not contain NaN")
			}
			k.Weights = append(k.Weights, v)
		}
	}
	return k, nil
}

func (k Kernel) valid() bool {
	return k.Rows >= 1 && k.Cols >= 1 && len(k.Weights) == k.Rows*k.Cols
}

func kernelFractional(weights []float64) bool {
	for _, w := range weights {
		if w != math.Trunc(w) {
			return true
		}
	}
	return false
}

// Focal computes the windowed statistic over every cell of every band.
// Null cells and cells beyond the raster edge contribute nothing; a cell
// whose neighborhood is empty yields NaN, except sum which yields 0. When
// the result dtype cannot hold NaN the empty cell is nulled instead, and a
// result of an unmasked raster gains the dtype's default null value.
// Promoting statistics produce Float64; the rest keep the input dtype. The
// input mask carries through to the result.
func (r *Raster) Focal(stat FocalStat, w Window) (*Raster, error) {
	if stat > FocalVar {
		return nil, fmt.Errorf("rasterkit: Focal: unknown focal statistic %d", stat)
	}
	if w.Rows < 1 || w.Cols < 1 || len(w.Cells) != w.Rows*w.Cols {
		return nil, fmt.Errorf("rasterkit: Focal: invalid %dx%d window", w.Rows, w.Cols)
	}
	if w.Count() == 0 {
		return nil, fmt.Errorf("rasterkit: Focal: window has no active cells")
	}
	dt := r.dtype
	if stat.Promotes() {
		dt = Float64
	}
	null := r.null
	src := &focalSource{
		inner: r.src,
		nb:    r.shape.Bands,
		lay:   r.layout,
		krows: w.Rows,
		kcols: w.Cols,
		mode:  focal.BoundaryConstant,
		cval:  math.NaN(),
		apply: func(dst, padded []float64, rows, cols int) {
			focal.Apply(dst, padded, rows, cols, w, stat)
		},
	}
	switch {
	case r.Masked():
		src.masked = true
		src.nanMask = true
	case !dt.IsFloat() && stat != FocalSum:
		// An empty neighborhood at the edge produces NaN, which an integer
		// dtype cannot represent.
		nv := dt.DefaultNull()
		null = &nv
		src.masked = true
		src.nanMask = true
	}
	return derive(src, r.shape, dt, null, r), nil
}

// Correlate cross-correlates the kernel over every band. Null cells
// contribute nothing to the sums; cells beyond the raster edge resolve per
// the boundary mode, with cval filling under BoundaryConstant. A fractional
// kernel promotes integer rasters to Float64. The input mask carries
// through to the result.
func (r *Raster) Correlate(k Kernel, mode BoundaryMode, cval float64) (*Raster, error) {
	return r.kernelOp("Correlate", k, mode, cval, false)
}

// Convolve is Correlate with the kernel rotated 180 degrees.
func (r *Raster) Convolve(k Kernel, mode BoundaryMode, cval float64) (*Raster, error) {
	return r.kernelOp("Convolve", k, mode, cval, true)
}

func (r *Raster) kernelOp(op string, k Kernel, mode BoundaryMode, cval float64, flip bool) (*Raster, error) {
	if !k.valid() {
		return nil, fmt.Errorf("rasterkit: %s: invalid %dx%d kernel", op, k.Rows, k.Cols)
	}
	if mode > BoundaryWrap {
		return nil, fmt.Errorf("rasterkit: %s: unknown boundary mode %d", op, mode)
	}
	weights := k.Weights
	if flip {
		weights = focal.Flip(weights)
	}
	dt := r.dtype
	if kernelFractional(weights) && !dt.IsFloat() {
		dt = Float64
	}
	nanAware := r.Masked()
	src := &focalSource{
		inner:  r.src,
		nb:     r.shape.Bands,
		lay:    r.layout,
		krows:  k.Rows,
		kcols:  k.Cols,
		mode:   mode,
		cval:   cval,
		masked: nanAware,
		apply: func(dst, padded []float64, rows, cols int) {
			if !nanAware && tryAccelCorrelate(dst, padded, rows, cols, weights, k.Rows, k.Cols) {
				return
			}
			focal.Correlate2D(dst, padded, rows, cols, weights, k.Rows, k.Cols, nanAware)
		},
	}
	return derive(src, r.shape, dt, r.null, r), nil
}

// focalSource evaluates a neighborhood operation per tile. Each tile is
// assembled into a padded plane holding the tile plus its halo, with
// out-of-raster coordinates resolved by the boundary mode and null cells
// read as NaN.
type focalSource struct {
	inner        source
	nb           int
	lay          grid.Layout
	krows, kcols int
	mode         focal.Boundary
	cval         float64
	masked       bool
	nanMask      bool
	apply        func(dst, padded []float64, rows, cols int)
}

func (s *focalSource) bands() int          { return s.nb }
func (s *focalSource) layout() grid.Layout { return s.lay }
func (s *focalSource) memoize() bool       { return true }

// maps resolves every padded row and column of tile (tr, tc) to a source
// index, or -1 for constant fill.
func (s *focalSource) maps(tr, tc int) (rowMap, colMap []int, spec grid.Spec) {
	spec = s.lay.Tile(tr, tc)
	top := (s.krows - 1) / 2
	left := (s.kcols - 1) / 2
	rowMap = make([]int, spec.Rows+s.krows-1)
	for i := range rowMap {
		rowMap[i] = s.mode.MapIndex(spec.Row0-top+i, s.lay.Rows)
	}
	colMap = make([]int, spec.Cols+s.kcols-1)
	for j := range colMap {
		colMap[j] = s.mode.MapIndex(spec.Col0-left+j, s.lay.Cols)
	}
	return rowMap, colMap, spec
}

func (s *focalSource) deps(band, tr, tc int) []tileRef {
	rowMap, colMap, _ := s.maps(tr, tc)
	trs := tileIndexSet(rowMap, s.lay.TileRows)
	tcs := tileIndexSet(colMap, s.lay.TileCols)
	refs := make([]tileRef, 0, len(trs)*len(tcs))
	for _, rr := range trs {
		for _, cc := range tcs {
			refs = append(refs, tileRef{s.inner, band, rr, cc})
		}
	}
	return refs
}

// tileIndexSet returns the sorted distinct tile indices covering the given
// cell indices. Negative entries (constant fill) are skipped.
func tileIndexSet(cells []int, tileDim int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, c := range cells {
		if c < 0 {
			continue
		}
		t := c / tileDim
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Ints(out)
	return out
}

func (s *focalSource) compute(ctx context.Context, band, tr, tc int, get getTile) (grid.Tile, error) {
	rowMap, colMap, spec := s.maps(tr, tc)
	trs := tileIndexSet(rowMap, s.lay.TileRows)
	tcs := tileIndexSet(colMap, s.lay.TileCols)

	rPos := make(map[int]int, len(trs))
	for i, rr := range trs {
		rPos[rr] = i
	}
	cPos := make(map[int]int, len(tcs))
	for i, cc := range tcs {
		cPos[cc] = i
	}
	tiles := make([][]grid.Tile, len(trs))
	for i, rr := range trs {
		tiles[i] = make([]grid.Tile, len(tcs))
		for j, cc := range tcs {
			t, err := get(ctx, tileRef{s.inner, band, rr, cc})
			if err != nil {
				return grid.Tile{}, err
			}
			tiles[i][j] = t
		}
	}

	// Per-column lookups shared by every padded row.
	pcols := len(colMap)
	colTile := make([]int, pcols)
	colOff := make([]int, pcols)
	for j, cm := range colMap {
		if cm < 0 {
			colTile[j] = -1
			continue
		}
		colTile[j] = cPos[cm/s.lay.TileCols]
		colOff[j] = cm % s.lay.TileCols
	}

	padded := make([]float64, len(rowMap)*pcols)
	for i, rm := range rowMap {
		prow := padded[i*pcols : (i+1)*pcols]
		if rm < 0 {
			for j := range prow {
				prow[j] = s.cval
			}
			continue
		}
		row := tiles[rPos[rm/s.lay.TileRows]]
		roff := rm % s.lay.TileRows
		for j := range prow {
			if colTile[j] < 0 {
				prow[j] = s.cval
				continue
			}
			t := &row[colTile[j]]
			idx := roff*t.Spec.Cols + colOff[j]
			if t.Mask != nil && t.Mask[idx] {
				prow[j] = math.NaN()
			} else {
				prow[j] = t.Data[idx]
			}
		}
	}

	out := grid.NewTile(band, spec)
	s.apply(out.Data, padded, spec.Rows, spec.Cols)

	if s.masked {
		central := tiles[rPos[tr]][cPos[tc]]
		if central.Mask != nil {
			copy(out.EnsureMask(), central.Mask)
		}
		if s.nanMask {
			mask := out.EnsureMask()
			for i, v := range out.Data {
				if math.IsNaN(v) {
					mask[i] = true
				}
			}
		}
		out.Normalize()
	}
	return out, nil
}
