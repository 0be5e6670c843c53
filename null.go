package rasterkit

import (
	"fmt"

	"github.com/rasterkit/rasterkit/internal/grid"
)

// SetNullValue returns a raster with v as its null value. Cells equal to v
// (NaN compares equal to NaN here) are masked in addition to any existing
// mask. If v is not representable in the raster's dtype, the dtype promotes
// to one that can hold it.
func (r *Raster) SetNullValue(v float64) (*Raster, error) {
	dt := r.dtype
	if !dt.CanRepresent(v) {
		dt = PromoteForValue(dt, v)
	}
	src := &mapTileSource{inner: r.src, lay: r.layout, fn: func(in grid.Tile) (grid.Tile, error) {
		out := grid.NewTile(in.Band, in.Spec)
		copy(out.Data, in.Data)
		mask := out.EnsureMask()
		for i, val := range in.Data {
			mask[i] = (in.Mask != nil && in.Mask[i]) || valueEqual(val, v)
		}
		out.Normalize()
		return out, nil
	}}
	return derive(src, r.shape, dt, &v, r), nil
}

// ClearNullValue returns a raster with no null value and no mask. Values at
// previously masked cells become visible as-is.
func (r *Raster) ClearNullValue() *Raster {
	if !r.Masked() {
		return r
	}
	src := &mapTileSource{inner: r.src, lay: r.layout, fn: func(in grid.Tile) (grid.Tile, error) {
		out := in
		out.Mask = nil
		return out, nil
	}}
	return derive(src, r.shape, r.dtype, nil, r)
}

// BurnMask returns a raster whose masked cells hold the null value in the
// value plane itself, so the fill survives mask-dropping operations. Bool
// rasters burn false. The mask is preserved. Unmasked rasters are returned
// unchanged.
func (r *Raster) BurnMask() *Raster {
	if !r.Masked() {
		return r
	}
	burn := *r.null
	if r.dtype == Bool {
		burn = 0
	}
	src := &mapTileSource{inner: r.src, lay: r.layout, fn: func(in grid.Tile) (grid.Tile, error) {
		if in.Mask == nil {
			return in, nil
		}
		out := grid.NewTile(in.Band, in.Spec)
		copy(out.Data, in.Data)
		copy(out.EnsureMask(), in.Mask)
		for i, m := range in.Mask {
			if m {
				out.Data[i] = burn
			}
		}
		return out, nil
	}}
	return derive(src, r.shape, r.dtype, r.null, r)
}

// ToNullMask returns a Bool raster that is true where cells are masked.
// Unmasked rasters yield all false.
func (r *Raster) ToNullMask() *Raster {
	if !r.Masked() {
		src := &constSource{value: 0, nb: r.shape.Bands, lay: r.layout}
		return derive(src, r.shape, Bool, nil, r)
	}
	src := &mapTileSource{inner: r.src, lay: r.layout, fn: func(in grid.Tile) (grid.Tile, error) {
		out := grid.NewTile(in.Band, in.Spec)
		if in.Mask != nil {
			for i, m := range in.Mask {
				if m {
					out.Data[i] = 1
				}
			}
		}
		return out, nil
	}}
	return derive(src, r.shape, Bool, nil, r)
}

// ReplaceNull returns a raster with masked cells filled with v and the mask
// dropped. The dtype promotes to hold v when necessary. Unmasked rasters
// are returned unchanged.
func (r *Raster) ReplaceNull(v float64) (*Raster, error) {
	if !r.Masked() {
		return r, nil
	}
	dt := r.dtype
	if !dt.CanRepresent(v) {
		dt = PromoteForValue(dt, v)
	}
	src := &mapTileSource{inner: r.src, lay: r.layout, fn: func(in grid.Tile) (grid.Tile, error) {
		if in.Mask == nil {
			return in, nil
		}
		out := grid.NewTile(in.Band, in.Spec)
		copy(out.Data, in.Data)
		for i, m := range in.Mask {
			if m {
				out.Data[i] = v
			}
		}
		return out, nil
	}}
	return derive(src, r.shape, dt, nil, r), nil
}

// Where returns a raster taking r's cells where cond is truthy and other's
// cells elsewhere. cond must have a Bool or integer dtype and a matching
// plane shape; other may be a raster or a scalar. The mask follows the
// selected input, masked condition cells are masked in the result, and the
// null value standardizes to the result dtype's default.
func (r *Raster) Where(cond *Raster, other any) (*Raster, error) {
	if cond == nil {
		return nil, fmt.Errorf("rasterkit: Where: nil condition")
	}
	if cond.dtype.IsFloat() {
		return nil, fmt.Errorf("rasterkit: Where: condition must be bool or integer, got %s", cond.dtype)
	}
	if cond.shape.Rows != r.shape.Rows || cond.shape.Cols != r.shape.Cols {
		return nil, fmt.Errorf("rasterkit: Where: condition shape %s does not match %s",
			cond.shape, r.shape)
	}
	if cond.shape.Bands != r.shape.Bands && cond.shape.Bands != 1 {
		return nil, fmt.Errorf("rasterkit: Where: cannot broadcast %d condition bands against %d",
			cond.shape.Bands, r.shape.Bands)
	}
	op, err := r.resolveOperand("Where", other)
	if err != nil {
		return nil, err
	}
	dt := r.promoteWith(op)
	nb := r.shape.Bands
	if op.raster != nil && op.raster.shape.Bands > nb {
		nb = op.raster.shape.Bands
	}
	if cond.shape.Bands > nb {
		nb = cond.shape.Bands
	}
	src := &whereSource{
		cond: alignLayout(cond, r.layout),
		x:    r.src,
		y:    op.src,
		nb:   nb,
		lay:  r.layout,
	}
	var null *float64
	masked := r.Masked() || cond.Masked() || (op.raster != nil && op.raster.Masked())
	if masked {
		n := dt.DefaultNull()
		null = &n
	}
	parent := r
	if op.raster != nil {
		parent = georefParent([]*Raster{r, op.raster})
	}
	return derive(src, Shape{nb, r.shape.Rows, r.shape.Cols}, dt, null, parent), nil
}
