package rasterkit

import (
	"fmt"

	"github.com/rasterkit/rasterkit/internal/geo"
)

// Affine is the six-parameter geotransform mapping cell space to world
// space: x = A*col + B*row + C, y = D*col + E*row + F. For a north-up
// raster B and D are zero, A is the cell width and E is the negative cell
// height.
type Affine = geo.Affine

// AffineIdentity returns the identity geotransform.
func AffineIdentity() Affine { return geo.Identity() }

// AffineFromOrigin builds a north-up geotransform from the world coordinates
// of the upper-left corner and the cell resolution. yres must be positive.
func AffineFromOrigin(west, north, xres, yres float64) Affine {
	return geo.FromOrigin(west, north, xres, yres)
}

// CellOffset selects the reference point within a cell for coordinate
// conversion.
type CellOffset uint8

const (
	// OffsetCenter references the cell center.
	OffsetCenter CellOffset = iota

	// OffsetUL references the upper-left cell corner.
	OffsetUL

	// OffsetUR references the upper-right cell corner.
	OffsetUR

	// OffsetLL references the lower-left cell corner.
	OffsetLL

	// OffsetLR references the lower-right cell corner.
	OffsetLR
)

// deltas returns the cell-space displacement of the reference point from
// the cell's upper-left corner.
func (o CellOffset) deltas() (dc, dr float64) {
	switch o {
	case OffsetUL:
		return 0, 0
	case OffsetUR:
		return 1, 0
	case OffsetLL:
		return 0, 1
	case OffsetLR:
		return 1, 1
	default:
		return 0.5, 0.5
	}
}

// XY converts a cell index to world coordinates at the given reference
// point within the cell.
func (r *Raster) XY(row, col int, offset CellOffset) (x, y float64) {
	dc, dr := offset.deltas()
	return r.tf.Apply(float64(col)+dc, float64(row)+dr)
}

// Index converts world coordinates to the cell index containing them.
func (r *Raster) Index(x, y float64) (row, col int, err error) {
	inv, ok := r.tf.Invert()
	if !ok {
		return 0, 0, fmt.Errorf("rasterkit: geotransform %v is not invertible", r.tf)
	}
	colf, rowf := inv.Apply(x, y)
	return int(floorToInt(rowf)), int(floorToInt(colf)), nil
}

func floorToInt(v float64) int64 {
	i := int64(v)
	if v < 0 && float64(i) != v {
		i--
	}
	return i
}

// X returns the world x coordinate of each column's cell center.
func (r *Raster) X() []float64 {
	xs := make([]float64, r.shape.Cols)
	for c := range xs {
		xs[c], _ = r.tf.Apply(float64(c)+0.5, 0.5)
	}
	return xs
}

// Y returns the world y coordinate of each row's cell center.
func (r *Raster) Y() []float64 {
	ys := make([]float64, r.shape.Rows)
	for rr := range ys {
		_, ys[rr] = r.tf.Apply(0.5, float64(rr)+0.5)
	}
	return ys
}

// Resolution returns the absolute cell width and height in world units.
func (r *Raster) Resolution() (xres, yres float64) {
	return r.tf.Resolution()
}

// Bounds returns the world-space bounding box of the raster's cell edges,
// normalized so min <= max on both axes.
func (r *Raster) Bounds() (minx, miny, maxx, maxy float64) {
	return r.tf.Bounds(r.shape.Rows, r.shape.Cols)
}

// Transform returns the affine geotransform. Rasters without explicit
// georeferencing report the identity transform.
func (r *Raster) Transform() Affine { return r.tf }

// CRS returns the coordinate reference system string, or "" when unset.
func (r *Raster) CRS() string { return r.crs }

// Georeferenced reports whether the raster carries an explicit geotransform.
func (r *Raster) Georeferenced() bool { return r.georef }
