// Package geo provides georeferencing support for rasters: affine
// geotransforms, coordinate reference systems, transforms between them,
// and world-file encoding.
package geo

import (
	"math"
)

// Affine represents the 2D affine geotransform of a raster.
//
// The transformation is represented as a 3x3 matrix:
//
//	| A  B  C |
//	| D  E  F |
//	| 0  0  1 |
//
// mapping cell space to world space: x = A*col + B*row + C and
// y = D*col + E*row + F. For a north-up raster B and D are zero, A is the
// cell width and E is the negative cell height.
type Affine struct {
	A, B, C float64 // first row:  x = A*col + B*row + C
	D, E, F float64 // second row: y = D*col + E*row + F
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{
		A: 1, B: 0, C: 0,
		D: 0, E: 1, F: 0,
	}
}

// FromOrigin returns the north-up transform with the upper-left corner at
// (west, north) and the given cell resolution. yres must be positive; it is
// stored negated so row indices increase southward.
func FromOrigin(west, north, xres, yres float64) Affine {
	return Affine{
		A: xres, B: 0, C: west,
		D: 0, E: -yres, F: north,
	}
}

// Translate returns a transform that shifts points by (tx, ty).
func Translate(tx, ty float64) Affine {
	return Affine{
		A: 1, B: 0, C: tx,
		D: 0, E: 1, F: ty,
	}
}

// Scale returns a transform that scales by (sx, sy) around the origin.
func Scale(sx, sy float64) Affine {
	return Affine{
		A: sx, B: 0, C: 0,
		D: 0, E: sy, F: 0,
	}
}

// Multiply returns the result of multiplying this transform by another.
// The result applies 'other' first, then 'this'.
func (a Affine) Multiply(other Affine) Affine {
	return Affine{
		A: a.A*other.A + a.B*other.D,
		B: a.A*other.B + a.B*other.E,
		C: a.A*other.C + a.B*other.F + a.C,
		D: a.D*other.A + a.E*other.D,
		E: a.D*other.B + a.E*other.E,
		F: a.D*other.C + a.E*other.F + a.F,
	}
}

// Invert returns the inverse transform.
// Returns false if the matrix is singular (non-invertible).
func (a Affine) Invert() (Affine, bool) {
	det := a.A*a.E - a.B*a.D
	if math.Abs(det) < 1e-12 {
		return Affine{}, false
	}

	invDet := 1.0 / det

	return Affine{
		A: a.E * invDet,
		B: -a.B * invDet,
		C: (a.B*a.F - a.C*a.E) * invDet,
		D: -a.D * invDet,
		E: a.A * invDet,
		F: (a.C*a.D - a.A*a.F) * invDet,
	}, true
}

// Apply transforms cell-space (col, row) to world-space (x, y).
func (a Affine) Apply(col, row float64) (x, y float64) {
	return a.A*col + a.B*row + a.C, a.D*col + a.E*row + a.F
}

// IsIdentity reports whether the transform is exactly the identity.
func (a Affine) IsIdentity() bool {
	return a == Identity()
}

// IsRectilinear reports whether the transform has no rotation or shear.
func (a Affine) IsRectilinear() bool {
	return a.B == 0 && a.D == 0
}

// Resolution returns the absolute cell width and height.
func (a Affine) Resolution() (xres, yres float64) {
	return math.Hypot(a.A, a.D), math.Hypot(a.B, a.E)
}

// Bounds returns the world-space bounding box of a rows x cols grid,
// normalized so min <= max on both axes. Rotated transforms are handled by
// taking the hull of the four corners.
func (a Affine) Bounds(rows, cols int) (minx, miny, maxx, maxy float64) {
	corners := [4][2]float64{
		{0, 0},
		{float64(cols), 0},
		{0, float64(rows)},
		{float64(cols), float64(rows)},
	}
	minx, miny = math.Inf(1), math.Inf(1)
	maxx, maxy = math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x, y := a.Apply(c[0], c[1])
		minx = math.Min(minx, x)
		miny = math.Min(miny, y)
		maxx = math.Max(maxx, x)
		maxy = math.Max(maxy, y)
	}
	return minx, miny, maxx, maxy
}

// AlmostEqual reports whether two transforms differ by at most eps in every
// coefficient.
func (a Affine) AlmostEqual(other Affine, eps float64) bool {
	return math.Abs(a.A-other.A) <= eps &&
		math.Abs(a.B-other.B) <= eps &&
		math.Abs(a.C-other.C) <= eps &&
		math.Abs(a.D-other.D) <= eps &&
		math.Abs(a.E-other.E) <= eps &&
		math.Abs(a.F-other.F) <= eps
}
