package rasterkit

import (
	"testing"
)

func geoRaster(t *testing.T) *Raster {
	t.Helper()
	r, err := New(make([]float64, 12), 1, 3, 4,
		WithTransform(AffineFromOrigin(-120, 45, 0.5, 0.25)),
		WithCRS("EPSG:4326"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestXY(t *testing.T) {
	r := geoRaster(t)

	tests := []struct {
		name     string
		row, col int
		offset   CellOffset
		x, y     float64
	}{
		{"origin ul", 0, 0, OffsetUL, -120, 45},
		{"origin center", 0, 0, OffsetCenter, -119.75, 44.875},
		{"origin lr", 0, 0, OffsetLR, -119.5, 44.75},
		{"last ur", 2, 3, OffsetUR, -118, 44.5},
		{"last ll", 2, 3, OffsetLL, -118.5, 44.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := r.XY(tt.row, tt.col, tt.offset)
			if x != tt.x || y != tt.y {
				t.Errorf("XY(%d, %d) = (%v, %v), want (%v, %v)",
					tt.row, tt.col, x, y, tt.x, tt.y)
			}
		})
	}
}

func TestIndex(t *testing.T) {
	r := geoRaster(t)

	tests := []struct {
		name     string
		x, y     float64
		row, col int
	}{
		{"center of first cell", -119.75, 44.875, 0, 0},
		{"center of last cell", -118.25, 44.375, 2, 3},
		{"upper-left corner", -120, 45, 0, 0},
		{"west of raster", -121, 44.875, 0, -2},
		{"north of raster", -119.75, 45.1, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, col, err := r.Index(tt.x, tt.y)
			if err != nil {
				t.Fatalf("Index: %v", err)
			}
			if row != tt.row || col != tt.col {
				t.Errorf("Index(%v, %v) = (%d, %d), want (%d, %d)",
					tt.x, tt.y, row, col, tt.row, tt.col)
			}
		})
	}
}

func TestXYIndexRoundTrip(t *testing.T) {
	r := geoRaster(t)
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			x, y := r.XY(row, col, OffsetCenter)
			gr, gc, err := r.Index(x, y)
			if err != nil {
				t.Fatalf("Index: %v", err)
			}
			if gr != row || gc != col {
				t.Errorf("round trip (%d, %d) -> (%d, %d)", row, col, gr, gc)
			}
		}
	}
}

func TestIndexDegenerate(t *testing.T) {
	r, _ := New([]float64{1, 2}, 1, 1, 2, WithTransform(Affine{A: 0, B: 0, C: 0, D: 0, E: 0, F: 0}))
	if _, _, err := r.Index(0, 0); err == nil {
		t.Error("Index should fail for a non-invertible geotransform")
	}
}

func TestXYAxes(t *testing.T) {
	r := geoRaster(t)

	xs := r.X()
	wantX := []float64{-119.75, -119.25, -118.75, -118.25}
	if len(xs) != len(wantX) {
		t.Fatalf("len(X) = %d, want %d", len(xs), len(wantX))
	}
	for i := range wantX {
		if xs[i] != wantX[i] {
			t.Errorf("X[%d] = %v, want %v", i, xs[i], wantX[i])
		}
	}

	ys := r.Y()
	wantY := []float64{44.875, 44.625, 44.375}
	if len(ys) != len(wantY) {
		t.Fatalf("len(Y) = %d, want %d", len(ys), len(wantY))
	}
	for i := range wantY {
		if ys[i] != wantY[i] {
			t.Errorf("Y[%d] = %v, want %v", i, ys[i], wantY[i])
		}
	}
}

func TestResolutionAndBounds(t *testing.T) {
	r := geoRaster(t)

	xres, yres := r.Resolution()
	if xres != 0.5 || yres != 0.25 {
		t.Errorf("Resolution = (%v, %v), want (0.5, 0.25)", xres, yres)
	}

	minx, miny, maxx, maxy := r.Bounds()
	if minx != -120 || miny != 44.25 || maxx != -118 || maxy != 45 {
		t.Errorf("Bounds = [%v, %v, %v, %v], want [-120, 44.25, -118, 45]",
			minx, miny, maxx, maxy)
	}
}

func TestGeorefMetadata(t *testing.T) {
	r := geoRaster(t)
	if !r.Georeferenced() {
		t.Error("raster should report georeferencing")
	}
	if r.CRS() != "EPSG:4326" {
		t.Errorf("CRS = %q, want EPSG:4326", r.CRS())
	}

	plain, _ := New([]float64{1, 2}, 1, 1, 2)
	if plain.Georeferenced() {
		t.Error("plain raster should not report georeferencing")
	}
	tf := plain.Transform()
	if x, y := tf.Apply(2, 3); x != 2 || y != 3 {
		t.Errorf("identity transform Apply(2, 3) = (%v, %v)", x, y)
	}
}

func TestGeorefCarriesThroughOps(t *testing.T) {
	r := geoRaster(t)
	out, err := r.Add(1)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !out.Georeferenced() {
		t.Error("derived raster should keep georeferencing")
	}
	if out.CRS() != r.CRS() {
		t.Errorf("derived CRS = %q, want %q", out.CRS(), r.CRS())
	}
	ax, ay := r.XY(1, 1, OffsetCenter)
	bx, by := out.XY(1, 1, OffsetCenter)
	if ax != bx || ay != by {
		t.Error("derived raster should keep the geotransform")
	}
}

func TestSouthUpBoundsNormalize(t *testing.T) {
	// A south-up transform with positive E still yields min <= max bounds.
	tf := Affine{A: 1, B: 0, C: 10, D: 0, E: 1, F: 20}
	r, _ := New(make([]float64, 4), 1, 2, 2, WithTransform(tf))
	minx, miny, maxx, maxy := r.Bounds()
	if minx != 10 || miny != 20 || maxx != 12 || maxy != 22 {
		t.Errorf("Bounds = [%v, %v, %v, %v], want [10, 20, 12, 22]",
			minx, miny, maxx, maxy)
	}
}
