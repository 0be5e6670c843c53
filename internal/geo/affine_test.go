package geo

import (
	"math"
	"testing"
)

func TestAffineIdentity(t *testing.T) {
	id := Identity()
	x, y := id.Apply(42.5, -7.25)
	if x != 42.5 || y != -7.25 {
		t.Errorf("identity Apply(42.5, -7.25) = (%v, %v)", x, y)
	}
	if !id.IsIdentity() {
		t.Error("IsIdentity() = false for Identity()")
	}
}

func TestFromOrigin(t *testing.T) {
	a := FromOrigin(-120.0, 48.0, 0.5, 0.25)

	x, y := a.Apply(0, 0)
	if x != -120.0 || y != 48.0 {
		t.Errorf("upper-left corner = (%v, %v), want (-120, 48)", x, y)
	}

	x, y = a.Apply(2, 4)
	if x != -119.0 || y != 47.0 {
		t.Errorf("Apply(2, 4) = (%v, %v), want (-119, 47)", x, y)
	}

	xres, yres := a.Resolution()
	if xres != 0.5 || yres != 0.25 {
		t.Errorf("Resolution() = (%v, %v), want (0.5, 0.25)", xres, yres)
	}
	if !a.IsRectilinear() {
		t.Error("IsRectilinear() = false for north-up transform")
	}
}

func TestAffineInvertRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		a    Affine
	}{
		{"north-up", FromOrigin(1000, 2000, 30, 30)},
		{"translate", Translate(5, -3)},
		{"scaled", Scale(2, -4).Multiply(Translate(10, 20))},
		{"sheared", Affine{A: 2, B: 0.5, C: 1, D: -0.25, E: 3, F: -7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, ok := tt.a.Invert()
			if !ok {
				t.Fatal("Invert() reported singular matrix")
			}
			x, y := tt.a.Apply(12.5, -3.25)
			rx, ry := inv.Apply(x, y)
			if math.Abs(rx-12.5) > 1e-9 || math.Abs(ry+3.25) > 1e-9 {
				t.Errorf("round trip = (%v, %v), want (12.5, -3.25)", rx, ry)
			}
		})
	}
}

func TestAffineInvertSingular(t *testing.T) {
	if _, ok := (Affine{}).Invert(); ok {
		t.Error("Invert() of zero matrix should report singular")
	}
}

func TestAffineMultiply(t *testing.T) {
	// Translate then scale must differ from scale then translate.
	ts := Scale(2, 2).Multiply(Translate(1, 1))
	x, y := ts.Apply(0, 0)
	if x != 2 || y != 2 {
		t.Errorf("scale∘translate (0,0) = (%v, %v), want (2, 2)", x, y)
	}

	st := Translate(1, 1).Multiply(Scale(2, 2))
	x, y = st.Apply(0, 0)
	if x != 1 || y != 1 {
		t.Errorf("translate∘scale (0,0) = (%v, %v), want (1, 1)", x, y)
	}
}

func TestAffineBounds(t *testing.T) {
	a := FromOrigin(100, 500, 10, 5)
	minx, miny, maxx, maxy := a.Bounds(20, 30)
	if minx != 100 || maxx != 400 {
		t.Errorf("x bounds = (%v, %v), want (100, 400)", minx, maxx)
	}
	if miny != 400 || maxy != 500 {
		t.Errorf("y bounds = (%v, %v), want (400, 500)", miny, maxy)
	}
}

func TestWorldFileRoundTrip(t *testing.T) {
	a := FromOrigin(443000, 4650000, 30, 30)
	text := FormatWorldFile(a)
	got, err := ParseWorldFile(text)
	if err != nil {
		t.Fatalf("ParseWorldFile() error: %v", err)
	}
	if !got.AlmostEqual(a, 1e-6) {
		t.Errorf("round trip = %+v, want %+v", got, a)
	}
}

func TestParseWorldFileCenters(t *testing.T) {
	// The classic USGS example: 30 m cells, center of the UL cell at
	// (443015, 4649985) puts the corner at (443000, 4650000).
	text := "30\n0\n0\n-30\n443015\n4649985\n"
	a, err := ParseWorldFile(text)
	if err != nil {
		t.Fatalf("ParseWorldFile() error: %v", err)
	}
	if a.C != 443000 || a.F != 4650000 {
		t.Errorf("corner origin = (%v, %v), want (443000, 4650000)", a.C, a.F)
	}
}

func TestParseWorldFileErrors(t *testing.T) {
	if _, err := ParseWorldFile("1\n2\n3\n"); err == nil {
		t.Error("short world file parsed without error")
	}
	if _, err := ParseWorldFile("1\n2\nnope\n4\n5\n6\n"); err == nil {
		t.Error("non-numeric world file parsed without error")
	}
}
