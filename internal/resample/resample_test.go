package resample

import (
	"math"
	"testing"
)

func ramp(rows, cols int) Plane {
	vals := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			vals[r*cols+c] = float64(10*r + c)
		}
	}
	return Plane{Rows: rows, Cols: cols, Values: vals}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in   string
		want Method
	}{
		{"nearest", MethodNearest},
		{"near", MethodNearest},
		{"bilinear", MethodBilinear},
		{"cubic", MethodCubic},
		{"lanczos", MethodLanczos},
		{"average", MethodAverage},
		{"mode", MethodMode},
		{"min", MethodMin},
		{"max", MethodMax},
		{"med", MethodMedian},
		{"median", MethodMedian},
		{"q1", MethodQ1},
		{"q3", MethodQ3},
		{"sum", MethodSum},
		{"rms", MethodRMS},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if err != nil {
			t.Errorf("ParseMethod(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMethod(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseMethod("cubic_spline"); err == nil {
		t.Error("ParseMethod(cubic_spline) should fail")
	}
}

func TestMethodIsArea(t *testing.T) {
	point := []Method{MethodNearest, MethodBilinear, MethodCubic, MethodLanczos}
	area := []Method{MethodAverage, MethodMode, MethodMin, MethodMax, MethodMedian, MethodQ1, MethodQ3, MethodSum, MethodRMS}
	for _, m := range point {
		if m.IsArea() {
			t.Errorf("%v.IsArea() = true, want false", m)
		}
	}
	for _, m := range area {
		if !m.IsArea() {
			t.Errorf("%v.IsArea() = false, want true", m)
		}
	}
}

func TestPointNearest(t *testing.T) {
	p := Plane{Rows: 2, Cols: 2, Values: []float64{10, 20, 30, 40}}
	tests := []struct {
		row, col float64
		want     float64
	}{
		{0, 0, 10},
		{0.6, 0.6, 40},
		{0.4, 0.6, 20},
		{-0.4, 0, 10},
		{1.4, 1.4, 40},
	}
	for _, tt := range tests {
		if got := Point(p, tt.row, tt.col, MethodNearest); got != tt.want {
			t.Errorf("nearest(%v, %v) = %v, want %v", tt.row, tt.col, got, tt.want)
		}
	}
	if got := Point(p, -0.6, 0, MethodNearest); !math.IsNaN(got) {
		t.Errorf("nearest beyond edge = %v, want NaN", got)
	}
	if got := Point(p, 0, 1.5, MethodNearest); !math.IsNaN(got) {
		t.Errorf("nearest beyond edge = %v, want NaN", got)
	}
}

func TestPointBilinear(t *testing.T) {
	p := Plane{Rows: 2, Cols: 2, Values: []float64{10, 20, 30, 40}}
	tests := []struct {
		row, col float64
		want     float64
	}{
		{0.5, 0.5, 25},
		{0, 0.5, 15},
		{1, 1, 40},
		{0.25, 0, 15},
	}
	for _, tt := range tests {
		got := Point(p, tt.row, tt.col, MethodBilinear)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("bilinear(%v, %v) = %v, want %v", tt.row, tt.col, got, tt.want)
		}
	}
}

func TestPointBilinearSkipsNaN(t *testing.T) {
	p := Plane{Rows: 2, Cols: 2, Values: []float64{10, math.NaN(), 30, 40}}
	got := Point(p, 0.5, 0.5, MethodBilinear)
	want := (10.0 + 30.0 + 40.0) / 3.0
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("bilinear with NaN corner = %v, want %v", got, want)
	}

	empty := Plane{Rows: 2, Cols: 2, Values: []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()}}
	if got := Point(empty, 0.5, 0.5, MethodBilinear); !math.IsNaN(got) {
		t.Errorf("bilinear of all-NaN = %v, want NaN", got)
	}
}

func TestPointCubicLinearPrecision(t *testing.T) {
	// Catmull-Rom reproduces linear data exactly away from the edges.
	p := ramp(6, 6)
	tests := []struct {
		row, col float64
		want     float64
	}{
		{2, 2, 22},
		{2.5, 2.5, 27.5},
		{1.25, 3.75, 16.25},
	}
	for _, tt := range tests {
		got := Point(p, tt.row, tt.col, MethodCubic)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("cubic(%v, %v) = %v, want %v", tt.row, tt.col, got, tt.want)
		}
	}
}

func TestPointLanczosAtCenters(t *testing.T) {
	p := ramp(8, 8)
	for _, pos := range [][2]float64{{3, 3}, {4, 2}, {3, 4}} {
		got := Point(p, pos[0], pos[1], MethodLanczos)
		want := p.At(int(pos[0]), int(pos[1]))
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("lanczos at cell center (%v, %v) = %v, want %v", pos[0], pos[1], got, want)
		}
	}
}

func TestAreaAggregates(t *testing.T) {
	p := Plane{Rows: 4, Cols: 4, Values: []float64{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
		12, 13, 14, 15,
	}}
	// Footprint covering cells (0..1, 0..1): values 0, 1, 4, 5.
	tests := []struct {
		m    Method
		want float64
	}{
		{MethodAverage, 2.5},
		{MethodSum, 10},
		{MethodMin, 0},
		{MethodMax, 5},
		{MethodMedian, 2.5},
		{MethodRMS, math.Sqrt(10.5)},
		{MethodMode, 0},
		{MethodQ1, 0.75},
		{MethodQ3, 4.25},
	}
	var scratch []float64
	for _, tt := range tests {
		var got float64
		got, scratch = Area(p, -0.4, -0.4, 1.4, 1.4, tt.m, scratch)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("area %v = %v, want %v", tt.m, got, tt.want)
		}
	}
}

func TestAreaSingleCell(t *testing.T) {
	p := ramp(4, 4)
	got, _ := Area(p, 0.9, 0.9, 1.1, 1.1, MethodAverage, nil)
	if got != 11 {
		t.Errorf("area over single cell = %v, want 11", got)
	}
}

func TestAreaMode(t *testing.T) {
	p := Plane{Rows: 2, Cols: 3, Values: []float64{3, 2, 2, 3, 1, 1}}
	got, _ := Area(p, 0, 0, 1, 2, MethodMode, nil)
	// 1, 2, and 3 each appear twice; the smallest wins.
	if got != 1 {
		t.Errorf("area mode = %v, want 1", got)
	}
}

func TestAreaEmpty(t *testing.T) {
	nan := math.NaN()
	p := Plane{Rows: 2, Cols: 2, Values: []float64{nan, nan, nan, nan}}
	if got, _ := Area(p, 0, 0, 1, 1, MethodAverage, nil); !math.IsNaN(got) {
		t.Errorf("area average of all-NaN = %v, want NaN", got)
	}
	if got, _ := Area(p, 0, 0, 1, 1, MethodSum, nil); got != 0 {
		t.Errorf("area sum of all-NaN = %v, want 0", got)
	}
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		vals []float64
		q    float64
		want float64
	}{
		{[]float64{1, 2, 3, 4, 5}, 0.5, 3},
		{[]float64{1, 2, 3, 4}, 0.5, 2.5},
		{[]float64{0, 1, 4, 5}, 0.25, 0.75},
		{[]float64{0, 1, 4, 5}, 0.75, 4.25},
		{[]float64{7}, 0.5, 7},
	}
	for _, tt := range tests {
		if got := quantile(tt.vals, tt.q); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("quantile(%v, %v) = %v, want %v", tt.vals, tt.q, got, tt.want)
		}
	}
}
