package rasterkit

import (
	"math"
	"testing"
)

func TestRectWindow(t *testing.T) {
	w, err := RectWindow(3, 2)
	if err != nil {
		t.Fatalf("RectWindow: %v", err)
	}
	if w.Rows != 2 || w.Cols != 3 {
		t.Errorf("window = %dx%d, want 2 rows x 3 cols", w.Rows, w.Cols)
	}
	if w.Count() != 6 {
		t.Errorf("Count = %d, want 6", w.Count())
	}
	if _, err := RectWindow(0, 1); err == nil {
		t.Error("RectWindow should reject zero width")
	}
}

func TestCircleWindow(t *testing.T) {
	w, err := CircleWindow(2)
	if err != nil {
		t.Fatalf("CircleWindow: %v", err)
	}
	if w.Rows != 3 || w.Cols != 3 {
		t.Errorf("window = %dx%d, want 3x3", w.Rows, w.Cols)
	}
	// Radius 2 is the plus shape: corners excluded.
	if w.Count() != 5 {
		t.Errorf("Count = %d, want 5", w.Count())
	}
	if w.At(0, 0) || !w.At(0, 1) || !w.At(1, 1) {
		t.Error("circle cells misplaced")
	}
	if _, err := CircleWindow(0); err == nil {
		t.Error("CircleWindow should reject radius 0")
	}
}

func TestAnnulusWindow(t *testing.T) {
	w, err := AnnulusWindow(1, 2)
	if err != nil {
		t.Fatalf("AnnulusWindow: %v", err)
	}
	// Circle(2) minus its center cell.
	if w.Count() != 4 {
		t.Errorf("Count = %d, want 4", w.Count())
	}
	if w.At(1, 1) {
		t.Error("annulus center should be inactive")
	}
	if _, err := AnnulusWindow(0, 2); err == nil {
		t.Error("AnnulusWindow should reject inner < 1")
	}
	if _, err := AnnulusWindow(2, 2); err == nil {
		t.Error("AnnulusWindow should require inner < outer")
	}
}

func seq9(t *testing.T) *Raster {
	t.Helper()
	r, err := New([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, 1, 3, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestFocalMean(t *testing.T) {
	w, _ := RectWindow(3, 3)
	out, err := seq9(t).Focal(FocalMean, w)
	if err != nil {
		t.Fatalf("Focal: %v", err)
	}
	if out.DType() != Float64 {
		t.Errorf("dtype = %v, want float64", out.DType())
	}
	wantValues(t, out, []float64{3, 3.5, 4, 4.5, 5, 5.5, 6, 6.5, 7})
}

func TestFocalSumKeepsDType(t *testing.T) {
	w, _ := RectWindow(3, 3)
	r, _ := New([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, 1, 3, 3, WithDType(Int32))
	out, err := r.Focal(FocalSum, w)
	if err != nil {
		t.Fatalf("Focal: %v", err)
	}
	if out.DType() != Int32 {
		t.Errorf("dtype = %v, want int32", out.DType())
	}
	wantValues(t, out, []float64{12, 21, 16, 27, 45, 33, 24, 39, 28})
}

func TestFocalMaxCircle(t *testing.T) {
	w, _ := CircleWindow(2)
	out, err := seq9(t).Focal(FocalMax, w)
	if err != nil {
		t.Fatalf("Focal: %v", err)
	}
	wantValues(t, out, []float64{4, 5, 6, 7, 8, 9, 8, 9, 9})
}

func TestFocalMedian(t *testing.T) {
	w, _ := RectWindow(3, 3)
	out, err := seq9(t).Focal(FocalMedian, w)
	if err != nil {
		t.Fatalf("Focal: %v", err)
	}
	// Corner neighborhoods have four cells; the median averages the middle
	// pair.
	vals := mustValues(t, out)
	if vals[0] != 3 {
		t.Errorf("corner median = %v, want 3", vals[0])
	}
	if vals[4] != 5 {
		t.Errorf("center median = %v, want 5", vals[4])
	}
}

func TestFocalUnique(t *testing.T) {
	w, _ := RectWindow(3, 3)
	r, _ := New([]float64{2, 2, 2, 2, 2, 2, 2, 2, 2}, 1, 3, 3)
	out, err := r.Focal(FocalUnique, w)
	if err != nil {
		t.Fatalf("Focal: %v", err)
	}
	wantValues(t, out, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1})
}

func TestFocalSkipsNull(t *testing.T) {
	w, _ := RectWindow(3, 3)
	r, _ := New([]float64{1, 2, 3, 4, -9999, 6, 7, 8, 9}, 1, 3, 3, WithNullValue(-9999))
	out, err := r.Focal(FocalMean, w)
	if err != nil {
		t.Fatalf("Focal: %v", err)
	}
	// The null cell contributes nothing to its neighbors but stays masked
	// in the result.
	wantMask(t, out, []bool{false, false, false, false, true, false, false, false, false})
	vals := mustValues(t, out)
	if got, want := vals[0], (1.0+2+4)/3; got != want {
		t.Errorf("corner mean = %v, want %v", got, want)
	}
}

func TestFocalEmptyNeighborhood(t *testing.T) {
	w, _ := RectWindow(1, 1)
	r, _ := New([]float64{-1, 5}, 1, 1, 2, WithNullValue(-1))

	mean, err := r.Focal(FocalMean, w)
	if err != nil {
		t.Fatalf("Focal: %v", err)
	}
	wantMask(t, mean, []bool{true, false})

	sum, err := r.Focal(FocalSum, w)
	if err != nil {
		t.Fatalf("Focal: %v", err)
	}
	// Sum of an empty neighborhood is 0, but the input mask still carries.
	wantMask(t, sum, []bool{true, false})
	if v := mustValues(t, sum)[1]; v != 5 {
		t.Errorf("sum = %v, want 5", v)
	}
}

func TestFocalEmptyNeighborhoodInteger(t *testing.T) {
	w, _ := AnnulusWindow(1, 2)

	// The ring around the only cell lies entirely off the raster, so an
	// integer max has no value to hold; the cell goes null.
	r, _ := New([]float64{7}, 1, 1, 1, WithDType(Int32))
	out, err := r.Focal(FocalMax, w)
	if err != nil {
		t.Fatalf("Focal: %v", err)
	}
	if out.DType() != Int32 {
		t.Errorf("dtype = %v, want int32", out.DType())
	}
	if !out.Masked() {
		t.Fatal("result should carry a null value")
	}
	if null, _ := out.NullValue(); null != Int32.DefaultNull() {
		t.Errorf("null = %v, want %v", null, Int32.DefaultNull())
	}
	wantMask(t, out, []bool{true})
	if v := mustValues(t, out)[0]; v != Int32.DefaultNull() {
		t.Errorf("value = %v, want the null value", v)
	}

	// A float raster holds the NaN directly and stays unmasked.
	f, _ := New([]float64{7}, 1, 1, 1)
	fout, err := f.Focal(FocalMax, w)
	if err != nil {
		t.Fatalf("Focal: %v", err)
	}
	if fout.Masked() {
		t.Error("float result should stay unmasked")
	}
	if v := mustValues(t, fout)[0]; !math.IsNaN(v) {
		t.Errorf("value = %v, want NaN", v)
	}
}

func TestFocalValidation(t *testing.T) {
	r := seq9(t)
	w, _ := RectWindow(3, 3)
	if _, err := r.Focal(FocalStat(99), w); err == nil {
		t.Error("Focal should reject an unknown statistic")
	}
	if _, err := r.Focal(FocalMean, Window{}); err == nil {
		t.Error("Focal should reject an empty window")
	}
	none := Window{Rows: 1, Cols: 1, Cells: []bool{false}}
	if _, err := r.Focal(FocalMean, none); err == nil {
		t.Error("Focal should reject a window with no active cells")
	}
}

func TestNewKernel(t *testing.T) {
	k, err := NewKernel([][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("NewKernel: %v", err)
	}
	if k.Rows != 2 || k.Cols != 2 {
		t.Errorf("kernel = %dx%d, want 2x2", k.Rows, k.Cols)
	}

	if _, err := NewKernel(nil); err == nil {
		t.Error("NewKernel should reject an empty kernel")
	}
	if _, err := NewKernel([][]float64{{1, 2}, {3}}); err == nil {
		t.Error("NewKernel should reject ragged rows")
	}
	if _, err := NewKernel([][]float64{{math.NaN()}}); err == nil {
		t.Error("NewKernel should reject NaN weights")
	}
}

func TestCorrelate(t *testing.T) {
	r, _ := New([]float64{1, 2, 3, 4}, 1, 2, 2)
	k, _ := NewKernel([][]float64{{1, 2}, {3, 4}})

	out, err := r.Correlate(k, BoundaryConstant, 0)
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	wantValues(t, out, []float64{30, 14, 11, 4})
}

func TestConvolveFlipsKernel(t *testing.T) {
	r, _ := New([]float64{1, 2, 3, 4}, 1, 2, 2)
	k, _ := NewKernel([][]float64{{1, 2}, {3, 4}})

	out, err := r.Convolve(k, BoundaryConstant, 0)
	if err != nil {
		t.Fatalf("Convolve: %v", err)
	}
	wantValues(t, out, []float64{20, 16, 24, 16})
}

func TestCorrelateBoundaryModes(t *testing.T) {
	r, _ := New([]float64{1, 2, 3}, 1, 1, 3)
	k, _ := NewKernel([][]float64{{1, 1, 1}})

	tests := []struct {
		name string
		mode BoundaryMode
		cval float64
		want []float64
	}{
		{"reflect", BoundaryReflect, 0, []float64{4, 6, 8}},
		{"nearest", BoundaryNearest, 0, []float64{4, 6, 8}},
		{"wrap", BoundaryWrap, 0, []float64{6, 6, 6}},
		{"constant", BoundaryConstant, 10, []float64{13, 6, 15}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Correlate(k, tt.mode, tt.cval)
			if err != nil {
				t.Fatalf("Correlate: %v", err)
			}
			wantValues(t, out, tt.want)
		})
	}
}

func TestCorrelateFractionalPromotes(t *testing.T) {
	r, _ := New([]float64{2, 4, 6, 8}, 1, 2, 2, WithDType(Int16))
	k, _ := NewKernel([][]float64{{0.5}})
	out, err := r.Correlate(k, BoundaryConstant, 0)
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if out.DType() != Float64 {
		t.Errorf("dtype = %v, want float64", out.DType())
	}
	wantValues(t, out, []float64{1, 2, 3, 4})

	whole, _ := NewKernel([][]float64{{2}})
	out, err = r.Correlate(whole, BoundaryConstant, 0)
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if out.DType() != Int16 {
		t.Errorf("dtype = %v, want int16", out.DType())
	}
}

func TestCorrelateSkipsNull(t *testing.T) {
	r, _ := New([]float64{1, -9999, 3, 4}, 1, 2, 2, WithNullValue(-9999))
	k, _ := NewKernel([][]float64{{1, 1}, {1, 1}})
	out, err := r.Correlate(k, BoundaryConstant, 0)
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	// The null cell contributes nothing and stays masked.
	wantMask(t, out, []bool{false, true, false, false})
	if v := mustValues(t, out)[0]; v != 8 {
		t.Errorf("sum at origin = %v, want 8", v)
	}
}

func TestCorrelateValidation(t *testing.T) {
	r, _ := New([]float64{1, 2, 3, 4}, 1, 2, 2)
	if _, err := r.Correlate(Kernel{}, BoundaryConstant, 0); err == nil {
		t.Error("Correlate should reject an invalid kernel")
	}
	k, _ := NewKernel([][]float64{{1}})
	if _, err := r.Correlate(k, BoundaryMode(9), 0); err == nil {
		t.Error("Correlate should reject an unknown boundary mode")
	}
}

func TestParseFocalNames(t *testing.T) {
	s, err := ParseFocalStat("mean")
	if err != nil || s != FocalMean {
		t.Errorf("ParseFocalStat(mean) = %v, %v", s, err)
	}
	if _, err := ParseFocalStat("bogus"); err == nil {
		t.Error("ParseFocalStat should reject unknown names")
	}
	b, err := ParseBoundary("wrap")
	if err != nil || b != BoundaryWrap {
		t.Errorf("ParseBoundary(wrap) = %v, %v", b, err)
	}
	if _, err := ParseBoundary("bogus"); err == nil {
		t.Error("ParseBoundary should reject unknown names")
	}
}
