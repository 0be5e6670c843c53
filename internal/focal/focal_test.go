package focal

import (
	"math"
	"testing"
)

func windowString(w Window) string {
	s := ""
	for r := 0; r < w.Rows; r++ {
		for c := 0; c < w.Cols; c++ {
			if w.At(r, c) {
				s += "T"
			} else {
				s += "F"
			}
		}
		if r < w.Rows-1 {
			s += "\n"
		}
	}
	return s
}

func TestRectWindow(t *testing.T) {
	w, err := Rect(2, 3)
	if err != nil {
		t.Fatalf("Rect(2, 3) error: %v", err)
	}
	if w.Rows != 2 || w.Cols != 3 || w.Count() != 6 {
		t.Errorf("Rect(2, 3) = %dx%d with %d cells, want 2x3 with 6", w.Rows, w.Cols, w.Count())
	}
	top, bot, left, right := w.Offsets()
	if top != 0 || bot != 1 || left != 1 || right != 1 {
		t.Errorf("Offsets() = %d,%d,%d,%d, want 0,1,1,1", top, bot, left, right)
	}
	if _, err := Rect(0, 3); err == nil {
		t.Error("Rect(0, 3) should fail")
	}
}

func TestCircleWindow(t *testing.T) {
	tests := []struct {
		radius int
		want   string
	}{
		{1, "T"},
		{2, "FTF\nTTT\nFTF"},
		{3, "FFTFF\nFTTTF\nTTTTT\nFTTTF\nFFTFF"},
	}
	for _, tt := range tests {
		w, err := Circle(tt.radius)
		if err != nil {
			t.Fatalf("Circle(%d) error: %v", tt.radius, err)
		}
		if got := windowString(w); got != tt.want {
			t.Errorf("Circle(%d) =\n%s\nwant\n%s", tt.radius, got, tt.want)
		}
	}
	if _, err := Circle(0); err == nil {
		t.Error("Circle(0) should fail")
	}
}

func TestAnnulusWindow(t *testing.T) {
	tests := []struct {
		inner, outer int
		want         string
	}{
		{1, 2, "FTF\nTFT\nFTF"},
		{2, 3, "FFTFF\nFTFTF\nTFFFT\nFTFTF\nFFTFF"},
	}
	for _, tt := range tests {
		w, err := Annulus(tt.inner, tt.outer)
		if err != nil {
			t.Fatalf("Annulus(%d, %d) error: %v", tt.inner, tt.outer, err)
		}
		if got := windowString(w); got != tt.want {
			t.Errorf("Annulus(%d, %d) =\n%s\nwant\n%s", tt.inner, tt.outer, got, tt.want)
		}
	}
	if _, err := Annulus(2, 2); err == nil {
		t.Error("Annulus(2, 2) should fail")
	}
	if _, err := Annulus(0, 3); err == nil {
		t.Error("Annulus(0, 3) should fail")
	}
}

func TestParseStat(t *testing.T) {
	for s, name := range statNames {
		got, err := ParseStat(name)
		if err != nil {
			t.Errorf("ParseStat(%q) error: %v", name, err)
			continue
		}
		if got != s {
			t.Errorf("ParseStat(%q) = %v, want %v", name, got, s)
		}
	}
	if _, err := ParseStat("average"); err == nil {
		t.Error("ParseStat(average) should fail")
	}
}

func TestStatPromotes(t *testing.T) {
	promoting := map[Stat]bool{
		StatASM: true, StatEntropy: true, StatMean: true,
		StatMedian: true, StatStd: true, StatVar: true,
	}
	for s := range statNames {
		if got := s.Promotes(); got != promoting[s] {
			t.Errorf("%v.Promotes() = %v, want %v", s, got, promoting[s])
		}
	}
}

// padPlane builds the padded plane for a rows x cols region with NaN
// beyond the region edge, sized for the given window.
func padPlane(region []float64, rows, cols int, w Window) []float64 {
	top, _, left, _ := w.Offsets()
	prows := rows + w.Rows - 1
	pcols := cols + w.Cols - 1
	p := make([]float64, prows*pcols)
	for i := range p {
		p[i] = math.NaN()
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			p[(r+top)*pcols+(c+left)] = region[r*cols+c]
		}
	}
	return p
}

func TestApplyStats(t *testing.T) {
	region := []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	w, _ := Rect(3, 3)
	padded := padPlane(region, 3, 3, w)

	// Index 0 is the corner (4 contributors: 1, 2, 4, 5); index 4 is the
	// center (all 9).
	tests := []struct {
		stat           Stat
		corner, center float64
	}{
		{StatSum, 12, 45},
		{StatMean, 3, 5},
		{StatMin, 1, 1},
		{StatMax, 5, 9},
		{StatMedian, 3, 5},
		{StatVar, 2.5, 60.0 / 9.0},
		{StatStd, math.Sqrt(2.5), math.Sqrt(60.0 / 9.0)},
		{StatMode, 1, 1},
		{StatUnique, 4, 9},
		{StatEntropy, math.Log(4), math.Log(9)},
		{StatASM, 0.25, 1.0 / 9.0},
	}
	dst := make([]float64, 9)
	for _, tt := range tests {
		Apply(dst, padded, 3, 3, w, tt.stat)
		if math.Abs(dst[0]-tt.corner) > 1e-12 {
			t.Errorf("%v corner = %v, want %v", tt.stat, dst[0], tt.corner)
		}
		if math.Abs(dst[4]-tt.center) > 1e-12 {
			t.Errorf("%v center = %v, want %v", tt.stat, dst[4], tt.center)
		}
	}
}

func TestApplyModeTies(t *testing.T) {
	// Neighborhood of the center under a plus window: 2, 3, 2, 3, 1.
	// Both 2 and 3 appear twice; the smaller wins.
	region := []float64{
		0, 2, 0,
		3, 2, 3,
		0, 1, 0,
	}
	w, _ := Circle(2)
	padded := padPlane(region, 3, 3, w)
	dst := make([]float64, 9)
	Apply(dst, padded, 3, 3, w, StatMode)
	if dst[4] != 2 {
		t.Errorf("mode of tied neighborhood = %v, want 2", dst[4])
	}
}

func TestApplyNaNHandling(t *testing.T) {
	nan := math.NaN()
	region := []float64{
		1, nan, 2,
		nan, nan, nan,
		3, nan, 4,
	}
	w, _ := Rect(3, 3)
	padded := padPlane(region, 3, 3, w)
	dst := make([]float64, 9)

	Apply(dst, padded, 3, 3, w, StatMean)
	if got := dst[4]; math.Abs(got-2.5) > 1e-12 {
		t.Errorf("mean skipping NaN = %v, want 2.5", got)
	}
	Apply(dst, padded, 3, 3, w, StatUnique)
	if got := dst[4]; got != 4 {
		t.Errorf("unique skipping NaN = %v, want 4", got)
	}
}

func TestApplyEmptyNeighborhood(t *testing.T) {
	nan := math.NaN()
	region := []float64{nan, nan, nan, nan}
	w, _ := Rect(2, 2)
	padded := padPlane(region, 2, 2, w)
	dst := make([]float64, 4)

	for _, s := range []Stat{StatMean, StatMin, StatMax, StatMedian, StatMode, StatUnique, StatEntropy, StatASM, StatVar, StatStd} {
		Apply(dst, padded, 2, 2, w, s)
		if !math.IsNaN(dst[0]) {
			t.Errorf("%v of empty neighborhood = %v, want NaN", s, dst[0])
		}
	}
	Apply(dst, padded, 2, 2, w, StatSum)
	if dst[0] != 0 {
		t.Errorf("sum of empty neighborhood = %v, want 0", dst[0])
	}
}

func TestApplyEntropyRepeats(t *testing.T) {
	// Center neighborhood under a plus window: 1, 1, 2 and two NaN.
	nan := math.NaN()
	region := []float64{
		nan, 1, nan,
		1, 2, nan,
		nan, nan, nan,
	}
	w, _ := Circle(2)
	padded := padPlane(region, 3, 3, w)
	dst := make([]float64, 9)

	want := -(2.0/3.0*math.Log(2.0/3.0) + 1.0/3.0*math.Log(1.0/3.0))
	Apply(dst, padded, 3, 3, w, StatEntropy)
	if math.Abs(dst[4]-want) > 1e-12 {
		t.Errorf("entropy = %v, want %v", dst[4], want)
	}
	Apply(dst, padded, 3, 3, w, StatASM)
	if wantASM := 5.0 / 9.0; math.Abs(dst[4]-wantASM) > 1e-12 {
		t.Errorf("asm = %v, want %v", dst[4], wantASM)
	}
	Apply(dst, padded, 3, 3, w, StatUnique)
	if dst[4] != 2 {
		t.Errorf("unique = %v, want 2", dst[4])
	}
}

func TestCorrelate2D(t *testing.T) {
	region := []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	ones := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1}
	w, _ := Rect(3, 3)
	padded := padPlane(region, 3, 3, w)
	dst := make([]float64, 9)

	Correlate2D(dst, padded, 3, 3, ones, 3, 3, true)
	if dst[0] != 12 || dst[4] != 45 || dst[8] != 28 {
		t.Errorf("nan-aware ones kernel = %v, %v, %v, want 12, 45, 28", dst[0], dst[4], dst[8])
	}

	Correlate2D(dst, padded, 3, 3, ones, 3, 3, false)
	if !math.IsNaN(dst[0]) {
		t.Errorf("plain correlate at edge = %v, want NaN", dst[0])
	}
	if dst[4] != 45 {
		t.Errorf("plain correlate at center = %v, want 45", dst[4])
	}
}

func TestCorrelate2DIdentity(t *testing.T) {
	region := []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	ident := []float64{0, 0, 0, 0, 1, 0, 0, 0, 0}
	// Zero-filled halo keeps the plain path NaN-free.
	pcols := 5
	padded := make([]float64, 25)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			padded[(r+1)*pcols+(c+1)] = region[r*3+c]
		}
	}
	dst := make([]float64, 9)
	for _, nanAware := range []bool{true, false} {
		Correlate2D(dst, padded, 3, 3, ident, 3, 3, nanAware)
		for i, v := range dst {
			if v != region[i] {
				t.Fatalf("identity kernel (nanAware=%v) cell %d = %v, want %v", nanAware, i, v, region[i])
			}
		}
	}
}

func TestCorrelate2DEvenKernel(t *testing.T) {
	// A 1x2 kernel anchors on its left tap: out(c) = v(c) + 2*v(c+1).
	// The row is 10, 20, 30 with a zero fill cell on the right.
	padded := []float64{10, 20, 30, 0}
	dst := make([]float64, 3)
	Correlate2D(dst, padded, 1, 3, []float64{1, 2}, 1, 2, false)
	want := []float64{50, 80, 30}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("correlate cell %d = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestFlip(t *testing.T) {
	got := Flip([]float64{1, 2, 3, 4, 5, 6})
	want := []float64{6, 5, 4, 3, 2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Flip = %v, want %v", got, want)
		}
	}
}

func TestBoundaryMapIndex(t *testing.T) {
	tests := []struct {
		b    Boundary
		i, n int
		want int
	}{
		{BoundaryReflect, -1, 5, 0},
		{BoundaryReflect, -2, 5, 1},
		{BoundaryReflect, 5, 5, 4},
		{BoundaryReflect, 6, 5, 3},
		{BoundaryReflect, -7, 5, 3},
		{BoundaryNearest, -3, 5, 0},
		{BoundaryNearest, 9, 5, 4},
		{BoundaryWrap, -1, 5, 4},
		{BoundaryWrap, 5, 5, 0},
		{BoundaryWrap, 7, 5, 2},
		{BoundaryConstant, -1, 5, -1},
		{BoundaryConstant, 2, 5, 2},
	}
	for _, tt := range tests {
		if got := tt.b.MapIndex(tt.i, tt.n); got != tt.want {
			t.Errorf("%v.MapIndex(%d, %d) = %d, want %d", tt.b, tt.i, tt.n, got, tt.want)
		}
	}
}

func TestParseBoundary(t *testing.T) {
	tests := []struct {
		in   string
		want Boundary
	}{
		{"constant", BoundaryConstant},
		{"reflect", BoundaryReflect},
		{"nearest", BoundaryNearest},
		{"wrap", BoundaryWrap},
		{"periodic", BoundaryWrap},
	}
	for _, tt := range tests {
		got, err := ParseBoundary(tt.in)
		if err != nil {
			t.Errorf("ParseBoundary(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBoundary(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseBoundary("mirror"); err == nil {
		t.Error("ParseBoundary(mirror) should fail")
	}
}
