// Package resample provides point samplers and area aggregators for
// regridding value planes. Coordinates are fractional cell indices where
// integer positions land on cell centers; NaN marks cells without a value
// and is skipped with weight renormalization.
package resample

import (
	"fmt"
	"math"
	"sort"
)

// Method selects the resampling algorithm.
type Method uint8

const (
	// MethodNearest selects the closest cell.
	MethodNearest Method = iota
	// MethodBilinear interpolates linearly between the 4 neighboring cells.
	MethodBilinear
	// MethodCubic interpolates with Catmull-Rom weights on a 4x4 neighborhood.
	MethodCubic
	// MethodLanczos interpolates with a windowed sinc on a 6x6 neighborhood.
	MethodLanczos
	// MethodAverage takes the mean of the covered source cells.
	MethodAverage
	// MethodMode takes the most frequent covered value, smallest on ties.
	MethodMode
	// MethodMin takes the smallest covered value.
	MethodMin
	// MethodMax takes the largest covered value.
	MethodMax
	// MethodMedian takes the middle covered value.
	MethodMedian
	// MethodQ1 takes the first quartile of the covered values.
	MethodQ1
	// MethodQ3 takes the third quartile of the covered values.
	MethodQ3
	// MethodSum totals the covered values.
	MethodSum
	// MethodRMS takes the root mean square of the covered values.
	MethodRMS
)

var methodNames = map[Method]string{
	MethodNearest:  "nearest",
	MethodBilinear: "bilinear",
	MethodCubic:    "cubic",
	MethodLanczos:  "lanczos",
	MethodAverage:  "average",
	MethodMode:     "mode",
	MethodMin:      "min",
	MethodMax:      "max",
	MethodMedian:   "med",
	MethodQ1:       "q1",
	MethodQ3:       "q3",
	MethodSum:      "sum",
	MethodRMS:      "rms",
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseMethod interprets a resampling method name.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "nearest", "near":
		return MethodNearest, nil
	case "bilinear":
		return MethodBilinear, nil
	case "cubic":
		return MethodCubic, nil
	case "lanczos":
		return MethodLanczos, nil
	case "average":
		return MethodAverage, nil
	case "mode":
		return MethodMode, nil
	case "min", "minimum":
		return MethodMin, nil
	case "max", "maximum":
		return MethodMax, nil
	case "med", "median":
		return MethodMedian, nil
	case "q1":
		return MethodQ1, nil
	case "q3":
		return MethodQ3, nil
	case "sum":
		return MethodSum, nil
	case "rms":
		return MethodRMS, nil
	}
	return MethodNearest, fmt.Errorf("resample: unknown resampling method %q", name)
}

// IsArea reports whether the method aggregates all source cells covered by
// the destination cell footprint rather than interpolating at a point.
func (m Method) IsArea() bool {
	switch m {
	case MethodAverage, MethodMode, MethodMin, MethodMax,
		MethodMedian, MethodQ1, MethodQ3, MethodSum, MethodRMS:
		return true
	}
	return false
}

// Plane is a single band of values in row/col space.
type Plane struct {
	Rows, Cols int
	Values     []float64
}

// At returns the value at (r, c), clamping coordinates to the edge.
func (p Plane) At(r, c int) float64 {
	r = clamp(r, 0, p.Rows-1)
	c = clamp(c, 0, p.Cols-1)
	return p.Values[r*p.Cols+c]
}

// inside reports whether (r, c) lies on the plane.
func (p Plane) inside(r, c int) bool {
	return r >= 0 && r < p.Rows && c >= 0 && c < p.Cols
}

// Point samples the plane at the fractional cell position (row, col) with
// a point interpolation method. Positions more than half a cell beyond the
// plane edge yield NaN.
func Point(p Plane, row, col float64, m Method) float64 {
	if row < -0.5 || row >= float64(p.Rows)-0.5 || col < -0.5 || col >= float64(p.Cols)-0.5 {
		return math.NaN()
	}
	switch m {
	case MethodBilinear:
		return pointBilinear(p, row, col)
	case MethodCubic:
		return pointKernel(p, row, col, 2, catmullRom)
	case MethodLanczos:
		return pointKernel(p, row, col, 3, lanczos3)
	default:
		return p.At(int(math.Round(row)), int(math.Round(col)))
	}
}

func pointBilinear(p Plane, row, col float64) float64 {
	r0 := int(math.Floor(row))
	c0 := int(math.Floor(col))
	tr := row - float64(r0)
	tc := col - float64(c0)

	sum, wsum := 0.0, 0.0
	for dr := 0; dr <= 1; dr++ {
		for dc := 0; dc <= 1; dc++ {
			wr := 1 - tr
			if dr == 1 {
				wr = tr
			}
			wc := 1 - tc
			if dc == 1 {
				wc = tc
			}
			w := wr * wc
			if w == 0 {
				continue
			}
			v := p.At(r0+dr, c0+dc)
			if math.IsNaN(v) {
				continue
			}
			sum += v * w
			wsum += w
		}
	}
	if wsum == 0 {
		return math.NaN()
	}
	return sum / wsum
}

// pointKernel interpolates with a separable kernel of the given reach,
// renormalizing over the taps that carry values.
func pointKernel(p Plane, row, col float64, reach int, weight func(float64) float64) float64 {
	r0 := int(math.Floor(row))
	c0 := int(math.Floor(col))
	tr := row - float64(r0)
	tc := col - float64(c0)

	sum, wsum := 0.0, 0.0
	for dr := -reach + 1; dr <= reach; dr++ {
		wr := weight(float64(dr) - tr)
		if wr == 0 {
			continue
		}
		for dc := -reach + 1; dc <= reach; dc++ {
			wc := weight(float64(dc) - tc)
			if wc == 0 {
				continue
			}
			v := p.At(r0+dr, c0+dc)
			if math.IsNaN(v) {
				continue
			}
			w := wr * wc
			sum += v * w
			wsum += w
		}
	}
	if math.Abs(wsum) < 1e-12 {
		return math.NaN()
	}
	return sum / wsum
}

// catmullRom is the Mitchell-Netravali cubic with B=0, C=0.5.
func catmullRom(t float64) float64 {
	t = math.Abs(t)
	if t < 1 {
		return 1.5*t*t*t - 2.5*t*t + 1
	}
	if t < 2 {
		return -0.5*t*t*t + 2.5*t*t - 4*t + 2
	}
	return 0
}

// lanczos3 is the sinc kernel windowed to 3 lobes.
func lanczos3(t float64) float64 {
	t = math.Abs(t)
	if t >= 3 {
		return 0
	}
	if t < 1e-12 {
		return 1
	}
	pt := math.Pi * t
	return 3 * math.Sin(pt) * math.Sin(pt/3) / (pt * pt)
}

// Area aggregates the source cells covered by the footprint
// [rowMin, rowMax] x [colMin, colMax] in fractional cell coordinates,
// including every cell whose extent overlaps it. Cells without values
// contribute nothing; an empty footprint yields NaN except for sum, which
// yields 0. scratch is reused across calls and returned grown.
func Area(p Plane, rowMin, colMin, rowMax, colMax float64, m Method, scratch []float64) (float64, []float64) {
	rLo := int(math.Ceil(rowMin - 0.5))
	rHi := int(math.Floor(rowMax + 0.5))
	cLo := int(math.Ceil(colMin - 0.5))
	cHi := int(math.Floor(colMax + 0.5))

	scratch = scratch[:0]
	for r := rLo; r <= rHi; r++ {
		for c := cLo; c <= cHi; c++ {
			if !p.inside(r, c) {
				continue
			}
			if v := p.Values[r*p.Cols+c]; !math.IsNaN(v) {
				scratch = append(scratch, v)
			}
		}
	}
	return aggregate(scratch, m), scratch
}

func aggregate(vals []float64, m Method) float64 {
	n := len(vals)
	if n == 0 {
		if m == MethodSum {
			return 0
		}
		return math.NaN()
	}
	switch m {
	case MethodSum:
		s := 0.0
		for _, v := range vals {
			s += v
		}
		return s
	case MethodAverage:
		s := 0.0
		for _, v := range vals {
			s += v
		}
		return s / float64(n)
	case MethodRMS:
		s := 0.0
		for _, v := range vals {
			s += v * v
		}
		return math.Sqrt(s / float64(n))
	case MethodMin:
		mn := vals[0]
		for _, v := range vals[1:] {
			if v < mn {
				mn = v
			}
		}
		return mn
	case MethodMax:
		mx := vals[0]
		for _, v := range vals[1:] {
			if v > mx {
				mx = v
			}
		}
		return mx
	case MethodMode:
		sort.Float64s(vals)
		best, bestCount := vals[0], 0
		for i := 0; i < n; {
			j := i
			for j < n && vals[j] == vals[i] {
				j++
			}
			if j-i > bestCount {
				best, bestCount = vals[i], j-i
			}
			i = j
		}
		return best
	case MethodMedian:
		return quantile(vals, 0.5)
	case MethodQ1:
		return quantile(vals, 0.25)
	case MethodQ3:
		return quantile(vals, 0.75)
	}
	return math.NaN()
}

// quantile computes the q-th quantile with linear interpolation between
// the nearest order statistics. vals is sorted in place.
func quantile(vals []float64, q float64) float64 {
	sort.Float64s(vals)
	n := len(vals)
	if n == 1 {
		return vals[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return vals[lo]
	}
	frac := pos - float64(lo)
	return vals[lo]*(1-frac) + vals[hi]*frac
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
