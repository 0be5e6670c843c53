package focal

import (
	"fmt"
	"math"
	"sort"
)

// Stat identifies a focal statistic.
type Stat uint8

const (
	StatASM Stat = iota
	StatEntropy
	StatMax
	StatMean
	StatMedian
	StatMode
	StatMin
	StatStd
	StatSum
	StatUnique
	StatVar
)

var statNames = map[Stat]string{
	StatASM:     "asm",
	StatEntropy: "entropy",
	StatMax:     "max",
	StatMean:    "mean",
	StatMedian:  "median",
	StatMode:    "mode",
	StatMin:     "min",
	StatStd:     "std",
	StatSum:     "sum",
	StatUnique:  "unique",
	StatVar:     "var",
}

func (s Stat) String() string {
	if n, ok := statNames[s]; ok {
		return n
	}
	return "unknown"
}

// ParseStat interprets a statistic name.
func ParseStat(name string) (Stat, error) {
	for s, n := range statNames {
		if n == name {
			return s, nil
		}
	}
	return StatASM, fmt.Errorf("focal: unknown focal statistic %q", name)
}

// Promotes reports whether the statistic produces fractional values and so
// always yields a float result regardless of the input type.
func (s Stat) Promotes() bool {
	switch s {
	case StatASM, StatEntropy, StatMean, StatMedian, StatStd, StatVar:
		return true
	}
	return false
}

// Apply computes the windowed statistic for every cell of a rows x cols
// region. padded holds the region plus its halo: (rows+w.Rows-1) rows by
// (cols+w.Cols-1) columns, with the region interior starting at the
// window's (top, left) offset. NaN cells contribute nothing. dst receives
// rows*cols results.
//
// Empty neighborhoods yield NaN, except sum which yields 0.
func Apply(dst, padded []float64, rows, cols int, w Window, stat Stat) {
	pcols := cols + w.Cols - 1
	offs := make([]int, 0, len(w.Cells))
	for i := 0; i < w.Rows; i++ {
		for j := 0; j < w.Cols; j++ {
			if w.Cells[i*w.Cols+j] {
				offs = append(offs, i*pcols+j)
			}
		}
	}

	switch stat {
	case StatMin:
		applyStreaming(dst, padded, rows, cols, pcols, offs, func(acc *accum) float64 {
			if acc.n == 0 {
				return math.NaN()
			}
			return acc.min
		})
	case StatMax:
		applyStreaming(dst, padded, rows, cols, pcols, offs, func(acc *accum) float64 {
			if acc.n == 0 {
				return math.NaN()
			}
			return acc.max
		})
	case StatSum:
		applyStreaming(dst, padded, rows, cols, pcols, offs, func(acc *accum) float64 {
			return acc.sum
		})
	case StatMean:
		applyStreaming(dst, padded, rows, cols, pcols, offs, func(acc *accum) float64 {
			if acc.n == 0 {
				return math.NaN()
			}
			return acc.sum / float64(acc.n)
		})
	case StatVar:
		applyStreaming(dst, padded, rows, cols, pcols, offs, func(acc *accum) float64 {
			if acc.n == 0 {
				return math.NaN()
			}
			return acc.m2 / float64(acc.n)
		})
	case StatStd:
		applyStreaming(dst, padded, rows, cols, pcols, offs, func(acc *accum) float64 {
			if acc.n == 0 {
				return math.NaN()
			}
			return math.Sqrt(acc.m2 / float64(acc.n))
		})
	default:
		applySorted(dst, padded, rows, cols, pcols, offs, stat)
	}
}

// accum carries streaming aggregates; m2 is the Welford sum of squared
// deviations from the running mean.
type accum struct {
	n    int
	sum  float64
	min  float64
	max  float64
	mean float64
	m2   float64
}

func applyStreaming(dst, padded []float64, rows, cols, pcols int, offs []int, finish func(*accum) float64) {
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			base := r*pcols + c
			acc := accum{min: math.Inf(1), max: math.Inf(-1)}
			for _, o := range offs {
				v := padded[base+o]
				if math.IsNaN(v) {
					continue
				}
				acc.n++
				acc.sum += v
				if v < acc.min {
					acc.min = v
				}
				if v > acc.max {
					acc.max = v
				}
				d := v - acc.mean
				acc.mean += d / float64(acc.n)
				acc.m2 += d * (v - acc.mean)
			}
			dst[r*cols+c] = finish(&acc)
		}
	}
}

func applySorted(dst, padded []float64, rows, cols, pcols int, offs []int, stat Stat) {
	scratch := make([]float64, 0, len(offs))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			base := r*pcols + c
			scratch = scratch[:0]
			for _, o := range offs {
				if v := padded[base+o]; !math.IsNaN(v) {
					scratch = append(scratch, v)
				}
			}
			dst[r*cols+c] = sortedStat(scratch, stat)
		}
	}
}

func sortedStat(vals []float64, stat Stat) float64 {
	n := len(vals)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	switch stat {
	case StatMedian:
		if n%2 == 1 {
			return vals[n/2]
		}
		return (vals[n/2-1] + vals[n/2]) / 2
	case StatMode:
		// Ties resolve to the smallest value; the sort provides that.
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
	case StatUnique:
		u := 1
		for i := 1; i < n; i++ {
			if vals[i] != vals[i-1] {
				u++
			}
		}
		return float64(u)
	case StatEntropy:
		e := 0.0
		for i := 0; i < n; {
			j := i
			for j < n && vals[j] == vals[i] {
				j++
			}
			p := float64(j-i) / float64(n)
			e -= p * math.Log(p)
			i = j
		}
		return e
	case StatASM:
		a := 0.0
		for i := 0; i < n; {
			j := i
			for j < n && vals[j] == vals[i] {
				j++
			}
			p := float64(j-i) / float64(n)
			a += p * p
			i = j
		}
		return a
	}
	return math.NaN()
}
