package focal

import "math"

// Correlate2D cross-correlates a weight kernel over a padded plane.
// padded holds the rows x cols region plus its halo: (rows+krows-1) by
// (cols+kcols-1) values, the region interior starting at the kernel's
// ((krows-1)/2, (kcols-1)/2) anchor offset. dst receives rows*cols sums.
//
// When nanAware is set, NaN cells contribute nothing to the sum and an
// all-NaN neighborhood yields 0. Otherwise NaN propagates into every sum
// that touches it.
func Correlate2D(dst, padded []float64, rows, cols int, weights []float64, krows, kcols int, nanAware bool) {
	pcols := cols + kcols - 1
	type tap struct {
		off int
		w   float64
	}
	taps := make([]tap, 0, krows*kcols)
	for i := 0; i < krows; i++ {
		for j := 0; j < kcols; j++ {
			taps = append(taps, tap{off: i*pcols + j, w: weights[i*kcols+j]})
		}
	}

	if nanAware {
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				base := r*pcols + c
				s := 0.0
				for _, t := range taps {
					if v := padded[base+t.off]; !math.IsNaN(v) {
						s += v * t.w
					}
				}
				dst[r*cols+c] = s
			}
		}
		return
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			base := r*pcols + c
			s := 0.0
			for _, t := range taps {
				s += padded[base+t.off] * t.w
			}
			dst[r*cols+c] = s
		}
	}
}

// Flip rotates a kernel 180 degrees, turning correlation weights into
// convolution weights. For a row-major matrix this is a reversal of the
// flat slice.
func Flip(weights []float64) []float64 {
	out := make([]float64, len(weights))
	for i := range weights {
		out[len(weights)-1-i] = weights[i]
	}
	return out
}
