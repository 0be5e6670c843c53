package rasterkit

import (
	"context"
	"math"
	"sync"

	"github.com/rasterkit/rasterkit/internal/grid"
)

// reduceAcc accumulates reduction state over valid cells. Mean and m2 use
// Welford's method so partial accumulators merge without precision loss.
type reduceAcc struct {
	n    int64
	sum  float64
	prod float64
	min  float64
	max  float64
	mean float64
	m2   float64
	all  bool
	any  bool
}

func newReduceAcc() reduceAcc {
	return reduceAcc{
		prod: 1,
		min:  math.Inf(1),
		max:  math.Inf(-1),
		all:  true,
	}
}

// addValue folds one numeric value into the accumulator.
func (a *reduceAcc) addValue(v float64) {
	a.n++
	a.sum += v
	a.prod *= v
	if v < a.min {
		a.min = v
	}
	if v > a.max {
		a.max = v
	}
	delta := v - a.mean
	a.mean += delta / float64(a.n)
	a.m2 += delta * (v - a.mean)
}

// addTile folds one tile into the accumulator. Masked cells are skipped
// entirely; NaN values are skipped by the numeric reductions but count as
// truthy for All/Any.
func (a *reduceAcc) addTile(t grid.Tile, dt DType) {
	for i, v := range t.Data {
		if t.Mask != nil && t.Mask[i] {
			continue
		}
		if dt != Float64 {
			v = CastValue(dt, v)
		}
		tv := truthy(v)
		a.all = a.all && tv
		a.any = a.any || tv
		if math.IsNaN(v) {
			continue
		}
		a.addValue(v)
	}
}

// merge folds another accumulator into a, combining Welford state with the
// parallel-variance recurrence.
func (a *reduceAcc) merge(b reduceAcc) {
	a.all = a.all && b.all
	a.any = a.any || b.any
	if b.n == 0 {
		return
	}
	if a.n == 0 {
		all, any := a.all, a.any
		*a = b
		a.all, a.any = all, any
		return
	}
	tot := a.n + b.n
	delta := b.mean - a.mean
	a.m2 += b.m2 + delta*delta*float64(a.n)*float64(b.n)/float64(tot)
	a.mean += delta * float64(b.n) / float64(tot)
	a.sum += b.sum
	a.prod *= b.prod
	if b.min < a.min {
		a.min = b.min
	}
	if b.max > a.max {
		a.max = b.max
	}
	a.n = tot
}

// reduce evaluates every tile of the raster and folds it into a single
// accumulator. Tiles are processed in parallel with per-tile partials
// merged in deterministic order.
func (r *Raster) reduce(ctx context.Context) (reduceAcc, error) {
	s := newSession(r.src)
	lay := r.layout
	parts := make([]reduceAcc, r.shape.Bands*lay.NumTiles())
	for i := range parts {
		parts[i] = newReduceAcc()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var (
		errOnce  sync.Once
		firstErr error
	)
	work := make([]func(), 0, len(parts))
	k := 0
	for b := 0; b < r.shape.Bands; b++ {
		for tr := 0; tr < lay.TilesDown(); tr++ {
			for tc := 0; tc < lay.TilesAcross(); tc++ {
				b, tr, tc, k := b, tr, tc, k
				work = append(work, func() {
					t, err := s.get(runCtx, tileRef{r.src, b, tr, tc})
					if err != nil {
						errOnce.Do(func() {
							firstErr = err
							cancel()
						})
						return
					}
					parts[k].addTile(t, r.dtype)
				})
				k++
			}
		}
	}
	evalPool().Run(work)
	if firstErr != nil {
		return reduceAcc{}, firstErr
	}
	if err := ctx.Err(); err != nil {
		return reduceAcc{}, err
	}
	acc := newReduceAcc()
	for _, p := range parts {
		acc.merge(p)
	}
	return acc, nil
}

// Sum returns the sum of all valid cells across every band. A raster with
// no valid cells sums to 0.
func (r *Raster) Sum(ctx context.Context) (float64, error) {
	acc, err := r.reduce(ctx)
	if err != nil {
		return 0, err
	}
	return acc.sum, nil
}

// Prod returns the product of all valid cells. A raster with no valid
// cells yields 1.
func (r *Raster) Prod(ctx context.Context) (float64, error) {
	acc, err := r.reduce(ctx)
	if err != nil {
		return 0, err
	}
	return acc.prod, nil
}

// Mean returns the arithmetic mean of all valid cells, or NaN when there
// are none.
func (r *Raster) Mean(ctx context.Context) (float64, error) {
	acc, err := r.reduce(ctx)
	if err != nil {
		return 0, err
	}
	if acc.n == 0 {
		return math.NaN(), nil
	}
	return acc.mean, nil
}

// Min returns the smallest valid cell value, or NaN when there are none.
func (r *Raster) Min(ctx context.Context) (float64, error) {
	acc, err := r.reduce(ctx)
	if err != nil {
		return 0, err
	}
	if acc.n == 0 {
		return math.NaN(), nil
	}
	return acc.min, nil
}

// Max returns the largest valid cell value, or NaN when there are none.
func (r *Raster) Max(ctx context.Context) (float64, error) {
	acc, err := r.reduce(ctx)
	if err != nil {
		return 0, err
	}
	if acc.n == 0 {
		return math.NaN(), nil
	}
	return acc.max, nil
}

// Var returns the population variance (ddof 0) of all valid cells, or NaN
// when there are none.
func (r *Raster) Var(ctx context.Context) (float64, error) {
	acc, err := r.reduce(ctx)
	if err != nil {
		return 0, err
	}
	if acc.n == 0 {
		return math.NaN(), nil
	}
	return acc.m2 / float64(acc.n), nil
}

// Std returns the population standard deviation of all valid cells, or NaN
// when there are none.
func (r *Raster) Std(ctx context.Context) (float64, error) {
	v, err := r.Var(ctx)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

// All reports whether every valid cell is truthy. NaN counts as truthy.
// A raster with no valid cells reports true.
func (r *Raster) All(ctx context.Context) (bool, error) {
	acc, err := r.reduce(ctx)
	if err != nil {
		return false, err
	}
	return acc.all, nil
}

// Any reports whether any valid cell is truthy. NaN counts as truthy.
// A raster with no valid cells reports false.
func (r *Raster) Any(ctx context.Context) (bool, error) {
	acc, err := r.reduce(ctx)
	if err != nil {
		return false, err
	}
	return acc.any, nil
}
