package rasterkit

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rasterkit/rasterkit/internal/grid"
)

// Predictor turns feature samples into prediction rows. Each sample holds
// one value per input band; each returned row must hold the same number of
// outputs for every sample. Implementations must be safe for concurrent
// calls.
type Predictor interface {
	Predict(samples [][]float64) ([][]float64, error)
}

// PredictorFunc adapts a function to the Predictor interface.
type PredictorFunc func(samples [][]float64) ([][]float64, error)

// Predict calls f.
func (f PredictorFunc) Predict(samples [][]float64) ([][]float64, error) { return f(samples) }

// ModelPredict applies a fitted model across the raster: each cell's band
// values form one sample and the model's outputs become nOutputs Float64
// bands. Cells masked in any input band are masked in every output band and
// are not passed to the predictor. The predictor runs once per tile over
// that tile's valid samples.
func (r *Raster) ModelPredict(p Predictor, nOutputs int) (*Raster, error) {
	if p == nil {
		return nil, fmt.Errorf("rasterkit: ModelPredict: nil predictor")
	}
	if nOutputs < 1 {
		return nil, fmt.Errorf("rasterkit: ModelPredict: nOutputs %d, want >= 1", nOutputs)
	}
	src := &predictSource{
		inner:    r.src,
		inBands:  r.shape.Bands,
		outBands: nOutputs,
		lay:      r.layout,
		p:        p,
		cache:    make(map[[2]int]*predictTile),
	}
	var null *float64
	if r.Masked() {
		n := Float64.DefaultNull()
		null = &n
	}
	return derive(src, Shape{nOutputs, r.shape.Rows, r.shape.Cols}, Float64, null, r), nil
}

// predictTile holds the model outputs for one tile position across all
// output bands. The predictor runs once under the sync.Once no matter which
// output band is computed first.
type predictTile struct {
	once  sync.Once
	out   [][]float64
	mask  []bool
	err   error
	taken int
}

// predictSource evaluates the model per tile. Output band tiles share the
// per-tile prediction, cached until every band has taken it.
type predictSource struct {
	inner    source
	inBands  int
	outBands int
	lay      grid.Layout
	p        Predictor

	mu    sync.Mutex
	cache map[[2]int]*predictTile
}

func (s *predictSource) bands() int          { return s.outBands }
func (s *predictSource) layout() grid.Layout { return s.lay }
func (s *predictSource) memoize() bool       { return true }

func (s *predictSource) deps(_, tr, tc int) []tileRef {
	refs := make([]tileRef, s.inBands)
	for b := range refs {
		refs[b] = tileRef{s.inner, b, tr, tc}
	}
	return refs
}

func (s *predictSource) entry(tr, tc int) *predictTile {
	s.mu.Lock()
	defer s.mu.Unlock()
	pt, ok := s.cache[[2]int{tr, tc}]
	if !ok {
		pt = &predictTile{}
		s.cache[[2]int{tr, tc}] = pt
	}
	return pt
}

// release drops the cache entry once all output bands have taken it.
func (s *predictSource) release(tr, tc int, pt *predictTile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pt.taken++
	if pt.taken >= s.outBands {
		delete(s.cache, [2]int{tr, tc})
	}
}

func (s *predictSource) compute(ctx context.Context, band, tr, tc int, get getTile) (grid.Tile, error) {
	// Every band pulls all inputs so the session's reference counts stay
	// balanced; only the first into the Once uses them.
	ins := make([]grid.Tile, s.inBands)
	for b := 0; b < s.inBands; b++ {
		t, err := get(ctx, tileRef{s.inner, b, tr, tc})
		if err != nil {
			return grid.Tile{}, err
		}
		ins[b] = t
	}
	pt := s.entry(tr, tc)
	pt.once.Do(func() { pt.run(s.p, s.inBands, s.outBands, ins) })
	if pt.err != nil {
		return grid.Tile{}, pt.err
	}
	spec := s.lay.Tile(tr, tc)
	out := grid.Tile{Band: band, Spec: spec, Data: pt.out[band], Mask: pt.mask}
	s.release(tr, tc, pt)
	return out, nil
}

// run gathers the tile's valid samples, invokes the predictor, and scatters
// the outputs into per-band planes. Invalid cells hold NaN and are masked.
func (pt *predictTile) run(p Predictor, inBands, outBands int, ins []grid.Tile) {
	spec := ins[0].Spec
	cells := spec.Rows * spec.Cols

	valid := make([]bool, cells)
	nValid := 0
	for i := 0; i < cells; i++ {
		ok := true
		for b := 0; b < inBands; b++ {
			if ins[b].Mask != nil && ins[b].Mask[i] {
				ok = false
				break
			}
		}
		valid[i] = ok
		if ok {
			nValid++
		}
	}

	samples := make([][]float64, 0, nValid)
	flat := make([]float64, nValid*inBands)
	for i := 0; i < cells; i++ {
		if !valid[i] {
			continue
		}
		row := flat[len(samples)*inBands : (len(samples)+1)*inBands]
		for b := 0; b < inBands; b++ {
			row[b] = ins[b].Data[i]
		}
		samples = append(samples, row)
	}

	var preds [][]float64
	if len(samples) > 0 {
		var err error
		preds, err = p.Predict(samples)
		if err != nil {
			pt.err = fmt.Errorf("rasterkit: ModelPredict: %w", err)
			return
		}
		if len(preds) != len(samples) {
			pt.err = fmt.Errorf("rasterkit: ModelPredict: predictor returned %d rows for %d samples",
				len(preds), len(samples))
			return
		}
	}

	pt.out = make([][]float64, outBands)
	for b := range pt.out {
		plane := make([]float64, cells)
		for i := range plane {
			plane[i] = math.NaN()
		}
		pt.out[b] = plane
	}
	if nValid < cells {
		pt.mask = make([]bool, cells)
		for i, ok := range valid {
			pt.mask[i] = !ok
		}
	}
	si := 0
	for i := 0; i < cells; i++ {
		if !valid[i] {
			continue
		}
		row := preds[si]
		if len(row) != outBands {
			pt.err = fmt.Errorf("rasterkit: ModelPredict: predictor returned %d outputs per sample, want %d",
				len(row), outBands)
			return
		}
		for b := 0; b < outBands; b++ {
			pt.out[b][i] = row[b]
		}
		si++
	}
}
