package rasterkit

import (
	"context"

	"github.com/rasterkit/rasterkit/internal/grid"
)

// cubeSource serves tiles out of an in-memory band-sequential cube.
type cubeSource struct {
	data []float64
	mask []bool
	nb   int
	lay  grid.Layout
}

func (s *cubeSource) bands() int               { return s.nb }
func (s *cubeSource) layout() grid.Layout      { return s.lay }
func (s *cubeSource) memoize() bool            { return false }
func (s *cubeSource) deps(int, int, int) []tileRef { return nil }

func (s *cubeSource) compute(_ context.Context, band, tr, tc int, _ getTile) (grid.Tile, error) {
	t := grid.NewTile(band, s.lay.Tile(tr, tc))
	plane := s.lay.Rows * s.lay.Cols
	var m []bool
	if s.mask != nil {
		m = s.mask[band*plane : (band+1)*plane]
	}
	t.FillFrom(s.data[band*plane:(band+1)*plane], m, s.lay.Cols)
	return t, nil
}

// constSource synthesizes tiles holding a single value.
type constSource struct {
	value  float64
	masked bool
	nb     int
	lay    grid.Layout
}

func (s *constSource) bands() int               { return s.nb }
func (s *constSource) layout() grid.Layout      { return s.lay }
func (s *constSource) memoize() bool            { return false }
func (s *constSource) deps(int, int, int) []tileRef { return nil }

func (s *constSource) compute(_ context.Context, band, tr, tc int, _ getTile) (grid.Tile, error) {
	t := grid.NewTile(band, s.lay.Tile(tr, tc))
	if s.value != 0 {
		for i := range t.Data {
			t.Data[i] = s.value
		}
	}
	if s.masked {
		m := t.EnsureMask()
		for i := range m {
			m[i] = true
		}
	}
	return t, nil
}

// bandValueSource synthesizes tiles holding one value per band.
type bandValueSource struct {
	vals []float64
	lay  grid.Layout
}

func (s *bandValueSource) bands() int               { return len(s.vals) }
func (s *bandValueSource) layout() grid.Layout      { return s.lay }
func (s *bandValueSource) memoize() bool            { return false }
func (s *bandValueSource) deps(int, int, int) []tileRef { return nil }

func (s *bandValueSource) compute(_ context.Context, band, tr, tc int, _ getTile) (grid.Tile, error) {
	t := grid.NewTile(band, s.lay.Tile(tr, tc))
	if v := s.vals[band]; v != 0 {
		for i := range t.Data {
			t.Data[i] = v
		}
	}
	return t, nil
}

// bandSelSource reorders and repeats bands of its input.
type bandSelSource struct {
	inner source
	sel   []int // 0-based input band per output band
	lay   grid.Layout
}

func (s *bandSelSource) bands() int          { return len(s.sel) }
func (s *bandSelSource) layout() grid.Layout { return s.lay }
func (s *bandSelSource) memoize() bool       { return true }

func (s *bandSelSource) deps(band, tr, tc int) []tileRef {
	return []tileRef{{s.inner, s.sel[band], tr, tc}}
}

func (s *bandSelSource) compute(ctx context.Context, band, tr, tc int, get getTile) (grid.Tile, error) {
	t, err := get(ctx, tileRef{s.inner, s.sel[band], tr, tc})
	if err != nil {
		return grid.Tile{}, err
	}
	t.Band = band
	return t, nil
}

// bandConcatSource routes output bands to the inputs they came from.
type bandConcatSource struct {
	inputs []source
	starts []int // starts[i] is the first output band of inputs[i]
	nb     int
	lay    grid.Layout
}

func newBandConcatSource(inputs []source, lay grid.Layout) *bandConcatSource {
	starts := make([]int, len(inputs))
	nb := 0
	for i, in := range inputs {
		starts[i] = nb
		nb += in.bands()
	}
	return &bandConcatSource{inputs: inputs, starts: starts, nb: nb, lay: lay}
}

func (s *bandConcatSource) bands() int          { return s.nb }
func (s *bandConcatSource) layout() grid.Layout { return s.lay }
func (s *bandConcatSource) memoize() bool       { return true }

func (s *bandConcatSource) route(band int) (source, int) {
	for i := len(s.inputs) - 1; i >= 0; i-- {
		if band >= s.starts[i] {
			return s.inputs[i], band - s.starts[i]
		}
	}
	return s.inputs[0], band
}

func (s *bandConcatSource) deps(band, tr, tc int) []tileRef {
	in, local := s.route(band)
	return []tileRef{{in, local, tr, tc}}
}

func (s *bandConcatSource) compute(ctx context.Context, band, tr, tc int, get getTile) (grid.Tile, error) {
	in, local := s.route(band)
	t, err := get(ctx, tileRef{in, local, tr, tc})
	if err != nil {
		return grid.Tile{}, err
	}
	t.Band = band
	return t, nil
}

// sliceSource serves a rectangular window of its input, re-tiled to its own
// layout. With zero offsets and a matching extent it is a pure re-chunk.
type sliceSource struct {
	inner      source
	nb         int
	row0, col0 int
	lay        grid.Layout
}

func (s *sliceSource) bands() int {
	if s.nb > 0 {
		return s.nb
	}
	return s.inner.bands()
}
func (s *sliceSource) layout() grid.Layout { return s.lay }
func (s *sliceSource) memoize() bool       { return true }

func (s *sliceSource) deps(band, tr, tc int) []tileRef {
	spec := s.lay.Tile(tr, tc)
	return windowDeps(s.inner, band, s.row0+spec.Row0, s.col0+spec.Col0, spec.Rows, spec.Cols)
}

func (s *sliceSource) compute(ctx context.Context, band, tr, tc int, get getTile) (grid.Tile, error) {
	spec := s.lay.Tile(tr, tc)
	t := grid.NewTile(band, spec)
	mask := t.EnsureMask()
	err := assembleWindow(ctx, s.inner, band, s.row0+spec.Row0, s.col0+spec.Col0,
		spec.Rows, spec.Cols, t.Data, mask, get)
	if err != nil {
		return grid.Tile{}, err
	}
	t.Normalize()
	return t, nil
}

// rechunkSource is a sliceSource with zero offsets: same plane, new tiling.
type rechunkSource = sliceSource

// mapTileSource applies a per-tile transform to its input.
type mapTileSource struct {
	inner source
	lay   grid.Layout
	fn    func(in grid.Tile) (grid.Tile, error)
}

func (s *mapTileSource) bands() int          { return s.inner.bands() }
func (s *mapTileSource) layout() grid.Layout { return s.lay }
func (s *mapTileSource) memoize() bool       { return true }

func (s *mapTileSource) deps(band, tr, tc int) []tileRef {
	return []tileRef{{s.inner, band, tr, tc}}
}

func (s *mapTileSource) compute(ctx context.Context, band, tr, tc int, get getTile) (grid.Tile, error) {
	t, err := get(ctx, tileRef{s.inner, band, tr, tc})
	if err != nil {
		return grid.Tile{}, err
	}
	return s.fn(t)
}

// binSource combines two inputs elementwise. Inputs must share a layout;
// a single-band input broadcasts across the other's bands.
type binSource struct {
	a, b    source
	nb      int
	lay     grid.Layout
	fn      func(a, b float64) float64
	accelOp BinaryOp
	accel   bool
}

func (s *binSource) bands() int          { return s.nb }
func (s *binSource) layout() grid.Layout { return s.lay }
func (s *binSource) memoize() bool       { return true }

func (s *binSource) inputBands(band int) (ab, bb int) {
	ab, bb = band, band
	if s.a.bands() == 1 {
		ab = 0
	}
	if s.b.bands() == 1 {
		bb = 0
	}
	return ab, bb
}

func (s *binSource) deps(band, tr, tc int) []tileRef {
	ab, bb := s.inputBands(band)
	return []tileRef{{s.a, ab, tr, tc}, {s.b, bb, tr, tc}}
}

func (s *binSource) compute(ctx context.Context, band, tr, tc int, get getTile) (grid.Tile, error) {
	ab, bb := s.inputBands(band)
	ta, err := get(ctx, tileRef{s.a, ab, tr, tc})
	if err != nil {
		return grid.Tile{}, err
	}
	tb, err := get(ctx, tileRef{s.b, bb, tr, tc})
	if err != nil {
		return grid.Tile{}, err
	}
	out := grid.NewTile(band, ta.Spec)
	ran := false
	if s.accel {
		if cb, ok := s.b.(*constSource); ok {
			ran = tryAccelBinary(s.accelOp, out.Data, ta.Data, []float64{cb.value})
		} else {
			ran = tryAccelBinary(s.accelOp, out.Data, ta.Data, tb.Data)
		}
	}
	if !ran {
		for i := range out.Data {
			out.Data[i] = s.fn(ta.Data[i], tb.Data[i])
		}
	}
	unionMasks(&out, ta, tb)
	return out, nil
}

// whereSource selects cells from x where cond is truthy and from y
// elsewhere. The mask follows the selected input; masked condition cells
// are masked in the result.
type whereSource struct {
	cond, x, y source
	nb         int
	lay        grid.Layout
}

func (s *whereSource) bands() int          { return s.nb }
func (s *whereSource) layout() grid.Layout { return s.lay }
func (s *whereSource) memoize() bool       { return true }

func (s *whereSource) inputBand(in source, band int) int {
	if in.bands() == 1 {
		return 0
	}
	return band
}

func (s *whereSource) deps(band, tr, tc int) []tileRef {
	return []tileRef{
		{s.cond, s.inputBand(s.cond, band), tr, tc},
		{s.x, s.inputBand(s.x, band), tr, tc},
		{s.y, s.inputBand(s.y, band), tr, tc},
	}
}

func (s *whereSource) compute(ctx context.Context, band, tr, tc int, get getTile) (grid.Tile, error) {
	tcnd, err := get(ctx, tileRef{s.cond, s.inputBand(s.cond, band), tr, tc})
	if err != nil {
		return grid.Tile{}, err
	}
	tx, err := get(ctx, tileRef{s.x, s.inputBand(s.x, band), tr, tc})
	if err != nil {
		return grid.Tile{}, err
	}
	ty, err := get(ctx, tileRef{s.y, s.inputBand(s.y, band), tr, tc})
	if err != nil {
		return grid.Tile{}, err
	}
	out := grid.NewTile(band, tx.Spec)
	mask := out.EnsureMask()
	for i := range out.Data {
		take := tcnd.Data[i] != 0
		if take {
			out.Data[i] = tx.Data[i]
			mask[i] = tx.Mask != nil && tx.Mask[i]
		} else {
			out.Data[i] = ty.Data[i]
			mask[i] = ty.Mask != nil && ty.Mask[i]
		}
		if tcnd.Mask != nil && tcnd.Mask[i] {
			mask[i] = true
		}
	}
	out.Normalize()
	return out, nil
}

// unionMasks sets out's mask to the union of a's and b's masks.
func unionMasks(out *grid.Tile, a, b grid.Tile) {
	if a.Mask == nil && b.Mask == nil {
		return
	}
	m := out.EnsureMask()
	for i := range m {
		m[i] = (a.Mask != nil && a.Mask[i]) || (b.Mask != nil && b.Mask[i])
	}
}
