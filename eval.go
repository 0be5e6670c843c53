package rasterkit

import (
	"context"
	"sync"

	"github.com/rasterkit/rasterkit/internal/grid"
	"github.com/rasterkit/rasterkit/internal/parallel"
)

// source is a node of the lazy evaluation graph. Implementations produce
// float64 tiles on demand; the session layer handles sharing and release.
//
// Contract: tiles handed out by compute are read-only. A source that
// transforms its input must allocate a fresh output tile. deps must list
// the upstream tiles compute pulls through get with matching multiplicity,
// so the session's reference counts stay balanced.
type source interface {
	// bands returns the band count of this node.
	bands() int

	// layout returns the tile layout of each band plane.
	layout() grid.Layout

	// deps lists the upstream tiles compute will request for (band, tr, tc).
	deps(band, tr, tc int) []tileRef

	// compute produces one tile, pulling upstream tiles through get.
	compute(ctx context.Context, band, tr, tc int, get getTile) (grid.Tile, error)

	// memoize reports whether session caching pays off for this node.
	// Sources that just copy out of backing memory return false; they must
	// then have no deps.
	memoize() bool
}

// tileRef names one tile of one source.
type tileRef struct {
	src    source
	band   int
	tr, tc int
}

// getTile resolves a tile reference within an evaluation session.
type getTile func(ctx context.Context, ref tileRef) (grid.Tile, error)

// evalPool returns the process-wide worker pool shared by all
// materializations.
var (
	poolOnce sync.Once
	pool     *parallel.Pool
)

func evalPool() *parallel.Pool {
	poolOnce.Do(func() {
		pool = parallel.New(0)
	})
	return pool
}

// sessionTile is one memoized tile: a done channel the computing goroutine
// closes, then the result.
type sessionTile struct {
	done chan struct{}
	tile grid.Tile
	err  error
}

// evalSession memoizes tiles for one materialization. Reference counts come
// from a pre-walk of the graph so each tile's buffer is dropped as soon as
// its last consumer has taken it.
type evalSession struct {
	mu    sync.Mutex
	tiles map[tileRef]*sessionTile
	refs  map[tileRef]int
}

// newSession counts the consumers of every memoized tile reachable from the
// root's full tile grid.
func newSession(root source) *evalSession {
	s := &evalSession{
		tiles: make(map[tileRef]*sessionTile),
		refs:  make(map[tileRef]int),
	}
	var walk func(ref tileRef)
	walk = func(ref tileRef) {
		if !ref.src.memoize() {
			return
		}
		s.refs[ref]++
		if s.refs[ref] > 1 {
			return
		}
		for _, d := range ref.src.deps(ref.band, ref.tr, ref.tc) {
			walk(d)
		}
	}
	lay := root.layout()
	for b := 0; b < root.bands(); b++ {
		for tr := 0; tr < lay.TilesDown(); tr++ {
			for tc := 0; tc < lay.TilesAcross(); tc++ {
				walk(tileRef{root, b, tr, tc})
			}
		}
	}
	return s
}

// get resolves one tile, computing it at most once per session. Recursive:
// compute pulls its dependencies back through get. Waits follow graph edges
// downward only, so with an acyclic graph no cycle of waits can form.
func (s *evalSession) get(ctx context.Context, ref tileRef) (grid.Tile, error) {
	if err := ctx.Err(); err != nil {
		return grid.Tile{}, err
	}
	if !ref.src.memoize() {
		return ref.src.compute(ctx, ref.band, ref.tr, ref.tc, s.get)
	}
	s.mu.Lock()
	st, ok := s.tiles[ref]
	if ok {
		s.mu.Unlock()
		select {
		case <-st.done:
		case <-ctx.Done():
			return grid.Tile{}, ctx.Err()
		}
		return s.take(ref, st)
	}
	st = &sessionTile{done: make(chan struct{})}
	s.tiles[ref] = st
	s.mu.Unlock()

	st.tile, st.err = ref.src.compute(ctx, ref.band, ref.tr, ref.tc, s.get)
	close(st.done)
	return s.take(ref, st)
}

// take hands a finished tile to one consumer and drops the cache entry when
// the last consumer has taken it.
func (s *evalSession) take(ref tileRef, st *sessionTile) (grid.Tile, error) {
	if st.err != nil {
		return grid.Tile{}, st.err
	}
	s.mu.Lock()
	s.refs[ref]--
	if s.refs[ref] <= 0 {
		delete(s.tiles, ref)
		delete(s.refs, ref)
	}
	s.mu.Unlock()
	return st.tile, nil
}

// onceGet wraps get with a per-compute cache so a source whose dependency
// rectangles overlap pulls each distinct tile exactly once, keeping the
// session's reference counts balanced.
func onceGet(get getTile) getTile {
	seen := make(map[tileRef]grid.Tile)
	return func(ctx context.Context, ref tileRef) (grid.Tile, error) {
		if t, ok := seen[ref]; ok {
			return t, nil
		}
		t, err := get(ctx, ref)
		if err != nil {
			return grid.Tile{}, err
		}
		seen[ref] = t
		return t, nil
	}
}

// cube is a fully materialized raster: cast values in band-sequential
// row-major order plus an optional mask.
type cube struct {
	shape  Shape
	values []float64
	mask   []bool
}

func (c *cube) at(band, row, col int) float64 {
	return c.values[(band*c.shape.Rows+row)*c.shape.Cols+col]
}

func (c *cube) maskedAt(band, row, col int) bool {
	return c.mask != nil && c.mask[(band*c.shape.Rows+row)*c.shape.Cols+col]
}

// materialize evaluates the whole raster. Values are cast to the raster's
// dtype and masked cells hold the null value.
func (r *Raster) materialize(ctx context.Context) (*cube, error) {
	lay := r.layout
	planeSize := lay.Rows * lay.Cols
	c := &cube{shape: r.shape, values: make([]float64, r.shape.Size())}
	if r.Masked() {
		c.mask = make([]bool, r.shape.Size())
	}
	null := 0.0
	if r.null != nil {
		null = *r.null
	}

	s := newSession(r.src)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var (
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	Logger().Debug("materializing raster",
		"shape", r.shape.String(), "dtype", r.dtype.String(), "tiles", lay.NumTiles())

	work := make([]func(), 0, r.shape.Bands*lay.NumTiles())
	for b := 0; b < r.shape.Bands; b++ {
		for tr := 0; tr < lay.TilesDown(); tr++ {
			for tc := 0; tc < lay.TilesAcross(); tc++ {
				b, tr, tc := b, tr, tc
				work = append(work, func() {
					t, err := s.get(runCtx, tileRef{r.src, b, tr, tc})
					if err != nil {
						fail(err)
						return
					}
					base := b * planeSize
					var mask []bool
					if c.mask != nil {
						mask = c.mask[base : base+planeSize]
					}
					storeTile(c.values[base:base+planeSize], mask, lay.Cols, t, r.dtype, null)
				})
			}
		}
	}
	evalPool().Run(work)
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// storeTile writes a tile into a plane buffer, casting values to dt and
// burning the null value into masked cells. The tile itself is not touched.
func storeTile(dst []float64, dstMask []bool, planeCols int, t grid.Tile, dt DType, null float64) {
	fastCopy := dt == Float64 && t.Mask == nil
	for r := 0; r < t.Spec.Rows; r++ {
		di := (t.Spec.Row0+r)*planeCols + t.Spec.Col0
		si := r * t.Spec.Cols
		if fastCopy {
			copy(dst[di:di+t.Spec.Cols], t.Data[si:si+t.Spec.Cols])
			continue
		}
		for c := 0; c < t.Spec.Cols; c++ {
			if t.Mask != nil && t.Mask[si+c] {
				dst[di+c] = null
				if dstMask != nil {
					dstMask[di+c] = true
				}
				continue
			}
			dst[di+c] = CastValue(dt, t.Data[si+c])
		}
	}
}

// Load evaluates the raster and returns an eager copy backed by the
// computed cells. Downstream operations on the copy reread the stored
// values instead of recomputing the graph; use it to pin an intermediate
// result shared by several expensive consumers.
func (r *Raster) Load(ctx context.Context) (*Raster, error) {
	c, err := r.materialize(ctx)
	if err != nil {
		return nil, err
	}
	src := &cubeSource{data: c.values, mask: c.mask, nb: r.shape.Bands, lay: r.layout}
	return derive(src, r.shape, r.dtype, r.null, r), nil
}

// Values evaluates the raster and returns its cells in band-sequential
// row-major order, cast to the raster's dtype. Masked cells hold the null
// value.
func (r *Raster) Values(ctx context.Context) ([]float64, error) {
	c, err := r.materialize(ctx)
	if err != nil {
		return nil, err
	}
	return c.values, nil
}

// NullMaskValues evaluates the raster and returns the null mask, true where
// a cell is masked. The mask is all false when the raster is unmasked.
func (r *Raster) NullMaskValues(ctx context.Context) ([]bool, error) {
	c, err := r.materialize(ctx)
	if err != nil {
		return nil, err
	}
	if c.mask == nil {
		return make([]bool, r.shape.Size()), nil
	}
	return c.mask, nil
}

// windowDeps lists the distinct tiles of src's band that overlap the cell
// window rows [row0, row0+rows) x cols [col0, col0+cols). The window must
// lie inside the plane.
func windowDeps(src source, band, row0, col0, rows, cols int) []tileRef {
	lay := src.layout()
	tr0, tc0 := lay.TileContaining(row0, col0)
	tr1, tc1 := lay.TileContaining(row0+rows-1, col0+cols-1)
	refs := make([]tileRef, 0, (tr1-tr0+1)*(tc1-tc0+1))
	for tr := tr0; tr <= tr1; tr++ {
		for tc := tc0; tc <= tc1; tc++ {
			refs = append(refs, tileRef{src, band, tr, tc})
		}
	}
	return refs
}

// assembleWindow copies the cell window rows [row0, row0+rows) x cols
// [col0, col0+cols) of src's band into dst (and dstMask when non-nil),
// pulling the overlapping tiles through get. dst is row-major with stride
// cols. The window must lie inside the plane.
func assembleWindow(ctx context.Context, src source, band, row0, col0, rows, cols int,
	dst []float64, dstMask []bool, get getTile) error {
	lay := src.layout()
	tr0, tc0 := lay.TileContaining(row0, col0)
	tr1, tc1 := lay.TileContaining(row0+rows-1, col0+cols-1)
	for tr := tr0; tr <= tr1; tr++ {
		for tc := tc0; tc <= tc1; tc++ {
			t, err := get(ctx, tileRef{src, band, tr, tc})
			if err != nil {
				return err
			}
			copyOverlap(dst, dstMask, row0, col0, rows, cols, t)
		}
	}
	return nil
}

// copyOverlap copies the intersection of tile t with the destination window
// into the window buffer.
func copyOverlap(dst []float64, dstMask []bool, row0, col0, rows, cols int, t grid.Tile) {
	r0 := max(row0, t.Spec.Row0)
	r1 := min(row0+rows, t.Spec.Row0+t.Spec.Rows)
	c0 := max(col0, t.Spec.Col0)
	c1 := min(col0+cols, t.Spec.Col0+t.Spec.Cols)
	if r0 >= r1 || c0 >= c1 {
		return
	}
	for rr := r0; rr < r1; rr++ {
		di := (rr-row0)*cols + (c0 - col0)
		si := (rr-t.Spec.Row0)*t.Spec.Cols + (c0 - t.Spec.Col0)
		n := c1 - c0
		copy(dst[di:di+n], t.Data[si:si+n])
		if dstMask != nil && t.Mask != nil {
			copy(dstMask[di:di+n], t.Mask[si:si+n])
		}
	}
}

