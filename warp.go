package rasterkit

import (
	"context"
	"fmt"
	"math"

	"github.com/rasterkit/rasterkit/internal/geo"
	"github.com/rasterkit/rasterkit/internal/grid"
	"github.com/rasterkit/rasterkit/internal/resample"
)

// Resampling selects how Reproject derives destination cell values from the
// source grid.
type Resampling = resample.Method

const (
	ResampleNearest  = resample.MethodNearest
	ResampleBilinear = resample.MethodBilinear
	ResampleCubic    = resample.MethodCubic
	ResampleLanczos  = resample.MethodLanczos
	ResampleAverage  = resample.MethodAverage
	ResampleMode     = resample.MethodMode
	ResampleMin      = resample.MethodMin
	ResampleMax      = resample.MethodMax
	ResampleMedian   = resample.MethodMedian
	ResampleQ1       = resample.MethodQ1
	ResampleQ3       = resample.MethodQ3
	ResampleSum      = resample.MethodSum
	ResampleRMS      = resample.MethodRMS
)

// ParseResample interprets a resampling method name such as "bilinear".
func ParseResample(name string) (Resampling, error) { return resample.ParseMethod(name) }

type warpOptions struct {
	dstCRS string
	xres   float64
	yres   float64
	hasRes bool
	method Resampling
}

// WarpOption configures Reproject.
type WarpOption func(*warpOptions)

// WarpDstCRS sets the destination coordinate reference system, for example
// "EPSG:3857".
func WarpDstCRS(crs string) WarpOption {
	return func(o *warpOptions) { o.dstCRS = crs }
}

// WarpResolution sets the destination cell size in destination CRS units.
// Both values must be positive.
func WarpResolution(xres, yres float64) WarpOption {
	return func(o *warpOptions) {
		o.xres = xres
		o.yres = yres
		o.hasRes = true
	}
}

// WarpResample sets the resampling method. The default is ResampleNearest.
func WarpResample(m Resampling) WarpOption {
	return func(o *warpOptions) { o.method = m }
}

// Reproject warps the raster onto a new grid in a destination CRS, a new
// resolution, or both; at least one must be given. The output grid covers
// the source bounds transformed to the destination CRS, keeping the source
// resolution unless WarpResolution overrides it. Interpolating point
// methods and fractional area statistics promote integer rasters to
// Float64. The result always carries a null value: cells outside the
// source footprint are null.
//
// Reproject evaluates the source raster immediately; only the destination
// grid is sampled lazily.
func (r *Raster) Reproject(ctx context.Context, opts ...WarpOption) (*Raster, error) {
	var o warpOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.dstCRS == "" && !o.hasRes {
		return nil, fmt.Errorf("rasterkit: Reproject: need a destination CRS or resolution")
	}
	if o.hasRes && (o.xres <= 0 || o.yres <= 0 || math.IsNaN(o.xres) || math.IsNaN(o.yres)) {
		return nil, fmt.Errorf("rasterkit: Reproject: resolution must be positive, got (%v, %v)", o.xres, o.yres)
	}
	if o.method > ResampleRMS {
		return nil, fmt.Errorf("rasterkit: Reproject: unknown resampling method %d", o.method)
	}
	if !r.georef {
		return nil, fmt.Errorf("rasterkit: Reproject: %w", ErrNotGeoreferenced)
	}
	srcInv, ok := r.tf.Invert()
	if !ok {
		return nil, fmt.Errorf("rasterkit: Reproject: geotransform %v is not invertible", r.tf)
	}

	// CRS routing. Without a destination CRS the warp is a rescale on the
	// source grid and both directions are the identity.
	fwd := geo.TransformFunc(func(x, y float64) (float64, float64) { return x, y })
	toSrc := fwd
	dstCRS := r.crs
	if o.dstCRS != "" {
		if r.crs == "" {
			return nil, fmt.Errorf("rasterkit: Reproject: source raster has no CRS: %w", ErrNotGeoreferenced)
		}
		src, err := geo.Parse(r.crs)
		if err != nil {
			return nil, fmt.Errorf("rasterkit: Reproject: %w", err)
		}
		dst, err := geo.Parse(o.dstCRS)
		if err != nil {
			return nil, fmt.Errorf("rasterkit: Reproject: %w", err)
		}
		fwd, err = geo.NewTransform(src, dst)
		if err != nil {
			return nil, fmt.Errorf("rasterkit: Reproject: %w", err)
		}
		toSrc, err = geo.NewTransform(dst, src)
		if err != nil {
			return nil, fmt.Errorf("rasterkit: Reproject: %w", err)
		}
		dstCRS = o.dstCRS
	}

	minx, miny, maxx, maxy := densifiedBounds(r.tf, r.shape.Rows, r.shape.Cols, fwd)
	xres, yres := o.xres, o.yres
	if !o.hasRes {
		xres, yres = r.tf.Resolution()
	}
	cols := int(math.Ceil((maxx - minx) / xres))
	if cols < 1 {
		cols = 1
	}
	rows := int(math.Ceil((maxy - miny) / yres))
	if rows < 1 {
		rows = 1
	}
	dstTF := geo.FromOrigin(minx, maxy, xres, yres)

	cu, err := r.materialize(ctx)
	if err != nil {
		return nil, err
	}
	planeSize := r.shape.Rows * r.shape.Cols
	planes := make([]resample.Plane, r.shape.Bands)
	for b := range planes {
		vals := make([]float64, planeSize)
		copy(vals, cu.values[b*planeSize:(b+1)*planeSize])
		if cu.mask != nil {
			for i, m := range cu.mask[b*planeSize : (b+1)*planeSize] {
				if m {
					vals[i] = math.NaN()
				}
			}
		}
		planes[b] = resample.Plane{Rows: r.shape.Rows, Cols: r.shape.Cols, Values: vals}
	}

	dt := warpDType(r.dtype, o.method)
	null := dt.DefaultNull()
	if r.null != nil {
		null = *r.null
	}
	out := &Raster{
		shape:  Shape{Bands: r.shape.Bands, Rows: rows, Cols: cols},
		dtype:  dt,
		null:   &null,
		crs:    dstCRS,
		tf:     dstTF,
		georef: true,
		layout: grid.NewLayout(rows, cols, r.layout.TileRows, r.layout.TileCols),
	}
	out.src = &warpSource{
		planes: planes,
		lay:    out.layout,
		method: o.method,
		dstTF:  dstTF,
		toSrc:  toSrc,
		srcInv: srcInv,
	}
	return out, nil
}

// warpDType applies the promotion rules: interpolating point methods and
// fractional area statistics turn integer rasters into Float64.
func warpDType(dt DType, m Resampling) DType {
	switch m {
	case ResampleBilinear, ResampleCubic, ResampleLanczos,
		ResampleAverage, ResampleMedian, ResampleQ1, ResampleQ3, ResampleRMS:
		if !dt.IsFloat() {
			return Float64
		}
	}
	return dt
}

// densifiedBounds transforms the raster outline to the destination CRS,
// walking each edge so curved projections do not clip the hull.
func densifiedBounds(tf geo.Affine, rows, cols int, fwd geo.TransformFunc) (minx, miny, maxx, maxy float64) {
	const steps = 21
	minx, miny = math.Inf(1), math.Inf(1)
	maxx, maxy = math.Inf(-1), math.Inf(-1)
	visit := func(col, row float64) {
		x, y := tf.Apply(col, row)
		x, y = fwd(x, y)
		minx = math.Min(minx, x)
		maxx = math.Max(maxx, x)
		miny = math.Min(miny, y)
		maxy = math.Max(maxy, y)
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / steps
		visit(t*float64(cols), 0)
		visit(t*float64(cols), float64(rows))
		visit(0, t*float64(rows))
		visit(float64(cols), t*float64(rows))
	}
	return minx, miny, maxx, maxy
}

// warpSource samples materialized source planes onto the destination grid.
// Planes hold NaN at null cells, so the samplers skip them.
type warpSource struct {
	planes []resample.Plane
	lay    grid.Layout
	method Resampling
	dstTF  geo.Affine
	toSrc  geo.TransformFunc
	srcInv geo.Affine
}

func (s *warpSource) bands() int                      { return len(s.planes) }
func (s *warpSource) layout() grid.Layout             { return s.lay }
func (s *warpSource) memoize() bool                   { return true }
func (s *warpSource) deps(band, tr, tc int) []tileRef { return nil }

// srcCell maps a destination grid position to fractional source cell
// coordinates, where integer positions land on cell centers.
func (s *warpSource) srcCell(dcol, drow float64) (row, col float64) {
	x, y := s.dstTF.Apply(dcol, drow)
	x, y = s.toSrc(x, y)
	c, r := s.srcInv.Apply(x, y)
	return r - 0.5, c - 0.5
}

func (s *warpSource) compute(_ context.Context, band, tr, tc int, _ getTile) (grid.Tile, error) {
	spec := s.lay.Tile(tr, tc)
	out := grid.NewTile(band, spec)
	p := s.planes[band]

	if s.method.IsArea() {
		s.computeArea(p, &out, spec)
	} else {
		for rr := 0; rr < spec.Rows; rr++ {
			drow := float64(spec.Row0+rr) + 0.5
			for cc := 0; cc < spec.Cols; cc++ {
				srow, scol := s.srcCell(float64(spec.Col0+cc)+0.5, drow)
				out.Data[rr*spec.Cols+cc] = resample.Point(p, srow, scol, s.method)
			}
		}
	}

	for i, v := range out.Data {
		if math.IsNaN(v) {
			out.EnsureMask()[i] = true
		}
	}
	out.Normalize()
	return out, nil
}

func (s *warpSource) computeArea(p resample.Plane, out *grid.Tile, spec grid.Spec) {
	var scratch []float64
	for rr := 0; rr < spec.Rows; rr++ {
		for cc := 0; cc < spec.Cols; cc++ {
			top := float64(spec.Row0 + rr)
			left := float64(spec.Col0 + cc)
			r00, c00 := s.srcCell(left, top)
			r01, c01 := s.srcCell(left+1, top)
			r10, c10 := s.srcCell(left, top+1)
			r11, c11 := s.srcCell(left+1, top+1)
			rowMin := math.Min(math.Min(r00, r01), math.Min(r10, r11))
			rowMax := math.Max(math.Max(r00, r01), math.Max(r10, r11))
			colMin := math.Min(math.Min(c00, c01), math.Min(c10, c11))
			colMax := math.Max(math.Max(c00, c01), math.Max(c10, c11))

			// Footprints that miss the source plane entirely are outside
			// the data, not an empty aggregate.
			if int(math.Floor(rowMax+0.5)) < 0 || int(math.Ceil(rowMin-0.5)) >= p.Rows ||
				int(math.Floor(colMax+0.5)) < 0 || int(math.Ceil(colMin-0.5)) >= p.Cols {
				out.Data[rr*spec.Cols+cc] = math.NaN()
				continue
			}
			var v float64
			v, scratch = resample.Area(p, rowMin, colMin, rowMax, colMax, s.method, scratch)
			out.Data[rr*spec.Cols+cc] = v
		}
	}
}
