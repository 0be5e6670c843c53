package rasterkit

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/rasterkit/rasterkit/internal/geo"
	"github.com/rasterkit/rasterkit/internal/grid"
)

// ErrNotGeoreferenced indicates an operation that needs a CRS or
// geotransform was applied to a raster without one.
var ErrNotGeoreferenced = errors.New("rasterkit: raster is not georeferenced")

// ErrNoNullValue indicates an operation that needs a null value was applied
// to a raster without one.
var ErrNoNullValue = errors.New("rasterkit: raster has no null value")

// Shape describes the extent of a raster: bands, then rows (y), then
// columns (x).
type Shape struct {
	Bands, Rows, Cols int
}

// Size returns the total cell count including bands.
func (s Shape) Size() int { return s.Bands * s.Rows * s.Cols }

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.Bands, s.Rows, s.Cols)
}

// Raster is an immutable handle on a lazily evaluated raster: a stack of
// band planes with a common element type, optional null value, and optional
// georeferencing. Operations return new Raster values that share the
// underlying evaluation graph; no cell is computed until the raster is
// materialized by an eager operation (Save, Render, reductions, vector
// extraction) or an explicit Values call.
//
// Raster is safe for concurrent readers.
type Raster struct {
	src    source
	shape  Shape
	dtype  DType
	null   *float64
	crs    string
	tf     Affine
	georef bool
	layout grid.Layout

	// closer releases the backing file for rasters opened from disk.
	closer func() error
}

// derive builds a raster around src carrying parent's georeferencing and
// layout. The null value pointer is not shared.
func derive(src source, shape Shape, dtype DType, null *float64, parent *Raster) *Raster {
	r := &Raster{
		src:    src,
		shape:  shape,
		dtype:  dtype,
		layout: src.layout(),
	}
	if null != nil {
		n := *null
		r.null = &n
	}
	if parent != nil {
		r.crs = parent.crs
		r.tf = parent.tf
		r.georef = parent.georef
	} else {
		r.tf = geo.Identity()
	}
	return r
}

// New creates a raster from band-sequential row-major values. The values
// slice must hold exactly bands*rows*cols elements. Values are cast to the
// dtype selected by WithDType (Float64 by default); a WithNullValue option
// masks matching cells.
func New(values []float64, bands, rows, cols int, opts ...Option) (*Raster, error) {
	if bands < 1 || rows < 1 || cols < 1 {
		return nil, fmt.Errorf("rasterkit: invalid shape (%d, %d, %d)", bands, rows, cols)
	}
	if len(values) != bands*rows*cols {
		return nil, fmt.Errorf("rasterkit: got %d values for shape (%d, %d, %d), want %d",
			len(values), bands, rows, cols, bands*rows*cols)
	}
	o := defaultRasterOptions()
	for _, opt := range opts {
		opt(&o)
	}
	dt := o.dtype
	if dt == DTypeUnknown {
		dt = Float64
	}
	if o.null != nil && !dt.CanRepresent(*o.null) {
		dt = PromoteForValue(dt, *o.null)
	}

	data := make([]float64, len(values))
	for i, v := range values {
		data[i] = CastValue(dt, v)
	}
	var mask []bool
	if o.null != nil {
		mask = markNull(data, *o.null)
	}

	lay := grid.NewLayout(rows, cols, o.chunkRows, o.chunkCols)
	src := &cubeSource{data: data, mask: mask, nb: bands, lay: lay}
	r := derive(src, Shape{bands, rows, cols}, dt, o.null, nil)
	applyGeoOptions(r, o)
	return r, nil
}

// NewFromGrid creates a single-band raster from a row-major grid of values.
// All rows must have the same length.
func NewFromGrid(values [][]float64, opts ...Option) (*Raster, error) {
	if len(values) == 0 || len(values[0]) == 0 {
		return nil, errors.New("rasterkit: empty value grid")
	}
	cols := len(values[0])
	flat := make([]float64, 0, len(values)*cols)
	for i, row := range values {
		if len(row) != cols {
			return nil, fmt.Errorf("rasterkit: ragged value grid: row %d has %d values, want %d",
				i, len(row), cols)
		}
		flat = append(flat, row...)
	}
	return New(flat, 1, len(values), cols, opts...)
}

// Full creates a raster filled with a single value. No backing array is
// allocated; tiles are synthesized on demand.
func Full(value float64, bands, rows, cols int, opts ...Option) (*Raster, error) {
	if bands < 1 || rows < 1 || cols < 1 {
		return nil, fmt.Errorf("rasterkit: invalid shape (%d, %d, %d)", bands, rows, cols)
	}
	o := defaultRasterOptions()
	for _, opt := range opts {
		opt(&o)
	}
	dt := o.dtype
	if dt == DTypeUnknown {
		dt = Float64
	}
	if o.null != nil && !dt.CanRepresent(*o.null) {
		dt = PromoteForValue(dt, *o.null)
	}
	v := CastValue(dt, value)

	lay := grid.NewLayout(rows, cols, o.chunkRows, o.chunkCols)
	masked := o.null != nil && valueEqual(v, *o.null)
	src := &constSource{value: v, masked: masked, nb: bands, lay: lay}
	r := derive(src, Shape{bands, rows, cols}, dt, o.null, nil)
	applyGeoOptions(r, o)
	return r, nil
}

func applyGeoOptions(r *Raster, o rasterOptions) {
	if o.crs != "" {
		r.crs = o.crs
	}
	if o.hasTransform {
		r.tf = o.transform
		r.georef = true
	}
}

// markNull returns a mask with true at every cell equal to null, comparing
// NaN to NaN. It returns nil when no cell matches.
func markNull(data []float64, null float64) []bool {
	var mask []bool
	for i, v := range data {
		if valueEqual(v, null) {
			if mask == nil {
				mask = make([]bool, len(data))
			}
			mask[i] = true
		}
	}
	return mask
}

// valueEqual compares two values treating NaN as equal to NaN.
func valueEqual(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

// Shape returns the raster extent.
func (r *Raster) Shape() Shape { return r.shape }

// NBands returns the number of bands.
func (r *Raster) NBands() int { return r.shape.Bands }

// Rows returns the number of rows.
func (r *Raster) Rows() int { return r.shape.Rows }

// Cols returns the number of columns.
func (r *Raster) Cols() int { return r.shape.Cols }

// Size returns the total cell count including bands.
func (r *Raster) Size() int { return r.shape.Size() }

// DType returns the element type.
func (r *Raster) DType() DType { return r.dtype }

// NullValue returns the null value and whether one is set.
func (r *Raster) NullValue() (float64, bool) {
	if r.null == nil {
		return 0, false
	}
	return *r.null, true
}

// Masked reports whether the raster tracks a null mask.
func (r *Raster) Masked() bool { return r.null != nil }

// Bands returns the 1-based band numbers, [1..NBands].
func (r *Raster) Bands() []int {
	bands := make([]int, r.shape.Bands)
	for i := range bands {
		bands[i] = i + 1
	}
	return bands
}

// ChunkShape returns the tile dimensions used for lazy evaluation.
func (r *Raster) ChunkShape() (rows, cols int) {
	return r.layout.TileRows, r.layout.TileCols
}

// Close releases the backing file of a raster opened from disk. Rasters
// built in memory have nothing to release and return nil. Derived rasters
// do not own their ancestors' files; close the raster returned by Open.
func (r *Raster) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}

// GetBands returns a raster holding the requested 1-based bands in the
// given order. Bands may repeat. Out-of-range band numbers error.
func (r *Raster) GetBands(bands ...int) (*Raster, error) {
	if len(bands) == 0 {
		return nil, errors.New("rasterkit: GetBands requires at least one band")
	}
	sel := make([]int, len(bands))
	for i, b := range bands {
		if b < 1 || b > r.shape.Bands {
			return nil, fmt.Errorf("rasterkit: band %d out of range [1, %d]", b, r.shape.Bands)
		}
		sel[i] = b - 1
	}
	src := &bandSelSource{inner: r.src, sel: sel, lay: r.layout}
	out := derive(src, Shape{len(sel), r.shape.Rows, r.shape.Cols}, r.dtype, r.null, r)
	return out, nil
}

// BandConcat stacks the bands of the given rasters into one raster. All
// inputs must share the same rows and columns; the result dtype is the
// promotion of all input dtypes. When input null values disagree the result
// uses the default null for the promoted dtype and a warning is logged.
func BandConcat(rasters ...*Raster) (*Raster, error) {
	if len(rasters) == 0 {
		return nil, errors.New("rasterkit: BandConcat requires at least one raster")
	}
	first := rasters[0]
	if len(rasters) == 1 {
		return first, nil
	}
	dt := first.dtype
	nb := first.shape.Bands
	for i, in := range rasters[1:] {
		if in.shape.Rows != first.shape.Rows || in.shape.Cols != first.shape.Cols {
			return nil, fmt.Errorf("rasterkit: BandConcat shape mismatch: raster %d is %dx%d, want %dx%d",
				i+1, in.shape.Rows, in.shape.Cols, first.shape.Rows, first.shape.Cols)
		}
		dt = Promote(dt, in.dtype)
		nb += in.shape.Bands
	}

	inputs := make([]source, len(rasters))
	for i, in := range rasters {
		inputs[i] = alignLayout(in, first.layout)
	}
	src := newBandConcatSource(inputs, first.layout)
	null := reconcileNull(dt, rasters...)
	out := derive(src, Shape{nb, first.shape.Rows, first.shape.Cols}, dt, null, georefParent(rasters))
	return out, nil
}

// georefParent picks the first georeferenced input as the metadata parent.
func georefParent(rasters []*Raster) *Raster {
	for _, r := range rasters {
		if r.georef || r.crs != "" {
			return r
		}
	}
	return rasters[0]
}

// reconcileNull merges the null values of the inputs for a result of dtype
// dt: nil when no input is masked, the common null when all masked inputs
// agree and no input's dtype changed, and dt's default otherwise.
func reconcileNull(dt DType, rasters ...*Raster) *float64 {
	var common *float64
	valuesDiffer := false
	dtypeChanged := false
	masked := false
	for _, r := range rasters {
		if r.null == nil {
			continue
		}
		masked = true
		if common == nil {
			common = r.null
		} else if !valueEqual(*common, *r.null) {
			valuesDiffer = true
		}
		if r.dtype != dt {
			dtypeChanged = true
		}
	}
	if !masked {
		return nil
	}
	if !valuesDiffer && !dtypeChanged && dt.CanRepresent(*common) {
		n := *common
		return &n
	}
	n := dt.DefaultNull()
	if valuesDiffer {
		Logger().Warn("null values differ across inputs, using dtype default",
			"dtype", dt.String(), "null", n)
	}
	return &n
}

// alignLayout rechunks r's source to the given layout when they differ.
func alignLayout(r *Raster, lay grid.Layout) source {
	cur := r.layout
	if cur.TileRows == lay.TileRows && cur.TileCols == lay.TileCols {
		return r.src
	}
	want := grid.NewLayout(cur.Rows, cur.Cols, lay.TileRows, lay.TileCols)
	return &rechunkSource{inner: r.src, lay: want}
}

// Quadrants holds the four corner sub-rasters produced by ToQuadrants.
type Quadrants struct {
	NW, NE, SW, SE *Raster
}

// ToQuadrants splits the raster into four sub-rasters at rows/2 and cols/2.
// Each quadrant keeps all bands and carries georeferencing offset to its
// origin. The raster must be at least 2x2.
func (r *Raster) ToQuadrants() (Quadrants, error) {
	if r.shape.Rows < 2 || r.shape.Cols < 2 {
		return Quadrants{}, fmt.Errorf("rasterkit: cannot split %dx%d raster into quadrants",
			r.shape.Rows, r.shape.Cols)
	}
	midR := r.shape.Rows / 2
	midC := r.shape.Cols / 2
	return Quadrants{
		NW: r.slice(0, 0, midR, midC),
		NE: r.slice(0, midC, midR, r.shape.Cols-midC),
		SW: r.slice(midR, 0, r.shape.Rows-midR, midC),
		SE: r.slice(midR, midC, r.shape.Rows-midR, r.shape.Cols-midC),
	}, nil
}

// slice returns the sub-raster covering rows [row0, row0+rows) and columns
// [col0, col0+cols) of all bands. The window must lie inside the raster.
func (r *Raster) slice(row0, col0, rows, cols int) *Raster {
	lay := grid.NewLayout(rows, cols, r.layout.TileRows, r.layout.TileCols)
	src := &sliceSource{inner: r.src, nb: r.shape.Bands, row0: row0, col0: col0, lay: lay}
	out := derive(src, Shape{r.shape.Bands, rows, cols}, r.dtype, r.null, r)
	out.tf = r.tf.Multiply(geo.Translate(float64(col0), float64(row0)))
	return out
}

// Chunk returns a raster identical to r re-tiled to the given chunk shape.
func (r *Raster) Chunk(rows, cols int) (*Raster, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("rasterkit: invalid chunk shape %dx%d", rows, cols)
	}
	lay := grid.NewLayout(r.shape.Rows, r.shape.Cols, rows, cols)
	if lay.TileRows == r.layout.TileRows && lay.TileCols == r.layout.TileCols {
		return r, nil
	}
	src := &rechunkSource{inner: r.src, lay: lay}
	out := derive(src, r.shape, r.dtype, r.null, r)
	return out, nil
}

// ChunkBoundingBoxes returns the world-space bounding box of every tile of
// one band plane, in row-major tile order.
func (r *Raster) ChunkBoundingBoxes() []orb.Bound {
	lay := r.layout
	bounds := make([]orb.Bound, 0, lay.NumTiles())
	for tr := 0; tr < lay.TilesDown(); tr++ {
		for tc := 0; tc < lay.TilesAcross(); tc++ {
			spec := lay.Tile(tr, tc)
			minx, miny, maxx, maxy := tileBounds(r.tf, spec)
			bounds = append(bounds, orb.Bound{
				Min: orb.Point{minx, miny},
				Max: orb.Point{maxx, maxy},
			})
		}
	}
	return bounds
}

// tileBounds returns the normalized world-space bounds of one tile,
// taking the hull of its four corners so rotated transforms stay correct.
func tileBounds(tf Affine, spec grid.Spec) (minx, miny, maxx, maxy float64) {
	corners := [4][2]float64{
		{float64(spec.Col0), float64(spec.Row0)},
		{float64(spec.Col0 + spec.Cols), float64(spec.Row0)},
		{float64(spec.Col0), float64(spec.Row0 + spec.Rows)},
		{float64(spec.Col0 + spec.Cols), float64(spec.Row0 + spec.Rows)},
	}
	minx, miny = math.Inf(1), math.Inf(1)
	maxx, maxy = math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x, y := tf.Apply(c[0], c[1])
		minx = math.Min(minx, x)
		miny = math.Min(miny, y)
		maxx = math.Max(maxx, x)
		maxy = math.Max(maxy, y)
	}
	return minx, miny, maxx, maxy
}

// ChunkRasters returns one single-band sub-raster per tile, indexed
// [band][tile] with tiles in row-major order.
func (r *Raster) ChunkRasters() ([][]*Raster, error) {
	lay := r.layout
	out := make([][]*Raster, r.shape.Bands)
	for b := range out {
		band, err := r.GetBands(b + 1)
		if err != nil {
			return nil, err
		}
		tiles := make([]*Raster, 0, lay.NumTiles())
		for tr := 0; tr < lay.TilesDown(); tr++ {
			for tc := 0; tc < lay.TilesAcross(); tc++ {
				spec := lay.Tile(tr, tc)
				tiles = append(tiles, band.slice(spec.Row0, spec.Col0, spec.Rows, spec.Cols))
			}
		}
		out[b] = tiles
	}
	return out, nil
}
