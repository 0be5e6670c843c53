package rasterkit

// Option configures a Raster during construction.
// Use functional options to customize metadata and storage layout.
//
// Example:
//
//	// Plain float64 raster
//	r, err := rasterkit.New(values, 1, 512, 512)
//
//	// Typed, georeferenced raster with a null value
//	r, err := rasterkit.New(values, 1, 512, 512,
//	    rasterkit.WithDType(rasterkit.Int16),
//	    rasterkit.WithNullValue(-9999),
//	    rasterkit.WithCRS("EPSG:32611"),
//	    rasterkit.WithTransform(rasterkit.AffineFromOrigin(4.3e5, 4.9e6, 30, 30)))
type Option func(*rasterOptions)

// rasterOptions holds optional configuration for Raster construction.
type rasterOptions struct {
	dtype        DType
	null         *float64
	crs          string
	transform    Affine
	hasTransform bool
	chunkRows    int
	chunkCols    int
}

// defaultRasterOptions returns the default construction options.
func defaultRasterOptions() rasterOptions {
	return rasterOptions{
		dtype: Float64, // matches the element type of the input values
	}
}

// WithDType sets the element type of the raster. Input values are cast on
// construction; out-of-range values clamp and fractions round half to even.
func WithDType(dt DType) Option {
	return func(o *rasterOptions) {
		o.dtype = dt
	}
}

// WithNullValue sets the null (no-data) value. Cells equal to v are masked.
// If v is not representable in the raster's dtype, the dtype promotes to one
// that can hold it.
func WithNullValue(v float64) Option {
	return func(o *rasterOptions) {
		null := v
		o.null = &null
	}
}

// WithCRS sets the coordinate reference system, e.g. "EPSG:4326" or a proj4
// string. An empty string means no CRS.
func WithCRS(crs string) Option {
	return func(o *rasterOptions) {
		o.crs = crs
	}
}

// WithTransform sets the affine geotransform mapping cell space to world
// space. Without it the raster uses the identity transform and is not
// considered georeferenced.
func WithTransform(tf Affine) Option {
	return func(o *rasterOptions) {
		o.transform = tf
		o.hasTransform = true
	}
}

// WithChunkSize sets the tile dimensions used for lazy evaluation.
// Values <= 0 select the default tile size.
func WithChunkSize(rows, cols int) Option {
	return func(o *rasterOptions) {
		o.chunkRows = rows
		o.chunkCols = cols
	}
}
