// Package rasterkit provides lazy, tiled raster analysis for Go.
//
// # Overview
//
// rasterkit models a raster as a stack of bands over a row/column grid,
// with an optional null value marking cells that carry no data. Operations
// build a graph of tile computations instead of touching cells, so large
// rasters stream through memory one chunk at a time; nothing is computed
// until a terminal call such as Load, Save, ToPoints, or Render forces it.
//
// # Quick Start
//
//	import "github.com/rasterkit/rasterkit"
//
//	// Open a raster (NetCDF reads lazily, tile by tile)
//	dem, err := rasterkit.Open("elevation.nc")
//	if err != nil { ... }
//	defer dem.Close()
//
//	// Build a computation: feet to meters, then a smoothing pass
//	m, _ := dem.Mul(0.3048)
//	smooth, _ := m.Focal(rasterkit.FocalMean, rasterkit.RectWindow(5, 5))
//
//	// Force evaluation and write the result
//	if err := smooth.Save(ctx, "smooth.nc"); err != nil { ... }
//
// # Null Values
//
// A raster with a null value tracks a mask alongside its cells. Cell-wise
// operations propagate the mask: a cell is null in the result when it is
// null in any input. Null cells hold the null value when materialized, and
// print as the null value in saved files.
//
// # Element Types
//
// Cells travel as float64 during computation regardless of the declared
// dtype. Casting to the dtype happens on materialization: out-of-range
// values clamp and fractions round half to even. Arithmetic promotes
// operand dtypes the way Band arithmetic usually does (int8 + uint8 gives
// int16, int32 + float32 gives float64).
//
// # Georeferencing
//
// A raster carries an affine geotransform and a CRS string. They ride
// along through cell-wise operations, gate Reproject, and are stored in
// saved files. Rasters built in memory without WithTransform are not
// georeferenced; spatial operations on them return ErrNotGeoreferenced.
//
// # Concurrency
//
// Rasters are immutable: every operation returns a new raster sharing the
// inputs' computation graph. Evaluation fans tiles out over a worker pool
// sized to GOMAXPROCS. A Raster may be used from multiple goroutines.
package rasterkit
