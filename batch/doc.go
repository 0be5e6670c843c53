// Package batch runs HCL-defined raster pipelines.
//
// A pipeline file declares named rasters and outputs:
//
//	raster "dem" {
//	  path = "dem.nc"
//	}
//
//	raster "slope" {
//	  expr = focal(raster.dem, "std", 3, 3)
//	}
//
//	output "out" {
//	  raster = raster.slope
//	  path   = "out/slope.nc"
//	}
//
// A raster block either opens a file (path) or derives a new raster from an
// expression (expr). Expressions reference earlier rasters as raster.<name>
// and call pipeline functions such as add, focal, reclassify and reproject;
// dependency edges come from the references, and independent steps evaluate
// concurrently. An output block saves a raster once its inputs complete.
//
//	res, err := batch.Run(ctx, "pipeline.hcl")
//	if err != nil { ... }
//	defer res.Close()
//	slope, _ := res.Raster("slope")
package batch
