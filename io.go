package rasterkit

import (
	"context"
	"fmt"
	"sync"

	"github.com/rasterkit/rasterkit/internal/grid"
	"github.com/rasterkit/rasterkit/internal/rasterio"
)

// Open loads a raster file, dispatching on the path extension. NetCDF
// rasters read lazily one tile at a time and hold the file open until
// Close; TIFF and ASCII grid rasters load fully on open. Options override
// the stored metadata: WithNullValue replaces the file's null value,
// WithDType casts cells on evaluation, WithCRS and WithTransform replace
// the stored georeferencing, and WithChunkSize sets the tile layout.
func Open(path string, opts ...Option) (*Raster, error) {
	var o rasterOptions
	for _, opt := range opts {
		opt(&o)
	}

	format, err := rasterio.DetectFormat(path)
	if err != nil {
		return nil, fmt.Errorf("rasterkit: %s: unknown raster format, want .nc, .tif, .asc, or .png", path)
	}
	switch format {
	case rasterio.FormatNetCDF:
		rdr, err := rasterio.OpenNetCDF(path)
		if err != nil {
			return nil, err
		}
		r, err := rasterFromReader(rdr, o)
		if err != nil {
			rdr.Close()
			return nil, err
		}
		return r, nil
	case rasterio.FormatGeoTIFF:
		ds, err := rasterio.ReadGeoTIFF(path)
		if err != nil {
			return nil, err
		}
		if ds.Transform.IsIdentity() {
			Logger().Warn("geotiff has no world file; raster is not georeferenced",
				"path", path)
		}
		return rasterFromDataset(ds, o)
	case rasterio.FormatASCIIGrid:
		ds, err := rasterio.ReadASCIIGrid(path)
		if err != nil {
			return nil, err
		}
		return rasterFromDataset(ds, o)
	case rasterio.FormatPNG:
		return nil, fmt.Errorf("rasterkit: %s: png is an export format; open rasters from .nc, .tif, or .asc", path)
	}
	return nil, fmt.Errorf("rasterkit: %s: format %v does not support reading", path, format)
}

// rasterFromReader wraps an open file in a lazily evaluated raster. The
// raster takes ownership of the reader and releases it on Close.
func rasterFromReader(rdr rasterio.Reader, o rasterOptions) (*Raster, error) {
	meta := rdr.Meta()
	dt, null, err := resolveMeta(meta, o)
	if err != nil {
		return nil, err
	}
	lay := grid.NewLayout(meta.Rows, meta.Cols, o.chunkRows, o.chunkCols)
	src := &fileSource{rdr: rdr, null: null, nb: meta.Bands, lay: lay}
	r := derive(src, Shape{meta.Bands, meta.Rows, meta.Cols}, dt, null, nil)
	applyMetaGeo(r, meta, o)
	r.closer = rdr.Close
	return r, nil
}

// rasterFromDataset builds a raster around an eagerly loaded dataset.
func rasterFromDataset(ds *rasterio.Dataset, o rasterOptions) (*Raster, error) {
	dt, null, err := resolveMeta(ds.Meta, o)
	if err != nil {
		return nil, err
	}
	mask := ds.Mask
	if o.null != nil {
		// An overriding null value replaces the stored mask outright.
		mask = markNull(ds.Values, *o.null)
	}
	lay := grid.NewLayout(ds.Rows, ds.Cols, o.chunkRows, o.chunkCols)
	src := &cubeSource{data: ds.Values, mask: mask, nb: ds.Bands, lay: lay}
	r := derive(src, Shape{ds.Bands, ds.Rows, ds.Cols}, dt, null, nil)
	applyMetaGeo(r, ds.Meta, o)
	return r, nil
}

// resolveMeta merges stored metadata with construction options. Options
// win; a null value the dtype cannot represent promotes it, matching New.
func resolveMeta(meta rasterio.Meta, o rasterOptions) (DType, *float64, error) {
	dt := o.dtype
	if dt == DTypeUnknown {
		var err error
		dt, err = ParseDType(meta.DType)
		if err != nil {
			return DTypeUnknown, nil, err
		}
	}
	null := meta.Null
	if o.null != nil {
		null = o.null
	}
	if null == nil {
		return dt, nil, nil
	}
	n := *null
	if !dt.CanRepresent(n) {
		dt = PromoteForValue(dt, n)
	}
	return dt, &n, nil
}

// applyMetaGeo installs the file's georeferencing, then lets options
// override it. A stored identity transform does not georeference.
func applyMetaGeo(r *Raster, meta rasterio.Meta, o rasterOptions) {
	r.crs = meta.CRS
	if !meta.Transform.IsIdentity() {
		r.tf = meta.Transform
		r.georef = true
	}
	applyGeoOptions(r, o)
}

// fileSource reads tiles from an open raster file. Reads are serialized;
// format readers share one file cursor.
type fileSource struct {
	mu   sync.Mutex
	rdr  rasterio.Reader
	null *float64
	nb   int
	lay  grid.Layout
}

func (s *fileSource) bands() int          { return s.nb }
func (s *fileSource) layout() grid.Layout { return s.lay }
func (s *fileSource) memoize() bool       { return true }

func (s *fileSource) deps(band, tr, tc int) []tileRef { return nil }

func (s *fileSource) compute(ctx context.Context, band, tr, tc int, get getTile) (grid.Tile, error) {
	sp := s.lay.Tile(tr, tc)
	t := grid.NewTile(band, sp)
	s.mu.Lock()
	err := s.rdr.ReadWindow(band, sp.Row0, sp.Col0, sp.Rows, sp.Cols, t.Data, nil)
	s.mu.Unlock()
	if err != nil {
		return grid.Tile{}, err
	}
	if s.null != nil {
		nv := *s.null
		for i, v := range t.Data {
			if valueEqual(v, nv) {
				t.EnsureMask()
				t.Mask[i] = true
			}
		}
	}
	return t, nil
}

// Save computes the raster and writes it to path, dispatching on the
// extension. NetCDF stores any shape and dtype. GeoTIFF stores a single
// uint8, uint16, or bool band with world file and .prj sidecars. ASCII
// grid stores a single band on a square north-up grid. PNG renders the
// first band with the default colormap.
func (r *Raster) Save(ctx context.Context, path string) error {
	format, err := rasterio.DetectFormat(path)
	if err != nil {
		return fmt.Errorf("rasterkit: Save %s: unknown raster format, want .nc, .tif, .asc, or .png", path)
	}
	if format == rasterio.FormatPNG {
		return r.SavePNG(ctx, path, 1)
	}
	if format == rasterio.FormatGeoTIFF && r.dtype.IsFloat() {
		return fmt.Errorf("rasterkit: Save %s: geotiff stores uint8 and uint16 cells; save %s rasters as NetCDF (.nc)",
			path, r.dtype)
	}

	cu, err := r.materialize(ctx)
	if err != nil {
		return err
	}
	ds := &rasterio.Dataset{
		Meta: rasterio.Meta{
			Bands:     r.shape.Bands,
			Rows:      r.shape.Rows,
			Cols:      r.shape.Cols,
			DType:     r.dtype.String(),
			Transform: r.tf,
			CRS:       r.crs,
		},
		Values: cu.values,
		Mask:   cu.mask,
	}
	if r.null != nil {
		n := *r.null
		ds.Null = &n
	}
	return rasterio.Write(path, ds)
}
