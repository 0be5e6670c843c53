// Package rasterio reads and writes raster files. NetCDF is the native
// format and supports windowed reads; single band GeoTIFF, ESRI ASCII grid,
// and PNG round out the interchange surface. Values travel as float64 with
// an optional validity mask regardless of the stored element type.
package rasterio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rasterkit/rasterkit/internal/geo"
)

// Format identifies a raster file format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatNetCDF
	FormatGeoTIFF
	FormatASCIIGrid
	FormatPNG
)

func (f Format) String() string {
	switch f {
	case FormatNetCDF:
		return "netcdf"
	case FormatGeoTIFF:
		return "geotiff"
	case FormatASCIIGrid:
		return "ascii-grid"
	case FormatPNG:
		return "png"
	}
	return "unknown"
}

// DetectFormat maps a file path to its format by extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nc":
		return FormatNetCDF, nil
	case ".tif", ".tiff":
		return FormatGeoTIFF, nil
	case ".asc", ".txt":
		return FormatASCIIGrid, nil
	case ".png":
		return FormatPNG, nil
	}
	return FormatUnknown, fmt.Errorf("rasterio: cannot infer raster format from path %q", path)
}

// Meta describes a stored raster.
type Meta struct {
	Bands, Rows, Cols int
	DType             string
	Null              *float64
	Transform         geo.Affine
	CRS               string
}

// Dataset is a fully loaded raster: band major values with an optional
// mask marking cells that carry no data.
type Dataset struct {
	Meta
	Values []float64
	Mask   []bool
}

// Reader is an open raster file handle supporting windowed reads.
type Reader interface {
	Meta() Meta
	// ReadWindow fills dst (and mask, when non-nil) with the rows x cols
	// window of the given band starting at (row0, col0). dst and mask
	// must hold rows*cols elements.
	ReadWindow(band, row0, col0, rows, cols int, dst []float64, mask []bool) error
	Close() error
}

// Open opens a raster file for windowed reading, dispatching on the
// path extension.
func Open(path string) (Reader, error) {
	f, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatNetCDF:
		return OpenNetCDF(path)
	case FormatGeoTIFF:
		ds, err := ReadGeoTIFF(path)
		if err != nil {
			return nil, err
		}
		return &memReader{ds: ds}, nil
	case FormatASCIIGrid:
		ds, err := ReadASCIIGrid(path)
		if err != nil {
			return nil, err
		}
		return &memReader{ds: ds}, nil
	}
	return nil, fmt.Errorf("rasterio: format %v does not support reading", f)
}

// Write stores a dataset at the given path, dispatching on the extension.
// The dataset's values must already be cast to its dtype.
func Write(path string, ds *Dataset) error {
	f, err := DetectFormat(path)
	if err != nil {
		return err
	}
	switch f {
	case FormatNetCDF:
		return WriteNetCDF(path, ds)
	case FormatGeoTIFF:
		return WriteGeoTIFF(path, ds)
	case FormatASCIIGrid:
		return WriteASCIIGrid(path, ds)
	}
	return fmt.Errorf("rasterio: format %v does not support writing raster data", f)
}

// memReader adapts an eagerly loaded dataset to the Reader interface.
type memReader struct {
	ds *Dataset
}

func (r *memReader) Meta() Meta { return r.ds.Meta }

func (r *memReader) ReadWindow(band, row0, col0, rows, cols int, dst []float64, mask []bool) error {
	m := r.ds.Meta
	if band < 0 || band >= m.Bands {
		return fmt.Errorf("rasterio: band %d out of range [0, %d)", band, m.Bands)
	}
	if row0 < 0 || col0 < 0 || row0+rows > m.Rows || col0+cols > m.Cols {
		return fmt.Errorf("rasterio: window %dx%d at (%d, %d) outside raster %dx%d",
			rows, cols, row0, col0, m.Rows, m.Cols)
	}
	plane := band * m.Rows * m.Cols
	for r2 := 0; r2 < rows; r2++ {
		src := plane + (row0+r2)*m.Cols + col0
		copy(dst[r2*cols:(r2+1)*cols], r.ds.Values[src:src+cols])
		if mask != nil {
			for c := 0; c < cols; c++ {
				if r.ds.Mask != nil {
					mask[r2*cols+c] = r.ds.Mask[src+c]
				} else {
					mask[r2*cols+c] = false
				}
			}
		}
	}
	return nil
}

func (r *memReader) Close() error { return nil }
