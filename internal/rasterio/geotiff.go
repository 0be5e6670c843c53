package rasterio

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/rasterkit/rasterkit/internal/geo"
)

// worldFilePath returns the sidecar world file path for a raster image:
// .tfw for TIFF, .pgw for PNG, .wld otherwise.
func worldFilePath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	switch strings.ToLower(ext) {
	case ".tif", ".tiff":
		return stem + ".tfw"
	case ".png":
		return stem + ".pgw"
	}
	return stem + ".wld"
}

// prjPath returns the sidecar projection file path.
func prjPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".prj"
}

// writeSidecars stores the transform as a world file and the CRS as a .prj
// next to the raster image.
func writeSidecars(path string, tf geo.Affine, crs string) error {
	if err := os.WriteFile(worldFilePath(path), []byte(geo.FormatWorldFile(tf)), 0o644); err != nil {
		return fmt.Errorf("rasterio: writing world file: %w", err)
	}
	if crs != "" {
		if err := os.WriteFile(prjPath(path), []byte(crs+"\n"), 0o644); err != nil {
			return fmt.Errorf("rasterio: writing projection file: %w", err)
		}
	}
	return nil
}

// readSidecars loads the transform and CRS stored next to a raster image.
// Missing sidecars yield the identity transform and an empty CRS.
func readSidecars(path string) (geo.Affine, string) {
	tf := geo.Identity()
	if b, err := os.ReadFile(worldFilePath(path)); err == nil {
		if parsed, err := geo.ParseWorldFile(string(b)); err == nil {
			tf = parsed
		}
	}
	crs := ""
	if b, err := os.ReadFile(prjPath(path)); err == nil {
		crs = strings.TrimSpace(string(b))
	}
	return tf, crs
}

// WriteGeoTIFF stores a single band dataset as a deflate compressed TIFF
// with world file and projection sidecars. Only uint8 and uint16 cells fit
// the TIFF gray formats; bool rides along as uint8.
func WriteGeoTIFF(path string, ds *Dataset) error {
	if ds.Bands != 1 {
		return fmt.Errorf("rasterio: geotiff output is single band, raster has %d bands", ds.Bands)
	}

	var img image.Image
	switch ds.DType {
	case "uint8", "bool":
		g := image.NewGray(image.Rect(0, 0, ds.Cols, ds.Rows))
		for r := 0; r < ds.Rows; r++ {
			for c := 0; c < ds.Cols; c++ {
				g.Pix[r*g.Stride+c] = uint8(ds.Values[r*ds.Cols+c])
			}
		}
		img = g
	case "uint16":
		g := image.NewGray16(image.Rect(0, 0, ds.Cols, ds.Rows))
		for r := 0; r < ds.Rows; r++ {
			for c := 0; c < ds.Cols; c++ {
				g.SetGray16(c, r, color.Gray16{Y: uint16(ds.Values[r*ds.Cols+c])})
			}
		}
		img = g
	default:
		return fmt.Errorf("rasterio: geotiff output supports uint8 and uint16 cells, not %s", ds.DType)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rasterio: creating %s: %w", path, err)
	}
	defer f.Close()
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("rasterio: encoding tiff %s: %w", path, err)
	}
	return writeSidecars(path, ds.Transform, ds.CRS)
}

// ReadGeoTIFF loads a single band TIFF with its sidecar georeferencing.
func ReadGeoTIFF(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rasterio: opening %s: %w", path, err)
	}
	defer f.Close()
	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("rasterio: decoding tiff %s: %w", path, err)
	}

	b := img.Bounds()
	rows, cols := b.Dy(), b.Dx()
	ds := &Dataset{
		Meta: Meta{Bands: 1, Rows: rows, Cols: cols},
	}
	ds.Values = make([]float64, rows*cols)

	switch im := img.(type) {
	case *image.Gray:
		ds.DType = "uint8"
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				ds.Values[r*cols+c] = float64(im.GrayAt(b.Min.X+c, b.Min.Y+r).Y)
			}
		}
	case *image.Gray16:
		ds.DType = "uint16"
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				ds.Values[r*cols+c] = float64(im.Gray16At(b.Min.X+c, b.Min.Y+r).Y)
			}
		}
	default:
		return nil, fmt.Errorf("rasterio: tiff %s has unsupported pixel layout %T", path, img)
	}

	ds.Transform, ds.CRS = readSidecars(path)
	return ds, nil
}
