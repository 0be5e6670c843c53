package rasterio

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/rasterkit/rasterkit/internal/geo"
)

// WriteASCIIGrid stores a single band dataset as an ESRI ASCII grid. The
// format carries square north-up cells only; other transforms are
// rejected. Values print with %g, so the grid reads back as float64.
func WriteASCIIGrid(path string, ds *Dataset) error {
	if ds.Bands != 1 {
		return fmt.Errorf("rasterio: ascii grid output is single band, raster has %d bands", ds.Bands)
	}
	tf := ds.Transform
	if !tf.IsRectilinear() {
		return fmt.Errorf("rasterio: ascii grid requires a north-up transform")
	}
	if math.Abs(tf.A-(-tf.E)) > 1e-9*math.Abs(tf.A) {
		return fmt.Errorf("rasterio: ascii grid requires square cells, got %g x %g", tf.A, -tf.E)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rasterio: creating %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "ncols %d\n", ds.Cols)
	fmt.Fprintf(w, "nrows %d\n", ds.Rows)
	fmt.Fprintf(w, "xllcorner %.10g\n", tf.C)
	fmt.Fprintf(w, "yllcorner %.10g\n", tf.F+tf.E*float64(ds.Rows))
	fmt.Fprintf(w, "cellsize %.10g\n", tf.A)
	if ds.Null != nil {
		fmt.Fprintf(w, "NODATA_value %g\n", *ds.Null)
	}
	for r := 0; r < ds.Rows; r++ {
		for c := 0; c < ds.Cols; c++ {
			if c > 0 {
				w.WriteByte(' ')
			}
			fmt.Fprintf(w, "%g", ds.Values[r*ds.Cols+c])
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("rasterio: writing %s: %w", path, err)
	}
	if ds.CRS != "" {
		if err := os.WriteFile(prjPath(path), []byte(ds.CRS+"\n"), 0o644); err != nil {
			return fmt.Errorf("rasterio: writing projection file: %w", err)
		}
	}
	return nil
}

// ReadASCIIGrid loads an ESRI ASCII grid. Files are decoded as Latin-1,
// which also passes plain ASCII through unchanged.
func ReadASCIIGrid(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rasterio: opening %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)

	var (
		cols, rows       = -1, -1
		xll, yll, cell   float64
		xCenter, yCenter bool
		null             *float64
		vals             []float64
	)

	lineNo := 0
	inHeader := true
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		if inHeader {
			key := strings.ToLower(fields[0])
			isKey := true
			switch key {
			case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
			default:
				isKey = false
			}
			if isKey {
				if len(fields) != 2 {
					return nil, fmt.Errorf("rasterio: %s line %d: header %q needs one value", path, lineNo, key)
				}
				v, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return nil, fmt.Errorf("rasterio: %s line %d: bad %s value %q", path, lineNo, key, fields[1])
				}
				switch key {
				case "ncols":
					cols = int(v)
				case "nrows":
					rows = int(v)
				case "xllcorner":
					xll = v
				case "xllcenter":
					xll = v
					xCenter = true
				case "yllcorner":
					yll = v
				case "yllcenter":
					yll = v
					yCenter = true
				case "cellsize":
					cell = v
				case "nodata_value":
					null = &v
				}
				continue
			}
			if cols < 0 || rows < 0 || cell == 0 {
				return nil, fmt.Errorf("rasterio: %s line %d: data before ncols/nrows/cellsize header", path, lineNo)
			}
			inHeader = false
			vals = make([]float64, 0, rows*cols)
		}

		for _, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("rasterio: %s line %d: bad cell value %q", path, lineNo, tok)
			}
			vals = append(vals, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("rasterio: reading %s: %w", path, err)
	}
	if cols < 0 || rows < 0 {
		return nil, fmt.Errorf("rasterio: %s: missing ncols/nrows header", path)
	}
	if len(vals) != rows*cols {
		return nil, fmt.Errorf("rasterio: %s: expected %d cells, found %d", path, rows*cols, len(vals))
	}

	if xCenter {
		xll -= cell / 2
	}
	if yCenter {
		yll -= cell / 2
	}
	north := yll + cell*float64(rows)

	ds := &Dataset{
		Meta: Meta{
			Bands:     1,
			Rows:      rows,
			Cols:      cols,
			DType:     "float64",
			Null:      null,
			Transform: geo.FromOrigin(xll, north, cell, cell),
		},
		Values: vals,
	}
	if b, err := os.ReadFile(prjPath(path)); err == nil {
		ds.CRS = strings.TrimSpace(string(b))
	}
	if null != nil {
		mask := make([]bool, len(vals))
		any := false
		nv := *null
		for i, v := range vals {
			if v == nv || (math.IsNaN(nv) && math.IsNaN(v)) {
				mask[i] = true
				any = true
			}
		}
		if any {
			ds.Mask = mask
		}
	}
	return ds, nil
}
