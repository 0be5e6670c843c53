package rasterio

import (
	"fmt"
	"math"
	"os"

	"github.com/ctessum/cdf"

	"github.com/rasterkit/rasterkit/internal/geo"
)

// The NetCDF layout: dimensions band, y, x; one variable "values" carrying
// the cells; attributes _FillValue, _Unsigned, and dtype on the variable;
// crs and transform as global attributes. Classic NetCDF has no unsigned
// or 64-bit integer types, so unsigned values are stored two's complement
// in the matching signed type and 64-bit integers are stored as doubles.

const ncValuesVar = "values"

// protoFor returns a zero value of the classic storage type used for a
// dtype, for header declaration.
func protoFor(dtype string) interface{} {
	switch dtype {
	case "bool", "int8", "uint8":
		return []uint8{}
	case "int16", "uint16":
		return []int16{}
	case "int32", "uint32":
		return []int32{}
	case "float32":
		return []float32{}
	default:
		// int64, uint64, float64
		return []float64{}
	}
}

// fillScalar casts a null value into the classic storage scalar for the
// dtype, reinterpreting unsigned values into the signed storage type.
func fillScalar(dtype string, v float64) interface{} {
	switch dtype {
	case "bool", "int8":
		return []uint8{uint8(int8(v))}
	case "uint8":
		return []uint8{uint8(v)}
	case "int16":
		return []int16{int16(v)}
	case "uint16":
		return []int16{int16(uint16(v))}
	case "int32":
		return []int32{int32(v)}
	case "uint32":
		return []int32{int32(uint32(v))}
	case "float32":
		return []float32{float32(v)}
	default:
		return []float64{v}
	}
}

// encodeValues casts float64 values into the classic storage slice for the
// dtype. Unsigned values are reinterpreted into the signed storage type.
func encodeValues(dtype string, vals []float64) interface{} {
	switch dtype {
	case "bool", "int8":
		out := make([]uint8, len(vals))
		for i, v := range vals {
			out[i] = uint8(int8(v))
		}
		return out
	case "uint8":
		out := make([]uint8, len(vals))
		for i, v := range vals {
			out[i] = uint8(v)
		}
		return out
	case "int16":
		out := make([]int16, len(vals))
		for i, v := range vals {
			out[i] = int16(v)
		}
		return out
	case "uint16":
		out := make([]int16, len(vals))
		for i, v := range vals {
			out[i] = int16(uint16(v))
		}
		return out
	case "int32":
		out := make([]int32, len(vals))
		for i, v := range vals {
			out[i] = int32(v)
		}
		return out
	case "uint32":
		out := make([]int32, len(vals))
		for i, v := range vals {
			out[i] = int32(uint32(v))
		}
		return out
	case "float32":
		out := make([]float32, len(vals))
		for i, v := range vals {
			out[i] = float32(v)
		}
		return out
	default:
		out := make([]float64, len(vals))
		copy(out, vals)
		return out
	}
}

func isUnsignedName(dtype string) bool {
	switch dtype {
	case "uint8", "uint16", "uint32", "uint64":
		return true
	}
	return false
}

// WriteNetCDF stores a dataset as a classic NetCDF file. Masked cells must
// already carry the dataset's null value.
func WriteNetCDF(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rasterio: creating %s: %w", path, err)
	}
	defer f.Close()

	h := cdf.NewHeader([]string{"band", "y", "x"}, []int{ds.Bands, ds.Rows, ds.Cols})
	h.AddVariable(ncValuesVar, []string{"band", "y", "x"}, protoFor(ds.DType))
	h.AddAttribute(ncValuesVar, "dtype", ds.DType)
	if isUnsignedName(ds.DType) {
		h.AddAttribute(ncValuesVar, "_Unsigned", "true")
	}
	if ds.Null != nil {
		h.AddAttribute(ncValuesVar, "_FillValue", fillScalar(ds.DType, *ds.Null))
	}
	if ds.CRS != "" {
		h.AddAttribute("", "crs", ds.CRS)
	}
	tf := ds.Transform
	h.AddAttribute("", "transform", []float64{tf.A, tf.B, tf.C, tf.D, tf.E, tf.F})
	h.Define()

	cf, err := cdf.Create(f, h)
	if err != nil {
		return fmt.Errorf("rasterio: writing netcdf header for %s: %w", path, err)
	}
	w := cf.Writer(ncValuesVar, []int{0, 0, 0}, []int{ds.Bands, ds.Rows, ds.Cols})
	if _, err := w.Write(encodeValues(ds.DType, ds.Values)); err != nil {
		return fmt.Errorf("rasterio: writing netcdf values to %s: %w", path, err)
	}
	return nil
}

// ncReader reads windows from an open NetCDF raster.
type ncReader struct {
	f    *os.File
	cf   *cdf.File
	meta Meta
	// unsigned marks storage that must be reinterpreted on read.
	unsigned bool
}

// OpenNetCDF opens a NetCDF raster for windowed reading.
func OpenNetCDF(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rasterio: opening %s: %w", path, err)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("rasterio: reading netcdf header of %s: %w", path, err)
	}
	dims := cf.Header.Lengths(ncValuesVar)
	if len(dims) != 3 {
		f.Close()
		return nil, fmt.Errorf("rasterio: %s: variable %q must have dimensions (band, y, x), got %d dims",
			path, ncValuesVar, len(dims))
	}

	meta := Meta{Bands: dims[0], Rows: dims[1], Cols: dims[2], DType: "float64"}
	if v, ok := cf.Header.GetAttribute(ncValuesVar, "dtype").(string); ok && v != "" {
		meta.DType = v
	}
	unsigned := isUnsignedName(meta.DType)
	if fill := cf.Header.GetAttribute(ncValuesVar, "_FillValue"); fill != nil {
		if nv, ok := attrScalar(fill, unsigned); ok {
			meta.Null = &nv
		}
	}
	if v, ok := cf.Header.GetAttribute("", "crs").(string); ok {
		meta.CRS = v
	}
	if tr, ok := cf.Header.GetAttribute("", "transform").([]float64); ok && len(tr) == 6 {
		meta.Transform = geo.Affine{A: tr[0], B: tr[1], C: tr[2], D: tr[3], E: tr[4], F: tr[5]}
	} else {
		meta.Transform = geo.Identity()
	}

	return &ncReader{f: f, cf: cf, meta: meta, unsigned: unsigned}, nil
}

// attrScalar extracts a numeric attribute value, accepting both scalar and
// single-element slice representations.
func attrScalar(attr interface{}, unsigned bool) (float64, bool) {
	switch a := attr.(type) {
	case int8:
		if unsigned {
			return float64(uint8(a)), true
		}
		return float64(a), true
	case int16:
		if unsigned {
			return float64(uint16(a)), true
		}
		return float64(a), true
	case int32:
		if unsigned {
			return float64(uint32(a)), true
		}
		return float64(a), true
	case float32:
		return float64(a), true
	case float64:
		return a, true
	case []int8:
		if len(a) > 0 {
			return attrScalar(a[0], unsigned)
		}
	case []byte:
		if len(a) > 0 {
			return float64(a[0]), true
		}
	case []int16:
		if len(a) > 0 {
			return attrScalar(a[0], unsigned)
		}
	case []int32:
		if len(a) > 0 {
			return attrScalar(a[0], unsigned)
		}
	case []float32:
		if len(a) > 0 {
			return float64(a[0]), true
		}
	case []float64:
		if len(a) > 0 {
			return a[0], true
		}
	}
	return 0, false
}

func (r *ncReader) Meta() Meta { return r.meta }

func (r *ncReader) ReadWindow(band, row0, col0, rows, cols int, dst []float64, mask []bool) error {
	m := r.meta
	if band < 0 || band >= m.Bands {
		return fmt.Errorf("rasterio: band %d out of range [0, %d)", band, m.Bands)
	}
	if row0 < 0 || col0 < 0 || row0+rows > m.Rows || col0+cols > m.Cols {
		return fmt.Errorf("rasterio: window %dx%d at (%d, %d) outside raster %dx%d",
			rows, cols, row0, col0, m.Rows, m.Cols)
	}
	// The cdf reader yields a flat contiguous range between its corners, not
	// a strided hyperslab, so fetch the window one row at a time.
	for ri := 0; ri < rows; ri++ {
		rd := r.cf.Reader(ncValuesVar, []int{band, row0 + ri, col0}, []int{band, row0 + ri, col0 + cols - 1})
		buf := rd.Zero(cols)
		if _, err := rd.Read(buf); err != nil {
			return fmt.Errorf("rasterio: reading netcdf window: %w", err)
		}
		if err := decodeInto(dst[ri*cols:(ri+1)*cols], buf, r.unsigned); err != nil {
			return err
		}
	}
	if mask != nil {
		fillMask(mask, dst, m.Null)
	}
	return nil
}

func (r *ncReader) Close() error { return r.f.Close() }

// decodeInto widens a typed storage slice into float64 values.
func decodeInto(dst []float64, buf interface{}, unsigned bool) error {
	switch b := buf.(type) {
	case []int8:
		for i, v := range b {
			if unsigned {
				dst[i] = float64(uint8(v))
			} else {
				dst[i] = float64(v)
			}
		}
	case []byte:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []int16:
		for i, v := range b {
			if unsigned {
				dst[i] = float64(uint16(v))
			} else {
				dst[i] = float64(v)
			}
		}
	case []int32:
		for i, v := range b {
			if unsigned {
				dst[i] = float64(uint32(v))
			} else {
				dst[i] = float64(v)
			}
		}
	case []float32:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []float64:
		copy(dst, b)
	default:
		return fmt.Errorf("rasterio: unsupported netcdf storage type %T", buf)
	}
	return nil
}

// fillMask marks cells equal to the null value (or NaN) as masked.
func fillMask(mask []bool, vals []float64, null *float64) {
	if null == nil {
		for i := range mask {
			mask[i] = false
		}
		return
	}
	nv := *null
	if math.IsNaN(nv) {
		for i, v := range vals {
			mask[i] = math.IsNaN(v)
		}
		return
	}
	for i, v := range vals {
		mask[i] = v == nv
	}
}
