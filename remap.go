package rasterkit

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rasterkit/rasterkit/internal/grid"
)

// Inclusivity selects which endpoints of a RangeMapping contain values.
type Inclusivity uint8

const (
	// IncLeft includes the minimum only: [min, max).
	IncLeft Inclusivity = iota

	// IncRight includes the maximum only: (min, max].
	IncRight

	// IncBoth includes both endpoints: [min, max].
	IncBoth

	// IncNone excludes both endpoints: (min, max).
	IncNone
)

func (inc Inclusivity) contains(v, lo, hi float64) bool {
	switch inc {
	case IncLeft:
		return v >= lo && v < hi
	case IncRight:
		return v > lo && v <= hi
	case IncBoth:
		return v >= lo && v <= hi
	default:
		return v > lo && v < hi
	}
}

// RangeMapping maps values inside [Min, Max] (subject to an Inclusivity) to
// New. A nil New maps the range to the null value.
type RangeMapping struct {
	Min, Max float64
	New      *float64
}

// RemapRange maps ranges of values to new values. Earlier mappings win on
// overlap; unmapped cells pass through unchanged. The dtype promotes to hold
// the mapped outputs. A mapping with nil New forces a null value on the
// result: masked rasters keep theirs, unmasked rasters gain the dtype
// default.
func (r *Raster) RemapRange(mappings []RangeMapping, inc Inclusivity) (*Raster, error) {
	if len(mappings) == 0 {
		return nil, errors.New("rasterkit: RemapRange: no mappings")
	}
	if inc > IncNone {
		return nil, fmt.Errorf("rasterkit: RemapRange: invalid inclusivity %d", inc)
	}
	dt := r.dtype
	anyNull := false
	for i, m := range mappings {
		if math.IsNaN(m.Min) || math.IsNaN(m.Max) || m.Min > m.Max {
			return nil, fmt.Errorf("rasterkit: RemapRange: mapping %d has min %v > max %v",
				i, m.Min, m.Max)
		}
		if m.New == nil {
			anyNull = true
		} else {
			dt = PromoteForValue(dt, *m.New)
		}
	}
	null := r.null
	if null == nil && anyNull {
		n := dt.DefaultNull()
		null = &n
	}
	nullV := math.NaN()
	if null != nil {
		nullV = *null
	}

	ms := make([]RangeMapping, len(mappings))
	copy(ms, mappings)
	src := &mapTileSource{inner: r.src, lay: r.layout, fn: func(in grid.Tile) (grid.Tile, error) {
		out := grid.NewTile(in.Band, in.Spec)
		copy(out.Data, in.Data)
		var mask []bool
		if in.Mask != nil || anyNull {
			mask = out.EnsureMask()
			if in.Mask != nil {
				copy(mask, in.Mask)
			}
		}
		for i, v := range in.Data {
			if in.Mask != nil && in.Mask[i] {
				continue
			}
			for _, m := range ms {
				if !inc.contains(v, m.Min, m.Max) {
					continue
				}
				if m.New == nil {
					out.Data[i] = nullV
					mask[i] = true
				} else {
					out.Data[i] = *m.New
				}
				break
			}
		}
		out.Normalize()
		return out, nil
	}}
	return derive(src, r.shape, dt, null, r), nil
}

// ReclassMap is an exact-value remapping table with optional null
// participation on either side.
type ReclassMap struct {
	mapping  map[float64]float64
	toNull   map[float64]bool
	fromNull *float64 // null cells map to this value
}

// ReclassFromMap builds a reclassification table from a plain value map.
func ReclassFromMap(m map[float64]float64) ReclassMap {
	mapping := make(map[float64]float64, len(m))
	for k, v := range m {
		mapping[k] = v
	}
	return ReclassMap{mapping: mapping}
}

// ReclassFromFile parses a reclassification table from an ASCII remap file:
// one "from:to" pair per line, surrounding whitespace ignored, blank lines
// and lines starting with # skipped. Either side may be the keyword NoData
// (case-insensitive) to map from or to the null value. Later duplicate
// sources override earlier ones.
func ReclassFromFile(path string) (ReclassMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReclassMap{}, fmt.Errorf("rasterkit: reclass file: %w", err)
	}
	defer f.Close()

	m := ReclassMap{
		mapping: make(map[float64]float64),
		toNull:  make(map[float64]bool),
	}
	sc := bufio.NewScanner(f)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		from, to, ok := strings.Cut(line, ":")
		if !ok {
			return ReclassMap{}, fmt.Errorf("rasterkit: %s:%d: expected \"from:to\", got %q",
				path, lineno, line)
		}
		from = strings.TrimSpace(from)
		to = strings.TrimSpace(to)
		fromNull := strings.EqualFold(from, "NoData")
		toNull := strings.EqualFold(to, "NoData")
		switch {
		case fromNull && toNull:
			// Null stays null.
		case fromNull:
			v, err := strconv.ParseFloat(to, 64)
			if err != nil {
				return ReclassMap{}, fmt.Errorf("rasterkit: %s:%d: bad target value %q", path, lineno, to)
			}
			m.fromNull = &v
		case toNull:
			k, err := strconv.ParseFloat(from, 64)
			if err != nil {
				return ReclassMap{}, fmt.Errorf("rasterkit: %s:%d: bad source value %q", path, lineno, from)
			}
			m.toNull[k] = true
			delete(m.mapping, k)
		default:
			k, err := strconv.ParseFloat(from, 64)
			if err != nil {
				return ReclassMap{}, fmt.Errorf("rasterkit: %s:%d: bad source value %q", path, lineno, from)
			}
			v, err := strconv.ParseFloat(to, 64)
			if err != nil {
				return ReclassMap{}, fmt.Errorf("rasterkit: %s:%d: bad target value %q", path, lineno, to)
			}
			m.mapping[k] = v
			delete(m.toNull, k)
		}
	}
	if err := sc.Err(); err != nil {
		return ReclassMap{}, fmt.Errorf("rasterkit: reclass file: %w", err)
	}
	return m, nil
}

// Reclassify maps exact cell values through the table. Cells the table maps
// to NoData become masked; with unmappedToNull, cells the table does not
// cover become masked as well. A NoData source entry fills currently masked
// cells and requires the raster to have a null value.
func (r *Raster) Reclassify(m ReclassMap, unmappedToNull bool) (*Raster, error) {
	if len(m.mapping) == 0 && len(m.toNull) == 0 && m.fromNull == nil {
		return nil, errors.New("rasterkit: Reclassify: empty mapping")
	}
	if m.fromNull != nil && !r.Masked() {
		return nil, fmt.Errorf("rasterkit: Reclassify: mapping from NoData: %w", ErrNoNullValue)
	}
	dt := r.dtype
	keys := make([]float64, 0, len(m.mapping))
	for k := range m.mapping {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	for _, k := range keys {
		dt = PromoteForValue(dt, m.mapping[k])
	}
	if m.fromNull != nil {
		dt = PromoteForValue(dt, *m.fromNull)
	}

	producesNull := len(m.toNull) > 0 || unmappedToNull
	consumesMask := m.fromNull != nil && len(m.toNull) == 0 && !unmappedToNull
	var null *float64
	switch {
	case producesNull:
		if r.null != nil && dt.CanRepresent(*r.null) {
			n := *r.null
			null = &n
		} else {
			n := dt.DefaultNull()
			null = &n
		}
	case consumesMask:
		null = nil
	default:
		null = r.null
	}
	nullV := math.NaN()
	if null != nil {
		nullV = *null
	}

	src := &mapTileSource{inner: r.src, lay: r.layout, fn: func(in grid.Tile) (grid.Tile, error) {
		out := grid.NewTile(in.Band, in.Spec)
		mask := out.EnsureMask()
		if in.Mask != nil {
			copy(mask, in.Mask)
		}
		for i, v := range in.Data {
			if mask[i] {
				if m.fromNull != nil {
					out.Data[i] = *m.fromNull
					mask[i] = false
				} else {
					out.Data[i] = v
				}
				continue
			}
			switch {
			case m.toNull[v]:
				out.Data[i] = nullV
				mask[i] = true
			default:
				if nv, ok := m.mapping[v]; ok {
					out.Data[i] = nv
				} else if unmappedToNull {
					out.Data[i] = nullV
					mask[i] = true
				} else {
					out.Data[i] = v
				}
			}
		}
		out.Normalize()
		return out, nil
	}}
	return derive(src, r.shape, dt, null, r), nil
}

// Round rounds values to the given number of decimal places using half-to-
// even rounding. Negative decimals round to powers of ten. The mask and
// dtype are unchanged.
func (r *Raster) Round(decimals int) *Raster {
	if !r.dtype.IsFloat() && decimals >= 0 {
		return r
	}
	scale := math.Pow(10, float64(decimals))
	return r.unary(r.dtype, false, 0, func(v float64) float64 {
		return math.RoundToEven(v*scale) / scale
	})
}

// AsType casts the raster to a new dtype, warning when the null value must
// be replaced.
func (r *Raster) AsType(dt DType) (*Raster, error) {
	return r.AsTypeWarn(dt, true)
}

// AsTypeWarn casts the raster to a new dtype. Values clamp to the target
// range and fractions round half to even. When the null value is not
// exactly representable in dt it is replaced with dt's default null (logged
// at warn level unless warn is false) and masked cells are re-burned with
// the new null.
func (r *Raster) AsTypeWarn(dt DType, warn bool) (*Raster, error) {
	if dt == DTypeUnknown {
		return nil, errors.New("rasterkit: AsType: unknown dtype")
	}
	if dt == r.dtype {
		return r, nil
	}
	var null *float64
	if r.null != nil {
		if dt.CanRepresent(*r.null) {
			n := CastValue(dt, *r.null)
			null = &n
		} else {
			n := dt.DefaultNull()
			null = &n
			if warn {
				Logger().Warn("null value not representable after cast, using dtype default",
					"from", r.dtype.String(), "to", dt.String(), "null", n)
			}
		}
	}
	nullV := 0.0
	if null != nil {
		nullV = *null
	}
	src := &mapTileSource{inner: r.src, lay: r.layout, fn: func(in grid.Tile) (grid.Tile, error) {
		out := grid.NewTile(in.Band, in.Spec)
		for i, v := range in.Data {
			out.Data[i] = CastValue(dt, v)
		}
		if in.Mask != nil {
			mask := out.EnsureMask()
			copy(mask, in.Mask)
			for i, masked := range mask {
				if masked {
					out.Data[i] = nullV
				}
			}
		}
		return out, nil
	}}
	return derive(src, r.shape, dt, null, r), nil
}
