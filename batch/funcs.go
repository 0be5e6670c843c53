package batch

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/rasterkit/rasterkit"
)

// Capsule types carry raster handles and focal footprints through cty
// expressions.
var (
	rasterType = cty.Capsule("raster", reflect.TypeOf(rasterkit.Raster{}))
	windowType = cty.Capsule("window", reflect.TypeOf(rasterkit.Window{}))
	kernelType = cty.Capsule("kernel", reflect.TypeOf(rasterkit.Kernel{}))
)

func rasterVal(r *rasterkit.Raster) cty.Value { return cty.CapsuleVal(rasterType, r) }

func rasterArg(fn string, pos int, v cty.Value) (*rasterkit.Raster, error) {
	if v.Type().Equals(rasterType) {
		return v.EncapsulatedValue().(*rasterkit.Raster), nil
	}
	return nil, fmt.Errorf("%s: argument %d must be a raster, got %s", fn, pos+1, v.Type().FriendlyName())
}

// operandArg accepts a raster capsule or anything convertible to a number,
// matching the operand forms the Raster arithmetic methods take.
func operandArg(fn string, pos int, v cty.Value) (any, error) {
	if v.Type().Equals(rasterType) {
		return v.EncapsulatedValue().(*rasterkit.Raster), nil
	}
	f, err := numberArg(fn, pos, v)
	if err != nil {
		return nil, fmt.Errorf("%s: argument %d must be a raster or a number, got %s",
			fn, pos+1, v.Type().FriendlyName())
	}
	return f, nil
}

func numberArg(fn string, pos int, v cty.Value) (float64, error) {
	n, err := convert.Convert(v, cty.Number)
	if err != nil || n.IsNull() {
		return 0, fmt.Errorf("%s: argument %d must be a number, got %s", fn, pos+1, v.Type().FriendlyName())
	}
	f, _ := n.AsBigFloat().Float64()
	return f, nil
}

func intArg(fn string, pos int, v cty.Value) (int, error) {
	f, err := numberArg(fn, pos, v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s: argument %d must be a whole number, got %v", fn, pos+1, f)
	}
	return int(f), nil
}

func stringArg(fn string, pos int, v cty.Value) (string, error) {
	s, err := convert.Convert(v, cty.String)
	if err != nil || s.IsNull() {
		return "", fmt.Errorf("%s: argument %d must be a string, got %s", fn, pos+1, v.Type().FriendlyName())
	}
	return s.AsString(), nil
}

func boolArg(fn string, pos int, v cty.Value) (bool, error) {
	b, err := convert.Convert(v, cty.Bool)
	if err != nil || b.IsNull() {
		return false, fmt.Errorf("%s: argument %d must be a bool, got %s", fn, pos+1, v.Type().FriendlyName())
	}
	return b.True(), nil
}

// rasterBinary wraps a Raster method taking a raster-or-number operand.
func rasterBinary(name string, apply func(*rasterkit.Raster, any) (*rasterkit.Raster, error)) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "a", Type: cty.DynamicPseudoType},
			{Name: "b", Type: cty.DynamicPseudoType},
		},
		Type: function.StaticReturnType(rasterType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			r, err := rasterArg(name, 0, args[0])
			if err != nil {
				return cty.NilVal, err
			}
			op, err := operandArg(name, 1, args[1])
			if err != nil {
				return cty.NilVal, err
			}
			out, err := apply(r, op)
			if err != nil {
				return cty.NilVal, err
			}
			return rasterVal(out), nil
		},
	})
}

// rasterUnary wraps an infallible single-raster method.
func rasterUnary(name string, apply func(*rasterkit.Raster) *rasterkit.Raster) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "raster", Type: cty.DynamicPseudoType}},
		Type:   function.StaticReturnType(rasterType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			r, err := rasterArg(name, 0, args[0])
			if err != nil {
				return cty.NilVal, err
			}
			return rasterVal(apply(r)), nil
		},
	})
}

// rasterValueFn wraps a method taking one numeric argument.
func rasterValueFn(name string, apply func(*rasterkit.Raster, float64) (*rasterkit.Raster, error)) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "raster", Type: cty.DynamicPseudoType},
			{Name: "value", Type: cty.DynamicPseudoType},
		},
		Type: function.StaticReturnType(rasterType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			r, err := rasterArg(name, 0, args[0])
			if err != nil {
				return cty.NilVal, err
			}
			v, err := numberArg(name, 1, args[1])
			if err != nil {
				return cty.NilVal, err
			}
			out, err := apply(r, v)
			if err != nil {
				return cty.NilVal, err
			}
			return rasterVal(out), nil
		},
	})
}

// pipelineFunctions builds the function table available to pipeline
// expressions. ctx flows into the functions that materialize cells
// (reproject) so cancellation reaches them.
func pipelineFunctions(ctx context.Context) map[string]function.Function {
	fns := map[string]function.Function{
		"add":      rasterBinary("add", (*rasterkit.Raster).Add),
		"subtract": rasterBinary("subtract", (*rasterkit.Raster).Sub),
		"multiply": rasterBinary("multiply", (*rasterkit.Raster).Mul),
		"divide":   rasterBinary("divide", (*rasterkit.Raster).Div),
		"power":    rasterBinary("power", (*rasterkit.Raster).Pow),
		"minimum":  rasterBinary("minimum", (*rasterkit.Raster).Minimum),
		"maximum":  rasterBinary("maximum", (*rasterkit.Raster).Maximum),

		"abs":   rasterUnary("abs", (*rasterkit.Raster).Abs),
		"sqrt":  rasterUnary("sqrt", (*rasterkit.Raster).Sqrt),
		"exp":   rasterUnary("exp", (*rasterkit.Raster).Exp),
		"log":   rasterUnary("log", (*rasterkit.Raster).Log),
		"log10": rasterUnary("log10", (*rasterkit.Raster).Log10),

		"burn_mask":    rasterUnary("burn_mask", (*rasterkit.Raster).BurnMask),
		"set_null":     rasterValueFn("set_null", (*rasterkit.Raster).SetNullValue),
		"replace_null": rasterValueFn("replace_null", (*rasterkit.Raster).ReplaceNull),

		"band":           bandFn(),
		"band_concat":    bandConcatFn(),
		"astype":         astypeFn(),
		"round":          roundFn(),
		"where":          whereFn(),
		"remap_range":    remapRangeFn(),
		"reclassify":     reclassifyFn(),
		"focal":          focalFn(),
		"correlate":      kernelOpFn("correlate", (*rasterkit.Raster).Correlate),
		"convolve":       kernelOpFn("convolve", (*rasterkit.Raster).Convolve),
		"reproject":      reprojectFn(ctx),
		"window_rect":    windowFn("window_rect", rasterkit.RectWindow),
		"window_circle":  windowCircleFn(),
		"window_annulus": windowFn("window_annulus", rasterkit.AnnulusWindow),
		"kernel":         kernelFn(),
	}
	return fns
}

func bandFn() function.Function {
	return function.New(&function.Spec{
		Params:   []function.Parameter{{Name: "raster", Type: cty.DynamicPseudoType}},
		VarParam: &function.Parameter{Name: "bands", Type: cty.Number},
		Type:     function.StaticReturnType(rasterType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			r, err := rasterArg("band", 0, args[0])
			if err != nil {
				return cty.NilVal, err
			}
			if len(args) < 2 {
				return cty.NilVal, fmt.Errorf("band: at least one band number is required")
			}
			bands := make([]int, 0, len(args)-1)
			for i, a := range args[1:] {
				b, err := intArg("band", i+1, a)
				if err != nil {
					return cty.NilVal, err
				}
				bands = append(bands, b)
			}
			out, err := r.GetBands(bands...)
			if err != nil {
				return cty.NilVal, err
			}
			return rasterVal(out), nil
		},
	})
}

func bandConcatFn() function.Function {
	return function.New(&function.Spec{
		Params:   []function.Parameter{{Name: "first", Type: cty.DynamicPseudoType}},
		VarParam: &function.Parameter{Name: "rest", Type: cty.DynamicPseudoType},
		Type:     function.StaticReturnType(rasterType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			rs := make([]*rasterkit.Raster, len(args))
			for i, a := range args {
				r, err := rasterArg("band_concat", i, a)
				if err != nil {
					return cty.NilVal, err
				}
				rs[i] = r
			}
			out, err := rasterkit.BandConcat(rs...)
			if err != nil {
				return cty.NilVal, err
			}
			return rasterVal(out), nil
		},
	})
}

func astypeFn() function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "raster", Type: cty.DynamicPseudoType},
			{Name: "dtype", Type: cty.String},
		},
		Type: function.StaticReturnType(rasterType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			r, err := rasterArg("astype", 0, args[0])
			if err != nil {
				return cty.NilVal, err
			}
			name, err := stringArg("astype", 1, args[1])
			if err != nil {
				return cty.NilVal, err
			}
			dt, err := rasterkit.ParseDType(name)
			if err != nil {
				return cty.NilVal, err
			}
			out, err := r.AsType(dt)
			if err != nil {
				return cty.NilVal, err
			}
			return rasterVal(out), nil
		},
	})
}

func roundFn() function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "raster", Type: cty.DynamicPseudoType},
			{Name: "decimals", Type: cty.Number},
		},
		Type: function.StaticReturnType(rasterType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			r, err := rasterArg("round", 0, args[0])
			if err != nil {
				return cty.NilVal, err
			}
			d, err := intArg("round", 1, args[1])
			if err != nil {
				return cty.NilVal, err
			}
			return rasterVal(r.Round(d)), nil
		},
	})
}

func whereFn() function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "raster", Type: cty.DynamicPseudoType},
			{Name: "cond", Type: cty.DynamicPseudoType},
			{Name: "other", Type: cty.DynamicPseudoType},
		},
		Type: function.StaticReturnType(rasterType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			r, err := rasterArg("where", 0, args[0])
			if err != nil {
				return cty.NilVal, err
			}
			cond, err := rasterArg("where", 1, args[1])
			if err != nil {
				return cty.NilVal, err
			}
			other, err := operandArg("where", 2, args[2])
			if err != nil {
				return cty.NilVal, err
			}
			out, err := r.Where(cond, other)
			if err != nil {
				return cty.NilVal, err
			}
			return rasterVal(out), nil
		},
	})
}

// remapRangeFn maps ranges of values: remap_range(r, [[0, 10, 1], [10, 20,
// null]], "left"). Each mapping is [min, max, new] with null meaning "map to
// the null value"; the optional trailing argument selects endpoint
// inclusivity (left, right, both, none).
func remapRangeFn() function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "raster", Type: cty.DynamicPseudoType},
			{Name: "mappings", Type: cty.DynamicPseudoType},
		},
		VarParam: &function.Parameter{Name: "inclusivity", Type: cty.String},
		Type:     function.StaticReturnType(rasterType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			r, err := rasterArg("remap_range", 0, args[0])
			if err != nil {
				return cty.NilVal, err
			}
			if !args[1].CanIterateElements() {
				return cty.NilVal, fmt.Errorf("remap_range: mappings must be a list of [min, max, new] triples")
			}
			var mappings []rasterkit.RangeMapping
			for i, mv := range args[1].AsValueSlice() {
				if !mv.CanIterateElements() {
					return cty.NilVal, fmt.Errorf("remap_range: mapping %d must be a [min, max, new] triple", i)
				}
				parts := mv.AsValueSlice()
				if len(parts) != 3 {
					return cty.NilVal, fmt.Errorf("remap_range: mapping %d has %d elements, want 3", i, len(parts))
				}
				lo, err := numberArg("remap_range", 1, parts[0])
				if err != nil {
					return cty.NilVal, fmt.Errorf("remap_range: mapping %d: %w", i, err)
				}
				hi, err := numberArg("remap_range", 1, parts[1])
				if err != nil {
					return cty.NilVal, fmt.Errorf("remap_range: mapping %d: %w", i, err)
				}
				m := rasterkit.RangeMapping{Min: lo, Max: hi}
				if !parts[2].IsNull() {
					nv, err := numberArg("remap_range", 1, parts[2])
					if err != nil {
						return cty.NilVal, fmt.Errorf("remap_range: mapping %d: %w", i, err)
					}
					m.New = &nv
				}
				mappings = append(mappings, m)
			}
			inc := rasterkit.IncLeft
			if len(args) > 2 {
				name, err := stringArg("remap_range", 2, args[2])
				if err != nil {
					return cty.NilVal, err
				}
				inc, err = parseInclusivity(name)
				if err != nil {
					return cty.NilVal, err
				}
			}
			out, err := r.RemapRange(mappings, inc)
			if err != nil {
				return cty.NilVal, err
			}
			return rasterVal(out), nil
		},
	})
}

func parseInclusivity(name string) (rasterkit.Inclusivity, error) {
	switch name {
	case "left":
		return rasterkit.IncLeft, nil
	case "right":
		return rasterkit.IncRight, nil
	case "both":
		return rasterkit.IncBoth, nil
	case "none":
		return rasterkit.IncNone, nil
	}
	return 0, fmt.Errorf("remap_range: unknown inclusivity %q (want left, right, both or none)", name)
}

// reclassifyFn remaps exact values: reclassify(r, { "1" = 10, "2" = 20 },
// true). Keys are stringified source values; the optional trailing bool
// sends unmapped cells to null.
func reclassifyFn() function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "raster", Type: cty.DynamicPseudoType},
			{Name: "mapping", Type: cty.DynamicPseudoType},
		},
		VarParam: &function.Parameter{Name: "unmapped_to_null", Type: cty.Bool},
		Type:     function.StaticReturnType(rasterType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			r, err := rasterArg("reclassify", 0, args[0])
			if err != nil {
				return cty.NilVal, err
			}
			mt := args[1].Type()
			if !mt.IsObjectType() && !mt.IsMapType() {
				return cty.NilVal, fmt.Errorf("reclassify: mapping must be an object of value = value entries")
			}
			m := make(map[float64]float64)
			for key, val := range args[1].AsValueMap() {
				from, err := strconv.ParseFloat(key, 64)
				if err != nil {
					return cty.NilVal, fmt.Errorf("reclassify: key %q is not numeric", key)
				}
				to, err := numberArg("reclassify", 1, val)
				if err != nil {
					return cty.NilVal, fmt.Errorf("reclassify: value for key %q: %w", key, err)
				}
				m[from] = to
			}
			unmapped := false
			if len(args) > 2 {
				unmapped, err = boolArg("reclassify", 2, args[2])
				if err != nil {
					return cty.NilVal, err
				}
			}
			out, err := r.Reclassify(rasterkit.ReclassFromMap(m), unmapped)
			if err != nil {
				return cty.NilVal, err
			}
			return rasterVal(out), nil
		},
	})
}

// focalFn computes a windowed statistic. The window is given either as a
// capsule from window_rect/window_circle/window_annulus or as width and
// height of a rectangle: focal(r, "mean", 3, 3).
func focalFn() function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "raster", Type: cty.DynamicPseudoType},
			{Name: "stat", Type: cty.String},
		},
		VarParam: &function.Parameter{Name: "window", Type: cty.DynamicPseudoType},
		Type:     function.StaticReturnType(rasterType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			r, err := rasterArg("focal", 0, args[0])
			if err != nil {
				return cty.NilVal, err
			}
			name, err := stringArg("focal", 1, args[1])
			if err != nil {
				return cty.NilVal, err
			}
			stat, err := rasterkit.ParseFocalStat(name)
			if err != nil {
				return cty.NilVal, err
			}
			var w rasterkit.Window
			switch len(args) {
			case 3:
				if !args[2].Type().Equals(windowType) {
					return cty.NilVal, fmt.Errorf("focal: argument 3 must be a window (or pass width and height)")
				}
				w = *args[2].EncapsulatedValue().(*rasterkit.Window)
			case 4:
				width, err := intArg("focal", 2, args[2])
				if err != nil {
					return cty.NilVal, err
				}
				height, err := intArg("focal", 3, args[3])
				if err != nil {
					return cty.NilVal, err
				}
				w, err = rasterkit.RectWindow(width, height)
				if err != nil {
					return cty.NilVal, err
				}
			default:
				return cty.NilVal, fmt.Errorf("focal: want a window or width and height after the stat")
			}
			out, err := r.Focal(stat, w)
			if err != nil {
				return cty.NilVal, err
			}
			return rasterVal(out), nil
		},
	})
}

// kernelOpFn wraps Correlate/Convolve. Optional trailing arguments select
// the boundary mode ("constant", "reflect", "nearest", "wrap") and the
// constant fill value: correlate(r, kernel([[...]]), "reflect").
func kernelOpFn(name string, apply func(*rasterkit.Raster, rasterkit.Kernel, rasterkit.BoundaryMode, float64) (*rasterkit.Raster, error)) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "raster", Type: cty.DynamicPseudoType},
			{Name: "kernel", Type: cty.DynamicPseudoType},
		},
		VarParam: &function.Parameter{Name: "opts", Type: cty.DynamicPseudoType},
		Type:     function.StaticReturnType(rasterType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			r, err := rasterArg(name, 0, args[0])
			if err != nil {
				return cty.NilVal, err
			}
			if !args[1].Type().Equals(kernelType) {
				return cty.NilVal, fmt.Errorf("%s: argument 2 must be a kernel", name)
			}
			k := *args[1].EncapsulatedValue().(*rasterkit.Kernel)
			mode := rasterkit.BoundaryConstant
			cval := 0.0
			if len(args) > 2 {
				bname, err := stringArg(name, 2, args[2])
				if err != nil {
					return cty.NilVal, err
				}
				mode, err = rasterkit.ParseBoundary(bname)
				if err != nil {
					return cty.NilVal, err
				}
			}
			if len(args) > 3 {
				cval, err = numberArg(name, 3, args[3])
				if err != nil {
					return cty.NilVal, err
				}
			}
			out, err := apply(r, k, mode, cval)
			if err != nil {
				return cty.NilVal, err
			}
			return rasterVal(out), nil
		},
	})
}

// reprojectFn warps a raster: reproject(r, { crs = "EPSG:3857", resolution
// = [30, 30], method = "bilinear" }). At least one of crs and resolution
// must be present.
func reprojectFn(ctx context.Context) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "raster", Type: cty.DynamicPseudoType},
			{Name: "opts", Type: cty.DynamicPseudoType},
		},
		Type: function.StaticReturnType(rasterType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			r, err := rasterArg("reproject", 0, args[0])
			if err != nil {
				return cty.NilVal, err
			}
			ot := args[1].Type()
			if !ot.IsObjectType() && !ot.IsMapType() {
				return cty.NilVal, fmt.Errorf("reproject: argument 2 must be an options object")
			}
			var opts []rasterkit.WarpOption
			for key, val := range args[1].AsValueMap() {
				switch key {
				case "crs":
					crs, err := stringArg("reproject", 1, val)
					if err != nil {
						return cty.NilVal, err
					}
					opts = append(opts, rasterkit.WarpDstCRS(crs))
				case "resolution":
					if !val.CanIterateElements() {
						return cty.NilVal, fmt.Errorf("reproject: resolution must be [xres, yres]")
					}
					parts := val.AsValueSlice()
					if len(parts) != 2 {
						return cty.NilVal, fmt.Errorf("reproject: resolution must be [xres, yres], got %d values", len(parts))
					}
					xres, err := numberArg("reproject", 1, parts[0])
					if err != nil {
						return cty.NilVal, err
					}
					yres, err := numberArg("reproject", 1, parts[1])
					if err != nil {
						return cty.NilVal, err
					}
					opts = append(opts, rasterkit.WarpResolution(xres, yres))
				case "method":
					mname, err := stringArg("reproject", 1, val)
					if err != nil {
						return cty.NilVal, err
					}
					m, err := rasterkit.ParseResample(mname)
					if err != nil {
						return cty.NilVal, err
					}
					opts = append(opts, rasterkit.WarpResample(m))
				default:
					return cty.NilVal, fmt.Errorf("reproject: unknown option %q (want crs, resolution or method)", key)
				}
			}
			out, err := r.Reproject(ctx, opts...)
			if err != nil {
				return cty.NilVal, err
			}
			return rasterVal(out), nil
		},
	})
}

// windowFn wraps the two-integer window builders.
func windowFn(name string, build func(a, b int) (rasterkit.Window, error)) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "a", Type: cty.Number},
			{Name: "b", Type: cty.Number},
		},
		Type: function.StaticReturnType(windowType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			a, err := intArg(name, 0, args[0])
			if err != nil {
				return cty.NilVal, err
			}
			b, err := intArg(name, 1, args[1])
			if err != nil {
				return cty.NilVal, err
			}
			w, err := build(a, b)
			if err != nil {
				return cty.NilVal, err
			}
			return cty.CapsuleVal(windowType, &w), nil
		},
	})
}

func windowCircleFn() function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "radius", Type: cty.Number}},
		Type:   function.StaticReturnType(windowType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			radius, err := intArg("window_circle", 0, args[0])
			if err != nil {
				return cty.NilVal, err
			}
			w, err := rasterkit.CircleWindow(radius)
			if err != nil {
				return cty.NilVal, err
			}
			return cty.CapsuleVal(windowType, &w), nil
		},
	})
}

// kernelFn builds correlation weights from nested number lists:
// kernel([[0, 1, 0], [1, 1, 1], [0, 1, 0]]).
func kernelFn() function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "weights", Type: cty.DynamicPseudoType}},
		Type:   function.StaticReturnType(kernelType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if !args[0].CanIterateElements() {
				return cty.NilVal, fmt.Errorf("kernel: weights must be a list of number rows")
			}
			var weights [][]float64
			for i, rv := range args[0].AsValueSlice() {
				if !rv.CanIterateElements() {
					return cty.NilVal, fmt.Errorf("kernel: row %d must be a list of numbers", i)
				}
				var row []float64
				for j, cv := range rv.AsValueSlice() {
					f, err := numberArg("kernel", 0, cv)
					if err != nil {
						return cty.NilVal, fmt.Errorf("kernel: row %d, column %d: %w", i, j, err)
					}
					row = append(row, f)
				}
				weights = append(weights, row)
			}
			k, err := rasterkit.NewKernel(weights)
			if err != nil {
				return cty.NilVal, err
			}
			return cty.CapsuleVal(kernelType, &k), nil
		},
	})
}
