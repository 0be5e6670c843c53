package rasterkit

import (
	"fmt"
	"math"

	"github.com/rasterkit/rasterkit/internal/grid"
)

// Bandwise wraps per-band scalars for elementwise operations: value i
// applies to band i+1. The slice length must equal the raster's band count.
type Bandwise []float64

// operand is a resolved right-hand side of an elementwise operation.
type operand struct {
	src     source
	raster  *Raster   // set when the operand is a raster
	scalar  *float64  // set when the operand is a single scalar
	perBand []float64 // set when the operand is Bandwise
	slice   []float64 // set when the operand is a raw value slice
}

// resolveOperand normalizes an operation argument into a tile source
// aligned with r's layout. Accepted forms: *Raster, numeric scalars,
// Bandwise per-band scalars, and []float64 covering one band plane or the
// full cube.
func (r *Raster) resolveOperand(opName string, v any) (operand, error) {
	plane := r.shape.Rows * r.shape.Cols
	switch x := v.(type) {
	case *Raster:
		if x == nil {
			return operand{}, fmt.Errorf("rasterkit: %s: nil raster operand", opName)
		}
		if x.shape.Rows != r.shape.Rows || x.shape.Cols != r.shape.Cols {
			return operand{}, fmt.Errorf("rasterkit: %s: shape mismatch: %s vs %s",
				opName, r.shape, x.shape)
		}
		if x.shape.Bands != r.shape.Bands && x.shape.Bands != 1 && r.shape.Bands != 1 {
			return operand{}, fmt.Errorf("rasterkit: %s: cannot broadcast %d bands against %d",
				opName, x.shape.Bands, r.shape.Bands)
		}
		return operand{src: alignLayout(x, r.layout), raster: x}, nil
	case float64:
		return operand{src: &constSource{value: x, nb: 1, lay: r.layout}, scalar: &x}, nil
	case float32:
		f := float64(x)
		return operand{src: &constSource{value: f, nb: 1, lay: r.layout}, scalar: &f}, nil
	case int:
		f := float64(x)
		return operand{src: &constSource{value: f, nb: 1, lay: r.layout}, scalar: &f}, nil
	case int64:
		f := float64(x)
		return operand{src: &constSource{value: f, nb: 1, lay: r.layout}, scalar: &f}, nil
	case Bandwise:
		if len(x) != r.shape.Bands {
			return operand{}, fmt.Errorf("rasterkit: %s: %d bandwise values for %d bands",
				opName, len(x), r.shape.Bands)
		}
		vals := make([]float64, len(x))
		copy(vals, x)
		return operand{src: &bandValueSource{vals: vals, lay: r.layout}, perBand: vals}, nil
	case []float64:
		var nb int
		switch len(x) {
		case plane:
			nb = 1
		case r.shape.Bands * plane:
			nb = r.shape.Bands
		default:
			return operand{}, fmt.Errorf("rasterkit: %s: slice of %d values, want %d or %d",
				opName, len(x), plane, r.shape.Bands*plane)
		}
		vals := make([]float64, len(x))
		copy(vals, x)
		return operand{src: &cubeSource{data: vals, nb: nb, lay: r.layout}, slice: vals}, nil
	default:
		return operand{}, fmt.Errorf("rasterkit: %s: unsupported operand type %T", opName, v)
	}
}

// promoteWith returns the numpy-style promotion of r's dtype with the
// operand: rasters promote by dtype, scalars by value, slices as Float64.
func (r *Raster) promoteWith(op operand) DType {
	switch {
	case op.raster != nil:
		return Promote(r.dtype, op.raster.dtype)
	case op.scalar != nil:
		return PromoteForValue(r.dtype, *op.scalar)
	case op.perBand != nil:
		dt := r.dtype
		for _, v := range op.perBand {
			dt = PromoteForValue(dt, v)
		}
		return dt
	default:
		return Promote(r.dtype, Float64)
	}
}

// binary wires an elementwise combination of r and the resolved operand.
func (r *Raster) binary(op operand, dt DType, fn func(a, b float64) float64,
	accel bool, accelOp BinaryOp) *Raster {
	nb := r.shape.Bands
	if op.raster != nil && op.raster.shape.Bands > nb {
		nb = op.raster.shape.Bands
	}
	src := &binSource{a: r.src, b: op.src, nb: nb, lay: r.layout,
		fn: fn, accelOp: accelOp, accel: accel}
	var null *float64
	parent := r
	if op.raster != nil {
		null = reconcileNull(dt, r, op.raster)
		parent = georefParent([]*Raster{r, op.raster})
	} else {
		null = reconcileNull(dt, r)
	}
	return derive(src, Shape{nb, r.shape.Rows, r.shape.Cols}, dt, null, parent)
}

// Add returns r + v elementwise. v may be a *Raster, a numeric scalar, a
// Bandwise list of per-band scalars, or a []float64 covering one band plane
// or the full cube.
func (r *Raster) Add(v any) (*Raster, error) {
	op, err := r.resolveOperand("Add", v)
	if err != nil {
		return nil, err
	}
	return r.binary(op, r.promoteWith(op), func(a, b float64) float64 { return a + b }, true, BinAdd), nil
}

// Sub returns r - v elementwise.
func (r *Raster) Sub(v any) (*Raster, error) {
	op, err := r.resolveOperand("Sub", v)
	if err != nil {
		return nil, err
	}
	return r.binary(op, r.promoteWith(op), func(a, b float64) float64 { return a - b }, true, BinSub), nil
}

// Mul returns r * v elementwise.
func (r *Raster) Mul(v any) (*Raster, error) {
	op, err := r.resolveOperand("Mul", v)
	if err != nil {
		return nil, err
	}
	return r.binary(op, r.promoteWith(op), func(a, b float64) float64 { return a * b }, true, BinMul), nil
}

// Div returns r / v elementwise as true division. The result is always
// Float64.
func (r *Raster) Div(v any) (*Raster, error) {
	op, err := r.resolveOperand("Div", v)
	if err != nil {
		return nil, err
	}
	return r.binary(op, Float64, func(a, b float64) float64 { return a / b }, true, BinDiv), nil
}

// Pow returns r ** v elementwise. The result is always Float64.
func (r *Raster) Pow(v any) (*Raster, error) {
	op, err := r.resolveOperand("Pow", v)
	if err != nil {
		return nil, err
	}
	return r.binary(op, Float64, math.Pow, true, BinPow), nil
}

// FloorDiv returns r // v elementwise with Python floor semantics. Integer
// operands keep their promoted integer dtype; integer division by zero
// yields 0.
func (r *Raster) FloorDiv(v any) (*Raster, error) {
	op, err := r.resolveOperand("FloorDiv", v)
	if err != nil {
		return nil, err
	}
	dt := r.promoteWith(op)
	fn := func(a, b float64) float64 { return math.Floor(a / b) }
	if !dt.IsFloat() {
		fn = func(a, b float64) float64 {
			if b == 0 {
				return 0
			}
			return math.Floor(a / b)
		}
	}
	return r.binary(op, dt, fn, false, 0), nil
}

// Mod returns r % v elementwise with Python sign semantics: the result
// takes the divisor's sign. Integer mod by zero yields 0; float mod by zero
// yields NaN.
func (r *Raster) Mod(v any) (*Raster, error) {
	op, err := r.resolveOperand("Mod", v)
	if err != nil {
		return nil, err
	}
	dt := r.promoteWith(op)
	fn := pythonMod
	if !dt.IsFloat() {
		fn = func(a, b float64) float64 {
			if b == 0 {
				return 0
			}
			return pythonMod(a, b)
		}
	}
	return r.binary(op, dt, fn, false, 0), nil
}

// pythonMod is the remainder with the divisor's sign.
func pythonMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

// Minimum returns the elementwise minimum of r and v. NaN propagates.
func (r *Raster) Minimum(v any) (*Raster, error) {
	op, err := r.resolveOperand("Minimum", v)
	if err != nil {
		return nil, err
	}
	return r.binary(op, r.promoteWith(op), math.Min, true, BinMin), nil
}

// Maximum returns the elementwise maximum of r and v. NaN propagates.
func (r *Raster) Maximum(v any) (*Raster, error) {
	op, err := r.resolveOperand("Maximum", v)
	if err != nil {
		return nil, err
	}
	return r.binary(op, r.promoteWith(op), math.Max, true, BinMax), nil
}

// comparison wires a Bool-valued elementwise comparison.
func (r *Raster) comparison(opName string, v any, fn func(a, b float64) float64) (*Raster, error) {
	op, err := r.resolveOperand(opName, v)
	if err != nil {
		return nil, err
	}
	return r.binary(op, Bool, fn, false, 0), nil
}

// Eq returns the elementwise comparison r == v as a Bool raster.
// NaN compares unequal to everything.
func (r *Raster) Eq(v any) (*Raster, error) {
	return r.comparison("Eq", v, func(a, b float64) float64 { return b2f(a == b) })
}

// Ne returns the elementwise comparison r != v as a Bool raster.
func (r *Raster) Ne(v any) (*Raster, error) {
	return r.comparison("Ne", v, func(a, b float64) float64 { return b2f(a != b) })
}

// Lt returns the elementwise comparison r < v as a Bool raster.
func (r *Raster) Lt(v any) (*Raster, error) {
	return r.comparison("Lt", v, func(a, b float64) float64 { return b2f(a < b) })
}

// Le returns the elementwise comparison r <= v as a Bool raster.
func (r *Raster) Le(v any) (*Raster, error) {
	return r.comparison("Le", v, func(a, b float64) float64 { return b2f(a <= b) })
}

// Gt returns the elementwise comparison r > v as a Bool raster.
func (r *Raster) Gt(v any) (*Raster, error) {
	return r.comparison("Gt", v, func(a, b float64) float64 { return b2f(a > b) })
}

// Ge returns the elementwise comparison r >= v as a Bool raster.
func (r *Raster) Ge(v any) (*Raster, error) {
	return r.comparison("Ge", v, func(a, b float64) float64 { return b2f(a >= b) })
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// truthy follows numpy truthiness: any nonzero value is true, including NaN.
func truthy(v float64) bool { return v != 0 }

// LogicalAnd returns the elementwise logical AND of r and v as a Bool
// raster. Values are truthy when nonzero; NaN is truthy.
func (r *Raster) LogicalAnd(v any) (*Raster, error) {
	return r.comparison("LogicalAnd", v, func(a, b float64) float64 {
		return b2f(truthy(a) && truthy(b))
	})
}

// LogicalOr returns the elementwise logical OR of r and v as a Bool raster.
func (r *Raster) LogicalOr(v any) (*Raster, error) {
	return r.comparison("LogicalOr", v, func(a, b float64) float64 {
		return b2f(truthy(a) || truthy(b))
	})
}

// LogicalXor returns the elementwise logical XOR of r and v as a Bool
// raster.
func (r *Raster) LogicalXor(v any) (*Raster, error) {
	return r.comparison("LogicalXor", v, func(a, b float64) float64 {
		return b2f(truthy(a) != truthy(b))
	})
}

// LogicalNot returns the elementwise logical NOT of r as a Bool raster.
func (r *Raster) LogicalNot() *Raster {
	return r.unary(Bool, false, 0, func(v float64) float64 { return b2f(!truthy(v)) })
}

// bitwiseOperand validates that the operand carries integer values and
// returns the result dtype for a bitwise combination.
func (r *Raster) bitwiseOperand(opName string, op operand, shift bool) (DType, error) {
	if r.dtype.IsFloat() {
		return DTypeUnknown, fmt.Errorf("rasterkit: %s requires integer or bool dtypes, raster is %s",
			opName, r.dtype)
	}
	var dt DType
	switch {
	case op.raster != nil:
		if op.raster.dtype.IsFloat() {
			return DTypeUnknown, fmt.Errorf("rasterkit: %s requires integer or bool dtypes, operand is %s",
				opName, op.raster.dtype)
		}
		dt = Promote(r.dtype, op.raster.dtype)
	case op.scalar != nil:
		if !wholeNumber(*op.scalar) {
			return DTypeUnknown, fmt.Errorf("rasterkit: %s requires integer operands, got %v",
				opName, *op.scalar)
		}
		dt = PromoteForValue(r.dtype, *op.scalar)
	case op.perBand != nil:
		dt = r.dtype
		for _, v := range op.perBand {
			if !wholeNumber(v) {
				return DTypeUnknown, fmt.Errorf("rasterkit: %s requires integer operands, got %v", opName, v)
			}
			dt = PromoteForValue(dt, v)
		}
	default:
		for _, v := range op.slice {
			if !wholeNumber(v) {
				return DTypeUnknown, fmt.Errorf("rasterkit: %s requires integer operands, got %v", opName, v)
			}
		}
		dt = Promote(r.dtype, Int64)
	}
	if shift && dt == Bool {
		dt = Int8
	}
	return dt, nil
}

func wholeNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && math.Trunc(v) == v
}

// BitwiseAnd returns r & v elementwise. Both sides must have integer or
// bool dtypes.
func (r *Raster) BitwiseAnd(v any) (*Raster, error) {
	return r.bitwise("BitwiseAnd", v, false, func(a, b int64) int64 { return a & b })
}

// BitwiseOr returns r | v elementwise.
func (r *Raster) BitwiseOr(v any) (*Raster, error) {
	return r.bitwise("BitwiseOr", v, false, func(a, b int64) int64 { return a | b })
}

// BitwiseXor returns r ^ v elementwise.
func (r *Raster) BitwiseXor(v any) (*Raster, error) {
	return r.bitwise("BitwiseXor", v, false, func(a, b int64) int64 { return a ^ b })
}

// LeftShift returns r << v elementwise. Shift counts outside [0, 63]
// yield 0.
func (r *Raster) LeftShift(v any) (*Raster, error) {
	return r.bitwise("LeftShift", v, true, func(a, b int64) int64 {
		if b < 0 || b > 63 {
			return 0
		}
		return a << uint(b)
	})
}

// RightShift returns r >> v elementwise with arithmetic shift. Negative
// shift counts yield 0.
func (r *Raster) RightShift(v any) (*Raster, error) {
	return r.bitwise("RightShift", v, true, func(a, b int64) int64 {
		if b < 0 {
			return 0
		}
		if b > 63 {
			b = 63
		}
		return a >> uint(b)
	})
}

func (r *Raster) bitwise(opName string, v any, shift bool, fn func(a, b int64) int64) (*Raster, error) {
	op, err := r.resolveOperand(opName, v)
	if err != nil {
		return nil, err
	}
	dt, err := r.bitwiseOperand(opName, op, shift)
	if err != nil {
		return nil, err
	}
	return r.binary(op, dt, func(a, b float64) float64 {
		return float64(fn(int64(a), int64(b)))
	}, false, 0), nil
}

// unary wires an elementwise transform of r's values. The mask carries
// over unchanged.
func (r *Raster) unary(dt DType, accel bool, accelOp UnaryOp, fn func(float64) float64) *Raster {
	src := &mapTileSource{inner: r.src, lay: r.layout, fn: func(in grid.Tile) (grid.Tile, error) {
		out := grid.NewTile(in.Band, in.Spec)
		if !accel || !tryAccelUnary(accelOp, out.Data, in.Data) {
			for i, v := range in.Data {
				out.Data[i] = fn(v)
			}
		}
		if in.Mask != nil {
			copy(out.EnsureMask(), in.Mask)
		}
		return out, nil
	}}
	return derive(src, r.shape, dt, reconcileNull(dt, r), r)
}

// Neg returns -r elementwise. Unsigned and bool dtypes promote to the
// signed type that can hold the negation.
func (r *Raster) Neg() *Raster {
	return r.unary(Promote(r.dtype, Int8), true, UnNeg, func(v float64) float64 { return -v })
}

// Abs returns |r| elementwise, keeping the dtype.
func (r *Raster) Abs() *Raster {
	return r.unary(r.dtype, true, UnAbs, math.Abs)
}

// Sqrt returns the elementwise square root as a float raster. Negative
// values yield NaN.
func (r *Raster) Sqrt() *Raster {
	return r.unary(PromoteToFloat(r.dtype), true, UnSqrt, math.Sqrt)
}

// Exp returns the elementwise natural exponential as a float raster.
func (r *Raster) Exp() *Raster {
	return r.unary(PromoteToFloat(r.dtype), true, UnExp, math.Exp)
}

// Log returns the elementwise natural logarithm as a float raster.
// Non-positive values yield NaN or -Inf.
func (r *Raster) Log() *Raster {
	return r.unary(PromoteToFloat(r.dtype), true, UnLog, math.Log)
}

// Log10 returns the elementwise base-10 logarithm as a float raster.
func (r *Raster) Log10() *Raster {
	return r.unary(PromoteToFloat(r.dtype), true, UnLog10, math.Log10)
}

// Floor returns the elementwise floor. Integer rasters are unchanged.
func (r *Raster) Floor() *Raster {
	if !r.dtype.IsFloat() {
		return r
	}
	return r.unary(r.dtype, true, UnFloor, math.Floor)
}

// Ceil returns the elementwise ceiling. Integer rasters are unchanged.
func (r *Raster) Ceil() *Raster {
	if !r.dtype.IsFloat() {
		return r
	}
	return r.unary(r.dtype, true, UnCeil, math.Ceil)
}
