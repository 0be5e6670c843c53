package rasterkit

import (
	"fmt"
	"math"
	"strings"
)

// DType identifies the element type of a raster. Values are computed in
// float64 internally; the DType governs type promotion, casting at
// materialization boundaries, default null values, and file encoding.
type DType uint8

const (
	DTypeUnknown DType = iota
	Bool
	Uint8
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Uint64
	Int64
	Float32
	Float64
)

var dtypeNames = map[DType]string{
	Bool:    "bool",
	Uint8:   "uint8",
	Int8:    "int8",
	Uint16:  "uint16",
	Int16:   "int16",
	Uint32:  "uint32",
	Int32:   "int32",
	Uint64:  "uint64",
	Int64:   "int64",
	Float32: "float32",
	Float64: "float64",
}

// String returns the lowercase name of the dtype.
func (d DType) String() string {
	if s, ok := dtypeNames[d]; ok {
		return s
	}
	return "unknown"
}

// ParseDType interprets a dtype name. Both full names ("uint8", "float64")
// and short aliases ("u8", "i32", "f64") are accepted.
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "b1":
		return Bool, nil
	case "uint8", "u8", "byte":
		return Uint8, nil
	case "int8", "i8":
		return Int8, nil
	case "uint16", "u16":
		return Uint16, nil
	case "int16", "i16":
		return Int16, nil
	case "uint32", "u32":
		return Uint32, nil
	case "int32", "i32":
		return Int32, nil
	case "uint64", "u64":
		return Uint64, nil
	case "int64", "i64":
		return Int64, nil
	case "float32", "f32":
		return Float32, nil
	case "float64", "f64":
		return Float64, nil
	}
	return DTypeUnknown, fmt.Errorf("rasterkit: unknown dtype %q", s)
}

// IsFloat reports whether the dtype is a floating point type.
func (d DType) IsFloat() bool { return d == Float32 || d == Float64 }

// IsInt reports whether the dtype is a signed or unsigned integer type.
func (d DType) IsInt() bool {
	switch d {
	case Uint8, Int8, Uint16, Int16, Uint32, Int32, Uint64, Int64:
		return true
	}
	return false
}

// IsUnsigned reports whether the dtype is an unsigned integer type.
func (d DType) IsUnsigned() bool {
	switch d {
	case Uint8, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

// IsBool reports whether the dtype is boolean.
func (d DType) IsBool() bool { return d == Bool }

// Size returns the width of the dtype in bytes.
func (d DType) Size() int {
	switch d {
	case Bool, Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Uint64, Int64, Float64:
		return 8
	}
	return 0
}

// bits returns the integer bit width, or 0 for non-integers.
func (d DType) bits() int {
	if !d.IsInt() {
		return 0
	}
	return d.Size() * 8
}

// MinValue returns the smallest value representable by the dtype.
// Floats return -Inf.
func (d DType) MinValue() float64 {
	switch d {
	case Bool, Uint8, Uint16, Uint32, Uint64:
		return 0
	case Int8:
		return math.MinInt8
	case Int16:
		return math.MinInt16
	case Int32:
		return math.MinInt32
	case Int64:
		return math.MinInt64
	case Float32, Float64:
		return math.Inf(-1)
	}
	return 0
}

// MaxValue returns the largest value representable by the dtype.
// Floats return +Inf.
func (d DType) MaxValue() float64 {
	switch d {
	case Bool:
		return 1
	case Uint8:
		return math.MaxUint8
	case Int8:
		return math.MaxInt8
	case Uint16:
		return math.MaxUint16
	case Int16:
		return math.MaxInt16
	case Uint32:
		return math.MaxUint32
	case Int32:
		return math.MaxInt32
	case Uint64:
		return math.MaxUint64
	case Int64:
		return math.MaxInt64
	case Float32, Float64:
		return math.Inf(1)
	}
	return 0
}

// CanRepresent reports whether v survives a round trip through the dtype
// unchanged. NaN is representable only by floats.
func (d DType) CanRepresent(v float64) bool {
	switch {
	case d == Float64:
		return true
	case d == Float32:
		return math.IsNaN(v) || math.IsInf(v, 0) || float64(float32(v)) == v
	case math.IsNaN(v) || math.IsInf(v, 0):
		return false
	case d == Bool:
		return v == 0 || v == 1
	case d.IsInt():
		return v == math.Trunc(v) && v >= d.MinValue() && v <= d.MaxValue()
	}
	return false
}

// DefaultNull returns the conventional null value for the dtype: NaN for
// floats, the maximum for unsigned integers, the minimum for signed
// integers, and true for bool.
func (d DType) DefaultNull() float64 {
	switch {
	case d.IsFloat():
		return math.NaN()
	case d.IsUnsigned():
		return d.MaxValue()
	case d.IsInt():
		return d.MinValue()
	case d == Bool:
		return 1
	}
	return math.NaN()
}

// promoteRank orders dtypes for promotion. Wider and "more float" wins.
var promoteRank = map[DType]int{
	Bool:    0,
	Uint8:   1,
	Int8:    2,
	Uint16:  3,
	Int16:   4,
	Uint32:  5,
	Int32:   6,
	Uint64:  7,
	Int64:   8,
	Float32: 9,
	Float64: 10,
}

// Promote returns the smallest dtype that can hold values of both inputs,
// following the numpy-style lattice: bool < unsigned < signed per width,
// mixed signedness widens to the next signed type, and float wins over int
// (widening to Float64 when the int does not fit in a Float32 mantissa).
func Promote(a, b DType) DType {
	if a == b {
		return a
	}
	if a == DTypeUnknown {
		return b
	}
	if b == DTypeUnknown {
		return a
	}
	if promoteRank[a] < promoteRank[b] {
		a, b = b, a
	}
	// a now has the higher rank.
	switch {
	case a == Float64:
		return Float64
	case a == Float32:
		if b.bits() >= 32 {
			return Float64
		}
		return Float32
	case b == Bool:
		return a
	case a.IsUnsigned() == b.IsUnsigned():
		return a
	case a.IsUnsigned():
		// a unsigned, b signed with smaller rank: need the next signed
		// type wider than a.
		return nextSigned(a.bits() * 2)
	default:
		// a signed, b unsigned: fits if b is strictly narrower.
		if b.bits() < a.bits() {
			return a
		}
		return nextSigned(a.bits() * 2)
	}
}

func nextSigned(bits int) DType {
	switch {
	case bits <= 16:
		return Int16
	case bits <= 32:
		return Int32
	case bits <= 64:
		return Int64
	default:
		return Float64
	}
}

// PromoteToFloat returns the smallest float dtype that can hold the input:
// integers of 16 bits or fewer go to Float32, wider integers to Float64,
// floats are unchanged.
func PromoteToFloat(d DType) DType {
	switch {
	case d.IsFloat():
		return d
	case d == Bool || d.bits() <= 16:
		return Float32
	default:
		return Float64
	}
}

// PromoteForValue returns the smallest promotion of d that can also
// represent v exactly; Float64 is the final fallback.
func PromoteForValue(d DType, v float64) DType {
	if d.CanRepresent(v) {
		return d
	}
	order := []DType{Uint8, Int8, Uint16, Int16, Uint32, Int32, Uint64, Int64, Float32, Float64}
	for _, cand := range order {
		if promoteRank[cand] <= promoteRank[d] {
			continue
		}
		p := Promote(d, cand)
		if p.CanRepresent(v) && p != DTypeUnknown {
			return p
		}
	}
	return Float64
}

// CastValue converts v to the dtype's value domain: integers round half to
// even and clamp to the representable range (NaN becomes 0), bool becomes
// 0/1 by truthiness, Float32 narrows through a float32 round trip.
func CastValue(d DType, v float64) float64 {
	switch {
	case d == Float64:
		return v
	case d == Float32:
		return float64(float32(v))
	case d == Bool:
		// NaN compares unequal to zero, so it lands on the truthy branch.
		if v != 0 {
			return 1
		}
		return 0
	case d.IsInt():
		if math.IsNaN(v) {
			return 0
		}
		r := math.RoundToEven(v)
		if r < d.MinValue() {
			return d.MinValue()
		}
		if r > d.MaxValue() {
			return d.MaxValue()
		}
		return r
	}
	return v
}
